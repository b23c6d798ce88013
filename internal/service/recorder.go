// Пакет service — бизнес-логика Media Module поверх конвейера
// загрузки и репозиториев.
package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tadcms/media-module/internal/domain/model"
	"github.com/tadcms/media-module/internal/repository"
)

// TxRecorder — транзакционная регистрация MediaAsset в PostgreSQL.
// Реализует upload.Recorder: вставка выполняется внутри транзакции,
// при ошибке транзакция откатывается и записи в БД не остаётся.
type TxRecorder struct {
	tx *repository.TxRunner
}

// NewTxRecorder создаёт TxRecorder.
func NewTxRecorder(tx *repository.TxRunner) *TxRecorder {
	return &TxRecorder{tx: tx}
}

// Record вставляет запись медиа-файла в транзакции.
func (r *TxRecorder) Record(ctx context.Context, asset *model.MediaAsset) error {
	return r.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		return repository.NewMediaRepository(tx).Create(ctx, asset)
	})
}
