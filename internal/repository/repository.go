// Пакет repository — доступ к записям медиа-библиотеки в PostgreSQL.
// Единственная таблица — media; все запросы — чистый SQL через pgx,
// без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки доступа к медиа-библиотеке.
var (
	// ErrNotFound — запись медиа-файла не найдена.
	ErrNotFound = errors.New("запись медиа-файла не найдена")
	// ErrConflict — медиа-файл с таким идентификатором уже
	// зарегистрирован.
	ErrConflict = errors.New("медиа-файл уже зарегистрирован")
)

// DBTX — выполнение SQL-запросов к таблице media. Реализуется как
// *pgxpool.Pool, так и pgx.Tx: репозиторий работает и внутри
// транзакции регистрации загрузки, и вне её (чтение, удаление).
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner — граница транзакции регистрации загрузки: запись
// в таблицу media либо фиксируется целиком, либо после отката
// не остаётся вовсе.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner поверх пула подключений.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции: ошибка fn откатывает
// транзакцию и возвращается вызывающему, успех — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
