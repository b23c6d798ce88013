// manager.go — оркестрация конвейера сохранения: материализация →
// валидация → генерация имени → запись на диск → регистрация в БД.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tadcms/media-module/internal/config"
	"github.com/tadcms/media-module/internal/domain/model"
	"github.com/tadcms/media-module/internal/storage/disk"
)

// imageMimetypes — распознаваемые типы изображений для оптимизации
// и для IsImage.
var imageMimetypes = []string{
	"image/jpeg",
	"image/pjpeg",
	"image/png",
	"image/gif",
	"image/svg+xml",
}

// Recorder — регистрация записи MediaAsset в хранилище метаданных.
// Реализация обязана выполнять вставку в транзакции: при ошибке
// записи в БД не остаётся.
type Recorder interface {
	Record(ctx context.Context, asset *model.MediaAsset) error
}

// Optimizer — сжатие изображения по месту хранения.
type Optimizer interface {
	Optimize(ctx context.Context, path, mime string) error
}

// Manager — конвейер сохранения медиа-файлов.
type Manager struct {
	disk      *disk.Disk
	recorder  Recorder
	optimizer Optimizer // nil — оптимизация выключена
	types     config.FileTypes
	resolver  *Resolver
	logger    *slog.Logger
}

// NewManager создаёт Manager.
// optimizer может быть nil — тогда изображения не оптимизируются.
func NewManager(
	d *disk.Disk,
	recorder Recorder,
	optimizer Optimizer,
	types config.FileTypes,
	resolver *Resolver,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		disk:      d,
		recorder:  recorder,
		optimizer: optimizer,
		types:     types,
		resolver:  resolver,
		logger:    logger.With(slog.String("component", "file_manager")),
	}
}

// SaveParams — параметры сохранения ресурса.
type SaveParams struct {
	// Resource — классифицированный входной ресурс
	Resource Resource
	// Type — логический тип ("image", "file", ...), выбирает политику
	Type string
	// FolderID — папка назначения; <=0 означает корень
	FolderID int64
}

// Save выполняет полный конвейер сохранения.
//
// Возвращаемые значения:
//   - asset != nil — файл сохранён и зарегистрирован;
//   - asset == nil, validationErrs != nil — отказ валидации
//     (ожидаемый исход, не ошибка), временный файл удалён;
//   - err != nil — сбой конвейера; временный файл и записанный
//     на диск объект удалены, записи в БД нет.
//
// Временный материализованный файл удаляется на каждом пути выхода.
func (m *Manager) Save(ctx context.Context, p SaveParams) (asset *model.MediaAsset, validationErrs []string, err error) {
	f, err := m.resolver.Materialize(ctx, p.Resource)
	if err != nil {
		return nil, nil, err
	}

	// Временный файл освобождается на любом исходе
	defer func() {
		if rmErr := f.Remove(); rmErr != nil {
			m.logger.Warn("Не удалось удалить временный файл",
				slog.String("path", f.TempPath),
				slog.String("error", rmErr.Error()),
			)
		}
	}()

	validator := NewValidator(m.types)
	if !validator.Validate(f, p.Type) {
		m.logger.Info("Файл отклонён валидацией",
			slog.String("name", f.Name),
			slog.String("mimetype", f.Mimetype),
			slog.String("type", p.Type),
			slog.Any("errors", validator.Errors()),
		)
		return nil, validator.Errors(), nil
	}

	src, err := f.Open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	stored, err := m.disk.Store(src, StorageFilename(f.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка записи на диск: %w", err)
	}

	// Оптимизация best-effort: её сбой не отменяет сохранение
	if m.optimizer != nil && slices.Contains(imageMimetypes, f.Mimetype) {
		if optErr := m.optimizer.Optimize(ctx, stored.FullPath, f.Mimetype); optErr != nil {
			m.logger.Warn("Оптимизация изображения не удалась",
				slog.String("path", stored.RelPath),
				slog.String("error", optErr.Error()),
			)
		}
	}

	asset = &model.MediaAsset{
		ID:        uuid.New().String(),
		Name:      f.Name,
		Type:      p.Type,
		Mimetype:  f.Mimetype,
		Path:      stored.RelPath,
		Size:      stored.Size,
		Extension: f.Extension(),
		FolderID:  model.NormalizeFolderID(p.FolderID),
		CreatedAt: time.Now().UTC(),
	}

	if err := m.recorder.Record(ctx, asset); err != nil {
		// Транзакция откачена регистратором; убираем записанный
		// на диск объект, чтобы не оставлять осиротевший файл
		if delErr := m.disk.Delete(stored.RelPath); delErr != nil {
			m.logger.Error("Не удалось удалить файл после отката",
				slog.String("path", stored.RelPath),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, nil, fmt.Errorf("ошибка регистрации файла: %w", err)
	}

	m.logger.Info("Файл сохранён",
		slog.String("id", asset.ID),
		slog.String("name", asset.Name),
		slog.String("path", asset.Path),
		slog.String("mimetype", asset.Mimetype),
		slog.Int64("size", asset.Size),
	)

	return asset, nil, nil
}

// IsImage сообщает, относится ли MIME-тип записи к распознаваемым
// типам изображений.
func IsImage(asset *model.MediaAsset) bool {
	if asset == nil {
		return false
	}
	return slices.Contains(imageMimetypes, asset.Mimetype)
}
