// media.go — операции над медиа-библиотекой: просмотр, удаление,
// формирование публичных URL.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/tadcms/media-module/internal/domain/model"
	"github.com/tadcms/media-module/internal/repository"
	"github.com/tadcms/media-module/internal/storage/disk"
)

// MediaService — операции над сохранёнными медиа-файлами.
type MediaService struct {
	repo          repository.MediaRepository
	disk          *disk.Disk
	publicBaseURL string
	logger        *slog.Logger
}

// NewMediaService создаёт MediaService.
// publicBaseURL может быть пустым — тогда URL не формируются.
func NewMediaService(
	repo repository.MediaRepository,
	d *disk.Disk,
	publicBaseURL string,
	logger *slog.Logger,
) *MediaService {
	return &MediaService{
		repo:          repo,
		disk:          d,
		publicBaseURL: publicBaseURL,
		logger:        logger.With(slog.String("component", "media_service")),
	}
}

// Get возвращает запись медиа-файла по ID.
func (s *MediaService) Get(ctx context.Context, id string) (*model.MediaAsset, error) {
	return s.repo.GetByID(ctx, id)
}

// List возвращает записи с фильтрацией и пагинацией плюс общее количество.
func (s *MediaService) List(ctx context.Context, filters repository.MediaListFilters, limit, offset int) ([]*model.MediaAsset, int, error) {
	assets, err := s.repo.List(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// Delete удаляет медиа-файл: сначала объект на диске, затем запись.
// Порядок известен как точка риска рассинхронизации: отказ между
// двумя шагами оставляет запись без объекта. Удаление записи при
// уже отсутствующем объекте допустимо.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.disk.Delete(asset.Path); err != nil {
		return fmt.Errorf("ошибка удаления объекта %s: %w", asset.Path, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Медиа-файл удалён",
		slog.String("id", id),
		slog.String("path", asset.Path),
	)
	return nil
}

// URL возвращает публичный URL медиа-файла.
// Возвращает пустую строку, если базовый URL не сконфигурирован
// или объект отсутствует на диске.
func (s *MediaService) URL(asset *model.MediaAsset) string {
	if s.publicBaseURL == "" || !s.disk.Exists(asset.Path) {
		return ""
	}
	return s.publicBaseURL + "/" + path.Clean(asset.Path)
}
