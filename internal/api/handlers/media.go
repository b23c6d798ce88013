// media.go — HTTP handlers медиа-библиотеки: список, получение,
// удаление, публичный URL.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/tadcms/media-module/internal/api/errors"
	"github.com/tadcms/media-module/internal/domain/model"
	"github.com/tadcms/media-module/internal/repository"
	"github.com/tadcms/media-module/internal/service"
)

// MediaHandler — обработчик endpoints медиа-библиотеки.
type MediaHandler struct {
	media  *service.MediaService
	logger *slog.Logger
}

// NewMediaHandler создаёт обработчик медиа-библиотеки.
func NewMediaHandler(media *service.MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:  media,
		logger: logger.With(slog.String("component", "media_handler")),
	}
}

// mediaResponse — API-представление записи медиа-файла.
type mediaResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Mimetype  string `json:"mimetype"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	FolderID  *int64 `json:"folder_id"`
	CreatedAt string `json:"created_at"`
}

// List обрабатывает GET /api/v1/media.
// Пагинация: limit, offset. Фильтры: type, folder_id.
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			apierrors.ValidationError(w, "Параметр limit должен быть от 1 до 1000")
			return
		}
		limit = n
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apierrors.ValidationError(w, "Параметр offset не может быть отрицательным")
			return
		}
		offset = n
	}

	var filters repository.MediaListFilters
	if v := r.URL.Query().Get("type"); v != "" {
		t := strings.ToLower(v)
		filters.Type = &t
	}
	if v := r.URL.Query().Get("folder_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			apierrors.ValidationError(w, "Параметр folder_id должен быть положительным числом")
			return
		}
		filters.FolderID = &n
	}

	assets, total, err := h.media.List(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Error("Ошибка получения списка медиа-файлов", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка получения списка медиа-файлов")
		return
	}

	items := make([]mediaResponse, 0, len(assets))
	for _, asset := range assets {
		items = append(items, toMediaResponse(asset))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"has_more": offset+limit < total,
	})
}

// Get обрабатывает GET /api/v1/media/{id}.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asset, err := h.media.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, fmt.Sprintf("Медиа-файл %s не найден", id))
			return
		}
		h.logger.Error("Ошибка получения медиа-файла", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка получения медиа-файла")
		return
	}

	writeJSON(w, http.StatusOK, toMediaResponse(asset))
}

// Delete обрабатывает DELETE /api/v1/media/{id}.
// Удаляет объект на диске и запись в БД.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.media.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, fmt.Sprintf("Медиа-файл %s не найден", id))
			return
		}
		h.logger.Error("Ошибка удаления медиа-файла", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка удаления медиа-файла")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// URL обрабатывает GET /api/v1/media/{id}/url.
// Возвращает публичный URL медиа-файла или 404, если объект
// отсутствует на диске либо базовый URL не сконфигурирован.
func (h *MediaHandler) URL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asset, err := h.media.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.NotFound(w, fmt.Sprintf("Медиа-файл %s не найден", id))
			return
		}
		h.logger.Error("Ошибка получения медиа-файла", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка получения медиа-файла")
		return
	}

	url := h.media.URL(asset)
	if url == "" {
		apierrors.NotFound(w, fmt.Sprintf("URL для медиа-файла %s недоступен", id))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

// toMediaResponse преобразует доменную модель в API-формат.
func toMediaResponse(asset *model.MediaAsset) mediaResponse {
	return mediaResponse{
		ID:        asset.ID,
		Name:      asset.Name,
		Type:      asset.Type,
		Mimetype:  asset.Mimetype,
		Path:      asset.Path,
		Size:      asset.Size,
		Extension: asset.Extension,
		FolderID:  asset.FolderID,
		CreatedAt: asset.CreatedAt.UTC().Format(time.RFC3339),
	}
}
