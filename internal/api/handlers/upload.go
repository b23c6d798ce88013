// upload.go — HTTP handler приёма загрузок: POST /api/v1/upload.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	apierrors "github.com/tadcms/media-module/internal/api/errors"
	"github.com/tadcms/media-module/internal/api/middleware"
	"github.com/tadcms/media-module/internal/receiver"
	"github.com/tadcms/media-module/internal/upload"
)

// maxMultipartMemory — буфер разбора multipart form (32 MB).
const maxMultipartMemory = 32 << 20

// rejectedBody — тело ответа при отказе валидации.
// Исторический формат клиента: плоский текст, не JSON — структурные
// ответы здесь ломают существующие интеграции.
const rejectedBody = "Can't save your file."

// UploadHandler — обработчик приёма загрузок.
type UploadHandler struct {
	receiver receiver.Receiver
	manager  *upload.Manager
	logger   *slog.Logger
}

// NewUploadHandler создаёт обработчик приёма загрузок.
func NewUploadHandler(rcv receiver.Receiver, manager *upload.Manager, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		receiver: rcv,
		manager:  manager,
		logger:   logger.With(slog.String("component", "upload_handler")),
	}
}

// Upload обрабатывает POST /api/v1/upload.
// Multipart form: upload (обязательно, файл или чанк), chunk/chunks/upload_id
// (параметры chunked-протокола, опционально).
// Query/form параметры: type (по умолчанию "image"), working_dir (int, <=0 — корень).
//
// Ответы:
//   - чанк принят, загрузка не завершена → {"done": <0-100>, "status": true};
//   - файл сохранён → {"status": true, "data": {"message": "Upload success."}};
//   - отказ валидации → 200, плоский текст (см. rejectedBody).
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		apierrors.ValidationError(w, "Ошибка разбора multipart: "+err.Error())
		return
	}

	// Проверка наличия файла — до вызова receiver
	if !h.receiver.IsUploaded(r) {
		apierrors.UploadMissingFile(w, "Поле 'upload' обязательно")
		return
	}

	rcv, err := h.receiver.Receive(r)
	if err != nil {
		if errors.Is(err, receiver.ErrChunkInvalidValue) {
			apierrors.ChunkInvalidValue(w, err.Error())
			return
		}
		h.logger.Error("Ошибка приёма загрузки", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка приёма загрузки")
		return
	}

	if !rcv.Finished {
		writeJSON(w, http.StatusOK, map[string]any{
			"done":   rcv.Percent,
			"status": true,
		})
		return
	}

	asset, validationErrs, err := h.manager.Save(r.Context(), upload.SaveParams{
		Resource: upload.FromUploaded(rcv.File),
		Type:     currentType(r),
		FolderID: currentDir(r),
	})
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, upload.ErrUnsupportedResource) {
			h.logger.Warn("Ресурс загрузки не распознан", slog.String("error", err.Error()))
			apierrors.UnsupportedResource(w, "Ресурс загрузки не распознан")
			return
		}
		h.logger.Error("Ошибка сохранения загрузки", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка сохранения файла")
		return
	}

	if asset == nil {
		middleware.UploadsTotal.WithLabelValues("rejected").Inc()
		h.logger.Warn("Загрузка отклонена валидацией",
			slog.Any("errors", validationErrs),
		)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rejectedBody))
		return
	}

	middleware.UploadsTotal.WithLabelValues("saved").Inc()
	middleware.UploadBytesTotal.Add(float64(asset.Size))

	writeJSON(w, http.StatusOK, map[string]any{
		"status": true,
		"data": map[string]any{
			"message": "Upload success.",
		},
	})
}

// currentType возвращает логический тип из параметра type
// (по умолчанию "image"), приведённый к нижнему регистру.
func currentType(r *http.Request) string {
	t := r.FormValue("type")
	if t == "" {
		t = "image"
	}
	return strings.ToLower(t)
}

// currentDir возвращает идентификатор папки из параметра working_dir.
// Отсутствие или некорректное значение трактуется как 0 (корень).
func currentDir(r *http.Request) int64 {
	dir, err := strconv.ParseInt(r.FormValue("working_dir"), 10, 64)
	if err != nil {
		return 0
	}
	return dir
}
