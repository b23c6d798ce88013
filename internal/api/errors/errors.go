// Пакет errors — конструкторы стандартных HTTP-ошибок Media Module.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все JSON-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib приемлем внутри internal/api

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок API.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeUploadMissingFile   = "UPLOAD_MISSING_FILE"
	CodeUnsupportedResource = "UNSUPPORTED_RESOURCE"
	CodeChunkInvalidValue   = "CHUNK_INVALID_VALUE"
	CodeInternalError       = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// UploadMissingFile — 400 в запросе нет файла в ожидаемом поле.
func UploadMissingFile(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeUploadMissingFile, message)
}

// UnsupportedResource — 422 ресурс не удалось классифицировать.
func UnsupportedResource(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnprocessableEntity, CodeUnsupportedResource, message)
}

// ChunkInvalidValue — 400 некорректные параметры чанка.
func ChunkInvalidValue(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeChunkInvalidValue, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
