// Пакет receiver — приём прямых и chunked-загрузок.
// Собирает многозапросные загрузки в один временный файл; конвейер
// сохранения видит только два исхода: "в процессе" (с процентом)
// и "завершено" (с материализованным файлом).
package receiver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tadcms/media-module/internal/upload"
)

// FieldName — имя multipart-поля с файлом или чанком.
const FieldName = "upload"

// ErrChunkInvalidValue — некорректные параметры чанка
// (индекс вне диапазона, нарушение порядка, неизвестная сессия).
var ErrChunkInvalidValue = errors.New("некорректные параметры чанка")

// Received — исход одного запроса приёма.
type Received struct {
	// Finished — загрузка собрана полностью
	Finished bool
	// Percent — процент принятых чанков (0-100)
	Percent int
	// File — материализованный файл (только при Finished)
	File *upload.File
}

// Receiver — компонент приёма загрузок. Обработчики зависят только
// от этого интерфейса; протокол сборки чанков — деталь реализации.
type Receiver interface {
	// IsUploaded проверяет наличие файла в поле FieldName запроса.
	IsUploaded(r *http.Request) bool
	// Receive принимает содержимое запроса: целый файл или один чанк.
	Receive(r *http.Request) (*Received, error)
}

// session — состояние одной chunked-загрузки между запросами.
type session struct {
	// tmpPath — временный файл, в который дописываются чанки
	tmpPath string
	// filename — оригинальное имя файла
	filename string
	// received — количество принятых чанков
	received int
	// total — ожидаемое количество чанков
	total int
}

// ChunkReceiver — приём загрузок с состоянием сессий в expirable LRU.
// Брошенные сессии вытесняются по TTL, их временные файлы удаляются
// в eviction callback. Ключ продолжения — upload_id из формы, при его
// отсутствии — оригинальное имя файла.
type ChunkReceiver struct {
	tmpDir   string
	mu       sync.Mutex
	sessions *expirable.LRU[string, *session]
	logger   *slog.Logger
}

// NewChunkReceiver создаёт ChunkReceiver.
// maxSessions — ёмкость таблицы сессий, ttl — время жизни брошенной сессии.
func NewChunkReceiver(tmpDir string, maxSessions int, ttl time.Duration, logger *slog.Logger) *ChunkReceiver {
	cr := &ChunkReceiver{
		tmpDir: tmpDir,
		logger: logger.With(slog.String("component", "chunk_receiver")),
	}
	cr.sessions = expirable.NewLRU[string, *session](maxSessions, cr.onEvict, ttl)
	return cr
}

// onEvict удаляет временный файл вытесненной сессии.
// Пустой tmpPath означает, что файл уже передан дальше по конвейеру.
func (cr *ChunkReceiver) onEvict(key string, s *session) {
	if s.tmpPath == "" {
		return
	}
	if err := os.Remove(s.tmpPath); err != nil && !os.IsNotExist(err) {
		cr.logger.Warn("Не удалось удалить временный файл сессии",
			slog.String("upload_id", key),
			slog.String("path", s.tmpPath),
			slog.String("error", err.Error()),
		)
	}
}

// IsUploaded проверяет наличие файла в поле FieldName запроса.
func (cr *ChunkReceiver) IsUploaded(r *http.Request) bool {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return false
		}
	}
	return r.MultipartForm != nil && len(r.MultipartForm.File[FieldName]) > 0
}

// Receive принимает целый файл либо один чанк.
//
// Параметры формы chunked-протокола:
//   - chunk — индекс чанка, с нуля;
//   - chunks — общее количество чанков;
//   - upload_id — ключ продолжения между запросами.
//
// Без поля chunks загрузка считается однозапросной и завершается
// немедленно. Чанки принимаются строго по порядку; нарушение —
// ErrChunkInvalidValue.
func (cr *ChunkReceiver) Receive(r *http.Request) (*Received, error) {
	file, header, err := r.FormFile(FieldName)
	if err != nil {
		return nil, fmt.Errorf("поле %q отсутствует в запросе: %w", FieldName, err)
	}
	defer file.Close()

	chunksStr := r.FormValue("chunks")
	if chunksStr == "" || chunksStr == "1" {
		return cr.receiveWhole(file, header)
	}

	total, err := strconv.Atoi(chunksStr)
	if err != nil || total <= 0 {
		return nil, fmt.Errorf("%w: chunks=%q", ErrChunkInvalidValue, chunksStr)
	}

	index, err := strconv.Atoi(r.FormValue("chunk"))
	if err != nil || index < 0 || index >= total {
		return nil, fmt.Errorf("%w: chunk=%q при chunks=%d", ErrChunkInvalidValue, r.FormValue("chunk"), total)
	}

	key := r.FormValue("upload_id")
	if key == "" {
		key = header.Filename
	}

	return cr.receiveChunk(file, header, key, index, total)
}

// receiveWhole принимает однозапросную загрузку.
func (cr *ChunkReceiver) receiveWhole(file multipart.File, header *multipart.FileHeader) (*Received, error) {
	tmp, err := os.CreateTemp(cr.tmpDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("ошибка записи загрузки: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("ошибка закрытия временного файла: %w", err)
	}

	f, err := upload.NewFile(tmp.Name(), header.Filename, 0)
	if err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	return &Received{Finished: true, Percent: 100, File: f}, nil
}

// receiveChunk дописывает один чанк в файл сессии.
func (cr *ChunkReceiver) receiveChunk(file multipart.File, header *multipart.FileHeader, key string, index, total int) (*Received, error) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	s, ok := cr.sessions.Get(key)
	if !ok {
		if index != 0 {
			return nil, fmt.Errorf("%w: сессия %q не найдена для чанка %d", ErrChunkInvalidValue, key, index)
		}
		tmp, err := os.CreateTemp(cr.tmpDir, "chunked-*")
		if err != nil {
			return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
		}
		tmp.Close()
		s = &session{tmpPath: tmp.Name(), filename: header.Filename, total: total}
		cr.sessions.Add(key, s)
	}

	if index != s.received {
		return nil, fmt.Errorf("%w: ожидался чанк %d, получен %d", ErrChunkInvalidValue, s.received, index)
	}
	if total != s.total {
		return nil, fmt.Errorf("%w: количество чанков изменилось с %d на %d", ErrChunkInvalidValue, s.total, total)
	}

	out, err := os.OpenFile(s.tmpPath, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла сессии: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return nil, fmt.Errorf("ошибка записи чанка: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("ошибка закрытия файла сессии: %w", err)
	}

	s.received++
	if s.received < s.total {
		// Add обновляет позицию в LRU и продлевает TTL сессии
		cr.sessions.Add(key, s)
		return &Received{Percent: s.received * 100 / s.total}, nil
	}

	// Сессия собрана: файл уходит дальше по конвейеру, поэтому
	// путь обнуляется до удаления записи — eviction callback
	// не должен удалить собранный файл
	tmpPath := s.tmpPath
	s.tmpPath = ""
	cr.sessions.Remove(key)

	f, err := upload.NewFile(tmpPath, s.filename, 0)
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	return &Received{Finished: true, Percent: 100, File: f}, nil
}
