package receiver

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

// testLogger возвращает логгер, пишущий в никуда.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestReceiver создаёт ChunkReceiver на временной директории.
func newTestReceiver(t *testing.T) *ChunkReceiver {
	t.Helper()
	return NewChunkReceiver(t.TempDir(), 16, time.Minute, testLogger())
}

// multipartRequest собирает multipart-запрос с файлом в поле FieldName
// и дополнительными полями формы.
func multipartRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if filename != "" {
		part, err := w.CreateFormFile(FieldName, filename)
		if err != nil {
			t.Fatalf("ошибка создания form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("ошибка записи содержимого: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("ошибка записи поля %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("ошибка закрытия writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// TestIsUploaded проверяет обнаружение файла в поле upload.
func TestIsUploaded(t *testing.T) {
	cr := newTestReceiver(t)

	req := multipartRequest(t, "a.txt", []byte("данные"), nil)
	if !cr.IsUploaded(req) {
		t.Error("файл в поле upload должен обнаруживаться")
	}

	empty := multipartRequest(t, "", nil, map[string]string{"type": "image"})
	if cr.IsUploaded(empty) {
		t.Error("запрос без файла не должен считаться загрузкой")
	}
}

// TestReceive_Whole проверяет однозапросную загрузку.
func TestReceive_Whole(t *testing.T) {
	cr := newTestReceiver(t)
	content := []byte("однозапросная загрузка")

	req := multipartRequest(t, "doc.txt", content, nil)
	rcv, err := cr.Receive(req)
	if err != nil {
		t.Fatalf("ошибка приёма: %v", err)
	}

	if !rcv.Finished {
		t.Fatal("загрузка без поля chunks должна завершаться сразу")
	}
	if rcv.Percent != 100 {
		t.Errorf("процент: ожидалось 100, получено %d", rcv.Percent)
	}
	if rcv.File == nil {
		t.Fatal("ожидался материализованный файл")
	}
	defer rcv.File.Remove()

	if rcv.File.Name != "doc.txt" {
		t.Errorf("имя: ожидалось doc.txt, получено %q", rcv.File.Name)
	}
	data, err := os.ReadFile(rcv.File.TempPath)
	if err != nil {
		t.Fatalf("ошибка чтения временного файла: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое не совпадает")
	}
}

// TestReceive_ChunksOne проверяет, что chunks=1 обрабатывается
// как однозапросная загрузка.
func TestReceive_ChunksOne(t *testing.T) {
	cr := newTestReceiver(t)

	req := multipartRequest(t, "a.txt", []byte("x"), map[string]string{"chunks": "1", "chunk": "0"})
	rcv, err := cr.Receive(req)
	if err != nil {
		t.Fatalf("ошибка приёма: %v", err)
	}
	if !rcv.Finished {
		t.Error("chunks=1 должен завершаться немедленно")
	}
	if rcv.File != nil {
		rcv.File.Remove()
	}
}

// TestReceive_ChunkedAssembly проверяет сборку файла из трёх чанков
// с промежуточными процентами.
func TestReceive_ChunkedAssembly(t *testing.T) {
	cr := newTestReceiver(t)
	parts := [][]byte{[]byte("первая "), []byte("вторая "), []byte("третья")}

	for i, part := range parts {
		req := multipartRequest(t, "big.txt", part, map[string]string{
			"chunks":    "3",
			"chunk":     string(rune('0' + i)),
			"upload_id": "sess-1",
		})
		rcv, err := cr.Receive(req)
		if err != nil {
			t.Fatalf("чанк %d: ошибка приёма: %v", i, err)
		}

		switch i {
		case 0:
			if rcv.Finished || rcv.Percent != 33 {
				t.Errorf("чанк 0: ожидалось 33%%, получено %d%% finished=%v", rcv.Percent, rcv.Finished)
			}
		case 1:
			if rcv.Finished || rcv.Percent != 66 {
				t.Errorf("чанк 1: ожидалось 66%%, получено %d%% finished=%v", rcv.Percent, rcv.Finished)
			}
		case 2:
			if !rcv.Finished || rcv.Percent != 100 {
				t.Fatalf("чанк 2: ожидалось завершение, получено %d%% finished=%v", rcv.Percent, rcv.Finished)
			}
			defer rcv.File.Remove()

			data, err := os.ReadFile(rcv.File.TempPath)
			if err != nil {
				t.Fatalf("ошибка чтения собранного файла: %v", err)
			}
			want := bytes.Join(parts, nil)
			if !bytes.Equal(data, want) {
				t.Errorf("собранное содержимое: ожидалось %q, получено %q", want, data)
			}
			if rcv.File.Name != "big.txt" {
				t.Errorf("имя: ожидалось big.txt, получено %q", rcv.File.Name)
			}
		}
	}

	// Сессия завершена и удалена из таблицы
	if cr.sessions.Len() != 0 {
		t.Errorf("завершённая сессия должна удаляться, осталось %d", cr.sessions.Len())
	}
}

// TestReceive_FilenameAsKey проверяет продолжение сессии по имени
// файла при отсутствии upload_id.
func TestReceive_FilenameAsKey(t *testing.T) {
	cr := newTestReceiver(t)

	for i := 0; i < 2; i++ {
		req := multipartRequest(t, "named.bin", []byte{byte(i)}, map[string]string{
			"chunks": "2",
			"chunk":  string(rune('0' + i)),
		})
		rcv, err := cr.Receive(req)
		if err != nil {
			t.Fatalf("чанк %d: ошибка приёма: %v", i, err)
		}
		if i == 1 {
			if !rcv.Finished {
				t.Fatal("загрузка должна завершиться после второго чанка")
			}
			rcv.File.Remove()
		}
	}
}

// TestReceive_OutOfOrder проверяет отклонение чанка не по порядку.
func TestReceive_OutOfOrder(t *testing.T) {
	cr := newTestReceiver(t)

	req := multipartRequest(t, "a.bin", []byte("x"), map[string]string{
		"chunks": "3", "chunk": "0", "upload_id": "s",
	})
	if _, err := cr.Receive(req); err != nil {
		t.Fatalf("чанк 0: ошибка приёма: %v", err)
	}

	// Чанк 2 вместо ожидаемого 1
	req = multipartRequest(t, "a.bin", []byte("x"), map[string]string{
		"chunks": "3", "chunk": "2", "upload_id": "s",
	})
	_, err := cr.Receive(req)
	if !errors.Is(err, ErrChunkInvalidValue) {
		t.Errorf("нарушение порядка: ожидалась ErrChunkInvalidValue, получено %v", err)
	}
}

// TestReceive_UnknownSession проверяет отклонение ненулевого чанка
// без существующей сессии.
func TestReceive_UnknownSession(t *testing.T) {
	cr := newTestReceiver(t)

	req := multipartRequest(t, "a.bin", []byte("x"), map[string]string{
		"chunks": "3", "chunk": "1", "upload_id": "нет такой",
	})
	_, err := cr.Receive(req)
	if !errors.Is(err, ErrChunkInvalidValue) {
		t.Errorf("ожидалась ErrChunkInvalidValue, получено %v", err)
	}
}

// TestReceive_InvalidParams проверяет отклонение некорректных
// параметров chunked-протокола.
func TestReceive_InvalidParams(t *testing.T) {
	cr := newTestReceiver(t)

	tests := []map[string]string{
		{"chunks": "abc", "chunk": "0"},
		{"chunks": "-2", "chunk": "0"},
		{"chunks": "3", "chunk": "-1"},
		{"chunks": "3", "chunk": "5"},
		{"chunks": "3", "chunk": "xyz"},
	}
	for _, fields := range tests {
		req := multipartRequest(t, "a.bin", []byte("x"), fields)
		_, err := cr.Receive(req)
		if !errors.Is(err, ErrChunkInvalidValue) {
			t.Errorf("%v: ожидалась ErrChunkInvalidValue, получено %v", fields, err)
		}
	}
}

// TestReceive_MissingFile проверяет ошибку при отсутствии поля upload.
func TestReceive_MissingFile(t *testing.T) {
	cr := newTestReceiver(t)

	req := multipartRequest(t, "", nil, map[string]string{"type": "image"})
	if _, err := cr.Receive(req); err == nil {
		t.Error("ожидалась ошибка при отсутствии поля upload")
	}
}

// TestEviction_RemovesTempFile проверяет удаление временного файла
// брошенной сессии при вытеснении из LRU.
func TestEviction_RemovesTempFile(t *testing.T) {
	// Ёмкость 1: вторая сессия вытесняет первую
	cr := NewChunkReceiver(t.TempDir(), 1, time.Minute, testLogger())

	req := multipartRequest(t, "first.bin", []byte("x"), map[string]string{
		"chunks": "2", "chunk": "0", "upload_id": "first",
	})
	if _, err := cr.Receive(req); err != nil {
		t.Fatalf("ошибка приёма первого чанка: %v", err)
	}

	s, ok := cr.sessions.Get("first")
	if !ok {
		t.Fatal("сессия first не найдена")
	}
	firstTmp := s.tmpPath

	req = multipartRequest(t, "second.bin", []byte("y"), map[string]string{
		"chunks": "2", "chunk": "0", "upload_id": "second",
	})
	if _, err := cr.Receive(req); err != nil {
		t.Fatalf("ошибка приёма второго чанка: %v", err)
	}

	if _, err := os.Stat(firstTmp); !os.IsNotExist(err) {
		t.Error("временный файл вытесненной сессии должен быть удалён")
	}
}
