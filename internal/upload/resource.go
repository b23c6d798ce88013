// resource.go — классификация входного ресурса и его материализация
// в единое представление File.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"
)

// ErrUnsupportedResource — ресурс не удалось отнести ни к одному виду.
// Проверяется до любых операций чтения.
var ErrUnsupportedResource = errors.New("неподдерживаемый тип ресурса")

// ResourceKind — вид входного ресурса.
type ResourceKind string

const (
	// ResourceUploaded — уже принятый загруженный файл
	ResourceUploaded ResourceKind = "uploaded"
	// ResourceURL — URL для скачивания
	ResourceURL ResourceKind = "url"
	// ResourcePath — существующий локальный путь
	ResourcePath ResourceKind = "path"
)

// Resource — классифицированный входной ресурс (tagged variant).
// Создаётся одним из трёх конструкторов; Kind всегда заполнен.
type Resource struct {
	// Kind — вид ресурса
	Kind ResourceKind

	// file — материализованный файл (только для ResourceUploaded)
	file *File
	// ref — URL или локальный путь (для ResourceURL и ResourcePath)
	ref string
}

// FromUploaded создаёт ресурс из уже материализованного файла.
func FromUploaded(f *File) Resource {
	return Resource{Kind: ResourceUploaded, file: f}
}

// FromURL создаёт ресурс-ссылку для скачивания по HTTP(S).
func FromURL(rawURL string) Resource {
	return Resource{Kind: ResourceURL, ref: rawURL}
}

// FromPath создаёт ресурс из существующего локального пути.
func FromPath(p string) Resource {
	return Resource{Kind: ResourcePath, ref: p}
}

// Resolver классифицирует строковые ссылки на ресурсы и материализует
// их во временные файлы.
type Resolver struct {
	// tmpDir — директория для временных файлов скачиваемых ресурсов
	tmpDir string
	// client — HTTP-клиент для скачивания URL-ресурсов
	client *http.Client
}

// NewResolver создаёт Resolver с таймаутом скачивания по умолчанию.
func NewResolver(tmpDir string) *Resolver {
	return &Resolver{
		tmpDir: tmpDir,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Resolve классифицирует строковую ссылку в точности один вид ресурса.
// Порядок проверки детерминированный: сначала синтаксически корректный
// URL, затем существующий локальный путь. Если ничего не подошло —
// ErrUnsupportedResource (до любых операций чтения).
func (rv *Resolver) Resolve(ref string) (Resource, error) {
	if isValidURL(ref) {
		return FromURL(ref), nil
	}

	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return FromPath(ref), nil
	}

	return Resource{}, fmt.Errorf("%w: %q", ErrUnsupportedResource, ref)
}

// Materialize приводит ресурс к единому представлению File.
// Для URL — скачивает содержимое во временный файл; для локального
// пути — лёгкая обёртка без копирования; uploaded возвращается как есть.
func (rv *Resolver) Materialize(ctx context.Context, res Resource) (*File, error) {
	switch res.Kind {
	case ResourceUploaded:
		if res.file == nil {
			return nil, fmt.Errorf("%w: пустой uploaded-ресурс", ErrUnsupportedResource)
		}
		return res.file, nil
	case ResourcePath:
		return NewFile(res.ref, path.Base(res.ref), 0)
	case ResourceURL:
		return rv.fetchURL(ctx, res.ref)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedResource, res.Kind)
	}
}

// fetchURL скачивает содержимое URL во временный файл в tmpDir.
func (rv *Resolver) fetchURL(ctx context.Context, rawURL string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса %s: %w", rawURL, err)
	}

	resp, err := rv.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка скачивания %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ошибка скачивания %s: статус %d", rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(rv.tmpDir, "fetch-*")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("ошибка записи содержимого %s: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("ошибка закрытия временного файла: %w", err)
	}

	parsed, _ := url.Parse(rawURL)
	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}

	f, err := NewFile(tmp.Name(), name, 0)
	if err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	return f, nil
}

// isValidURL проверяет, что строка — синтаксически корректный
// абсолютный HTTP(S) URL.
func isValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
