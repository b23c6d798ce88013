// Пакет disk — запись медиа-файлов на сконфигурированный диск
// с партиционированием по дате (YYYY/MM/DD).
package disk

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Disk — диск хранения медиа-файлов.
type Disk struct {
	// root — корневая директория диска (MM_UPLOAD_DISK)
	root string
	// now — источник времени для датированных директорий
	// (подменяется в тестах)
	now func() time.Time
}

// StoreResult — результат записи файла на диск.
type StoreResult struct {
	// RelPath — относительный путь файла (YYYY/MM/DD/<имя>)
	RelPath string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт Disk. Проверяет и создаёт корневую директорию,
// если она не существует.
func New(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию диска %s: %w", root, err)
	}
	return &Disk{root: root, now: time.Now}, nil
}

// Store записывает данные из reader в датированную директорию под
// указанным именем и возвращает относительный путь.
// Директория YYYY/MM/DD создаётся при необходимости.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (d *Disk) Store(reader io.Reader, filename string) (*StoreResult, error) {
	relDir := d.now().Format("2006/01/02")
	dir := filepath.Join(d.root, relDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	relPath := filepath.Join(relDir, filename)
	fullPath := filepath.Join(d.root, relPath)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &StoreResult{
		RelPath:  relPath,
		FullPath: fullPath,
		Size:     size,
	}, nil
}

// FullPath возвращает абсолютный путь к файлу на диске.
func (d *Disk) FullPath(relPath string) string {
	return filepath.Join(d.root, relPath)
}

// Exists проверяет существование файла на диске.
func (d *Disk) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(d.root, relPath))
	return err == nil
}

// Delete удаляет файл с диска.
// Возвращает nil, если файл уже не существует.
func (d *Disk) Delete(relPath string) error {
	err := os.Remove(filepath.Join(d.root, relPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", relPath, err)
	}
	return nil
}

// Root возвращает корневую директорию диска.
func (d *Disk) Root() string {
	return d.root
}
