// Пакет upload — конвейер валидации и сохранения медиа-файлов:
// классификация ресурса, материализация, валидация по политике типа,
// генерация безопасного имени, запись на диск и регистрация в БД.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File — материализованный загружаемый файл: единое представление
// независимо от источника (прямая загрузка, URL, локальный путь).
type File struct {
	// Name — оригинальное имя файла от клиента
	Name string
	// TempPath — путь к локальному временному файлу с содержимым
	TempPath string
	// Mimetype — MIME-тип, определённый по содержимому
	// (значению клиента не доверяем)
	Mimetype string
	// Size — размер файла в байтах
	Size int64
	// ErrCode — код транспортной ошибки при приёме (0 = ок)
	ErrCode int
}

// NewFile создаёт материализованный файл из уже принятого временного
// файла. MIME-тип определяется по содержимому, размер — по stat.
func NewFile(tempPath, originalName string, errCode int) (*File, error) {
	info, err := os.Stat(tempPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка stat временного файла %s: %w", tempPath, err)
	}

	mtype, err := mimetype.DetectFile(tempPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка определения MIME-типа %s: %w", tempPath, err)
	}

	return &File{
		Name:     originalName,
		TempPath: tempPath,
		Mimetype: mtype.String(),
		Size:     info.Size(),
		ErrCode:  errCode,
	}, nil
}

// Extension возвращает оригинальное расширение файла без точки.
// Используется только при генерации имени, не для выбора политики.
func (f *File) Extension() string {
	return strings.TrimPrefix(filepath.Ext(f.Name), ".")
}

// Open открывает содержимое файла для чтения.
func (f *File) Open() (*os.File, error) {
	fd, err := os.Open(f.TempPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия временного файла %s: %w", f.TempPath, err)
	}
	return fd, nil
}

// Remove удаляет временный файл. Вызывается на каждом пути выхода
// из конвейера: успех, отказ валидации, ошибка сохранения.
// Возвращает nil, если файл уже не существует.
func (f *File) Remove() error {
	err := os.Remove(f.TempPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления временного файла %s: %w", f.TempPath, err)
	}
	return nil
}
