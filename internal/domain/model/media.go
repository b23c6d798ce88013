package model

import "time"

// MediaAsset — запись медиа-файла в библиотеке.
// Хранится в таблице media.
type MediaAsset struct {
	// ID — UUID записи (генерируется при сохранении)
	ID string
	// Name — оригинальное имя файла от клиента (может содержать
	// небезопасные символы; для хранения используется санитизированная копия)
	Name string
	// Type — логическая категория ("image", "file", ...), выбирает
	// политику валидации. Нормализуется к нижнему регистру.
	Type string
	// Mimetype — MIME-тип, определённый по содержимому файла
	Mimetype string
	// Path — относительный путь в хранилище (YYYY/MM/DD/<имя>)
	Path string
	// Size — размер файла в байтах
	Size int64
	// Extension — оригинальное расширение файла (только для имени,
	// никогда не используется для выбора политики валидации)
	Extension string
	// FolderID — ссылка на папку; nil означает корень
	FolderID *int64
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// NormalizeFolderID приводит идентификатор папки к инварианту:
// положительное число или nil (корень). Неположительные значения
// трактуются как отсутствие папки.
func NormalizeFolderID(folderID int64) *int64 {
	if folderID <= 0 {
		return nil
	}
	return &folderID
}
