// validate.go — валидация материализованного файла по политике
// логического типа из конфигурации.
package upload

import (
	"fmt"
	"slices"

	"github.com/tadcms/media-module/internal/config"
)

// Validator проверяет файл по политике логического типа.
// Отказ валидации — ожидаемый исход, не ошибка: причины накапливаются
// в списке сообщений, доступном вызывающему коду.
type Validator struct {
	types  config.FileTypes
	errors []string
}

// NewValidator создаёт Validator с явно переданной картой политик.
// Политики передаются значением, а не читаются из глобального
// состояния, чтобы конвейер оставался тестируемым без окружения.
func NewValidator(types config.FileTypes) *Validator {
	return &Validator{types: types}
}

// Validate проверяет файл по политике типа fileType.
// Порядок проверок: файл присутствует, нет транспортной ошибки,
// MIME-тип в списке разрешённых (нет политики — всё запрещено),
// размер в пределах лимита (0 = без лимита).
// Возвращает false при первом нарушении; причина добавляется
// в список Errors.
func (v *Validator) Validate(f *File, fileType string) bool {
	if f == nil {
		v.errors = append(v.errors, "файл отсутствует")
		return false
	}

	if f.ErrCode != 0 {
		v.errors = append(v.errors, fmt.Sprintf("ошибка приёма файла, код %d", f.ErrCode))
		return false
	}

	policy, _ := v.types.Policy(fileType)

	if !slices.Contains(policy.Mimetypes, f.Mimetype) {
		v.errors = append(v.errors, fmt.Sprintf("недопустимый MIME-тип: %s", f.Mimetype))
		return false
	}

	if policy.MaxFileSize > 0 && f.Size > policy.MaxFileSize*1024*1024 {
		v.errors = append(v.errors, fmt.Sprintf(
			"размер файла %d байт превышает лимит %d МБ", f.Size, policy.MaxFileSize))
		return false
	}

	return true
}

// Errors возвращает накопленные сообщения о нарушениях.
func (v *Validator) Errors() []string {
	return v.errors
}
