// filename.go — генерация безопасного имени файла для хранения.
package upload

import (
	"crypto/rand"
	"math/big"
	"path/filepath"
	"regexp"
	"strings"
)

// suffixLen — длина случайного суффикса для защиты от коллизий.
const suffixLen = 15

// maxStemLen — максимальная длина основы имени до slug-обработки.
const maxStemLen = 50

// suffixAlphabet — алфавит случайного суффикса.
const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// insecureSuffixRe — завершающий ".php" (без учёта регистра).
var insecureSuffixRe = regexp.MustCompile(`(?i)\.php$`)

// StorageFilename генерирует имя файла для хранения из оригинального
// имени: основа без расширения усекается до 50 символов и приводится
// к slug, затем добавляется случайный суффикс из 15 символов и
// оригинальное расширение. Завершающий ".php" срезается после сборки —
// случайный суффикс не может его внести, а оригинальное расширение
// может, и именно от этого защищаемся на серверах, исполняющих
// файлы по расширению.
//
// Результат недетерминирован; тесты проверяют форму
// <slug>-<15 символов>.<ext>, не точное значение.
func StorageFilename(originalName string) string {
	ext := filepath.Ext(originalName)
	stem := strings.TrimSuffix(originalName, ext)
	ext = strings.TrimPrefix(ext, ".")

	if len(stem) > maxStemLen {
		stem = stem[:maxStemLen]
	}

	name := slugify(stem) + "-" + randomSuffix(suffixLen)
	if ext != "" {
		name = name + "." + ext
	}

	return insecureSuffixRe.ReplaceAllString(name, "")
}

// slugify приводит строку к безопасному для диска виду: нижний
// регистр, только ASCII буквы и цифры, разделители нормализуются
// в дефис. Пробелы, path-разделители и управляющие символы не
// проходят. Пустой результат заменяется на "file".
func slugify(s string) string {
	var b strings.Builder
	prevDash := true // подавляем ведущий дефис

	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevDash = false
		case r == ' ' || r == '-' || r == '_' || r == '.' || r == '/' || r == '\\':
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
		// Остальные руны (не-ASCII, управляющие) отбрасываются
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "file"
	}
	return slug
}

// randomSuffix возвращает случайную строку длины n из suffixAlphabet.
func randomSuffix(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(suffixAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand на поддерживаемых платформах не возвращает
			// ошибок; fallback на фиксированный символ
			b[i] = 'x'
			continue
		}
		b[i] = suffixAlphabet[idx.Int64()]
	}
	return string(b)
}
