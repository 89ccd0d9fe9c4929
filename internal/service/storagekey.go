package service

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// generateStorageKey генерирует ключ blob-а.
// Формат: user-{owner}_{timestamp}_{name}_{file_id}{ext}
// Пример: user-alice_20260221150405_photo_1b4e28ba-2fa1-11d2-883f-0016d3cca427.jpg
//
// Уникальность гарантирует file_id (UUID записи); остальные части
// нужны оператору, разбирающему содержимое бакета.
func generateStorageKey(ownerID, originalName, fileID string, now time.Time) string {
	ext := sanitizeExt(filepath.Ext(originalName))
	name := strings.TrimSuffix(originalName, filepath.Ext(originalName))

	name = sanitize(name)
	user := sanitize(ownerID)

	// Ограничиваем длину для совместимости с файловыми системами
	name = truncateRunes(name, 50)
	user = truncateRunes(user, 32)

	ts := now.UTC().Format("20060102150405")
	return fmt.Sprintf("user-%s_%s_%s_%s%s", user, ts, name, fileID, ext)
}

// sanitize оставляет только буквы, цифры, дефис и подчёркивание.
// Пробелы заменяются на подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r == ' ':
			result.WriteRune('_')
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}

// sanitizeExt возвращает расширение из безопасных символов, не длиннее 16.
func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	var result strings.Builder
	for _, r := range strings.TrimPrefix(ext, ".") {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			result.WriteRune(unicode.ToLower(r))
		}
	}
	if result.Len() == 0 || result.Len() > 16 {
		return ""
	}
	return "." + result.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
