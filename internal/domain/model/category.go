package model

import "strings"

// Category — укрупнённая категория файла для фильтров и иконок клиента.
type Category string

// Допустимые категории.
const (
	CategoryImage       Category = "image"
	CategoryPDF         Category = "pdf"
	CategorySpreadsheet Category = "spreadsheet"
	CategoryDocument    Category = "document"
	CategoryArchive     Category = "archive"
	CategoryOther       Category = "other"
)

// CategoryOf классифицирует MIME-тип.
// Порядок проверок важен: "application/vnd.ms-excel" не должен попасть в document.
func CategoryOf(mimeType string) Category {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	// Параметры вида "; charset=utf-8" не участвуют в классификации
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case mt == "":
		return CategoryOther
	case strings.HasPrefix(mt, "image/"):
		return CategoryImage
	case strings.Contains(mt, "pdf"):
		return CategoryPDF
	case strings.Contains(mt, "spreadsheet"), strings.Contains(mt, "excel"), mt == "text/csv":
		return CategorySpreadsheet
	case strings.Contains(mt, "word"), strings.HasPrefix(mt, "text/"),
		strings.Contains(mt, "opendocument.text"), mt == "application/rtf":
		return CategoryDocument
	case strings.Contains(mt, "zip"), strings.Contains(mt, "rar"),
		strings.Contains(mt, "x-7z"), strings.Contains(mt, "x-tar"), strings.Contains(mt, "gzip"):
		return CategoryArchive
	default:
		return CategoryOther
	}
}

// IsDocumentLike — документ в широком смысле: тексты и PDF.
// Используется фильтром списка "document".
func (c Category) IsDocumentLike() bool {
	return c == CategoryDocument || c == CategoryPDF
}
