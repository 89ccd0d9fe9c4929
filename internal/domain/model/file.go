// Пакет model — доменные модели secure-uploader.
// FileRecord — единственная персистентная сущность: метаданные
// загруженного файла, связанные с blob-ом через StorageKey.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MinDisplayNameLength — минимальная длина имени файла после trim (в символах).
const MinDisplayNameLength = 3

// FileRecord — метаданные одного загруженного файла.
type FileRecord struct {
	// ID — UUID записи, назначается при создании и не меняется
	ID string
	// OwnerID — идентификатор загрузившего пользователя (sub из токена), неизменяем
	OwnerID string
	// DisplayName — отображаемое имя, меняется через rename
	DisplayName string
	// StorageKey — ключ blob-а в хранилище, уникален и неизменяем
	StorageKey string
	// MimeType — MIME-тип, фиксируется при загрузке
	MimeType string
	// Size — размер в байтах
	Size int64
	// Checksum — SHA-256 содержимого (hex)
	Checksum string
	// IsPublic — видимость для остальных пользователей
	IsPublic bool
	// UploadedAt — время загрузки
	UploadedAt time.Time
	// UpdatedAt — время последнего изменения метаданных
	UpdatedAt time.Time
}

// Category возвращает категорию файла по MIME-типу.
func (f *FileRecord) Category() Category {
	return CategoryOf(f.MimeType)
}

// Clone возвращает независимую копию записи.
func (f *FileRecord) Clone() *FileRecord {
	c := *f
	return &c
}

// Ошибки проверки отображаемого имени.
var (
	// ErrDisplayNameTooShort — имя короче MinDisplayNameLength символов.
	ErrDisplayNameTooShort = fmt.Errorf("имя файла должно содержать не менее %d символов", MinDisplayNameLength)
	// ErrDisplayNameEncoding — имя не в UTF-8 или содержит управляющие символы.
	ErrDisplayNameEncoding = errors.New("имя файла содержит недопустимые символы")
)

// NormalizeDisplayName обрезает пробелы по краям и проверяет имя:
// корректный UTF-8 без управляющих символов, не короче MinDisplayNameLength.
// Хранилища метаданных принимают только такие строки без потерь.
func NormalizeDisplayName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", ErrDisplayNameEncoding
	}
	trimmed := strings.TrimSpace(name)
	if strings.IndexFunc(trimmed, unicode.IsControl) >= 0 {
		return "", ErrDisplayNameEncoding
	}
	if utf8.RuneCountInString(trimmed) < MinDisplayNameLength {
		return trimmed, ErrDisplayNameTooShort
	}
	return trimmed, nil
}
