// Пакет access — движок контроля доступа к файлам.
// Чистые функции без побочных эффектов и I/O: решение принимается
// только по идентификатору запрашивающего и текущему состоянию записи.
// Правила:
//   - просмотр (list, get, download) — владелец или публичный файл;
//   - изменение (rename, delete, смена видимости) — только владелец.
package access

import (
	"errors"
	"fmt"

	"github.com/frozn333/secure-uploader/internal/domain/model"
)

// Operation — операция над записью файла.
type Operation string

// Поддерживаемые операции.
const (
	OpList             Operation = "list"
	OpGet              Operation = "get"
	OpDownload         Operation = "download"
	OpRename           Operation = "rename"
	OpDelete           Operation = "delete"
	OpToggleVisibility Operation = "toggle_visibility"
)

// Decision — результат проверки доступа.
type Decision int

const (
	// Denied — нулевое значение, отказ по умолчанию
	Denied Decision = iota
	Allowed
)

// String возвращает текстовое представление решения.
func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// ErrDenied — отказ в доступе. Оборачивается в DeniedError.
var ErrDenied = errors.New("доступ запрещён")

// DeniedError — отказ с контекстом операции.
type DeniedError struct {
	Op     Operation
	FileID string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: операция %s над файлом %s", ErrDenied.Error(), e.Op, e.FileID)
}

// Unwrap позволяет проверять отказ через errors.Is(err, ErrDenied).
func (e *DeniedError) Unwrap() error {
	return ErrDenied
}

// Decide принимает решение для (requesterID, file, op).
// Пустой requesterID и неизвестная операция — всегда Denied.
func Decide(requesterID string, f *model.FileRecord, op Operation) Decision {
	if requesterID == "" || f == nil {
		return Denied
	}

	switch op {
	case OpList, OpGet, OpDownload:
		if CanView(requesterID, f) {
			return Allowed
		}
	case OpRename, OpDelete, OpToggleVisibility:
		if IsOwner(requesterID, f) {
			return Allowed
		}
	}
	return Denied
}

// Check — как Decide, но возвращает *DeniedError при отказе.
func Check(requesterID string, f *model.FileRecord, op Operation) error {
	if Decide(requesterID, f, op) == Allowed {
		return nil
	}
	id := ""
	if f != nil {
		id = f.ID
	}
	return &DeniedError{Op: op, FileID: id}
}

// IsOwner — requesterID является владельцем записи.
func IsOwner(requesterID string, f *model.FileRecord) bool {
	return requesterID != "" && requesterID == f.OwnerID
}

// CanView — запись видна requesterID: владелец или публичный файл.
func CanView(requesterID string, f *model.FileRecord) bool {
	return IsOwner(requesterID, f) || f.IsPublic
}

// FilterVisible оставляет только записи, видимые requesterID.
// Порядок сохраняется. Используется как страховка поверх запроса хранилища.
func FilterVisible(requesterID string, files []*model.FileRecord) []*model.FileRecord {
	out := files[:0:0]
	for _, f := range files {
		if Decide(requesterID, f, OpList) == Allowed {
			out = append(out, f)
		}
	}
	return out
}
