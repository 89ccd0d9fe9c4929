// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — файл не найден (или уже удалён).
	ErrNotFound = errors.New("файл не найден")
	// ErrForbidden — операция запрещена для этого пользователя.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrInvalidInput — ошибка валидации входных данных.
	ErrInvalidInput = errors.New("некорректные входные данные")
	// ErrStorageFailure — сбой хранилища метаданных или blob-хранилища.
	// Подробности только в логах, клиенту не передаются.
	ErrStorageFailure = errors.New("ошибка хранилища")
	// ErrTooLarge — превышен максимальный размер загрузки. Разновидность ErrInvalidInput.
	ErrTooLarge = fmt.Errorf("%w: превышен максимальный размер файла", ErrInvalidInput)
	// ErrPresignUnsupported — blob-хранилище не выдаёт ссылки на скачивание.
	ErrPresignUnsupported = errors.New("хранилище не поддерживает ссылки на скачивание")
)

// ErrorKind — перечислимый вид ошибки для ветвления без сравнения строк.
type ErrorKind string

// Виды ошибок.
const (
	KindNotFound       ErrorKind = "not_found"
	KindForbidden      ErrorKind = "forbidden"
	KindInvalidInput   ErrorKind = "invalid_input"
	KindStorageFailure ErrorKind = "storage_failure"
	KindInternal       ErrorKind = "internal"
)

// KindOf классифицирует ошибку сервиса. nil — пустая строка.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrStorageFailure):
		return KindStorageFailure
	default:
		return KindInternal
	}
}

// invalidf — ErrInvalidInput с пояснением для клиента.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storageErr — ErrStorageFailure с причиной (только для логов).
func storageErr(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, cause)
}
