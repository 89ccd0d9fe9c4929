// Пакет blob — контракт хранилища содержимого файлов.
// Ключи непрозрачны для хранилища и выбираются сервисом файлов.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Ошибки blob-хранилищ.
var (
	// ErrNotFound — объект с таким ключом отсутствует.
	ErrNotFound = errors.New("объект не найден")
	// ErrTooLarge — поток превысил допустимый размер.
	ErrTooLarge = errors.New("превышен максимальный размер файла")
	// ErrInvalidKey — ключ недопустим для данного хранилища.
	ErrInvalidKey = errors.New("недопустимый ключ объекта")
)

// PutResult — результат записи объекта.
type PutResult struct {
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 содержимого (hex)
	Checksum string
}

// Store — минимальный набор операций, от которого зависит сервис файлов.
type Store interface {
	// Put записывает поток под ключом. Ошибка чтения потока
	// возвращается обёрнутой (errors.Is работает). Частичный объект не остаётся.
	Put(ctx context.Context, key string, r io.Reader) (*PutResult, error)
	// Get открывает объект на чтение. ErrNotFound, если объекта нет.
	// Вызывающий обязан закрыть ReadCloser.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete удаляет объект. Отсутствие объекта — не ошибка.
	Delete(ctx context.Context, key string) error
}

// Object — описание объекта при листинге.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Lister — хранилище умеет перечислять свои объекты (нужно для сверки).
type Lister interface {
	List(ctx context.Context) ([]Object, error)
}

// PresignOptions — параметры ссылки на скачивание.
type PresignOptions struct {
	// Filename — имя в Content-Disposition
	Filename string
	// ContentType — тип в ответе хранилища
	ContentType string
	// TTL — время жизни ссылки
	TTL time.Duration
}

// Presigner — хранилище умеет выдавать ограниченные по времени ссылки.
type Presigner interface {
	PresignGet(ctx context.Context, key string, opts PresignOptions) (string, error)
}
