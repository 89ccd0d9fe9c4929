// Пакет repository — хранилище метаданных файлов.
// Основная реализация — чистый SQL через pgx, без ORM.
// Встраиваемые реализации лежат в подпакетах kv (badger) и memory.
package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/frozn333/secure-uploader/internal/domain/model"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена (или не принадлежит указанному владельцу).
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (ID или storage key).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// FileRepository — контракт хранилища метаданных.
// Изменяющие операции выполняются одной условной записью по (id, owner_id):
// гонка rename/delete на одной записи разрешается в пользу одной из операций,
// проигравшая получает ErrNotFound.
type FileRepository interface {
	// Create сохраняет новую запись. ErrConflict при дубликате ID или StorageKey.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает запись по ID.
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	// ListVisible возвращает записи с owner_id = ownerID OR is_public,
	// отсортированные по uploaded_at по убыванию.
	ListVisible(ctx context.Context, ownerID string) ([]*model.FileRecord, error)
	// UpdateDisplayName меняет имя записи владельца и возвращает обновлённую запись.
	UpdateDisplayName(ctx context.Context, id, ownerID, name string) (*model.FileRecord, error)
	// UpdateVisibility меняет видимость записи владельца и возвращает обновлённую запись.
	UpdateVisibility(ctx context.Context, id, ownerID string, isPublic bool) (*model.FileRecord, error)
	// Delete удаляет запись владельца.
	Delete(ctx context.Context, id, ownerID string) error
	// StorageKeys возвращает множество ключей всех записей (для сверки с blob-хранилищем).
	StorageKeys(ctx context.Context) (map[string]string, error)
}

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// SortNewestFirst сортирует записи по uploaded_at по убыванию,
// при равенстве — по id по убыванию (как ORDER BY в PostgreSQL-реализации).
// Используется встраиваемыми хранилищами.
func SortNewestFirst(files []*model.FileRecord) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].UploadedAt.Equal(files[j].UploadedAt) {
			return files[i].UploadedAt.After(files[j].UploadedAt)
		}
		return files[i].ID > files[j].ID
	})
}
