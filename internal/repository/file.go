package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/frozn333/secure-uploader/internal/domain/model"
)

const fileColumns = `id, owner_id, display_name, storage_key, mime_type, size, checksum,
	is_public, uploaded_at, updated_at`

// fileRepo — реализация FileRepository для PostgreSQL.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт PostgreSQL-репозиторий метаданных файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (id, owner_id, display_name, storage_key, mime_type, size,
			checksum, is_public, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		f.ID, f.OwnerID, f.DisplayName, f.StorageKey, f.MimeType, f.Size,
		f.Checksum, f.IsPublic, f.UploadedAt,
	).Scan(&f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с таким ID или ключом хранения уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

func (r *fileRepo) ListVisible(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE owner_id = $1 OR is_public
		ORDER BY uploaded_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	files := make([]*model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации файлов: %w", err)
	}
	return files, nil
}

func (r *fileRepo) UpdateDisplayName(ctx context.Context, id, ownerID, name string) (*model.FileRecord, error) {
	query := `
		UPDATE files SET display_name = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + fileColumns

	return r.updateReturning(ctx, query, id, ownerID, name)
}

func (r *fileRepo) UpdateVisibility(ctx context.Context, id, ownerID string, isPublic bool) (*model.FileRecord, error) {
	query := `
		UPDATE files SET is_public = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + fileColumns

	return r.updateReturning(ctx, query, id, ownerID, isPublic)
}

// updateReturning выполняет условный UPDATE ... RETURNING одной командой.
func (r *fileRepo) updateReturning(ctx context.Context, query string, args ...any) (*model.FileRecord, error) {
	f, err := scanFile(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления файла: %w", err)
	}
	return f, nil
}

func (r *fileRepo) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) StorageKeys(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Query(ctx, `SELECT storage_key, id FROM files`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ключей хранения: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]string)
	for rows.Next() {
		var key, id string
		if err := rows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ключа: %w", err)
		}
		keys[key] = id
	}
	return keys, rows.Err()
}

// scanFile сканирует строку в FileRecord. Порядок полей — fileColumns.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.DisplayName, &f.StorageKey, &f.MimeType, &f.Size, &f.Checksum,
		&f.IsPublic, &f.UploadedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}
