// Пакет kv — встраиваемое хранилище метаданных на BadgerDB.
//
// Пространства ключей:
//
//	f:<id>           → FileRecord (JSON)
//	k:<storage_key>  → id (уникальность ключа хранения)
//
// Каждая операция — одна транзакция badger (SSI). Конфликт параллельных
// транзакций на одной записи повторяется ограниченное число раз.
package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/frozn333/secure-uploader/internal/domain/model"
	"github.com/frozn333/secure-uploader/internal/repository"
)

// maxTxnRetries — число повторов при badger.ErrConflict.
const maxTxnRetries = 5

const (
	prefixFile = "f:"
	prefixKey  = "k:"
)

func fileKey(id string) []byte        { return []byte(prefixFile + id) }
func storageKeyKey(key string) []byte { return []byte(prefixKey + key) }

// Store — реализация repository.FileRepository поверх BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Compile-time проверка.
var _ repository.FileRepository = (*Store)(nil)

// Open открывает (или создаёт) базу badger в каталоге dir.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None)

	return open(opts, logger)
}

// OpenInMemory открывает badger без диска (для тестов).
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING)

	return open(opts, logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия badger %s: %w", opts.Dir, err)
	}

	logger.Info("Хранилище метаданных badger открыто",
		slog.String("dir", opts.Dir),
		slog.Bool("in_memory", opts.InMemory),
	)

	return &Store{
		db:     db,
		logger: logger.With(slog.String("component", "badger_metadata")),
	}, nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, f *model.FileRecord) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(fileKey(f.ID)); err == nil {
			return fmt.Errorf("%w: файл %s уже существует", repository.ErrConflict, f.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("ошибка проверки файла: %w", err)
		}

		if _, err := txn.Get(storageKeyKey(f.StorageKey)); err == nil {
			return fmt.Errorf("%w: ключ хранения %s уже занят", repository.ErrConflict, f.StorageKey)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("ошибка проверки ключа хранения: %w", err)
		}

		f.UpdatedAt = nowUTC()
		data, err := encodeFile(f)
		if err != nil {
			return err
		}
		if err := txn.Set(fileKey(f.ID), data); err != nil {
			return fmt.Errorf("ошибка записи файла: %w", err)
		}
		if err := txn.Set(storageKeyKey(f.StorageKey), []byte(f.ID)); err != nil {
			return fmt.Errorf("ошибка записи ключа хранения: %w", err)
		}
		return nil
	})
}

func (s *Store) GetByID(_ context.Context, id string) (*model.FileRecord, error) {
	var f *model.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		f, err = getFile(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) ListVisible(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	files := make([]*model.FileRecord, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(prefixFile)

		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		for it.Rewind(); it.Valid(); it.Next() {
			if n%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			n++

			var f *model.FileRecord
			err := it.Item().Value(func(val []byte) error {
				var err error
				f, err = decodeFile(val)
				return err
			})
			if err != nil {
				return err
			}
			if f.OwnerID == ownerID || f.IsPublic {
				files = append(files, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}

	repository.SortNewestFirst(files)
	return files, nil
}

func (s *Store) UpdateDisplayName(ctx context.Context, id, ownerID, name string) (*model.FileRecord, error) {
	return s.mutate(ctx, id, ownerID, func(f *model.FileRecord) { f.DisplayName = name })
}

func (s *Store) UpdateVisibility(ctx context.Context, id, ownerID string, isPublic bool) (*model.FileRecord, error) {
	return s.mutate(ctx, id, ownerID, func(f *model.FileRecord) { f.IsPublic = isPublic })
}

// mutate читает запись владельца, применяет изменение и сохраняет в одной транзакции.
func (s *Store) mutate(ctx context.Context, id, ownerID string, change func(*model.FileRecord)) (*model.FileRecord, error) {
	var updated *model.FileRecord
	err := s.update(ctx, func(txn *badger.Txn) error {
		f, err := getFile(txn, id)
		if err != nil {
			return err
		}
		if f.OwnerID != ownerID {
			return repository.ErrNotFound
		}

		change(f)
		f.UpdatedAt = nowUTC()
		data, err := encodeFile(f)
		if err != nil {
			return err
		}
		if err := txn.Set(fileKey(id), data); err != nil {
			return fmt.Errorf("ошибка обновления файла: %w", err)
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id, ownerID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		f, err := getFile(txn, id)
		if err != nil {
			return err
		}
		if f.OwnerID != ownerID {
			return repository.ErrNotFound
		}
		if err := txn.Delete(fileKey(id)); err != nil {
			return fmt.Errorf("ошибка удаления файла: %w", err)
		}
		if err := txn.Delete(storageKeyKey(f.StorageKey)); err != nil {
			return fmt.Errorf("ошибка удаления ключа хранения: %w", err)
		}
		return nil
	})
}

func (s *Store) StorageKeys(ctx context.Context) (map[string]string, error) {
	keys := make(map[string]string)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixKey)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.Key()[len(prefixKey):])
			id, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			keys[key] = string(id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ключей хранения: %w", err)
	}
	return keys, nil
}

// CheckReady проверяет, что база открыта и читается.
func (s *Store) CheckReady() (status string, message string) {
	if s.db.IsClosed() {
		return "fail", "badger закрыт"
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(fileKey("readiness-probe"))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return "fail", fmt.Sprintf("badger недоступен: %v", err)
	}
	return "ok", "badger открыт"
}

// update выполняет fn в транзакции записи с повтором при конфликте SSI.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("Конфликт транзакции badger, повтор",
			slog.Int("attempt", attempt+1),
		)
	}
	return fmt.Errorf("транзакция badger не прошла после %d попыток: %w", maxTxnRetries, err)
}

// getFile читает запись по id внутри транзакции.
func getFile(txn *badger.Txn, id string) (*model.FileRecord, error) {
	item, err := txn.Get(fileKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}

	var f *model.FileRecord
	err = item.Value(func(val []byte) error {
		var err error
		f, err = decodeFile(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}
