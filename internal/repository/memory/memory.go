// Пакет memory — хранилище метаданных в памяти процесса.
// Для тестов и локального запуска без PostgreSQL: данные не переживают рестарт.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/frozn333/secure-uploader/internal/domain/model"
	"github.com/frozn333/secure-uploader/internal/repository"
)

// Store — потокобезопасная реализация repository.FileRepository.
// Наружу всегда отдаются копии записей.
type Store struct {
	mu    sync.RWMutex
	files map[string]*model.FileRecord
	byKey map[string]string // storage_key → id
	now   func() time.Time
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		files: make(map[string]*model.FileRecord),
		byKey: make(map[string]string),
		now:   time.Now,
	}
}

// Compile-time проверка.
var _ repository.FileRepository = (*Store)(nil)

func (s *Store) Create(_ context.Context, f *model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[f.ID]; ok {
		return fmt.Errorf("%w: файл %s уже существует", repository.ErrConflict, f.ID)
	}
	if _, ok := s.byKey[f.StorageKey]; ok {
		return fmt.Errorf("%w: ключ хранения %s уже занят", repository.ErrConflict, f.StorageKey)
	}

	f.UpdatedAt = s.now().UTC()
	s.files[f.ID] = f.Clone()
	s.byKey[f.StorageKey] = f.ID
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*model.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f.Clone(), nil
}

func (s *Store) ListVisible(_ context.Context, ownerID string) ([]*model.FileRecord, error) {
	s.mu.RLock()
	out := make([]*model.FileRecord, 0, len(s.files))
	for _, f := range s.files {
		if f.OwnerID == ownerID || f.IsPublic {
			out = append(out, f.Clone())
		}
	}
	s.mu.RUnlock()

	repository.SortNewestFirst(out)
	return out, nil
}

func (s *Store) UpdateDisplayName(_ context.Context, id, ownerID, name string) (*model.FileRecord, error) {
	return s.update(id, ownerID, func(f *model.FileRecord) { f.DisplayName = name })
}

func (s *Store) UpdateVisibility(_ context.Context, id, ownerID string, isPublic bool) (*model.FileRecord, error) {
	return s.update(id, ownerID, func(f *model.FileRecord) { f.IsPublic = isPublic })
}

// update применяет mutate к записи владельца под эксклюзивной блокировкой.
func (s *Store) update(id, ownerID string, mutate func(*model.FileRecord)) (*model.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || f.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	mutate(f)
	f.UpdatedAt = s.now().UTC()
	return f.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || f.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(s.files, id)
	delete(s.byKey, f.StorageKey)
	return nil
}

func (s *Store) StorageKeys(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[string]string, len(s.byKey))
	for k, id := range s.byKey {
		keys[k] = id
	}
	return keys, nil
}

// CheckReady — хранилище в памяти всегда готово.
func (s *Store) CheckReady() (status string, message string) {
	s.mu.RLock()
	n := len(s.files)
	s.mu.RUnlock()
	return "ok", fmt.Sprintf("in-memory, записей: %d", n)
}
