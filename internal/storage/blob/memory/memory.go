// Пакет memory — blob-хранилище в памяти процесса (тесты, локальный запуск).
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/frozn333/secure-uploader/internal/storage/blob"
)

type object struct {
	data    []byte
	modTime time.Time
}

// Store — потокобезопасное blob-хранилище в памяти.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

// Compile-time проверки.
var (
	_ blob.Store  = (*Store)(nil)
	_ blob.Lister = (*Store)(nil)
)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader) (*blob.PutResult, error) {
	if key == "" {
		return nil, blob.ErrInvalidKey
	}

	hasher := sha256.New()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.TeeReader(r, hasher)); err != nil {
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.objects[key] = object{data: buf.Bytes(), modTime: time.Now()}
	s.mu.Unlock()

	return &blob.PutResult{
		Size:     int64(buf.Len()),
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
	}
	// Срез не меняется после записи: Put заменяет объект целиком
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) List(_ context.Context) ([]blob.Object, error) {
	s.mu.RLock()
	out := make([]blob.Object, 0, len(s.objects))
	for k, obj := range s.objects {
		out = append(out, blob.Object{Key: k, Size: int64(len(obj.data)), ModTime: obj.modTime})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Has — объект с ключом существует.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Len — число объектов.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// CheckReady — хранилище в памяти всегда готово.
func (s *Store) CheckReady() (status string, message string) {
	return "ok", fmt.Sprintf("in-memory, объектов: %d", s.Len())
}
