// Пакет filestore — blob-хранилище на локальном диске.
// Streaming-запись с подсчётом SHA-256 на лету, атомарная
// публикация через rename, чтение, удаление и листинг каталога.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/frozn333/secure-uploader/internal/storage/blob"
)

// tmpSuffix — суффикс незавершённых записей; такие файлы не видны в листинге.
const tmpSuffix = ".tmp"

// FileStore — управление физическими файлами на диске.
type FileStore struct {
	// dataDir — корневая директория хранения файлов (SU_DATA_DIR)
	dataDir string
}

// Compile-time проверки.
var (
	_ blob.Store  = (*FileStore)(nil)
	_ blob.Lister = (*FileStore)(nil)
)

// New создаёт новый FileStore. Создаёт директорию, если она не существует.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// Put записывает данные из reader на диск с подсчётом SHA-256 на лету.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *FileStore) Put(ctx context.Context, key string, reader io.Reader) (*blob.PutResult, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	// Уникальный temp на случай параллельной записи одного ключа
	tmpPath := fullPath + "." + uuid.NewString()[:8] + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	tee := io.TeeReader(&ctxReader{ctx: ctx, r: reader}, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &blob.PutResult{
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Get открывает файл для чтения. Вызывающий код обязан закрыть ReadCloser.
func (s *FileStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", key, err)
	}

	return f, nil
}

// Delete удаляет файл с диска. Возвращает nil, если файл уже не существует.
func (s *FileStore) Delete(_ context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", key, err)
	}
	return nil
}

// List перечисляет опубликованные файлы каталога данных.
func (s *FileStore) List(ctx context.Context) ([]blob.Object, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", s.dataDir, err)
	}

	objects := make([]blob.Object, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Файл удалён между ReadDir и Info
			continue
		}
		objects = append(objects, blob.Object{
			Key:     e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return objects, nil
}

// CheckReady проверяет доступность каталога данных на запись.
func (s *FileStore) CheckReady() (status string, message string) {
	probe, err := os.CreateTemp(s.dataDir, ".ready-*"+tmpSuffix)
	if err != nil {
		return "fail", fmt.Sprintf("каталог данных недоступен на запись: %v", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return "ok", "каталог данных доступен"
}

// DataDir возвращает путь к директории данных.
func (s *FileStore) DataDir() string {
	return s.dataDir
}

// path возвращает полный путь для ключа. Ключ — одно имя файла
// без разделителей каталогов; иначе ErrInvalidKey.
func (s *FileStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || strings.HasSuffix(key, tmpSuffix) ||
		!filepath.IsLocal(key) {
		return "", fmt.Errorf("%w: %q", blob.ErrInvalidKey, key)
	}
	return filepath.Join(s.dataDir, key), nil
}

// ctxReader прерывает чтение при отмене контекста.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
