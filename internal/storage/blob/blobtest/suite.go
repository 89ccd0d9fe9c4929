// Пакет blobtest — контрактные тесты blob.Store.
package blobtest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frozn333/secure-uploader/internal/storage/blob"
)

// StoreTestSuite — набор контрактных тестов blob-хранилища.
type StoreTestSuite struct {
	// NewStore создаёт пустое хранилище для каждого теста.
	NewStore func(t *testing.T) blob.Store
}

// Run выполняет все тесты набора.
func (s *StoreTestSuite) Run(t *testing.T) {
	t.Run("PutGet_RoundTrip", s.TestPutGet)
	t.Run("Get_NotFound", s.TestGetNotFound)
	t.Run("Delete_Idempotent", s.TestDeleteIdempotent)
	t.Run("Put_ReaderError", s.TestPutReaderError)
	t.Run("Put_Empty", s.TestPutEmpty)
	t.Run("List", s.TestList)
}

// Key генерирует уникальный ключ.
func Key() string {
	return "user-test_" + uuid.NewString() + ".bin"
}

func (s *StoreTestSuite) TestPutGet(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	key := Key()
	content := bytes.Repeat([]byte("secure-uploader "), 4096)

	res, err := store.Put(ctx, key, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), res.Size)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Checksum)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got), "содержимое должно совпадать байт в байт")
}

func (s *StoreTestSuite) TestGetNotFound(t *testing.T) {
	store := s.NewStore(t)

	_, err := store.Get(context.Background(), Key())
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func (s *StoreTestSuite) TestDeleteIdempotent(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	key := Key()

	_, err := store.Put(ctx, key, bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key), "повторное удаление — не ошибка")

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

// errReader отдаёт немного данных и ломается.
type errReader struct{ sent bool }

var errBroken = errors.New("соединение разорвано")

func (r *errReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errBroken
}

func (s *StoreTestSuite) TestPutReaderError(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	key := Key()

	_, err := store.Put(ctx, key, &errReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken, "ошибка источника должна оборачиваться")

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, blob.ErrNotFound, "частичный объект не должен остаться")
}

func (s *StoreTestSuite) TestPutEmpty(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	key := Key()

	res, err := store.Put(ctx, key, bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Size)
}

func (s *StoreTestSuite) TestList(t *testing.T) {
	store := s.NewStore(t)
	lister, ok := store.(blob.Lister)
	if !ok {
		t.Skip("хранилище не поддерживает листинг")
	}
	ctx := context.Background()

	keys := map[string]bool{Key(): true, Key(): true}
	for k := range keys {
		_, err := store.Put(ctx, k, bytes.NewReader([]byte(k)))
		require.NoError(t, err)
	}

	objects, err := lister.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, len(keys))
	for _, obj := range objects {
		assert.True(t, keys[obj.Key], "неожиданный ключ %s", obj.Key)
		assert.Equal(t, int64(len(obj.Key)), obj.Size)
		assert.False(t, obj.ModTime.IsZero())
	}
}
