// Пакет repotest — контрактные тесты repository.FileRepository.
// Проверяют поведение интерфейса, а не детали реализации, и запускаются
// для каждой реализации: memory, badger, PostgreSQL.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frozn333/secure-uploader/internal/domain/model"
	"github.com/frozn333/secure-uploader/internal/repository"
)

// StoreTestSuite — набор контрактных тестов.
type StoreTestSuite struct {
	// NewStore создаёт пустое хранилище для каждого теста.
	NewStore func(t *testing.T) repository.FileRepository
}

// Run выполняет все тесты набора.
func (s *StoreTestSuite) Run(t *testing.T) {
	t.Run("Create_GetByID", s.TestCreateGet)
	t.Run("Create_DuplicateID", s.TestCreateDuplicateID)
	t.Run("Create_DuplicateStorageKey", s.TestCreateDuplicateStorageKey)
	t.Run("GetByID_NotFound", s.TestGetNotFound)
	t.Run("ListVisible_OwnerOrPublic", s.TestListVisible)
	t.Run("ListVisible_NewestFirst", s.TestListNewestFirst)
	t.Run("UpdateDisplayName", s.TestUpdateDisplayName)
	t.Run("UpdateDisplayName_WrongOwner", s.TestUpdateWrongOwner)
	t.Run("UpdateVisibility", s.TestUpdateVisibility)
	t.Run("Delete_Twice", s.TestDeleteTwice)
	t.Run("Delete_WrongOwner", s.TestDeleteWrongOwner)
	t.Run("StorageKeys", s.TestStorageKeys)
	t.Run("Concurrent_RenameDelete", s.TestConcurrentRenameDelete)
}

// NewRecord создаёт запись с уникальными ID и ключом хранения.
func NewRecord(owner string, isPublic bool, uploadedAt time.Time) *model.FileRecord {
	id := uuid.NewString()
	return &model.FileRecord{
		ID:          id,
		OwnerID:     owner,
		DisplayName: "file-" + id[:8] + ".txt",
		StorageKey:  owner + "/" + id,
		MimeType:    "text/plain",
		Size:        42,
		Checksum:    "abc123",
		IsPublic:    isPublic,
		UploadedAt:  uploadedAt.UTC().Truncate(time.Microsecond),
	}
}

func (s *StoreTestSuite) TestCreateGet(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	f := NewRecord("alice", false, time.Now())
	require.NoError(t, store.Create(ctx, f))

	got, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, f.DisplayName, got.DisplayName)
	assert.Equal(t, f.StorageKey, got.StorageKey)
	assert.Equal(t, "text/plain", got.MimeType)
	assert.Equal(t, int64(42), got.Size)
	assert.False(t, got.IsPublic)
	assert.True(t, f.UploadedAt.Equal(got.UploadedAt), "uploaded_at: %v != %v", f.UploadedAt, got.UploadedAt)
	assert.False(t, got.UpdatedAt.IsZero())
}

func (s *StoreTestSuite) TestCreateDuplicateID(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	f := NewRecord("alice", false, time.Now())
	require.NoError(t, store.Create(ctx, f))

	dup := NewRecord("bob", false, time.Now())
	dup.ID = f.ID
	err := store.Create(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func (s *StoreTestSuite) TestCreateDuplicateStorageKey(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	f := NewRecord("alice", false, time.Now())
	require.NoError(t, store.Create(ctx, f))

	dup := NewRecord("alice", false, time.Now())
	dup.StorageKey = f.StorageKey
	err := store.Create(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = store.GetByID(ctx, dup.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound, "запись-дубликат не должна сохраниться")
}

func (s *StoreTestSuite) TestGetNotFound(t *testing.T) {
	store := s.NewStore(t)

	_, err := store.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func (s *StoreTestSuite) TestListVisible(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	now := time.Now()

	alicePrivate := NewRecord("alice", false, now)
	alicePublic := NewRecord("alice", true, now.Add(time.Second))
	bobPrivate := NewRecord("bob", false, now.Add(2*time.Second))
	bobPublic := NewRecord("bob", true, now.Add(3*time.Second))
	for _, f := range []*model.FileRecord{alicePrivate, alicePublic, bobPrivate, bobPublic} {
		require.NoError(t, store.Create(ctx, f))
	}

	list, err := store.ListVisible(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{bobPublic.ID, alicePublic.ID, alicePrivate.ID}, ids(list))

	list, err = store.ListVisible(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{bobPublic.ID, alicePublic.ID}, ids(list))
}

func (s *StoreTestSuite) TestListNewestFirst(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	var want []string
	for i := 4; i >= 0; i-- {
		f := NewRecord("alice", false, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Create(ctx, f))
		want = append(want, f.ID)
	}

	list, err := store.ListVisible(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, want, ids(list))

	empty, err := store.ListVisible(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty, "пустой список, а не nil")
	assert.Empty(t, empty)
}

func (s *StoreTestSuite) TestUpdateDisplayName(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	f := NewRecord("alice", false, time.Now())
	require.NoError(t, store.Create(ctx, f))

	updated, err := store.UpdateDisplayName(ctx, f.ID, "alice", "Report Final")
	require.NoError(t, err)
	assert.Equal(t, "Report Final", updated.DisplayName)
	assert.Equal(t, f.StorageKey, updated.StorageKey, "ключ хранения не меняется")
	assert.Equal(t, "alice", updated.OwnerID)

	got, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Report Final", got.DisplayName)
}

func (s *StoreTestSuite) TestUpdateWrongOwner(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	f := NewRecord("alice", true, time.Now())
	require.NoError(t, store.Create(ctx, f))

	_, err := store.UpdateDisplayName(ctx, f.ID, "bob", "Hijacked")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := store.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.DisplayName, got.DisplayName)

	_, err = store.UpdateDisplayName(ctx, uuid.NewString(), "alice", "Missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func (s *StoreTestSuite) TestUpdateVisibility(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	f := NewRecord("alice", false, time.Now())
	require.NoError(t, store.Create(ctx, f))

	updated, err := store.UpdateVisibility(ctx, f.ID, "alice", true)
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)

	// повторная установка того же значения — не ошибка
	updated, err = store.UpdateVisibility(ctx, f.ID, "alice", true)
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)

	list, err := store.ListVisible(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{f.ID}, ids(list))

	_, err = store.UpdateVisibility(ctx, f.ID, "bob", false)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func (s *StoreTestSuite) TestDeleteTwice(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	f := NewRecord("alice", false, time.Now())
	require.NoError(t, store.Create(ctx, f))

	require.NoError(t, store.Delete(ctx, f.ID, "alice"))
	assert.ErrorIs(t, store.Delete(ctx, f.ID, "alice"), repository.ErrNotFound)

	_, err := store.GetByID(ctx, f.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// ключ хранения освобождается вместе с записью
	reuse := NewRecord("alice", false, time.Now())
	reuse.StorageKey = f.StorageKey
	assert.NoError(t, store.Create(ctx, reuse))
}

func (s *StoreTestSuite) TestDeleteWrongOwner(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	f := NewRecord("alice", true, time.Now())
	require.NoError(t, store.Create(ctx, f))

	assert.ErrorIs(t, store.Delete(ctx, f.ID, "bob"), repository.ErrNotFound)

	_, err := store.GetByID(ctx, f.ID)
	assert.NoError(t, err, "чужое удаление не должно затронуть запись")
}

func (s *StoreTestSuite) TestStorageKeys(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	a := NewRecord("alice", false, time.Now())
	b := NewRecord("bob", true, time.Now())
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	keys, err := store.StorageKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{a.StorageKey: a.ID, b.StorageKey: b.ID}, keys)
}

// TestConcurrentRenameDelete — гонка rename и delete на одной записи
// разрешается в одно согласованное состояние.
func (s *StoreTestSuite) TestConcurrentRenameDelete(t *testing.T) {
	store := s.NewStore(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		f := NewRecord("alice", false, time.Now())
		require.NoError(t, store.Create(ctx, f))

		var wg sync.WaitGroup
		var renameErr, deleteErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, renameErr = store.UpdateDisplayName(ctx, f.ID, "alice", "Renamed")
		}()
		go func() {
			defer wg.Done()
			deleteErr = store.Delete(ctx, f.ID, "alice")
		}()
		wg.Wait()

		require.NoError(t, deleteErr, "удаление владельцем должно пройти")
		if renameErr != nil {
			assert.True(t, errors.Is(renameErr, repository.ErrNotFound),
				"rename после delete: ожидался ErrNotFound, получено %v", renameErr)
		}
		_, err := store.GetByID(ctx, f.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
}

func ids(files []*model.FileRecord) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}
	return out
}
