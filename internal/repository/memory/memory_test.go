package memory

import (
	"context"
	"testing"
	"time"

	"github.com/frozn333/secure-uploader/internal/repository"
	"github.com/frozn333/secure-uploader/internal/repository/repotest"
)

// TestMemoryStore запускает контрактный набор для хранилища в памяти.
func TestMemoryStore(t *testing.T) {
	suite := &repotest.StoreTestSuite{
		NewStore: func(*testing.T) repository.FileRepository { return New() },
	}
	suite.Run(t)
}

// TestMemoryStore_ReturnsCopies проверяет, что изменение возвращённой записи
// не меняет хранимую.
func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	f := repotest.NewRecord("alice", false, time.Now())
	if err := s.Create(ctx, f); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := s.GetByID(ctx, f.ID)
	got.OwnerID = "mallory"
	got.IsPublic = true

	again, _ := s.GetByID(ctx, f.ID)
	if again.OwnerID != "alice" || again.IsPublic {
		t.Errorf("хранимая запись изменилась через копию: %+v", again)
	}

	f.DisplayName = "changed-after-create"
	again, _ = s.GetByID(ctx, f.ID)
	if again.DisplayName == "changed-after-create" {
		t.Error("Create должен сохранять копию, а не указатель вызывающего")
	}
}

func TestMemoryStore_CheckReady(t *testing.T) {
	status, _ := New().CheckReady()
	if status != "ok" {
		t.Errorf("CheckReady() = %q, ожидалось ok", status)
	}
}
