package service

import (
	"context"
	"strings"
	"testing"
	"time"

	repomem "github.com/frozn333/secure-uploader/internal/repository/memory"
	"github.com/frozn333/secure-uploader/internal/storage/blob"
	blobmem "github.com/frozn333/secure-uploader/internal/storage/blob/memory"
)

// setupReconcileTestEnv — сервис файлов и сверка над общими хранилищами в памяти.
func setupReconcileTestEnv(t *testing.T, grace time.Duration) (*FileService, *ReconcileService, *repomem.Store, *blobmem.Store) {
	t.Helper()
	repo := repomem.New()
	blobs := blobmem.New()
	svc := NewFileService(repo, blobs, Options{MaxUploadSize: 1024}, testLogger())
	rs := NewReconcileService(repo, blobs, time.Hour, grace, testLogger())
	return svc, rs, repo, blobs
}

func TestReconcileRunOnce_NoIssues(t *testing.T) {
	svc, rs, _, _ := setupReconcileTestEnv(t, 0)
	mustUpload(t, svc, "alice", "one.txt", "1", false)
	mustUpload(t, svc, "bob", "two.txt", "2", true)

	result, skipped := rs.RunOnce(context.Background())
	if skipped {
		t.Fatal("сверка пропущена")
	}
	if result == nil {
		t.Fatal("результат nil")
	}
	if len(result.Issues) != 0 {
		t.Errorf("проблем %d, ожидалось 0: %+v", len(result.Issues), result.Issues)
	}
	if result.BlobsChecked != 2 || result.FilesChecked != 2 {
		t.Errorf("проверено blob=%d files=%d, ожидалось 2 и 2", result.BlobsChecked, result.FilesChecked)
	}
}

func TestReconcileRunOnce_OrphanedBlob(t *testing.T) {
	_, rs, _, blobs := setupReconcileTestEnv(t, 0)
	if _, err := blobs.Put(context.Background(), "orphan.bin", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, _ := rs.RunOnce(context.Background())
	if len(result.Issues) != 1 {
		t.Fatalf("проблем %d, ожидалась 1", len(result.Issues))
	}
	issue := result.Issues[0]
	if issue.Type != InconsistencyOrphanedBlob || issue.StorageKey != "orphan.bin" {
		t.Errorf("проблема = %+v, ожидался orphaned_blob orphan.bin", issue)
	}

	// Сверка только сообщает о проблеме
	if !blobs.Has("orphan.bin") {
		t.Error("сверка удалила объект")
	}
}

func TestReconcileRunOnce_GracePeriod(t *testing.T) {
	_, rs, _, blobs := setupReconcileTestEnv(t, time.Hour)
	if _, err := blobs.Put(context.Background(), "fresh.bin", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	result, _ := rs.RunOnce(context.Background())
	if len(result.Issues) != 0 {
		t.Errorf("свежий объект считается осиротевшим: %+v", result.Issues)
	}

	// Через два часа тот же объект — проблема
	rs.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	result, _ = rs.RunOnce(context.Background())
	if len(result.Issues) != 1 {
		t.Errorf("проблем %d после grace-периода, ожидалась 1", len(result.Issues))
	}
}

func TestReconcileRunOnce_MissingBlob(t *testing.T) {
	svc, rs, _, blobs := setupReconcileTestEnv(t, 0)
	rec := mustUpload(t, svc, "alice", "lost.txt", "data", false)
	_ = blobs.Delete(context.Background(), rec.StorageKey)

	result, _ := rs.RunOnce(context.Background())
	if len(result.Issues) != 1 {
		t.Fatalf("проблем %d, ожидалась 1", len(result.Issues))
	}
	issue := result.Issues[0]
	if issue.Type != InconsistencyMissingBlob {
		t.Errorf("Type = %q, ожидался missing_blob", issue.Type)
	}
	if issue.FileID != rec.ID || issue.StorageKey != rec.StorageKey {
		t.Errorf("проблема = %+v, ожидалась запись %s", issue, rec.ID)
	}
}

// deleteDuringList удаляет файл между чтением ключей записей и листингом.
type deleteDuringList struct {
	*blobmem.Store
	onList func()
}

func (d *deleteDuringList) List(ctx context.Context) ([]blob.Object, error) {
	d.onList()
	return d.Store.List(ctx)
}

func TestReconcileRunOnce_DeleteBetweenReads(t *testing.T) {
	repo := repomem.New()
	blobs := blobmem.New()
	svc := NewFileService(repo, blobs, Options{MaxUploadSize: 1024}, testLogger())
	keep := mustUpload(t, svc, "alice", "keep.txt", "1", false)
	gone := mustUpload(t, svc, "alice", "gone.txt", "2", false)

	lister := &deleteDuringList{Store: blobs, onList: func() {
		if err := svc.Delete(context.Background(), "alice", gone.ID); err != nil {
			t.Errorf("Delete: %v", err)
		}
	}}
	rs := NewReconcileService(repo, lister, time.Hour, 0, testLogger())

	result, _ := rs.RunOnce(context.Background())
	if result == nil {
		t.Fatal("результат nil")
	}
	if len(result.Issues) != 0 {
		t.Errorf("удаление во время сверки дало проблемы: %+v", result.Issues)
	}
	if !blobs.Has(keep.StorageKey) {
		t.Error("объект оставшегося файла пропал")
	}
}

func TestReconcileRunOnce_ListError(t *testing.T) {
	repo := repomem.New()
	rs := NewReconcileService(repo, failingLister{}, time.Hour, 0, testLogger())

	result, skipped := rs.RunOnce(context.Background())
	if skipped || result != nil {
		t.Errorf("ожидался nil, false при ошибке листинга, получено %v, %v", result, skipped)
	}
	if rs.IsInProgress() {
		t.Error("флаг выполнения не сброшен после ошибки")
	}
}

type failingLister struct{}

func (failingLister) List(context.Context) ([]blob.Object, error) {
	return nil, errInjected
}

func TestReconcileRunOnce_ConcurrentProtection(t *testing.T) {
	_, rs, _, _ := setupReconcileTestEnv(t, 0)

	results := make(chan bool, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, skipped := rs.RunOnce(context.Background())
			results <- skipped
		}()
	}

	skippedCount := 0
	for i := 0; i < 5; i++ {
		if <-results {
			skippedCount++
		}
	}

	// Хотя бы одна должна пройти, остальные могут быть пропущены
	if skippedCount == 5 {
		t.Error("Все 5 запусков были пропущены — ни один не выполнился")
	}
}

func TestReconcileStartStop(t *testing.T) {
	repo := repomem.New()
	blobs := blobmem.New()
	rs := NewReconcileService(repo, blobs, 10*time.Millisecond, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rs.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	rs.Stop()

	// Нулевой интервал — фоновая сверка не запускается, Stop безопасен
	disabled := NewReconcileService(repo, blobs, 0, 0, testLogger())
	disabled.Start(ctx)
	disabled.Stop()
}
