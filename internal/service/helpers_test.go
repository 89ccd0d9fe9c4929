package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frozn333/secure-uploader/internal/domain/model"
	"github.com/frozn333/secure-uploader/internal/repository"
	repomem "github.com/frozn333/secure-uploader/internal/repository/memory"
	"github.com/frozn333/secure-uploader/internal/storage/blob"
	blobmem "github.com/frozn333/secure-uploader/internal/storage/blob/memory"
)

var errInjected = errors.New("внедрённый сбой")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stepClock — часы, сдвигающиеся на секунду при каждом вызове.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2026, 2, 21, 15, 4, 5, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// faultyBlobs — blob-хранилище в памяти с управляемыми сбоями.
type faultyBlobs struct {
	*blobmem.Store
	putErr    error
	getErr    error
	deleteErr error
}

func (f *faultyBlobs) Put(ctx context.Context, key string, r io.Reader) (*blob.PutResult, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	return f.Store.Put(ctx, key, r)
}

func (f *faultyBlobs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyBlobs) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.Delete(ctx, key)
}

// presigningBlobs — blob-хранилище в памяти, выдающее ссылки.
type presigningBlobs struct {
	*blobmem.Store
	mu    sync.Mutex
	calls []blob.PresignOptions
	err   error
}

func (p *presigningBlobs) PresignGet(_ context.Context, key string, opts blob.PresignOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.calls = append(p.calls, opts)
	return "https://objects.example.com/" + key + "?name=" + opts.Filename, nil
}

func (p *presigningBlobs) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// faultyRepo — хранилище метаданных в памяти с управляемыми сбоями.
type faultyRepo struct {
	*repomem.Store
	createErr error
	getErr    error
	deleteErr error
	updateErr error
}

func (f *faultyRepo) Create(ctx context.Context, rec *model.FileRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.Store.Create(ctx, rec)
}

func (f *faultyRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.GetByID(ctx, id)
}

func (f *faultyRepo) UpdateDisplayName(ctx context.Context, id, ownerID, name string) (*model.FileRecord, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.Store.UpdateDisplayName(ctx, id, ownerID, name)
}

func (f *faultyRepo) Delete(ctx context.Context, id, ownerID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.Delete(ctx, id, ownerID)
}

// testEnv — сервис с хранилищами в памяти и управляемыми сбоями.
type testEnv struct {
	svc   *FileService
	repo  *faultyRepo
	blobs *faultyBlobs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := &faultyRepo{Store: repomem.New()}
	blobs := &faultyBlobs{Store: blobmem.New()}
	svc := newFileService(repo, blobs, Options{MaxUploadSize: 1 << 20, PresignTTL: time.Hour})
	return &testEnv{svc: svc, repo: repo, blobs: blobs}
}

func newFileService(repo repository.FileRepository, blobs blob.Store, opts Options) *FileService {
	svc := NewFileService(repo, blobs, opts, testLogger())
	svc.now = newStepClock().Now
	return svc
}

// mustUpload загружает файл и падает при ошибке.
func mustUpload(t *testing.T, svc *FileService, owner, name, content string, public bool) *model.FileRecord {
	t.Helper()
	rec, err := svc.Upload(context.Background(), UploadParams{
		RequesterID:  owner,
		Reader:       strings.NewReader(content),
		OriginalName: name,
		ContentType:  "text/plain",
		IsPublic:     public,
	})
	if err != nil {
		t.Fatalf("Upload(%q, %q): %v", owner, name, err)
	}
	return rec
}

// readDownload скачивает файл целиком.
func readDownload(t *testing.T, svc *FileService, requester, fileID string) (*model.FileRecord, []byte, error) {
	t.Helper()
	dl, err := svc.Download(context.Background(), requester, fileID)
	if err != nil {
		return nil, nil, err
	}
	defer dl.Body.Close()
	data, err := io.ReadAll(dl.Body)
	if err != nil {
		t.Fatalf("чтение тела скачивания: %v", err)
	}
	return dl.File, data, nil
}

func expectKind(t *testing.T, op string, err error, want ErrorKind) {
	t.Helper()
	if got := KindOf(err); got != want {
		t.Errorf("%s: вид ошибки = %q, ожидался %q (err=%v)", op, got, want, err)
	}
}
