package service

import (
	"testing"
	"time"

	"github.com/frozn333/secure-uploader/internal/domain/model"
)

func TestPresignCache_GetSet(t *testing.T) {
	cache := NewPresignCache(100, time.Hour)
	rec := &model.FileRecord{ID: "id-1", StorageKey: "key-1", DisplayName: "report.pdf"}

	if _, ok := cache.Get(rec); ok {
		t.Fatal("ожидался cache miss для новой записи")
	}

	cache.Set(rec, "https://example.com/link")
	got, ok := cache.Get(rec)
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got != "https://example.com/link" {
		t.Errorf("ссылка = %q", got)
	}
}

func TestPresignCache_NameIsPartOfKey(t *testing.T) {
	cache := NewPresignCache(100, time.Hour)
	rec := &model.FileRecord{ID: "id-1", StorageKey: "key-1", DisplayName: "old.pdf"}
	cache.Set(rec, "https://example.com/old")

	renamed := rec.Clone()
	renamed.DisplayName = "new.pdf"
	if _, ok := cache.Get(renamed); ok {
		t.Error("после переименования выдана ссылка со старым именем")
	}
}

func TestPresignCache_ExpiresBeforeLink(t *testing.T) {
	// Ссылка живёт 100ms, запись в кэше — 50ms
	cache := NewPresignCache(100, 100*time.Millisecond)
	rec := &model.FileRecord{ID: "id-1", StorageKey: "key-1", DisplayName: "a.pdf"}
	cache.Set(rec, "https://example.com/link")

	time.Sleep(120 * time.Millisecond)

	if _, ok := cache.Get(rec); ok {
		t.Error("запись не истекла раньше ссылки")
	}
}

func TestPresignCache_MaxSize(t *testing.T) {
	cache := NewPresignCache(2, time.Hour)
	for _, id := range []string{"a", "b", "c"} {
		cache.Set(&model.FileRecord{ID: id}, "https://example.com/"+id)
	}
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, ожидалось 2", cache.Len())
	}
	if _, ok := cache.Get(&model.FileRecord{ID: "a"}); ok {
		t.Error("старейшая запись не вытеснена")
	}
}
