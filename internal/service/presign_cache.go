// presign_cache.go — кэш ссылок на скачивание.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/frozn333/secure-uploader/internal/domain/model"
)

// Prometheus-метрики кэша ссылок.
var (
	presignCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "su_presign_cache_hits_total",
		Help: "Общее количество попаданий в кэш ссылок на скачивание.",
	})
	presignCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "su_presign_cache_misses_total",
		Help: "Общее количество промахов кэша ссылок на скачивание.",
	})
)

// PresignCache — LRU-кэш выданных ссылок с TTL.
// Запись живёт половину срока действия ссылки: клиент всегда получает
// ссылку с запасом по времени.
//
// Ключ включает storage key и текущее имя файла, поэтому после rename
// старая ссылка (с прежним Content-Disposition) не выдаётся.
// Кэш читается только после проверки доступа.
type PresignCache struct {
	cache *expirable.LRU[string, string]
}

// NewPresignCache создаёт кэш. linkTTL — срок действия самих ссылок.
func NewPresignCache(maxSize int, linkTTL time.Duration) *PresignCache {
	return &PresignCache{
		cache: expirable.NewLRU[string, string](maxSize, nil, linkTTL/2),
	}
}

// Get возвращает ссылку для записи. Обновляет метрики hit/miss.
func (c *PresignCache) Get(f *model.FileRecord) (string, bool) {
	url, ok := c.cache.Get(presignCacheKey(f))
	if ok {
		presignCacheHitsTotal.Inc()
		return url, true
	}
	presignCacheMissesTotal.Inc()
	return "", false
}

// Set сохраняет ссылку для записи.
func (c *PresignCache) Set(f *model.FileRecord, url string) {
	c.cache.Add(presignCacheKey(f), url)
}

// Len — количество записей в кэше.
func (c *PresignCache) Len() int {
	return c.cache.Len()
}

func presignCacheKey(f *model.FileRecord) string {
	return f.ID + "|" + f.StorageKey + "|" + f.DisplayName
}
