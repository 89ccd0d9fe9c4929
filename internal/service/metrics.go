package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Типы несогласованностей метаданных и blob-хранилища.
const (
	// InconsistencyOrphanedBlob — blob записан, запись метаданных не сохранена
	InconsistencyOrphanedBlob = "orphaned_blob"
	// InconsistencyMissingBlob — запись есть, blob отсутствует
	InconsistencyMissingBlob = "missing_blob"
	// InconsistencyDanglingRecord — blob удалён, запись удалить не удалось
	InconsistencyDanglingRecord = "dangling_record"
)

// Prometheus-метрики файловых операций.
var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "su_operations_total",
		Help: "Количество файловых операций по типу и результату.",
	}, []string{"operation", "result"})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "su_upload_bytes_total",
		Help: "Общее количество принятых байт при загрузке.",
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "su_download_bytes_total",
		Help: "Общее количество отданных байт при скачивании.",
	})

	activeDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "su_active_downloads",
		Help: "Количество открытых потоков скачивания.",
	})

	inconsistenciesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "su_inconsistencies_total",
		Help: "Несогласованности метаданных и blob-хранилища, требующие внимания оператора.",
	}, []string{"type"})
)

// observe учитывает результат операции.
func observe(operation string, err error) {
	result := "success"
	if err != nil {
		result = string(KindOf(err))
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
}
