// reconcile.go — фоновая сверка blob-хранилища с хранилищем метаданных.
//
// Обнаруживает проблемы:
//   - orphaned_blob: объект в blob-хранилище без записи (старше grace-периода)
//   - missing_blob: запись, ключ которой отсутствует в blob-хранилище
//
// Только отчёт: логи и метрики для оператора, ничего не удаляется
// и не изменяется.
//
// Запускается как горутина с периодическим тикером (SU_RECONCILE_INTERVAL).
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/frozn333/secure-uploader/internal/repository"
	"github.com/frozn333/secure-uploader/internal/storage/blob"
)

// Prometheus метрики сверки
var (
	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "su_reconcile_runs_total",
		Help: "Общее количество запусков сверки",
	})

	reconcileIssuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "su_reconcile_issues_total",
		Help: "Общее количество проблем, обнаруженных сверкой",
	}, []string{"type"})

	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "su_reconcile_duration_seconds",
		Help:    "Длительность выполнения сверки в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})
)

// ReconcileIssue — одна обнаруженная проблема.
type ReconcileIssue struct {
	// Type — InconsistencyOrphanedBlob или InconsistencyMissingBlob
	Type       string
	StorageKey string
	// FileID — только для missing_blob
	FileID string
}

// ReconcileResult — результат одного цикла сверки.
type ReconcileResult struct {
	StartedAt    time.Time
	CompletedAt  time.Time
	BlobsChecked int
	FilesChecked int
	Issues       []ReconcileIssue
}

// ReconcileService — сервис фоновой сверки хранилищ.
type ReconcileService struct {
	repo     repository.FileRepository
	blobs    blob.Lister
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
	cancel    context.CancelFunc
}

// NewReconcileService создаёт сервис сверки.
// grace — минимальный возраст объекта без записи: более свежие объекты
// могут принадлежать загрузке, запись которой ещё не создана.
func NewReconcileService(
	repo repository.FileRepository,
	blobs blob.Lister,
	interval, grace time.Duration,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		repo:     repo,
		blobs:    blobs,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "reconcile")),
	}
}

// Start запускает фоновую горутину сверки с периодическим тикером.
// Нулевой интервал отключает фоновый запуск.
func (rs *ReconcileService) Start(ctx context.Context) {
	if rs.interval <= 0 {
		rs.logger.Info("Сверка отключена")
		return
	}

	rsCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel

	go rs.run(rsCtx)

	rs.logger.Info("Сверка запущена",
		slog.String("interval", rs.interval.String()),
		slog.String("grace", rs.grace.String()),
	)
}

// Stop останавливает фоновую сверку.
func (rs *ReconcileService) Stop() {
	if rs.cancel != nil {
		rs.cancel()
		rs.logger.Info("Сверка остановлена")
	}
}

// IsInProgress возвращает true, если сверка выполняется.
func (rs *ReconcileService) IsInProgress() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.inProcess
}

func (rs *ReconcileService) run(ctx context.Context) {
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл сверки.
// Если сверка уже выполняется, возвращает nil, true.
// При ошибке чтения хранилищ возвращает nil, false (ошибка в логе).
func (rs *ReconcileService) RunOnce(ctx context.Context) (*ReconcileResult, bool) {
	rs.mu.Lock()
	if rs.inProcess {
		rs.mu.Unlock()
		rs.logger.Warn("Сверка уже выполняется, пропуск")
		return nil, true
	}
	rs.inProcess = true
	rs.mu.Unlock()

	defer func() {
		rs.mu.Lock()
		rs.inProcess = false
		rs.mu.Unlock()
	}()

	startedAt := rs.now().UTC()
	rs.logger.Debug("Сверка начата")

	// Сначала ключи записей, затем объекты: blob пишется раньше записи,
	// поэтому загрузка, завершившаяся между чтениями, не даёт ложного
	// missing_blob, а её свежий объект отсекается grace-периодом
	keys, err := rs.repo.StorageKeys(ctx)
	if err != nil {
		rs.logger.Error("Ошибка получения ключей записей",
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	objects, err := rs.blobs.List(ctx)
	if err != nil {
		rs.logger.Error("Ошибка получения списка объектов",
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	issues := rs.confirmMissing(ctx, rs.compare(objects, keys, startedAt))

	completedAt := rs.now().UTC()
	duration := completedAt.Sub(startedAt)

	reconcileRunsTotal.Inc()
	reconcileDurationSeconds.Observe(duration.Seconds())
	for _, issue := range issues {
		reconcileIssuesTotal.WithLabelValues(issue.Type).Inc()
		rs.logger.Warn("Обнаружена несогласованность хранилищ",
			slog.String("type", issue.Type),
			slog.String("storage_key", issue.StorageKey),
			slog.String("file_id", issue.FileID),
		)
	}

	rs.logger.Info("Сверка завершена",
		slog.Int("blobs_checked", len(objects)),
		slog.Int("files_checked", len(keys)),
		slog.Int("issues", len(issues)),
		slog.Duration("duration", duration),
	)

	return &ReconcileResult{
		StartedAt:    startedAt,
		CompletedAt:  completedAt,
		BlobsChecked: len(objects),
		FilesChecked: len(keys),
		Issues:       issues,
	}, false
}

// confirmMissing перечитывает записи с missing_blob: удаление, прошедшее
// между чтением ключей и листингом, убирает blob раньше записи.
// Исчезнувшие записи не считаются проблемой.
func (rs *ReconcileService) confirmMissing(ctx context.Context, issues []ReconcileIssue) []ReconcileIssue {
	confirmed := issues[:0]
	for _, issue := range issues {
		if issue.Type == InconsistencyMissingBlob {
			_, err := rs.repo.GetByID(ctx, issue.FileID)
			if errors.Is(err, repository.ErrNotFound) {
				rs.logger.Debug("Запись удалена во время сверки",
					slog.String("file_id", issue.FileID),
					slog.String("storage_key", issue.StorageKey),
				)
				continue
			}
			if err != nil {
				rs.logger.Warn("Не удалось перечитать запись",
					slog.String("file_id", issue.FileID),
					slog.String("error", err.Error()),
				)
			}
		}
		confirmed = append(confirmed, issue)
	}
	return confirmed
}

// compare сравнивает объекты с ключами записей (key → file_id).
func (rs *ReconcileService) compare(objects []blob.Object, keys map[string]string, now time.Time) []ReconcileIssue {
	var issues []ReconcileIssue

	present := make(map[string]bool, len(objects))
	for _, obj := range objects {
		present[obj.Key] = true
		if _, ok := keys[obj.Key]; ok {
			continue
		}
		if now.Sub(obj.ModTime) < rs.grace {
			continue
		}
		issues = append(issues, ReconcileIssue{
			Type:       InconsistencyOrphanedBlob,
			StorageKey: obj.Key,
		})
	}

	for key, fileID := range keys {
		if !present[key] {
			issues = append(issues, ReconcileIssue{
				Type:       InconsistencyMissingBlob,
				StorageKey: key,
				FileID:     fileID,
			})
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Type != issues[j].Type {
			return issues[i].Type < issues[j].Type
		}
		return issues[i].StorageKey < issues[j].StorageKey
	})
	return issues
}
