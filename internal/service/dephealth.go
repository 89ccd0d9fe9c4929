// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// secure-uploader мониторит (в зависимости от конфигурации):
//   - PostgreSQL — SQL checker через существующий pgxpool (critical)
//   - JWKS endpoint — HTTP checker (critical: без ключей не проходит аутентификация)
//   - S3-совместимое хранилище с явным endpoint — HTTP checker к MinIO health (critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// minioHealthPath — liveness endpoint MinIO и совместимых хранилищ.
const minioHealthPath = "/minio/health/live"

// ErrNoDependencies — в конфигурации нет внешних зависимостей для мониторинга.
var ErrNoDependencies = errors.New("нет зависимостей для мониторинга")

// Dependencies — внешние зависимости для мониторинга. Пустые поля пропускаются.
type Dependencies struct {
	// DB — *sql.DB из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PostgresURL — URL PostgreSQL (для лейблов, не для подключения)
	PostgresURL string
	// JWKSURL — URL JWKS endpoint
	JWKSURL string
	// TLSSkipVerify — не проверять сертификат JWKS endpoint
	TLSSkipVerify bool
	// S3Endpoint — явный endpoint S3-совместимого хранилища
	S3Endpoint string
}

// Empty — нечего мониторить (memory/badger + hmac + AWS S3 без endpoint).
func (d Dependencies) Empty() bool {
	return (d.DB == nil || d.PostgresURL == "") && d.JWKSURL == "" && d.S3Endpoint == ""
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// PostgreSQL проверяется через существующий *sql.DB (адаптер pgxpool):
// так видно исчерпание пула соединений.
func NewDephealthService(
	serviceID string,
	group string,
	deps Dependencies,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, deps, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	deps Dependencies,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, deps, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID string,
	group string,
	deps Dependencies,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	if deps.Empty() {
		return nil, ErrNoDependencies
	}

	opts := []dephealth.Option{dephealth.WithLogger(logger)}

	if deps.DB != nil && deps.PostgresURL != "" {
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(deps.DB)),
			dephealth.FromURL(deps.PostgresURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		))
	}

	if deps.JWKSURL != "" {
		jwksOpts := []dephealth.DependencyOption{
			dephealth.FromURL(deps.JWKSURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		}
		if parsed, err := url.Parse(deps.JWKSURL); err == nil {
			if parsed.Path != "" {
				jwksOpts = append(jwksOpts, dephealth.WithHTTPHealthPath(parsed.Path))
			}
			if parsed.Scheme == "https" {
				jwksOpts = append(jwksOpts, dephealth.WithHTTPTLSSkipVerify(deps.TLSSkipVerify))
			}
		}
		opts = append(opts, dephealth.HTTP("jwks", jwksOpts...))
	}

	if deps.S3Endpoint != "" {
		s3Opts := []dephealth.DependencyOption{
			dephealth.FromURL(deps.S3Endpoint),
			dephealth.WithHTTPHealthPath(minioHealthPath),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		}
		if parsed, err := url.Parse(deps.S3Endpoint); err == nil && parsed.Scheme == "https" {
			s3Opts = append(s3Opts, dephealth.WithHTTPTLSSkipVerify(deps.TLSSkipVerify))
		}
		opts = append(opts, dephealth.HTTP("object-storage", s3Opts...))
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
