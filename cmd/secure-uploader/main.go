// Точка входа secure-uploader — сервис загрузки и раздачи файлов
// с проверкой владельца и видимости.
// Загружает конфигурацию, открывает хранилище метаданных (PostgreSQL,
// badger или память) и blob-хранилище (диск, S3 или память), создаёт
// сервисный слой и API handlers, запускает фоновые задачи (сверка,
// topologymetrics) и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/frozn333/secure-uploader/internal/api/generated"
	"github.com/frozn333/secure-uploader/internal/api/handlers"
	"github.com/frozn333/secure-uploader/internal/api/middleware"
	"github.com/frozn333/secure-uploader/internal/config"
	"github.com/frozn333/secure-uploader/internal/database"
	"github.com/frozn333/secure-uploader/internal/repository"
	"github.com/frozn333/secure-uploader/internal/repository/kv"
	repomem "github.com/frozn333/secure-uploader/internal/repository/memory"
	"github.com/frozn333/secure-uploader/internal/server"
	"github.com/frozn333/secure-uploader/internal/service"
	"github.com/frozn333/secure-uploader/internal/storage/blob"
	blobmem "github.com/frozn333/secure-uploader/internal/storage/blob/memory"
	"github.com/frozn333/secure-uploader/internal/storage/filestore"
	"github.com/frozn333/secure-uploader/internal/storage/s3store"
)

// serviceID — имя сервиса в topologymetrics.
const serviceID = "secure-uploader"

func main() {
	// 1. Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("secure-uploader запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("metadata_backend", cfg.MetadataBackend),
		slog.String("blob_backend", cfg.BlobBackend),
		slog.String("auth_mode", cfg.AuthMode),
	)

	ctx := context.Background()

	// 3. Хранилище метаданных
	meta, err := openMetadata(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка открытия хранилища метаданных", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer meta.close()

	// 4. Blob-хранилище
	blobs, err := openBlobs(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка открытия blob-хранилища", slog.String("error", err.Error()))
		meta.close()
		os.Exit(1)
	}

	// 5. Сервисный слой
	var presignCache *service.PresignCache
	if _, ok := blobs.(blob.Presigner); ok && cfg.PresignCacheSize > 0 {
		presignCache = service.NewPresignCache(cfg.PresignCacheSize, cfg.PresignTTL)
	}
	fileSvc := service.NewFileService(meta.repo, blobs, service.Options{
		MaxUploadSize: cfg.MaxUploadSize,
		PresignTTL:    cfg.PresignTTL,
		PresignCache:  presignCache,
	}, logger)

	// 6. Сверка хранилищ (только если blob-хранилище умеет листинг)
	var reconcileSvc *service.ReconcileService
	if lister, ok := blobs.(blob.Lister); ok {
		reconcileSvc = service.NewReconcileService(meta.repo, lister,
			cfg.ReconcileInterval, cfg.OrphanGracePeriod, logger)
	} else {
		logger.Info("Blob-хранилище не поддерживает листинг, сверка отключена")
	}

	// 7. Health и API handlers
	checkers := []handlers.NamedChecker{{Name: "metadata", Checker: meta.checker}}
	if rc, ok := blobs.(handlers.ReadinessChecker); ok {
		checkers = append(checkers, handlers.NamedChecker{Name: "blob_storage", Checker: rc})
	}
	apiHandler := handlers.NewAPIHandler(
		handlers.NewFilesHandler(fileSvc, cfg.MaxUploadSize, logger),
		handlers.NewHealthHandler(checkers...),
		server.NewMetricsHandler(),
	)

	// 8. Middleware: логирование, метрики, JWT, валидация по контракту
	jwtAuth, err := newAuth(cfg, logger)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		meta.close()
		os.Exit(1)
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
		server.JWTAuthWithExclusions(jwtAuth.Middleware(), "/health/", "/metrics"),
	}
	if cfg.ValidateRequests {
		swagger, err := generated.GetSwagger()
		if err != nil {
			logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
			meta.close()
			os.Exit(1)
		}
		validator, err := middleware.OpenAPIValidator(swagger, logger)
		if err != nil {
			logger.Error("Ошибка создания валидатора запросов", slog.String("error", err.Error()))
			meta.close()
			os.Exit(1)
		}
		middlewares = append(middlewares, validator)
	}

	// 9. Запуск фоновых задач
	if reconcileSvc != nil {
		reconcileSvc.Start(ctx)
	}

	// 9.1 topologymetrics — мониторинг внешних зависимостей
	dephealthSvc := startDephealth(ctx, cfg, meta.db, logger)

	// 10. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, middlewares...)
	runErr := srv.Run()
	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
	}

	// 11. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if reconcileSvc != nil {
		reconcileSvc.Stop()
	}

	meta.close()
	if runErr != nil {
		os.Exit(1)
	}
	logger.Info("secure-uploader остановлен")
}

// metadataStore — открытое хранилище метаданных и его ресурсы.
type metadataStore struct {
	repo    repository.FileRepository
	checker handlers.ReadinessChecker
	// db — *sql.DB поверх pgxpool для topologymetrics (только postgres)
	db      *sql.DB
	closers []func()
	closed  bool
}

func (m *metadataStore) close() {
	if m.closed {
		return
	}
	m.closed = true
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
}

// openMetadata открывает хранилище метаданных по cfg.MetadataBackend.
func openMetadata(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*metadataStore, error) {
	switch cfg.MetadataBackend {
	case config.MetadataPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, fmt.Errorf("миграции: %w", err)
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}

		// Адаптер pgxpool → *sql.DB: проверка здоровья идёт через тот же пул
		db := stdlib.OpenDBFromPool(pool)

		return &metadataStore{
			repo:    repository.NewFileRepository(pool),
			checker: database.NewReadinessChecker(pool),
			db:      db,
			closers: []func(){pool.Close, func() { _ = db.Close() }},
		}, nil

	case config.MetadataBadger:
		store, err := kv.Open(cfg.BadgerDir, logger)
		if err != nil {
			return nil, err
		}
		return &metadataStore{
			repo:    store,
			checker: store,
			closers: []func(){func() {
				if err := store.Close(); err != nil {
					logger.Error("Ошибка закрытия badger", slog.String("error", err.Error()))
				}
			}},
		}, nil

	case config.MetadataMemory:
		logger.Warn("Метаданные хранятся в памяти и теряются при перезапуске")
		store := repomem.New()
		return &metadataStore{repo: store, checker: store}, nil
	}
	return nil, fmt.Errorf("неизвестный metadata_backend: %s", cfg.MetadataBackend)
}

// openBlobs открывает blob-хранилище по cfg.BlobBackend.
func openBlobs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blob.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobFilesystem:
		store, err := filestore.New(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Blob-хранилище на диске", slog.String("data_dir", store.DataDir()))
		return store, nil

	case config.BlobS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			KeyPrefix:      cfg.S3KeyPrefix,
			ForcePathStyle: cfg.S3ForcePathStyle,
		}, logger)

	case config.BlobMemory:
		logger.Warn("Содержимое файлов хранится в памяти и теряется при перезапуске")
		return blobmem.New(), nil
	}
	return nil, fmt.Errorf("неизвестный blob_backend: %s", cfg.BlobBackend)
}

// newAuth создаёт проверку токенов по cfg.AuthMode.
func newAuth(cfg *config.Config, logger *slog.Logger) (*middleware.JWTAuth, error) {
	if cfg.AuthMode == config.AuthHMAC {
		logger.Info("JWT middleware инициализирован (HS256)")
		return middleware.NewHMACAuth([]byte(cfg.JWTSecret), cfg.JWTLeeway, logger), nil
	}

	auth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:         cfg.JWKSURL,
		CACertPath:      cfg.JWKSCACert,
		TLSSkipVerify:   cfg.TLSSkipVerify,
		ClientTimeout:   cfg.JWKSClientTimeout,
		RefreshInterval: cfg.JWKSRefreshInterval,
		JWTLeeway:       cfg.JWTLeeway,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("JWT middleware инициализирован (JWKS)",
		slog.String("jwks_url", cfg.JWKSURL),
	)
	return auth, nil
}

// startDephealth запускает мониторинг зависимостей. nil — мониторинг не запущен.
func startDephealth(ctx context.Context, cfg *config.Config, db *sql.DB, logger *slog.Logger) *service.DephealthService {
	deps := service.Dependencies{
		DB:            db,
		TLSSkipVerify: cfg.TLSSkipVerify,
	}
	if db != nil {
		deps.PostgresURL = cfg.DatabaseURL()
	}
	if cfg.AuthMode == config.AuthJWKS {
		deps.JWKSURL = cfg.JWKSURL
	}
	if cfg.BlobBackend == config.BlobS3 {
		deps.S3Endpoint = cfg.S3Endpoint
	}
	if deps.Empty() {
		logger.Info("Внешних зависимостей нет, topologymetrics не запускается")
		return nil
	}

	dephealthSvc, err := service.NewDephealthService(
		serviceID,
		cfg.DephealthGroup,
		deps,
		cfg.DephealthCheckInterval,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("topologymetrics запущен",
		slog.String("group", cfg.DephealthGroup),
		slog.String("check_interval", cfg.DephealthCheckInterval.String()),
	)
	return dephealthSvc
}
