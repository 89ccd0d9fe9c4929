// Пакет s3store — blob-хранилище в S3-совместимом объектном хранилище
// (AWS S3, MinIO, Ceph RGW). Поддерживает листинг и presigned-ссылки.
package s3store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/frozn333/secure-uploader/internal/storage/blob"
)

// metaChecksum — ключ пользовательских метаданных объекта с SHA-256.
const metaChecksum = "sha256"

// Config — параметры подключения к S3.
type Config struct {
	Bucket string
	Region string
	// Endpoint — URL S3-совместимого сервиса; пусто — AWS
	Endpoint  string
	AccessKey string
	SecretKey string
	// KeyPrefix — префикс всех ключей в бакете
	KeyPrefix string
	// ForcePathStyle — path-style адресация; включается автоматически при Endpoint
	ForcePathStyle bool
	// MaxAttempts — число попыток для временных ошибок (0 — 5)
	MaxAttempts int
	// SpoolDir — каталог временных файлов загрузки (пусто — os.TempDir)
	SpoolDir string
}

// Store — blob.Store поверх S3.
type Store struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string
	spoolDir  string
	logger    *slog.Logger
}

// Compile-time проверки.
var (
	_ blob.Store     = (*Store)(nil)
	_ blob.Lister    = (*Store)(nil)
	_ blob.Presigner = (*Store)(nil)
)

// New создаёт S3-клиент и проверяет доступность бакета.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewWithClient(client, cfg, logger)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("бакет %s недоступен: %w", cfg.Bucket, err)
	}

	logger.Info("Подключение к S3 установлено",
		slog.String("bucket", cfg.Bucket),
		slog.String("endpoint", cfg.Endpoint),
		slog.String("prefix", cfg.KeyPrefix),
	)
	return s, nil
}

// NewClient собирает *s3.Client из конфигурации.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 5
	}

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
		awsConfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = maxAttempts
			})
		}),
	}

	// Статические ключи, иначе стандартная цепочка (env, профиль, IRSA)
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации AWS: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// NewWithClient создаёт Store с готовым клиентом (без проверки бакета).
func NewWithClient(client *s3.Client, cfg Config, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		spoolDir:  cfg.SpoolDir,
		logger:    logger.With(slog.String("component", "s3store")),
	}
}

// Put буферизует поток во временный файл (S3 требует известную длину тела),
// считая SHA-256, затем выполняет PutObject.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) (*blob.PutResult, error) {
	if key == "" {
		return nil, blob.ErrInvalidKey
	}

	spool, err := os.CreateTemp(s.spoolDir, "su-upload-*")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	hasher := sha256.New()
	size, err := io.Copy(spool, io.TeeReader(r, hasher))
	if err != nil {
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ошибка перемотки временного файла: %w", err)
	}
	checksum := hex.EncodeToString(hasher.Sum(nil))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          spool,
		ContentLength: aws.Int64(size),
		Metadata:      map[string]string{metaChecksum: checksum},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка записи объекта в S3: %w", err)
	}

	return &blob.PutResult{Size: size, Checksum: checksum}, nil
}

// Get открывает объект на чтение. Тело читается потоково из S3.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
		}
		return nil, fmt.Errorf("ошибка чтения объекта из S3: %w", err)
	}
	return out.Body, nil
}

// Delete удаляет объект. DeleteObject в S3 идемпотентен.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("ошибка удаления объекта из S3: %w", err)
	}
	return nil
}

// List перечисляет объекты под префиксом.
func (s *Store) List(ctx context.Context) ([]blob.Object, error) {
	var objects []blob.Object

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ошибка листинга объектов S3: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			o := blob.Object{Key: strings.TrimPrefix(*obj.Key, s.keyPrefix)}
			if obj.Size != nil {
				o.Size = *obj.Size
			}
			if obj.LastModified != nil {
				o.ModTime = *obj.LastModified
			}
			objects = append(objects, o)
		}
	}

	return objects, nil
}

// PresignGet возвращает ссылку на GET объекта с заданными
// Content-Disposition и Content-Type ответа.
func (s *Store) PresignGet(ctx context.Context, key string, opts blob.PresignOptions) (string, error) {
	input := &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(s.objectKey(key)),
		ResponseContentDisposition: aws.String(blob.AttachmentDisposition(opts.Filename)),
	}
	if opts.ContentType != "" {
		input.ResponseContentType = aws.String(opts.ContentType)
	}

	req, err := s.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(opts.TTL))
	if err != nil {
		return "", fmt.Errorf("ошибка подписи ссылки S3: %w", err)
	}
	return req.URL, nil
}

// CheckReady проверяет доступность бакета через HeadBucket.
func (s *Store) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return "fail", fmt.Sprintf("S3 бакет %s недоступен: %v", s.bucket, err)
	}
	return "ok", "бакет доступен"
}

func (s *Store) objectKey(key string) string {
	return s.keyPrefix + key
}

// isNotFound — объект отсутствует (NoSuchKey или NotFound).
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
