// Пакет service — бизнес-логика secure-uploader.
// files.go — менеджер жизненного цикла файлов: загрузка, листинг,
// переименование, смена видимости, скачивание и удаление.
//
// Каждая операция: загрузка записи → проверка доступа (access) →
// изменение blob-хранилища → изменение метаданных.
package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/frozn333/secure-uploader/internal/domain/access"
	"github.com/frozn333/secure-uploader/internal/domain/model"
	"github.com/frozn333/secure-uploader/internal/repository"
	"github.com/frozn333/secure-uploader/internal/storage/blob"
)

const (
	// sniffLen — сколько байт заголовка файла читаем для определения типа
	sniffLen = 3072
	// cleanupTimeout — время на удаление blob-а после неудачной загрузки
	cleanupTimeout = 30 * time.Second
	// defaultMimeType — тип по умолчанию, если определить не удалось
	defaultMimeType = "application/octet-stream"
)

// Options — параметры FileService.
type Options struct {
	// MaxUploadSize — максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// PresignTTL — срок действия ссылок на скачивание
	PresignTTL time.Duration
	// PresignCache — кэш ссылок (nil — без кэша)
	PresignCache *PresignCache
}

// FileService — менеджер жизненного цикла файлов.
// Хранилища передаются при создании; собственных блокировок нет,
// атомарность обеспечивают условные записи хранилища метаданных.
type FileService struct {
	repo          repository.FileRepository
	blobs         blob.Store
	presignCache  *PresignCache
	maxUploadSize int64
	presignTTL    time.Duration
	now           func() time.Time
	newID         func() string
	logger        *slog.Logger
}

// NewFileService создаёт менеджер жизненного цикла файлов.
func NewFileService(
	repo repository.FileRepository,
	blobs blob.Store,
	opts Options,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		repo:          repo,
		blobs:         blobs,
		presignCache:  opts.PresignCache,
		maxUploadSize: opts.MaxUploadSize,
		presignTTL:    opts.PresignTTL,
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
		logger:        logger.With(slog.String("component", "file_service")),
	}
}

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// RequesterID — пользователь из проверенного токена
	RequesterID string
	// Reader — поток данных файла
	Reader io.Reader
	// OriginalName — имя файла от клиента
	OriginalName string
	// ContentType — MIME-тип от клиента (может быть пустым)
	ContentType string
	// IsPublic — видимость файла
	IsPublic bool
}

// Upload сохраняет файл: сначала blob, затем запись метаданных.
//
// Поток:
//  1. Валидация пользователя и имени
//  2. Чтение заголовка файла (пустой поток — ошибка), определение MIME-типа
//  3. Put в blob-хранилище с ограничением размера и SHA-256
//  4. Создание записи
//
// Если запись не сохранилась, blob удаляется (best effort). Неудачное
// удаление — несогласованность orphaned_blob: лог ERROR и метрика.
func (s *FileService) Upload(ctx context.Context, params UploadParams) (_ *model.FileRecord, err error) {
	defer func() { observe("upload", err) }()

	if params.RequesterID == "" {
		return nil, invalidf("не указан пользователь")
	}
	if params.Reader == nil {
		return nil, invalidf("отсутствуют данные файла")
	}

	name, err := model.NormalizeDisplayName(baseName(params.OriginalName))
	if err != nil {
		return nil, invalidf("%s", err.Error())
	}

	src := &sourceReader{r: params.Reader}
	br := bufio.NewReaderSize(src, sniffLen)
	head, peekErr := br.Peek(sniffLen)
	if len(head) == 0 {
		if peekErr == nil || errors.Is(peekErr, io.EOF) {
			return nil, invalidf("пустой файл")
		}
		return nil, invalidf("ошибка чтения данных файла: %v", peekErr)
	}

	mimeType := detectMimeType(params.ContentType, head)

	fileID := s.newID()
	now := s.now().UTC()
	storageKey := generateStorageKey(params.RequesterID, name, fileID, now)

	limited := blob.NewLimitedReader(br, s.maxUploadSize)
	res, err := s.blobs.Put(ctx, storageKey, limited)
	if err != nil {
		switch {
		case limited.Exceeded() || errors.Is(err, blob.ErrTooLarge):
			return nil, fmt.Errorf("%w (максимум %d байт)", ErrTooLarge, s.maxUploadSize)
		case src.err != nil:
			return nil, invalidf("ошибка чтения данных файла: %v", src.err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		s.logger.Error("Ошибка записи blob",
			slog.String("file_id", fileID),
			slog.String("storage_key", storageKey),
			slog.String("error", err.Error()),
		)
		return nil, storageErr("запись blob", err)
	}

	record := &model.FileRecord{
		ID:          fileID,
		OwnerID:     params.RequesterID,
		DisplayName: name,
		StorageKey:  storageKey,
		MimeType:    mimeType,
		Size:        res.Size,
		Checksum:    res.Checksum,
		IsPublic:    params.IsPublic,
		UploadedAt:  now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("Ошибка сохранения метаданных, удаляем blob",
			slog.String("file_id", fileID),
			slog.String("storage_key", storageKey),
			slog.String("error", err.Error()),
		)
		s.discardBlob(ctx, fileID, storageKey)
		return nil, storageErr("сохранение метаданных", err)
	}

	uploadBytesTotal.Add(float64(res.Size))
	s.logger.Info("Файл загружен",
		slog.String("file_id", fileID),
		slog.String("owner_id", record.OwnerID),
		slog.String("mime_type", mimeType),
		slog.Int64("size", res.Size),
		slog.Bool("is_public", record.IsPublic),
	)
	return record, nil
}

// discardBlob удаляет blob загрузки, для которой не удалось сохранить запись.
// Выполняется даже при отменённом запросе.
func (s *FileService) discardBlob(ctx context.Context, fileID, storageKey string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.blobs.Delete(cleanupCtx, storageKey); err != nil {
		inconsistenciesTotal.WithLabelValues(InconsistencyOrphanedBlob).Inc()
		s.logger.Error("Несогласованность: blob без записи метаданных",
			slog.String("type", InconsistencyOrphanedBlob),
			slog.String("file_id", fileID),
			slog.String("storage_key", storageKey),
			slog.String("error", err.Error()),
		)
	}
}

// List возвращает файлы, видимые пользователю, от новых к старым.
// Фильтр только сужает видимое множество.
func (s *FileService) List(ctx context.Context, requesterID string, filter Filter) (_ []model.FileView, err error) {
	defer func() { observe("list", err) }()

	if requesterID == "" {
		return nil, invalidf("не указан пользователь")
	}
	if !filter.valid() {
		return nil, invalidf("неизвестный фильтр %q", filter)
	}

	files, err := s.repo.ListVisible(ctx, requesterID)
	if err != nil {
		s.logger.Error("Ошибка получения списка файлов",
			slog.String("requester_id", requesterID),
			slog.String("error", err.Error()),
		)
		return nil, storageErr("список файлов", err)
	}

	visible := access.FilterVisible(requesterID, files)
	views := make([]model.FileView, 0, len(visible))
	for _, f := range visible {
		if filter.match(requesterID, f) {
			views = append(views, model.ViewFor(requesterID, f))
		}
	}
	return views, nil
}

// Get возвращает метаданные файла, видимого пользователю.
func (s *FileService) Get(ctx context.Context, requesterID, fileID string) (_ model.FileView, err error) {
	defer func() { observe("get", err) }()

	f, err := s.load(ctx, requesterID, fileID, access.OpGet)
	if err != nil {
		return model.FileView{}, err
	}
	return model.ViewFor(requesterID, f), nil
}

// Rename меняет отображаемое имя файла. Только владелец.
// Проверки по порядку: NotFound → Forbidden → InvalidInput.
func (s *FileService) Rename(ctx context.Context, requesterID, fileID, newName string) (_ *model.FileRecord, err error) {
	defer func() { observe("rename", err) }()

	f, err := s.load(ctx, requesterID, fileID, access.OpRename)
	if err != nil {
		return nil, err
	}

	name, err := model.NormalizeDisplayName(newName)
	if err != nil {
		return nil, invalidf("%s", err.Error())
	}

	updated, err := s.repo.UpdateDisplayName(ctx, f.ID, requesterID, name)
	if err != nil {
		return nil, s.mutationErr("переименование", f.ID, err)
	}

	s.logger.Info("Файл переименован",
		slog.String("file_id", f.ID),
		slog.String("old_name", f.DisplayName),
		slog.String("new_name", updated.DisplayName),
	)
	return updated, nil
}

// SetVisibility меняет видимость файла. Только владелец.
// Повторная установка того же значения не пишет в хранилище.
func (s *FileService) SetVisibility(ctx context.Context, requesterID, fileID string, isPublic bool) (_ *model.FileRecord, err error) {
	defer func() { observe("set_visibility", err) }()

	f, err := s.load(ctx, requesterID, fileID, access.OpToggleVisibility)
	if err != nil {
		return nil, err
	}
	if f.IsPublic == isPublic {
		return f, nil
	}

	updated, err := s.repo.UpdateVisibility(ctx, f.ID, requesterID, isPublic)
	if err != nil {
		return nil, s.mutationErr("смена видимости", f.ID, err)
	}

	s.logger.Info("Видимость файла изменена",
		slog.String("file_id", f.ID),
		slog.Bool("is_public", updated.IsPublic),
	)
	return updated, nil
}

// Download — открытый поток скачивания.
type Download struct {
	// File — метаданные на момент открытия (текущее имя и тип)
	File *model.FileRecord
	// Body — содержимое. Вызывающий обязан закрыть.
	Body io.ReadCloser
}

// Download открывает содержимое файла, видимого пользователю.
// Отмена контекста прерывает чтение, не затрагивая blob и запись.
func (s *FileService) Download(ctx context.Context, requesterID, fileID string) (_ *Download, err error) {
	defer func() { observe("download", err) }()

	f, err := s.load(ctx, requesterID, fileID, access.OpDownload)
	if err != nil {
		return nil, err
	}

	rc, err := s.blobs.Get(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			inconsistenciesTotal.WithLabelValues(InconsistencyMissingBlob).Inc()
			s.logger.Error("Несогласованность: запись без blob",
				slog.String("type", InconsistencyMissingBlob),
				slog.String("file_id", f.ID),
				slog.String("storage_key", f.StorageKey),
			)
		} else {
			s.logger.Error("Ошибка чтения blob",
				slog.String("file_id", f.ID),
				slog.String("storage_key", f.StorageKey),
				slog.String("error", err.Error()),
			)
		}
		return nil, storageErr("чтение blob", err)
	}

	activeDownloads.Inc()
	return &Download{File: f, Body: &downloadBody{rc: rc}}, nil
}

// PresignDownload выдаёт ограниченную по времени ссылку на скачивание.
// ErrPresignUnsupported, если blob-хранилище не умеет выдавать ссылки.
func (s *FileService) PresignDownload(ctx context.Context, requesterID, fileID string) (_ string, err error) {
	presigner, ok := s.blobs.(blob.Presigner)
	if !ok {
		return "", ErrPresignUnsupported
	}
	defer func() { observe("presign", err) }()

	f, err := s.load(ctx, requesterID, fileID, access.OpDownload)
	if err != nil {
		return "", err
	}

	if s.presignCache != nil {
		if url, ok := s.presignCache.Get(f); ok {
			return url, nil
		}
	}

	url, err := presigner.PresignGet(ctx, f.StorageKey, blob.PresignOptions{
		Filename:    f.DisplayName,
		ContentType: f.MimeType,
		TTL:         s.presignTTL,
	})
	if err != nil {
		s.logger.Error("Ошибка создания ссылки на скачивание",
			slog.String("file_id", f.ID),
			slog.String("error", err.Error()),
		)
		return "", storageErr("ссылка на скачивание", err)
	}

	if s.presignCache != nil {
		s.presignCache.Set(f, url)
	}
	return url, nil
}

// Delete удаляет файл: сначала blob, затем запись. Только владелец.
//
// Ошибка удаления blob прерывает операцию, запись остаётся.
// Ошибка удаления записи после удалённого blob-а — несогласованность
// dangling_record: лог ERROR и метрика.
func (s *FileService) Delete(ctx context.Context, requesterID, fileID string) (err error) {
	defer func() { observe("delete", err) }()

	f, err := s.load(ctx, requesterID, fileID, access.OpDelete)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, f.StorageKey); err != nil {
		s.logger.Error("Ошибка удаления blob, запись сохранена",
			slog.String("file_id", f.ID),
			slog.String("storage_key", f.StorageKey),
			slog.String("error", err.Error()),
		)
		return storageErr("удаление blob", err)
	}

	// blob уже удалён: запись удаляем независимо от отмены запроса
	if err := s.repo.Delete(context.WithoutCancel(ctx), f.ID, requesterID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Параллельное удаление той же записи
			return fmt.Errorf("%w: %s", ErrNotFound, f.ID)
		}
		inconsistenciesTotal.WithLabelValues(InconsistencyDanglingRecord).Inc()
		s.logger.Error("Несогласованность: запись без blob после удаления",
			slog.String("type", InconsistencyDanglingRecord),
			slog.String("file_id", f.ID),
			slog.String("storage_key", f.StorageKey),
			slog.String("error", err.Error()),
		)
		return storageErr("удаление записи", err)
	}

	s.logger.Info("Файл удалён",
		slog.String("file_id", f.ID),
		slog.String("owner_id", f.OwnerID),
	)
	return nil
}

// load читает запись и проверяет доступ. Некорректный ID — NotFound.
func (s *FileService) load(ctx context.Context, requesterID, fileID string, op access.Operation) (*model.FileRecord, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}

	f, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		s.logger.Error("Ошибка чтения метаданных",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, storageErr("чтение метаданных", err)
	}

	if err := access.Check(requesterID, f, op); err != nil {
		s.logger.Debug("Доступ запрещён",
			slog.String("file_id", fileID),
			slog.String("requester_id", requesterID),
			slog.String("operation", string(op)),
		)
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return f, nil
}

// mutationErr переводит ошибку условной записи. ErrNotFound означает,
// что запись удалили между чтением и записью.
func (s *FileService) mutationErr(op, fileID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	s.logger.Error("Ошибка изменения метаданных",
		slog.String("operation", op),
		slog.String("file_id", fileID),
		slog.String("error", err.Error()),
	)
	return storageErr(op, err)
}

// baseName отбрасывает путь, который некоторые клиенты передают в имени файла.
func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// detectMimeType использует тип клиента, если он конкретный,
// иначе определяет тип по содержимому.
func detectMimeType(declared string, head []byte) string {
	if mediaType, params, err := mime.ParseMediaType(declared); err == nil && mediaType != defaultMimeType {
		if formatted := mime.FormatMediaType(mediaType, params); formatted != "" {
			return formatted
		}
	}
	return mimetype.Detect(head).String()
}

// sourceReader запоминает ошибку исходного потока, чтобы отличить
// обрыв загрузки клиентом от сбоя хранилища.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}

// downloadBody считает отданные байты и активные скачивания.
type downloadBody struct {
	rc     io.ReadCloser
	closed sync.Once
}

func (d *downloadBody) Read(p []byte) (int, error) {
	n, err := d.rc.Read(p)
	if n > 0 {
		downloadBytesTotal.Add(float64(n))
	}
	return n, err
}

func (d *downloadBody) Close() error {
	d.closed.Do(activeDownloads.Dec)
	return d.rc.Close()
}
