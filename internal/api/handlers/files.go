// files.go — обработчики файловых endpoints: загрузка, список,
// метаданные, переименование, видимость, скачивание, удаление.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/frozn333/secure-uploader/internal/api/errors"
	"github.com/frozn333/secure-uploader/internal/api/generated"
	"github.com/frozn333/secure-uploader/internal/api/middleware"
	"github.com/frozn333/secure-uploader/internal/domain/model"
	"github.com/frozn333/secure-uploader/internal/service"
	"github.com/frozn333/secure-uploader/internal/storage/blob"
)

const (
	// multipartMemory — часть multipart-формы, которая держится в памяти;
	// остальное net/http сбрасывает во временные файлы
	multipartMemory = 32 << 20
	// multipartOverhead — запас на заголовки частей и поля формы
	multipartOverhead = 1 << 20
	// maxJSONBody — предел тела JSON-запросов
	maxJSONBody = 64 << 10
)

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	files         *service.FileService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(files *service.FileService, maxUploadSize int64, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		files:         files,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "files_handler")),
	}
}

// UploadFile обрабатывает POST /api/v1/files.
// Multipart form: file (обязательно), is_public (опционально, bool).
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Размер файла превышает %d байт", h.maxUploadSize))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	isPublic := false
	if raw := r.FormValue("is_public"); raw != "" {
		isPublic, err = strconv.ParseBool(raw)
		if err != nil {
			apierrors.ValidationError(w, "Поле 'is_public' должно быть true или false")
			return
		}
	}

	rec, err := h.files.Upload(r.Context(), service.UploadParams{
		RequesterID:  subject,
		Reader:       file,
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		IsPublic:     isPublic,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(model.ViewFor(subject, rec)))
}

// ListFiles обрабатывает GET /api/v1/files.
// Возвращает видимые пользователю файлы, новые первыми.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request, params generated.ListFilesParams) {
	subject := middleware.SubjectFromContext(r.Context())

	var raw string
	if params.Filter != nil {
		raw = string(*params.Filter)
	}
	filter, err := service.ParseFilter(raw)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views, err := h.files.List(r.Context(), subject, filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]generated.FileResponse, 0, len(views))
	for _, v := range views {
		items = append(items, toFileResponse(v))
	}

	writeJSON(w, http.StatusOK, generated.FileListResponse{
		Items: items,
		Total: len(items),
	})
}

// GetFile обрабатывает GET /api/v1/files/{file_id}.
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	view, err := h.files.Get(r.Context(), middleware.SubjectFromContext(r.Context()), fileId.String())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(view))
}

// RenameFile обрабатывает PATCH /api/v1/files/{file_id}. Только владелец.
func (h *FilesHandler) RenameFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	subject := middleware.SubjectFromContext(r.Context())

	var req generated.RenameFileJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.files.Rename(r.Context(), subject, fileId.String(), req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(model.ViewFor(subject, rec)))
}

// SetVisibility обрабатывает PUT /api/v1/files/{file_id}/visibility. Только владелец.
func (h *FilesHandler) SetVisibility(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	subject := middleware.SubjectFromContext(r.Context())

	var req generated.SetVisibilityJSONRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.files.SetVisibility(r.Context(), subject, fileId.String(), req.IsPublic)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(model.ViewFor(subject, rec)))
}

// DownloadFile обрабатывает GET /api/v1/files/{file_id}/download.
// redirect=true — 307 на временную ссылку, если хранилище их выдаёт;
// иначе содержимое отдаётся потоком под текущим именем файла.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId, params generated.DownloadFileParams) {
	subject := middleware.SubjectFromContext(r.Context())

	if params.Redirect != nil && *params.Redirect {
		url, err := h.files.PresignDownload(r.Context(), subject, fileId.String())
		switch {
		case err == nil:
			http.Redirect(w, r, url, http.StatusTemporaryRedirect)
			return
		case !errors.Is(err, service.ErrPresignUnsupported):
			h.writeServiceError(w, err)
			return
		}
	}

	dl, err := h.files.Download(r.Context(), subject, fileId.String())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.File.MimeType)
	w.Header().Set("Content-Disposition", blob.AttachmentDisposition(dl.File.DisplayName))
	w.Header().Set("Content-Length", strconv.FormatInt(dl.File.Size, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	// Заголовки уже отправлены: обрыв потока виден клиенту по Content-Length
	if _, err := io.Copy(w, dl.Body); err != nil {
		h.logger.Warn("Скачивание прервано",
			slog.String("file_id", dl.File.ID),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteFile обрабатывает DELETE /api/v1/files/{file_id}. Только владелец.
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	if err := h.files.Delete(r.Context(), middleware.SubjectFromContext(r.Context()), fileId.String()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError переводит ошибку сервиса в стандартный ответ API.
func (h *FilesHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch service.KindOf(err) {
	case service.KindInvalidInput:
		if errors.Is(err, service.ErrTooLarge) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Размер файла превышает %d байт", h.maxUploadSize))
			return
		}
		apierrors.ValidationError(w, err.Error())
	case service.KindNotFound:
		apierrors.NotFound(w, "Файл не найден")
	case service.KindForbidden:
		apierrors.Forbidden(w, "Недостаточно прав для операции с файлом")
	case service.KindStorageFailure:
		// Подробности уже в логе сервиса
		apierrors.StorageUnavailable(w)
	default:
		h.logger.Error("Необработанная ошибка сервиса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// decodeJSON читает JSON-тело запроса. При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// toFileResponse конвертирует представление записи в ответ API.
func toFileResponse(v model.FileView) generated.FileResponse {
	resp := generated.FileResponse{
		AccessLabel: generated.FileResponseAccessLabel(v.Label),
		Category:    generated.FileResponseCategory(v.Category),
		IsPublic:    v.IsPublic,
		MimeType:    v.MimeType,
		Name:        v.DisplayName,
		OwnedByMe:   v.OwnedByMe,
		OwnerId:     v.OwnerID,
		Size:        v.Size,
		UpdatedAt:   v.UpdatedAt,
		UploadedAt:  v.UploadedAt,
	}
	// ID назначает сервис (uuid.New), ошибка разбора невозможна
	_ = resp.Id.UnmarshalText([]byte(v.ID))
	if v.Checksum != "" {
		checksum := v.Checksum
		resp.Checksum = &checksum
	}
	return resp
}
