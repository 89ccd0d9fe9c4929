// handler.go — APIHandler реализует generated.ServerInterface,
// делегируя вызовы в отдельные handler'ы по доменам.
package handlers

import (
	"net/http"

	"github.com/frozn333/secure-uploader/internal/api/generated"
	"github.com/frozn333/secure-uploader/internal/server"
)

// APIHandler — единая реализация ServerInterface, собирающая
// все доменные handlers в один объект.
type APIHandler struct {
	files   *FilesHandler
	health  *HealthHandler
	metrics *server.MetricsHandler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(files *FilesHandler, health *HealthHandler, metrics *server.MetricsHandler) *APIHandler {
	return &APIHandler{
		files:   files,
		health:  health,
		metrics: metrics,
	}
}

// --- File Operations ---

func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request, params generated.ListFilesParams) {
	h.files.ListFiles(w, r, params)
}

func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	h.files.UploadFile(w, r)
}

func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	h.files.GetFile(w, r, fileId)
}

func (h *APIHandler) RenameFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	h.files.RenameFile(w, r, fileId)
}

func (h *APIHandler) SetVisibility(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	h.files.SetVisibility(w, r, fileId)
}

func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId, params generated.DownloadFileParams) {
	h.files.DownloadFile(w, r, fileId, params)
}

func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	h.files.DeleteFile(w, r, fileId)
}

// --- Health ---

func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// --- Metrics ---

func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.GetMetrics(w, r)
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ generated.ServerInterface = (*APIHandler)(nil)
