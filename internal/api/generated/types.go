package generated

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Defines values for FileResponseAccessLabel.
const (
	OwnerPrivate FileResponseAccessLabel = "owner_private"
	OwnerPublic  FileResponseAccessLabel = "owner_public"
	SharedPublic FileResponseAccessLabel = "shared_public"
)

// Defines values for FileResponseCategory.
const (
	FileResponseCategoryArchive     FileResponseCategory = "archive"
	FileResponseCategoryDocument    FileResponseCategory = "document"
	FileResponseCategoryImage       FileResponseCategory = "image"
	FileResponseCategoryOther       FileResponseCategory = "other"
	FileResponseCategoryPdf         FileResponseCategory = "pdf"
	FileResponseCategorySpreadsheet FileResponseCategory = "spreadsheet"
)

// Defines values for ListFilesParamsFilter.
const (
	All      ListFilesParamsFilter = "all"
	Document ListFilesParamsFilter = "document"
	Image    ListFilesParamsFilter = "image"
	Private  ListFilesParamsFilter = "private"
	Public   ListFilesParamsFilter = "public"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FileListResponse defines model for FileListResponse.
type FileListResponse struct {
	Items []FileResponse `json:"items"`
	Total int            `json:"total"`
}

// FileResponse defines model for FileResponse.
type FileResponse struct {
	AccessLabel FileResponseAccessLabel `json:"access_label"`
	Category    FileResponseCategory    `json:"category"`
	Checksum    *string                 `json:"checksum,omitempty"`
	Id          openapi_types.UUID      `json:"id"`
	IsPublic    bool                    `json:"is_public"`
	MimeType    string                  `json:"mime_type"`
	Name        string                  `json:"name"`
	OwnedByMe   bool                    `json:"owned_by_me"`
	OwnerId     string                  `json:"owner_id"`
	Size        int64                   `json:"size"`
	UpdatedAt   time.Time               `json:"updated_at"`
	UploadedAt  time.Time               `json:"uploaded_at"`
}

// FileResponseAccessLabel defines model for FileResponse.AccessLabel.
type FileResponseAccessLabel string

// FileResponseCategory defines model for FileResponse.Category.
type FileResponseCategory string

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Checks    *map[string]interface{} `json:"checks,omitempty"`
	Service   string                  `json:"service"`
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Version   string                  `json:"version"`
}

// RenameRequest defines model for RenameRequest.
type RenameRequest struct {
	Name string `json:"name"`
}

// VisibilityRequest defines model for VisibilityRequest.
type VisibilityRequest struct {
	IsPublic bool `json:"is_public"`
}

// FileId defines model for FileId.
type FileId = openapi_types.UUID

// ListFilesParams defines parameters for ListFiles.
type ListFilesParams struct {
	Filter *ListFilesParamsFilter `form:"filter,omitempty" json:"filter,omitempty"`
}

// ListFilesParamsFilter defines parameters for ListFiles.
type ListFilesParamsFilter string

// DownloadFileParams defines parameters for DownloadFile.
type DownloadFileParams struct {
	Redirect *bool `form:"redirect,omitempty" json:"redirect,omitempty"`
}

// RenameFileJSONRequestBody defines body for RenameFile for application/json ContentType.
type RenameFileJSONRequestBody = RenameRequest

// SetVisibilityJSONRequestBody defines body for SetVisibility for application/json ContentType.
type SetVisibilityJSONRequestBody = VisibilityRequest
