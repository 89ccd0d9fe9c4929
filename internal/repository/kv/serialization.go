package kv

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/frozn333/secure-uploader/internal/domain/model"
)

// fileEntry — формат хранения FileRecord в badger.
// Отделён от доменной модели, чтобы переименование полей модели не ломало данные.
type fileEntry struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	DisplayName string    `json:"display_name"`
	StorageKey  string    `json:"storage_key"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum,omitempty"`
	IsPublic    bool      `json:"is_public"`
	UploadedAt  time.Time `json:"uploaded_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func encodeFile(f *model.FileRecord) ([]byte, error) {
	data, err := json.Marshal(fileEntry{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		DisplayName: f.DisplayName,
		StorageKey:  f.StorageKey,
		MimeType:    f.MimeType,
		Size:        f.Size,
		Checksum:    f.Checksum,
		IsPublic:    f.IsPublic,
		UploadedAt:  f.UploadedAt,
		UpdatedAt:   f.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации файла: %w", err)
	}
	return data, nil
}

func decodeFile(data []byte) (*model.FileRecord, error) {
	var e fileEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("ошибка десериализации файла: %w", err)
	}
	return &model.FileRecord{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		DisplayName: e.DisplayName,
		StorageKey:  e.StorageKey,
		MimeType:    e.MimeType,
		Size:        e.Size,
		Checksum:    e.Checksum,
		IsPublic:    e.IsPublic,
		UploadedAt:  e.UploadedAt,
		UpdatedAt:   e.UpdatedAt,
	}, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
