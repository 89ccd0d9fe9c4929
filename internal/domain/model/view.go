package model

// AccessLabel — метка доступа записи с точки зрения конкретного пользователя.
type AccessLabel string

// Метки доступа.
const (
	// LabelOwnerPrivate — собственный приватный файл
	LabelOwnerPrivate AccessLabel = "owner_private"
	// LabelOwnerPublic — собственный файл, открытый остальным
	LabelOwnerPublic AccessLabel = "owner_public"
	// LabelSharedPublic — публичный файл другого пользователя
	LabelSharedPublic AccessLabel = "shared_public"
)

// FileView — запись файла в представлении конкретного пользователя.
type FileView struct {
	*FileRecord
	OwnedByMe bool
	Label     AccessLabel
	Category  Category
}

// ViewFor строит представление записи для requesterID.
// Вызывается только для записей, уже прошедших проверку видимости.
func ViewFor(requesterID string, f *FileRecord) FileView {
	owned := f.OwnerID == requesterID
	var label AccessLabel
	switch {
	case owned && f.IsPublic:
		label = LabelOwnerPublic
	case owned:
		label = LabelOwnerPrivate
	default:
		label = LabelSharedPublic
	}
	return FileView{
		FileRecord: f,
		OwnedByMe:  owned,
		Label:      label,
		Category:   f.Category(),
	}
}
