package service

import (
	"github.com/frozn333/secure-uploader/internal/domain/model"
)

// Filter — фильтр листинга файлов.
type Filter string

// Поддерживаемые фильтры.
const (
	FilterAll      Filter = "all"
	FilterPublic   Filter = "public"
	FilterPrivate  Filter = "private"
	FilterImage    Filter = "image"
	FilterDocument Filter = "document"
)

// ParseFilter разбирает значение параметра filter. Пустая строка — FilterAll.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	f := Filter(s)
	if !f.valid() {
		return "", invalidf("неизвестный фильтр %q", s)
	}
	return f, nil
}

func (f Filter) valid() bool {
	switch f {
	case "", FilterAll, FilterPublic, FilterPrivate, FilterImage, FilterDocument:
		return true
	}
	return false
}

// match применяется к уже видимым записям.
// private — собственные непубличные файлы; document включает pdf.
func (f Filter) match(requesterID string, rec *model.FileRecord) bool {
	switch f {
	case FilterPublic:
		return rec.IsPublic
	case FilterPrivate:
		return !rec.IsPublic && rec.OwnerID == requesterID
	case FilterImage:
		return rec.Category() == model.CategoryImage
	case FilterDocument:
		return rec.Category().IsDocumentLike()
	default:
		return true
	}
}
