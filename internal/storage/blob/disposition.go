package blob

import (
	"mime"
	"strings"
)

// AttachmentDisposition формирует значение Content-Disposition для скачивания.
// Не-ASCII имена кодируются по RFC 2231 (filename*=utf-8''...).
func AttachmentDisposition(filename string) string {
	name := strings.Map(func(r rune) rune {
		// Управляющие символы и кавычки ломают заголовок
		if r < 0x20 || r == 0x7f || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	if name == "" {
		name = "file"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
