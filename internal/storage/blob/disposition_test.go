package blob

import (
	"mime"
	"testing"
)

func TestAttachmentDisposition(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"ascii", "report.pdf", "report.pdf"},
		{"пробелы", "Report Final.pdf", "Report Final.pdf"},
		{"кириллица", "Отчёт.docx", "Отчёт.docx"},
		{"кавычки", `a"b.txt`, "a_b.txt"},
		{"перевод строки", "a\nb.txt", "a_b.txt"},
		{"пустое", "", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := AttachmentDisposition(tt.filename)
			disp, params, err := mime.ParseMediaType(v)
			if err != nil {
				t.Fatalf("значение %q не разбирается: %v", v, err)
			}
			if disp != "attachment" {
				t.Errorf("тип = %q, ожидался attachment", disp)
			}
			if params["filename"] != tt.want {
				t.Errorf("filename = %q, ожидалось %q (заголовок %q)", params["filename"], tt.want, v)
			}
		})
	}
}
