package blob

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLimitedReader(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		max     int64
		wantErr error
		wantLen int
	}{
		{"меньше лимита", "hello", 10, nil, 5},
		{"ровно лимит", "hello", 5, nil, 5},
		{"больше лимита", "hello world", 5, ErrTooLarge, 5},
		{"пустой поток", "", 5, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLimitedReader(strings.NewReader(tt.data), tt.max)
			var buf bytes.Buffer
			_, err := io.Copy(&buf, lr)

			if !errors.Is(err, tt.wantErr) && !(err == nil && tt.wantErr == nil) {
				t.Fatalf("ошибка = %v, ожидалась %v", err, tt.wantErr)
			}
			if buf.Len() != tt.wantLen {
				t.Errorf("прочитано %d байт, ожидалось %d", buf.Len(), tt.wantLen)
			}
			if lr.Exceeded() != (tt.wantErr != nil) {
				t.Errorf("Exceeded() = %v", lr.Exceeded())
			}
		})
	}
}

// TestLimitedReader_SmallChunks проверяет лимит при чтении по одному байту.
func TestLimitedReader_SmallChunks(t *testing.T) {
	lr := NewLimitedReader(strings.NewReader("abcdef"), 3)
	p := make([]byte, 1)
	var got []byte
	for {
		n, err := lr.Read(p)
		got = append(got, p[:n]...)
		if err != nil {
			if !errors.Is(err, ErrTooLarge) {
				t.Fatalf("ожидался ErrTooLarge, получено %v", err)
			}
			break
		}
	}
	if string(got) != "abc" {
		t.Errorf("получено %q, ожидалось abc", got)
	}
	if lr.BytesRead() != 3 {
		t.Errorf("BytesRead() = %d, ожидалось 3", lr.BytesRead())
	}
}
