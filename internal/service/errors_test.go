package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"not found", fmt.Errorf("%w: abc", ErrNotFound), KindNotFound},
		{"forbidden", fmt.Errorf("%w: abc", ErrForbidden), KindForbidden},
		{"invalid", invalidf("короткое имя"), KindInvalidInput},
		{"too large", ErrTooLarge, KindInvalidInput},
		{"storage", storageErr("запись", errors.New("диск")), KindStorageFailure},
		{"unknown", errors.New("что-то"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, ожидалось %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestStorageErr_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := storageErr("чтение", cause)
	if !errors.Is(err, cause) {
		t.Error("причина не сохранена в цепочке")
	}
	if !errors.Is(err, ErrStorageFailure) {
		t.Error("ErrStorageFailure не в цепочке")
	}
}
