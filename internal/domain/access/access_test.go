package access

import (
	"errors"
	"testing"

	"github.com/frozn333/secure-uploader/internal/domain/model"
)

var allOps = []Operation{OpList, OpGet, OpDownload, OpRename, OpDelete, OpToggleVisibility}

func TestDecide_Matrix(t *testing.T) {
	requesters := []string{"alice", "bob"}
	for _, isPublic := range []bool{false, true} {
		f := &model.FileRecord{ID: "f1", OwnerID: "alice", IsPublic: isPublic}
		for _, r := range requesters {
			owner := r == f.OwnerID
			for _, op := range allOps {
				var want bool
				switch op {
				case OpList, OpGet, OpDownload:
					want = owner || isPublic
				default:
					want = owner
				}
				got := Decide(r, f, op) == Allowed
				if got != want {
					t.Errorf("Decide(%s, public=%v, %s) = %v, ожидалось %v",
						r, isPublic, op, got, want)
				}
			}
		}
	}
}

func TestDecide_DeleteEqualsRename(t *testing.T) {
	for _, isPublic := range []bool{false, true} {
		f := &model.FileRecord{ID: "f1", OwnerID: "alice", IsPublic: isPublic}
		for _, r := range []string{"alice", "bob", ""} {
			del := Decide(r, f, OpDelete)
			ren := Decide(r, f, OpRename)
			if del != ren {
				t.Errorf("requester=%q public=%v: delete=%s, rename=%s", r, isPublic, del, ren)
			}
		}
	}
}

func TestDecide_EdgeCases(t *testing.T) {
	f := &model.FileRecord{ID: "f1", OwnerID: "alice", IsPublic: true}

	if Decide("", f, OpDownload) != Denied {
		t.Error("пустой requester должен получать отказ даже для публичного файла")
	}
	if Decide("alice", nil, OpGet) != Denied {
		t.Error("nil-запись должна давать отказ")
	}
	if Decide("alice", f, Operation("chmod")) != Denied {
		t.Error("неизвестная операция должна давать отказ")
	}
}

func TestDecide_ReadsCurrentVisibility(t *testing.T) {
	f := &model.FileRecord{ID: "f1", OwnerID: "alice", IsPublic: true}
	if Decide("bob", f, OpDownload) != Allowed {
		t.Fatal("публичный файл должен быть доступен")
	}
	f.IsPublic = false
	if Decide("bob", f, OpDownload) != Denied {
		t.Error("после скрытия файла доступ должен пропасть")
	}
}

func TestCheck(t *testing.T) {
	f := &model.FileRecord{ID: "f1", OwnerID: "alice"}

	if err := Check("alice", f, OpDelete); err != nil {
		t.Errorf("владелец: ожидался nil, получено %v", err)
	}

	err := Check("bob", f, OpDelete)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("ожидался ErrDenied, получено %v", err)
	}
	var de *DeniedError
	if !errors.As(err, &de) {
		t.Fatalf("ожидался *DeniedError, получено %T", err)
	}
	if de.Op != OpDelete || de.FileID != "f1" {
		t.Errorf("DeniedError = %+v", de)
	}
}

func TestFilterVisible(t *testing.T) {
	files := []*model.FileRecord{
		{ID: "1", OwnerID: "alice"},
		{ID: "2", OwnerID: "bob"},
		{ID: "3", OwnerID: "bob", IsPublic: true},
		{ID: "4", OwnerID: "alice", IsPublic: true},
	}

	got := FilterVisible("alice", files)
	want := []string{"1", "3", "4"}
	if len(got) != len(want) {
		t.Fatalf("получено %d записей, ожидалось %d", len(got), len(want))
	}
	for i, f := range got {
		if f.ID != want[i] {
			t.Errorf("позиция %d: %s, ожидалось %s", i, f.ID, want[i])
		}
	}
	if len(files) != 4 || files[1].ID != "2" {
		t.Error("исходный срез не должен меняться")
	}
}
