package recycle

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"trash", ToTrash, false},
		{"TRASH", ToTrash, false},
		{"recycle-bin", ToTrash, false},
		{"SendToRecycleBin", ToTrash, false},
		{"permanent", Permanent, false},
		{"DeletePermanently", Permanent, false},
		{"shred", ToTrash, true},
		{"", ToTrash, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidMode) {
			t.Errorf("ParseMode(%q) error = %v, want ErrInvalidMode", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMode_Text(t *testing.T) {
	for _, m := range []Mode{ToTrash, Permanent} {
		text, err := m.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", m, err)
		}
		var back Mode
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if back != m {
			t.Errorf("text round trip %v -> %q -> %v", m, text, back)
		}
	}
	if _, err := Mode(9).MarshalText(); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("MarshalText(9) error = %v, want ErrInvalidMode", err)
	}
}

func TestRecycle_ToTrash(t *testing.T) {
	path := writeTemp(t, "report.pdf")
	var trashed []string
	r := New(WithTrashFunc(func(paths ...string) error {
		trashed = append(trashed, paths...)
		return nil
	}))

	if err := r.Recycle(path, ToTrash); err != nil {
		t.Fatalf("Recycle() error = %v", err)
	}
	if len(trashed) != 1 || trashed[0] != path {
		t.Errorf("trashed = %v, want [%s]", trashed, path)
	}
}

func TestRecycle_Permanent(t *testing.T) {
	path := writeTemp(t, "setup.exe")
	r := New(WithTrashFunc(func(...string) error {
		t.Error("trash should not be used in permanent mode")
		return nil
	}))

	if err := r.Recycle(path, Permanent); err != nil {
		t.Fatalf("Recycle() error = %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("file still exists after permanent delete: %v", err)
	}
}

func TestRecycle_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.pdf")
	r := New(WithTrashFunc(func(...string) error { return nil }))

	for _, mode := range []Mode{ToTrash, Permanent} {
		err := r.Recycle(path, mode)
		if !errors.Is(err, ErrFileAccess) {
			t.Errorf("Recycle(%v) error = %v, want ErrFileAccess", mode, err)
		}
		var rerr *Error
		if !errors.As(err, &rerr) {
			t.Fatalf("Recycle(%v) error type = %T, want *Error", mode, err)
		}
		if rerr.Path != path {
			t.Errorf("Error.Path = %q, want %q", rerr.Path, path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Recycle(%v) error should wrap fs.ErrNotExist: %v", mode, err)
		}
	}
}

func TestRecycle_Directory(t *testing.T) {
	dir := t.TempDir()
	r := New(WithTrashFunc(func(...string) error {
		t.Error("directories must not be trashed")
		return nil
	}))

	if err := r.Recycle(dir, ToTrash); !errors.Is(err, ErrFileAccess) {
		t.Errorf("Recycle(dir) error = %v, want ErrFileAccess", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory removed: %v", err)
	}
}

func TestRecycle_TrashUnavailable(t *testing.T) {
	trashErr := errors.New("no trash on this volume")

	t.Run("no fallback", func(t *testing.T) {
		path := writeTemp(t, "a.zip")
		r := New(WithTrashFunc(func(...string) error { return trashErr }))

		err := r.Recycle(path, ToTrash)
		if !errors.Is(err, ErrTrashUnavailable) {
			t.Fatalf("Recycle() error = %v, want ErrTrashUnavailable", err)
		}
		if !errors.Is(err, trashErr) {
			t.Errorf("Recycle() error should wrap cause: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("file should be left in place: %v", err)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		path := writeTemp(t, "a.zip")
		r := New(
			WithTrashFunc(func(...string) error { return trashErr }),
			WithFallbackToPermanent(true),
		)

		if err := r.Recycle(path, ToTrash); err != nil {
			t.Fatalf("Recycle() error = %v", err)
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("file should be removed by fallback: %v", err)
		}
	})

	t.Run("access error does not fall back", func(t *testing.T) {
		path := writeTemp(t, "a.zip")
		r := New(
			WithTrashFunc(func(...string) error { return fs.ErrPermission }),
			WithFallbackToPermanent(true),
		)

		if err := r.Recycle(path, ToTrash); !errors.Is(err, ErrFileAccess) {
			t.Fatalf("Recycle() error = %v, want ErrFileAccess", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("file should be left in place: %v", err)
		}
	})
}

func TestRecycle_RemoveFails(t *testing.T) {
	path := writeTemp(t, "locked.docx")
	r := New(WithRemoveFunc(func(string) error { return fs.ErrPermission }))

	err := r.Recycle(path, Permanent)
	if !errors.Is(err, ErrFileAccess) {
		t.Errorf("Recycle() error = %v, want ErrFileAccess", err)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("Recycle() error should wrap fs.ErrPermission: %v", err)
	}
}
