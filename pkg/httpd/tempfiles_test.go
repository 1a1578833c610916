package httpd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestUploadStore_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	store := newUploadStore(dir, "sess-1")

	a, err := store.Save([]byte("first"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	b, err := store.Save([]byte("second"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if a == b {
		t.Fatalf("Save() returned the same path twice: %s", a)
	}
	if filepath.Dir(a) != dir || !strings.HasPrefix(filepath.Base(a), "upload-sess-1-") {
		t.Errorf("path = %s", a)
	}
	if data, _ := os.ReadFile(b); string(data) != "second" {
		t.Errorf("content = %q, want second", data)
	}
	if len(store.paths) != 2 {
		t.Errorf("paths = %v", store.paths)
	}

	// A file the handler already removed is not an error.
	os.Remove(a)
	log := zerolog.Nop()
	store.RemoveAll(&log)

	for _, p := range []string{a, b} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists: %v", p, err)
		}
	}
	if len(store.paths) != 0 {
		t.Errorf("paths after RemoveAll = %v", store.paths)
	}
}

func TestUploadStore_BadDir(t *testing.T) {
	store := newUploadStore(filepath.Join(t.TempDir(), "missing"), "s")
	if _, err := store.Save([]byte("x")); err == nil {
		t.Error("Save() into missing directory succeeded")
	}
	if len(store.paths) != 0 {
		t.Errorf("failed save recorded: %v", store.paths)
	}
}
