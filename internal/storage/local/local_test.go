package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dev-tams/s3cleanup/internal/storage/prunable"
)

func writeFile(t *testing.T, base, key string) {
	t.Helper()
	p := filepath.Join(base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	_, err := New("mirror", filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, prunable.ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound, got %v", err)
	}
}

func TestListReturnsSortedKeysAndSkipsTmp(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "other/file.txt")
	writeFile(t, base, "docker_backup/2023-07-20.tar")
	writeFile(t, base, "docker_backup/2023-07-01.tar")
	writeFile(t, base, "docker_backup/2023-07-02.tar.tmp")

	st, err := New("mirror", base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	objs, err := st.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{
		"docker_backup/2023-07-01.tar",
		"docker_backup/2023-07-20.tar",
		"other/file.txt",
	}
	if len(objs) != len(want) {
		t.Fatalf("expected %d objects, got %d", len(want), len(objs))
	}
	for i, o := range objs {
		if o.Key != want[i] {
			t.Fatalf("objs[%d].Key = %q, want %q", i, o.Key, want[i])
		}
	}

	scoped, err := st.List(context.Background(), "other/")
	if err != nil {
		t.Fatalf("List(prefix): %v", err)
	}
	if len(scoped) != 1 || scoped[0].Key != "other/file.txt" {
		t.Fatalf("unexpected prefixed listing: %+v", scoped)
	}
}

func TestDeleteVanishedKeyFails(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "docker_backup/2023-07-01.tar")

	st, err := New("mirror", base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := st.Delete(context.Background(), "docker_backup/2023-07-01.tar"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	err = st.Delete(context.Background(), "docker_backup/2023-07-01.tar")
	if !errors.Is(err, prunable.ErrDelete) {
		t.Fatalf("expected ErrDelete on second delete, got %v", err)
	}
}
