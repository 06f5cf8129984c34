package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dev-tams/s3cleanup/internal/storage/prunable"
)

// Storage treats a directory as a bucket: every regular file below it is an
// object whose key is its slash-separated relative path.
type Storage struct {
	name string
	base string
}

func New(name, basePath string) (*Storage, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("local: base path is empty: %w", prunable.ErrBucketNotFound)
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("local: %s: %w: %w", basePath, prunable.ErrBucketNotFound, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local: %s is not a directory: %w", basePath, prunable.ErrBucketNotFound)
	}
	if name == "" {
		name = filepath.Base(basePath)
	}
	return &Storage{name: name, base: basePath}, nil
}

func (s *Storage) Name() string { return s.name }

// List returns objects sorted by key, matching S3's listing order.
func (s *Storage) List(ctx context.Context, prefix string) ([]prunable.ObjectInfo, error) {
	var out []prunable.ObjectInfo

	err := filepath.WalkDir(s.base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Skip tmp files left behind by interrupted writers
		if filepath.Ext(d.Name()) == ".tmp" {
			return nil
		}

		rel, err := filepath.Rel(s.base, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		out = append(out, prunable.ObjectInfo{
			Key:     key,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list dir: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete removes the object. A key that is already gone is reported as
// prunable.ErrDelete, the same as a rejected delete.
func (s *Storage) Delete(_ context.Context, key string) error {
	p := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w: object does not exist", key, prunable.ErrDelete)
		}
		return fmt.Errorf("delete %s: %w: %w", key, prunable.ErrDelete, err)
	}
	return nil
}
