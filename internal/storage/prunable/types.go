package prunable

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuthentication means credentials are missing or were rejected by the service.
	ErrAuthentication = errors.New("authentication failed")
	// ErrBucketNotFound means the bucket does not exist or is not accessible.
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrDelete means the service rejected a delete call.
	ErrDelete = errors.New("delete rejected")
)

type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

type Prunable interface {
	// List returns every object under prefix in listing order, following all pages.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}
