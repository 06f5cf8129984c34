package storage

import (
	"github.com/dev-tams/s3cleanup/internal/storage/prunable"
)

// Storage is a resolved bucket handle.
type Storage interface {
	Name() string
	prunable.Prunable
}
