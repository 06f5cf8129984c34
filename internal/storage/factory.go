package storage

import (
	"context"
	"fmt"

	"github.com/dev-tams/s3cleanup/internal/config"
	"github.com/dev-tams/s3cleanup/internal/storage/local"
	s3store "github.com/dev-tams/s3cleanup/internal/storage/s3"
)

// FromConfig resolves the configured bucket. For s3 this authenticates and
// checks the bucket exists before returning.
func FromConfig(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.Storage {
	case config.StorageLocal:
		st, err := local.New(cfg.Bucket, cfg.LocalPath)
		if err != nil {
			return nil, err
		}
		return st, nil

	case config.StorageS3:
		st, err := s3store.New(ctx, s3store.Options{
			Name:      cfg.Bucket,
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage)
	}
}
