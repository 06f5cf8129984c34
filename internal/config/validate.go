package config

import (
	"fmt"
	"strings"

	"github.com/dev-tams/s3cleanup/internal/schedule"
	"github.com/dev-tams/s3cleanup/internal/storage/prunable"
)

// Validate checks what a cleanup run cannot start without. Credentials and
// the bucket name are only checked for presence; the service decides whether
// they are valid.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageS3:
		if c.AccessKey == "" || c.SecretKey == "" {
			return fmt.Errorf("access_key and secret_key are required: %w", prunable.ErrAuthentication)
		}
		if c.Bucket == "" {
			return fmt.Errorf("bucket is required: %w", prunable.ErrBucketNotFound)
		}
	case StorageLocal:
		if c.LocalPath == "" {
			return fmt.Errorf("local_path is required for storage %q", StorageLocal)
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage)
	}

	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be > 0, got %d", c.RetentionDays)
	}
	if strings.TrimSpace(c.Marker) == "" {
		return fmt.Errorf("marker must not be empty")
	}

	if s := strings.TrimSpace(c.Schedule); s != "" {
		if _, err := schedule.ParseCronSpec(s); err != nil {
			return fmt.Errorf("schedule %q is invalid: %w", s, err)
		}
	}

	for i, n := range c.Notifications {
		if strings.TrimSpace(n.Type) == "" {
			return fmt.Errorf("notifications[%d].type is required", i)
		}
	}
	return nil
}
