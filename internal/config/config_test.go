package config

import (
	"os"
	"path/filepath"
	"testing"

	s3store "github.com/dev-tams/s3cleanup/internal/storage/s3"
)

func TestLoadReadsCredentialsFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "cleanup.env")
	if err := os.WriteFile(envFile, []byte("access_key=AKIDFROMFILE\nsecret_key=shh\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// godotenv never overrides variables that are already set.
	t.Setenv("access_key", "")
	t.Setenv("secret_key", "")
	os.Unsetenv("access_key")
	os.Unsetenv("secret_key")

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AccessKey != "AKIDFROMFILE" || cfg.SecretKey != "shh" {
		t.Fatalf("unexpected credentials: %q / %q", cfg.AccessKey, cfg.SecretKey)
	}
	if cfg.Marker != DefaultMarker || cfg.RetentionDays != DefaultRetentionDays {
		t.Fatalf("expected defaults, got marker=%q retention=%d", cfg.Marker, cfg.RetentionDays)
	}
	if cfg.Endpoint != s3store.DefaultEndpoint || cfg.Storage != StorageS3 {
		t.Fatalf("expected default endpoint/storage, got %q/%q", cfg.Endpoint, cfg.Storage)
	}
}

func TestLoadFailsOnMissingExplicitEnvFile(t *testing.T) {
	if _, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")}); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}

func TestLoadMergesYAMLAndPrefixedEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "s3cleanup.yaml")
	yaml := `
bucket: nightly-backups
retention_days: 14
secret_key: ${CLEANUP_TEST_SECRET}
notifications:
  - type: webhook
    on: [failure]
    config:
      url: https://hooks.example.com/${CLEANUP_TEST_HOOK}
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Chdir(dir)
	t.Setenv("CLEANUP_TEST_SECRET", "expanded")
	t.Setenv("CLEANUP_TEST_HOOK", "abc")
	t.Setenv("S3CLEANUP_RETENTION_DAYS", "30")
	t.Setenv("access_key", "AKIDENV")
	t.Setenv("secret_key", "")

	cfg, err := Load(LoadOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Bucket != "nightly-backups" {
		t.Fatalf("bucket = %q", cfg.Bucket)
	}
	if cfg.RetentionDays != 30 {
		t.Fatalf("expected env to override retention_days, got %d", cfg.RetentionDays)
	}
	if cfg.AccessKey != "AKIDENV" {
		t.Fatalf("access key = %q", cfg.AccessKey)
	}
	if cfg.SecretKey != "expanded" {
		t.Fatalf("expected ${VAR} expansion, got %q", cfg.SecretKey)
	}
	if len(cfg.Notifications) != 1 || cfg.Notifications[0].Config.URL != "https://hooks.example.com/abc" {
		t.Fatalf("unexpected notifications: %+v", cfg.Notifications)
	}
}
