package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/dev-tams/s3cleanup/internal/config"
)

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("S3CLEANUP_BUCKET", "from-env")

	var got *config.Config
	a := &cli.App{
		Flags: commonFlags(),
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig(c)
			got = cfg
			return err
		},
	}

	err := a.Run([]string{
		"s3cleanup",
		"--bucket", "nightly",
		"--retention-days", "3",
		"--dry-run",
		"--storage", "local",
		"--local-path", "/srv/mirror",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got.Bucket != "nightly" {
		t.Fatalf("expected --bucket to win over env, got %q", got.Bucket)
	}
	if got.RetentionDays != 3 || !got.DryRun {
		t.Fatalf("unexpected overrides: retention=%d dry_run=%v", got.RetentionDays, got.DryRun)
	}
	if got.Storage != config.StorageLocal || got.LocalPath != "/srv/mirror" {
		t.Fatalf("unexpected storage: %q %q", got.Storage, got.LocalPath)
	}
	if got.Marker != config.DefaultMarker {
		t.Fatalf("expected default marker, got %q", got.Marker)
	}
}

func TestLoadConfigKeepsEnvWhenFlagAbsent(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("S3CLEANUP_BUCKET", "from-env")

	var got *config.Config
	a := &cli.App{
		Flags: commonFlags(),
		Action: func(c *cli.Context) error {
			cfg, _, err := loadConfig(c)
			got = cfg
			return err
		},
	}
	if err := a.Run([]string{"s3cleanup"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Bucket != "from-env" {
		t.Fatalf("bucket = %q, want from-env", got.Bucket)
	}
}

// captureDaemonConfig runs the real command tree with a daemon action that
// only records the resolved config.
func captureDaemonConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())

	level, formatter := logrus.GetLevel(), logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.SetFormatter(formatter)
	})

	var got *config.Config
	noop := func(*cli.Context) error {
		t.Fatalf("root action should not run for %v", args)
		return nil
	}
	capture := func(c *cli.Context) error {
		cfg, _, err := loadConfig(c)
		got = cfg
		return err
	}
	if err := newApp(noop, capture).Run(append([]string{"s3cleanup"}, args...)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got == nil {
		t.Fatalf("daemon action did not run")
	}
	return got
}

func TestDaemonHonoursFlagsGivenBeforeSubcommand(t *testing.T) {
	got := captureDaemonConfig(t, "--bucket", "nightly", "--dry-run", "--retention-days", "4", "--verbose", "daemon")

	if got.Bucket != "nightly" {
		t.Fatalf("bucket = %q, want nightly", got.Bucket)
	}
	if !got.DryRun {
		t.Fatalf("expected --dry-run before daemon to be honoured")
	}
	if got.RetentionDays != 4 {
		t.Fatalf("retention = %d, want 4", got.RetentionDays)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected --verbose before daemon to enable debug logging, got %s", logrus.GetLevel())
	}
}

func TestDaemonFlagsOverrideRootFlags(t *testing.T) {
	got := captureDaemonConfig(t, "--bucket", "outer", "--marker", "db_backup", "daemon", "--bucket", "inner")

	if got.Bucket != "inner" {
		t.Fatalf("bucket = %q, want inner", got.Bucket)
	}
	if got.Marker != "db_backup" {
		t.Fatalf("marker = %q, want db_backup", got.Marker)
	}
	if got.DryRun {
		t.Fatalf("dry run should stay off when not requested")
	}
}
