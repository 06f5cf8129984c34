package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/dev-tams/s3cleanup/internal/app"
	"github.com/dev-tams/s3cleanup/internal/config"
	"github.com/dev-tams/s3cleanup/internal/notify"
	s3store "github.com/dev-tams/s3cleanup/internal/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(runCleanup, runDaemon).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp wires the flags and commands. The common flags are accepted both
// before and after "daemon"; see explicitFlag for how they are resolved.
func newApp(cleanup, daemon cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:   "s3cleanup",
		Usage:  "delete dated backup objects older than the retention window",
		Flags:  commonFlags(),
		Before: setupLogging,
		Action: cleanup,
		Commands: []*cli.Command{
			{
				Name:   "daemon",
				Usage:  "run the cleanup on a cron schedule",
				Before: setupLogging,
				Flags: append(
					commonFlags(),
					&cli.StringFlag{
						Name:  "schedule",
						Usage: "5-field cron expression, evaluated in UTC (default " + config.DefaultSchedule + ")",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "serve prometheus metrics on this address, e.g. :9102",
					},
					&cli.DurationFlag{
						Name:  "run-timeout",
						Usage: "abort a single run after this long (0 disables)",
					},
				),
				Action: daemon,
			},
		},
	}
}

func runCleanup(c *cli.Context) error {
	cfg, dispatcher, err := loadConfig(c)
	if err != nil {
		return err
	}

	_, err = app.RunCleanup(c.Context, cfg, app.RunOptions{Dispatcher: dispatcher})
	return err
}

func runDaemon(c *cli.Context) error {
	cfg, dispatcher, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("schedule") {
		cfg.Schedule = c.String("schedule")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}

	return app.RunDaemon(c.Context, cfg, app.DaemonOptions{
		RunTimeout: c.Duration("run-timeout"),
		Dispatcher: dispatcher,
	})
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "bucket",
			Usage: "bucket to parse for docker_backups",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "optional path to config yaml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "dotenv file loaded before reading the environment (default " + config.DefaultEnvFile + ", optional)",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "object storage endpoint host (default " + s3store.DefaultEndpoint + ")",
		},
		&cli.StringFlag{
			Name:  "storage",
			Usage: "backend type: s3 or local",
		},
		&cli.StringFlag{
			Name:  "local-path",
			Usage: "directory used as the bucket when --storage=local",
		},
		&cli.IntFlag{
			Name:  "retention-days",
			Usage: "delete backups dated this many days before today or earlier",
		},
		&cli.StringFlag{
			Name:  "marker",
			Usage: "only keys containing this substring are considered",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "log the keys that would be deleted without deleting them",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug logging",
		},
		&cli.BoolFlag{
			Name:  "log-json",
			Usage: "emit logs as JSON",
		},
	}
}

// explicitFlag returns the nearest context in c's lineage where name was
// given on the command line. urfave/cli stops at the first flag set that
// defines a flag, so "s3cleanup --dry-run daemon" would otherwise read the
// daemon's unset copy of --dry-run.
func explicitFlag(c *cli.Context, name string) (*cli.Context, bool) {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx, true
		}
	}
	return nil, false
}

func stringFlag(c *cli.Context, name string) string {
	if fc, ok := explicitFlag(c, name); ok {
		return fc.String(name)
	}
	return ""
}

func boolFlag(c *cli.Context, name string) bool {
	if fc, ok := explicitFlag(c, name); ok {
		return fc.Bool(name)
	}
	return false
}

func setupLogging(c *cli.Context) error {
	logrus.SetLevel(logrus.InfoLevel)
	if boolFlag(c, "verbose") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if boolFlag(c, "log-json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, *notify.Dispatcher, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: stringFlag(c, "config"),
		EnvFile:    stringFlag(c, "env-file"),
	})
	if err != nil {
		return nil, nil, err
	}

	if fc, ok := explicitFlag(c, "bucket"); ok {
		cfg.Bucket = fc.String("bucket")
	}
	if fc, ok := explicitFlag(c, "endpoint"); ok {
		cfg.Endpoint = fc.String("endpoint")
	}
	if fc, ok := explicitFlag(c, "storage"); ok {
		cfg.Storage = fc.String("storage")
	}
	if fc, ok := explicitFlag(c, "local-path"); ok {
		cfg.LocalPath = fc.String("local-path")
	}
	if fc, ok := explicitFlag(c, "retention-days"); ok {
		cfg.RetentionDays = fc.Int("retention-days")
	}
	if fc, ok := explicitFlag(c, "marker"); ok {
		cfg.Marker = fc.String("marker")
	}
	if fc, ok := explicitFlag(c, "dry-run"); ok {
		cfg.DryRun = fc.Bool("dry-run")
	}

	dispatcher, err := notify.NewDispatcher(cfg.Notifications)
	if err != nil {
		return nil, nil, err
	}
	return cfg, dispatcher, nil
}
