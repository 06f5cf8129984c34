package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/dev-tams/s3cleanup/internal/config"
	"github.com/dev-tams/s3cleanup/internal/metrics"
	"github.com/dev-tams/s3cleanup/internal/notify"
	"github.com/dev-tams/s3cleanup/internal/schedule"
)

type DaemonOptions struct {
	// RunTimeout bounds a single scheduled run. Zero means no limit.
	RunTimeout time.Duration
	Dispatcher *notify.Dispatcher
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger
}

// RunDaemon runs the cleanup on cfg.Schedule until ctx is canceled. A failed
// run is logged and notified; the daemon keeps going.
func RunDaemon(ctx context.Context, cfg *config.Config, opts DaemonOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	expr := strings.TrimSpace(cfg.Schedule)
	if expr == "" {
		return fmt.Errorf("daemon: schedule is required")
	}
	spec, err := schedule.ParseCronSpec(expr)
	if err != nil {
		return fmt.Errorf("daemon: invalid schedule %q: %w", expr, err)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	srv, err := startMetricsServer(cfg.MetricsAddr, opts.Metrics, log)
	if err != nil {
		return err
	}

	cronLog := cron.PrintfLogger(log)
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	c.Schedule(spec.Schedule(), cron.FuncJob(func() {
		_ = runScheduled(ctx, cfg, opts, log)
	}))
	c.Start()

	log.WithFields(logrus.Fields{
		"schedule": spec.String(),
		"next":     spec.Next(time.Now()).Format(time.RFC3339),
	}).Info("daemon started")

	<-ctx.Done()
	log.Info("daemon: shutdown requested")

	<-c.Stop().Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown")
		}
	}
	return nil
}

func runScheduled(ctx context.Context, cfg *config.Config, opts DaemonOptions, log logrus.FieldLogger) error {
	runCtx := ctx
	cancel := func() {}
	if opts.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.RunTimeout)
	}
	defer cancel()

	_, err := RunCleanup(runCtx, cfg, RunOptions{
		Dispatcher: opts.Dispatcher,
		Metrics:    opts.Metrics,
		Logger:     log,
	})
	if err != nil && opts.RunTimeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		log.WithField("timeout", opts.RunTimeout.String()).Warn("daemon: run timed out")
	}
	return err
}

func startMetricsServer(addr string, m *metrics.Metrics, log logrus.FieldLogger) (*http.Server, error) {
	if addr == "" {
		return nil, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("addr", ln.Addr().String()).Info("serving metrics")
	return srv, nil
}
