package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dev-tams/s3cleanup/internal/config"
	"github.com/dev-tams/s3cleanup/internal/metrics"
	"github.com/dev-tams/s3cleanup/internal/notify"
	"github.com/dev-tams/s3cleanup/internal/storage"
	"github.com/dev-tams/s3cleanup/internal/storage/prunable"
)

const notificationTimeout = 5 * time.Second

type CleanupResult struct {
	RunID      string
	Bucket     string
	Status     string
	DryRun     bool
	Cutoff     time.Time
	Listed     int
	Candidates int
	Expired    int
	Deleted    int
	Duration   time.Duration
	Err        error
}

type RunOptions struct {
	// Now is the reference time for the cutoff. Zero means time.Now().
	Now time.Time
	// Storage replaces the backend built from the config.
	Storage    storage.Storage
	Dispatcher *notify.Dispatcher
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger
}

func (o RunOptions) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// RunCleanup resolves the bucket, lists candidates, filters expired keys and
// deletes them in order. The first failed delete stops the run; earlier
// deletions stay committed.
func RunCleanup(ctx context.Context, cfg *config.Config, opts RunOptions) (CleanupResult, error) {
	started := time.Now()
	now := opts.Now
	if now.IsZero() {
		now = started
	}

	res := CleanupResult{
		RunID:  uuid.NewString(),
		Bucket: cfg.Bucket,
		Status: notify.StatusSuccess,
		DryRun: cfg.DryRun,
		Cutoff: Cutoff(now, cfg.RetentionDays),
	}
	log := opts.logger().WithFields(logrus.Fields{
		"run_id": res.RunID,
		"bucket": res.Bucket,
	})

	err := runPipeline(ctx, cfg, opts, log, &res)
	res.Duration = time.Since(started)
	if err != nil {
		res.Status = notify.StatusFailure
		res.Err = err
	}

	opts.Metrics.ObserveRun(res.Status, res.Listed, res.Candidates, res.Expired, res.Deleted, time.Now())
	notifyResult(ctx, opts.Dispatcher, res, log)

	if err != nil {
		log.WithError(err).WithField("deleted", res.Deleted).Error("cleanup failed")
		return res, err
	}

	log.WithFields(logrus.Fields{
		"cutoff":     res.Cutoff.Format(keyDateLayout),
		"listed":     res.Listed,
		"candidates": res.Candidates,
		"expired":    res.Expired,
		"deleted":    res.Deleted,
		"dry_run":    res.DryRun,
		"duration":   res.Duration.Round(time.Millisecond).String(),
	}).Info("cleanup finished")
	return res, nil
}

func runPipeline(ctx context.Context, cfg *config.Config, opts RunOptions, log logrus.FieldLogger, res *CleanupResult) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	st := opts.Storage
	if st == nil {
		var err error
		st, err = storage.FromConfig(ctx, cfg)
		if err != nil {
			return err
		}
	}
	if res.Bucket == "" {
		res.Bucket = st.Name()
	}

	log.WithField("cutoff", res.Cutoff.Format(keyDateLayout)).Debug("listing bucket")

	candidates, listed, err := ListCandidates(ctx, st, cfg.Marker)
	if err != nil {
		return err
	}
	res.Listed = listed
	res.Candidates = len(candidates)

	expired := SelectExpired(candidates, res.Cutoff)
	res.Expired = len(expired)

	log.WithFields(logrus.Fields{
		"listed":     res.Listed,
		"candidates": res.Candidates,
		"expired":    res.Expired,
	}).Debug("filtered bucket listing")

	deleted, err := DeleteKeys(ctx, st, expired, cfg.DryRun, log)
	res.Deleted = deleted
	return err
}

// DeleteKeys deletes keys one at a time, logging each key before the call.
// In dry-run mode nothing is deleted and the returned count is zero.
func DeleteKeys(ctx context.Context, pr prunable.Prunable, keys []prunable.ObjectInfo, dryRun bool, log logrus.FieldLogger) (int, error) {
	deleted := 0
	for _, k := range keys {
		entry := log.WithField("key", k.Key)
		if dryRun {
			entry.Info("would delete key")
			continue
		}

		entry.Info("deleting key")
		if err := pr.Delete(ctx, k.Key); err != nil {
			return deleted, fmt.Errorf("retention delete: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

func notifyResult(ctx context.Context, dispatcher *notify.Dispatcher, res CleanupResult, log logrus.FieldLogger) {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	event := notify.Event{
		RunID:      res.RunID,
		Bucket:     res.Bucket,
		Status:     res.Status,
		DryRun:     res.DryRun,
		Cutoff:     res.Cutoff.Format(keyDateLayout),
		Listed:     res.Listed,
		Candidates: res.Candidates,
		Expired:    res.Expired,
		Deleted:    res.Deleted,
		Duration:   res.Duration.Round(time.Millisecond).String(),
		Error:      errMsg,
	}

	notifyCtx, cancel := notificationContext(ctx)
	defer cancel()

	if err := dispatcher.Notify(notifyCtx, event); err != nil {
		log.WithError(err).WithField("status", res.Status).Warn("notification failed")
	}
}

func notificationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), notificationTimeout)
	}
	return context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
}
