// Package review is the background runner that recomputes mastery and
// review schedules for every active user.
package review

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/server/engine"
	"github.com/rankmarg/mastery/server/internal/errors"
	"github.com/rankmarg/mastery/server/internal/observability"
	"github.com/rankmarg/mastery/store"
)

// runInterval is how often the scheduled pass fires.
const runInterval = 6 * time.Hour

// retryBaseDelay seeds the exponential backoff between per-user retries.
const retryBaseDelay = 500 * time.Millisecond

// Runner drives batch scheduling passes over the active user base.
type Runner struct {
	Store   *store.Store
	Engine  *engine.Engine
	Profile *profile.Profile
}

// NewRunner creates a review runner.
func NewRunner(s *store.Store, e *engine.Engine, p *profile.Profile) *Runner {
	return &Runner{Store: s, Engine: e, Profile: p}
}

// UnitError records one failed per-user unit.
type UnitError struct {
	UserID string
	Err    error
}

// Summary aggregates one full pass. Per-unit failures are isolated
// here; no unit aborts the run.
type Summary struct {
	RunID     string
	Processed int
	Failed    int
	Skipped   int
	Duration  time.Duration
	Errors    []UnitError
}

// Schedule runs the pass on a fixed interval until the context is
// canceled. An immediate pass fires on start.
func (r *Runner) Schedule(ctx context.Context) {
	ticker := time.NewTicker(runInterval)
	defer ticker.Stop()

	for {
		r.RunOnce(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce executes one full scheduling pass: users are fetched in
// fixed-size pages, each page fans out to a bounded worker set, and
// pages run strictly one after another.
func (r *Runner) RunOnce(ctx context.Context) *Summary {
	runCtx := observability.NewRunContext(slog.Default())
	summary := &Summary{RunID: runCtx.RunID}
	now := time.Now()

	runCtx.Info("review scheduling pass started",
		slog.Int("batch_size", r.Profile.BatchSize),
		slog.Int("concurrency", r.Profile.Concurrency))

	var mu sync.Mutex
	for batch := 0; ; batch++ {
		userIDs, err := r.Store.ListActiveUserIDs(ctx, &store.FindActiveUserIDs{
			Limit:  r.Profile.BatchSize,
			Offset: batch * r.Profile.BatchSize,
		})
		if err != nil {
			runCtx.Error("failed to page active users", err, slog.Int(observability.LogFieldBatch, batch))
			break
		}
		if len(userIDs) == 0 {
			break
		}

		var group errgroup.Group
		group.SetLimit(r.Profile.Concurrency)
		for _, userID := range userIDs {
			userID := userID
			group.Go(func() error {
				start := time.Now()
				err := r.processWithRetry(ctx, runCtx, userID, now)
				observability.GlobalMetrics().RecordDuration(time.Since(start))

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					summary.Processed++
					observability.GlobalMetrics().RecordProcessed()
				case errors.IsMissingData(err):
					summary.Skipped++
					observability.GlobalMetrics().RecordSkipped()
				default:
					summary.Failed++
					summary.Errors = append(summary.Errors, UnitError{UserID: userID, Err: err})
					observability.GlobalMetrics().RecordFailure()
					runCtx.Error("user scheduling failed", err,
						slog.String(observability.LogFieldUserID, userID),
						slog.String(observability.LogFieldErrorCode, string(errors.CodeOf(err))))
				}
				return nil
			})
		}
		_ = group.Wait()

		runCtx.Debug("batch complete",
			slog.Int(observability.LogFieldBatch, batch),
			slog.Int("users", len(userIDs)))

		if len(userIDs) < r.Profile.BatchSize {
			break
		}
	}

	summary.Duration = runCtx.Duration()
	runCtx.Info("review scheduling pass finished",
		slog.Int("processed", summary.Processed),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int64(observability.LogFieldDuration, runCtx.DurationMs()))
	return summary
}

// processWithRetry wraps the whole per-user unit in retry-with-backoff.
// Only transient store failures are retried; a retry redoes the full
// per-user computation from scratch. Missing data and config faults
// surface immediately.
func (r *Runner) processWithRetry(ctx context.Context, runCtx *observability.RunContext, userID string, now time.Time) error {
	var lastErr error
	for attempt := 0; attempt < r.Profile.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			runCtx.Warn("retrying user after transient failure",
				slog.String(observability.LogFieldUserID, userID),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		_, err := r.Engine.ProcessUser(ctx, userID, now)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.IsTransientIO(err) {
			return err
		}
	}
	return lastErr
}
