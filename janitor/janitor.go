// Package janitor runs the periodic background sweep that expires stale
// sessions and purges old login attempts.
//
// Each sweep is one transaction. Errors are logged and retried after a
// shorter interval; they never reach request handling. When a lease is
// configured only the process holding it sweeps in a given interval.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/internal/lease"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
	"gorm.io/gorm"
)

// Defaults applied by New for zero config values.
const (
	DefaultInterval         = 5 * time.Minute
	DefaultRetryInterval    = time.Minute
	DefaultAttemptRetention = 24 * time.Hour
)

// Config controls sweep cadence and retention.
type Config struct {
	Interval         time.Duration
	RetryInterval    time.Duration
	AttemptRetention time.Duration
}

// Result reports what one sweep changed.
type Result struct {
	ExpiredSessions int64
	PurgedAttempts  int64
	// Skipped is set when another process held the sweep lease.
	Skipped  bool
	Duration time.Duration
}

// Options carries optional collaborators.
type Options struct {
	Logger *slog.Logger
	// Lease, when set, is acquired for Interval before each sweep.
	Lease *lease.Lease
	Now   func() time.Time
	// OnSweep is called after every sweep attempt, from the sweeping goroutine.
	OnSweep func(Result, error)
}

// Janitor owns one background goroutine between Start and Stop.
type Janitor struct {
	db       *gorm.DB
	sessions *session.Store
	attempts *rate.Limiter
	cfg      Config
	opts     Options

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped [Janitor].
func New(db *gorm.DB, sessions *session.Store, attempts *rate.Limiter, cfg Config, opts Options) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.AttemptRetention <= 0 {
		cfg.AttemptRetention = DefaultAttemptRetention
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Logger = opts.Logger.With("component", "janitor")

	return &Janitor{
		db:       db,
		sessions: sessions,
		attempts: attempts,
		cfg:      cfg,
		opts:     opts,
	}
}

// Start launches the sweep loop. The first sweep runs immediately. Calling
// Start on a running janitor is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.done != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	go j.run(runCtx, j.done)

	j.opts.Logger.Info("janitor started",
		"interval", j.cfg.Interval,
		"retry_interval", j.cfg.RetryInterval,
		"leased", j.opts.Lease != nil,
	)
}

// Stop cancels the loop and waits for it to exit. An in-flight sweep is
// rolled back.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	j.opts.Logger.Info("janitor stopped")
}

// Leased reports whether sweeps are coordinated through a fleet lease.
func (j *Janitor) Leased() bool {
	return j.opts.Lease != nil
}

// Running reports whether the loop goroutine is active.
func (j *Janitor) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done != nil
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		wait := j.cfg.Interval

		res, err := j.Sweep(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			wait = j.cfg.RetryInterval
			j.opts.Logger.Error("sweep failed", "err", err, "retry_in", wait)
		case res.Skipped:
			j.opts.Logger.Debug("sweep skipped, lease held elsewhere")
		case res.ExpiredSessions > 0 || res.PurgedAttempts > 0:
			j.opts.Logger.Info("sweep done",
				"expired_sessions", res.ExpiredSessions,
				"purged_attempts", res.PurgedAttempts,
				"duration", res.Duration,
			)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Sweep runs one sweep in a single transaction: sessions past expires_at are
// marked inactive and attempts older than AttemptRetention are deleted.
// Cancelling ctx rolls the whole sweep back.
func (j *Janitor) Sweep(ctx context.Context) (Result, error) {
	res, err := j.sweep(ctx)
	if j.opts.OnSweep != nil {
		j.opts.OnSweep(res, err)
	}
	return res, err
}

func (j *Janitor) sweep(ctx context.Context) (Result, error) {
	start := time.Now()

	leased := false
	if j.opts.Lease != nil {
		ok, err := j.opts.Lease.Acquire(ctx, j.cfg.Interval)
		switch {
		case err != nil:
			// sweeps are idempotent; run without the lease
			j.opts.Logger.Warn("sweep lease unavailable, sweeping anyway", "err", err)
		case !ok:
			return Result{Skipped: true}, nil
		default:
			leased = true
		}
	}

	cutoff := j.opts.Now().UTC().Add(-j.cfg.AttemptRetention)

	var res Result
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired, err := j.sessions.WithTx(tx).ExpireStale(ctx)
		if err != nil {
			return err
		}
		purged, err := j.attempts.WithTx(tx).PurgeBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		res.ExpiredSessions = expired
		res.PurgedAttempts = purged
		return nil
	})
	res.Duration = time.Since(start)

	if err != nil {
		if leased {
			// free the lease so another process can retry this interval
			if _, rerr := j.opts.Lease.Release(context.WithoutCancel(ctx)); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
		return Result{Duration: res.Duration}, err
	}

	return res, nil
}
