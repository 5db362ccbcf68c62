package validation

import (
	"context"
	"time"

	"github.com/yungbote/songcatalog-backend/internal/data/repos"
	"github.com/yungbote/songcatalog-backend/internal/observability"
	"github.com/yungbote/songcatalog-backend/internal/platform/dbctx"
	"github.com/yungbote/songcatalog-backend/internal/platform/envutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
	"github.com/yungbote/songcatalog-backend/internal/services"
)

type SweeperConfig struct {
	Interval time.Duration
	// Grace is how long an upload may sit in CREATED before it is
	// dispatched again.
	Grace time.Duration
	Batch int
}

func SweeperConfigFromEnv() SweeperConfig {
	return SweeperConfig{
		Interval: envutil.Seconds("VALIDATION_SWEEP_SECONDS", 30),
		Grace:    envutil.Seconds("VALIDATION_SWEEP_GRACE_SECONDS", 60),
		Batch:    envutil.Int("VALIDATION_SWEEP_BATCH", 50),
	}
}

// Sweeper re-dispatches uploads stuck in CREATED, so a lost dispatch or a
// crash mid-validation never strands one.
type Sweeper struct {
	log        *logger.Logger
	uploads    repos.UploadRepo
	dispatcher services.ValidationDispatcher
	cfg        SweeperConfig
	now        func() time.Time
}

func NewSweeper(baseLog *logger.Logger, uploads repos.UploadRepo, dispatcher services.ValidationDispatcher, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Grace <= 0 {
		cfg.Grace = time.Minute
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	return &Sweeper{
		log:        baseLog.With("component", "ValidationSweeper"),
		uploads:    uploads,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Validation sweeper stopped")
				return
			case <-ticker.C:
				if _, err := s.SweepOnce(ctx); err != nil {
					s.log.Warn("Validation sweep failed", "error", err)
				}
			}
		}
	}()
}

// SweepOnce dispatches one batch of stale uploads and returns how many were
// handed off.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.cfg.Grace)
	stale, err := s.uploads.ListStaleCreated(dbctx.Context{Ctx: ctx}, cutoff, s.cfg.Batch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, u := range stale {
		if err := s.dispatcher.Dispatch(ctx, u.ID); err != nil {
			s.log.Warn("Re-dispatch failed", "upload_id", u.ID, "error", err)
			continue
		}
		n++
	}
	if n > 0 {
		observability.Current().IncValidationSwept(n)
		s.log.Info("Re-dispatched stale uploads", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
