package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/harvestlink/agrimarket/internal/listings"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

const (
	JobSessionSweep    = "marketplace_session_sweep"
	JobSnapshotRefresh = "marketplace_snapshot_refresh"
	JobSnapshotWarm    = "listing_snapshot_warm"
)

type sessionSweeper interface {
	Sweep(now time.Time) int
}

type snapshotRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

type snapshotWarmer interface {
	Warm(ctx context.Context) ([]listings.Listing, error)
}

type sessionSweepJob struct {
	logg     *logger.Logger
	sessions sessionSweeper
	now      func() time.Time
}

// NewSessionSweepJob unmounts marketplace sessions that went idle.
func NewSessionSweepJob(logg *logger.Logger, sessions sessionSweeper) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session registry required")
	}
	return &sessionSweepJob{logg: logg, sessions: sessions, now: time.Now}, nil
}

func (j *sessionSweepJob) Name() string { return JobSessionSweep }

func (j *sessionSweepJob) Run(ctx context.Context) error {
	removed := j.sessions.Sweep(j.now())
	if removed > 0 {
		j.logg.Info(j.logg.WithField(ctx, "removed", removed), "idle marketplace sessions unmounted")
	}
	return nil
}

type snapshotRefreshJob struct {
	logg    *logger.Logger
	refresh snapshotRefresher
}

// NewSnapshotRefreshJob reloads the listing snapshot into mounted engines.
func NewSnapshotRefreshJob(logg *logger.Logger, refresher snapshotRefresher) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if refresher == nil {
		return nil, fmt.Errorf("snapshot refresher required")
	}
	return &snapshotRefreshJob{logg: logg, refresh: refresher}, nil
}

func (j *snapshotRefreshJob) Name() string { return JobSnapshotRefresh }

func (j *snapshotRefreshJob) Run(ctx context.Context) error {
	n, err := j.refresh.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "listings", n), "listing snapshot refreshed")
	return nil
}

type snapshotWarmJob struct {
	logg  *logger.Logger
	cache snapshotWarmer
}

// NewSnapshotWarmJob rewrites the cached listing snapshot from the primary source.
func NewSnapshotWarmJob(logg *logger.Logger, cache snapshotWarmer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cache == nil {
		return nil, fmt.Errorf("snapshot cache required")
	}
	return &snapshotWarmJob{logg: logg, cache: cache}, nil
}

func (j *snapshotWarmJob) Name() string { return JobSnapshotWarm }

func (j *snapshotWarmJob) Run(ctx context.Context) error {
	items, err := j.cache.Warm(ctx)
	if err != nil {
		return fmt.Errorf("warm snapshot cache: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "listings", len(items)), "listing snapshot cache warmed")
	return nil
}
