package controllers

import (
	"context"

	"github.com/harvestlink/agrimarket/internal/listings"
)

// SnapshotProvider yields the current listing snapshot.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) ([]listings.Listing, error)
}

// EngineProvider resolves the listing engine owned by a session.
type EngineProvider interface {
	SnapshotProvider
	Mount(ctx context.Context, sessionID string) (*listings.Engine, error)
}

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChartMetrics counts rendered charts.
type ChartMetrics interface {
	IncChartRender(chart, format string)
}
