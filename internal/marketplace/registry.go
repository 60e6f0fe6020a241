// Package marketplace owns one listing engine per browser session.
package marketplace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harvestlink/agrimarket/internal/listings"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

const defaultSessionTTL = 30 * time.Minute

type metricsSink interface {
	listings.RecomputeObserver
	SetSessions(n int)
}

// RegistryParams configure the session registry.
type RegistryParams struct {
	Logger     *logger.Logger
	Source     listings.Source
	Metrics    metricsSink
	SessionTTL time.Duration
}

type session struct {
	engine   *listings.Engine
	lastSeen time.Time
}

// Registry maps session ids to mounted engines. All engines share the most
// recently loaded listing snapshot.
type Registry struct {
	logg    *logger.Logger
	source  listings.Source
	metrics metricsSink
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	snapshot []listings.Listing
	loaded   bool
}

// NewRegistry builds an empty registry. The snapshot is loaded lazily on first mount.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Source == nil {
		return nil, fmt.Errorf("listing source required")
	}
	ttl := params.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Registry{
		logg:     params.Logger,
		source:   params.Source,
		metrics:  params.Metrics,
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*session{},
	}, nil
}

// Mount returns the engine for sessionID, creating one loaded with the current
// snapshot when the session is new.
func (r *Registry) Mount(ctx context.Context, sessionID string) (*listings.Engine, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if engine := r.Get(sessionID); engine != nil {
		return engine, nil
	}

	snapshot, err := r.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.lastSeen = r.now()
		return s.engine, nil
	}
	engine := r.newEngine()
	engine.SetListings(snapshot)
	r.sessions[sessionID] = &session{engine: engine, lastSeen: r.now()}
	r.reportSessionsLocked()
	r.logg.Info(r.logg.WithSessionID(ctx, sessionID), "marketplace engine mounted")
	return engine, nil
}

// Get returns the engine for sessionID and marks the session active, or nil.
func (r *Registry) Get(sessionID string) *listings.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	s.lastSeen = r.now()
	return s.engine
}

// Unmount destroys the engine for sessionID. Unknown ids are ignored.
func (r *Registry) Unmount(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	r.reportSessionsLocked()
	return true
}

// Len reports the number of mounted sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep unmounts every session idle for longer than the session TTL and
// returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.reportSessionsLocked()
	}
	return removed
}

// Refresh reloads the snapshot from the source and pushes it into every
// mounted engine.
func (r *Registry) Refresh(ctx context.Context) (int, error) {
	items, err := r.source.Fetch(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh listing snapshot")
	}

	r.mu.Lock()
	r.snapshot = items
	r.loaded = true
	engines := make([]*listings.Engine, 0, len(r.sessions))
	for _, s := range r.sessions {
		engines = append(engines, s.engine)
	}
	r.mu.Unlock()

	for _, engine := range engines {
		engine.SetListings(items)
	}
	return len(items), nil
}

// Snapshot returns the current listing snapshot, loading it if needed.
func (r *Registry) Snapshot(ctx context.Context) ([]listings.Listing, error) {
	items, err := r.currentSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]listings.Listing, len(items))
	copy(out, items)
	return out, nil
}

func (r *Registry) currentSnapshot(ctx context.Context) ([]listings.Listing, error) {
	r.mu.Lock()
	if r.loaded {
		items := r.snapshot
		r.mu.Unlock()
		return items, nil
	}
	r.mu.Unlock()

	if _, err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot, nil
}

func (r *Registry) newEngine() *listings.Engine {
	if r.metrics == nil {
		return listings.NewEngine(nil)
	}
	return listings.NewEngine(r.metrics)
}

func (r *Registry) reportSessionsLocked() {
	if r.metrics == nil {
		return
	}
	r.metrics.SetSessions(len(r.sessions))
}
