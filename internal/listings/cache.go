package listings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/logger"
	"github.com/harvestlink/agrimarket/pkg/redis"
)

type snapshotStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// CachedSource keeps the serialized snapshot of an inner Source in Redis.
// Cache failures are logged and fall through to the inner source.
type CachedSource struct {
	inner Source
	store snapshotStore
	key   string
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCachedSource decorates inner with a Redis snapshot stored under key.
func NewCachedSource(inner Source, store snapshotStore, key string, ttl time.Duration, logg *logger.Logger) (*CachedSource, error) {
	if inner == nil {
		return nil, errors.New("inner listing source required")
	}
	if store == nil {
		return nil, errors.New("snapshot store required")
	}
	if key == "" {
		return nil, errors.New("snapshot key required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedSource{inner: inner, store: store, key: key, ttl: ttl, logg: logg}, nil
}

// Fetch implements Source.
func (c *CachedSource) Fetch(ctx context.Context) ([]Listing, error) {
	ctx = c.logg.WithField(ctx, "cache_key", c.key)
	payload, err := c.store.Get(ctx, c.key)
	switch {
	case err == nil:
		var items []Listing
		if decodeErr := json.Unmarshal([]byte(payload), &items); decodeErr != nil {
			c.logg.Warn(ctx, "discarding undecodable listing snapshot")
			break
		}
		return items, nil
	case errors.Is(err, redis.Nil):
	default:
		c.logg.Error(ctx, "listing snapshot read failed", err)
	}
	return c.Warm(ctx)
}

// Warm loads the inner source and rewrites the cached snapshot.
func (c *CachedSource) Warm(ctx context.Context) ([]Listing, error) {
	items, err := c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Listing{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode listing snapshot")
	}
	if err := c.store.Set(ctx, c.key, string(payload), c.ttl); err != nil {
		c.logg.Error(ctx, "listing snapshot write failed", err)
	}
	return items, nil
}

// Invalidate drops the cached snapshot so the next Fetch reloads it.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if err := c.store.Del(ctx, c.key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate listing snapshot")
	}
	return nil
}
