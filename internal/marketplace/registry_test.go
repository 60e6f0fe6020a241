package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harvestlink/agrimarket/internal/listings"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	mu    sync.Mutex
	items []listings.Listing
	calls int
	err   error
}

func (c *countingSource) Fetch(context.Context) ([]listings.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.items, nil
}

type fakeMetrics struct {
	sessions int
	ops      []string
}

func (f *fakeMetrics) ObserveRecompute(op string, total int) { f.ops = append(f.ops, op) }
func (f *fakeMetrics) SetSessions(n int)                     { f.sessions = n }

var end = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T, src listings.Source, m metricsSink) *Registry {
	t.Helper()
	reg, err := NewRegistry(RegistryParams{
		Logger:     logger.Nop(),
		Source:     src,
		Metrics:    m,
		SessionTTL: time.Minute,
	})
	require.NoError(t, err)
	return reg
}

func TestNewRegistryRequiresDependencies(t *testing.T) {
	_, err := NewRegistry(RegistryParams{Source: &countingSource{}})
	assert.Error(t, err)
	_, err = NewRegistry(RegistryParams{Logger: logger.Nop()})
	assert.Error(t, err)
}

func TestMountLoadsSnapshotOnce(t *testing.T) {
	src := &countingSource{items: listings.GenerateMock(30, 1, end)}
	m := &fakeMetrics{}
	reg := newTestRegistry(t, src, m)
	ctx := context.Background()

	a, err := reg.Mount(ctx, "session-a")
	require.NoError(t, err)
	b, err := reg.Mount(ctx, "session-b")
	require.NoError(t, err)
	again, err := reg.Mount(ctx, "session-a")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 2, m.sessions)
	assert.Equal(t, 30, a.State().TotalCount)
	assert.Equal(t, 3, a.State().TotalPages)
}

func TestEnginesAreIndependentPerSession(t *testing.T) {
	reg := newTestRegistry(t, &countingSource{items: listings.GenerateMock(30, 1, end)}, nil)
	ctx := context.Background()
	a, _ := reg.Mount(ctx, "a")
	b, _ := reg.Mount(ctx, "b")

	a.NextPage()
	a.Search("zzz-no-match")
	assert.Equal(t, 1, b.State().CurrentPage)
	assert.Equal(t, "", b.State().SearchQuery)
	assert.Equal(t, 30, b.State().TotalCount)
}

func TestMountValidatesSessionAndSourceErrors(t *testing.T) {
	reg := newTestRegistry(t, &countingSource{err: errors.New("db down")}, nil)
	_, err := reg.Mount(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = reg.Mount(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 0, reg.Len())
}

func TestUnmountAndSweep(t *testing.T) {
	m := &fakeMetrics{}
	reg := newTestRegistry(t, &countingSource{}, m)
	clock := end
	reg.now = func() time.Time { return clock }
	ctx := context.Background()

	_, _ = reg.Mount(ctx, "old")
	clock = clock.Add(45 * time.Second)
	_, _ = reg.Mount(ctx, "fresh")

	assert.Equal(t, 1, reg.Sweep(clock.Add(30*time.Second)))
	assert.Nil(t, reg.Get("old"))
	assert.NotNil(t, reg.Get("fresh"))
	assert.Equal(t, 1, m.sessions)

	assert.True(t, reg.Unmount("fresh"))
	assert.False(t, reg.Unmount("fresh"))
	assert.Equal(t, 0, m.sessions)
}

func TestRefreshPushesSnapshotToMountedEngines(t *testing.T) {
	src := &countingSource{items: listings.GenerateMock(5, 1, end)}
	reg := newTestRegistry(t, src, nil)
	ctx := context.Background()
	engine, err := reg.Mount(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 5, engine.State().TotalCount)

	src.items = listings.GenerateMock(20, 2, end)
	n, err := reg.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, 20, engine.State().TotalCount)

	snap, err := reg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, 20)
}
