package imports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

var errNotFound = errors.New("not found")

type memoryWatchStore struct {
	mu      sync.Mutex
	watches map[string]model.ImportWatch
	updates int
}

func newMemoryWatchStore() *memoryWatchStore {
	return &memoryWatchStore{watches: make(map[string]model.ImportWatch)}
}

func (m *memoryWatchStore) CreateWatch(ctx context.Context, w model.ImportWatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watches[w.WatchID] = w
	return nil
}

func (m *memoryWatchStore) UpdateWatch(ctx context.Context, w model.ImportWatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watches[w.WatchID] = w
	m.updates++
	return nil
}

func (m *memoryWatchStore) GetWatch(ctx context.Context, id string) (model.ImportWatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watches[id]
	if !ok {
		return model.ImportWatch{}, errNotFound
	}
	return w, nil
}

func (m *memoryWatchStore) ListWatches(ctx context.Context, limit int) ([]model.ImportWatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ImportWatch, 0, len(m.watches))
	for _, w := range m.watches {
		out = append(out, w)
	}
	return out, nil
}

func TestWatcherRecordsUpdatesUntilTerminal(t *testing.T) {
	fetcher := &scriptedFetcher{states: []model.ImportState{model.ImportRunning, model.ImportCompleted}}
	store := newMemoryWatchStore()
	w := NewWatcher(NewPoller(fetcher, WithInterval(time.Millisecond)), store, zerolog.Nop())

	watch, err := w.Watch(context.Background(), "imp-1")
	require.NoError(t, err)
	assert.NotEmpty(t, watch.WatchID)
	assert.Equal(t, string(model.ImportQueued), watch.Status)

	require.Eventually(t, func() bool {
		got, err := store.GetWatch(context.Background(), watch.WatchID)
		return err == nil && got.Status == string(model.ImportCompleted)
	}, 2*time.Second, time.Millisecond)

	got, err := w.Get(context.Background(), watch.WatchID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Updates)
	assert.False(t, got.FinishedAt.IsZero())
	assert.Equal(t, model.ImportCompleted, got.LastUpdate.Status)
	assert.False(t, w.IsRunning(watch.WatchID))
}

func TestWatcherCancel(t *testing.T) {
	fetcher := &scriptedFetcher{states: []model.ImportState{model.ImportRunning}}
	store := newMemoryWatchStore()
	w := NewWatcher(NewPoller(fetcher, WithInterval(time.Hour)), store, zerolog.Nop())

	watch, err := w.Watch(context.Background(), "imp-2")
	require.NoError(t, err)
	assert.True(t, w.IsRunning(watch.WatchID))

	cancelled, err := w.Cancel(context.Background(), watch.WatchID)
	require.NoError(t, err)
	assert.Equal(t, model.WatchCancelled, cancelled.Status)
	assert.False(t, w.IsRunning(watch.WatchID))

	_, err = w.Cancel(context.Background(), watch.WatchID)
	require.ErrorIs(t, err, ErrWatchNotRunning)
}

// gatedWatchStore holds the first UpdateWatch until release is closed.
type gatedWatchStore struct {
	*memoryWatchStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedWatchStore) UpdateWatch(ctx context.Context, w model.ImportWatch) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memoryWatchStore.UpdateWatch(ctx, w)
}

func TestWatcherCancelDuringUpdateStaysCancelled(t *testing.T) {
	fetcher := &scriptedFetcher{states: []model.ImportState{model.ImportRunning}}
	store := &gatedWatchStore{
		memoryWatchStore: newMemoryWatchStore(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	w := NewWatcher(NewPoller(fetcher, WithInterval(time.Hour)), store, zerolog.Nop())

	watch, err := w.Watch(context.Background(), "imp-3")
	require.NoError(t, err)

	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first update never reached the store")
	}

	cancelErr := make(chan error, 1)
	go func() {
		_, err := w.Cancel(context.Background(), watch.WatchID)
		cancelErr <- err
	}()
	time.Sleep(10 * time.Millisecond)
	close(store.release)
	require.NoError(t, <-cancelErr)

	got, err := store.GetWatch(context.Background(), watch.WatchID)
	require.NoError(t, err)
	assert.Equal(t, model.WatchCancelled, got.Status)
	assert.False(t, got.FinishedAt.IsZero())
	assert.False(t, w.IsRunning(watch.WatchID))
}

func TestWatcherRequiresImportID(t *testing.T) {
	w := NewWatcher(NewPoller(&scriptedFetcher{states: []model.ImportState{model.ImportCompleted}}), newMemoryWatchStore(), zerolog.Nop())
	_, err := w.Watch(context.Background(), "")
	require.ErrorIs(t, err, ErrImportIDRequired)
}

func TestWatcherShutdown(t *testing.T) {
	fetcher := &scriptedFetcher{states: []model.ImportState{model.ImportRunning}}
	store := newMemoryWatchStore()
	w := NewWatcher(NewPoller(fetcher, WithInterval(time.Hour)), store, zerolog.Nop())

	a, err := w.Watch(context.Background(), "imp-a")
	require.NoError(t, err)
	b, err := w.Watch(context.Background(), "imp-b")
	require.NoError(t, err)

	w.Shutdown()
	for _, id := range []string{a.WatchID, b.WatchID} {
		assert.False(t, w.IsRunning(id))
		got, err := store.GetWatch(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.WatchCancelled, got.Status)
		assert.False(t, got.FinishedAt.IsZero())
	}

	_, err = w.Cancel(context.Background(), a.WatchID)
	require.ErrorIs(t, err, ErrWatchNotRunning)
}

func TestJobManager(t *testing.T) {
	jm := NewJobManager()
	var stopped int
	jm.Register("w1", func() { stopped++ })

	assert.True(t, jm.IsRunning("w1"))
	assert.True(t, jm.Cancel("w1"))
	assert.False(t, jm.Cancel("w1"))
	assert.Equal(t, 1, stopped)

	jm.Register("w2", func() { stopped++ })
	jm.Unregister("w2")
	assert.False(t, jm.IsRunning("w2"))
	assert.Equal(t, 0, jm.CancelAll())
}
