package imports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

var (
	// ErrWatchNotRunning is returned when cancelling a watch that already ended.
	ErrWatchNotRunning = errors.New("import watch is not running")
	// ErrImportIDRequired is returned when a watch is requested without an import id.
	ErrImportIDRequired = errors.New("importId is required")
)

const shutdownPersistTimeout = 5 * time.Second

// WatchStore persists import watch records.
type WatchStore interface {
	CreateWatch(ctx context.Context, watch model.ImportWatch) error
	UpdateWatch(ctx context.Context, watch model.ImportWatch) error
	GetWatch(ctx context.Context, watchID string) (model.ImportWatch, error)
	ListWatches(ctx context.Context, limit int) ([]model.ImportWatch, error)
}

// Watcher runs polling sessions on behalf of API callers and records every
// update, so the upload flow can read progress without polling upstream itself.
type Watcher struct {
	poller *Poller
	store  WatchStore
	jobs   *JobManager
	logger zerolog.Logger

	mu     sync.Mutex
	active map[string]*activeWatch
}

// activeWatch is the in-memory record of a running watch. Its mutex serialises
// the session's updates with Cancel and Shutdown; once done is set no further
// write may touch the record.
type activeWatch struct {
	mu     sync.Mutex
	record model.ImportWatch
	done   bool
}

func NewWatcher(poller *Poller, store WatchStore, logger zerolog.Logger) *Watcher {
	return &Watcher{
		poller: poller,
		store:  store,
		jobs:   NewJobManager(),
		logger: logger.With().Str("component", "import_watcher").Logger(),
		active: make(map[string]*activeWatch),
	}
}

// Watch starts polling importID in the background and returns the new record.
// The session outlives ctx; only Cancel, Shutdown or a terminal update end it.
func (w *Watcher) Watch(ctx context.Context, importID string) (model.ImportWatch, error) {
	if importID == "" {
		return model.ImportWatch{}, ErrImportIDRequired
	}
	watch := model.ImportWatch{
		WatchID:   uuid.NewString(),
		ImportID:  importID,
		Status:    string(model.ImportQueued),
		StartedAt: time.Now().UTC(),
	}
	if err := w.store.CreateWatch(ctx, watch); err != nil {
		return model.ImportWatch{}, fmt.Errorf("create watch for %s: %w", importID, err)
	}

	logger := w.logger.With().Str("watch", watch.WatchID).Str("import", importID).Logger()
	aw := &activeWatch{record: watch}
	registered := make(chan struct{})

	stop := w.poller.Start(context.Background(), importID, func(update model.ImportStatus) {
		<-registered
		aw.mu.Lock()
		defer aw.mu.Unlock()
		if aw.done {
			return
		}
		aw.record.Updates++
		aw.record.LastUpdate = update
		aw.record.Status = string(update.Status)
		if update.Status.IsTerminal() {
			aw.done = true
			aw.record.FinishedAt = time.Now().UTC()
			w.forget(aw.record.WatchID)
			logger.Info().Str("status", aw.record.Status).Int("updates", aw.record.Updates).Msg("import watch finished")
		}
		if err := w.store.UpdateWatch(context.Background(), aw.record); err != nil {
			logger.Error().Err(err).Msg("persist import watch update")
		}
	})
	w.mu.Lock()
	w.active[watch.WatchID] = aw
	w.mu.Unlock()
	w.jobs.Register(watch.WatchID, stop)
	close(registered)

	logger.Info().Msg("import watch started")
	return watch, nil
}

func (w *Watcher) forget(watchID string) {
	w.mu.Lock()
	delete(w.active, watchID)
	w.mu.Unlock()
	w.jobs.Unregister(watchID)
}

// finish stops a running watch and persists it as cancelled. It reports false
// if the watch already ended.
func (w *Watcher) finish(ctx context.Context, aw *activeWatch) (model.ImportWatch, bool, error) {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	if aw.done {
		return model.ImportWatch{}, false, nil
	}
	aw.done = true
	w.jobs.Cancel(aw.record.WatchID)
	aw.record.Status = model.WatchCancelled
	aw.record.FinishedAt = time.Now().UTC()
	record := aw.record

	w.mu.Lock()
	delete(w.active, record.WatchID)
	w.mu.Unlock()

	if err := w.store.UpdateWatch(ctx, record); err != nil {
		return record, true, fmt.Errorf("mark watch %s cancelled: %w", record.WatchID, err)
	}
	return record, true, nil
}

// Cancel stops a running watch and marks its record cancelled.
func (w *Watcher) Cancel(ctx context.Context, watchID string) (model.ImportWatch, error) {
	w.mu.Lock()
	aw, ok := w.active[watchID]
	w.mu.Unlock()
	if !ok {
		return model.ImportWatch{}, ErrWatchNotRunning
	}
	watch, ok, err := w.finish(ctx, aw)
	if !ok {
		return model.ImportWatch{}, ErrWatchNotRunning
	}
	if err != nil {
		return model.ImportWatch{}, err
	}
	w.logger.Info().Str("watch", watchID).Msg("import watch cancelled")
	return watch, nil
}

// Get returns a watch record.
func (w *Watcher) Get(ctx context.Context, watchID string) (model.ImportWatch, error) {
	return w.store.GetWatch(ctx, watchID)
}

// List returns the most recent watch records.
func (w *Watcher) List(ctx context.Context, limit int) ([]model.ImportWatch, error) {
	return w.store.ListWatches(ctx, limit)
}

// IsRunning reports whether a watch is still polling.
func (w *Watcher) IsRunning(watchID string) bool {
	return w.jobs.IsRunning(watchID)
}

// Shutdown stops every running watch and marks each record cancelled.
func (w *Watcher) Shutdown() {
	w.mu.Lock()
	running := make([]*activeWatch, 0, len(w.active))
	for _, aw := range w.active {
		running = append(running, aw)
	}
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownPersistTimeout)
	defer cancel()

	stopped := 0
	for _, aw := range running {
		watch, ok, err := w.finish(ctx, aw)
		if err != nil {
			w.logger.Error().Err(err).Str("watch", watch.WatchID).Msg("persist cancelled watch on shutdown")
		}
		if ok {
			stopped++
		}
	}
	w.jobs.CancelAll()
	if stopped > 0 {
		w.logger.Info().Int("watches", stopped).Msg("stopped running import watches")
	}
}
