package imports

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

const (
	DefaultInterval = time.Second
	DefaultTimeout  = 5 * time.Minute
)

// StatusFetcher reads the current status of an import job. The poller does not
// care how: HTTP, a mock, anything.
type StatusFetcher interface {
	FetchImportStatus(ctx context.Context, importID string) (model.ImportStatus, error)
}

// StatusFetcherFunc adapts a plain function to StatusFetcher.
type StatusFetcherFunc func(ctx context.Context, importID string) (model.ImportStatus, error)

func (f StatusFetcherFunc) FetchImportStatus(ctx context.Context, importID string) (model.ImportStatus, error) {
	return f(ctx, importID)
}

// UpdateFunc receives every observed status, in order, from a single goroutine.
type UpdateFunc func(update model.ImportStatus)

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the minimum gap between the end of one fetch and the start of the next.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTimeout sets how long a session may run before giving up.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// Poller drives import status polling sessions. It holds no per-session state,
// so one Poller can run any number of independent sessions.
type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPoller(fetcher StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start fetches the status of importID immediately and keeps fetching until the
// job reaches a terminal state, a fetch fails, the timeout elapses, ctx is done
// or the returned stop function is called. Stop is idempotent; a fetch already in
// flight is not aborted but its result is dropped.
func (p *Poller) Start(ctx context.Context, importID string, onUpdate UpdateFunc) (stop func()) {
	s := &session{
		poller:   p,
		importID: importID,
		onUpdate: onUpdate,
		stopCh:   make(chan struct{}),
	}
	go s.run(ctx)
	return s.stop
}

type session struct {
	poller   *Poller
	importID string
	onUpdate UpdateFunc

	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

func (s *session) stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.stopCh)
	})
}

func (s *session) run(ctx context.Context) {
	p := s.poller
	logger := p.logger.With().Str("import", s.importID).Logger()
	deadline := p.now().Add(p.timeout)

	for {
		status, err := p.fetcher.FetchImportStatus(ctx, s.importID)
		if s.stopped.Load() {
			recordSession("cancelled")
			return
		}
		if err != nil {
			recordFetch("error")
			logger.Warn().Err(err).Msg("import status fetch failed")
			s.deliver(model.ImportStatus{
				ImportID: s.importID,
				Status:   model.ImportError,
				Error:    err.Error(),
			})
			recordSession("error")
			return
		}
		recordFetch("ok")
		if status.ImportID == "" {
			status.ImportID = s.importID
		}
		s.deliver(status)

		if status.Status.IsTerminal() {
			logger.Debug().Str("status", string(status.Status)).Msg("import reached terminal state")
			recordSession(string(status.Status))
			return
		}
		if !p.now().Before(deadline) {
			logger.Warn().Dur("timeout", p.timeout).Msg("import status polling timed out")
			s.deliver(model.ImportStatus{
				ImportID:       s.importID,
				Status:         model.ImportTimedOut,
				DetectedFloors: status.DetectedFloors,
				DetectedUnits:  status.DetectedUnits,
				Error:          "import status polling timed out",
			})
			recordSession(string(model.ImportTimedOut))
			return
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-timer.C:
		case <-s.stopCh:
			timer.Stop()
			recordSession("cancelled")
			return
		case <-ctx.Done():
			timer.Stop()
			recordSession("cancelled")
			return
		}
	}
}

func (s *session) deliver(update model.ImportStatus) {
	if s.stopped.Load() || s.onUpdate == nil {
		return
	}
	s.onUpdate(update)
}
