package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

// ErrNoUpstream is returned by Sync when the service has no suggestion fetcher.
var ErrNoUpstream = errors.New("overlay: no upstream suggestion source configured")

// SuggestionStore persists the raw, append-only suggestion stream per project.
type SuggestionStore interface {
	ListSuggestions(ctx context.Context, projectID string) ([]model.Suggestion, error)
	NextSeq(ctx context.Context, projectID string) (int, error)
	AppendSuggestions(ctx context.Context, projectID string, suggestions []model.Suggestion) error
}

// SuggestionFetcher reads the current suggestion stream from the upstream API.
type SuggestionFetcher interface {
	FetchSuggestions(ctx context.Context, projectID string) ([]model.Suggestion, error)
}

// OverviewStore persists dashboard snapshots.
type OverviewStore interface {
	SaveOverview(ctx context.Context, overview model.SeverityOverview) error
	GetOverview(ctx context.Context, projectID string) (model.SeverityOverview, error)
}

// Service serves reconciled suggestion views backed by storage.
type Service struct {
	store     SuggestionStore
	upstream  SuggestionFetcher
	overviews OverviewStore
	workerCnt int
	logger    zerolog.Logger

	syncMu sync.Mutex // serialises Sync so seq ranges never overlap
}

func NewService(store SuggestionStore, upstream SuggestionFetcher, overviews OverviewStore, workerCnt int, logger zerolog.Logger) *Service {
	if workerCnt <= 0 {
		workerCnt = 5
	}
	return &Service{
		store:     store,
		upstream:  upstream,
		overviews: overviews,
		workerCnt: workerCnt,
		logger:    logger.With().Str("component", "overlay").Logger(),
	}
}

// Aggregated loads a project's suggestions and reconciles them.
func (s *Service) Aggregated(ctx context.Context, projectID string) ([]model.AggregatedSuggestion, error) {
	raw, err := s.store.ListSuggestions(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions for %s: %w", projectID, err)
	}
	groups := Aggregate(raw)
	recordAggregation(len(raw), len(groups))
	return groups, nil
}

// Overview computes severity buckets and percentages for the visible statuses.
// An empty visible list means every status.
func (s *Service) Overview(ctx context.Context, projectID string, visible []model.ReviewStatus) (model.SeverityOverview, error) {
	groups, err := s.Aggregated(ctx, projectID)
	if err != nil {
		return model.SeverityOverview{}, err
	}
	if len(visible) == 0 {
		visible = model.AllReviewStatuses
	}
	buckets := CountSeverityBuckets(groups, visible)
	return model.SeverityOverview{
		ProjectID:       projectID,
		Groups:          len(groups),
		Buckets:         buckets,
		Percentages:     CalculateSeverityPercentages(buckets),
		VisibleStatuses: visible,
		LastUpdated:     time.Now().UTC(),
	}, nil
}

// StoredOverview returns the last persisted snapshot for a project.
func (s *Service) StoredOverview(ctx context.Context, projectID string) (model.SeverityOverview, error) {
	return s.overviews.GetOverview(ctx, projectID)
}

// Sync copies the upstream suggestion stream into storage and returns how many
// records were written. Each sync continues the project's seq sequence, so
// records keep upstream order across full and incremental responses alike.
func (s *Service) Sync(ctx context.Context, projectID string) (int, error) {
	if s.upstream == nil {
		return 0, ErrNoUpstream
	}
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	fetched, err := s.upstream.FetchSuggestions(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("fetch upstream suggestions for %s: %w", projectID, err)
	}
	next, err := s.store.NextSeq(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("next seq for %s: %w", projectID, err)
	}
	for i := range fetched {
		fetched[i].ProjectID = projectID
		fetched[i].Seq = next + i
	}
	if err := s.store.AppendSuggestions(ctx, projectID, fetched); err != nil {
		return 0, fmt.Errorf("append suggestions for %s: %w", projectID, err)
	}
	s.logger.Info().Str("project", projectID).Int("suggestions", len(fetched)).Msg("synced suggestions")
	return len(fetched), nil
}

// RefreshOverviews recomputes and stores snapshots for each project with bounded
// concurrency. The first failure cancels the remaining work.
func (s *Service) RefreshOverviews(ctx context.Context, projectIDs []string) ([]model.SeverityOverview, error) {
	results := make([]model.SeverityOverview, len(projectIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCnt)
	for i, id := range projectIDs {
		g.Go(func() error {
			ov, err := s.Overview(ctx, id, nil)
			if err != nil {
				return err
			}
			if err := s.overviews.SaveOverview(ctx, ov); err != nil {
				return fmt.Errorf("save overview %s: %w", id, err)
			}
			results[i] = ov
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Info().Int("projects", len(projectIDs)).Msg("refreshed overviews")
	return results, nil
}
