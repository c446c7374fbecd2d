package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

const watchesCollection = "import_watches"

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// WatchRepository manages import watch lifecycle records.
type WatchRepository struct {
	client *firestore.Client
}

func NewWatchRepository(client *firestore.Client) *WatchRepository {
	return &WatchRepository{client: client}
}

func (r *WatchRepository) CreateWatch(ctx context.Context, watch model.ImportWatch) error {
	if watch.WatchID == "" {
		return fmt.Errorf("watchId is required")
	}
	ref := r.client.Collection(watchesCollection).Doc(watch.WatchID)
	if _, err := ref.Create(ctx, watch); err != nil {
		return fmt.Errorf("create watch %s: %w", watch.WatchID, err)
	}
	return nil
}

func (r *WatchRepository) UpdateWatch(ctx context.Context, watch model.ImportWatch) error {
	if watch.WatchID == "" {
		return fmt.Errorf("watchId is required")
	}
	ref := r.client.Collection(watchesCollection).Doc(watch.WatchID)
	if _, err := ref.Set(ctx, watch); err != nil {
		return fmt.Errorf("update watch %s: %w", watch.WatchID, err)
	}
	return nil
}

func (r *WatchRepository) GetWatch(ctx context.Context, watchID string) (model.ImportWatch, error) {
	snap, err := r.client.Collection(watchesCollection).Doc(watchID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return model.ImportWatch{}, fmt.Errorf("watch %s: %w", watchID, ErrNotFound)
		}
		return model.ImportWatch{}, fmt.Errorf("get watch %s: %w", watchID, err)
	}
	var watch model.ImportWatch
	if err := snap.DataTo(&watch); err != nil {
		return model.ImportWatch{}, fmt.Errorf("decode watch %s: %w", watchID, err)
	}
	return watch, nil
}

// ListWatches returns the newest watches first.
func (r *WatchRepository) ListWatches(ctx context.Context, limit int) ([]model.ImportWatch, error) {
	if limit <= 0 {
		limit = 20
	}
	iter := r.client.Collection(watchesCollection).
		OrderBy("startedAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var result []model.ImportWatch
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate watches: %w", err)
		}
		var w model.ImportWatch
		if err := doc.DataTo(&w); err != nil {
			return nil, fmt.Errorf("decode watch %s: %w", doc.Ref.ID, err)
		}
		result = append(result, w)
	}
	return result, nil
}
