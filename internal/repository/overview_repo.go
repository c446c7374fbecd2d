package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

const overviewsCollection = "overviews"

// OverviewRepository stores one severity snapshot document per project.
type OverviewRepository struct {
	client *firestore.Client
}

func NewOverviewRepository(client *firestore.Client) *OverviewRepository {
	return &OverviewRepository{client: client}
}

func (r *OverviewRepository) SaveOverview(ctx context.Context, overview model.SeverityOverview) error {
	if overview.ProjectID == "" {
		return fmt.Errorf("projectId is required")
	}
	overview.LastUpdated = time.Now().UTC()
	ref := r.client.Collection(overviewsCollection).Doc(overview.ProjectID)
	if _, err := ref.Set(ctx, overview); err != nil {
		return fmt.Errorf("save overview %s: %w", overview.ProjectID, err)
	}
	return nil
}

func (r *OverviewRepository) GetOverview(ctx context.Context, projectID string) (model.SeverityOverview, error) {
	snap, err := r.client.Collection(overviewsCollection).Doc(projectID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return model.SeverityOverview{}, fmt.Errorf("overview %s: %w", projectID, ErrNotFound)
		}
		return model.SeverityOverview{}, fmt.Errorf("get overview %s: %w", projectID, err)
	}
	var overview model.SeverityOverview
	if err := snap.DataTo(&overview); err != nil {
		return model.SeverityOverview{}, fmt.Errorf("decode overview %s: %w", projectID, err)
	}
	return overview, nil
}
