package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/weiwei-tsao/overlay-review/pkg/model"
	"github.com/weiwei-tsao/overlay-review/pkg/util"
)

const suggestionsCollection = "overlay_suggestions"

// SuggestionRepository handles Firestore read/write for raw overlay suggestions.
type SuggestionRepository struct {
	client *firestore.Client
}

func NewSuggestionRepository(client *firestore.Client) *SuggestionRepository {
	return &SuggestionRepository{client: client}
}

// ListSuggestions loads a project's suggestions in upstream order.
func (r *SuggestionRepository) ListSuggestions(ctx context.Context, projectID string) ([]model.Suggestion, error) {
	iter := r.client.Collection(suggestionsCollection).
		Where("projectId", "==", projectID).
		OrderBy("seq", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var result []model.Suggestion
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate suggestions for %s: %w", projectID, err)
		}
		var s model.Suggestion
		if err := doc.DataTo(&s); err != nil {
			return nil, fmt.Errorf("decode suggestion %s: %w", doc.Ref.ID, err)
		}
		// Stored values predate any parser change; parse them again.
		s.Severity = model.ParseSeverity(string(s.Severity))
		s.Status = model.ParseReviewStatus(string(s.Status))
		result = append(result, s)
	}
	return result, nil
}

// NextSeq returns one past the highest stored seq for a project, or 0 when the
// project has no suggestions yet.
func (r *SuggestionRepository) NextSeq(ctx context.Context, projectID string) (int, error) {
	iter := r.client.Collection(suggestionsCollection).
		Where("projectId", "==", projectID).
		OrderBy("seq", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read last seq for %s: %w", projectID, err)
	}
	var last model.Suggestion
	if err := doc.DataTo(&last); err != nil {
		return 0, fmt.Errorf("decode suggestion %s: %w", doc.Ref.ID, err)
	}
	return last.Seq + 1, nil
}

// AppendSuggestions writes suggestions in batches. Records that were already
// synced are overwritten in place.
func (r *SuggestionRepository) AppendSuggestions(ctx context.Context, projectID string, suggestions []model.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	const batchSize = 400

	for start := 0; start < len(suggestions); start += batchSize {
		end := start + batchSize
		if end > len(suggestions) {
			end = len(suggestions)
		}
		batch := r.client.Batch()
		for i, s := range suggestions[start:end] {
			s.ProjectID = projectID
			ref := r.client.Collection(suggestionsCollection).Doc(util.SuggestionDocID(projectID, s, start+i))
			batch.Set(ref, s)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("commit suggestion batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}
