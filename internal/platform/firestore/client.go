package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/weiwei-tsao/overlay-review/internal/platform/config"
)

// New creates a Firestore client using credentials provided via env (base64 or file).
// It returns the client and a description of which credential source was used.
func New(ctx context.Context, cfg config.Config) (*firestore.Client, string, error) {
	creds, source, err := cfg.FirebaseCredentialsJSON()
	if err != nil {
		return nil, "", err
	}

	client, err := firestore.NewClient(ctx, cfg.FirebaseProjectID, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, "", fmt.Errorf("init firestore client (%s credentials): %w", source, err)
	}
	return client, source, nil
}

// Ping reads at most one document from collection to prove the credentials
// can reach the database. An empty collection is fine.
func Ping(ctx context.Context, client *firestore.Client, collection string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	iter := client.Collection(collection).Limit(1).Documents(ctx)
	defer iter.Stop()
	_, err := iter.Next()
	if err == nil || errors.Is(err, iterator.Done) {
		return nil
	}
	return fmt.Errorf("ping firestore collection %s: %w", collection, err)
}
