package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"

	"github.com/weiwei-tsao/overlay-review/internal/platform/config"
	firestoreclient "github.com/weiwei-tsao/overlay-review/internal/platform/firestore"
	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

// Samples stored suggestions and shows which raw severity/status strings exist
// and what they parse to, to spot upstream vocabulary drift.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: check-severity <projectID> [limit]")
		os.Exit(2)
	}
	projectID := os.Args[1]
	limit := 200
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Str("limit", os.Args[2]).Msg("invalid limit")
		}
		limit = n
	}

	_ = godotenv.Load(".env.local", ".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}

	ctx := context.Background()
	client, _, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("firestore init")
	}
	defer client.Close()

	iter := client.Collection("overlay_suggestions").
		Where("projectId", "==", projectID).
		OrderBy("seq", firestore.Asc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	severityCounts := make(map[string]int)
	statusCounts := make(map[string]int)
	total := 0

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("iterate suggestions")
		}

		data := doc.Data()
		total++

		rawSeverity, _ := data["severity"].(string)
		rawStatus, _ := data["status"].(string)
		severityCounts[fmt.Sprintf("%q -> %s", rawSeverity, model.ParseSeverity(rawSeverity))]++
		statusCounts[fmt.Sprintf("%q -> %s", rawStatus, model.ParseReviewStatus(rawStatus))]++

		if total <= 5 {
			fmt.Printf("\nSample %d (%s):\n", total, doc.Ref.ID)
			fmt.Printf("  Code: %v\n", data["code"])
			fmt.Printf("  Severity: '%s'\n", rawSeverity)
			fmt.Printf("  Status: '%s'\n", rawStatus)
			fmt.Printf("  UpdatedAt: %v\n", data["updatedAt"])
		}
	}

	fmt.Printf("\n=== Summary of %d suggestions ===\n", total)
	fmt.Printf("\nSeverity value distribution:\n")
	for val, count := range severityCounts {
		fmt.Printf("  %s: %d\n", val, count)
	}

	fmt.Printf("\nStatus value distribution:\n")
	for val, count := range statusCounts {
		fmt.Printf("  %s: %d\n", val, count)
	}
}
