package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/weiwei-tsao/overlay-review/internal/platform/config"
	firestoreclient "github.com/weiwei-tsao/overlay-review/internal/platform/firestore"
)

// Dumps one raw Firestore document, e.g.
//
//	check-firestore import_watches 6f1c...
func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: check-firestore <collection> <docID>")
		os.Exit(2)
	}
	collection, docID := os.Args[1], os.Args[2]

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

	doc, err := client.Collection(collection).Doc(docID).Get(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("collection", collection).Str("doc", docID).Msg("get document")
	}

	fmt.Printf("Document: %s/%s\n", collection, docID)
	fmt.Printf("Document exists: %v\n\n", doc.Exists())

	data := doc.Data()
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("marshal document")
	}
	fmt.Println("Full document data:")
	fmt.Println(string(jsonData))

	fmt.Printf("\n=== Specific field checks ===\n")
	for _, field := range []string{"status", "severity", "code"} {
		if v, ok := data[field]; ok {
			fmt.Printf("%s field exists: '%v' (type: %T)\n", field, v, v)
		} else {
			fmt.Printf("%s field: DOES NOT EXIST in Firestore\n", field)
		}
	}
}
