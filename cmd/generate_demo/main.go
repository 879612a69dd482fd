// Command generate_demo creates a demo database with a sample library and a
// few weeks of replayed reading sessions.
// Usage: go run ./cmd/generate_demo [-db path/to/demo.db] [-books dir] [-days 14]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/demo"
	"github.com/mrlokans/readtrack/internal/entrypoint"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	defaultDemoBooksDir     = "./demo/books"
)

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	booksDir := flag.String("books", defaultDemoBooksDir, "directory the sample books are written to")
	days := flag.Int("days", 14, "number of past days to replay")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	cfg := config.NewConfig()
	cfg.Database.Path = *dbPath
	cfg.Database.Backend = config.StoreBackendSQLite
	cfg.Metrics.Enabled = false

	clk := clock.NewManual(time.Now())
	app, err := entrypoint.NewAppWithClock(cfg, clk)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer app.Close()

	seeder := &demo.Seeder{
		Catalog: app.Catalog,
		Reader:  app.Reader,
		App:     app.AppClock,
		Notes:   app.Index,
		Clock:   clk,
		Dir:     *booksDir,
	}
	res, err := seeder.Seed(context.Background(), *days)
	if err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}

	for _, b := range res.Books {
		log.Printf("Saved: %s (book %s, favourite=%t)", b.Title, b.ID, b.Favorite)
	}
	log.Println("Demo database generated successfully!")
}
