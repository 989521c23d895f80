package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hayago/tracking-service/config"
	"github.com/hayago/tracking-service/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	configPath    = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	migrationsDir = flag.String("migrations", "migrations", "Path to the migrations directory")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	client, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Pool.Close()

	applyMigrations(client.Pool, *migrationsDir)
}

// applyMigrations runs every *.sql file in lexical order. The statements
// are written to be re-runnable, so there is no version bookkeeping.
func applyMigrations(db *pgxpool.Pool, dir string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.Fatalf("applyMigrations: list %s: %v", dir, err)
	}
	if len(files) == 0 {
		log.Fatalf("applyMigrations: no migration files in %s", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("applyMigrations: read %s: %v", file, err)
		}

		tx, err := db.Begin(ctx)
		if err != nil {
			log.Fatalf("applyMigrations: begin tx: %v", err)
		}

		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			log.Fatalf("applyMigrations: apply %s: %v", file, err)
		}

		if err := tx.Commit(ctx); err != nil {
			log.Fatalf("applyMigrations: commit %s: %v", file, err)
		}

		log.Printf("applyMigrations: applied %s", filepath.Base(file))
	}
}
