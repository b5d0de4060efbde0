package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ha1tch/meditactive/pkg/catalog"
	"github.com/ha1tch/meditactive/pkg/config"
	"github.com/ha1tch/meditactive/pkg/storage"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Println("Usage: meditactive-seed [target]")
		fmt.Println("  target is a SQLite path, or a DSN when DB_DRIVER=postgres.")
		fmt.Println("  Without a target the DB_* environment settings are used.")
		fmt.Println("Example: meditactive-seed ./meditactive.db")
		os.Exit(0)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg := config.Default()
	config.LoadFromEnv(cfg)
	if len(os.Args) > 1 {
		if cfg.DBDriver == "postgres" {
			cfg.DBDSN = os.Args[1]
		} else {
			cfg.DBPath = os.Args[1]
		}
	}

	if err := seed(cfg); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Seeding completed successfully!")
}

func seed(cfg *config.Config) error {
	ctx := context.Background()

	fmt.Printf("Opening %s database...\n", cfg.DBDriver)
	db, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	fmt.Println("Applying schema...")
	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}
	version, err := storage.Version(ctx, db)
	if err != nil {
		return err
	}
	fmt.Printf("  Schema version: %d\n", version)

	fmt.Println("Seeding catalog...")
	if err := storage.SeedCatalog(ctx, db, storage.DefaultGoals, storage.DefaultSessionTypes); err != nil {
		return err
	}

	// Read back through the resolver so the summary reflects what the engine sees
	resolver := catalog.NewResolver(0, 0)
	goals, err := resolver.ListGoals(ctx, db)
	if err != nil {
		return err
	}
	types, err := resolver.ListSessionTypes(ctx, db)
	if err != nil {
		return err
	}

	fmt.Printf("\nCatalog summary:\n")
	fmt.Printf("  Goals: %d\n", len(goals))
	for _, g := range goals {
		fmt.Printf("    %d  %s\n", g.ID, g.Title)
	}
	fmt.Printf("  Session types: %d\n", len(types))
	for _, st := range types {
		fmt.Printf("    %d  %s (%d min)\n", st.ID, st.Name, st.DurationMinutes)
	}
	return nil
}
