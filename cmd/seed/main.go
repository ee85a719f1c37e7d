// Command seed writes a dataset into the configured database, or exports it
// as YAML for SEED_SOURCE=file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"moments/internal/config"
	"moments/internal/database"
	"moments/internal/models"
	"moments/internal/repository"
	"moments/internal/seed"
	"moments/internal/store"
)

func main() {
	// Parse command line flags
	synthetic := flag.Int("synthetic", 0, "Generate a synthetic dataset with this many users instead of the built-in one")
	randSeed := flag.Int64("seed", 0, "Random seed for synthetic data (0 picks one)")
	from := flag.String("from", "", "Read the dataset from this YAML file instead")
	export := flag.String("export", "", "Write the dataset as YAML to this path instead of the database")
	flag.Parse()

	log.Println("Moments seeder")

	ds, err := dataset(*from, *synthetic, *randSeed)
	if err != nil {
		log.Fatalf("Failed to build dataset: %v", err)
	}

	// Fail before writing anything if the dataset would not load.
	if _, err := store.Load(ds, store.LoadOptions{}); err != nil {
		log.Fatalf("Dataset is invalid: %v", err)
	}

	counts := ds.Counts()
	log.Printf("Dataset: %d users, %d moments, %d rsvps, %d follows",
		counts["users"], counts["moments"], counts["rsvps"], counts["follows"])

	if *export != "" {
		f, err := os.Create(*export)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *export, err)
		}
		defer func() { _ = f.Close() }()
		if err := seed.Export(f, ds); err != nil {
			log.Fatalf("Failed to export dataset: %v", err)
		}
		log.Printf("Exported dataset to %s", *export)
		return
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := repository.NewDatasetRepository(db).Replace(ctx, ds); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Database seeded. Start the server with SEED_SOURCE=database to serve it.")
}

func dataset(from string, synthetic int, randSeed int64) (*models.Dataset, error) {
	switch {
	case from != "":
		return seed.LoadFile(from)
	case synthetic > 0:
		opts := seed.DefaultGenerateOptions
		opts.Users = synthetic
		opts.Seed = randSeed
		return seed.Generate(opts), nil
	default:
		return seed.Builtin()
	}
}
