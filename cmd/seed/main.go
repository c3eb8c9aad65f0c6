package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/recordsdir/directory-backend/internal/config"
	"github.com/recordsdir/directory-backend/internal/db"
	"github.com/recordsdir/directory-backend/internal/db/entities"
	"github.com/recordsdir/directory-backend/internal/directory"
	"github.com/recordsdir/directory-backend/internal/search"
)

var (
	flags        = flag.NewFlagSet("seed", flag.ExitOnError)
	searchBy     = flags.String("search-by", "", "field to filter the printed listing on")
	searchString = flags.String("search", "", "text the filtered field must contain")
	sortBy       = flags.String("sort-by", "name", "field to sort the printed listing on")
	sortOrder    = flags.String("sort-order", "asc", "asc or desc")
)

func main() {
	flags.Parse(os.Args[1:])
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.NewDatabase(&db.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, nil)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}

	if err := db.ConnectAndMigrate(ctx, database, db.AllSchemas()); err != nil {
		log.Fatalf("Failed to setup database: %v", err)
	}
	defer database.Disconnect(ctx)

	fmt.Println("--- Seeding fixtures ---")
	seeded, err := db.SeedFixtures(ctx, database)
	if err != nil {
		log.Fatalf("Failed to seed fixtures: %v", err)
	}
	if seeded == 0 {
		fmt.Println("Countries already present, nothing seeded")
	} else {
		fmt.Printf("Seeded %d records\n", seeded)
	}

	countries := directory.NewCountryService(directory.NewCountryRepository(database.Repository(entities.CountrySchema)))
	persons := directory.NewPersonService(directory.NewPersonRepository(database.Repository(entities.PersonSchema)), countries)

	all, err := countries.GetAllCountries(ctx)
	if err != nil {
		log.Fatalf("Failed to list countries: %v", err)
	}
	fmt.Printf("\n--- Countries (%d) ---\n", len(all))
	for _, c := range all {
		fmt.Printf("  - %s (%s)\n", c.Name, c.ID)
	}

	filtered, err := persons.GetFilteredPersons(ctx, search.ParseField(*searchBy), *searchString)
	if err != nil {
		log.Fatalf("Failed to list persons: %v", err)
	}
	order := search.ParseOrder(*sortOrder)
	sorted := persons.GetSortedPersons(filtered, search.ParseField(*sortBy), order)

	fmt.Printf("\n--- Persons (%d, sorted by %s %s) ---\n", len(sorted), *sortBy, order)
	for _, p := range sorted {
		fmt.Println("  " + p.String())
	}
}
