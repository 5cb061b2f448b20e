package main

import (
	"context"
	"flag"
	"os"

	"dodje/catalog"
	"dodje/config"
	"dodje/database"
	"dodje/logger"
	"dodje/store/gormstore"
)

// Imports a catalog document (JSON or YAML) into the configured database.
//
//	go run ./scripts -file catalog.yml
func main() {
	path := flag.String("file", "catalog.yml", "catalog document to import")
	dryRun := flag.Bool("dry-run", false, "parse and check the document without writing")
	flag.Parse()

	// Load config and connect to database
	config.LoadConfig()
	log, err := logger.New(config.AppConfig.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	entries, err := catalog.Load(*path)
	if err != nil {
		log.Fatal("Failed to load catalog", "file", *path, "error", err)
	}
	videos := 0
	for _, p := range entries {
		videos += len(p.Videos)
	}
	log.Info("Catalog parsed", "parcours", len(entries), "videos", videos)
	if *dryRun {
		os.Exit(0)
	}

	database.ConnectDb(log)
	repo := gormstore.NewCatalogRepo(database.Database.Db, log)

	ctx := context.Background()
	imported, failed := 0, 0
	for _, p := range entries {
		row, vids, quiz := p.Rows()
		if err := repo.Import(ctx, row, vids, quiz); err != nil {
			log.Error("Import failed", "parcours", p.ID, "error", err)
			failed++
			continue
		}
		imported++
	}
	log.Info("Import completed", "imported", imported, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}
