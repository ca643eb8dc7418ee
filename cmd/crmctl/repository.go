package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/prospect-crm/internal/infra/database"
	"github.com/xavierca1/prospect-crm/internal/usecase"
)

func openDB() (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := database.NewDBConnection(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// openRepository wires the repository with direct audit writes; the CLI
// never goes through the queue.
func openRepository() (*usecase.ProspectRepository, *sql.DB, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	repo := usecase.NewProspectRepository(
		database.NewProspectStore(db, logger.Named("store")),
		database.NewActivityStore(db),
		database.NewFileStore(db),
		logger.Named("prospects"),
	)
	return repo, db, nil
}
