package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/database"
)

// InitializeDatabases opens library.db and runs.db and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. library.db - Graphs and segments, read-mostly
	libraryDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "library.db"),
		Profile: database.ProfileCatalog,
		Name:    database.NameLibrary,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize library database: %w", err)
	}
	container.LibraryDB = libraryDB

	// 2. runs.db - Run history
	runsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "runs.db"),
		Profile: database.ProfileStandard,
		Name:    database.NameRuns,
	})
	if err != nil {
		libraryDB.Close()
		return nil, fmt.Errorf("failed to initialize runs database: %w", err)
	}
	container.RunsDB = runsDB

	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("All databases initialized and schemas applied")

	return container, nil
}
