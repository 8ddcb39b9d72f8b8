// Package commands implements the command line subcommands.
package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/config"
)

func openDatabase(logger zerolog.Logger) (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	db, err := config.InitDatabase(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := config.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return cfg, db, nil
}
