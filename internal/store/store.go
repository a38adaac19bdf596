// Package store persists qualifying fraud cases. Drivers: postgres
// (Supabase-compatible), sqlite, and timestamped JSON files.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pixwatch/pixwatch/internal/config"
	"github.com/pixwatch/pixwatch/internal/model"
)

// Store defines the persistence interface for detected fraud cases.
type Store interface {
	// SaveFraudCases persists the cases and returns how many were written.
	SaveFraudCases(ctx context.Context, cases []model.FraudCase) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New creates the Store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, cfg.Table)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL, cfg.Table)
	case "file":
		return NewFile(cfg.ResultsDir), nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
