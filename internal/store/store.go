// Package store persists the session (operator profile, credit balance and
// lead collection) as independent JSON-encoded keys.
package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Session state keys. Each is written and rehydrated independently.
const (
	KeyProfile = "profile"
	KeyCredits = "credits"
	KeyLeads   = "leads"
)

// Store defines the persistence interface for session state.
type Store interface {
	// LoadState returns every stored key with its raw JSON value.
	LoadState(ctx context.Context) (map[string][]byte, error)
	// SaveState upserts the given keys atomically; absent keys are untouched.
	SaveState(ctx context.Context, entries map[string][]byte) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver and runs migrations.
func Open(ctx context.Context, driver, databaseURL string, poolCfg *PoolConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case "sqlite", "":
		st, err = NewSQLite(databaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, databaseURL, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
