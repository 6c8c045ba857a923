// Package storage persists the per-household constraint log and the latest
// solved day. The constraint log is append-only: superseding a constraint
// flags it rather than deleting it, so every schedule change stays traceable
// to a user statement.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/homeflux/homeflux/pkg/types"
)

// ErrNotFound is returned when a household has no stored day.
var ErrNotFound = errors.New("storage: not found")

// Day bundles a forecast with the schedule solved against it. Storing them
// together lets a restarted process serve and explain the stored plan
// without waiting for a new forecast.
type Day struct {
	Forecast types.Forecast `json:"forecast"`
	Schedule types.Schedule `json:"schedule"`
}

// Database stores constraint logs and solved days keyed by household id.
type Database interface {
	// InsertConstraint appends a constraint to the household's log.
	InsertConstraint(ctx context.Context, household string, c types.UsageConstraint) error
	// MarkSuperseded flags an existing constraint as replaced by another.
	MarkSuperseded(ctx context.Context, household, id, byID string) error
	// ListConstraints returns the household's full log in creation order,
	// superseded entries included.
	ListConstraints(ctx context.Context, household string) ([]types.UsageConstraint, error)

	// UpsertDay stores the household's current forecast and schedule,
	// replacing any previous day.
	UpsertDay(ctx context.Context, household string, d Day) error
	// GetDay returns the household's current day or ErrNotFound.
	GetDay(ctx context.Context, household string) (Day, error)

	Close() error
}

// Configured returns the Database selected by flags. The default is an
// on-disk sqlite database; -storage-provider=memory keeps everything
// in-process for development.
func Configured() Database {
	db := &holder{}

	provider := lflag.String("storage-provider", "sqlite", "Storage backend, sqlite or memory")
	path := lflag.String("sqlite-path", "homeflux.db", "Path to the sqlite database file")

	lflag.Do(func() {
		switch *provider {
		case "memory":
			db.Database = NewMemory()
		case "sqlite":
			sq, err := NewSQLite(*path)
			if err != nil {
				panic(fmt.Sprintf("failed to open sqlite database: %v", err))
			}
			db.Database = sq
		default:
			panic(fmt.Sprintf("unknown storage provider %q", *provider))
		}
	})
	return db
}

// holder lets Configured hand back a Database before lflag.Do has run.
type holder struct {
	Database
}
