package db

import (
	"context"
	"database/sql"

	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/catalog"
)

// CatalogStore is the interface for catalog database operations
type CatalogStore interface {
	Connect(dsn string) (*sql.DB, error)
	Close() error
	InitSchema() error
	// Write side
	ReplaceAll(ctx context.Context, entries []catalog.CatalogEntry, run *BuildRun) error
	// Read side
	Lookup(ctx context.Context, a, b catalog.GlyphID) (*catalog.CatalogEntry, bool, error)
	AllEntries(ctx context.Context) ([]catalog.CatalogEntry, error)
	CountEntries(ctx context.Context) (int, error)
	LatestBuildRun(ctx context.Context) (*BuildRun, error)
}
