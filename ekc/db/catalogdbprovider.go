package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/catalog"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
)

const issuedOnLayout = "2006-01-02"

// BuildRun records one full catalog rebuild. It is written in the same
// transaction as the entries it produced.
type BuildRun struct {
	ID             uuid.UUID
	Source         string
	StartedAt      time.Time
	FinishedAt     time.Time
	RowsRead       int
	RowsSkipped    int
	EntriesWritten int
}

// CatalogDBProvider persists the resolved combination catalog.
type CatalogDBProvider struct {
	db *sql.DB
}

// ConnectToDB opens a libsql database at the given path.
func ConnectToDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	return db, nil
}

// NewCatalogDBProvider opens or initializes the catalog database at dbPath.
func NewCatalogDBProvider(dbPath string) (*CatalogDBProvider, error) {
	slog.Info("Catalog database path:", "path", dbPath)

	db, err := ConnectToDB(dbPath)
	if err != nil {
		return nil, err
	}

	provider := &CatalogDBProvider{db: db}
	if err := provider.init(); err != nil {
		db.Close()
		return nil, err
	}
	return provider, nil
}

// init sets up the catalog tables.
func (c *CatalogDBProvider) init() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS combinations (
		pair_key TEXT PRIMARY KEY,
		"left" TEXT NOT NULL,
		"right" TEXT NOT NULL,
		issued_on DATE NOT NULL,
		asset_id TEXT NOT NULL,
		superseded_asset_ids TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return fmt.Errorf("failed to create combinations table: %w", err)
	}

	_, err = c.db.Exec(`CREATE TABLE IF NOT EXISTS build_runs (
		id TEXT PRIMARY KEY,
		source TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		rows_read INTEGER,
		rows_skipped INTEGER,
		entries_written INTEGER
	)`)
	if err != nil {
		return fmt.Errorf("failed to create build_runs table: %w", err)
	}

	return nil
}

// ReplaceAll swaps the entire catalog in a single transaction: either every
// entry is written and the prior catalog is fully superseded, or the
// transaction rolls back and the prior catalog stays committed.
func (c *CatalogDBProvider) ReplaceAll(ctx context.Context, entries []catalog.CatalogEntry, run *BuildRun) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &WriteError{Op: "begin", Err: err}
	}
	defer tx.Rollback() // Will be a no-op if transaction is committed

	if _, err := tx.ExecContext(ctx, "DELETE FROM combinations"); err != nil {
		return &WriteError{Op: "clear", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO combinations (pair_key, \"left\", \"right\", issued_on, asset_id, superseded_asset_ids) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return &WriteError{Op: "prepare", Err: err}
	}
	defer stmt.Close()

	for _, entry := range entries {
		_, err := stmt.ExecContext(ctx,
			string(entry.PairKey),
			string(entry.Left),
			string(entry.Right),
			entry.IssuedOn.Format(issuedOnLayout),
			entry.AssetID,
			strings.Join(entry.SupersededAssetIDs, ","),
		)
		if err != nil {
			return &WriteError{Op: fmt.Sprintf("insert %s", entry.PairKey), Err: err}
		}
	}

	if run != nil {
		if run.ID == uuid.Nil {
			run.ID = uuid.New()
		}
		run.EntriesWritten = len(entries)
		_, err := tx.ExecContext(ctx,
			"INSERT INTO build_runs (id, source, started_at, finished_at, rows_read, rows_skipped, entries_written) VALUES (?, ?, ?, ?, ?, ?, ?)",
			run.ID.String(),
			run.Source,
			run.StartedAt.UTC().Format(time.RFC3339),
			run.FinishedAt.UTC().Format(time.RFC3339),
			run.RowsRead,
			run.RowsSkipped,
			run.EntriesWritten,
		)
		if err != nil {
			return &WriteError{Op: "record build run", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &WriteError{Op: "commit", Err: err}
	}

	slog.Info("Catalog replaced", "entries", len(entries))
	return nil
}

// Lookup returns the catalog entry for an unordered glyph pair. The pair is
// canonicalized before querying, so orientation does not matter. A miss is a
// normal outcome reported via the bool, not an error.
func (c *CatalogDBProvider) Lookup(ctx context.Context, a, b catalog.GlyphID) (*catalog.CatalogEntry, bool, error) {
	key := catalog.CanonicalKey(a, b)

	row := c.db.QueryRowContext(ctx,
		"SELECT pair_key, \"left\", \"right\", issued_on, asset_id, superseded_asset_ids FROM combinations WHERE pair_key = ?",
		string(key))

	entry, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up pair %s: %w", key, err)
	}
	return entry, true, nil
}

// AllEntries returns the full catalog ordered by pair key.
func (c *CatalogDBProvider) AllEntries(ctx context.Context) ([]catalog.CatalogEntry, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT pair_key, \"left\", \"right\", issued_on, asset_id, superseded_asset_ids FROM combinations ORDER BY pair_key ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query combinations: %w", err)
	}
	defer rows.Close()

	var entries []catalog.CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan combination: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// CountEntries returns the number of catalog entries.
func (c *CatalogDBProvider) CountEntries(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM combinations").Scan(&count)
	return count, err
}

// LatestBuildRun returns the most recent build run, or nil when the catalog
// has never been built.
func (c *CatalogDBProvider) LatestBuildRun(ctx context.Context) (*BuildRun, error) {
	row := c.db.QueryRowContext(ctx,
		"SELECT id, source, started_at, finished_at, rows_read, rows_skipped, entries_written FROM build_runs ORDER BY finished_at DESC LIMIT 1")

	var run BuildRun
	var id, startedAt, finishedAt string

	err := row.Scan(&id, &run.Source, &startedAt, &finishedAt, &run.RowsRead, &run.RowsSkipped, &run.EntriesWritten)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan build run: %w", err)
	}

	run.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse build run ID: %w", err)
	}
	run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse build run start time: %w", err)
	}
	run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse build run finish time: %w", err)
	}

	return &run, nil
}

// Close closes the catalog database connection.
func (c *CatalogDBProvider) Close() error {
	return c.db.Close()
}

// Connect implements CatalogStore.Connect
func (c *CatalogDBProvider) Connect(dsn string) (*sql.DB, error) {
	var err error
	c.db, err = ConnectToDB(dsn)
	return c.db, err
}

// InitSchema implements CatalogStore.InitSchema
func (c *CatalogDBProvider) InitSchema() error {
	return c.init()
}

// scanEntry maps one combinations row onto a CatalogEntry.
func scanEntry(scan func(dest ...any) error) (*catalog.CatalogEntry, error) {
	var entry catalog.CatalogEntry
	var pairKey, left, right, issuedOn, superseded string

	if err := scan(&pairKey, &left, &right, &issuedOn, &entry.AssetID, &superseded); err != nil {
		return nil, err
	}

	parsed, err := time.ParseInLocation(issuedOnLayout, issuedOn, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issued_on %q: %w", issuedOn, err)
	}

	entry.PairKey = catalog.PairKey(pairKey)
	entry.Left = catalog.GlyphID(left)
	entry.Right = catalog.GlyphID(right)
	entry.IssuedOn = parsed
	if superseded != "" {
		entry.SupersededAssetIDs = strings.Split(superseded, ",")
	}
	return &entry, nil
}

// Ensure CatalogDBProvider implements CatalogStore interface
var _ CatalogStore = (*CatalogDBProvider)(nil)
