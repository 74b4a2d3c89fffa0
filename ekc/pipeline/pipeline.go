package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/catalog"
	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/config"
	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/db"

	"github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog"
)

// RunStats summarizes one catalog build.
type RunStats struct {
	RowsRead       int
	RowsSkipped    int
	Conflicts      int
	EntriesWritten int
}

// Manager orchestrates the build pipeline: parse, normalize, resolve, write.
// The pipeline is a single-threaded batch job over one input traversal; the
// resolver materializes the full record set before emitting entries.
type Manager struct {
	cfg           *config.Config
	store         db.CatalogStore
	AssertHandler *assert.AssertHandler
	logger        zerolog.Logger
}

// NewManager creates a new pipeline manager instance
func NewManager(cfg *config.Config, store db.CatalogStore, assertHandler *assert.AssertHandler, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:           cfg,
		store:         store,
		AssertHandler: assertHandler,
		logger:        logger,
	}
}

// Run builds the catalog from the export at inputPath and replaces the
// destination store in one transaction. On any fatal error the previously
// committed catalog is left untouched.
func (m *Manager) Run(ctx context.Context, inputPath string) (*RunStats, error) {
	policy, err := catalog.ParseConflictPolicy(m.cfg.Catalog.Resolve.ConflictPolicy)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input %s: %w", inputPath, err)
	}
	defer f.Close()

	records, stats, err := m.collect(f)
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Int("rows_read", stats.RowsRead).
		Int("rows_skipped", stats.RowsSkipped).
		Msg("parsed source export")

	entries, conflicts, err := catalog.Resolve(records, policy)
	if err != nil {
		return nil, err
	}
	for _, conflict := range conflicts {
		m.logger.Warn().
			Str("pair_key", string(conflict.PairKey)).
			Str("issued_on", conflict.IssuedOn).
			Strs("asset_ids", conflict.AssetIDs).
			Msg("resolved equal-date conflict by smallest asset id")
	}
	stats.Conflicts = len(conflicts)
	stats.EntriesWritten = len(entries)

	run := &db.BuildRun{
		Source:      inputPath,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		RowsRead:    stats.RowsRead,
		RowsSkipped: stats.RowsSkipped,
	}
	if err := m.store.ReplaceAll(ctx, entries, run); err != nil {
		return nil, err
	}

	m.logger.Info().
		Int("entries", stats.EntriesWritten).
		Str("run_id", run.ID.String()).
		Msg("catalog build committed")

	return stats, nil
}

// collect drains the record scanner, applying the skip-invalid policy to
// row-level validation failures.
func (m *Manager) collect(r io.Reader) ([]catalog.CombinationRecord, *RunStats, error) {
	scanner := catalog.NewRecordScanner(r, catalog.ScannerOptions{
		HasHeader: m.cfg.Catalog.Input.HasHeader,
	})

	stats := &RunStats{}
	var records []catalog.CombinationRecord

	for {
		rec, err := scanner.Read()
		if err == io.EOF {
			return records, stats, nil
		}

		var malformed *catalog.MalformedRecordError
		if errors.As(err, &malformed) {
			stats.RowsRead++
			if !m.cfg.Catalog.Input.SkipInvalid {
				return nil, stats, err
			}
			stats.RowsSkipped++
			m.logger.Warn().
				Int("row", malformed.Row).
				Str("column", malformed.Column).
				Err(malformed.Err).
				Msg("skipping malformed record")
			continue
		}
		if err != nil {
			return nil, stats, err
		}

		stats.RowsRead++
		records = append(records, rec)
	}
}
