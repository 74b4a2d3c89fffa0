package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/catalog"
	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/config"
	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/db"
	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/indexing"

	assertlib "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineEnv struct {
	cfg     *config.Config
	store   *db.CatalogDBProvider
	manager *Manager
	tempDir string
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "ekc_test_pipeline_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := db.NewCatalogDBProvider(filepath.Join(tempDir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{}
	cfg.Catalog.Resolve.ConflictPolicy = "abort"

	manager := NewManager(cfg, store, assertlib.NewAssertHandler(), zerolog.Nop())

	return &pipelineEnv{cfg: cfg, store: store, manager: manager, tempDir: tempDir}
}

func (env *pipelineEnv) writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(env.tempDir, "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPipelineFullBuild(t *testing.T) {
	env := newPipelineEnv(t)
	input := env.writeInput(t,
		"😀,😎,2021-01-01,A1\n"+
			"😎,😀,2022-06-01,A2\n"+
			"🐱,🐶,2021-03-01,B1\n"+
			"🌵,🌵,2021-01-01,C1\n")

	stats, err := env.manager.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.RowsRead)
	assert.Equal(t, 0, stats.RowsSkipped)
	assert.Equal(t, 3, stats.EntriesWritten)

	ctx := context.Background()

	entry, ok, err := env.store.Lookup(ctx, "😀", "😎")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A2", entry.AssetID)
	assert.Equal(t, []string{"A1"}, entry.SupersededAssetIDs)

	entry, ok, err = env.store.Lookup(ctx, "🌵", "🌵")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "C1", entry.AssetID)

	run, err := env.store.LatestBuildRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, input, run.Source)
	assert.Equal(t, 4, run.RowsRead)
	assert.Equal(t, 3, run.EntriesWritten)
}

func TestPipelineMalformedRowAbortsByDefault(t *testing.T) {
	env := newPipelineEnv(t)
	input := env.writeInput(t, "😀,😎,2021-01-01,A1\n,😎,2021-01-01,A2\n")

	_, err := env.manager.Run(context.Background(), input)

	var malformed *catalog.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 2, malformed.Row)

	// Nothing committed.
	count, err := env.store.CountEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPipelineSkipInvalid(t *testing.T) {
	env := newPipelineEnv(t)
	env.cfg.Catalog.Input.SkipInvalid = true
	input := env.writeInput(t,
		"😀,😎,2021-01-01,A1\n"+
			",😎,2021-01-01,A2\n"+
			"🐱,🐶,2021-03-01,B1\n")

	stats, err := env.manager.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.RowsRead)
	assert.Equal(t, 1, stats.RowsSkipped)
	assert.Equal(t, 2, stats.EntriesWritten)

	_, ok, err := env.store.Lookup(context.Background(), "🐱", "🐶")
	require.NoError(t, err)
	assert.True(t, ok, "remaining rows resolve normally")
}

func TestPipelineConflictAbortsByDefault(t *testing.T) {
	env := newPipelineEnv(t)
	input := env.writeInput(t, "😀,😎,2021-01-01,A1\n😎,😀,2021-01-01,A2\n")

	_, err := env.manager.Run(context.Background(), input)

	var conflictErr *catalog.ConflictingRecordError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, []string{"A1", "A2"}, conflictErr.AssetIDs)
}

func TestPipelineConflictPreferSmallestAsset(t *testing.T) {
	env := newPipelineEnv(t)
	env.cfg.Catalog.Resolve.ConflictPolicy = string(catalog.ConflictPreferSmallestAsset)
	input := env.writeInput(t, "😀,😎,2021-01-01,A2\n😎,😀,2021-01-01,A1\n")

	stats, err := env.manager.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Conflicts)

	entry, ok, err := env.store.Lookup(context.Background(), "😀", "😎")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A1", entry.AssetID)
	assert.Equal(t, []string{"A2"}, entry.SupersededAssetIDs)
}

func TestPipelineHasHeader(t *testing.T) {
	env := newPipelineEnv(t)
	env.cfg.Catalog.Input.HasHeader = true
	input := env.writeInput(t,
		"left_glyph,right_glyph,issued_on,asset_id\n😀,😎,2021-01-01,A1\n")

	stats, err := env.manager.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RowsRead)
	assert.Equal(t, 1, stats.EntriesWritten)
}

func TestPipelineRebuildIsIdempotent(t *testing.T) {
	env := newPipelineEnv(t)
	input := env.writeInput(t,
		"😀,😎,2021-01-01,A1\n😎,😀,2022-06-01,A2\n🐱,🐶,2021-03-01,B1\n")

	ctx := context.Background()

	_, err := env.manager.Run(ctx, input)
	require.NoError(t, err)
	first, err := env.store.AllEntries(ctx)
	require.NoError(t, err)

	_, err = env.manager.Run(ctx, input)
	require.NoError(t, err)
	second, err := env.store.AllEntries(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second, "rebuilding from identical input must yield an identical catalog")
}

func TestPipelineUnknownConflictPolicy(t *testing.T) {
	env := newPipelineEnv(t)
	env.cfg.Catalog.Resolve.ConflictPolicy = "newest_asset"
	input := env.writeInput(t, "😀,😎,2021-01-01,A1\n")

	_, err := env.manager.Run(context.Background(), input)
	assert.Error(t, err)
}

func TestPipelineMissingInput(t *testing.T) {
	env := newPipelineEnv(t)

	_, err := env.manager.Run(context.Background(), filepath.Join(env.tempDir, "missing.csv"))
	assert.Error(t, err)
}

func TestPipelineOutputFeedsGlyphIndex(t *testing.T) {
	env := newPipelineEnv(t)
	input := env.writeInput(t,
		"😀,😎,2021-01-01,A1\n🌵,😀,2021-02-01,D1\n🌵,🌵,2021-03-01,C1\n")

	ctx := context.Background()

	_, err := env.manager.Run(ctx, input)
	require.NoError(t, err)

	entries, err := env.store.AllEntries(ctx)
	require.NoError(t, err)

	ix := indexing.BuildGlyphIndex(entries)
	require.Equal(t, 3, ix.Size())

	entry, ok := ix.Lookup("😎", "😀")
	require.True(t, ok)
	assert.Equal(t, "A1", entry.AssetID)

	assert.Len(t, ix.CombinationsFor("🌵"), 2)
}
