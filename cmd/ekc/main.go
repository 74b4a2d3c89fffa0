package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	internal "github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc"
	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/config"
	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/db"
	"github.com/ZanzyTHEbar/emoji-kitchen-catalog/ekc/pipeline"

	"github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog"
)

func main() {
	var (
		configPath     = flag.String("config", "", "path to a yaml config file")
		hasHeader      = flag.Bool("has-header", false, "skip the first row of the export")
		skipInvalid    = flag.Bool("skip-invalid", false, "drop malformed rows with a warning instead of aborting")
		conflictPolicy = flag.String("conflict-policy", "", "equal-date conflict policy: abort or prefer_smallest_asset")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <input_csv> [output_db]\n\nWithout output_db the configured database dsn is used.\n\nFlags:\n", internal.DefaultAppName)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}

	logger := internal.GetLogger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	// Flags given on the command line take precedence over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "has-header":
			cfg.Catalog.Input.HasHeader = *hasHeader
		case "skip-invalid":
			cfg.Catalog.Input.SkipInvalid = *skipInvalid
		case "conflict-policy":
			cfg.Catalog.Resolve.ConflictPolicy = *conflictPolicy
		}
	})

	outputPath := cfg.Catalog.Database.DSN
	if flag.NArg() == 2 {
		outputPath = flag.Arg(1)
	}

	if err := run(context.Background(), cfg, logger, flag.Arg(0), outputPath); err != nil {
		logger.Error().Err(err).Msg("catalog build failed")
		os.Exit(1)
	}
}

// run builds the catalog and owns the store handle so it is closed on every
// exit path, including failures.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, inputPath, outputPath string) error {
	level, err := zerolog.ParseLevel(cfg.Catalog.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Catalog.LogLevel, err)
	}
	logger = logger.Level(level)

	store, err := db.NewCatalogDBProvider(outputPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}
	defer store.Close()

	manager := pipeline.NewManager(cfg, store, assert.NewAssertHandler(), logger)

	stats, err := manager.Run(ctx, inputPath)
	if err != nil {
		return err
	}

	logger.Info().
		Int("rows_read", stats.RowsRead).
		Int("rows_skipped", stats.RowsSkipped).
		Int("conflicts", stats.Conflicts).
		Int("entries", stats.EntriesWritten).
		Msg("catalog build complete")

	return nil
}
