package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/healthdash/internal/config"
	"github.com/claude/healthdash/internal/pipeline"
	"github.com/claude/healthdash/internal/store"
	"github.com/spf13/afero"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("export", "", "path to the Apple Health export XML (overrides config)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	export := cfg.Data.ExportPath()
	if *exportPath != "" {
		export = *exportPath
	}

	info, err := os.Stat(export)
	if err != nil || info.IsDir() {
		fmt.Fprintf(os.Stderr, "export file not found: %s\n", export)
		fmt.Fprintf(os.Stderr, "Usage: healthdash-process -config config.yaml [-export /path/to/export.xml]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fs := afero.NewOsFs()
	st := store.New(fs, cfg.Data.ProcessedDir())
	p := pipeline.New(fs, st, log)

	log.Info("processing export", "export", export, "out", cfg.Data.ProcessedDir())
	stats, err := p.Run(export)
	if err != nil {
		log.Error("processing failed", "error", err)
		if stats != nil {
			printStats(log, stats)
		}
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("processing complete")
}

func printStats(log *slog.Logger, stats *pipeline.Stats) {
	log.Info("run stats",
		"run_id", stats.RunID,
		"records_extracted", stats.RecordsExtracted,
		"records_skipped", stats.RecordsSkipped,
		"categories_written", stats.CategoriesWritten,
	)
	for cat, cs := range stats.Categories {
		log.Info("category stats", "category", cat, "rows", cs.Rows, "columns", cs.Columns, "skipped_rows", cs.SkippedRows)
	}
}
