// Command reunion-migrate imports the votes.json file from the first version
// of the poll into the database.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/reunion50/reunion/internal/config"
	"github.com/reunion50/reunion/internal/database"
	"github.com/reunion50/reunion/internal/legacy"
	"github.com/reunion50/reunion/internal/logging"
	"github.com/reunion50/reunion/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "text").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	in := flag.String("in", filepath.Join(cfg.DataDir, "votes.json"), "legacy votes file")
	dbPath := flag.String("db", cfg.DBPath, "database path")
	flag.Parse()

	f, err := os.Open(*in)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("no legacy votes file, nothing to import", "path", *in)
		return
	}
	if err != nil {
		logger.Error("open legacy votes", "path", *in, "error", err)
		os.Exit(1)
	}
	doc, err := legacy.Parse(f)
	f.Close()
	if err != nil {
		logger.Error("read legacy votes", "path", *in, "error", err)
		os.Exit(1)
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		logger.Error("open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	res, err := legacy.Import(context.Background(), store.NewVoteStore(db), doc)
	if err != nil {
		logger.Error("import legacy votes", "error", err)
		os.Exit(1)
	}
	if res.Skipped > 0 {
		logger.Warn("skipped invalid legacy entries", "count", res.Skipped)
	}
	logger.Info("legacy votes imported",
		"venue_rows", res.VenueRows,
		"date_rows", res.DateRows,
		"db", *dbPath,
	)
}
