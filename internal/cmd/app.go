package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/runger/texo/internal/config"
	texolog "github.com/runger/texo/internal/log"
	"github.com/runger/texo/internal/picker"
	"github.com/runger/texo/internal/storage"
	"github.com/runger/texo/internal/tracker"
)

// app holds what a command needs for one run: config, logger, the open
// store and the tracker built on it.
type app struct {
	cfg      *config.Config
	paths    *config.Paths
	logger   *slog.Logger
	store    *storage.SQLiteStore
	tracker  *tracker.Tracker
	closeLog func() error
}

// openApp loads config, opens the log file and the database. A database
// that cannot be opened is fatal.
func openApp() (*app, error) {
	paths := config.DefaultPaths()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := texolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, closeLog := texolog.OpenFile(paths.LogFile(), level)

	dbPath := paths.DatabaseFile()
	store, err := storage.NewSQLiteStore(dbPath,
		storage.WithBusyTimeout(time.Duration(cfg.Store.BusyTimeoutMs)*time.Millisecond),
		storage.WithLogger(logger),
	)
	if err != nil {
		logger.Error("store unavailable", "path", dbPath, "error", err)
		_ = closeLog()
		return nil, err
	}
	logger.Debug("store opened", "path", dbPath)

	tr := tracker.New(store, picker.New(cfg.Picker.Backend, logger, cfg.Picker.MaxResults),
		tracker.WithExclude(cfg.Track.Exclude),
		tracker.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		paths:    paths,
		logger:   logger,
		store:    store,
		tracker:  tr,
		closeLog: closeLog,
	}, nil
}

// Close releases the database and the log file.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
	_ = a.closeLog()
}
