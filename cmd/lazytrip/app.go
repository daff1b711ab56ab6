package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Joseda-hg/lazytrip/internal/config"
	"github.com/Joseda-hg/lazytrip/internal/csvcodec"
	"github.com/Joseda-hg/lazytrip/internal/db"
	"github.com/Joseda-hg/lazytrip/internal/generator"
	"github.com/Joseda-hg/lazytrip/internal/logger"
	"github.com/Joseda-hg/lazytrip/internal/model"
	"github.com/Joseda-hg/lazytrip/internal/store"
)

type rootOptions struct {
	configPath string
	csvPath    string
	dbPath     string
	debug      bool
}

// app is everything a command needs once the config has been resolved.
type app struct {
	cfg       config.Config
	cfgPath   string
	log       *zap.Logger
	sqlDB     *sql.DB
	snapshots *db.Store
	generator *generator.Generator
	items     *store.Store
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

// loadConfig applies flag overrides on top of the config file and writes the
// result back so the next run picks the same paths.
func (o *rootOptions) loadConfig() (config.Config, string, error) {
	cfgPath, err := resolveConfigPath(o.configPath)
	if err != nil {
		return config.Config{}, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, "", err
	}
	if o.csvPath != "" {
		cfg.CSVPath = o.csvPath
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	cfg.FillPaths(cfgPath)

	if err := config.Save(cfgPath, cfg); err != nil {
		return config.Config{}, "", err
	}
	return cfg, cfgPath, nil
}

func (o *rootOptions) open(ctx context.Context) (*app, error) {
	cfg, cfgPath, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	if err := config.EnsureDir(cfg.LogPath); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogPath, o.debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, cfgPath: cfgPath, log: log}

	a.generator, err = generator.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := config.EnsureDir(cfg.DBPath); err != nil {
		a.Close()
		return nil, err
	}
	a.sqlDB, err = db.Open(cfg.DBPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.snapshots = db.NewStore(a.sqlDB)

	a.items, err = a.loadItems(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Debug("app_opened",
		zap.String("config", cfgPath),
		zap.String("csv", cfg.CSVPath),
		zap.String("db", cfg.DBPath),
		zap.Int("records", a.items.Count()),
	)
	return a, nil
}

// loadItems reads the CSV file when it exists. Otherwise it restores the
// latest snapshot if the config asks for it, and falls back to the sample
// itinerary.
func (a *app) loadItems(ctx context.Context) (*store.Store, error) {
	if _, err := os.Stat(a.cfg.CSVPath); err == nil {
		records, err := csvcodec.ReadFile(a.cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		items := store.New()
		items.Replace(records)
		a.log.Info("csv_loaded", zap.String("path", a.cfg.CSVPath), zap.Int("records", len(records)))
		return items, nil
	}

	if a.cfg.RestoreSnapshot {
		latest, err := a.snapshots.LatestSnapshot(ctx)
		switch {
		case err == nil:
			records, err := a.snapshots.LoadSnapshot(ctx, latest.ID)
			if err != nil {
				return nil, err
			}
			items := store.New()
			items.Replace(records)
			a.log.Info("snapshot_restored", zap.Stringer("id", latest.ID), zap.Int("records", len(records)))
			return items, nil
		case !errors.Is(err, model.ErrNotFound):
			return nil, err
		}
	}

	return store.NewWithSample(time.Now()), nil
}

func (a *app) Close() {
	if a.sqlDB != nil {
		if err := a.sqlDB.Close(); err != nil {
			a.log.Warn("db_close_failed", zap.Error(err))
		}
	}
	_ = logger.Sync(a.log)
}
