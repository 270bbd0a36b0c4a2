package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"notely/internal/analytics"
	"notely/internal/config"
	"notely/internal/logging"
	"notely/internal/notes"
	"notely/internal/store/sqlstore"
	"notely/internal/users"
)

// app holds the services shared by every command.
type app struct {
	log       zerolog.Logger
	logSink   io.Closer
	store     *sqlstore.SQLStore
	users     *users.Directory
	notes     *notes.Service
	analytics *analytics.Aggregator
}

func newApp(cfg config.Config, noteOpts ...notes.Option) (*app, error) {
	log, sink, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Path:   cfg.Log.Path,
	}, os.Stderr)
	if err != nil {
		return nil, err
	}

	store, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		sink.Close()
		return nil, err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	loc, err := cfg.Location()
	if err != nil {
		store.Close()
		sink.Close()
		return nil, err
	}

	dir := users.NewDirectory(store, log)
	opts := append([]notes.Option{notes.WithPageSize(cfg.Notes.DefaultPageSize)}, noteOpts...)
	return &app{
		log:       log,
		logSink:   sink,
		store:     store,
		users:     dir,
		notes:     notes.NewService(store, dir, log, opts...),
		analytics: analytics.NewAggregator(store, loc),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("closing database")
	}
	a.logSink.Close()
}
