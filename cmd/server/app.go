package main

import (
	"fmt"

	"github.com/acord-review/backend/internal/config"
	"github.com/acord-review/backend/internal/notify"
	"github.com/acord-review/backend/internal/storage"
	"github.com/acord-review/backend/internal/upload"
	"github.com/charmbracelet/log"
)

// app wires the store, simulator, journal and notification hub together.
type app struct {
	cfg     *config.AppConfig
	log     *log.Logger
	store   *storage.MemoryStore
	journal *storage.Journal
	hub     *notify.Hub
	sim     *upload.Simulator
}

func newApp(cfg *config.AppConfig, logger *log.Logger, opts ...upload.Option) (*app, error) {
	journal, err := storage.NewJournal(cfg.Advanced.JournalMemoryLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     logger,
		store:   storage.NewMemoryStore(),
		journal: journal,
		hub:     notify.NewHub(cfg.Notifications.HistorySize, logger),
	}

	opts = append([]upload.Option{
		upload.WithNotifier(a.hub),
		upload.WithObserver(a.journal),
		upload.WithLogger(logger),
	}, opts...)
	a.sim = upload.NewSimulator(a.store, upload.ConfigFromApp(cfg), opts...)

	return a, nil
}

func (a *app) Close() error {
	return a.journal.Close()
}
