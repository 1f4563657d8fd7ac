// Package app assembles the client core from a configuration.
package app

import (
	"fmt"

	"budgetbuddy/internal/apiclient"
	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/finance"
	"budgetbuddy/internal/i18n"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/ui"
)

// App is the wired client core shared by the presentation hosts.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Loc     *i18n.Localizer
	Store   *storage.DB
	Auth    *auth.Controller
	Finance *finance.Fetcher
}

// New opens the session store and builds the service clients described by cfg.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	logger = log.OrDiscard(logger)
	loc := cfg.Localizer()

	sealer, err := cfg.Sealer()
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	storeOpts := []storage.Option{storage.WithLogger(logger.WithComponent(log.ComponentStorage))}
	if sealer != nil {
		storeOpts = append(storeOpts, storage.WithSealer(sealer))
	}
	store, err := storage.NewDB(cfg.SessionDB, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	httpLogger := logger.WithComponent(log.ComponentHTTP)
	authAPI, err := apiclient.New(cfg.AuthURL, apiclient.WithTimeout(cfg.RequestTimeout), apiclient.WithLogger(httpLogger))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("auth service: %w", err)
	}
	financeAPI, err := apiclient.New(cfg.FinanceURL, apiclient.WithTimeout(cfg.RequestTimeout), apiclient.WithLogger(httpLogger))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("finance service: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Loc:     loc,
		Store:   store,
		Auth:    auth.NewController(authAPI, store, loc, logger),
		Finance: finance.NewFetcher(financeAPI, loc, logger),
	}, nil
}

// NewMachine returns a fresh auth form machine bound to the app's controller.
func (a *App) NewMachine() *ui.Machine {
	return ui.NewMachine(a.Auth, a.Logger)
}

// NewPanel returns an unmounted transaction panel reading the app's store.
func (a *App) NewPanel(opts ...ui.PanelOption) *ui.Panel {
	return ui.NewPanel(a.Store, a.Finance, a.Loc, a.Logger, opts...)
}

// Close releases the session store.
func (a *App) Close() error {
	return a.Store.Close()
}
