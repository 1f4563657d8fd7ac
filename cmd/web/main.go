package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetbuddy/internal/app"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/handlers"
	"budgetbuddy/internal/log"
	"budgetbuddy/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	fs.SetOutput(stderr)

	dbPath := fs.String("db", "", "Path to session database (overrides BUDGETBUDDY_SESSION_DB)")
	authURL := fs.String("auth-url", "", "Auth service URL (overrides BUDGETBUDDY_AUTH_URL)")
	financeURL := fs.String("finance-url", "", "Finance service URL (overrides BUDGETBUDDY_FINANCE_URL)")
	port := fs.String("port", "", "Listen port (overrides PORT)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	override(&cfg.SessionDB, *dbPath)
	override(&cfg.AuthURL, *authURL)
	override(&cfg.FinanceURL, *financeURL)
	override(&cfg.Port, *port)
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	logger := log.New(log.Config{Level: cfg.Level(), Component: log.ComponentApp, Output: stderr})
	log.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := handlers.NewHandlers(a.NewMachine(), a.NewPanel, a.Loc, logger, web.FS)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           setupRouter(h, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A transactions page waits for the finance service.
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", log.FieldOperation, log.OpStartup, "addr", srv.Addr,
			"auth_url", cfg.AuthURL, "finance_url", cfg.FinanceURL)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", log.FieldOperation, log.OpShutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func setupRouter(h *handlers.Handlers, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	mux.Handle("/", h.Routes())
	return handlers.RequestLogger(logger, mux)
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
