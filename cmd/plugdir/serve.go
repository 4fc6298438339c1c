package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ferro-labs/plugdir"
	"github.com/ferro-labs/plugdir/internal/admin"
	"github.com/ferro-labs/plugdir/internal/loadlog"
	"github.com/ferro-labs/plugdir/internal/version"
	"github.com/ferro-labs/plugdir/plugin"
)

const (
	flagAddr    = "addr"
	defaultAddr = ":8080"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API and Prometheus metrics",
		Long: `Serve starts the admin HTTP API over a plugin Manager. Types listed in
plugin.preload are scanned at startup; every other type is scanned on first
request. Plugin loads are recorded in the load log when one is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = listenAddr(cfg)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, addr)
		},
	}
	cmd.Flags().StringVar(&addr, flagAddr, "", "listen address, overriding admin.addr and PORT")
	return cmd
}

// listenAddr resolves the listen address from config, then PORT, then the
// default.
func listenAddr(cfg *plugdir.Config) string {
	if cfg.Admin.Addr != "" {
		return cfg.Admin.Addr
	}
	if p := os.Getenv("PORT"); p != "" {
		return ":" + p
	}
	return defaultAddr
}

// openLoadLog returns the writer configured for cfg and, for SQL backends,
// the reader the admin API lists events from.
func openLoadLog(cfg *plugdir.Config) (loadlog.Writer, loadlog.Reader, func() error, error) {
	noop := func() error { return nil }
	var (
		w   *loadlog.SQLWriter
		err error
	)
	switch cfg.LoadLog.Driver {
	case plugdir.LoadLogSQLite:
		w, err = loadlog.NewSQLiteWriter(cfg.LoadLog.DSN)
	case plugdir.LoadLogPostgres:
		w, err = loadlog.NewPostgresWriter(cfg.LoadLog.DSN)
	default:
		return loadlog.NoopWriter{}, nil, noop, nil
	}
	if err != nil {
		return nil, nil, noop, err
	}
	return w, w, w.Close, nil
}

func serve(ctx context.Context, cfg *plugdir.Config, addr string) error {
	v := vars(cfg, os.Stderr)
	logger := v.Logger

	writer, reader, closeLog, err := openLoadLog(cfg)
	if err != nil {
		return fmt.Errorf("open load log: %w", err)
	}
	defer func() {
		if err := closeLog(); err != nil {
			logger.Warn("closing load log failed", "error", err)
		}
	}()
	loadlog.Attach(v.Hooks, writer, logger)

	m := plugin.NewManager(v)
	for _, t := range cfg.Plugin.Preload {
		reg := m.Get(t)
		logger.Info("plugin type preloaded", "type", t, "plugins", reg.Len(), "ok", reg.Report().OK())
	}

	h := &admin.Handlers{
		Manager: m,
		Loads:   reader,
		Logger:  logger,
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(h, cfg.Admin.Token),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return runServer(ctx, srv, logger)
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("plugdir listening", "addr", srv.Addr, "version", version.Short())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newRouter builds the HTTP router.
func newRouter(h *admin.Handlers, token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.TokenAuth(token))
		r.Mount("/", h.Routes())
	})
	return r
}
