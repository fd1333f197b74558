// Package main runs the portgraph HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpapi "github.com/flowgraph/portgraph/internal/adapters/http"
	"github.com/flowgraph/portgraph/internal/app/services"
	"github.com/flowgraph/portgraph/internal/config"
	"github.com/flowgraph/portgraph/internal/core/store"
	"github.com/flowgraph/portgraph/internal/infrastructure/metrics"
	"github.com/flowgraph/portgraph/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("PORTGRAPH_CONFIG"), "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "portgraph-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(os.Stderr, level, cfg.Log.JSON)

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()

	models, m, err := newModelService(cfg, st, logger)
	if err != nil {
		return err
	}
	wl := newWorkload(models, logger)
	defer wl.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(cfg, models, m, wl, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting portgraph server", "addr", cfg.Server.Addr, "store", cfg.Store.Driver,
			"encoding", models.Encoding().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newModelService(cfg *config.Config, st store.Store, logger *slog.Logger) (*services.ModelService, *metrics.Metrics, error) {
	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, nil, err
	}
	m := metrics.New()
	svc, err := services.NewModelService(st,
		services.WithEncoding(services.Encoding{Codec: cfg.Archive.Codec, Compression: cfg.Archive.Compression}),
		services.WithEncryptionKey(key),
		services.WithLogger(logger),
		services.WithMetrics(m),
		services.WithHook(func(_ context.Context, e services.Event) error {
			logger.Debug("model event", "type", e.Type, "model_id", e.ModelID, "name", e.Name)
			return nil
		}),
	)
	if err != nil {
		return nil, nil, err
	}
	return svc, m, nil
}

// newRouter mounts the model API with the workload controls and profiling
// endpoints beside it.
func newRouter(cfg *config.Config, models *services.ModelService, m *metrics.Metrics, wl *workload, logger *slog.Logger) http.Handler {
	api := httpapi.NewHandler(&httpapi.Server{
		Models:         models,
		Logger:         logger,
		Metrics:        m.Handler(),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	r := chi.NewRouter()
	r.Mount("/debug", middleware.Profiler())
	r.Route("/workload", func(r chi.Router) {
		r.Get("/", wl.Status)
		r.Post("/start", wl.Start)
		r.Post("/stop", wl.StopHandler)
	})
	r.Mount("/", api)
	return r
}
