package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/Veraticus/plansync/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync periodically until interrupted",
		Long: `Run a sync immediately and then every sync.interval. With metrics.listen set,
Prometheus metrics are served on that address under /metrics.`,
		RunE: runWatch,
	}
	cmd.Flags().Duration("interval", 0, "override sync.interval")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	handler := cli.NewInterruptHandler(os.Stdout)
	ctx := handler.HandleInterrupts(cmd.Context())

	collector, registry, err := newMetrics()
	if err != nil {
		return err
	}

	a, err := openApp(ctx, collector)
	if err != nil {
		return err
	}
	defer a.Close()

	manager, _, err := a.syncManager()
	if err != nil {
		return err
	}

	interval := a.cfg.Sync.Interval
	if v, _ := cmd.Flags().GetDuration("interval"); v > 0 {
		interval = v
	}

	if a.cfg.Metrics.Listen != "" {
		srv := metricsServer(a.cfg.Metrics.Listen, registry)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		slog.Info("Serving metrics", "addr", a.cfg.Metrics.Listen)
	}

	slog.Info("Watching for changes", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		reports, err := runSyncOnce(ctx, a, manager, false)
		printReports(reports)
		handler.SetPending(!manager.IsSynced(context.WithoutCancel(ctx)))

		if a.cfg.Metrics.Textfile != "" {
			if writeErr := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, registry); writeErr != nil {
				slog.Warn("Failed to write metrics textfile", "error", writeErr)
			}
		}
		if err != nil && ctx.Err() == nil {
			common.LogError(err, "Sync run failed", common.Fields{"interval": interval})
			return err
		}

		select {
		case <-ctx.Done():
			slog.Info("Stopped watching", "interrupted", handler.WasInterrupted())
			return nil
		case <-ticker.C:
		}
	}
}

func metricsServer(addr string, registry *prometheus.Registry) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
