package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/Veraticus/plansync/internal/metrics"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/Veraticus/plansync/internal/syncer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replicate local changes with the sync server",
		Long: `Upload local changes, propagate local deletions and pull changes made on other
devices, for planned payment rules, budgets and accounts. Exchange rates are
refreshed afterwards.

Per-record failures do not stop the run; the affected records stay pending and
are retried next time.`,
		RunE: runSync,
	}
	cmd.Flags().Bool("skip-rates", false, "do not refresh exchange rates")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	skipRates, _ := cmd.Flags().GetBool("skip-rates")

	collector, registry, err := newMetrics()
	if err != nil {
		return err
	}

	a, err := openApp(ctx, collector)
	if err != nil {
		return err
	}
	defer a.Close()

	manager, sess, err := a.syncManager()
	if err != nil {
		return err
	}
	if !sess.IsLoggedIn() {
		fmt.Println(cli.FormatWarning("Not logged in: set remote.token (PLANSYNC_REMOTE_TOKEN) to sync")) //nolint:forbidigo // User-facing output
	}

	reports, err := runSyncOnce(ctx, a, manager, skipRates)
	printReports(reports)

	if a.cfg.Metrics.Textfile != "" {
		if writeErr := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, registry); writeErr != nil {
			return fmt.Errorf("failed to write metrics: %w", writeErr)
		}
	}
	return err
}

// runSyncOnce syncs every entity kind, then refreshes exchange rates.
func runSyncOnce(ctx context.Context, a *app, manager *syncer.Manager, skipRates bool) ([]service.SyncReport, error) {
	reports, err := manager.SyncAll(ctx)
	if err != nil {
		return reports, err
	}
	if !skipRates {
		a.rates.SyncRates(ctx, a.cfg.Currency.Base)
	}
	return reports, nil
}

func printReports(reports []service.SyncReport) {
	for _, r := range reports {
		fmt.Println(cli.FormatSyncReport(r)) //nolint:forbidigo // User-facing output
	}
}

func newMetrics() (*metrics.Prometheus, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheus("plansync")
	if err := collector.Register(registry); err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return collector, registry, nil
}
