package syncer

import (
	"context"
	"log/slog"

	"github.com/Veraticus/plansync/internal/service"
	"golang.org/x/sync/errgroup"
)

// Runner is a syncer for one entity kind.
type Runner interface {
	Kind() service.EntityKind
	Sync(ctx context.Context) (service.SyncReport, error)
	IsSynced(ctx context.Context) bool
}

// Manager runs the syncers of every entity kind.
type Manager struct {
	runners []Runner
}

// NewManager creates a manager over runners.
func NewManager(runners ...Runner) *Manager {
	return &Manager{runners: runners}
}

// SyncAll runs every kind concurrently and returns one report per kind in
// registration order. Kinds never interleave with themselves, and one kind's
// failures do not stop the others.
func (m *Manager) SyncAll(ctx context.Context) ([]service.SyncReport, error) {
	reports := make([]service.SyncReport, len(m.runners))

	var g errgroup.Group
	for i, r := range m.runners {
		i, r := i, r
		g.Go(func() error {
			report, err := r.Sync(ctx)
			report.Kind = r.Kind()
			reports[i] = report
			return err
		})
	}
	err := g.Wait()

	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		slog.Warn("Sync completed with failures", "kinds", len(reports), "failed_kinds", failed)
	}
	return reports, err
}

// IsSynced reports whether every kind is fully replicated.
func (m *Manager) IsSynced(ctx context.Context) bool {
	for _, r := range m.runners {
		if !r.IsSynced(ctx) {
			return false
		}
	}
	return true
}
