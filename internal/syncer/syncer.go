// Package syncer replicates local records with the sync server.
//
// A run has three strictly sequential phases: upload locally modified
// records, propagate local deletions, then pull records the server changed
// since the last successful pull. Failures are isolated per record; only a
// fully completed pull advances the cursor.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/metrics"
	"github.com/Veraticus/plansync/internal/service"
	"golang.org/x/sync/singleflight"
)

// Options tunes a Syncer.
type Options struct {
	Metrics metrics.Collector
	Logger  *slog.Logger
	Now     func() time.Time
	Retry   service.RetryOptions
}

// Syncer replicates one entity kind.
type Syncer[T service.Record[T]] struct {
	local   service.LocalStore[T]
	remote  service.RemoteService[T]
	cursors service.CursorStore
	session service.Session
	metrics metrics.Collector
	logger  *slog.Logger
	now     func() time.Time
	group   singleflight.Group
	kind    service.EntityKind
	retry   service.RetryOptions
}

// New creates a syncer for kind.
func New[T service.Record[T]](
	kind service.EntityKind,
	local service.LocalStore[T],
	remote service.RemoteService[T],
	cursors service.CursorStore,
	session service.Session,
	opts Options,
) *Syncer[T] {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoOp{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Syncer[T]{
		kind:    kind,
		local:   local,
		remote:  remote,
		cursors: cursors,
		session: session,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("entity", string(kind)),
		now:     opts.Now,
		retry:   opts.Retry.WithDefaults(),
	}
}

// Kind returns the entity kind this syncer replicates.
func (s *Syncer[T]) Kind() service.EntityKind {
	return s.kind
}

// Sync performs one run. Calls made while a run is in flight wait for it and
// share its report instead of starting a second run.
//
// The error is non-nil only when ctx was cancelled; every other failure is
// recorded in the report and retried by the next run.
func (s *Syncer[T]) Sync(ctx context.Context) (service.SyncReport, error) {
	v, err, shared := s.group.Do(string(s.kind), func() (any, error) {
		return s.run(ctx)
	})
	if shared {
		s.logger.Debug("Joined in-flight sync run")
	}
	report, _ := v.(service.SyncReport)
	return report, err
}

func (s *Syncer[T]) run(ctx context.Context) (service.SyncReport, error) {
	report := service.SyncReport{Kind: s.kind}

	if !s.session.IsLoggedIn() {
		report.Skipped = true
		s.logger.Debug("Not logged in, skipping sync")
		s.metrics.RecordSyncRun(string(s.kind), true, true, 0)
		return report, nil
	}

	// Captured before uploading so this run's own pushes are not pulled
	// back as remote changes next time.
	syncStart := s.now().UTC()
	report.StartedAt = syncStart

	report.Upload = s.uploadModified(ctx)
	if err := ctx.Err(); err != nil {
		return s.finish(report), err
	}

	report.Delete = s.propagateDeletes(ctx)
	if err := ctx.Err(); err != nil {
		return s.finish(report), err
	}

	report.Pull = s.pullRemote(ctx)
	if err := ctx.Err(); err != nil {
		return s.finish(report), err
	}

	if report.Pull.Err == nil && report.Pull.Failed == 0 {
		if err := s.cursors.SetLastSync(ctx, s.kind, syncStart); err != nil {
			s.logger.Error("Failed to advance sync cursor", "error", err)
		} else {
			report.CursorAdvanced = true
			s.metrics.RecordCursor(string(s.kind), syncStart)
		}
	}

	return s.finish(report), nil
}

func (s *Syncer[T]) finish(report service.SyncReport) service.SyncReport {
	report.Duration = s.now().Sub(report.StartedAt)
	s.metrics.RecordSyncRun(string(s.kind), report.OK(), false, report.Duration)

	s.logger.Info("Sync finished",
		"pushed", report.Upload.Succeeded,
		"push_failed", report.Upload.Failed,
		"deleted", report.Delete.Succeeded,
		"delete_failed", report.Delete.Failed,
		"pulled", report.Pull.Succeeded,
		"pull_failed", report.Pull.Failed,
		"cursor_advanced", report.CursorAdvanced,
		"duration", report.Duration)
	return report
}

func (s *Syncer[T]) uploadModified(ctx context.Context) service.PhaseStats {
	var stats service.PhaseStats

	items, err := s.local.FindByIsSyncedAndIsDeleted(ctx, false, false)
	if err != nil {
		stats.Err = err
		s.logger.Error("Failed to list modified records", "error", err)
		return stats
	}

	for _, item := range items {
		if ctx.Err() != nil {
			stats.Err = ctx.Err()
			return stats
		}

		id := item.SyncKey()
		err := common.WithRetry(ctx, func(ctx context.Context) error {
			return s.remote.Push(ctx, item)
		}, s.retry)
		if err != nil {
			stats.Failed++
			s.metrics.RecordSyncItem(string(s.kind), metrics.PhaseUpload, false)
			s.logger.Warn("Failed to push record", "id", id, "error", err)
			continue
		}

		marked, err := s.local.MarkSynced(ctx, id, item.SyncRevision())
		if err != nil {
			stats.Failed++
			s.metrics.RecordSyncItem(string(s.kind), metrics.PhaseUpload, false)
			s.logger.Error("Failed to mark record synced", "id", id, "error", err)
			continue
		}
		if !marked {
			// Edited locally while the push was in flight: the newer
			// revision goes out on the next run.
			s.logger.Debug("Record changed during push, leaving unsynced", "id", id)
		}

		stats.Succeeded++
		s.metrics.RecordSyncItem(string(s.kind), metrics.PhaseUpload, true)
	}
	return stats
}

func (s *Syncer[T]) propagateDeletes(ctx context.Context) service.PhaseStats {
	var stats service.PhaseStats

	items, err := s.local.FindByIsSyncedAndIsDeleted(ctx, false, true)
	if err != nil {
		stats.Err = err
		s.logger.Error("Failed to list deleted records", "error", err)
		return stats
	}

	for _, item := range items {
		if ctx.Err() != nil {
			stats.Err = ctx.Err()
			return stats
		}

		id := item.SyncKey()
		err := common.WithRetry(ctx, func(ctx context.Context) error {
			return s.remote.Delete(ctx, id)
		}, s.retry)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			stats.Failed++
			s.metrics.RecordSyncItem(string(s.kind), metrics.PhaseDelete, false)
			s.logger.Warn("Failed to delete remote record", "id", id, "error", err)
			continue
		}

		if err := s.local.Delete(ctx, id); err != nil {
			stats.Failed++
			s.metrics.RecordSyncItem(string(s.kind), metrics.PhaseDelete, false)
			s.logger.Error("Failed to remove deleted record", "id", id, "error", err)
			continue
		}

		stats.Succeeded++
		s.metrics.RecordSyncItem(string(s.kind), metrics.PhaseDelete, true)
	}
	return stats
}

func (s *Syncer[T]) pullRemote(ctx context.Context) service.PhaseStats {
	var stats service.PhaseStats

	cursor, err := s.cursors.LastSync(ctx, s.kind)
	if err != nil {
		stats.Err = err
		s.logger.Error("Failed to read sync cursor", "error", err)
		return stats
	}

	var result service.PullResult[T]
	err = common.WithRetry(ctx, func(ctx context.Context) error {
		var pullErr error
		result, pullErr = s.remote.Pull(ctx, cursor)
		return pullErr
	}, s.retry)
	if err != nil {
		stats.Err = err
		s.logger.Warn("Failed to pull remote changes", "after", cursor, "error", err)
		return stats
	}

	if result.ServerTimestamp != nil {
		s.logger.Debug("Pulled remote changes",
			"after", cursor,
			"count", len(result.Items),
			"server_timestamp", *result.ServerTimestamp)
	}

	for _, item := range result.Items {
		if ctx.Err() != nil {
			stats.Err = ctx.Err()
			return stats
		}

		// Remote wins: the pulled copy replaces any local version.
		if err := s.local.Save(ctx, item.Pulled()); err != nil {
			stats.Failed++
			s.metrics.RecordSyncItem(string(s.kind), metrics.PhasePull, false)
			s.logger.Error("Failed to store pulled record", "id", item.SyncKey(), "error", err)
			continue
		}

		stats.Succeeded++
		s.metrics.RecordSyncItem(string(s.kind), metrics.PhasePull, true)
	}
	return stats
}

// IsSynced reports whether no local change is waiting to be replicated.
// A store error counts as not synced.
func (s *Syncer[T]) IsSynced(ctx context.Context) bool {
	for _, deleted := range []bool{false, true} {
		items, err := s.local.FindByIsSyncedAndIsDeleted(ctx, false, deleted)
		if err != nil {
			s.logger.Warn("Failed to check sync state", "error", err)
			return false
		}
		if len(items) > 0 {
			return false
		}
	}
	return true
}
