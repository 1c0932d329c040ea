// Package reconciler converges the stored orphan inventory with what the
// scanner just saw. Scan results are the source of truth for what exists,
// the store is the source of truth for cleanup progress.
package reconciler

import (
	"context"
	"fmt"

	"github.com/yairfalse/vahti/journal"
	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

// Store is the slice of the persistence layer the reconciler needs
type Store interface {
	ListOrphanIDs(ownerID string, statuses ...types.CleanupStatus) []string
	UpsertOrphan(o types.OrphanedResource) error
	DeleteOrphans(ownerID string, resourceIDs []string, statuses ...types.CleanupStatus) (int, error)
}

// Result summarizes one reconciliation pass
type Result struct {
	New       int `json:"new"`
	Refreshed int `json:"refreshed"`
	Removed   int `json:"removed"`
}

// Reconciler applies scan results to the store
type Reconciler struct {
	store   Store
	journal *journal.Journal
	logger  *telemetry.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(store Store, jrnl *journal.Journal, logger *telemetry.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		journal: jrnl,
		logger:  logger,
	}
}

// Reconcile upserts every scanned orphan and removes stored orphans the
// scan no longer sees. Rows already cleaned live in history and are never
// touched, so a resource that comes back is detected fresh.
func (r *Reconciler) Reconcile(ctx context.Context, ownerID string, scanned []types.OrphanedResource) (*Result, error) {
	existing := r.store.ListOrphanIDs(ownerID,
		types.StatusDetected, types.StatusScheduled)

	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}

	result := &Result{}
	seen := make(map[string]bool, len(scanned))
	for _, orphan := range scanned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.store.UpsertOrphan(orphan); err != nil {
			return nil, fmt.Errorf("failed to upsert orphan %s: %w", orphan.ResourceID, err)
		}
		seen[orphan.ResourceID] = true
		if known[orphan.ResourceID] {
			result.Refreshed++
		} else {
			result.New++
		}
	}

	var vanished []string
	for _, id := range existing {
		if !seen[id] {
			vanished = append(vanished, id)
		}
	}
	if len(vanished) > 0 {
		removed, err := r.store.DeleteOrphans(ownerID, vanished,
			types.StatusDetected, types.StatusScheduled)
		if err != nil {
			return nil, fmt.Errorf("failed to remove vanished orphans: %w", err)
		}
		result.Removed = removed
	}

	if r.journal != nil {
		if err := r.journal.Append(journal.EntryReconcile, "", ownerID, result); err != nil {
			r.logger.LogStoreError(ctx, "journal reconcile", err)
		}
	}

	r.logger.Info().
		Str("owner_id", ownerID).
		Int("new", result.New).
		Int("refreshed", result.Refreshed).
		Int("removed", result.Removed).
		Msg("reconciliation complete")

	return result, nil
}
