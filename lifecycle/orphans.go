package lifecycle

import (
	"context"
	"fmt"

	"github.com/yairfalse/vahti/reconciler"
	"github.com/yairfalse/vahti/types"
)

// CleanupResult reports what a cleanup request did. A denied high-risk
// cleanup is a normal result, not an error.
type CleanupResult struct {
	Success       bool            `json:"success"`
	RequiresForce bool            `json:"requires_force"`
	Reason        string          `json:"reason,omitempty"`
	Risk          types.RiskLevel `json:"risk"`
}

// DetectOrphanedResources scans one owner's account and reconciles the
// findings into the store
func (c *Coordinator) DetectOrphanedResources(ctx context.Context, ownerID string) (*reconciler.Result, error) {
	cfg, err := c.creds.Resolve(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	api := c.newCloud(cfg)
	orphans, err := c.scanner.Scan(ctx, api, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for orphans: %w", err)
	}

	result, err := c.reconciler.Reconcile(ctx, ownerID, orphans)
	if err != nil {
		return nil, err
	}

	c.metrics.RecordScan(ctx, len(orphans))
	return result, nil
}

// ListOrphans returns one owner's live orphan records
func (c *Coordinator) ListOrphans(ctx context.Context, ownerID string) ([]types.OrphanedResource, error) {
	return c.store.ListOrphans(ownerID)
}

// ListCleaned returns one owner's cleanup history
func (c *Coordinator) ListCleaned(ctx context.Context, ownerID string) ([]types.OrphanedResource, error) {
	return c.store.ListCleaned(ownerID)
}

// CleanupOrphanedResource destroys one detected orphan if the policy
// allows it. High-risk orphans are refused unless force is set.
func (c *Coordinator) CleanupOrphanedResource(ctx context.Context, resourceID, ownerID string, force bool) (*CleanupResult, error) {
	orphan, err := c.store.GetOrphan(resourceID, ownerID)
	if err != nil {
		return nil, err
	}
	if orphan.Status == types.StatusScheduled {
		return nil, &types.InvalidStateError{
			ResourceID: resourceID,
			Current:    string(orphan.Status),
			Wanted:     string(types.StatusDetected),
		}
	}

	verdict, err := c.gate.Check(ctx, *orphan, force)
	if err != nil {
		return nil, err
	}
	if !verdict.Allowed {
		return &CleanupResult{
			RequiresForce: verdict.RequiresForce,
			Reason:        verdict.Reason,
			Risk:          orphan.Risk,
		}, nil
	}

	cfg, err := c.creds.Resolve(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// Mark scheduled first so a concurrent request cannot double-delete
	if err := c.store.MarkOrphanScheduled(resourceID, ownerID); err != nil {
		return nil, err
	}

	if err := c.exec.Cleanup(ctx, c.newCloud(cfg), *orphan); err != nil {
		// Leave the row scheduled, the next reconcile pass resolves it
		return nil, err
	}

	if err := c.store.MarkOrphanCleaned(resourceID, ownerID); err != nil {
		return nil, err
	}

	c.metrics.RecordCleanup(ctx, string(orphan.ResourceKind), orphan.MonthlyCost)
	c.logger.Info().
		Str("resource_id", resourceID).
		Str("owner_id", ownerID).
		Float64("monthly_cost", orphan.MonthlyCost).
		Msg("orphan cleaned up")

	return &CleanupResult{Success: true, Reason: verdict.Reason, Risk: orphan.Risk}, nil
}
