package executor

import (
	"context"
	"fmt"

	"github.com/yairfalse/vahti/journal"
	"github.com/yairfalse/vahti/types"
)

// Cleanup destroys an orphaned resource. Risk gating happens before this
// is called, the executor only dispatches to the right delete call.
func (e *Executor) Cleanup(ctx context.Context, api CloudAPI, orphan types.OrphanedResource) error {
	lock := e.lockFor(orphan.ResourceID)
	lock.Lock()
	defer lock.Unlock()

	var err error
	switch orphan.ResourceKind {
	case types.KindVolume:
		err = api.DeleteVolume(ctx, orphan.ResourceID)
	case types.KindAddress:
		err = api.ReleaseAddress(ctx, orphan.ResourceID)
	case types.KindNetworkInterface:
		err = api.DeleteNetworkInterface(ctx, orphan.ResourceID)
	case types.KindInstance:
		err = api.TerminateInstance(ctx, orphan.ResourceID)
	default:
		return fmt.Errorf("cannot clean up resource kind %q", orphan.ResourceKind)
	}

	data := map[string]interface{}{
		"resource_kind":  orphan.ResourceKind,
		"classification": orphan.Classification,
		"monthly_cost":   orphan.MonthlyCost,
	}
	if err != nil {
		if e.journal != nil {
			if jerr := e.journal.AppendError(journal.EntryCleanup, orphan.ResourceID, orphan.OwnerID, data, err); jerr != nil {
				e.logger.Error().Err(jerr).Msg("failed to journal cleanup failure")
			}
		}
		return err
	}

	if e.journal != nil {
		if jerr := e.journal.Append(journal.EntryCleanup, orphan.ResourceID, orphan.OwnerID, data); jerr != nil {
			e.logger.Error().Err(jerr).Msg("failed to journal cleanup")
		}
	}
	return nil
}
