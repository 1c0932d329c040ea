package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/yairfalse/vahti/types"
)

// resize changes the instance class of a compute or database resource.
// Compute must be stopped to change class, so a running instance is
// stopped first, resized, then started again. Databases resize in place.
func (e *Executor) resize(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	if req.Meta == nil || req.Meta.TargetClass == "" {
		return nil, fmt.Errorf("resize %s: no target class", req.ResourceID)
	}

	switch req.ResourceKind {
	case types.KindInstance:
		return e.resizeInstance(ctx, api, req)
	case types.KindDatabase:
		return e.resizeDatabase(ctx, api, req)
	default:
		return nil, fmt.Errorf("cannot resize resource kind %q", req.ResourceKind)
	}
}

func (e *Executor) resizeInstance(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	current, err := api.InstanceState(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}

	wasRunning := false
	switch current {
	case "running":
		wasRunning = true
		if err := api.StopInstance(ctx, req.ResourceID); err != nil {
			return nil, err
		}
		if err := e.waitInstanceState(ctx, api, req.ResourceID, "stopped"); err != nil {
			return nil, err
		}
	case "stopped":
		// Resize in place
	default:
		return nil, &types.InvalidStateError{
			ResourceID: req.ResourceID,
			Current:    current,
			Wanted:     "running or stopped",
		}
	}

	if err := api.ModifyInstanceType(ctx, req.ResourceID, req.Meta.TargetClass); err != nil {
		return nil, err
	}

	if wasRunning {
		if err := api.StartInstance(ctx, req.ResourceID); err != nil {
			return nil, fmt.Errorf("resized but failed to restart: %w", err)
		}
	}

	return &Outcome{
		Success: true,
		Message: fmt.Sprintf("resized to %s", req.Meta.TargetClass),
	}, nil
}

func (e *Executor) resizeDatabase(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	current, err := api.DatabaseState(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if current != "available" {
		return nil, &types.InvalidStateError{
			ResourceID: req.ResourceID,
			Current:    current,
			Wanted:     "available",
		}
	}

	if err := api.ModifyDatabaseClass(ctx, req.ResourceID, req.Meta.TargetClass); err != nil {
		return nil, err
	}

	return &Outcome{
		Success: true,
		Message: fmt.Sprintf("resize to %s requested", req.Meta.TargetClass),
	}, nil
}

// waitInstanceState polls until the instance reaches the wanted state or
// the resize timeout expires. The timeout bounds how long a schedule
// firing can hold the resource lock.
func (e *Executor) waitInstanceState(ctx context.Context, api CloudAPI, id, wanted string) error {
	deadline := time.NewTimer(e.resizeTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s did not reach %s within %s",
				types.ErrResizeTimeout, id, wanted, e.resizeTimeout)
		case <-ticker.C:
			current, err := api.InstanceState(ctx, id)
			if err != nil {
				return err
			}
			if current == wanted {
				return nil
			}
		}
	}
}
