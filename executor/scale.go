package executor

import (
	"context"
	"fmt"

	"github.com/yairfalse/vahti/types"
)

// scaleDown takes a group or service to zero. The capacity it had is
// returned in the outcome so the caller can persist it for scale up.
func (e *Executor) scaleDown(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	read, write, err := capacityOps(api, req.ResourceKind)
	if err != nil {
		return nil, err
	}

	current, err := read(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if current.Desired == 0 {
		return &Outcome{
			Success:  true,
			Skipped:  true,
			Message:  "already at zero",
			Capacity: current,
		}, nil
	}

	target := types.CapacityState{Desired: 0, Min: 0, Max: current.Max}
	if err := write(ctx, req.ResourceID, target); err != nil {
		return nil, err
	}

	return &Outcome{
		Success:  true,
		Message:  fmt.Sprintf("scaled to zero from %d", current.Desired),
		Capacity: current,
	}, nil
}

// scaleUp restores the capacity captured by the last scale down
func (e *Executor) scaleUp(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	if req.Meta == nil || req.Meta.Capacity == nil {
		return nil, fmt.Errorf("scale up %s: no saved capacity", req.ResourceID)
	}

	read, write, err := capacityOps(api, req.ResourceKind)
	if err != nil {
		return nil, err
	}

	current, err := read(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if current.Desired == req.Meta.Capacity.Desired {
		return &Outcome{
			Success: true,
			Skipped: true,
			Message: fmt.Sprintf("already at %d", current.Desired),
		}, nil
	}

	if err := write(ctx, req.ResourceID, *req.Meta.Capacity); err != nil {
		return nil, err
	}

	return &Outcome{
		Success: true,
		Message: fmt.Sprintf("restored capacity to %d", req.Meta.Capacity.Desired),
	}, nil
}

type capacityReader func(context.Context, string) (*types.CapacityState, error)
type capacityWriter func(context.Context, string, types.CapacityState) error

func capacityOps(api CloudAPI, kind types.ResourceKind) (capacityReader, capacityWriter, error) {
	switch kind {
	case types.KindAutoScalingGroup:
		return api.GroupCapacity, api.SetGroupCapacity, nil
	case types.KindContainerService:
		return api.ServiceCapacity, api.SetServiceCapacity, nil
	default:
		return nil, nil, fmt.Errorf("cannot scale resource kind %q", kind)
	}
}
