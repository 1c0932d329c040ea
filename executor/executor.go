// Package executor carries out lifecycle actions against the provider.
// Every action checks the resource's current state first and refuses to
// fire from a transitional one, so a slow provider never gets stacked
// conflicting requests.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yairfalse/vahti/journal"
	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

// CloudAPI is everything the executor needs from the provider
type CloudAPI interface {
	InstanceState(ctx context.Context, id string) (string, error)
	StopInstance(ctx context.Context, id string) error
	StartInstance(ctx context.Context, id string) error
	ModifyInstanceType(ctx context.Context, id, class string) error
	TerminateInstance(ctx context.Context, id string) error

	DatabaseState(ctx context.Context, id string) (string, error)
	StopDatabase(ctx context.Context, id string) error
	StartDatabase(ctx context.Context, id string) error
	ModifyDatabaseClass(ctx context.Context, id, class string) error
	DeleteDatabase(ctx context.Context, id string) error

	GroupCapacity(ctx context.Context, name string) (*types.CapacityState, error)
	SetGroupCapacity(ctx context.Context, name string, capacity types.CapacityState) error
	ServiceCapacity(ctx context.Context, id string) (*types.CapacityState, error)
	SetServiceCapacity(ctx context.Context, id string, capacity types.CapacityState) error

	DeleteVolume(ctx context.Context, id string) error
	ReleaseAddress(ctx context.Context, allocationID string) error
	DeleteNetworkInterface(ctx context.Context, id string) error
}

// Request describes one action to perform
type Request struct {
	ResourceID   string
	ResourceKind types.ResourceKind
	Action       types.ActionKind
	OwnerID      string
	Meta         *types.ActionMetadata
}

// Outcome reports what an action did. Skipped means the resource was
// already in the target state, which is not a failure.
type Outcome struct {
	Success  bool
	Skipped  bool
	Message  string
	Capacity *types.CapacityState
}

// Executor serializes actions per resource and journals every attempt
type Executor struct {
	mu            sync.Mutex
	locks         map[string]*sync.Mutex
	resizeTimeout time.Duration
	pollInterval  time.Duration
	journal       *journal.Journal
	logger        *telemetry.Logger
}

// NewExecutor creates an executor
func NewExecutor(resizeTimeout, pollInterval time.Duration, jrnl *journal.Journal, logger *telemetry.Logger) *Executor {
	return &Executor{
		locks:         make(map[string]*sync.Mutex),
		resizeTimeout: resizeTimeout,
		pollInterval:  pollInterval,
		journal:       jrnl,
		logger:        logger,
	}
}

// lockFor returns the mutex serializing actions on one resource
func (e *Executor) lockFor(resourceID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[resourceID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[resourceID] = lock
	}
	return lock
}

// Execute runs one action to completion while holding the resource lock
func (e *Executor) Execute(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	lock := e.lockFor(req.ResourceID)
	lock.Lock()
	defer lock.Unlock()

	e.journalEntry(journal.EntryIntent, req, nil)

	outcome, err := e.dispatch(ctx, api, req)
	if err != nil {
		e.journalError(req, err)
		return nil, err
	}

	if outcome.Skipped {
		e.journalEntry(journal.EntrySkipped, req, outcome)
	} else {
		e.journalEntry(journal.EntryExecuted, req, outcome)
	}
	e.logger.LogActionOutcome(ctx, req.ResourceID, string(req.Action),
		outcome.Success, outcome.Skipped, outcome.Message)

	return outcome, nil
}

func (e *Executor) dispatch(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	switch req.Action {
	case types.ActionShutdown:
		return e.shutdown(ctx, api, req)
	case types.ActionStartup:
		return e.startup(ctx, api, req)
	case types.ActionResize:
		return e.resize(ctx, api, req)
	case types.ActionTerminate:
		return e.terminate(ctx, api, req)
	case types.ActionScaleDown:
		return e.scaleDown(ctx, api, req)
	case types.ActionScaleUp:
		return e.scaleUp(ctx, api, req)
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}
}

// shutdown stops a running resource. Already stopped is a skip, anything
// transitional is an error so the schedule retries on its next firing.
func (e *Executor) shutdown(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	switch req.ResourceKind {
	case types.KindInstance:
		return e.transition(ctx, req, api.InstanceState, api.StopInstance,
			"running", "stopped", "stopping")
	case types.KindDatabase:
		return e.transition(ctx, req, api.DatabaseState, api.StopDatabase,
			"available", "stopped", "stopping")
	default:
		return nil, fmt.Errorf("cannot shut down resource kind %q", req.ResourceKind)
	}
}

// startup starts a stopped resource
func (e *Executor) startup(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	switch req.ResourceKind {
	case types.KindInstance:
		return e.transition(ctx, req, api.InstanceState, api.StartInstance,
			"stopped", "running", "pending")
	case types.KindDatabase:
		return e.transition(ctx, req, api.DatabaseState, api.StartDatabase,
			"stopped", "available", "starting")
	default:
		return nil, fmt.Errorf("cannot start resource kind %q", req.ResourceKind)
	}
}

// transition moves a resource from one steady state to another. The
// resource being in the target state already, or on its way there, is
// reported as a skip.
func (e *Executor) transition(
	ctx context.Context,
	req Request,
	state func(context.Context, string) (string, error),
	act func(context.Context, string) error,
	from, target, inFlight string,
) (*Outcome, error) {
	current, err := state(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}

	switch current {
	case from:
		if err := act(ctx, req.ResourceID); err != nil {
			return nil, err
		}
		return &Outcome{
			Success: true,
			Message: fmt.Sprintf("%s requested, was %s", req.Action, current),
		}, nil
	case target, inFlight:
		return &Outcome{
			Success: true,
			Skipped: true,
			Message: fmt.Sprintf("already %s", current),
		}, nil
	default:
		return nil, &types.InvalidStateError{
			ResourceID: req.ResourceID,
			Current:    current,
			Wanted:     from,
		}
	}
}

// terminate permanently destroys a resource. It never runs without an
// explicit force flag.
func (e *Executor) terminate(ctx context.Context, api CloudAPI, req Request) (*Outcome, error) {
	if req.Meta == nil || !req.Meta.Force {
		return nil, fmt.Errorf("%w: terminate %s", types.ErrForceRequired, req.ResourceID)
	}

	switch req.ResourceKind {
	case types.KindInstance:
		if err := api.TerminateInstance(ctx, req.ResourceID); err != nil {
			return nil, err
		}
	case types.KindDatabase:
		if err := api.DeleteDatabase(ctx, req.ResourceID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("cannot terminate resource kind %q", req.ResourceKind)
	}

	return &Outcome{Success: true, Message: "terminate requested"}, nil
}

func (e *Executor) journalEntry(entryType journal.EntryType, req Request, outcome *Outcome) {
	if e.journal == nil {
		return
	}
	data := map[string]interface{}{"action": req.Action, "resource_kind": req.ResourceKind}
	if outcome != nil {
		data["message"] = outcome.Message
	}
	if err := e.journal.Append(entryType, req.ResourceID, req.OwnerID, data); err != nil {
		e.logger.Error().Err(err).Msg("failed to journal action")
	}
}

func (e *Executor) journalError(req Request, cause error) {
	if e.journal == nil {
		return
	}
	data := map[string]interface{}{"action": req.Action, "resource_kind": req.ResourceKind}
	if err := e.journal.AppendError(journal.EntryFailed, req.ResourceID, req.OwnerID, data, cause); err != nil {
		e.logger.Error().Err(err).Msg("failed to journal action failure")
	}
}
