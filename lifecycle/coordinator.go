// Package lifecycle ties the scheduler together: it owns the schedule
// registry, drives scans and reconciliation, and gates cleanup. All
// operations are owner scoped and check credentials before touching
// anything durable.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"

	"github.com/yairfalse/vahti/cloud"
	"github.com/yairfalse/vahti/credentials"
	"github.com/yairfalse/vahti/executor"
	"github.com/yairfalse/vahti/policy"
	"github.com/yairfalse/vahti/reconciler"
	"github.com/yairfalse/vahti/registry"
	"github.com/yairfalse/vahti/scanner"
	"github.com/yairfalse/vahti/store"
	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

// Cloud is the full provider surface one owner's credentials unlock
type Cloud interface {
	executor.CloudAPI
	scanner.Inventory
}

// CloudFactory builds provider clients from resolved owner credentials
type CloudFactory func(cfg aws.Config) Cloud

// AWSCloudFactory is the production factory
func AWSCloudFactory(cfg aws.Config) Cloud {
	return cloud.New(cfg)
}

// Coordinator is the entry point for every scheduler operation
type Coordinator struct {
	store         *store.Store
	registry      *registry.Registry
	scanner       *scanner.Scanner
	reconciler    *reconciler.Reconciler
	exec          *executor.Executor
	creds         credentials.Resolver
	gate          *policy.Gate
	metrics       *Metrics
	logger        *telemetry.Logger
	newCloud      CloudFactory
	actionTimeout time.Duration
}

// NewCoordinator wires the coordinator and starts its cron loop. Call
// Rebuild afterwards to load persisted schedules.
func NewCoordinator(
	st *store.Store,
	scan *scanner.Scanner,
	rec *reconciler.Reconciler,
	exec *executor.Executor,
	creds credentials.Resolver,
	gate *policy.Gate,
	metrics *Metrics,
	logger *telemetry.Logger,
	newCloud CloudFactory,
	actionTimeout time.Duration,
) *Coordinator {
	c := &Coordinator{
		store:         st,
		scanner:       scan,
		reconciler:    rec,
		exec:          exec,
		creds:         creds,
		gate:          gate,
		metrics:       metrics,
		logger:        logger,
		newCloud:      newCloud,
		actionTimeout: actionTimeout,
	}
	c.registry = registry.NewRegistry(c.runScheduledAction, logger)
	return c
}

// Rebuild registers every persisted schedule. The registry is memory
// only, so this runs once at startup before any sweeps.
func (c *Coordinator) Rebuild(ctx context.Context) error {
	schedules, err := c.store.AllSchedules()
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	registered := 0
	for _, rec := range schedules {
		if err := c.registry.Register(rec); err != nil {
			c.logger.Error().Err(err).
				Str("schedule_id", rec.ID).
				Msg("failed to register persisted schedule")
			continue
		}
		registered++
	}

	c.logger.Info().Int("schedules", registered).Msg("registry rebuilt from store")
	return nil
}

// Close stops the cron loop, waiting for in-flight actions
func (c *Coordinator) Close(ctx context.Context) error {
	return c.registry.Stop(ctx)
}

// ScheduleAction validates and persists a new schedule, then registers
// it. The owner must have resolvable credentials before anything is
// stored.
func (c *Coordinator) ScheduleAction(ctx context.Context, rec types.ScheduledAction) (*types.ScheduledAction, error) {
	if rec.ResourceKind == types.KindUnknown {
		rec.ResourceKind = types.KindFromID(rec.ResourceID)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := registry.ValidateSpec(rec.CronExpr, rec.Timezone); err != nil {
		return nil, err
	}
	if _, err := c.creds.Resolve(ctx, rec.OwnerID); err != nil {
		return nil, err
	}

	rec.ID = uuid.NewString()
	rec.Active = true
	rec.CreatedAt = time.Now()

	if err := c.store.PutSchedule(rec); err != nil {
		return nil, err
	}
	if err := c.registry.Register(rec); err != nil {
		return nil, err
	}

	c.metrics.RecordScheduleChange(ctx, 1)
	c.logger.Info().
		Str("schedule_id", rec.ID).
		Str("resource_id", rec.ResourceID).
		Str("action", string(rec.Action)).
		Str("cron", rec.CronExpr).
		Msg("schedule created")

	return &rec, nil
}

// UpdateScheduledAction applies a partial update and swaps the cron
// entry. A bad cron expression aborts inside the store transaction, so
// neither the store nor the registry changes.
func (c *Coordinator) UpdateScheduledAction(ctx context.Context, id, ownerID string, upd types.ScheduleUpdate) (*types.ScheduledAction, error) {
	updated, err := c.store.UpdateSchedule(id, ownerID, func(rec *types.ScheduledAction) error {
		if upd.Name != nil {
			rec.Name = *upd.Name
		}
		if upd.CronExpr != nil {
			rec.CronExpr = *upd.CronExpr
		}
		if upd.Timezone != nil {
			rec.Timezone = *upd.Timezone
		}
		if upd.TargetClass != nil {
			rec.Metadata.TargetClass = *upd.TargetClass
		}
		if upd.Capacity != nil {
			rec.Metadata.Capacity = upd.Capacity
		}
		return registry.ValidateSpec(rec.CronExpr, rec.Timezone)
	})
	if err != nil {
		return nil, err
	}

	// Only a cron change needs a new timer. Metadata edits are picked up
	// on the next firing because the runner re-reads the store.
	if upd.CronExpr != nil || upd.Timezone != nil {
		if err := c.registry.Replace(*updated); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// PauseSchedule deactivates a schedule without losing it
func (c *Coordinator) PauseSchedule(ctx context.Context, id, ownerID string) error {
	if _, err := c.store.UpdateSchedule(id, ownerID, func(rec *types.ScheduledAction) error {
		rec.Active = false
		return nil
	}); err != nil {
		return err
	}
	return c.registry.Pause(id)
}

// ResumeSchedule reactivates a paused schedule
func (c *Coordinator) ResumeSchedule(ctx context.Context, id, ownerID string) error {
	if _, err := c.store.UpdateSchedule(id, ownerID, func(rec *types.ScheduledAction) error {
		rec.Active = true
		return nil
	}); err != nil {
		return err
	}
	return c.registry.Resume(id)
}

// CancelSchedule removes a schedule permanently
func (c *Coordinator) CancelSchedule(ctx context.Context, id, ownerID string) error {
	if err := c.store.DeleteSchedule(id, ownerID); err != nil {
		return err
	}
	c.registry.Cancel(id)
	c.metrics.RecordScheduleChange(ctx, -1)
	return nil
}

// ListSchedules returns one owner's schedules
func (c *Coordinator) ListSchedules(ctx context.Context, ownerID string) ([]types.ScheduledAction, error) {
	return c.store.ListSchedules(ownerID)
}

// GetSchedule returns one schedule scoped to its owner
func (c *Coordinator) GetSchedule(ctx context.Context, id, ownerID string) (*types.ScheduledAction, error) {
	return c.store.GetSchedule(id, ownerID)
}

// runScheduledAction fires when a cron entry triggers. It re-reads the
// store so a record updated since registration runs with current data,
// and a vanished record unregisters itself.
func (c *Coordinator) runScheduledAction(registered types.ScheduledAction) {
	ctx, cancel := context.WithTimeout(context.Background(), c.actionTimeout)
	defer cancel()

	current, err := c.store.GetSchedule(registered.ID, registered.OwnerID)
	if err != nil {
		c.logger.Warn().
			Str("schedule_id", registered.ID).
			Msg("schedule fired but no longer stored, cancelling")
		c.registry.Cancel(registered.ID)
		return
	}
	if !current.Active {
		return
	}

	c.logger.LogScheduleFired(ctx, current.ID, current.ResourceID, string(current.Action))

	started := time.Now()
	outcome, err := c.executeSchedule(ctx, current)
	c.recordRun(ctx, current, outcome, err, time.Since(started))
}

func (c *Coordinator) executeSchedule(ctx context.Context, rec *types.ScheduledAction) (*executor.Outcome, error) {
	cfg, err := c.creds.Resolve(ctx, rec.OwnerID)
	if err != nil {
		return nil, err
	}

	return c.exec.Execute(ctx, c.newCloud(cfg), executor.Request{
		ResourceID:   rec.ResourceID,
		ResourceKind: rec.ResourceKind,
		Action:       rec.Action,
		OwnerID:      rec.OwnerID,
		Meta:         &rec.Metadata,
	})
}

// recordRun persists the outcome of a firing. A scale down also saves
// the captured capacity so the matching scale up can restore it.
func (c *Coordinator) recordRun(ctx context.Context, rec *types.ScheduledAction, outcome *executor.Outcome, runErr error, took time.Duration) {
	result := "success"
	message := ""
	switch {
	case runErr != nil:
		result = "failure"
		message = runErr.Error()
	case outcome.Skipped:
		result = "skipped"
		message = outcome.Message
	default:
		message = outcome.Message
	}

	_, err := c.store.UpdateSchedule(rec.ID, rec.OwnerID, func(stored *types.ScheduledAction) error {
		stored.LastRunAt = time.Now()
		stored.LastOutcome = fmt.Sprintf("%s: %s", result, message)
		if runErr == nil && rec.Action == types.ActionScaleDown && outcome.Capacity != nil {
			stored.Metadata.Capacity = outcome.Capacity
		}
		return nil
	})
	if err != nil {
		c.logger.LogStoreError(ctx, "record schedule run", err)
	}

	c.metrics.RecordActionRun(ctx, string(rec.Action), result, took.Seconds())
}
