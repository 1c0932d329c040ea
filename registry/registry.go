// Package registry keeps the in-memory cron state for scheduled actions.
// It is rebuilt from the store at startup and holds no durable state of
// its own. Ownership checks happen before anything reaches the registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

var (
	ErrAlreadyRegistered = errors.New("schedule already registered")
	ErrNotRegistered     = errors.New("schedule not registered")
)

// Runner is invoked when a schedule fires. It receives the record as it
// was at registration time and must re-read the store for current state.
type Runner func(rec types.ScheduledAction)

type entry struct {
	record types.ScheduledAction
	cronID cron.EntryID
	paused bool
}

// Registry maps schedule IDs to live cron entries
type Registry struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]*entry
	run     Runner
	logger  *telemetry.Logger
}

// NewRegistry creates a registry and starts its cron loop
func NewRegistry(run Runner, logger *telemetry.Logger) *Registry {
	c := cron.New(
		cron.WithLogger(cronLogger{logger}),
		cron.WithChain(cron.Recover(cronLogger{logger})),
	)
	c.Start()

	return &Registry{
		cron:    c,
		entries: make(map[string]*entry),
		run:     run,
		logger:  logger,
	}
}

// cronSpec folds the timezone into the spec string so each schedule
// evaluates in its own zone
func cronSpec(expr, timezone string) string {
	if timezone == "" {
		return expr
	}
	return "CRON_TZ=" + timezone + " " + expr
}

// ValidateSpec checks a cron expression and timezone without registering
func ValidateSpec(expr, timezone string) error {
	_, err := cron.ParseStandard(cronSpec(expr, timezone))
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Register adds a schedule. An inactive record is registered paused and
// occupies the ID without a cron entry.
func (r *Registry) Register(rec types.ScheduledAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[rec.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, rec.ID)
	}

	e := &entry{record: rec, paused: !rec.Active}
	if rec.Active {
		cronID, err := r.addCronEntry(rec)
		if err != nil {
			return err
		}
		e.cronID = cronID
	}
	r.entries[rec.ID] = e
	return nil
}

// Replace swaps the cron entry for an existing schedule. The old entry
// stays in place until the new spec has parsed, so a bad update never
// leaves the schedule unregistered.
func (r *Registry) Replace(rec types.ScheduledAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[rec.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotRegistered, rec.ID)
	}

	if err := ValidateSpec(rec.CronExpr, rec.Timezone); err != nil {
		return err
	}

	if !e.paused {
		r.cron.Remove(e.cronID)
	}
	e.record = rec
	e.paused = !rec.Active
	if rec.Active {
		cronID, err := r.addCronEntry(rec)
		if err != nil {
			return err
		}
		e.cronID = cronID
	}
	return nil
}

// Pause removes the cron entry but keeps the ID registered
func (r *Registry) Pause(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	if e.paused {
		return nil
	}
	r.cron.Remove(e.cronID)
	e.paused = true
	return nil
}

// Resume re-adds the cron entry for a paused schedule
func (r *Registry) Resume(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	if !e.paused {
		return nil
	}

	cronID, err := r.addCronEntry(e.record)
	if err != nil {
		return err
	}
	e.cronID = cronID
	e.paused = false
	return nil
}

// Cancel removes a schedule entirely. Cancelling an unknown ID is a no-op
// so the self-heal sweep can call it blindly.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[id]
	if !exists {
		return
	}
	if !e.paused {
		r.cron.Remove(e.cronID)
	}
	delete(r.entries, id)
}

// Registered reports whether an ID is known, paused or not
func (r *Registry) Registered(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.entries[id]
	return exists
}

// IDs returns every registered schedule ID
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Stop halts the cron loop and waits for running jobs to finish or the
// context to expire
func (r *Registry) Stop(ctx context.Context) error {
	done := r.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// addCronEntry must be called with the mutex held
func (r *Registry) addCronEntry(rec types.ScheduledAction) (cron.EntryID, error) {
	cronID, err := r.cron.AddFunc(cronSpec(rec.CronExpr, rec.Timezone), func() {
		r.run(rec)
	})
	if err != nil {
		return 0, fmt.Errorf("invalid cron expression %q: %w", rec.CronExpr, err)
	}
	return cronID, nil
}
