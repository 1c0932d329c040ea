package types

import (
	"fmt"
	"time"
)

// ActionKind is the operation a schedule performs on its resource.
type ActionKind string

const (
	ActionShutdown  ActionKind = "shutdown"
	ActionStartup   ActionKind = "startup"
	ActionResize    ActionKind = "resize"
	ActionTerminate ActionKind = "terminate"
	ActionScaleDown ActionKind = "scale_down"
	ActionScaleUp   ActionKind = "scale_up"
)

// Valid reports whether the action kind is known.
func (a ActionKind) Valid() bool {
	switch a {
	case ActionShutdown, ActionStartup, ActionResize, ActionTerminate,
		ActionScaleDown, ActionScaleUp:
		return true
	}
	return false
}

// IsDestructive checks if the action removes the resource permanently.
func (a ActionKind) IsDestructive() bool {
	return a == ActionTerminate
}

// CapacityState remembers group capacity before a scale-down so a later
// scale-up can restore it exactly.
type CapacityState struct {
	Desired int32 `json:"desired"`
	Min     int32 `json:"min"`
	Max     int32 `json:"max"`
}

// ActionMetadata carries per-action context the executor needs.
// Scale actions persist the pre-change capacity here; resize carries the
// target capacity class; terminate requires the explicit force flag.
type ActionMetadata struct {
	TargetClass string         `json:"target_class,omitempty"`
	Force       bool           `json:"force,omitempty"`
	Capacity    *CapacityState `json:"capacity,omitempty"`
}

// ScheduledAction is a user's intent to run a recurring operation
// against one cloud resource.
type ScheduledAction struct {
	ID           string         `json:"id"`
	ResourceID   string         `json:"resource_id"`
	ResourceKind ResourceKind   `json:"resource_kind"`
	Name         string         `json:"name"`
	Action       ActionKind     `json:"action"`
	CronExpr     string         `json:"cron_expr"`
	Timezone     string         `json:"timezone,omitempty"`
	Active       bool           `json:"active"`
	OwnerID      string         `json:"owner_id"`
	Metadata     ActionMetadata `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastRunAt    time.Time      `json:"last_run_at,omitempty"`
	LastOutcome  string         `json:"last_outcome,omitempty"`
}

// Validate ensures the schedule has required fields.
func (s *ScheduledAction) Validate() error {
	if s.ResourceID == "" {
		return fmt.Errorf("schedule resource ID cannot be empty")
	}
	if !s.Action.Valid() {
		return fmt.Errorf("unknown action kind %q", s.Action)
	}
	if s.CronExpr == "" {
		return fmt.Errorf("schedule cron expression cannot be empty")
	}
	if s.OwnerID == "" {
		return fmt.Errorf("schedule owner cannot be empty")
	}
	kind := s.ResourceKind
	if kind == KindUnknown {
		kind = KindFromID(s.ResourceID)
	}
	if !kind.Valid() {
		return fmt.Errorf("cannot determine resource kind for %q", s.ResourceID)
	}
	return nil
}

// ScheduleUpdate carries the mutable fields of a schedule. Nil pointers
// leave the persisted value untouched.
type ScheduleUpdate struct {
	Name        *string        `json:"name,omitempty"`
	CronExpr    *string        `json:"cron_expr,omitempty"`
	Timezone    *string        `json:"timezone,omitempty"`
	TargetClass *string        `json:"target_class,omitempty"`
	Capacity    *CapacityState `json:"capacity,omitempty"`
}
