package types

import (
	"fmt"
	"time"
)

// OrphanClass is why a resource counts as orphaned.
type OrphanClass string

const (
	OrphanUnattached OrphanClass = "unattached"
	OrphanUnused     OrphanClass = "unused"
	OrphanIdle       OrphanClass = "idle"
)

// RiskLevel grades how risky it is to clean an orphan up.
// High risk gates destructive cleanup behind an explicit override.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// CleanupStatus tracks an orphan through its lifecycle.
type CleanupStatus string

const (
	StatusDetected  CleanupStatus = "detected"
	StatusScheduled CleanupStatus = "scheduled"
	StatusCleaned   CleanupStatus = "cleaned"
)

// OrphanDetails holds the type-specific facts behind a detection.
type OrphanDetails struct {
	SizeGB       int32  `json:"size_gb,omitempty"`
	VolumeType   string `json:"volume_type,omitempty"`
	PublicIP     string `json:"public_ip,omitempty"`
	InstanceType string `json:"instance_type,omitempty"`
	StoppedDays  int    `json:"stopped_days,omitempty"`
	SubnetID     string `json:"subnet_id,omitempty"`
	NameTag      string `json:"name_tag,omitempty"`
}

// OrphanedResource is an external resource believed to be unreferenced
// and cost-incurring.
type OrphanedResource struct {
	ResourceID     string        `json:"resource_id"`
	ResourceKind   ResourceKind  `json:"resource_kind"`
	Service        string        `json:"service"`
	Region         string        `json:"region"`
	Classification OrphanClass   `json:"classification"`
	LastActiveAt   time.Time     `json:"last_active_at,omitempty"`
	MonthlyCost    float64       `json:"monthly_cost"`
	Risk           RiskLevel     `json:"risk"`
	Details        OrphanDetails `json:"details"`
	OwnerID        string        `json:"owner_id"`
	Status         CleanupStatus `json:"status"`
	DetectedAt     time.Time     `json:"detected_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	CleanedAt      time.Time     `json:"cleaned_at,omitempty"`
}

// Validate ensures the orphan record has required fields.
func (o *OrphanedResource) Validate() error {
	if o.ResourceID == "" {
		return fmt.Errorf("orphan resource ID cannot be empty")
	}
	if !o.ResourceKind.Valid() {
		return fmt.Errorf("unknown resource kind %q", o.ResourceKind)
	}
	if o.OwnerID == "" {
		return fmt.Errorf("orphan owner cannot be empty")
	}
	return nil
}

// CleanupAction maps an orphan's kind to the executor action that removes it.
func (o *OrphanedResource) CleanupAction() (ActionKind, error) {
	switch o.ResourceKind {
	case KindVolume, KindAddress, KindNetworkInterface, KindInstance:
		return ActionTerminate, nil
	default:
		return "", fmt.Errorf("no cleanup action for resource kind %q", o.ResourceKind)
	}
}
