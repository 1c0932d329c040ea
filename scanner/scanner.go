// Package scanner finds orphaned resources: provisioned capacity that no
// longer serves anything but still bills. Each scan produces plain records
// for the reconciler, it never mutates anything itself.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/yairfalse/vahti/cloud"
	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

// Inventory is the provider view the scanner needs
type Inventory interface {
	ListVolumes(ctx context.Context) ([]cloud.Volume, error)
	ListAddresses(ctx context.Context) ([]cloud.Address, error)
	ListStoppedInstances(ctx context.Context) ([]cloud.Instance, error)
	ListNetworkInterfaces(ctx context.Context) ([]cloud.NetworkInterface, error)
	Region() string
}

// Scanner detects orphaned resources in one owner's account
type Scanner struct {
	stoppedAfter time.Duration
	logger       *telemetry.Logger
}

// NewScanner creates a scanner. Instances stopped for less than
// stoppedAfterDays are not considered orphaned.
func NewScanner(stoppedAfterDays int, logger *telemetry.Logger) *Scanner {
	return &Scanner{
		stoppedAfter: time.Duration(stoppedAfterDays) * 24 * time.Hour,
		logger:       logger,
	}
}

// Scan runs all four detectors and returns every orphan found.
// A failure in one detector aborts the scan so a partial result is
// never mistaken for a full one.
func (s *Scanner) Scan(ctx context.Context, inv Inventory, ownerID string) ([]types.OrphanedResource, error) {
	now := time.Now()
	var orphans []types.OrphanedResource

	volumes, err := s.scanVolumes(ctx, inv, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to scan volumes: %w", err)
	}
	orphans = append(orphans, volumes...)

	addresses, err := s.scanAddresses(ctx, inv, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to scan addresses: %w", err)
	}
	orphans = append(orphans, addresses...)

	instances, err := s.scanStoppedInstances(ctx, inv, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stopped instances: %w", err)
	}
	orphans = append(orphans, instances...)

	interfaces, err := s.scanNetworkInterfaces(ctx, inv, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to scan network interfaces: %w", err)
	}
	orphans = append(orphans, interfaces...)

	s.logger.Info().
		Str("owner_id", ownerID).
		Str("region", inv.Region()).
		Int("orphans", len(orphans)).
		Dur("took", time.Since(now)).
		Msg("orphan scan complete")

	return orphans, nil
}

// scanVolumes flags volumes with no attachment
func (s *Scanner) scanVolumes(ctx context.Context, inv Inventory, ownerID string, now time.Time) ([]types.OrphanedResource, error) {
	volumes, err := inv.ListVolumes(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []types.OrphanedResource
	for _, vol := range volumes {
		if vol.Attached || vol.State != "available" {
			continue
		}
		orphans = append(orphans, types.OrphanedResource{
			ResourceID:     vol.ID,
			ResourceKind:   types.KindVolume,
			Service:        "ec2",
			Region:         inv.Region(),
			Classification: types.OrphanUnattached,
			MonthlyCost:    volumeMonthlyCost(vol.Type, vol.SizeGB),
			Risk:           volumeRisk(vol),
			OwnerID:        ownerID,
			Status:         types.StatusDetected,
			DetectedAt:     now,
			Details: types.OrphanDetails{
				SizeGB:     vol.SizeGB,
				VolumeType: vol.Type,
				NameTag:    vol.NameTag,
			},
		})
	}
	return orphans, nil
}

// scanAddresses flags elastic IPs with no association
func (s *Scanner) scanAddresses(ctx context.Context, inv Inventory, ownerID string, now time.Time) ([]types.OrphanedResource, error) {
	addresses, err := inv.ListAddresses(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []types.OrphanedResource
	for _, addr := range addresses {
		if addr.AssociationID != "" {
			continue
		}
		orphans = append(orphans, types.OrphanedResource{
			ResourceID:     addr.AllocationID,
			ResourceKind:   types.KindAddress,
			Service:        "ec2",
			Region:         inv.Region(),
			Classification: types.OrphanUnused,
			MonthlyCost:    addressMonthlyCost(),
			Risk:           types.RiskLow,
			OwnerID:        ownerID,
			Status:         types.StatusDetected,
			DetectedAt:     now,
			Details: types.OrphanDetails{
				PublicIP: addr.PublicIP,
				NameTag:  addr.NameTag,
			},
		})
	}
	return orphans, nil
}

// scanStoppedInstances flags instances stopped longer than the threshold.
// An instance whose stop time cannot be determined is skipped rather
// than guessed at.
func (s *Scanner) scanStoppedInstances(ctx context.Context, inv Inventory, ownerID string, now time.Time) ([]types.OrphanedResource, error) {
	instances, err := inv.ListStoppedInstances(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []types.OrphanedResource
	for _, inst := range instances {
		if inst.TransitionAt.IsZero() {
			continue
		}
		stoppedFor := now.Sub(inst.TransitionAt)
		if stoppedFor < s.stoppedAfter {
			continue
		}
		days := int(stoppedFor.Hours() / 24)
		orphans = append(orphans, types.OrphanedResource{
			ResourceID:     inst.ID,
			ResourceKind:   types.KindInstance,
			Service:        "ec2",
			Region:         inv.Region(),
			Classification: types.OrphanIdle,
			LastActiveAt:   inst.TransitionAt,
			MonthlyCost:    stoppedInstanceMonthlyCost(inst.Class),
			Risk:           stoppedInstanceRisk(days),
			OwnerID:        ownerID,
			Status:         types.StatusDetected,
			DetectedAt:     now,
			Details: types.OrphanDetails{
				InstanceType: inst.Class,
				StoppedDays:  days,
				SubnetID:     inst.SubnetID,
				NameTag:      inst.NameTag,
			},
		})
	}
	return orphans, nil
}

// scanNetworkInterfaces flags ENIs not attached to anything
func (s *Scanner) scanNetworkInterfaces(ctx context.Context, inv Inventory, ownerID string, now time.Time) ([]types.OrphanedResource, error) {
	interfaces, err := inv.ListNetworkInterfaces(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []types.OrphanedResource
	for _, eni := range interfaces {
		if eni.Status != "available" {
			continue
		}
		orphans = append(orphans, types.OrphanedResource{
			ResourceID:     eni.ID,
			ResourceKind:   types.KindNetworkInterface,
			Service:        "ec2",
			Region:         inv.Region(),
			Classification: types.OrphanUnattached,
			MonthlyCost:    0,
			Risk:           types.RiskLow,
			OwnerID:        ownerID,
			Status:         types.StatusDetected,
			DetectedAt:     now,
			Details: types.OrphanDetails{
				SubnetID: eni.SubnetID,
				NameTag:  eni.NameTag,
			},
		})
	}
	return orphans, nil
}

// volumeRisk grades an unattached volume. Anything big enough to hold
// real data gets extra scrutiny before cleanup.
func volumeRisk(vol cloud.Volume) types.RiskLevel {
	if vol.SizeGB >= 500 {
		return types.RiskHigh
	}
	if vol.SizeGB >= 100 || vol.NameTag != "" {
		return types.RiskMedium
	}
	return types.RiskLow
}

// stoppedInstanceRisk grades a long-stopped instance by how long it has
// been stopped. Recently stopped boxes are likelier to be wanted back.
func stoppedInstanceRisk(stoppedDays int) types.RiskLevel {
	switch {
	case stoppedDays >= 90:
		return types.RiskLow
	case stoppedDays >= 30:
		return types.RiskMedium
	default:
		return types.RiskHigh
	}
}
