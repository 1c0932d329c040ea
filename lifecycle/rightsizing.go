package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yairfalse/vahti/executor"
	"github.com/yairfalse/vahti/types"
)

// sizeLadder orders instance sizes so a class can step down one rung
var sizeLadder = []string{"nano", "micro", "small", "medium", "large", "xlarge", "2xlarge", "4xlarge", "8xlarge", "12xlarge", "16xlarge", "24xlarge"}

// sizeHourly is a rough on-demand hourly rate per size rung, used only
// to rank savings
var sizeHourly = map[string]float64{
	"nano": 0.0052, "micro": 0.0104, "small": 0.021, "medium": 0.042,
	"large": 0.084, "xlarge": 0.168, "2xlarge": 0.336, "4xlarge": 0.672,
	"8xlarge": 1.344, "12xlarge": 2.016, "16xlarge": 2.688, "24xlarge": 4.032,
}

// downsizeClass returns the next smaller class in the same family
func downsizeClass(class string) (string, bool) {
	family, size, ok := strings.Cut(class, ".")
	if !ok {
		return "", false
	}
	for i, rung := range sizeLadder {
		if rung == size {
			if i == 0 {
				return "", false
			}
			return family + "." + sizeLadder[i-1], true
		}
	}
	return "", false
}

// monthlySavings estimates what stepping down from one size to another
// saves per month
func monthlySavings(fromClass, toClass string) float64 {
	_, fromSize, _ := strings.Cut(fromClass, ".")
	_, toSize, _ := strings.Cut(toClass, ".")
	const hoursPerMonth = 730
	return (sizeHourly[fromSize] - sizeHourly[toSize]) * hoursPerMonth
}

// recommendationConfidence grows with how long the instance has sat
// stopped. A box nobody started for months is a safe downsize.
func recommendationConfidence(stoppedDays int) float64 {
	switch {
	case stoppedDays >= 90:
		return 0.9
	case stoppedDays >= 30:
		return 0.7
	default:
		return 0.5
	}
}

// deriveRecommendations turns idle instance orphans into pending
// rightsizing recommendations
func (c *Coordinator) deriveRecommendations(ctx context.Context, ownerID string) (int, error) {
	orphans, err := c.store.ListOrphans(ownerID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, orphan := range orphans {
		if orphan.ResourceKind != types.KindInstance || orphan.Classification != types.OrphanIdle {
			continue
		}
		smaller, ok := downsizeClass(orphan.Details.InstanceType)
		if !ok {
			continue
		}

		rec := types.RightsizingRecommendation{
			ID:               uuid.NewString(),
			ResourceID:       orphan.ResourceID,
			ResourceKind:     types.KindInstance,
			CurrentClass:     orphan.Details.InstanceType,
			RecommendedClass: smaller,
			Confidence:       recommendationConfidence(orphan.Details.StoppedDays),
			EstimatedSavings: monthlySavings(orphan.Details.InstanceType, smaller),
			Status:           types.RecommendationPending,
			OwnerID:          ownerID,
			CreatedAt:        time.Now(),
		}
		if err := c.store.PutRecommendation(rec); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// ListRecommendations returns one owner's recommendations, optionally
// filtered by status
func (c *Coordinator) ListRecommendations(ctx context.Context, ownerID string, status types.RecommendationStatus) ([]types.RightsizingRecommendation, error) {
	return c.store.ListRecommendations(ownerID, status)
}

// ApplyRightsizing resizes a resource to its recommended class and marks
// the recommendation applied
func (c *Coordinator) ApplyRightsizing(ctx context.Context, resourceID, ownerID string) (*executor.Outcome, error) {
	rec, err := c.store.GetRecommendation(resourceID, ownerID)
	if err != nil {
		return nil, err
	}
	if rec.Status != types.RecommendationPending {
		return nil, &types.InvalidStateError{
			ResourceID: resourceID,
			Current:    string(rec.Status),
			Wanted:     string(types.RecommendationPending),
		}
	}

	cfg, err := c.creds.Resolve(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	outcome, err := c.exec.Execute(ctx, c.newCloud(cfg), executor.Request{
		ResourceID:   resourceID,
		ResourceKind: rec.ResourceKind,
		Action:       types.ActionResize,
		OwnerID:      ownerID,
		Meta:         &types.ActionMetadata{TargetClass: rec.RecommendedClass},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply rightsizing: %w", err)
	}

	if err := c.store.MarkRecommendationApplied(resourceID, ownerID); err != nil {
		return nil, err
	}
	return outcome, nil
}
