package types

import "time"

// RecommendationStatus tracks whether a rightsizing recommendation was acted on.
type RecommendationStatus string

const (
	RecommendationPending RecommendationStatus = "pending"
	RecommendationApplied RecommendationStatus = "applied"
)

// RightsizingRecommendation suggests a cheaper capacity class for a resource.
type RightsizingRecommendation struct {
	ID               string               `json:"id"`
	ResourceID       string               `json:"resource_id"`
	ResourceKind     ResourceKind         `json:"resource_kind"`
	CurrentClass     string               `json:"current_class"`
	RecommendedClass string               `json:"recommended_class"`
	Confidence       float64              `json:"confidence"`
	EstimatedSavings float64              `json:"estimated_savings"`
	Status           RecommendationStatus `json:"status"`
	OwnerID          string               `json:"owner_id"`
	CreatedAt        time.Time            `json:"created_at"`
	AppliedAt        time.Time            `json:"applied_at,omitempty"`
}
