// Package policy gates cleanup of orphaned resources. The rules are
// Rego so operators can override the built-in policy without a rebuild.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/yairfalse/vahti/telemetry"
	"github.com/yairfalse/vahti/types"
)

//go:embed cleanup.rego
var defaultPolicy string

// Input is what the policy sees for one cleanup request
type Input struct {
	ResourceID     string             `json:"resource_id"`
	ResourceKind   types.ResourceKind `json:"resource_kind"`
	Classification types.OrphanClass  `json:"classification"`
	Risk           types.RiskLevel    `json:"risk"`
	MonthlyCost    float64            `json:"monthly_cost"`
	NameTag        string             `json:"name_tag"`
	Force          bool               `json:"force"`
}

// Verdict is the policy's answer. A denied high-risk cleanup that force
// would have allowed sets RequiresForce so callers can tell the user.
type Verdict struct {
	Allowed       bool
	RequiresForce bool
	Reason        string
}

// Gate evaluates cleanup requests against a compiled Rego policy
type Gate struct {
	query  rego.PreparedEvalQuery
	logger *telemetry.Logger
}

// NewGate compiles the built-in cleanup policy
func NewGate(ctx context.Context, logger *telemetry.Logger) (*Gate, error) {
	return newGate(ctx, defaultPolicy, logger)
}

// NewGateFromFile compiles an operator-supplied policy file
func NewGateFromFile(ctx context.Context, path string, logger *telemetry.Logger) (*Gate, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return newGate(ctx, string(code), logger)
}

func newGate(ctx context.Context, regoCode string, logger *telemetry.Logger) (*Gate, error) {
	query := rego.New(
		rego.Query("data.vahti.cleanup"),
		rego.Module("cleanup.rego", regoCode),
	)

	prepared, err := query.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile cleanup policy: %w", err)
	}

	return &Gate{query: prepared, logger: logger}, nil
}

// Check evaluates one cleanup request
func (g *Gate) Check(ctx context.Context, orphan types.OrphanedResource, force bool) (*Verdict, error) {
	input := Input{
		ResourceID:     orphan.ResourceID,
		ResourceKind:   orphan.ResourceKind,
		Classification: orphan.Classification,
		Risk:           orphan.Risk,
		MonthlyCost:    orphan.MonthlyCost,
		NameTag:        orphan.Details.NameTag,
		Force:          force,
	}

	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate cleanup policy: %w", err)
	}

	verdict := parseVerdict(results)

	g.logger.Debug().
		Str("resource_id", orphan.ResourceID).
		Str("risk", string(orphan.Risk)).
		Bool("allowed", verdict.Allowed).
		Str("reason", verdict.Reason).
		Msg("cleanup policy evaluated")

	return verdict, nil
}

func parseVerdict(results rego.ResultSet) *Verdict {
	verdict := &Verdict{}
	for _, res := range results {
		for _, expr := range res.Expressions {
			doc, ok := expr.Value.(map[string]interface{})
			if !ok {
				continue
			}
			if allowed, ok := doc["allow"].(bool); ok {
				verdict.Allowed = allowed
			}
			if rf, ok := doc["requires_force"].(bool); ok {
				verdict.RequiresForce = rf
			}
			if reason, ok := doc["reason"].(string); ok {
				verdict.Reason = reason
			}
		}
	}
	return verdict
}
