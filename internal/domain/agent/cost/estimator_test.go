package cost

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/llm"
	"github.com/janhq/reno-server/internal/domain/llm/llmtest"
	"github.com/janhq/reno-server/internal/domain/retry"
)

func newEstimator(client llm.Client) *Estimator {
	policy := retry.ClassificationPolicy()
	policy.InitialDelay = 0
	return NewEstimator(agent.NewScopeAnalyzer(client, zerolog.Nop()).WithPolicy(policy), zerolog.Nop())
}

func TestProcessMissingScopeNeedsInputWithoutModelCall(t *testing.T) {
	client := &llmtest.Client{}
	res := newEstimator(client).Process(context.Background(), agent.Request{Fields: map[string]any{"region": "west"}})

	assert.Equal(t, agent.StatusNeedsInput, res.Status)
	assert.Equal(t, []string{"project_scope"}, res.MissingFields)
	assert.NotEmpty(t, res.FollowUps)
	assert.LessOrEqual(t, len(res.FollowUps), 2)
	assert.Zero(t, client.Calls())
}

func TestPaintKitchenEstimateWithDefaultScope(t *testing.T) {
	client := &llmtest.Client{
		GenerateTextFunc: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
			return "sorry, no JSON today", nil
		},
	}
	res := newEstimator(client).Process(context.Background(), agent.Request{
		Fields: map[string]any{"project_scope": "How much would it cost to paint my 12x15 kitchen?"},
	})

	require.Equal(t, agent.StatusSuccess, res.Status)
	assert.True(t, res.ScopeFallback)
	est := res.Data.(Estimate)

	assert.Equal(t, "painting", est.ProjectType)
	assert.Equal(t, "180", est.AreaSqFt.String())
	assert.Equal(t, "540.00", est.TotalCost.StringFixed(2))
	assert.Equal(t, est.TotalCost.Mul(lowFactor).StringFixed(2), est.Range.Low.StringFixed(2))
	assert.Equal(t, est.TotalCost.Mul(highFactor).StringFixed(2), est.Range.High.StringFixed(2))
	assert.Equal(t, "459.00", est.Range.Low.StringFixed(2))
	assert.Equal(t, "621.00", est.Range.High.StringFixed(2))
	assert.Equal(t, 0.7, est.Confidence)
}

func TestComputeWithLineItemsAndRegion(t *testing.T) {
	scope := Scope{
		ProjectType: "painting",
		Complexity:  "low",
		Materials:   []LineItem{{Description: "paint", Quantity: 3, Unit: "gal", UnitCost: 45}},
		Labor:       []LineItem{{Description: "painter", Quantity: 8, Unit: "hr", UnitCost: 65}},
	}

	est := Compute(scope, "repaint the hallway", "West")

	assert.Equal(t, "162.00", est.MaterialSubtotal.StringFixed(2))
	assert.Equal(t, "624.00", est.LaborSubtotal.StringFixed(2))
	assert.Equal(t, "786.00", est.TotalCost.StringFixed(2))
	assert.Equal(t, 0.9, est.Confidence)
	assert.Len(t, est.Materials, 1)
	assert.Equal(t, "135.00", est.Materials[0].Total.StringFixed(2))
}

func TestComputeIsDeterministic(t *testing.T) {
	scope := DefaultScope()
	a := Compute(scope, "new hardwood floor 10 by 12", "midwest")
	b := Compute(scope, "new hardwood floor 10 by 12", "midwest")
	assert.Equal(t, a, b)
	assert.Equal(t, "flooring", a.ProjectType)
}

func TestRegionalMultiplierDefaultsToOne(t *testing.T) {
	assert.Equal(t, "1", RegionalMultiplier("atlantis").String())
	assert.Equal(t, "1.15", RegionalMultiplier("Northeast").String())
}

func TestConfidenceIsClamped(t *testing.T) {
	assert.Equal(t, 1.0, Confidence(true, true, true, "low"))
	assert.Equal(t, 0.4, Confidence(false, false, false, "high"))
	assert.Equal(t, 0.5, Confidence(false, false, false, "medium"))
}

func TestParseArea(t *testing.T) {
	cases := map[string]string{
		"12x15 kitchen":     "180",
		"10 ft by 12 ft":    "120",
		"about 250 sq ft":   "250",
		"12' x 10' bedroom": "120",
	}
	for in, want := range cases {
		got, ok := ParseArea(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got.String(), in)
	}
	_, ok := ParseArea("paint the bedroom")
	assert.False(t, ok)
}
