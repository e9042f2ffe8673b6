// Package cost implements the cost estimation agent.
package cost

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
)

// LineItem is one material or labor entry in a scope.
type LineItem struct {
	Description string  `json:"description" jsonschema:"description=What is being bought or done"`
	Quantity    float64 `json:"quantity" jsonschema:"minimum=0"`
	Unit        string  `json:"unit,omitempty" jsonschema:"description=gal, sqft, hr, each"`
	UnitCost    float64 `json:"unit_cost" jsonschema:"minimum=0,description=USD per unit"`
}

// Scope is the structured description of the work returned by the model.
type Scope struct {
	ProjectType string     `json:"project_type,omitempty" jsonschema:"enum=painting,enum=flooring,enum=tiling,enum=drywall,enum=cabinets,enum=countertops,enum=kitchen_remodel,enum=bathroom_remodel,enum=roofing,enum=deck,enum=general"`
	Complexity  string     `json:"complexity" jsonschema:"enum=low,enum=medium,enum=high"`
	AreaSqFt    float64    `json:"area_sqft,omitempty" jsonschema:"minimum=0"`
	Materials   []LineItem `json:"materials"`
	Labor       []LineItem `json:"labor"`
}

// DefaultScope is used when scope analysis fails.
func DefaultScope() Scope {
	return Scope{Complexity: "medium", Materials: []LineItem{}, Labor: []LineItem{}}
}

// Line is a priced line in the estimate.
type Line struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Total       decimal.Decimal `json:"total"`
}

// Range is the low/high spread around the total.
type Range struct {
	Low  decimal.Decimal `json:"low"`
	High decimal.Decimal `json:"high"`
}

// Estimate is the agent's output.
type Estimate struct {
	ProjectType        string          `json:"project_type"`
	Region             string          `json:"region"`
	RegionalMultiplier decimal.Decimal `json:"regional_multiplier"`
	Complexity         string          `json:"complexity"`
	AreaSqFt           decimal.Decimal `json:"area_sqft"`
	Materials          []Line          `json:"materials"`
	Labor              []Line          `json:"labor"`
	MaterialSubtotal   decimal.Decimal `json:"material_subtotal"`
	LaborSubtotal      decimal.Decimal `json:"labor_subtotal"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	Range              Range           `json:"range"`
	Confidence         float64         `json:"confidence"`
	Assumptions        []string        `json:"assumptions,omitempty"`
}

var (
	lowFactor  = decimal.RequireFromString("0.85")
	highFactor = decimal.RequireFromString("1.15")
)

type request struct {
	ProjectScope string `json:"project_scope" validate:"required"`
	Region       string `json:"region"`
	Dimensions   string `json:"dimensions"`
}

// Estimator is the cost estimation agent.
type Estimator struct {
	scopes *agent.ScopeAnalyzer
	log    zerolog.Logger
}

// NewEstimator builds the agent.
func NewEstimator(scopes *agent.ScopeAnalyzer, log zerolog.Logger) *Estimator {
	return &Estimator{scopes: scopes, log: log.With().Str("component", "cost-estimator").Logger()}
}

func (e *Estimator) Name() string { return agent.NameCost }

// Process estimates the cost of the described project.
func (e *Estimator) Process(ctx context.Context, req agent.Request) agent.Result {
	var in request
	missing, err := agent.Bind(req, &in)
	if err != nil {
		return agent.Failure(e.Name(), err)
	}
	if len(missing) > 0 {
		return agent.NeedsInput(e.Name(), missing,
			"What project would you like priced? For example: paint a 12x15 bedroom.",
			"Roughly how large is the space?")
	}
	if in.Region == "" {
		in.Region = req.Region
	}

	input := in.ProjectScope
	if in.Dimensions != "" {
		input += "\nDimensions: " + in.Dimensions
	}
	scope, parsed := agent.AnalyzeScope(ctx, e.scopes, "estimate renovation cost", input, DefaultScope())

	estimate := Compute(scope, in.ProjectScope+" "+in.Dimensions, in.Region)
	e.log.Debug().
		Str("project_type", estimate.ProjectType).
		Str("total", estimate.TotalCost.StringFixed(2)).
		Bool("scope_parsed", parsed).
		Msg("estimate computed")

	res := agent.Success(e.Name(), conversation.AgentResultCostEstimate, estimate)
	res.ScopeFallback = !parsed
	return res
}

// Compute turns a scope into an estimate. It makes no external calls, so the
// same scope, text and region always give the same estimate.
func Compute(scope Scope, text, region string) Estimate {
	project := scope.ProjectType
	if _, ok := baselines[project]; !ok {
		project = DetectProjectType(text)
	}
	complexity := strings.ToLower(scope.Complexity)
	if _, ok := complexityFactors[complexity]; !ok {
		complexity = "medium"
	}
	if region == "" {
		region = "national"
	}
	multiplier := RegionalMultiplier(region)

	area, hasDims := ParseArea(text)
	if !hasDims && scope.AreaSqFt > 0 {
		area, hasDims = decimal.NewFromFloat(scope.AreaSqFt), true
	}

	est := Estimate{
		ProjectType:        project,
		Region:             region,
		RegionalMultiplier: multiplier,
		Complexity:         complexity,
		AreaSqFt:           area,
		Materials:          []Line{},
		Labor:              []Line{},
	}

	base := baselineFor(project)
	if !hasDims {
		est.AreaSqFt = base.DefaultArea
		est.Assumptions = append(est.Assumptions, fmt.Sprintf("assumed %s sq ft", base.DefaultArea.String()))
	}
	factor := complexityFactor(complexity)

	var materials, labor decimal.Decimal
	if len(scope.Materials) > 0 {
		est.Materials, materials = price(scope.Materials)
	} else {
		materials = base.Material.Mul(est.AreaSqFt).Mul(factor)
		est.Assumptions = append(est.Assumptions, "materials from "+project+" baseline")
	}
	if len(scope.Labor) > 0 {
		est.Labor, labor = price(scope.Labor)
	} else {
		labor = base.Labor.Mul(est.AreaSqFt).Mul(factor)
		est.Assumptions = append(est.Assumptions, "labor from "+project+" baseline")
	}

	est.MaterialSubtotal = materials.Mul(multiplier).Round(2)
	est.LaborSubtotal = labor.Mul(multiplier).Round(2)
	est.TotalCost = est.MaterialSubtotal.Add(est.LaborSubtotal)
	est.Range = Range{
		Low:  est.TotalCost.Mul(lowFactor).Round(2),
		High: est.TotalCost.Mul(highFactor).Round(2),
	}
	est.Confidence = Confidence(hasDims, len(scope.Materials) > 0, len(scope.Labor) > 0, complexity)
	return est
}

func price(items []LineItem) ([]Line, decimal.Decimal) {
	lines := make([]Line, 0, len(items))
	sum := decimal.Zero
	for _, it := range items {
		qty := decimal.NewFromFloat(it.Quantity)
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		unitCost := decimal.NewFromFloat(it.UnitCost)
		total := qty.Mul(unitCost).Round(2)
		lines = append(lines, Line{
			Description: it.Description,
			Quantity:    qty,
			Unit:        it.Unit,
			UnitCost:    unitCost,
			Total:       total,
		})
		sum = sum.Add(total)
	}
	return lines, sum
}

// Confidence is an additive heuristic clamped to [0,1].
func Confidence(hasDims, hasMaterials, hasLabor bool, complexity string) float64 {
	c := 0.5
	if hasDims {
		c += 0.2
	}
	if hasMaterials {
		c += 0.15
	}
	if hasLabor {
		c += 0.15
	}
	switch complexity {
	case "low":
		c += 0.1
	case "high":
		c -= 0.1
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	// Round away float noise from the additions.
	return float64(int(c*100+0.5)) / 100
}
