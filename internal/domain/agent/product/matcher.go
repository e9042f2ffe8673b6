// Package product implements the product matching agent: it checks whether
// furniture and appliances fit a room.
package product

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/homecontext"
)

const maxCandidates = 5

// Scope is what the model reads out of the request text.
type Scope struct {
	Category string  `json:"category,omitempty"`
	Style    string  `json:"style,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty" jsonschema:"minimum=0"`
	WidthIn  float64 `json:"width_in,omitempty" jsonschema:"minimum=0,description=Requested width in inches"`
	DepthIn  float64 `json:"depth_in,omitempty" jsonschema:"minimum=0"`
	HeightIn float64 `json:"height_in,omitempty" jsonschema:"minimum=0"`
}

type request struct {
	RoomID    string  `json:"room_id" validate:"required"`
	Category  string  `json:"category" validate:"required"`
	Name      string  `json:"name"`
	Width     float64 `json:"width" validate:"omitempty,gt=0"`
	Depth     float64 `json:"depth" validate:"omitempty,gt=0"`
	Height    float64 `json:"height" validate:"omitempty,gt=0"`
	Unit      string  `json:"unit" validate:"omitempty,oneof=in inch inches ft feet foot cm mm m meter meters"`
	ProductID string  `json:"product_id"`
}

// Match is the agent's output.
type Match struct {
	Room       homecontext.Room `json:"room"`
	Category   string           `json:"category"`
	Requested  *Fit             `json:"requested,omitempty"`
	Candidates []Fit            `json:"candidates"`
	Notes      []string         `json:"notes,omitempty"`
}

// Matcher is the product matching agent.
type Matcher struct {
	store  homecontext.Store
	scopes *agent.ScopeAnalyzer
	log    zerolog.Logger
}

// NewMatcher builds the agent.
func NewMatcher(store homecontext.Store, scopes *agent.ScopeAnalyzer, log zerolog.Logger) *Matcher {
	return &Matcher{store: store, scopes: scopes, log: log.With().Str("component", "product-matcher").Logger()}
}

func (m *Matcher) Name() string { return agent.NameProduct }

// Process checks the requested product, and catalog products of the same
// category, against the room.
func (m *Matcher) Process(ctx context.Context, req agent.Request) agent.Result {
	var in request
	missing, err := agent.Bind(req, &in)
	if err != nil {
		return agent.Failure(m.Name(), err)
	}
	if len(missing) > 0 {
		return agent.NeedsInput(m.Name(), missing,
			"Which room is this for?",
			"What kind of product are you looking for, and its size if you know it?")
	}
	if m.store == nil {
		return agent.Failure(m.Name(), fmt.Errorf("home data is not available"))
	}

	scope, _ := agent.AnalyzeScope(ctx, m.scopes, "match a product to a room", req.Message, Scope{})

	room, err := m.store.Room(ctx, in.RoomID)
	if err != nil {
		return agent.Failure(m.Name(), fmt.Errorf("load room %s: %w", in.RoomID, err))
	}

	match := Match{Room: *room, Category: in.Category, Candidates: []Fit{}}
	existing, err := m.store.RoomProducts(ctx, in.RoomID)
	if err != nil {
		m.log.Warn().Err(err).Str("room_id", in.RoomID).Msg("existing products unavailable")
		match.Notes = append(match.Notes, "existing furniture could not be loaded; clearance assumes an empty room")
		existing = nil
	}

	if requested, ok := requestedProduct(in, scope); ok {
		fit := CheckFit(*room, existing, requested)
		match.Requested = &fit
	}

	catalog, err := m.store.CatalogProducts(ctx, in.Category, maxCandidates)
	if err != nil {
		m.log.Warn().Err(err).Str("category", in.Category).Msg("catalog unavailable")
		match.Notes = append(match.Notes, "catalog search is unavailable right now")
	}
	for _, p := range catalog {
		if in.ProductID != "" && p.ID == in.ProductID && match.Requested == nil {
			fit := CheckFit(*room, existing, p)
			match.Requested = &fit
			continue
		}
		match.Candidates = append(match.Candidates, CheckFit(*room, existing, p))
	}

	return agent.Success(m.Name(), conversation.AgentResultProductMatch, match)
}

// requestedProduct builds the product described by the request, taking
// explicit dimensions first and model-read dimensions second.
func requestedProduct(in request, scope Scope) (homecontext.Product, bool) {
	p := homecontext.Product{Name: in.Name, Category: in.Category}
	p.WidthIn = pick(ToInches(in.Width, in.Unit), scope.WidthIn)
	p.DepthIn = pick(ToInches(in.Depth, in.Unit), scope.DepthIn)
	p.HeightIn = pick(ToInches(in.Height, in.Unit), scope.HeightIn)
	if p.WidthIn == 0 || p.DepthIn == 0 {
		return p, false
	}
	return p, true
}

func pick(explicit, fallback float64) float64 {
	if explicit > 0 {
		return explicit
	}
	return fallback
}
