package product

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/homecontext"
)

type stubStore struct {
	room     *homecontext.Room
	existing []homecontext.Product
	catalog  []homecontext.Product
	calls    int
}

func (s *stubStore) Snapshot(ctx context.Context, homeID string) (*homecontext.Snapshot, error) {
	return nil, errors.New("not used")
}

func (s *stubStore) Room(ctx context.Context, roomID string) (*homecontext.Room, error) {
	s.calls++
	if s.room == nil || s.room.ID != roomID {
		return nil, errors.New("room not found")
	}
	return s.room, nil
}

func (s *stubStore) RoomProducts(ctx context.Context, roomID string) ([]homecontext.Product, error) {
	s.calls++
	return s.existing, nil
}

func (s *stubStore) CatalogProducts(ctx context.Context, category string, limit int) ([]homecontext.Product, error) {
	s.calls++
	return s.catalog, nil
}

var bedroom = homecontext.Room{ID: "r1", Name: "guest bedroom", LengthFt: 10, WidthFt: 10, HeightFt: 8}

func TestClearanceFailsIndependently(t *testing.T) {
	existing := []homecontext.Product{
		{ID: "p1", Name: "sectional", WidthIn: 100, DepthIn: 80},
		{ID: "p2", Name: "dresser", WidthIn: 60, DepthIn: 20},
	}
	bed := homecontext.Product{Name: "queen bed", Category: "bed", WidthIn: 60, DepthIn: 80, HeightIn: 40}

	fit := CheckFit(bedroom, existing, bed)

	assert.False(t, fit.WillFit)
	assert.Equal(t, Checks{Width: true, Depth: true, Height: true, Clearance: false}, fit.Checks)
	require.Len(t, fit.Warnings, 1)
	assert.Contains(t, fit.Warnings[0], "clearance")
	assert.Equal(t, 5200.0, fit.FreeAreaSqIn)
	assert.Equal(t, 4800.0+2*24*80, fit.RequiredAreaSqIn)
}

func TestEachFailedGateGetsItsOwnWarning(t *testing.T) {
	room := homecontext.Room{ID: "r2", Name: "den", LengthFt: 20, WidthFt: 10, HeightFt: 7}
	tall := homecontext.Product{Name: "armoire", Category: "storage", WidthIn: 130, DepthIn: 30, HeightIn: 90}

	fit := CheckFit(room, nil, tall)

	assert.False(t, fit.WillFit)
	assert.Equal(t, Checks{Width: false, Depth: true, Height: false, Clearance: true}, fit.Checks)
	require.Len(t, fit.Warnings, 2)
	assert.Contains(t, fit.Warnings[0], "wide")
	assert.Contains(t, fit.Warnings[1], "ceiling")
}

func TestClearanceAllowanceByCategory(t *testing.T) {
	assert.Equal(t, 2*24*80.0, ClearanceAllowance(homecontext.Product{Category: "Bed", DepthIn: 80}))
	assert.Equal(t, 36*24*4.0, ClearanceAllowance(homecontext.Product{Category: "dining table", WidthIn: 60}))
	assert.Equal(t, 30*36.0, ClearanceAllowance(homecontext.Product{Category: "refrigerator", WidthIn: 30}))
	assert.Equal(t, 84*18.0, ClearanceAllowance(homecontext.Product{Category: "sofa", WidthIn: 84}))
}

func TestProcessMissingFieldsNeverTouchesStore(t *testing.T) {
	store := &stubStore{room: &bedroom}
	m := NewMatcher(store, agent.NewScopeAnalyzer(nil, zerolog.Nop()), zerolog.Nop())

	res := m.Process(context.Background(), agent.Request{Fields: map[string]any{"width": 30.0}})

	assert.Equal(t, agent.StatusNeedsInput, res.Status)
	assert.Equal(t, []string{"room_id", "category"}, res.MissingFields)
	assert.Zero(t, store.calls)
}

func TestProcessChecksRequestedAndCatalog(t *testing.T) {
	store := &stubStore{
		room: &bedroom,
		catalog: []homecontext.Product{
			{ID: "c1", Name: "compact sofa", Category: "sofa", WidthIn: 72, DepthIn: 34, HeightIn: 32},
			{ID: "c2", Name: "grand sofa", Category: "sofa", WidthIn: 140, DepthIn: 40, HeightIn: 34},
		},
	}
	m := NewMatcher(store, agent.NewScopeAnalyzer(nil, zerolog.Nop()), zerolog.Nop())

	res := m.Process(context.Background(), agent.Request{Fields: map[string]any{
		"room_id": "r1", "category": "sofa", "width": 7.0, "depth": 3.0, "height": 3.0, "unit": "ft",
	}})

	require.Equal(t, agent.StatusSuccess, res.Status)
	match := res.Data.(Match)
	require.NotNil(t, match.Requested)
	assert.Equal(t, 84.0, match.Requested.Product.WidthIn)
	assert.True(t, match.Requested.WillFit)
	require.Len(t, match.Candidates, 2)
	assert.True(t, match.Candidates[0].WillFit)
	assert.False(t, match.Candidates[1].WillFit)
}

func TestProcessUnknownRoomIsError(t *testing.T) {
	m := NewMatcher(&stubStore{}, agent.NewScopeAnalyzer(nil, zerolog.Nop()), zerolog.Nop())
	res := m.Process(context.Background(), agent.Request{Fields: map[string]any{"room_id": "nope", "category": "bed"}})
	assert.Equal(t, agent.StatusError, res.Status)
}

func TestToInches(t *testing.T) {
	assert.Equal(t, 24.0, ToInches(2, "ft"))
	assert.InDelta(t, 39.37, ToInches(100, "cm"), 0.01)
	assert.Equal(t, 30.0, ToInches(30, ""))
}
