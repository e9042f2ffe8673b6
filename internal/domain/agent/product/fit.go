package product

import (
	"fmt"
	"strings"

	"github.com/janhq/reno-server/internal/domain/homecontext"
)

const (
	inchesPerFoot = 12.0

	bedSideClearanceIn  = 24.0
	diningSeatPulloutIn = 36.0
	diningSeatWidthIn   = 24.0
	diningSeats         = 4
	applianceFrontStrip = 36.0
	defaultWalkwayStrip = 18.0
)

// Checks holds the four independent fit gates.
type Checks struct {
	Width     bool `json:"width"`
	Depth     bool `json:"depth"`
	Height    bool `json:"height"`
	Clearance bool `json:"clearance"`
}

// Fit is the result of checking one product against a room.
type Fit struct {
	Product          homecontext.Product `json:"product"`
	WillFit          bool                `json:"will_fit"`
	Checks           Checks              `json:"checks"`
	Warnings         []string            `json:"warnings,omitempty"`
	FreeAreaSqIn     float64             `json:"free_area_sq_in"`
	RequiredAreaSqIn float64             `json:"required_area_sq_in"`
}

type clearanceClass int

const (
	clearanceDefault clearanceClass = iota
	clearanceBed
	clearanceDining
	clearanceAppliance
)

func classify(category string) clearanceClass {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "bed"):
		return clearanceBed
	case strings.Contains(c, "dining"), c == "table", strings.Contains(c, "chair"):
		return clearanceDining
	}
	for _, a := range []string{"refrigerator", "fridge", "dishwasher", "range", "oven", "stove", "washer", "dryer", "appliance", "freezer"} {
		if strings.Contains(c, a) {
			return clearanceAppliance
		}
	}
	return clearanceDefault
}

// ClearanceAllowance returns the extra floor area, in square inches, a product
// of the given category needs beyond its own footprint.
func ClearanceAllowance(p homecontext.Product) float64 {
	switch classify(p.Category) {
	case clearanceBed:
		return bedSideClearanceIn * p.DepthIn * 2
	case clearanceDining:
		return diningSeatPulloutIn * diningSeatWidthIn * diningSeats
	case clearanceAppliance:
		return p.WidthIn * applianceFrontStrip
	default:
		return p.WidthIn * defaultWalkwayStrip
	}
}

// CheckFit evaluates p against room, accounting for the floor area already
// taken by existing products. Each gate is evaluated and reported on its own.
func CheckFit(room homecontext.Room, existing []homecontext.Product, p homecontext.Product) Fit {
	roomWidth := room.WidthFt * inchesPerFoot
	roomLength := room.LengthFt * inchesPerFoot
	ceiling := room.HeightFt * inchesPerFoot

	occupied := 0.0
	for _, e := range existing {
		if e.ID != "" && e.ID == p.ID {
			continue
		}
		occupied += e.FootprintSqIn()
	}
	free := roomWidth*roomLength - occupied
	if free < 0 {
		free = 0
	}
	required := p.FootprintSqIn() + ClearanceAllowance(p)

	fit := Fit{
		Product:          p,
		FreeAreaSqIn:     free,
		RequiredAreaSqIn: required,
		Checks: Checks{
			Width:     p.WidthIn <= roomWidth,
			Depth:     p.DepthIn <= roomLength,
			Height:    ceiling <= 0 || p.HeightIn <= ceiling,
			Clearance: free >= required,
		},
	}
	if !fit.Checks.Width {
		fit.Warnings = append(fit.Warnings, fmt.Sprintf("%s is %.0f in wide but %s is only %.0f in wide", label(p), p.WidthIn, room.Name, roomWidth))
	}
	if !fit.Checks.Depth {
		fit.Warnings = append(fit.Warnings, fmt.Sprintf("%s is %.0f in deep but %s is only %.0f in long", label(p), p.DepthIn, room.Name, roomLength))
	}
	if !fit.Checks.Height {
		fit.Warnings = append(fit.Warnings, fmt.Sprintf("%s is %.0f in tall but the ceiling is %.0f in", label(p), p.HeightIn, ceiling))
	}
	if !fit.Checks.Clearance {
		fit.Warnings = append(fit.Warnings, fmt.Sprintf("not enough clearance: %s needs %.0f sq in including clearance but only %.0f sq in is free", label(p), required, free))
	}
	fit.WillFit = fit.Checks.Width && fit.Checks.Depth && fit.Checks.Height && fit.Checks.Clearance
	return fit
}

func label(p homecontext.Product) string {
	if p.Name != "" {
		return p.Name
	}
	if p.Category != "" {
		return "the " + p.Category
	}
	return "the product"
}

// ToInches converts v in unit to inches. Unknown units are taken as inches.
func ToInches(v float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ft", "feet", "foot":
		return v * inchesPerFoot
	case "cm":
		return v / 2.54
	case "mm":
		return v / 25.4
	case "m", "meter", "meters":
		return v * 39.3701
	default:
		return v
	}
}
