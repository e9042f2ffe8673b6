package cost

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// regionalMultipliers scale material and labor subtotals.
var regionalMultipliers = map[string]decimal.Decimal{
	"national":   decimal.NewFromInt(1),
	"northeast":  decimal.RequireFromString("1.15"),
	"west":       decimal.RequireFromString("1.20"),
	"california": decimal.RequireFromString("1.25"),
	"midwest":    decimal.RequireFromString("0.95"),
	"south":      decimal.RequireFromString("0.90"),
	"southeast":  decimal.RequireFromString("0.92"),
	"southwest":  decimal.RequireFromString("0.97"),
	"northwest":  decimal.RequireFromString("1.10"),
}

// RegionalMultiplier returns the multiplier for region, 1.0 when unknown.
func RegionalMultiplier(region string) decimal.Decimal {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(region)), " ", "_")
	if m, ok := regionalMultipliers[key]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// baseline is the per-square-foot cost of a project type without line items.
type baseline struct {
	Material    decimal.Decimal
	Labor       decimal.Decimal
	DefaultArea decimal.Decimal
}

const projectGeneral = "general"

var baselines = map[string]baseline{
	"painting":         {decimal.RequireFromString("0.75"), decimal.RequireFromString("2.25"), decimal.NewFromInt(150)},
	"flooring":         {decimal.RequireFromString("4.50"), decimal.RequireFromString("3.00"), decimal.NewFromInt(200)},
	"tiling":           {decimal.RequireFromString("5.00"), decimal.RequireFromString("7.00"), decimal.NewFromInt(60)},
	"drywall":          {decimal.RequireFromString("0.60"), decimal.RequireFromString("1.90"), decimal.NewFromInt(300)},
	"cabinets":         {decimal.RequireFromString("45.00"), decimal.RequireFromString("25.00"), decimal.NewFromInt(30)},
	"countertops":      {decimal.RequireFromString("60.00"), decimal.RequireFromString("20.00"), decimal.NewFromInt(40)},
	"kitchen_remodel":  {decimal.RequireFromString("90.00"), decimal.RequireFromString("60.00"), decimal.NewFromInt(150)},
	"bathroom_remodel": {decimal.RequireFromString("110.00"), decimal.RequireFromString("90.00"), decimal.NewFromInt(50)},
	"roofing":          {decimal.RequireFromString("3.50"), decimal.RequireFromString("3.00"), decimal.NewFromInt(1500)},
	"deck":             {decimal.RequireFromString("15.00"), decimal.RequireFromString("12.00"), decimal.NewFromInt(200)},
	projectGeneral:     {decimal.RequireFromString("20.00"), decimal.RequireFromString("15.00"), decimal.NewFromInt(100)},
}

// projectKeywords maps message words to project types, most specific first.
var projectKeywords = []struct {
	project  string
	keywords []string
}{
	{"kitchen_remodel", []string{"kitchen remodel", "remodel my kitchen", "renovate my kitchen", "kitchen renovation"}},
	{"bathroom_remodel", []string{"bathroom remodel", "remodel my bathroom", "bathroom renovation", "renovate my bathroom"}},
	{"cabinets", []string{"cabinet"}},
	{"countertops", []string{"countertop", "counter top"}},
	{"tiling", []string{"tile", "tiling", "backsplash"}},
	{"flooring", []string{"floor", "hardwood", "laminate", "vinyl plank", "carpet"}},
	{"painting", []string{"paint", "repaint"}},
	{"drywall", []string{"drywall", "sheetrock"}},
	{"roofing", []string{"roof", "shingle"}},
	{"deck", []string{"deck"}},
}

// DetectProjectType maps free text to a baseline project type.
func DetectProjectType(text string) string {
	lower := strings.ToLower(text)
	for _, pk := range projectKeywords {
		for _, kw := range pk.keywords {
			if strings.Contains(lower, kw) {
				return pk.project
			}
		}
	}
	return projectGeneral
}

func baselineFor(project string) baseline {
	if b, ok := baselines[project]; ok {
		return b
	}
	return baselines[projectGeneral]
}

var complexityFactors = map[string]decimal.Decimal{
	"low":    decimal.RequireFromString("0.90"),
	"medium": decimal.NewFromInt(1),
	"high":   decimal.RequireFromString("1.25"),
}

func complexityFactor(c string) decimal.Decimal {
	if f, ok := complexityFactors[c]; ok {
		return f
	}
	return decimal.NewFromInt(1)
}

var dimensionPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:'|ft|feet|foot)?\s*(?:x|by|×)\s*(\d+(?:\.\d+)?)`)
var areaPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:sq\.?\s*ft|square\s+feet|sqft)`)

// ParseArea reads "12x15", "12 by 15 ft" or "180 sq ft" from text and
// returns the area in square feet.
func ParseArea(text string) (decimal.Decimal, bool) {
	if m := dimensionPattern.FindStringSubmatch(text); m != nil {
		a, errA := strconv.ParseFloat(m[1], 64)
		b, errB := strconv.ParseFloat(m[2], 64)
		if errA == nil && errB == nil && a > 0 && b > 0 {
			return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)), true
		}
	}
	if m := areaPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			return decimal.NewFromFloat(v), true
		}
	}
	return decimal.Zero, false
}
