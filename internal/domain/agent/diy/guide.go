// Package diy implements the DIY guidance agent.
package diy

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
)

// Step is one instruction in the plan.
type Step struct {
	Title  string  `json:"title"`
	Detail string  `json:"detail,omitempty"`
	Hours  float64 `json:"hours,omitempty" jsonschema:"minimum=0"`
}

// Scope is the model's structured reading of the project.
type Scope struct {
	Project    string   `json:"project,omitempty" jsonschema:"description=Short project name"`
	Complexity string   `json:"complexity" jsonschema:"enum=low,enum=medium,enum=high"`
	Steps      []Step   `json:"steps"`
	Tools      []string `json:"tools"`
	Materials  []string `json:"materials"`
}

// DefaultScope is used when scope analysis fails.
func DefaultScope() Scope {
	return Scope{Complexity: "medium", Steps: []Step{}, Tools: []string{}, Materials: []string{}}
}

// Guide is the agent's output.
type Guide struct {
	Project     string   `json:"project"`
	Difficulty  string   `json:"difficulty"`
	TotalHours  float64  `json:"total_hours"`
	Steps       []Step   `json:"steps"`
	Tools       []string `json:"tools"`
	Materials   []string `json:"materials"`
	SafetyNotes []string `json:"safety_notes"`
	CallAPro    bool     `json:"call_a_pro"`
}

type request struct {
	ProjectScope string `json:"project_scope" validate:"required"`
	SkillLevel   string `json:"skill_level" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// Guider is the DIY guidance agent.
type Guider struct {
	scopes *agent.ScopeAnalyzer
	log    zerolog.Logger
}

// NewGuider builds the agent.
func NewGuider(scopes *agent.ScopeAnalyzer, log zerolog.Logger) *Guider {
	return &Guider{scopes: scopes, log: log.With().Str("component", "diy-guide").Logger()}
}

func (g *Guider) Name() string { return agent.NameDIY }

// Process builds a step-by-step guide for the described project.
func (g *Guider) Process(ctx context.Context, req agent.Request) agent.Result {
	var in request
	missing, err := agent.Bind(req, &in)
	if err != nil {
		return agent.Failure(g.Name(), err)
	}
	if len(missing) > 0 {
		return agent.NeedsInput(g.Name(), missing,
			"What project do you want to tackle yourself?",
			"Which room is it in, and what tools do you already have?")
	}

	scope, parsed := agent.AnalyzeScope(ctx, g.scopes, "plan a DIY renovation project", in.ProjectScope, DefaultScope())
	guide := Build(scope, in.ProjectScope, in.SkillLevel)

	res := agent.Success(g.Name(), conversation.AgentResultDIYGuide, guide)
	res.ScopeFallback = !parsed
	return res
}

type projectProfile struct {
	keywords   []string
	difficulty int
	hours      float64
	tools      []string
	materials  []string
}

var profiles = []struct {
	name string
	projectProfile
}{
	{"electrical", projectProfile{[]string{"outlet", "switch", "wiring", "light fixture", "ceiling fan", "electrical"}, 3, 3, []string{"voltage tester", "screwdrivers", "wire strippers"}, []string{"wire nuts", "electrical tape"}}},
	{"plumbing", projectProfile{[]string{"faucet", "toilet", "sink", "drain", "pipe", "plumbing", "shower valve"}, 2, 4, []string{"adjustable wrench", "basin wrench", "bucket"}, []string{"plumber's tape", "supply lines"}}},
	{"tiling", projectProfile{[]string{"tile", "backsplash", "grout"}, 2, 12, []string{"notched trowel", "tile cutter", "level", "spacers"}, []string{"tile", "thinset", "grout"}}},
	{"flooring", projectProfile{[]string{"floor", "laminate", "vinyl plank", "hardwood"}, 2, 16, []string{"tapping block", "pull bar", "miter saw"}, []string{"flooring", "underlayment"}}},
	{"drywall", projectProfile{[]string{"drywall", "patch", "hole in the wall"}, 1, 4, []string{"putty knife", "sanding sponge", "utility knife"}, []string{"joint compound", "mesh tape"}}},
	{"painting", projectProfile{[]string{"paint", "repaint", "stain"}, 1, 8, []string{"roller", "angled brush", "drop cloths", "painter's tape"}, []string{"primer", "paint"}}},
}

var generalProfile = projectProfile{difficulty: 2, hours: 6, tools: []string{"tape measure", "level", "drill"}, materials: []string{}}

var difficultyNames = []string{"", "easy", "moderate", "hard", "expert"}

var safetyRules = []struct {
	keywords []string
	note     string
}{
	{[]string{"outlet", "switch", "wiring", "electrical", "light fixture", "ceiling fan"}, "Turn off the breaker and confirm the circuit is dead with a voltage tester before touching wires."},
	{[]string{"faucet", "toilet", "sink", "pipe", "plumbing", "drain", "shower"}, "Shut off the water supply and open a faucet to relieve pressure before disconnecting anything."},
	{[]string{"sand", "demo", "demolition", "scrape", "old paint"}, "Homes built before 1978 may have lead paint; test before sanding or demolition and wear a respirator."},
	{[]string{"ladder", "ceiling", "roof", "gutter"}, "Keep three points of contact on ladders and never stand on the top two rungs."},
	{[]string{"tile", "saw", "cut", "miter"}, "Wear eye and hearing protection when cutting tile, wood or metal."},
	{[]string{"stain", "adhesive", "thinset", "paint", "primer"}, "Ventilate the room and keep solvents away from open flames."},
	{[]string{"gas", "furnace", "water heater"}, "Gas appliance work should be done by a licensed professional."},
}

// Build turns a scope into a guide. It makes no external calls.
func Build(scope Scope, text, skillLevel string) Guide {
	lower := strings.ToLower(text + " " + scope.Project)
	name, profile := matchProfile(lower)
	project := scope.Project
	if project == "" {
		project = name
	}

	difficulty := profile.difficulty
	switch strings.ToLower(scope.Complexity) {
	case "low":
		difficulty--
	case "high":
		difficulty++
	}
	if difficulty < 1 {
		difficulty = 1
	}
	if difficulty > len(difficultyNames)-1 {
		difficulty = len(difficultyNames) - 1
	}

	steps := scope.Steps
	hours := 0.0
	for _, s := range steps {
		hours += s.Hours
	}
	if hours == 0 {
		hours = profile.hours
		if strings.ToLower(scope.Complexity) == "high" {
			hours *= 1.5
		}
	}
	switch skillLevel {
	case "beginner":
		hours *= 1.5
	case "advanced":
		hours *= 0.8
	}
	if len(steps) == 0 {
		steps = defaultSteps(project)
	}

	return Guide{
		Project:     project,
		Difficulty:  difficultyNames[difficulty],
		TotalHours:  math.Round(hours*10) / 10,
		Steps:       steps,
		Tools:       merge(profile.tools, scope.Tools),
		Materials:   merge(profile.materials, scope.Materials),
		SafetyNotes: SafetyNotes(lower),
		CallAPro:    difficulty >= 4 || strings.Contains(lower, "gas"),
	}
}

func matchProfile(lower string) (string, projectProfile) {
	for _, p := range profiles {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.name, p.projectProfile
			}
		}
	}
	return "general", generalProfile
}

// SafetyNotes returns the notes whose keywords appear in text, in table order.
func SafetyNotes(text string) []string {
	lower := strings.ToLower(text)
	notes := []string{}
	for _, rule := range safetyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				notes = append(notes, rule.note)
				break
			}
		}
	}
	return notes
}

func defaultSteps(project string) []Step {
	return []Step{
		{Title: "Plan and measure", Detail: "Measure the area for the " + project + " work and list what you need."},
		{Title: "Prepare the space", Detail: "Clear the room, protect floors and surfaces."},
		{Title: "Do the work", Detail: "Work in small sections and check level and fit as you go."},
		{Title: "Clean up and inspect", Detail: "Remove debris and check the finished result."},
	}
}

func merge(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, item := range list {
			key := strings.ToLower(strings.TrimSpace(item))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
