// Package action proposes follow-up actions and questions for an assistant
// turn.
package action

import (
	"strings"

	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/intent"
)

// Action names understood by the execute-action endpoint.
const (
	GetDetailedEstimate = "get_detailed_estimate"
	FindProducts        = "find_products"
	GenerateDIYGuide    = "generate_diy_guide"
	CreateDIYPlan       = "create_diy_plan"
	ExportPDF           = "export_pdf"
	MakeShoppingList    = "make_shopping_list"
	GenerateDesign      = "generate_design"
)

const (
	MaxActions   = 3
	MaxQuestions = 4

	MinDedupeWindow     = 3
	MaxDedupeWindow     = 6
	DefaultDedupeWindow = 3
)

// Catalog describes every known action.
var Catalog = map[string]conversation.SuggestedAction{
	GetDetailedEstimate: {Action: GetDetailedEstimate, Label: "Get a detailed estimate", Description: "Break the cost down into materials and labor", Agent: agent.NameCost},
	FindProducts:        {Action: FindProducts, Label: "Find products that fit", Description: "Check products against your room dimensions", Agent: agent.NameProduct},
	GenerateDIYGuide:    {Action: GenerateDIYGuide, Label: "Step-by-step DIY guide", Description: "Tools, steps and safety notes", Agent: agent.NameDIY},
	CreateDIYPlan:       {Action: CreateDIYPlan, Label: "Create a DIY plan", Description: "Turn this into an ordered project plan", Agent: agent.NameDIY},
	ExportPDF:           {Action: ExportPDF, Label: "Export a report", Description: "Save this conversation's results as a printable report"},
	MakeShoppingList:    {Action: MakeShoppingList, Label: "Make a shopping list", Description: "List the materials and tools to buy"},
	GenerateDesign:      {Action: GenerateDesign, Label: "Visualize the design", Description: "Generate images of the new look", Agent: agent.NameDesign},
}

// Known reports whether name is a catalog action.
func Known(name string) bool {
	_, ok := Catalog[name]
	return ok
}

type rule struct {
	actions   []string
	questions []string
}

var intentRules = map[intent.Intent]rule{
	intent.CostEstimate: {
		actions: []string{GetDetailedEstimate, MakeShoppingList, FindProducts},
		questions: []string{
			"Would you like the estimate split into materials and labor?",
			"What finish level are you aiming for: budget, mid-range or premium?",
			"Do you have contractor quotes I can compare against?",
		},
	},
	intent.ProductRecommendation: {
		actions: []string{FindProducts, GetDetailedEstimate},
		questions: []string{
			"What are the room's dimensions?",
			"Do you have a budget range in mind?",
		},
	},
	intent.DesignIdea: {
		actions: []string{GenerateDesign, FindProducts, GetDetailedEstimate},
		questions: []string{
			"Which style do you like best so far?",
			"Should I keep your existing flooring in the design?",
		},
	},
	intent.DesignTransformation: {
		actions:   []string{GenerateDesign, GetDetailedEstimate},
		questions: []string{"Want to try a different color palette?"},
	},
	intent.DIYGuide: {
		actions: []string{GenerateDIYGuide, CreateDIYPlan, MakeShoppingList},
		questions: []string{
			"Which tools do you already own?",
			"How much time can you spend on this each weekend?",
		},
	},
	intent.PDFRequest: {
		actions: []string{ExportPDF},
	},
	intent.RenovationWorkflow: {
		actions: []string{CreateDIYPlan, GetDetailedEstimate, ExportPDF},
		questions: []string{
			"Have you checked whether this work needs a permit?",
			"What is your target completion date?",
		},
	},
	intent.SafetyCheck: {
		actions:   []string{GenerateDIYGuide},
		questions: []string{"Is anyone in the home sensitive to dust or fumes?"},
	},
	intent.Troubleshooting: {
		actions: []string{GenerateDIYGuide, FindProducts},
		questions: []string{
			"When did you first notice the problem?",
			"Can you upload a photo of the problem area?",
		},
	},
	intent.Question: {
		actions:   []string{GetDetailedEstimate},
		questions: []string{"Would you like a cost estimate for this?"},
	},
	intent.GeneralChat: {
		questions: []string{"What project are you planning next?"},
	},
}

var personaActions = map[conversation.Persona][]string{
	conversation.PersonaDIYWorker:  {CreateDIYPlan},
	conversation.PersonaContractor: {ExportPDF},
}

// resultActions follow a successful agent result.
var resultActions = map[conversation.AgentResultKind][]string{
	conversation.AgentResultCostEstimate: {MakeShoppingList, ExportPDF},
	conversation.AgentResultDIYGuide:     {MakeShoppingList, CreateDIYPlan},
	conversation.AgentResultProductMatch: {GetDetailedEstimate},
	conversation.AgentResultDesign:       {GetDetailedEstimate, FindProducts},
}

// Input is what the suggester looks at.
type Input struct {
	Intent      intent.Intent
	Persona     conversation.Persona
	AgentResult *agent.Result
	// Recent holds the metadata of prior assistant turns, oldest first.
	Recent []conversation.Metadata
}

// Suggestions is the capped, deduplicated output.
type Suggestions struct {
	Actions   []conversation.SuggestedAction
	Questions []string
}

// Suggester applies the rule tables. It has no failure mode.
type Suggester struct {
	window int
}

// NewSuggester builds a suggester that suppresses anything offered in the
// last window assistant turns. window is clamped to [3, 6].
func NewSuggester(window int) *Suggester {
	return &Suggester{window: ClampWindow(window)}
}

// ClampWindow bounds a dedupe window.
func ClampWindow(window int) int {
	if window < MinDedupeWindow {
		return MinDedupeWindow
	}
	if window > MaxDedupeWindow {
		return MaxDedupeWindow
	}
	return window
}

// Window returns the dedupe window.
func (s *Suggester) Window() int {
	return s.window
}

// Suggest proposes at most MaxActions actions and MaxQuestions questions,
// skipping exact repeats of what recent assistant turns already offered.
func (s *Suggester) Suggest(in Input) Suggestions {
	seenActions, seenQuestions := s.recent(in.Recent)

	var candidates []string
	if in.AgentResult != nil && in.AgentResult.OK() {
		candidates = append(candidates, resultActions[in.AgentResult.Kind]...)
	}
	r, ok := intentRules[in.Intent]
	if !ok {
		r = intentRules[intent.Default]
	}
	candidates = append(candidates, r.actions...)
	candidates = append(candidates, personaActions[in.Persona]...)

	out := Suggestions{Actions: []conversation.SuggestedAction{}, Questions: []string{}}
	picked := map[string]struct{}{}
	for _, name := range candidates {
		if len(out.Actions) == MaxActions {
			break
		}
		if _, dup := picked[name]; dup {
			continue
		}
		if _, repeat := seenActions[name]; repeat {
			continue
		}
		picked[name] = struct{}{}
		out.Actions = append(out.Actions, Catalog[name])
	}

	questions := r.questions
	if in.AgentResult != nil && in.AgentResult.Status == agent.StatusNeedsInput {
		questions = append(append([]string{}, in.AgentResult.FollowUps...), questions...)
	}
	for _, q := range questions {
		if len(out.Questions) == MaxQuestions {
			break
		}
		key := strings.TrimSpace(q)
		if _, repeat := seenQuestions[key]; repeat || key == "" {
			continue
		}
		seenQuestions[key] = struct{}{}
		out.Questions = append(out.Questions, key)
	}
	return out
}

func (s *Suggester) recent(meta []conversation.Metadata) (map[string]struct{}, map[string]struct{}) {
	actions := map[string]struct{}{}
	questions := map[string]struct{}{}
	start := len(meta) - s.window
	if start < 0 {
		start = 0
	}
	for _, m := range meta[start:] {
		for _, a := range m.SuggestedActions {
			actions[a.Action] = struct{}{}
		}
		for _, q := range m.SuggestedQuestions {
			questions[strings.TrimSpace(q)] = struct{}{}
		}
	}
	return actions, questions
}
