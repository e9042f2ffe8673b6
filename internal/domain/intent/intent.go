// Package intent classifies user messages into a single unified label set.
package intent

import "strings"

// Intent is the classified purpose of a user message.
type Intent string

const (
	Question              Intent = "question"
	CostEstimate          Intent = "cost_estimate"
	ProductRecommendation Intent = "product_recommendation"
	DesignIdea            Intent = "design_idea"
	DesignTransformation  Intent = "design_transformation"
	DIYGuide              Intent = "diy_guide"
	PDFRequest            Intent = "pdf_request"
	GeneralChat           Intent = "general_chat"
	SafetyCheck           Intent = "safety_check"
	Troubleshooting       Intent = "troubleshooting"
	RenovationWorkflow    Intent = "renovation_workflow"
)

// Default is used whenever classification cannot decide.
const Default = Question

// All lists every label in a stable order. It doubles as the model prompt vocabulary.
var All = []Intent{
	Question,
	CostEstimate,
	ProductRecommendation,
	DesignIdea,
	DesignTransformation,
	DIYGuide,
	PDFRequest,
	GeneralChat,
	SafetyCheck,
	Troubleshooting,
	RenovationWorkflow,
}

// legacyLabels maps the older orchestrator vocabulary onto the unified set.
var legacyLabels = map[string]Intent{
	"visual_exploration":  DesignIdea,
	"diy_instructions":    DIYGuide,
	"cost_estimation":     CostEstimate,
	"product_search":      ProductRecommendation,
	"renovation_workflow": RenovationWorkflow,
	"general_question":    Question,
	"safety_check":        SafetyCheck,
	"troubleshooting":     Troubleshooting,
}

// FromLegacy converts a legacy label. ok is false for unknown labels.
func FromLegacy(label string) (Intent, bool) {
	in, ok := legacyLabels[normalizeLabel(label)]
	return in, ok
}

// Parse accepts either a unified or a legacy label.
func Parse(label string) (Intent, bool) {
	norm := normalizeLabel(label)
	for _, in := range All {
		if string(in) == norm {
			return in, true
		}
	}
	return FromLegacy(norm)
}

// IsValid reports whether i is part of the unified set.
func (i Intent) IsValid() bool {
	for _, in := range All {
		if in == i {
			return true
		}
	}
	return false
}

// String returns the label.
func (i Intent) String() string {
	return string(i)
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.Trim(label, "\"'`.,:; \n\t")
	label = strings.ReplaceAll(label, "-", "_")
	label = strings.ReplaceAll(label, " ", "_")
	return label
}
