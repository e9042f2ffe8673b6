package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SuggestedAction is a clickable next step offered with an assistant turn.
type SuggestedAction struct {
	Action      string `json:"action"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Agent       string `json:"agent,omitempty"`
}

// Attachment describes a file uploaded with a turn.
type Attachment struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Type        string `json:"type"`
	Summary     string `json:"summary,omitempty"`
}

// AgentResultKind tags the payload stored in AgentResult.
type AgentResultKind string

const (
	AgentResultCostEstimate AgentResultKind = "cost_estimate"
	AgentResultProductMatch AgentResultKind = "product_match"
	AgentResultDIYGuide     AgentResultKind = "diy_guide"
	AgentResultDesign       AgentResultKind = "design"
	AgentResultShoppingList AgentResultKind = "shopping_list"
	AgentResultReport       AgentResultKind = "report"
)

// AgentResult is the structured output of a specialized agent, stored
// alongside the assistant turn that presented it.
type AgentResult struct {
	Kind    AgentResultKind `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewAgentResult marshals payload under kind.
func NewAgentResult(kind AgentResultKind, payload any) (*AgentResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	result := &AgentResult{Kind: kind, Payload: raw}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// Validate checks the tag and that the payload is a JSON object.
func (r *AgentResult) Validate() error {
	switch r.Kind {
	case AgentResultCostEstimate, AgentResultProductMatch, AgentResultDIYGuide,
		AgentResultDesign, AgentResultShoppingList, AgentResultReport:
	default:
		return fmt.Errorf("unknown agent result kind %q", r.Kind)
	}
	trimmed := bytes.TrimSpace(r.Payload)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("agent result %s payload must be a JSON object", r.Kind)
	}
	return nil
}

// Decode unmarshals the payload into out.
func (r *AgentResult) Decode(out any) error {
	return json.Unmarshal(r.Payload, out)
}

// Metadata is the typed form of a message's JSON metadata column.
type Metadata struct {
	Intent             string            `json:"intent,omitempty"`
	SuggestedActions   []SuggestedAction `json:"suggested_actions,omitempty"`
	SuggestedQuestions []string          `json:"suggested_questions,omitempty"`
	Persona            string            `json:"persona,omitempty"`
	Scenario           string            `json:"scenario,omitempty"`
	Model              string            `json:"model,omitempty"`
	GeneratedAt        *time.Time        `json:"generated_at,omitempty"`
	ContextSources     []string          `json:"context_sources,omitempty"`
	Attachments        []Attachment      `json:"attachments,omitempty"`
	Images             []string          `json:"images,omitempty"`
	DegradedStages     []string          `json:"degraded_stages,omitempty"`
	Partial            bool              `json:"partial,omitempty"`
	ResolvedMessage    string            `json:"resolved_message,omitempty"`
	Action             string            `json:"action,omitempty"`
	ActionStatus       string            `json:"action_status,omitempty"`
	MissingFields      []string          `json:"missing_fields,omitempty"`
	AgentResult        *AgentResult      `json:"agent_result,omitempty"`
	Workflow           *WorkflowProgress `json:"workflow,omitempty"`
}

// WorkflowProgress is the renovation plan position shown with a workflow turn.
type WorkflowProgress struct {
	Stage       string   `json:"stage"`
	StageNumber int      `json:"stage_number"`
	TotalStages int      `json:"total_stages"`
	Progress    float64  `json:"progress"`
	NextSteps   []string `json:"next_steps"`
}

// Validate runs write-time checks.
func (m *Metadata) Validate() error {
	for i, a := range m.SuggestedActions {
		if a.Action == "" {
			return fmt.Errorf("suggested_actions[%d]: action is required", i)
		}
	}
	if m.AgentResult != nil {
		if err := m.AgentResult.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ActionNames returns the action identifiers suggested with this turn.
func (m *Metadata) ActionNames() []string {
	names := make([]string, 0, len(m.SuggestedActions))
	for _, a := range m.SuggestedActions {
		names = append(names, a.Action)
	}
	return names
}
