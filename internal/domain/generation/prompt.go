package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/homecontext"
	"github.com/janhq/reno-server/internal/domain/intent"
	"github.com/janhq/reno-server/internal/domain/llm"
)

const (
	maxAgentDataRunes = 4000
	maxTurnRunes      = 2000
)

// Input is everything the prompt is built from.
type Input struct {
	Message      string
	Intent       intent.Intent
	Persona      conversation.Persona
	Scenario     conversation.Scenario
	Context      homecontext.Bundle
	SkillContext string
	MemoryBlock  string
	Window       []conversation.WindowEntry
	AgentResult  *agent.Result
	// ImagesShown is set when generated images accompany the reply.
	ImagesShown int
	// ResolvedMessage is Message with a pronoun replaced by its referent.
	ResolvedMessage string
	// WorkflowStage and NextSteps describe the user's place in the renovation plan.
	WorkflowStage string
	NextSteps     []string
}

const baseInstruction = "You are a friendly, practical home renovation assistant. " +
	"Give concrete, safe advice. Use the home details you are given instead of asking for them again. " +
	"When a specialist result is provided, present its numbers exactly and explain them briefly. " +
	"Keep answers under 250 words unless the user asks for detail."

var personaInstructions = map[conversation.Persona]string{
	conversation.PersonaHomeowner:  "The user is a homeowner; avoid trade jargon and highlight when to hire a professional.",
	conversation.PersonaDIYWorker:  "The user does the work themselves; include tools, steps and safety precautions.",
	conversation.PersonaContractor: "The user is a contractor; be concise and use trade terminology, focus on scope, cost and schedule.",
}

var scenarioInstructions = map[conversation.Scenario]string{
	conversation.ScenarioContractorQuotes: "The user is comparing contractor quotes; point out gaps, unusual line items and questions to ask.",
	conversation.ScenarioDIYProjectPlan:   "The user is planning a DIY project; organize the answer as an ordered plan.",
}

// SystemInstruction returns the system prompt for a persona and scenario.
func SystemInstruction(persona conversation.Persona, scenario conversation.Scenario) string {
	parts := []string{baseInstruction}
	if p, ok := personaInstructions[persona]; ok {
		parts = append(parts, p)
	}
	if s, ok := scenarioInstructions[scenario]; ok {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// BuildPrompt renders the user-side prompt. Sections appear in a fixed order:
// home context, skills, memory, specialist result, renovation progress,
// conversation, message.
func BuildPrompt(in Input) string {
	var b strings.Builder

	if text := strings.TrimSpace(in.Context.ContextText); text != "" {
		section(&b, "Home details", text)
	}
	if text := strings.TrimSpace(in.SkillContext); text != "" {
		section(&b, "Guidance", text)
	}
	if text := strings.TrimSpace(in.MemoryBlock); text != "" {
		section(&b, "What you remember about this user", text)
	}
	if in.AgentResult != nil && in.AgentResult.OK() {
		if raw, err := json.Marshal(in.AgentResult.Data); err == nil {
			section(&b, fmt.Sprintf("Specialist result (%s)", in.AgentResult.Agent), llm.TruncateRunes(string(raw), maxAgentDataRunes))
		}
	}
	if len(in.NextSteps) > 0 {
		body := "Next steps:\n- " + strings.Join(in.NextSteps, "\n- ")
		if in.WorkflowStage != "" {
			body = "Current stage: " + in.WorkflowStage + "\n" + body
		}
		section(&b, "Renovation progress", body)
	}
	if in.ImagesShown > 0 {
		section(&b, "Images", fmt.Sprintf("%d generated design images are shown with your reply; refer to them.", in.ImagesShown))
	}
	if history := renderWindow(in.Window); history != "" {
		section(&b, "Conversation so far", history)
	}

	if in.Intent != "" {
		fmt.Fprintf(&b, "Detected intent: %s\n\n", in.Intent)
	}
	if resolved := strings.TrimSpace(in.ResolvedMessage); resolved != "" && resolved != strings.TrimSpace(in.Message) {
		fmt.Fprintf(&b, "Read the message as: %s\n\n", resolved)
	}
	b.WriteString("User: ")
	b.WriteString(strings.TrimSpace(in.Message))
	b.WriteString("\nAssistant:")
	return b.String()
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "## %s\n%s\n\n", title, body)
}

func renderWindow(window []conversation.WindowEntry) string {
	var b strings.Builder
	for _, e := range window {
		if e.IsSummary() {
			fmt.Fprintf(&b, "[Summary of earlier messages] %s", strings.TrimSpace(e.Content))
			if len(e.KeyTopics) > 0 {
				fmt.Fprintf(&b, " (topics: %s)", strings.Join(e.KeyTopics, ", "))
			}
			b.WriteByte('\n')
			continue
		}
		role := "User"
		if e.Role == conversation.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, llm.TruncateRunes(strings.TrimSpace(e.Content), maxTurnRunes))
	}
	return strings.TrimRight(b.String(), "\n")
}
