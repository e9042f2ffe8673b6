package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/reno-server/internal/domain/action"
	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
	domainerrors "github.com/janhq/reno-server/internal/domain/errors"
	"github.com/janhq/reno-server/internal/domain/intent"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// actionAgents maps agent-backed actions to their agent and the intent used
// for follow-up suggestions.
var actionAgents = map[string]struct {
	agent  string
	intent intent.Intent
}{
	action.GetDetailedEstimate: {agent.NameCost, intent.CostEstimate},
	action.FindProducts:        {agent.NameProduct, intent.ProductRecommendation},
	action.GenerateDIYGuide:    {agent.NameDIY, intent.DIYGuide},
	action.CreateDIYPlan:       {agent.NameDIY, intent.DIYGuide},
	action.GenerateDesign:      {agent.NameDesign, intent.DesignIdea},
}

// historyScan bounds how far back actions look for earlier turns.
const historyScan = 40

// ExecuteAction runs a suggested action against a conversation and stores the
// outcome as an assistant turn. Unknown actions are stored as a
// StatusUnknownAction turn that lists the available actions.
func (s *Service) ExecuteAction(ctx context.Context, req ActionRequest) (*TurnResult, error) {
	ctx, span := s.tracer.Start(ctx, "chat.action", trace.WithAttributes(attribute.String("chat.action", req.Action)))
	defer span.End()

	name := strings.TrimSpace(req.Action)
	if name == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"action is required", nil, "2e9a7c4d-8b1f-4d3a-a5e6-7c0b9f2d1e41")
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"conversation_id is required", nil, "5c3f8a1e-6d2b-4e7c-9f4a-0b8d2e6c1a42")
	}

	conv, err := s.deps.Conversations.Get(ctx, req.ConversationID, req.UserID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	unlock, err := s.lock(ctx, conv.PublicID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	defer unlock()

	history, err := s.deps.Conversations.RecentMessages(ctx, conv.ID, historyScan)
	if err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("history unavailable for action")
		history = nil
	}

	var out actionOutcome
	switch {
	case !action.Known(name):
		out = actionOutcome{
			status: StatusUnknownAction,
			text:   fmt.Sprintf("I don't know how to %q yet. Try one of: %s.", name, strings.Join(knownActions(), ", ")),
		}
	case name == action.ExportPDF:
		out = s.exportReport(ctx, conv, history)
	case name == action.MakeShoppingList:
		out = shoppingList(history)
	default:
		out = s.runAgentAction(ctx, conv, name, req.Context, history)
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistTimeout)
	defer cancel()
	result, err := s.persistAction(storeCtx, conv, name, out, history)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("chat.status", result.Status))
	s.deps.Metrics.TurnCompleted("action", result.Status)
	s.log.Info().
		Str("conversation_id", conv.PublicID).
		Str("action", name).
		Str("status", result.Status).
		Msg("action executed")
	return result, nil
}

type actionOutcome struct {
	status  string
	text    string
	intent  intent.Intent
	result  *agent.Result
	stored  *conversation.AgentResult
	missing []string
	images  []string
}

func (s *Service) runAgentAction(ctx context.Context, conv *conversation.Conversation, name string,
	params map[string]any, history []*conversation.Message) actionOutcome {
	target := actionAgents[name]
	out := actionOutcome{intent: target.intent}

	a, ok := s.deps.Agents.Get(target.agent)
	if !ok {
		out.status = StatusError
		out.text = "That action isn't available right now."
		return out
	}

	fields := make(map[string]any, len(params)+2)
	for k, v := range params {
		fields[k] = v
	}
	req := agent.Request{
		ConversationID: conv.PublicID,
		UserID:         conv.UserID,
		HomeID:         conv.HomeID,
		Region:         s.region(ctx, conv.HomeID),
		Fields:         fields,
	}
	if last := lastUserMessage(history); last != nil {
		text := last.Content
		req.Message = text
		req = req.WithField("project_scope", text).WithField("prompt", text)
		if target.agent == agent.NameProduct {
			if category := DetectCategory(text); category != "" {
				req = req.WithField("category", category)
			}
			if roomID := s.inferRoom(ctx, conv.HomeID, text); roomID != "" {
				req = req.WithField("room_id", roomID)
			}
		}
	}
	if name == action.CreateDIYPlan {
		req = req.WithField("skill_level", "intermediate")
	}

	var res agent.Result
	s.stage(ctx, domainerrors.StageAgent, func(ctx context.Context) {
		res = a.Process(ctx, req)
	})
	s.deps.Metrics.AgentOutcome(target.agent, string(res.Status))
	out.result = &res

	switch res.Status {
	case agent.StatusSuccess:
		stored, err := res.AgentResult()
		if err != nil {
			out.status = StatusError
			out.text = "Something went wrong preparing that result."
			s.log.Warn().Err(err).Str("action", name).Msg("agent result not storable")
			return out
		}
		out.status = StatusOK
		out.stored = stored
		out.text = describeResult(stored)
		if stored.Kind == conversation.AgentResultDesign {
			out.images = imagesOf(res)
		}
	case agent.StatusNeedsInput:
		out.status = StatusNeedsInput
		out.missing = res.MissingFields
		out.text = Clarification(res)
	default:
		out.status = StatusError
		out.text = "I couldn't complete that action just now. Please try again."
		s.log.Warn().Str("action", name).Str("agent_error", res.Error).Msg("action agent failed")
	}
	return out
}

func (s *Service) persistAction(ctx context.Context, conv *conversation.Conversation, name string,
	out actionOutcome, history []*conversation.Message) (*TurnResult, error) {
	suggested := s.deps.Suggester.Suggest(action.Input{
		Intent:      out.intent,
		Persona:     conv.Persona,
		AgentResult: out.result,
		Recent:      assistantMetadata(history),
	})

	now := time.Now().UTC()
	meta := conversation.Metadata{
		Intent:             string(out.intent),
		SuggestedActions:   suggested.Actions,
		SuggestedQuestions: suggested.Questions,
		Persona:            string(conv.Persona),
		Scenario:           string(conv.Scenario),
		GeneratedAt:        &now,
		Images:             out.images,
		Action:             name,
		ActionStatus:       out.status,
		MissingFields:      out.missing,
		AgentResult:        out.stored,
	}
	msg := &conversation.Message{
		Role:     conversation.RoleAssistant,
		Content:  out.text,
		Intent:   out.intent,
		Metadata: meta,
	}

	var err error
	s.stage(ctx, domainerrors.StagePersist, func(ctx context.Context) {
		err = s.deps.Conversations.AppendTurn(ctx, conv, msg)
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save the action result")
	}
	return &TurnResult{
		ConversationID:     conv.PublicID,
		MessageID:          msg.PublicID,
		Status:             out.status,
		Response:           out.text,
		Intent:             out.intent,
		SuggestedActions:   suggested.Actions,
		SuggestedQuestions: suggested.Questions,
		Images:             out.images,
		Metadata:           meta,
	}, nil
}

func knownActions() []string {
	names := make([]string, 0, len(action.Catalog))
	for name := range action.Catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lastUserMessage(history []*conversation.Message) *conversation.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == conversation.RoleUser {
			return history[i]
		}
	}
	return nil
}

// lastAgentResult returns the newest stored agent result of one of kinds.
func lastAgentResult(history []*conversation.Message, kinds ...conversation.AgentResultKind) *conversation.AgentResult {
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i].Metadata.AgentResult
		if r == nil {
			continue
		}
		for _, k := range kinds {
			if r.Kind == k {
				return r
			}
		}
	}
	return nil
}

func assistantMetadata(history []*conversation.Message) []conversation.Metadata {
	var out []conversation.Metadata
	for _, m := range history {
		if m.Role == conversation.RoleAssistant {
			out = append(out, m.Metadata)
		}
	}
	return out
}

var errNoFileStore = errors.New("no file store configured")
