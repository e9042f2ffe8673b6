package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/reno-server/internal/domain/action"
	"github.com/janhq/reno-server/internal/domain/agent"
	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/homecontext"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

func startConversation(t *testing.T, h *harness, message string) *TurnResult {
	t.Helper()
	res, err := h.svc.SendMessage(context.Background(), SendRequest{Message: message})
	require.NoError(t, err)
	return res
}

func TestUnknownActionIsNotAnError(t *testing.T) {
	h := newHarness("ok")
	first := startConversation(t, h, "hello there")

	res, err := h.svc.ExecuteAction(context.Background(), ActionRequest{ConversationID: first.ConversationID, Action: "launch_rocket"})
	require.NoError(t, err)

	assert.Equal(t, StatusUnknownAction, res.Status)
	assert.Contains(t, res.Response, action.ExportPDF)
	assert.NotEmpty(t, res.MessageID)

	stored := h.convs.stored(1)
	require.Len(t, stored, 3)
	msg := stored[2]
	assert.Equal(t, conversation.RoleAssistant, msg.Role)
	assert.Equal(t, res.MessageID, msg.PublicID)
	assert.Equal(t, res.Response, msg.Content)
	assert.Equal(t, "launch_rocket", msg.Metadata.Action)
	assert.Equal(t, StatusUnknownAction, msg.Metadata.ActionStatus)
}

func TestActionRequiresConversation(t *testing.T) {
	h := newHarness("ok")

	_, err := h.svc.ExecuteAction(context.Background(), ActionRequest{Action: action.ExportPDF})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = h.svc.ExecuteAction(context.Background(), ActionRequest{ConversationID: "conv_missing", Action: action.ExportPDF})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestDetailedEstimateUsesLastUserMessage(t *testing.T) {
	h := newHarness("ok")
	first := startConversation(t, h, "hello, I want to paint my 12x15 bedroom")

	res, err := h.svc.ExecuteAction(context.Background(), ActionRequest{
		ConversationID: first.ConversationID,
		Action:         action.GetDetailedEstimate,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, action.GetDetailedEstimate, res.Metadata.Action)
	assert.Equal(t, "Estimated cost for painting: $540.00 (likely range $459.00 to $621.00). Materials $135.00, labor $405.00.",
		res.Response)

	stored := h.convs.stored(1)
	require.Len(t, stored, 3)
	assert.Equal(t, conversation.RoleAssistant, stored[2].Role, "actions store only the assistant turn")
	assert.Equal(t, StatusOK, stored[2].Metadata.ActionStatus)
}

func TestActionContextOverridesMessage(t *testing.T) {
	h := newHarness("ok")
	first := startConversation(t, h, "hello there")

	res, err := h.svc.ExecuteAction(context.Background(), ActionRequest{
		ConversationID: first.ConversationID,
		Action:         action.FindProducts,
		Context:        map[string]any{"room_id": "room-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusNeedsInput, res.Status)
	assert.Equal(t, []string{"category"}, res.Metadata.MissingFields)
	assert.Contains(t, res.Response, "what kind of product")
}

func TestShoppingListNeedsAnEarlierResult(t *testing.T) {
	h := newHarness("ok")
	first := startConversation(t, h, "hello there")

	res, err := h.svc.ExecuteAction(context.Background(), ActionRequest{ConversationID: first.ConversationID, Action: action.MakeShoppingList})
	require.NoError(t, err)

	assert.Equal(t, StatusNeedsInput, res.Status)
	assert.Equal(t, []string{"project_scope"}, res.Metadata.MissingFields)
}

func TestShoppingListFromEstimate(t *testing.T) {
	h := newHarness("About $540.")
	first := startConversation(t, h, "How much would it cost to paint my 12x15 bedroom?")

	res, err := h.svc.ExecuteAction(context.Background(), ActionRequest{ConversationID: first.ConversationID, Action: action.MakeShoppingList})
	require.NoError(t, err)

	require.Equal(t, StatusOK, res.Status)
	require.NotNil(t, res.Metadata.AgentResult)
	assert.Equal(t, conversation.AgentResultShoppingList, res.Metadata.AgentResult.Kind)

	var list ShoppingList
	require.NoError(t, res.Metadata.AgentResult.Decode(&list))
	assert.Equal(t, conversation.AgentResultCostEstimate, list.Source)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "painting materials", list.Items[0].Name)
	assert.Equal(t, "135.00", list.Items[0].EstimatedCost)
	assert.NotContains(t, res.Metadata.ActionNames(), action.MakeShoppingList, "offered last turn")
}

func TestShoppingListFromGuide(t *testing.T) {
	stored, err := conversation.NewAgentResult(conversation.AgentResultDIYGuide, map[string]any{
		"project":   "backsplash",
		"tools":     []string{"notched trowel", "tile saw"},
		"materials": []string{"tile", "thinset"},
	})
	require.NoError(t, err)

	list, err := BuildShoppingList(stored)
	require.NoError(t, err)

	var names []string
	for _, it := range list.Items {
		names = append(names, it.Category+":"+it.Name)
	}
	assert.Equal(t, []string{"material:tile", "material:thinset", "tool:notched trowel", "tool:tile saw"}, names)
}

func TestExportReport(t *testing.T) {
	h := newHarness("About $540.")
	first := startConversation(t, h, "How much would it cost to paint my 12x15 bedroom?")

	res, err := h.svc.ExecuteAction(context.Background(), ActionRequest{ConversationID: first.ConversationID, Action: action.ExportPDF})
	require.NoError(t, err)

	require.Equal(t, StatusOK, res.Status)
	var report Report
	require.NoError(t, res.Metadata.AgentResult.Decode(&report))
	assert.Equal(t, "/uploads/report-"+first.ConversationID+".html", report.URL)
	assert.Equal(t, []string{"Cost estimate", "Conversation"}, report.Sections)

	page := string(h.files.saved["report-"+first.ConversationID+".html"])
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<h2>Cost estimate</h2>")
	assert.Contains(t, page, "Total: $540.00")
}

func TestExportReportSaveFailure(t *testing.T) {
	h := newHarness("ok")
	h.files.err = errors.New("read-only file system")
	first := startConversation(t, h, "hello there")

	res, err := h.svc.ExecuteAction(context.Background(), ActionRequest{ConversationID: first.ConversationID, Action: action.ExportPDF})
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Nil(t, res.Metadata.AgentResult)
}

func TestReportMarkdownTables(t *testing.T) {
	match, err := conversation.NewAgentResult(conversation.AgentResultProductMatch, map[string]any{
		"room":     map[string]any{"name": "Living Room"},
		"category": "sofa",
		"candidates": []map[string]any{
			{"product": map[string]any{"name": "Oslo | 3-seat", "width_in": 84, "depth_in": 36, "height_in": 32, "price": "$899"}, "will_fit": true},
		},
	})
	require.NoError(t, err)
	history := []*conversation.Message{
		{Role: conversation.RoleUser, Content: "find me a sofa"},
		{Role: conversation.RoleAssistant, Content: "Here are options.", Metadata: conversation.Metadata{AgentResult: match}},
	}

	md, sections := ReportMarkdown(&conversation.Conversation{Title: "Living room refresh"}, history,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, []string{"Products", "Conversation"}, sections)
	assert.Contains(t, md, "# Living room refresh\n\nGenerated March 1, 2026")
	assert.Contains(t, md, "| Oslo / 3-seat | 84 x 36 x 32 | $899 | yes |")
	assert.Contains(t, md, "**You:** find me a sofa")
}

func TestClarificationListsMissingFields(t *testing.T) {
	res := agent.NeedsInput(agent.NameProduct, []string{"room_id", "category"}, "Which room is it for?")
	assert.Equal(t,
		"To find products that fit, I need a bit more information: which room it is for and what kind of product you are after.\n- Which room is it for?",
		Clarification(res))

	res = agent.NeedsInput("mystery", []string{"a", "b_c", "d"})
	assert.Equal(t, "To help with that, I need a bit more information: a, b c and d.", Clarification(res))
}

func TestDetectCategory(t *testing.T) {
	cases := map[string]string{
		"Will a new dining table fit?":     "dining_table",
		"looking for a sectional couch":    "sofa",
		"does the fridge fit":              "refrigerator",
		"two nightstands for the bedroom":  "nightstand",
		"I need a bedside lamp":            "",
		"Is my driveway arranged oddly?":   "",
		"what about a coffee table or two": "table",
	}
	for msg, want := range cases {
		assert.Equal(t, want, DetectCategory(msg), msg)
	}
}

func TestMatchRoom(t *testing.T) {
	rooms := []homecontext.Room{
		{ID: "r1", Name: "Kitchen", RoomType: "kitchen"},
		{ID: "r2", Name: "Guest Bedroom", RoomType: "bedroom"},
		{ID: "r3", Name: "Primary Suite", RoomType: "bedroom"},
		{ID: "r4", Name: "Den", RoomType: "living_room"},
	}
	assert.Equal(t, "r2", MatchRoom(rooms, "Will this bed fit in the guest bedroom?"))
	assert.Equal(t, "r2", MatchRoom(rooms, "a desk for the bedroom"), "first room of the type")
	assert.Equal(t, "r4", MatchRoom(rooms, "something for my den"))
	assert.Equal(t, "r4", MatchRoom(rooms, "a rug for the living room"))
	assert.Equal(t, "", MatchRoom(rooms, "what about the garden"))
	assert.Equal(t, "", MatchRoom(rooms, "denmark style chairs"))
}
