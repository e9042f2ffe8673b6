package chat

import (
	"context"
	"time"

	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/homecontext"
	"github.com/janhq/reno-server/internal/domain/intent"
)

// Modes accepted on a chat request.
const (
	ModeChat = "chat"
	// ModeQuick answers from context only and skips specialized agents.
	ModeQuick = "quick"
)

// Upload is a file sent with a message.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SendRequest is one user message.
type SendRequest struct {
	Message        string
	ConversationID string
	UserID         string
	HomeID         *string
	Persona        conversation.Persona
	Scenario       conversation.Scenario
	Mode           string
	Uploads        []Upload
}

// Status values reported for a turn or action.
const (
	StatusOK            = "ok"
	StatusNeedsInput    = "needs_input"
	StatusError         = "error"
	StatusUnknownAction = "unknown_action"
)

// TurnResult is the outcome of a message or action turn.
type TurnResult struct {
	ConversationID     string                         `json:"conversation_id"`
	MessageID          string                         `json:"message_id"`
	UserMessageID      string                         `json:"user_message_id,omitempty"`
	Status             string                         `json:"status"`
	Response           string                         `json:"response"`
	Intent             intent.Intent                  `json:"intent,omitempty"`
	SuggestedActions   []conversation.SuggestedAction `json:"suggested_actions"`
	SuggestedQuestions []string                       `json:"suggested_questions"`
	Images             []string                       `json:"images,omitempty"`
	Metadata           conversation.Metadata          `json:"metadata"`
}

// EventType names a streaming event.
type EventType string

const (
	EventToken    EventType = "token"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one item of a streamed turn.
type Event struct {
	Type    EventType   `json:"type"`
	Content string      `json:"content,omitempty"`
	Message *TurnResult `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ActionRequest asks for a suggested action to be executed.
type ActionRequest struct {
	ConversationID string
	UserID         string
	Action         string
	Context        map[string]any
}

// StoredFile is an upload saved by FileStore.
type StoredFile struct {
	URL         string
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// FileStore persists uploads and generated reports.
type FileStore interface {
	// Save stores data and detects its content type when contentType is empty.
	Save(ctx context.Context, filename, contentType string, data []byte) (*StoredFile, error)
}

// IntentClassifier classifies a message.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, history []intent.Turn) intent.Result
}

// ContextAssembler builds home context.
type ContextAssembler interface {
	Assemble(ctx context.Context, homeID *string, query string, k int, includeImages bool) homecontext.Bundle
}

// Metrics records pipeline telemetry.
type Metrics interface {
	ObserveStage(stage string, d time.Duration)
	StageDegraded(stage string)
	IntentClassified(in intent.Intent, source string)
	AgentOutcome(agent, status string)
	TurnCompleted(mode, status string)
	SummaryCreated()
}

type noopMetrics struct{}

func (noopMetrics) ObserveStage(string, time.Duration)     {}
func (noopMetrics) StageDegraded(string)                   {}
func (noopMetrics) IntentClassified(intent.Intent, string) {}
func (noopMetrics) AgentOutcome(string, string)            {}
func (noopMetrics) TurnCompleted(string, string)           {}
func (noopMetrics) SummaryCreated()                        {}
