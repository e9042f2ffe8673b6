package conversation

import (
	"strings"
	"time"

	"github.com/janhq/reno-server/internal/domain/intent"
)

// ===============================================
// Conversation Types
// ===============================================

// Persona describes who the assistant is talking to.
type Persona string

const (
	PersonaHomeowner  Persona = "homeowner"
	PersonaDIYWorker  Persona = "diy_worker"
	PersonaContractor Persona = "contractor"
)

// IsValid reports whether p is empty (unset) or a known persona.
func (p Persona) IsValid() bool {
	switch p {
	case "", PersonaHomeowner, PersonaDIYWorker, PersonaContractor:
		return true
	}
	return false
}

// Scenario narrows a conversation to a guided flow.
type Scenario string

const (
	ScenarioContractorQuotes Scenario = "contractor_quotes"
	ScenarioDIYProjectPlan   Scenario = "diy_project_plan"
)

// IsValid reports whether s is empty (unset) or a known scenario.
func (s Scenario) IsValid() bool {
	switch s {
	case "", ScenarioContractorQuotes, ScenarioDIYProjectPlan:
		return true
	}
	return false
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ===============================================
// Conversation Structure
// ===============================================

// Conversation is the aggregate root for a chat thread.
type Conversation struct {
	ID            uint       `json:"-"`
	PublicID      string     `json:"id"`
	UserID        *string    `json:"user_id,omitempty"`
	HomeID        *string    `json:"home_id,omitempty"`
	Title         string     `json:"title"`
	Persona       Persona    `json:"persona,omitempty"`
	Scenario      Scenario   `json:"scenario,omitempty"`
	MessageCount  int        `json:"message_count"`
	IsActive      bool       `json:"is_active"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AccessibleBy reports whether userID may read or write the conversation.
// Anonymous conversations are open to everyone.
func (c *Conversation) AccessibleBy(userID string) bool {
	if c.UserID == nil || *c.UserID == "" {
		return true
	}
	return *c.UserID == userID
}

// Message is one immutable turn.
type Message struct {
	ID             uint          `json:"-"`
	PublicID       string        `json:"id"`
	ConversationID uint          `json:"-"`
	Sequence       int           `json:"sequence"`
	Role           Role          `json:"role"`
	Content        string        `json:"content"`
	Intent         intent.Intent `json:"intent,omitempty"`
	Metadata       Metadata      `json:"metadata"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Summary condenses a contiguous, non-overlapping range of messages.
type Summary struct {
	ID             uint      `json:"-"`
	ConversationID uint      `json:"-"`
	StartMessageID uint      `json:"start_message_id"`
	EndMessageID   uint      `json:"end_message_id"`
	MessageCount   int       `json:"message_count"`
	SummaryText    string    `json:"summary_text"`
	KeyTopics      []string  `json:"key_topics"`
	CreatedAt      time.Time `json:"created_at"`
}

// WindowEntry is one element of the context window handed to generation.
// Summaries carry Type "summary" and role system.
type WindowEntry struct {
	Role      Role      `json:"role"`
	Type      string    `json:"type,omitempty"`
	Content   string    `json:"content"`
	KeyTopics []string  `json:"key_topics,omitempty"`
	Metadata  *Metadata `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryTypeSummary marks a summary entry in the window.
const EntryTypeSummary = "summary"

// IsSummary reports whether the entry is a summary.
func (e WindowEntry) IsSummary() bool {
	return e.Type == EntryTypeSummary
}

// ===============================================
// Filters
// ===============================================

// Filter narrows conversation listings.
type Filter struct {
	UserID   *string
	HomeID   *string
	IsActive *bool
}

// Pagination is 1-based page pagination.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize clamps pagination to sane bounds.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// Offset returns the row offset for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

const maxTitleRunes = 60

// TitleFromMessage derives a default title from the first user message.
func TitleFromMessage(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if title == "" {
		return "New conversation"
	}
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = strings.TrimSpace(string(runes[:maxTitleRunes])) + "..."
	}
	return title
}
