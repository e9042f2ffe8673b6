// Package memory stores long-lived facts about users and homes.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Topics written by the chat pipeline.
const (
	TopicEstimates   = "estimates"
	TopicPreferences = "preferences"

	KeyLastEstimate = "last_estimate"
)

// Fact is one remembered key/value under a topic.
type Fact struct {
	ID             uint            `json:"-"`
	UserID         *string         `json:"user_id,omitempty"`
	HomeID         *string         `json:"home_id,omitempty"`
	ConversationID *uint           `json:"-"`
	Topic          string          `json:"topic"`
	Key            string          `json:"key"`
	Value          json.RawMessage `json:"value"`
	Source         string          `json:"source"`
	Confidence     float64         `json:"confidence"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Scope selects facts relevant to one turn.
type Scope struct {
	UserID         *string
	HomeID         *string
	ConversationID *uint
}

// Store persists facts.
type Store interface {
	Get(ctx context.Context, userID, topic string) ([]Fact, error)
	// Put inserts or replaces the fact with the same scope, topic and key.
	Put(ctx context.Context, fact *Fact) error
	// ForScope returns the most recently updated facts matching any scope field.
	ForScope(ctx context.Context, scope Scope, limit int) ([]Fact, error)
}

// Service validates writes and renders facts for prompts.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService builds a memory service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("component", "memory").Logger()}
}

// Remember stores value under topic/key for the scope.
func (s *Service) Remember(ctx context.Context, scope Scope, topic, key string, value any, source string, confidence float64) error {
	if strings.TrimSpace(topic) == "" || strings.TrimSpace(key) == "" {
		return fmt.Errorf("memory fact requires topic and key")
	}
	if scope.UserID == nil && scope.HomeID == nil && scope.ConversationID == nil {
		return fmt.Errorf("memory fact requires a scope")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal memory value: %w", err)
	}
	return s.store.Put(ctx, &Fact{
		UserID:         scope.UserID,
		HomeID:         scope.HomeID,
		ConversationID: scope.ConversationID,
		Topic:          topic,
		Key:            key,
		Value:          raw,
		Source:         source,
		Confidence:     clamp01(confidence),
	})
}

// Recall returns the user's facts for topic.
func (s *Service) Recall(ctx context.Context, userID, topic string) ([]Fact, error) {
	return s.store.Get(ctx, userID, topic)
}

// PromptBlock renders up to limit facts for the scope. Failures yield "".
func (s *Service) PromptBlock(ctx context.Context, scope Scope, limit int) string {
	if scope.UserID == nil && scope.HomeID == nil && scope.ConversationID == nil {
		return ""
	}
	facts, err := s.store.ForScope(ctx, scope, limit)
	if err != nil {
		s.log.Warn().Err(err).Msg("memory lookup failed")
		return ""
	}
	return Render(facts)
}

// Render formats facts as a bullet list.
func Render(facts []Fact) string {
	if len(facts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "- %s/%s: %s\n", f.Topic, f.Key, compactValue(f.Value))
	}
	return strings.TrimRight(b.String(), "\n")
}

func compactValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := string(raw)
	if len(text) > 300 {
		text = text[:300] + "..."
	}
	return text
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
