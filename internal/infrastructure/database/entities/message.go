package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/domain/intent"
)

// Message stores each turn of a conversation.
type Message struct {
	ID             uint           `gorm:"primaryKey"`
	PublicID       string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID uint           `gorm:"index:idx_message_conversation_sequence;not null"`
	Sequence       int            `gorm:"index:idx_message_conversation_sequence"`
	Role           string         `gorm:"size:32;not null"`
	Content        string         `gorm:"type:text"`
	Intent         string         `gorm:"size:64"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// BaseMessageColumns are present in every deployed schema revision. Writes
// fall back to them when newer columns are missing.
var BaseMessageColumns = []string{"conversation_id", "public_id", "role", "content", "sequence", "created_at"}

// EtoD converts database entity to domain model. Metadata that fails to
// decode is dropped rather than failing the read.
func (m *Message) EtoD() *conversation.Message {
	msg := &conversation.Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Sequence:       m.Sequence,
		Role:           conversation.Role(m.Role),
		Content:        m.Content,
		Intent:         intent.Intent(m.Intent),
		CreatedAt:      m.CreatedAt,
	}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &msg.Metadata)
	}
	return msg
}

// NewSchemaMessage creates a database entity from domain model.
func NewSchemaMessage(m *conversation.Message) (*Message, error) {
	meta, err := json.Marshal(m.Metadata)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Sequence:       m.Sequence,
		Role:           string(m.Role),
		Content:        m.Content,
		Intent:         string(m.Intent),
		Metadata:       datatypes.JSON(meta),
		CreatedAt:      m.CreatedAt,
	}, nil
}

// ConversationSummary condenses a range of messages.
type ConversationSummary struct {
	ID             uint       `gorm:"primaryKey"`
	ConversationID uint       `gorm:"index;not null"`
	StartMessageID uint       `gorm:"not null"`
	EndMessageID   uint       `gorm:"not null"`
	MessageCount   int        `gorm:"not null"`
	SummaryText    string     `gorm:"type:text;not null"`
	KeyTopics      StringList `gorm:"type:jsonb"`
	CreatedAt      time.Time
}

// TableName specifies the table name for ConversationSummary.
func (ConversationSummary) TableName() string {
	return "conversation_summaries"
}

// EtoD converts database entity to domain model.
func (s *ConversationSummary) EtoD() *conversation.Summary {
	topics := []string(s.KeyTopics)
	if topics == nil {
		topics = []string{}
	}
	return &conversation.Summary{
		ID:             s.ID,
		ConversationID: s.ConversationID,
		StartMessageID: s.StartMessageID,
		EndMessageID:   s.EndMessageID,
		MessageCount:   s.MessageCount,
		SummaryText:    s.SummaryText,
		KeyTopics:      topics,
		CreatedAt:      s.CreatedAt,
	}
}

// NewSchemaSummary creates a database entity from domain model.
func NewSchemaSummary(s *conversation.Summary) *ConversationSummary {
	return &ConversationSummary{
		ID:             s.ID,
		ConversationID: s.ConversationID,
		StartMessageID: s.StartMessageID,
		EndMessageID:   s.EndMessageID,
		MessageCount:   s.MessageCount,
		SummaryText:    s.SummaryText,
		KeyTopics:      StringList(s.KeyTopics),
		CreatedAt:      s.CreatedAt,
	}
}
