package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/janhq/reno-server/internal/domain/conversation"
)

// Conversation represents the database schema for conversations.
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID      string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID        *string    `gorm:"type:varchar(64);index:idx_conversation_user_active"`
	HomeID        *string    `gorm:"type:varchar(64);index"`
	Title         string     `gorm:"type:varchar(256);not null;default:''"`
	Persona       string     `gorm:"type:varchar(32)"`
	Scenario      string     `gorm:"type:varchar(32)"`
	MessageCount  int        `gorm:"not null;default:0"`
	IsActive      bool       `gorm:"not null;default:true"`
	LastMessageAt *time.Time `gorm:"index:idx_conversation_user_active"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// ===============================================
// JSON Types for GORM
// ===============================================

// StringList is a []string stored as a JSON array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported StringList source %T", value)
	}
}

// ===============================================
// Conversion Functions
// ===============================================

// EtoD converts database entity to domain model.
func (c *Conversation) EtoD() *conversation.Conversation {
	return &conversation.Conversation{
		ID:            c.ID,
		PublicID:      c.PublicID,
		UserID:        c.UserID,
		HomeID:        c.HomeID,
		Title:         c.Title,
		Persona:       conversation.Persona(c.Persona),
		Scenario:      conversation.Scenario(c.Scenario),
		MessageCount:  c.MessageCount,
		IsActive:      c.IsActive,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// NewSchemaConversation creates a database entity from domain model.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	return &Conversation{
		ID:            c.ID,
		PublicID:      c.PublicID,
		UserID:        c.UserID,
		HomeID:        c.HomeID,
		Title:         c.Title,
		Persona:       string(c.Persona),
		Scenario:      string(c.Scenario),
		MessageCount:  c.MessageCount,
		IsActive:      c.IsActive,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
