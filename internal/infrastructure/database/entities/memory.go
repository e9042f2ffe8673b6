package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/janhq/reno-server/internal/domain/memory"
)

// MemoryFact is one remembered fact. The scope columns together with topic
// and key identify a fact.
type MemoryFact struct {
	ID             uint           `gorm:"primaryKey"`
	UserID         *string        `gorm:"type:varchar(64);index:idx_memory_fact_scope"`
	HomeID         *string        `gorm:"type:varchar(64);index:idx_memory_fact_scope"`
	ConversationID *uint          `gorm:"index:idx_memory_fact_scope"`
	Topic          string         `gorm:"type:varchar(64);index;not null"`
	Key            string         `gorm:"column:fact_key;type:varchar(128);not null"`
	Value          datatypes.JSON `gorm:"type:jsonb"`
	Source         string         `gorm:"type:varchar(64)"`
	Confidence     float64        `gorm:"not null;default:0"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime;index"`
}

// TableName specifies the table name for MemoryFact.
func (MemoryFact) TableName() string {
	return "memory_facts"
}

// EtoD converts database entity to domain model.
func (f *MemoryFact) EtoD() memory.Fact {
	return memory.Fact{
		ID:             f.ID,
		UserID:         f.UserID,
		HomeID:         f.HomeID,
		ConversationID: f.ConversationID,
		Topic:          f.Topic,
		Key:            f.Key,
		Value:          json.RawMessage(f.Value),
		Source:         f.Source,
		Confidence:     f.Confidence,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// NewSchemaMemoryFact creates a database entity from domain model.
func NewSchemaMemoryFact(f *memory.Fact) *MemoryFact {
	return &MemoryFact{
		ID:             f.ID,
		UserID:         f.UserID,
		HomeID:         f.HomeID,
		ConversationID: f.ConversationID,
		Topic:          f.Topic,
		Key:            f.Key,
		Value:          datatypes.JSON(f.Value),
		Source:         f.Source,
		Confidence:     f.Confidence,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}
