package entities

import (
	"time"

	"github.com/janhq/reno-server/internal/domain/workflow"
)

// WorkflowState is the renovation plan progress of one conversation.
type WorkflowState struct {
	ConversationID uint       `gorm:"primaryKey;autoIncrement:false"`
	Stage          string     `gorm:"size:32;not null"`
	StageNumber    int        `gorm:"not null"`
	TotalStages    int        `gorm:"not null"`
	Progress       float64    `gorm:"not null"`
	NextSteps      StringList `gorm:"type:jsonb"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for WorkflowState.
func (WorkflowState) TableName() string {
	return "workflow_states"
}

// EtoD converts database entity to domain model.
func (w *WorkflowState) EtoD() *workflow.State {
	return &workflow.State{
		ConversationID: w.ConversationID,
		Stage:          w.Stage,
		StageNumber:    w.StageNumber,
		TotalStages:    w.TotalStages,
		Progress:       w.Progress,
		NextSteps:      []string(w.NextSteps),
		UpdatedAt:      w.UpdatedAt,
	}
}

// NewSchemaWorkflowState creates a database entity from domain model.
func NewSchemaWorkflowState(s *workflow.State) *WorkflowState {
	return &WorkflowState{
		ConversationID: s.ConversationID,
		Stage:          s.Stage,
		StageNumber:    s.StageNumber,
		TotalStages:    s.TotalStages,
		Progress:       s.Progress,
		NextSteps:      StringList(s.NextSteps),
		UpdatedAt:      s.UpdatedAt,
	}
}
