package conversation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janhq/reno-server/internal/domain/workflow"
	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// WorkflowRepository stores one workflow state row per conversation.
type WorkflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository builds a workflow repository.
func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Get returns nil without error when no state exists.
func (r *WorkflowRepository) Get(ctx context.Context, conversationID uint) (*workflow.State, error) {
	var row entities.WorkflowState
	err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load workflow state",
			err,
			"b180c6d2-394a-45bc-8ede-7f8091a2b3c4",
		)
	}
	return row.EtoD(), nil
}

// Upsert writes the state, replacing any existing row.
func (r *WorkflowRepository) Upsert(ctx context.Context, state *workflow.State) error {
	state.UpdatedAt = time.Now().UTC()
	entity := entities.NewSchemaWorkflowState(state)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stage", "stage_number", "total_stages", "progress", "next_steps", "updated_at"}),
	}).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to save workflow state",
			err,
			"c291d7e3-4a5b-46cd-9fef-8091a2b3c4d5",
		)
	}
	return nil
}

// Delete removes the conversation's workflow state.
func (r *WorkflowRepository) Delete(ctx context.Context, conversationID uint) error {
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Delete(&entities.WorkflowState{}).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete workflow state",
			err,
			"d3a2e8f4-5b6c-47de-8a01-91a2b3c4d5e6",
		)
	}
	return nil
}
