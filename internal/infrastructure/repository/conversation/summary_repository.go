package conversation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	domain "github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// SummaryRepository persists rolling conversation summaries.
type SummaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository builds a summary repository.
func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// Create inserts the summary.
func (r *SummaryRepository) Create(ctx context.Context, summary *domain.Summary) error {
	entity := entities.NewSchemaSummary(summary)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create summary",
			err,
			"8e5d93af-0617-4289-9bab-4c5d6e7f8091",
		)
	}
	summary.ID = entity.ID
	summary.CreatedAt = entity.CreatedAt
	return nil
}

// Recent returns up to limit summaries, newest first.
func (r *SummaryRepository) Recent(ctx context.Context, conversationID uint, limit int) ([]*domain.Summary, error) {
	var rows []entities.ConversationSummary
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("end_message_id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load summaries",
			err,
			"9f6ea4b0-1728-439a-8cbc-5d6e7f8091a2",
		)
	}
	out := make([]*domain.Summary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

// Latest returns the newest summary or nil when none exists.
func (r *SummaryRepository) Latest(ctx context.Context, conversationID uint) (*domain.Summary, error) {
	var row entities.ConversationSummary
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("end_message_id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to load latest summary",
			err,
			"a07fb5c1-2839-44ab-9dcd-6e7f8091a2b3",
		)
	}
	return row.EtoD(), nil
}
