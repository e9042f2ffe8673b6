package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// Repository persists conversation metadata.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the conversation record.
func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) error {
	entity := entities.NewSchemaConversation(conv)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create conversation",
			err,
			"b1e0c6d2-3f4a-4b5c-8d6e-7f8091a2b3c4",
		)
	}

	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByPublicID fetches a conversation by its public ID.
func (r *Repository) FindByPublicID(ctx context.Context, publicID string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(
				ctx,
				platformerrors.LayerRepository,
				platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("conversation not found: %s", publicID),
				nil,
				"c2f1d7e3-4a5b-4c6d-9e7f-8091a2b3c4d5",
			)
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to fetch conversation",
			err,
			"d3a2e8f4-5b6c-4d7e-8f90-91a2b3c4d5e6",
		)
	}

	return entity.EtoD(), nil
}

// List returns conversations matching filter, most recently active first.
func (r *Repository) List(ctx context.Context, filter domain.Filter, pagination domain.Pagination) ([]*domain.Conversation, error) {
	pagination.Normalize()
	query := applyFilter(r.db.WithContext(ctx).Model(&entities.Conversation{}), filter).
		Order("COALESCE(last_message_at, created_at) DESC").
		Order("id DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PageSize)

	var rows []entities.Conversation
	if err := query.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list conversations",
			err,
			"e4b3f905-6c7d-4e8f-9a01-a2b3c4d5e6f7",
		)
	}

	out := make([]*domain.Conversation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

// Count returns the number of conversations matching filter.
func (r *Repository) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	var total int64
	if err := applyFilter(r.db.WithContext(ctx).Model(&entities.Conversation{}), filter).Count(&total).Error; err != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count conversations",
			err,
			"f5c40a16-7d8e-4f90-8b12-b3c4d5e6f708",
		)
	}
	return total, nil
}

// Update saves every mutable column of the conversation.
func (r *Repository) Update(ctx context.Context, conv *domain.Conversation) error {
	now := time.Now().UTC()
	entity := entities.NewSchemaConversation(conv)
	result := r.db.WithContext(ctx).
		Model(&entities.Conversation{}).
		Where("id = ?", conv.ID).
		Updates(map[string]any{
			"home_id":    entity.HomeID,
			"title":      entity.Title,
			"persona":    entity.Persona,
			"scenario":   entity.Scenario,
			"is_active":  entity.IsActive,
			"updated_at": now,
		})
	if result.Error != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update conversation",
			result.Error,
			"06d51b27-8e9f-4a01-9c23-c4d5e6f70819",
		)
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("conversation not found: %s", conv.PublicID),
			nil,
			"17e62c38-9fa0-4b12-8d34-d5e6f708192a",
		)
	}
	conv.UpdatedAt = now
	return nil
}

// Delete removes the conversation with its messages, summaries and workflow
// state in one transaction.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&entities.Message{}, &entities.ConversationSummary{}, &entities.WorkflowState{}} {
			if err := tx.Where("conversation_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&entities.Conversation{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete conversation",
			err,
			"28f73d49-a0b1-4c23-9e45-e6f708192a3b",
		)
	}
	if affected == 0 {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("conversation not found: %d", id),
			nil,
			"39084e5a-b1c2-4d34-8f56-f708192a3b4c",
		)
	}
	return nil
}

// ActiveSince returns active conversations with a message after since, newest
// activity first.
func (r *Repository) ActiveSince(ctx context.Context, since time.Time, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND last_message_at > ?", true, since).
		Order("last_message_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list active conversations",
			err,
			"4a195f6b-c2d3-4e45-9067-08192a3b4c5d",
		)
	}
	out := make([]*domain.Conversation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

func applyFilter(query *gorm.DB, filter domain.Filter) *gorm.DB {
	if filter.UserID != nil {
		if *filter.UserID == "" {
			query = query.Where("(user_id IS NULL OR user_id = '')")
		} else {
			query = query.Where("user_id = ?", *filter.UserID)
		}
	}
	if filter.HomeID != nil {
		query = query.Where("home_id = ?", *filter.HomeID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}
