package conversation

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	domain "github.com/janhq/reno-server/internal/domain/conversation"
	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// MessageRepository persists conversation turns. When the deployed schema
// lacks the newer message columns it keeps writing the base columns and
// drops intent and metadata.
type MessageRepository struct {
	db      *gorm.DB
	log     zerolog.Logger
	reduced atomic.Bool
}

// NewMessageRepository builds a message repository.
func NewMessageRepository(db *gorm.DB, log zerolog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log.With().Str("component", "message-repository").Logger()}
}

// Append stores messages after the current last sequence and bumps the
// conversation counters in the same transaction.
func (r *MessageRepository) Append(ctx context.Context, conv *domain.Conversation, messages []*domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&entities.Message{}).
			Where("conversation_id = ?", conv.ID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		for i, m := range messages {
			m.ConversationID = conv.ID
			m.Sequence = last + i + 1
			if m.CreatedAt.IsZero() {
				m.CreatedAt = now
			}
			entity, err := entities.NewSchemaMessage(m)
			if err != nil {
				return err
			}
			if err := r.insert(tx, entity); err != nil {
				return err
			}
			m.ID = entity.ID
		}

		return tx.Model(&entities.Conversation{}).
			Where("id = ?", conv.ID).
			UpdateColumns(map[string]any{
				"message_count":   gorm.Expr("message_count + ?", len(messages)),
				"last_message_at": now,
				"updated_at":      now,
			}).Error
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to append messages",
			err,
			"5b2a607c-d3e4-4f56-8178-192a3b4c5d6e",
		)
	}

	conv.MessageCount += len(messages)
	conv.LastMessageAt = &now
	conv.UpdatedAt = now
	return nil
}

// insert writes the full row inside a savepoint and retries with the base
// columns when the schema is missing a column.
func (r *MessageRepository) insert(tx *gorm.DB, entity *entities.Message) error {
	if r.reduced.Load() {
		return tx.Select(entities.BaseMessageColumns).Create(entity).Error
	}
	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(entity).Error
	})
	if err == nil || !IsMissingColumn(err) {
		return err
	}
	if r.reduced.CompareAndSwap(false, true) {
		r.log.Warn().Err(err).Msg("message schema is missing columns, storing role and content only")
	}
	entity.ID = 0
	return tx.Select(entities.BaseMessageColumns).Create(entity).Error
}

// IsMissingColumn reports whether err comes from writing a column the table
// does not have.
func IsMissingColumn(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "sqlstate 42703"):
		return true
	case strings.Contains(msg, "no column named"):
		return true
	case strings.Contains(msg, "column") && strings.Contains(msg, "does not exist"):
		return true
	}
	return false
}

// Recent returns the newest limit messages in chronological order.
func (r *MessageRepository) Recent(ctx context.Context, conversationID uint, limit int) ([]*domain.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sequence DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, listError(ctx, err)
	}
	out := make([]*domain.Message, len(rows))
	for i := range rows {
		out[len(rows)-1-i] = rows[i].EtoD()
	}
	return out, nil
}

// List returns a page of messages in chronological order.
func (r *MessageRepository) List(ctx context.Context, conversationID uint, pagination domain.Pagination) ([]*domain.Message, error) {
	pagination.Normalize()
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sequence ASC").
		Offset(pagination.Offset()).
		Limit(pagination.PageSize).
		Find(&rows).Error; err != nil {
		return nil, listError(ctx, err)
	}
	return toDomainMessages(rows), nil
}

// ListAfter returns every message with ID greater than afterID, oldest first.
func (r *MessageRepository) ListAfter(ctx context.Context, conversationID uint, afterID uint) ([]*domain.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id > ?", conversationID, afterID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, listError(ctx, err)
	}
	return toDomainMessages(rows), nil
}

// Count returns the number of stored messages.
func (r *MessageRepository) Count(ctx context.Context, conversationID uint) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error; err != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count messages",
			err,
			"6c3b718d-e4f5-4067-9289-2a3b4c5d6e7f",
		)
	}
	return total, nil
}

func toDomainMessages(rows []entities.Message) []*domain.Message {
	out := make([]*domain.Message, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out
}

func listError(ctx context.Context, err error) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		"failed to load messages",
		err,
		"7d4c829e-f506-4178-8a9a-3b4c5d6e7f80",
	)
}
