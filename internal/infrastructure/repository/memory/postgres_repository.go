package memory

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/janhq/reno-server/internal/domain/memory"
	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// Repository persists memory facts.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a memory repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the user's facts for topic, most recently updated first.
func (r *Repository) Get(ctx context.Context, userID, topic string) ([]memory.Fact, error) {
	var rows []entities.MemoryFact
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND topic = ?", userID, topic).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, queryError(ctx, err)
	}
	return toFacts(rows), nil
}

// Put inserts the fact or replaces the value of the fact with the same scope,
// topic and key.
func (r *Repository) Put(ctx context.Context, fact *memory.Fact) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.MemoryFact
		err := matchScope(tx, fact.UserID, fact.HomeID, fact.ConversationID).
			Where("topic = ? AND fact_key = ?", fact.Topic, fact.Key).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entity := entities.NewSchemaMemoryFact(fact)
			if err := tx.Create(entity).Error; err != nil {
				return err
			}
			fact.ID = entity.ID
			fact.CreatedAt = entity.CreatedAt
			fact.UpdatedAt = entity.UpdatedAt
			return nil
		case err != nil:
			return err
		}

		if err := tx.Model(&existing).Updates(map[string]any{
			"value":      entities.NewSchemaMemoryFact(fact).Value,
			"source":     fact.Source,
			"confidence": fact.Confidence,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		fact.ID = existing.ID
		fact.CreatedAt = existing.CreatedAt
		fact.UpdatedAt = now
		return nil
	})
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to save memory fact",
			err,
			"a07fb5c1-2839-4aab-8ded-6e7f8091a2b3",
		)
	}
	return nil
}

// ForScope returns the most recently updated facts matching any scope field.
func (r *Repository) ForScope(ctx context.Context, scope memory.Scope, limit int) ([]memory.Fact, error) {
	query := r.db.WithContext(ctx).Model(&entities.MemoryFact{})
	var cond *gorm.DB
	add := func(clause string, arg any) {
		if cond == nil {
			cond = r.db.Where(clause, arg)
			return
		}
		cond = cond.Or(clause, arg)
	}
	if scope.UserID != nil {
		add("user_id = ?", *scope.UserID)
	}
	if scope.HomeID != nil {
		add("home_id = ?", *scope.HomeID)
	}
	if scope.ConversationID != nil {
		add("conversation_id = ?", *scope.ConversationID)
	}
	if cond == nil {
		return []memory.Fact{}, nil
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []entities.MemoryFact
	if err := query.Where(cond).Order("updated_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, queryError(ctx, err)
	}
	return toFacts(rows), nil
}

func matchScope(tx *gorm.DB, userID, homeID *string, conversationID *uint) *gorm.DB {
	q := tx
	if userID == nil {
		q = q.Where("user_id IS NULL")
	} else {
		q = q.Where("user_id = ?", *userID)
	}
	if homeID == nil {
		q = q.Where("home_id IS NULL")
	} else {
		q = q.Where("home_id = ?", *homeID)
	}
	if conversationID == nil {
		q = q.Where("conversation_id IS NULL")
	} else {
		q = q.Where("conversation_id = ?", *conversationID)
	}
	return q
}

func toFacts(rows []entities.MemoryFact) []memory.Fact {
	out := make([]memory.Fact, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out
}

func queryError(ctx context.Context, err error) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		"failed to load memory facts",
		err,
		"b180c6d2-394a-4bbc-9efe-7f8091a2b3c4",
	)
}
