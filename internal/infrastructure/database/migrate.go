package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&entities.Conversation{},
		&entities.Message{},
		&entities.ConversationSummary{},
		&entities.WorkflowState{},
		&entities.Home{},
		&entities.Room{},
		&entities.Material{},
		&entities.Fixture{},
		&entities.Product{},
		&entities.ImageAnalysis{},
		&entities.MemoryFact{},
	}
}

// AutoMigrate applies database schema changes for the conversation domain.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return err
	}

	log.Info().Int("tables", len(Models())).Msg("database schema up to date")
	return nil
}
