package home

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/janhq/reno-server/internal/domain/homecontext"
	"github.com/janhq/reno-server/internal/infrastructure/database"
	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

func seededDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(context.Background(), db, zerolog.Nop()))

	kitchen := "room-kitchen"
	rows := []any{
		&entities.Home{ID: "home-1", Name: "Maple St", Region: "west", YearBuilt: 1962},
		&entities.Home{ID: "home-2", Name: "Elsewhere"},
		&entities.Room{ID: kitchen, HomeID: "home-1", Name: "Kitchen", RoomType: "kitchen", LengthFt: 12, WidthFt: 14, HeightFt: 9},
		&entities.Room{ID: "room-den", HomeID: "home-1", Name: "Den", RoomType: "living_room", LengthFt: 10, WidthFt: 12, HeightFt: 8},
		&entities.Room{ID: "room-other", HomeID: "home-2", Name: "Attic", RoomType: "attic"},
		&entities.Material{ID: "mat-1", RoomID: kitchen, Name: "oak", Category: "flooring", Quantity: 168, Unit: "sqft"},
		&entities.Fixture{ID: "fix-1", RoomID: kitchen, Name: "faucet", FixtureType: "plumbing", Condition: "worn"},
		&entities.Product{ID: "p-table", RoomID: &kitchen, Name: "Table", Category: "table", WidthIn: 60, DepthIn: 36, HeightIn: 30},
		&entities.Product{ID: "p-sofa-b", Name: "Bergen", Category: "sofa", WidthIn: 80, DepthIn: 35, HeightIn: 33},
		&entities.Product{ID: "p-sofa-a", Name: "Aalto", Category: "sofa", WidthIn: 72, DepthIn: 34, HeightIn: 31},
		&entities.Product{ID: "p-lamp", Name: "Arc", Category: "lamp"},
		&entities.ImageAnalysis{ID: "ia-1", HomeID: "home-1", RoomID: &kitchen, ImageURL: "/uploads/k.png", Summary: "dated cabinets"},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}
	return db
}

func TestSnapshot(t *testing.T) {
	repo := NewRepository(seededDB(t))

	snap, err := repo.Snapshot(context.Background(), "home-1")
	require.NoError(t, err)
	assert.Equal(t, homecontext.Home{ID: "home-1", Name: "Maple St", Region: "west", YearBuilt: 1962}, snap.Home)
	require.Len(t, snap.Rooms, 2)
	assert.Equal(t, "Den", snap.Rooms[0].Name)
	assert.Len(t, snap.Materials, 1)
	assert.Len(t, snap.Fixtures, 1)
	require.Len(t, snap.Products, 1, "catalog products are not part of a home")
	assert.Equal(t, "room-kitchen", snap.Products[0].RoomID)
	require.Len(t, snap.Analyses, 1)
	assert.Equal(t, "room-kitchen", snap.Analyses[0].RoomID)

	_, err = repo.Snapshot(context.Background(), "nope")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestRoomLookups(t *testing.T) {
	repo := NewRepository(seededDB(t))
	ctx := context.Background()

	room, err := repo.Room(ctx, "room-kitchen")
	require.NoError(t, err)
	assert.Equal(t, 168.0, room.AreaSqFt())

	_, err = repo.Room(ctx, "room-missing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	products, err := repo.RoomProducts(ctx, "room-kitchen")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p-table", products[0].ID)
}

func TestCatalogProducts(t *testing.T) {
	repo := NewRepository(seededDB(t))
	ctx := context.Background()

	sofas, err := repo.CatalogProducts(ctx, "sofa", 10)
	require.NoError(t, err)
	require.Len(t, sofas, 2)
	assert.Equal(t, "Aalto", sofas[0].Name)
	assert.Empty(t, sofas[0].RoomID)

	limited, err := repo.CatalogProducts(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
