package home

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/janhq/reno-server/internal/domain/homecontext"
	"github.com/janhq/reno-server/internal/infrastructure/database/entities"
	"github.com/janhq/reno-server/internal/utils/platformerrors"
)

// Repository reads the home digital twin.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a home repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Snapshot loads a home with every room and the data recorded for its rooms.
func (r *Repository) Snapshot(ctx context.Context, homeID string) (*homecontext.Snapshot, error) {
	db := r.db.WithContext(ctx)

	var home entities.Home
	if err := db.Where("id = ?", homeID).First(&home).Error; err != nil {
		return nil, lookupError(ctx, err, "home", homeID)
	}
	snapshot := &homecontext.Snapshot{Home: home.EtoD()}

	var rooms []entities.Room
	if err := db.Where("home_id = ?", homeID).Order("name").Find(&rooms).Error; err != nil {
		return nil, queryError(ctx, err, "rooms")
	}
	roomIDs := make([]string, 0, len(rooms))
	for i := range rooms {
		snapshot.Rooms = append(snapshot.Rooms, rooms[i].EtoD())
		roomIDs = append(roomIDs, rooms[i].ID)
	}

	if len(roomIDs) > 0 {
		var materials []entities.Material
		if err := db.Where("room_id IN ?", roomIDs).Order("room_id, name").Find(&materials).Error; err != nil {
			return nil, queryError(ctx, err, "materials")
		}
		for i := range materials {
			snapshot.Materials = append(snapshot.Materials, materials[i].EtoD())
		}

		var fixtures []entities.Fixture
		if err := db.Where("room_id IN ?", roomIDs).Order("room_id, name").Find(&fixtures).Error; err != nil {
			return nil, queryError(ctx, err, "fixtures")
		}
		for i := range fixtures {
			snapshot.Fixtures = append(snapshot.Fixtures, fixtures[i].EtoD())
		}

		var products []entities.Product
		if err := db.Where("room_id IN ?", roomIDs).Order("room_id, name").Find(&products).Error; err != nil {
			return nil, queryError(ctx, err, "products")
		}
		for i := range products {
			snapshot.Products = append(snapshot.Products, products[i].EtoD())
		}
	}

	var analyses []entities.ImageAnalysis
	if err := db.Where("home_id = ?", homeID).Order("created_at DESC").Find(&analyses).Error; err != nil {
		return nil, queryError(ctx, err, "image analyses")
	}
	for i := range analyses {
		snapshot.Analyses = append(snapshot.Analyses, analyses[i].EtoD())
	}
	return snapshot, nil
}

// Room loads one room.
func (r *Repository) Room(ctx context.Context, roomID string) (*homecontext.Room, error) {
	var room entities.Room
	if err := r.db.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		return nil, lookupError(ctx, err, "room", roomID)
	}
	out := room.EtoD()
	return &out, nil
}

// RoomProducts lists the products already placed in a room.
func (r *Repository) RoomProducts(ctx context.Context, roomID string) ([]homecontext.Product, error) {
	var rows []entities.Product
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("name").Find(&rows).Error; err != nil {
		return nil, queryError(ctx, err, "room products")
	}
	return toProducts(rows), nil
}

// CatalogProducts lists unplaced products, optionally of one category.
func (r *Repository) CatalogProducts(ctx context.Context, category string, limit int) ([]homecontext.Product, error) {
	query := r.db.WithContext(ctx).Where("room_id IS NULL")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []entities.Product
	if err := query.Order("name").Find(&rows).Error; err != nil {
		return nil, queryError(ctx, err, "catalog products")
	}
	return toProducts(rows), nil
}

func toProducts(rows []entities.Product) []homecontext.Product {
	out := make([]homecontext.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out
}

func lookupError(ctx context.Context, err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("%s not found: %s", kind, id),
			nil,
			"e4b3f905-6c7d-48ef-9b12-a2b3c4d5e6f7",
		)
	}
	return queryError(ctx, err, kind)
}

func queryError(ctx context.Context, err error, what string) error {
	return platformerrors.NewError(
		ctx,
		platformerrors.LayerRepository,
		platformerrors.ErrorTypeDatabaseError,
		"failed to load "+what,
		err,
		"f5c40a16-7d8e-49f0-8c23-b3c4d5e6f708",
	)
}
