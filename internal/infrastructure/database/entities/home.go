package entities

import (
	"time"

	"github.com/janhq/reno-server/internal/domain/homecontext"
)

// Home is the digital twin root record.
type Home struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	UserID    *string   `gorm:"type:varchar(64);index"`
	Name      string    `gorm:"type:varchar(256)"`
	Region    string    `gorm:"type:varchar(64)"`
	YearBuilt int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Home.
func (Home) TableName() string {
	return "homes"
}

// Room is one room of a home.
type Room struct {
	ID        string  `gorm:"type:varchar(64);primaryKey"`
	HomeID    string  `gorm:"type:varchar(64);index;not null"`
	Name      string  `gorm:"type:varchar(128)"`
	RoomType  string  `gorm:"type:varchar(64)"`
	LengthFt  float64 `gorm:"not null;default:0"`
	WidthFt   float64 `gorm:"not null;default:0"`
	HeightFt  float64 `gorm:"not null;default:0"`
	FloorType string  `gorm:"type:varchar(64)"`
	Notes     string  `gorm:"type:text"`
}

// TableName specifies the table name for Room.
func (Room) TableName() string {
	return "rooms"
}

// Material is a finish or surface recorded for a room.
type Material struct {
	ID       string  `gorm:"type:varchar(64);primaryKey"`
	RoomID   string  `gorm:"type:varchar(64);index;not null"`
	Name     string  `gorm:"type:varchar(128)"`
	Category string  `gorm:"type:varchar(64)"`
	Finish   string  `gorm:"type:varchar(64)"`
	Quantity float64 `gorm:"not null;default:0"`
	Unit     string  `gorm:"type:varchar(32)"`
}

// TableName specifies the table name for Material.
func (Material) TableName() string {
	return "materials"
}

// Fixture is an installed fixture.
type Fixture struct {
	ID          string `gorm:"type:varchar(64);primaryKey"`
	RoomID      string `gorm:"type:varchar(64);index;not null"`
	Name        string `gorm:"type:varchar(128)"`
	FixtureType string `gorm:"type:varchar(64)"`
	Brand       string `gorm:"type:varchar(128)"`
	Condition   string `gorm:"type:varchar(64)"`
}

// TableName specifies the table name for Fixture.
func (Fixture) TableName() string {
	return "fixtures"
}

// Product is furniture or an appliance. RoomID is NULL for catalog entries.
type Product struct {
	ID       string  `gorm:"type:varchar(64);primaryKey"`
	RoomID   *string `gorm:"type:varchar(64);index"`
	Name     string  `gorm:"type:varchar(256)"`
	Category string  `gorm:"type:varchar(64);index"`
	Brand    string  `gorm:"type:varchar(128)"`
	WidthIn  float64 `gorm:"not null;default:0"`
	DepthIn  float64 `gorm:"not null;default:0"`
	HeightIn float64 `gorm:"not null;default:0"`
	Price    string  `gorm:"type:varchar(32)"`
	ImageURL string  `gorm:"type:text"`
}

// TableName specifies the table name for Product.
func (Product) TableName() string {
	return "products"
}

// ImageAnalysis stores a vision summary of a room photo.
type ImageAnalysis struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	HomeID    string    `gorm:"type:varchar(64);index;not null"`
	RoomID    *string   `gorm:"type:varchar(64)"`
	ImageURL  string    `gorm:"type:text"`
	Summary   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ImageAnalysis.
func (ImageAnalysis) TableName() string {
	return "image_analyses"
}

// ===============================================
// Conversion Functions
// ===============================================

// EtoD converts database entity to domain model.
func (h *Home) EtoD() homecontext.Home {
	return homecontext.Home{ID: h.ID, Name: h.Name, Region: h.Region, YearBuilt: h.YearBuilt}
}

// EtoD converts database entity to domain model.
func (r *Room) EtoD() homecontext.Room {
	return homecontext.Room{
		ID:        r.ID,
		HomeID:    r.HomeID,
		Name:      r.Name,
		RoomType:  r.RoomType,
		LengthFt:  r.LengthFt,
		WidthFt:   r.WidthFt,
		HeightFt:  r.HeightFt,
		FloorType: r.FloorType,
		Notes:     r.Notes,
	}
}

// EtoD converts database entity to domain model.
func (m *Material) EtoD() homecontext.Material {
	return homecontext.Material{
		ID:       m.ID,
		RoomID:   m.RoomID,
		Name:     m.Name,
		Category: m.Category,
		Finish:   m.Finish,
		Quantity: m.Quantity,
		Unit:     m.Unit,
	}
}

// EtoD converts database entity to domain model.
func (f *Fixture) EtoD() homecontext.Fixture {
	return homecontext.Fixture{
		ID:          f.ID,
		RoomID:      f.RoomID,
		Name:        f.Name,
		FixtureType: f.FixtureType,
		Brand:       f.Brand,
		Condition:   f.Condition,
	}
}

// EtoD converts database entity to domain model.
func (p *Product) EtoD() homecontext.Product {
	out := homecontext.Product{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Brand:    p.Brand,
		WidthIn:  p.WidthIn,
		DepthIn:  p.DepthIn,
		HeightIn: p.HeightIn,
		Price:    p.Price,
		ImageURL: p.ImageURL,
	}
	if p.RoomID != nil {
		out.RoomID = *p.RoomID
	}
	return out
}

// EtoD converts database entity to domain model.
func (a *ImageAnalysis) EtoD() homecontext.ImageAnalysis {
	out := homecontext.ImageAnalysis{ID: a.ID, ImageURL: a.ImageURL, Summary: a.Summary}
	if a.RoomID != nil {
		out.RoomID = *a.RoomID
	}
	return out
}
