// Package homecontext assembles prompt context from a home's structured data.
package homecontext

import (
	"context"
	"fmt"
	"strings"
)

// Home is the digital twin root.
type Home struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Region    string `json:"region"`
	YearBuilt int    `json:"year_built,omitempty"`
}

// Room carries the dimensions used for fit checks and estimates.
type Room struct {
	ID        string  `json:"id"`
	HomeID    string  `json:"home_id"`
	Name      string  `json:"name"`
	RoomType  string  `json:"room_type"`
	LengthFt  float64 `json:"length_ft"`
	WidthFt   float64 `json:"width_ft"`
	HeightFt  float64 `json:"height_ft"`
	FloorType string  `json:"floor_type,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// AreaSqFt returns the floor area.
func (r Room) AreaSqFt() float64 {
	return r.LengthFt * r.WidthFt
}

// Material is a surface or finish in a room.
type Material struct {
	ID       string  `json:"id"`
	RoomID   string  `json:"room_id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Finish   string  `json:"finish,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// Fixture is an installed fixture such as a faucet or light.
type Fixture struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	FixtureType string `json:"fixture_type"`
	Brand       string `json:"brand,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

// Product is furniture or an appliance. Products without a room are catalog
// entries available for recommendation.
type Product struct {
	ID       string  `json:"id"`
	RoomID   string  `json:"room_id,omitempty"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Brand    string  `json:"brand,omitempty"`
	WidthIn  float64 `json:"width_in"`
	DepthIn  float64 `json:"depth_in"`
	HeightIn float64 `json:"height_in"`
	Price    string  `json:"price,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
}

// FootprintSqIn returns the product's floor footprint.
func (p Product) FootprintSqIn() float64 {
	return p.WidthIn * p.DepthIn
}

// ImageAnalysis is a stored vision analysis of a room photo.
type ImageAnalysis struct {
	ID       string `json:"id"`
	RoomID   string `json:"room_id,omitempty"`
	ImageURL string `json:"image_url"`
	Summary  string `json:"summary"`
}

// Snapshot is everything known about one home.
type Snapshot struct {
	Home      Home
	Rooms     []Room
	Materials []Material
	Fixtures  []Fixture
	Products  []Product
	Analyses  []ImageAnalysis
}

// Store reads home data.
type Store interface {
	Snapshot(ctx context.Context, homeID string) (*Snapshot, error)
	Room(ctx context.Context, roomID string) (*Room, error)
	RoomProducts(ctx context.Context, roomID string) ([]Product, error)
	CatalogProducts(ctx context.Context, category string, limit int) ([]Product, error)
}

// Fragment sources, in the order they are listed for a home.
const (
	SourceRooms         = "rooms"
	SourceMaterials     = "materials"
	SourceFixtures      = "fixtures"
	SourceProducts      = "products"
	SourceImageAnalyses = "image_analyses"
	SourceAttachments   = "attachments"
)

// Fragment is one rankable piece of home context.
type Fragment struct {
	ID       string
	Source   string
	Text     string
	ImageURL string
}

// Fragments flattens a snapshot into rankable fragments.
func Fragments(s *Snapshot) []Fragment {
	if s == nil {
		return nil
	}
	roomNames := make(map[string]string, len(s.Rooms))
	for _, r := range s.Rooms {
		roomNames[r.ID] = r.Name
	}
	in := func(roomID string) string {
		if name, ok := roomNames[roomID]; ok && name != "" {
			return " in " + name
		}
		return ""
	}

	var out []Fragment
	for _, r := range s.Rooms {
		text := fmt.Sprintf("%s (%s): %.0fx%.0f ft, %.0f ft ceiling", r.Name, r.RoomType, r.LengthFt, r.WidthFt, r.HeightFt)
		if r.FloorType != "" {
			text += ", " + r.FloorType + " floor"
		}
		if r.Notes != "" {
			text += ". " + r.Notes
		}
		out = append(out, Fragment{ID: "room:" + r.ID, Source: SourceRooms, Text: text})
	}
	for _, m := range s.Materials {
		text := fmt.Sprintf("%s %s%s", m.Category, m.Name, in(m.RoomID))
		if m.Finish != "" {
			text += ", " + m.Finish + " finish"
		}
		if m.Quantity > 0 {
			text += fmt.Sprintf(", %.1f %s", m.Quantity, m.Unit)
		}
		out = append(out, Fragment{ID: "material:" + m.ID, Source: SourceMaterials, Text: text})
	}
	for _, f := range s.Fixtures {
		text := strings.TrimSpace(fmt.Sprintf("%s %s%s", f.FixtureType, f.Name, in(f.RoomID)))
		if f.Brand != "" {
			text += ", " + f.Brand
		}
		if f.Condition != "" {
			text += ", condition: " + f.Condition
		}
		out = append(out, Fragment{ID: "fixture:" + f.ID, Source: SourceFixtures, Text: text})
	}
	for _, p := range s.Products {
		text := fmt.Sprintf("%s %s%s, %.0fx%.0fx%.0f in", p.Category, p.Name, in(p.RoomID), p.WidthIn, p.DepthIn, p.HeightIn)
		out = append(out, Fragment{ID: "product:" + p.ID, Source: SourceProducts, Text: text, ImageURL: p.ImageURL})
	}
	for _, a := range s.Analyses {
		out = append(out, Fragment{ID: "analysis:" + a.ID, Source: SourceImageAnalyses, Text: "Photo" + in(a.RoomID) + ": " + a.Summary, ImageURL: a.ImageURL})
	}
	return out
}
