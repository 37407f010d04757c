// Package floorplan converts uploaded floor-plan images into a structured
// architectural analysis. The conversion delegates machine vision to an AI
// provider and degrades to a deterministic synthetic analysis when the
// provider fails or returns nothing usable, so callers always receive a
// valid FloorPlanAnalysis.
package floorplan

import (
	"fmt"
	"strings"
)

// ElementType classifies an architectural element.
type ElementType string

const (
	ElementWall   ElementType = "wall"
	ElementRoom   ElementType = "room"
	ElementWindow ElementType = "window"
	ElementDoor   ElementType = "door"
	ElementFloor  ElementType = "floor"
	ElementRoof   ElementType = "roof"
)

// knownElementTypes is the closed set of element types produced by analysis.
// Anything outside this set is dropped during parsing, not treated as fatal.
var knownElementTypes = map[ElementType]struct{}{
	ElementWall:   {},
	ElementRoom:   {},
	ElementWindow: {},
	ElementDoor:   {},
	ElementFloor:  {},
	ElementRoof:   {},
}

// IsKnownElementType reports whether t is a recognized element type.
func IsKnownElementType(t ElementType) bool {
	_, ok := knownElementTypes[t]
	return ok
}

// Dimensions is the physical extent of an element in meters. Depth is zero
// for flat elements.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth,omitempty"`
}

// Position locates an element in plan coordinates. Z is zero for
// ground-level elements.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// ArchitecturalElement is one structural feature extracted from the plan.
// Immutable once created by analysis.
type ArchitecturalElement struct {
	ID         string            `json:"id"`
	Type       ElementType       `json:"type"`
	Dimensions Dimensions        `json:"dimensions"`
	Position   Position          `json:"position"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// RoomBounds is the axis-aligned footprint of a room in plan coordinates.
type RoomBounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Room is a named enclosed area. Walls lists the element ids of the walls
// that bound it; every listed id must resolve within the same analysis.
type Room struct {
	Name   string     `json:"name"`
	Bounds RoomBounds `json:"bounds"`
	Walls  []string   `json:"walls,omitempty"`
}

// StructuralElement is a load-bearing or framing feature (beam, column)
// that is not a wall.
type StructuralElement struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Position Position `json:"position"`
}

// PlanDimensions holds the overall plan extent and the pixels-to-meters
// scale factor.
type PlanDimensions struct {
	TotalWidth  float64 `json:"totalWidth"`
	TotalHeight float64 `json:"totalHeight"`
	Scale       float64 `json:"scale"`
}

// FloorPlanAnalysis is the structured result of analyzing one uploaded
// floor plan. Created once per upload and never mutated afterwards.
type FloorPlanAnalysis struct {
	Elements           []ArchitecturalElement `json:"elements"`
	Rooms              []Room                 `json:"rooms"`
	StructuralElements []StructuralElement    `json:"structuralElements,omitempty"`
	Dimensions         PlanDimensions         `json:"dimensions"`
}

// Validate checks the analysis invariants:
//   - scale must be positive
//   - every Room.Walls reference must resolve to an element id in the
//     same analysis
func (a *FloorPlanAnalysis) Validate() error {
	if a.Dimensions.Scale <= 0 {
		return fmt.Errorf("floorplan: scale must be positive, got %v", a.Dimensions.Scale)
	}

	ids := make(map[string]struct{}, len(a.Elements))
	for _, e := range a.Elements {
		ids[e.ID] = struct{}{}
	}

	var dangling []string
	for _, room := range a.Rooms {
		for _, wallID := range room.Walls {
			if _, ok := ids[wallID]; !ok {
				dangling = append(dangling, fmt.Sprintf("%s -> %s", room.Name, wallID))
			}
		}
	}
	if len(dangling) > 0 {
		return fmt.Errorf("floorplan: dangling wall references: %s", strings.Join(dangling, ", "))
	}
	return nil
}

// WallElements returns the wall elements in analysis order.
func (a *FloorPlanAnalysis) WallElements() []ArchitecturalElement {
	var walls []ArchitecturalElement
	for _, e := range a.Elements {
		if e.Type == ElementWall {
			walls = append(walls, e)
		}
	}
	return walls
}
