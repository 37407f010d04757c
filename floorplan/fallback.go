package floorplan

// SyntheticAnalysis returns the deterministic fallback analysis: a fixed
// single-room plan with four walls, a floor, a window and a door. Used when
// no provider is available, the provider call fails, or the provider yields
// zero elements.
//
// The result is constructed fresh on every call so callers may annotate it
// without affecting later fallbacks.
func SyntheticAnalysis() *FloorPlanAnalysis {
	return &FloorPlanAnalysis{
		Elements: []ArchitecturalElement{
			{
				ID:         "wall_1",
				Type:       ElementWall,
				Dimensions: Dimensions{Width: 8, Height: defaultWallHeight, Depth: defaultWallThickness},
				Position:   Position{X: 4, Y: 0},
				Metadata:   map[string]string{"axis": "x"},
			},
			{
				ID:         "wall_2",
				Type:       ElementWall,
				Dimensions: Dimensions{Width: 6, Height: defaultWallHeight, Depth: defaultWallThickness},
				Position:   Position{X: 8, Y: 3},
				Metadata:   map[string]string{"axis": "y"},
			},
			{
				ID:         "wall_3",
				Type:       ElementWall,
				Dimensions: Dimensions{Width: 8, Height: defaultWallHeight, Depth: defaultWallThickness},
				Position:   Position{X: 4, Y: 6},
				Metadata:   map[string]string{"axis": "x"},
			},
			{
				ID:         "wall_4",
				Type:       ElementWall,
				Dimensions: Dimensions{Width: 6, Height: defaultWallHeight, Depth: defaultWallThickness},
				Position:   Position{X: 0, Y: 3},
				Metadata:   map[string]string{"axis": "y"},
			},
			{
				ID:         "floor_1",
				Type:       ElementFloor,
				Dimensions: Dimensions{Width: 8, Height: 6},
				Position:   Position{X: 4, Y: 3},
			},
			{
				ID:         "window_1",
				Type:       ElementWindow,
				Dimensions: Dimensions{Width: 1.2, Height: defaultOpeningHeight},
				Position:   Position{X: 2, Y: 0},
				Metadata:   map[string]string{"wall_id": "wall_1"},
			},
			{
				ID:         "door_1",
				Type:       ElementDoor,
				Dimensions: Dimensions{Width: 0.9, Height: defaultDoorHeight},
				Position:   Position{X: 6, Y: 6},
				Metadata:   map[string]string{"wall_id": "wall_3"},
			},
		},
		Rooms: []Room{
			{
				Name:   "Main Room",
				Bounds: RoomBounds{X: 0, Y: 0, Width: 8, Height: 6},
				Walls:  []string{"wall_1", "wall_2", "wall_3", "wall_4"},
			},
		},
		Dimensions: PlanDimensions{TotalWidth: 8, TotalHeight: 6, Scale: 1.0},
	}
}
