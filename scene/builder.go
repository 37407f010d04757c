package scene

import (
	"time"

	"planforge/core"
	"planforge/floorplan"
)

// roofHeight is the fixed pyramid rise above the wall tops.
const roofHeight = 1.5

// minimalPlanExtent sizes the degraded one-room scene built from an
// analysis with no elements.
const minimalPlanExtent = 4.0

// Build converts a floor plan analysis into a Model. The conversion is
// deterministic: the same analysis always yields structurally identical
// sections, geometry and node/mesh tables (only the model id differs).
//
// Section layout: one section per wall element, one aggregate floor section
// and one aggregate roof section derived from the plan bounds. Door and
// window elements become plain geometry nodes without sections; they are
// not independently materializable. Every section starts with no material;
// binding happens only through the material applicator.
//
// An analysis with no elements degrades to a minimal one-room scene rather
// than failing.
func Build(analysis *floorplan.FloorPlanAnalysis) *Model {
	if analysis == nil || len(analysis.Elements) == 0 {
		analysis = minimalAnalysis()
	}

	doc := &Document{}
	model := &Model{
		ID:     core.NewID(),
		Format: FormatEncodedScene,
		Data:   doc,
	}

	wallHeight := 0.0
	for _, elem := range analysis.Elements {
		switch elem.Type {
		case floorplan.ElementWall:
			section := addWall(doc, elem)
			model.Sections = append(model.Sections, section)
			if elem.Dimensions.Height > wallHeight {
				wallHeight = elem.Dimensions.Height
			}
		case floorplan.ElementDoor, floorplan.ElementWindow:
			addOpening(doc, elem)
		}
	}

	width := analysis.Dimensions.TotalWidth
	depth := analysis.Dimensions.TotalHeight
	if wallHeight == 0 {
		wallHeight = 2.7
	}

	model.Sections = append(model.Sections,
		addFloor(doc, width, depth),
		addRoof(doc, width, depth, wallHeight),
	)

	now := time.Now().UTC()
	model.Metadata = ModelMetadata{
		Created:      now,
		LastModified: now,
		Dimensions: ModelDimensions{
			Width:  width,
			Height: wallHeight + roofHeight,
			Depth:  depth,
		},
	}
	return model
}

// addWall emits a box mesh and node for one wall element and returns its
// section. The wall's plan axis decides which ground-plane extent carries
// the length.
func addWall(doc *Document, elem floorplan.ArchitecturalElement) ModelSection {
	geom := Geometry{
		Kind:   PrimitiveBox,
		Width:  elem.Dimensions.Width,
		Height: elem.Dimensions.Height,
		Depth:  elem.Dimensions.Depth,
	}
	if elem.Metadata["axis"] == "y" {
		geom.Width, geom.Depth = geom.Depth, geom.Width
	}

	pos := Vec3{
		X: elem.Position.X,
		Y: elem.Dimensions.Height / 2,
		Z: elem.Position.Y,
	}

	meshIdx, _ := doc.AddMesh(Mesh{Name: elem.ID, Geometry: geom, Material: NoIndex})
	nodeIdx, _ := doc.AddNode(Node{
		Name:        elem.ID,
		Mesh:        meshIdx,
		Translation: [3]float64{pos.X, pos.Y, pos.Z},
	})

	return ModelSection{
		ID:       elem.ID,
		Name:     elem.ID,
		Kind:     SectionWall,
		Geometry: geom,
		Position: pos,
		Node:     nodeIdx,
		Mesh:     meshIdx,
	}
}

// addOpening emits geometry for a door or window. Openings are visual
// detail only; they never become sections.
func addOpening(doc *Document, elem floorplan.ArchitecturalElement) {
	depth := elem.Dimensions.Depth
	if depth == 0 {
		depth = 0.1
	}
	geom := Geometry{
		Kind:   PrimitiveBox,
		Width:  elem.Dimensions.Width,
		Height: elem.Dimensions.Height,
		Depth:  depth,
	}

	meshIdx, _ := doc.AddMesh(Mesh{Name: elem.ID, Geometry: geom, Material: NoIndex})
	doc.AddNode(Node{
		Name:        elem.ID,
		Mesh:        meshIdx,
		Translation: [3]float64{elem.Position.X, elem.Dimensions.Height / 2, elem.Position.Y},
	})
}

// addFloor emits the aggregate floor plane over the plan bounds.
func addFloor(doc *Document, width, depth float64) ModelSection {
	geom := Geometry{Kind: PrimitivePlane, Width: width, Depth: depth}
	pos := Vec3{X: width / 2, Y: 0, Z: depth / 2}

	meshIdx, _ := doc.AddMesh(Mesh{Name: "floor", Geometry: geom, Material: NoIndex})
	nodeIdx, _ := doc.AddNode(Node{
		Name:        "floor",
		Mesh:        meshIdx,
		Translation: [3]float64{pos.X, pos.Y, pos.Z},
	})

	return ModelSection{
		ID:       "floor",
		Name:     "floor",
		Kind:     SectionFloor,
		Geometry: geom,
		Position: pos,
		Node:     nodeIdx,
		Mesh:     meshIdx,
	}
}

// addRoof emits the aggregate pyramid roof sitting on the wall tops.
func addRoof(doc *Document, width, depth, wallHeight float64) ModelSection {
	geom := Geometry{Kind: PrimitivePyramid, Width: width, Height: roofHeight, Depth: depth}
	pos := Vec3{X: width / 2, Y: wallHeight, Z: depth / 2}

	meshIdx, _ := doc.AddMesh(Mesh{Name: "roof", Geometry: geom, Material: NoIndex})
	nodeIdx, _ := doc.AddNode(Node{
		Name:        "roof",
		Mesh:        meshIdx,
		Translation: [3]float64{pos.X, pos.Y, pos.Z},
	})

	return ModelSection{
		ID:       "roof",
		Name:     "roof",
		Kind:     SectionRoof,
		Geometry: geom,
		Position: pos,
		Node:     nodeIdx,
		Mesh:     meshIdx,
	}
}

// minimalAnalysis is the one-room degradation used when the analysis
// carries no elements.
func minimalAnalysis() *floorplan.FloorPlanAnalysis {
	return &floorplan.FloorPlanAnalysis{
		Elements: []floorplan.ArchitecturalElement{
			{
				ID:         "wall_1",
				Type:       floorplan.ElementWall,
				Dimensions: floorplan.Dimensions{Width: minimalPlanExtent, Height: 2.7, Depth: 0.2},
				Position:   floorplan.Position{X: minimalPlanExtent / 2, Y: 0},
				Metadata:   map[string]string{"axis": "x"},
			},
			{
				ID:         "wall_2",
				Type:       floorplan.ElementWall,
				Dimensions: floorplan.Dimensions{Width: minimalPlanExtent, Height: 2.7, Depth: 0.2},
				Position:   floorplan.Position{X: minimalPlanExtent, Y: minimalPlanExtent / 2},
				Metadata:   map[string]string{"axis": "y"},
			},
			{
				ID:         "wall_3",
				Type:       floorplan.ElementWall,
				Dimensions: floorplan.Dimensions{Width: minimalPlanExtent, Height: 2.7, Depth: 0.2},
				Position:   floorplan.Position{X: minimalPlanExtent / 2, Y: minimalPlanExtent},
				Metadata:   map[string]string{"axis": "x"},
			},
			{
				ID:         "wall_4",
				Type:       floorplan.ElementWall,
				Dimensions: floorplan.Dimensions{Width: minimalPlanExtent, Height: 2.7, Depth: 0.2},
				Position:   floorplan.Position{X: 0, Y: minimalPlanExtent / 2},
				Metadata:   map[string]string{"axis": "y"},
			},
		},
		Rooms: []floorplan.Room{
			{
				Name:   "Room",
				Bounds: floorplan.RoomBounds{Width: minimalPlanExtent, Height: minimalPlanExtent},
				Walls:  []string{"wall_1", "wall_2", "wall_3", "wall_4"},
			},
		},
		Dimensions: floorplan.PlanDimensions{
			TotalWidth:  minimalPlanExtent,
			TotalHeight: minimalPlanExtent,
			Scale:       1.0,
		},
	}
}
