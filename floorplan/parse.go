package floorplan

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Default extents used when the provider omits a measurement.
const (
	defaultWallHeight    = 2.7
	defaultWallThickness = 0.2
	defaultOpeningHeight = 1.2
	defaultDoorHeight    = 2.1
)

// wirePoint is a 2D plan coordinate as emitted by the vision model.
type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// wireElement is the loosely-typed element shape the vision model emits.
// Walls carry start/end segments; openings carry a position plus width.
type wireElement struct {
	Type      string     `json:"type"`
	ID        string     `json:"id"`
	Start     *wirePoint `json:"start"`
	End       *wirePoint `json:"end"`
	Position  *wirePoint `json:"position"`
	Thickness float64    `json:"thickness"`
	Height    float64    `json:"height"`
	Width     float64    `json:"width"`
	Depth     float64    `json:"depth"`
	WallID    string     `json:"wall_id"`
}

type wireRoom struct {
	Name   string     `json:"name"`
	Bounds RoomBounds `json:"bounds"`
	Walls  []string   `json:"walls"`
}

type wireStructural struct {
	ID       string     `json:"id"`
	Kind     string     `json:"kind"`
	Position *wirePoint `json:"position"`
}

type wireAnalysis struct {
	Elements    []wireElement    `json:"elements"`
	Rooms       []wireRoom       `json:"rooms"`
	Structural  []wireStructural `json:"structural_elements"`
	Scale       float64          `json:"scale"`
	TotalWidth  float64          `json:"total_width"`
	TotalHeight float64          `json:"total_height"`
}

// ParseAnalysisResponse converts a vision model response into a
// FloorPlanAnalysis. The response may wrap the JSON object in prose; the
// parser extracts the outermost object and tolerates missing measurements
// by substituting defaults. Elements with unrecognized types are dropped.
// Wall references that do not resolve are pruned so the returned analysis
// always satisfies its own invariants.
//
// Returns an error only when no JSON object can be extracted at all;
// a parseable object with zero usable elements returns an analysis with
// empty Elements, which callers treat as "no confidence".
func ParseAnalysisResponse(content string) (*FloorPlanAnalysis, error) {
	raw, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var wire wireAnalysis
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("floorplan: response is not valid JSON: %w", err)
	}

	analysis := &FloorPlanAnalysis{}
	for i, we := range wire.Elements {
		elem, ok := convertElement(we, i)
		if !ok {
			continue
		}
		analysis.Elements = append(analysis.Elements, elem)
	}

	ids := make(map[string]struct{}, len(analysis.Elements))
	for _, e := range analysis.Elements {
		ids[e.ID] = struct{}{}
	}
	for _, wr := range wire.Rooms {
		room := Room{Name: wr.Name, Bounds: wr.Bounds}
		for _, wallID := range wr.Walls {
			if _, ok := ids[wallID]; ok {
				room.Walls = append(room.Walls, wallID)
			}
		}
		if room.Name == "" {
			room.Name = fmt.Sprintf("Room %d", len(analysis.Rooms)+1)
		}
		analysis.Rooms = append(analysis.Rooms, room)
	}

	for _, ws := range wire.Structural {
		se := StructuralElement{ID: ws.ID, Kind: ws.Kind}
		if ws.Position != nil {
			se.Position = Position{X: ws.Position.X, Y: ws.Position.Y}
		}
		analysis.StructuralElements = append(analysis.StructuralElements, se)
	}

	analysis.Dimensions = deriveDimensions(wire, analysis.Elements)
	return analysis, nil
}

// convertElement maps one wire element onto the typed model. Returns false
// for unrecognized or degenerate elements.
func convertElement(we wireElement, index int) (ArchitecturalElement, bool) {
	elemType := ElementType(strings.ToLower(strings.TrimSpace(we.Type)))
	if !IsKnownElementType(elemType) {
		return ArchitecturalElement{}, false
	}

	elem := ArchitecturalElement{
		ID:   we.ID,
		Type: elemType,
	}
	if elem.ID == "" {
		elem.ID = fmt.Sprintf("%s_%d", elemType, index)
	}

	switch elemType {
	case ElementWall:
		if we.Start == nil || we.End == nil {
			return ArchitecturalElement{}, false
		}
		dx := we.End.X - we.Start.X
		dy := we.End.Y - we.Start.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			return ArchitecturalElement{}, false
		}
		elem.Dimensions = Dimensions{
			Width:  length,
			Height: orDefault(we.Height, defaultWallHeight),
			Depth:  orDefault(we.Thickness, defaultWallThickness),
		}
		elem.Position = Position{
			X: (we.Start.X + we.End.X) / 2,
			Y: (we.Start.Y + we.End.Y) / 2,
		}
		axis := "x"
		if math.Abs(dy) > math.Abs(dx) {
			axis = "y"
		}
		elem.Metadata = map[string]string{"axis": axis}

	case ElementDoor, ElementWindow:
		if we.Position == nil {
			return ArchitecturalElement{}, false
		}
		height := we.Height
		if height <= 0 {
			if elemType == ElementDoor {
				height = defaultDoorHeight
			} else {
				height = defaultOpeningHeight
			}
		}
		elem.Dimensions = Dimensions{
			Width:  orDefault(we.Width, 1.0),
			Height: height,
			Depth:  we.Depth,
		}
		elem.Position = Position{X: we.Position.X, Y: we.Position.Y}
		if we.WallID != "" {
			elem.Metadata = map[string]string{"wall_id": we.WallID}
		}

	default:
		// room/floor/roof footprints arrive as position + width/height
		if we.Position != nil {
			elem.Position = Position{X: we.Position.X, Y: we.Position.Y}
		}
		elem.Dimensions = Dimensions{
			Width:  we.Width,
			Height: we.Height,
			Depth:  we.Depth,
		}
	}

	return elem, true
}

// deriveDimensions fills in plan dimensions, deriving the extent from
// element footprints when the model omits totals. A wall extends the plan
// along its own axis only; its centerline end is the plan edge. Openings
// sit on a wall and contribute just their position. Scale defaults to 1.0.
func deriveDimensions(wire wireAnalysis, elements []ArchitecturalElement) PlanDimensions {
	dims := PlanDimensions{
		TotalWidth:  wire.TotalWidth,
		TotalHeight: wire.TotalHeight,
		Scale:       wire.Scale,
	}
	if dims.Scale <= 0 {
		dims.Scale = 1.0
	}
	if dims.TotalWidth <= 0 || dims.TotalHeight <= 0 {
		var maxX, maxY float64
		for _, e := range elements {
			x, y := e.Position.X, e.Position.Y
			switch e.Type {
			case ElementWall:
				if e.Metadata["axis"] == "y" {
					y += e.Dimensions.Width / 2
				} else {
					x += e.Dimensions.Width / 2
				}
			case ElementDoor, ElementWindow:
			default:
				x += e.Dimensions.Width / 2
				y += e.Dimensions.Depth / 2
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
		if dims.TotalWidth <= 0 {
			dims.TotalWidth = maxX
		}
		if dims.TotalHeight <= 0 {
			dims.TotalHeight = maxY
		}
	}
	return dims
}

// extractJSONObject pulls the outermost {...} block out of a possibly
// chatty model response.
func extractJSONObject(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("floorplan: no JSON object found in response")
	}
	return content[start : end+1], nil
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
