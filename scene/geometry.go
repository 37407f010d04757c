package scene

// PrimitiveKind is the closed set of geometry primitives the builder emits.
type PrimitiveKind string

const (
	// PrimitiveBox is an axis-aligned cuboid (walls, openings).
	PrimitiveBox PrimitiveKind = "box"

	// PrimitivePlane is a flat quad in the ground plane (floors).
	PrimitivePlane PrimitiveKind = "plane"

	// PrimitivePyramid is a four-sided pyramid (roofs).
	PrimitivePyramid PrimitiveKind = "pyramid"
)

// Geometry parameterizes one primitive. Width/Depth span the ground plane,
// Height is vertical. Depth is zero for planes.
type Geometry struct {
	Kind   PrimitiveKind `json:"kind"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Depth  float64       `json:"depth,omitempty"`
}

// Vec3 is a scene-space position in meters. Y is up; plan coordinates map
// onto the X/Z ground plane.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}
