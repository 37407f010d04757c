package render

import (
	"sort"

	"planforge/scene"
)

// Registry holds the named viewpoints, lighting presets and quality tiers
// available to render requests. Read-only after construction.
type Registry struct {
	viewpoints map[string]Viewpoint
	lighting   map[string]LightingPreset
	quality    map[string]Quality
}

// DefaultRegistry returns the built-in presets.
func DefaultRegistry() *Registry {
	r := &Registry{
		viewpoints: make(map[string]Viewpoint),
		lighting:   make(map[string]LightingPreset),
		quality:    make(map[string]Quality),
	}

	for _, v := range []Viewpoint{
		{Name: "front", Position: scene.Vec3{Y: 1.6, Z: 15}, FOV: 60},
		{Name: "back", Position: scene.Vec3{Y: 1.6, Z: -15}, FOV: 60},
		{Name: "left", Position: scene.Vec3{X: -15, Y: 1.6}, FOV: 60},
		{Name: "right", Position: scene.Vec3{X: 15, Y: 1.6}, FOV: 60},
		{Name: "top", Position: scene.Vec3{Y: 25}, Target: scene.Vec3{}, FOV: 50},
		{Name: "perspective", Position: scene.Vec3{X: 12, Y: 9, Z: 12}, FOV: 55},
	} {
		r.viewpoints[v.Name] = v
	}

	for _, l := range []LightingPreset{
		{Name: "daylight", Type: "directional", Intensity: 1.0, Color: "#fff4e0", Direction: scene.Vec3{X: -0.5, Y: -1, Z: -0.3}, Shadows: true},
		{Name: "overcast", Type: "ambient", Intensity: 0.7, Color: "#dfe4ea"},
		{Name: "dusk", Type: "directional", Intensity: 0.4, Color: "#ffb36b", Direction: scene.Vec3{X: -1, Y: -0.2, Z: 0}, Shadows: true},
		{Name: "studio", Type: "point", Intensity: 1.2, Color: "#ffffff", Shadows: false},
	} {
		r.lighting[l.Name] = l
	}

	for _, q := range []Quality{
		{Name: "draft", Samples: 8},
		{Name: "standard", Samples: 32},
		{Name: "high", Samples: 128},
	} {
		r.quality[q.Name] = q
	}

	return r
}

// Viewpoint resolves a named viewpoint.
func (r *Registry) Viewpoint(name string) (Viewpoint, bool) {
	v, ok := r.viewpoints[name]
	return v, ok
}

// Lighting resolves a named lighting preset.
func (r *Registry) Lighting(name string) (LightingPreset, bool) {
	l, ok := r.lighting[name]
	return l, ok
}

// Quality resolves a named quality tier.
func (r *Registry) Quality(name string) (Quality, bool) {
	q, ok := r.quality[name]
	return q, ok
}

// ViewpointNames returns the registered viewpoint names in sorted order.
func (r *Registry) ViewpointNames() []string {
	names := make([]string, 0, len(r.viewpoints))
	for name := range r.viewpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
