// Package materials resolves named materials against a read-only library
// and applies them to scene models. The applicator is the only writer of
// the encoded scene's material, texture and image tables.
package materials

import "fmt"

// Material is a value object describing one PBR material. The library is
// read-only at pipeline runtime; the binding timestamp lives on the
// section's material reference, not here.
type Material struct {
	// Name is the unique library key.
	Name string `yaml:"name" json:"name"`

	// Color is the base color as a "#rrggbb" hex string.
	Color string `yaml:"color" json:"color"`

	Roughness float64 `yaml:"roughness" json:"roughness"`
	Metalness float64 `yaml:"metalness" json:"metalness"`

	// Reflection above 0.5 marks the material as highly reflective; such
	// materials carry an index-of-refraction extension in the encoded scene.
	Reflection float64 `yaml:"reflection" json:"reflection"`

	TextureURL         string `yaml:"textureUrl,omitempty" json:"textureUrl,omitempty"`
	NormalMapURL       string `yaml:"normalMapUrl,omitempty" json:"normalMapUrl,omitempty"`
	AOMapURL           string `yaml:"aoMapUrl,omitempty" json:"aoMapUrl,omitempty"`
	DisplacementMapURL string `yaml:"displacementMapUrl,omitempty" json:"displacementMapUrl,omitempty"`

	// Properties carries free-form metadata (finish, supplier, price band).
	Properties map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// TextureURLs returns the material's non-empty texture URLs.
func (m *Material) TextureURLs() []string {
	var urls []string
	for _, u := range []string{m.TextureURL, m.NormalMapURL, m.AOMapURL, m.DisplacementMapURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Validate checks the library-entry invariants.
func (m *Material) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("materials: material name cannot be empty")
	}
	if m.Roughness < 0 || m.Roughness > 1 {
		return fmt.Errorf("materials: %s: roughness %v out of [0,1]", m.Name, m.Roughness)
	}
	if m.Metalness < 0 || m.Metalness > 1 {
		return fmt.Errorf("materials: %s: metalness %v out of [0,1]", m.Name, m.Metalness)
	}
	if m.Reflection < 0 || m.Reflection > 1 {
		return fmt.Errorf("materials: %s: reflection %v out of [0,1]", m.Name, m.Reflection)
	}
	return nil
}

// Selection is a request to bind a library material to a model section.
// Many selections are submitted together and must all resolve before any
// mutation is committed.
type Selection struct {
	SectionID    string `json:"sectionId"`
	MaterialName string `json:"materialName"`
}
