package scene

import (
	"fmt"
	"time"
)

// SectionKind classifies a materializable section.
type SectionKind string

const (
	SectionWall  SectionKind = "wall"
	SectionFloor SectionKind = "floor"
	SectionRoof  SectionKind = "roof"
)

// SectionMaterial records the material bound to a section: the library name
// plus the material table index it resolved to, and when it was applied.
type SectionMaterial struct {
	Name      string    `json:"name"`
	Index     int       `json:"index"`
	AppliedAt time.Time `json:"appliedAt"`
}

// ModelSection is one named, materializable sub-part of a model. Sections
// are created with Material nil; binding happens only through the material
// applicator.
type ModelSection struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Kind     SectionKind      `json:"kind"`
	Geometry Geometry         `json:"geometry"`
	Position Vec3             `json:"position"`
	Node     int              `json:"node"`
	Mesh     int              `json:"mesh"`
	Material *SectionMaterial `json:"material,omitempty"`
}

// ModelDimensions is the overall model extent in meters.
type ModelDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// ModelMetadata carries model bookkeeping. LastModified is refreshed on
// every successful material apply.
type ModelMetadata struct {
	Created      time.Time       `json:"created"`
	LastModified time.Time       `json:"lastModified"`
	Dimensions   ModelDimensions `json:"dimensions"`
}

// FormatEncodedScene is the only model format currently produced.
const FormatEncodedScene = "encoded-scene/v1"

// Model is a complete 3D scene owned by the pipeline run that created it.
// The material applicator mutates its own deep copy; the analyzer and
// render orchestrator treat models as read-only.
type Model struct {
	ID       string         `json:"id"`
	Format   string         `json:"format"`
	Data     *Document      `json:"data"`
	Sections []ModelSection `json:"sections"`
	Metadata ModelMetadata  `json:"metadata"`
}

// Section returns the section with the given id.
func (m *Model) Section(id string) (*ModelSection, bool) {
	for i := range m.Sections {
		if m.Sections[i].ID == id {
			return &m.Sections[i], true
		}
	}
	return nil, false
}

// Validate checks the model invariants:
//   - every section id is unique within the model
//   - a section's material, once set, references an entry that exists in
//     the encoded material table
//   - the encoded document's own cross-table references hold
func (m *Model) Validate() error {
	if m.Data == nil {
		return fmt.Errorf("scene: model %s has no encoded data", m.ID)
	}
	if err := m.Data.Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(m.Sections))
	for _, s := range m.Sections {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("scene: duplicate section id %q", s.ID)
		}
		seen[s.ID] = struct{}{}

		if s.Material != nil {
			if s.Material.Index < 0 || s.Material.Index >= len(m.Data.Materials) {
				return fmt.Errorf("scene: section %q material index %d out of bounds (%d entries)",
					s.ID, s.Material.Index, len(m.Data.Materials))
			}
			if m.Data.Materials[s.Material.Index].Name != s.Material.Name {
				return fmt.Errorf("scene: section %q material name %q does not match table entry %q",
					s.ID, s.Material.Name, m.Data.Materials[s.Material.Index].Name)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the model. The copy shares nothing with the
// original; mutating one never affects the other.
func (m *Model) Clone() *Model {
	clone := &Model{
		ID:       m.ID,
		Format:   m.Format,
		Metadata: m.Metadata,
		Sections: make([]ModelSection, len(m.Sections)),
	}
	if m.Data != nil {
		clone.Data = m.Data.Clone()
	}
	for i, s := range m.Sections {
		if s.Material != nil {
			mat := *s.Material
			s.Material = &mat
		}
		clone.Sections[i] = s
	}
	return clone
}
