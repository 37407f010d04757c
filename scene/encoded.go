// Package scene holds the 3D scene representation produced by the floor
// plan pipeline: a Model wrapping a GLTF-style encoded document (node,
// mesh, material, texture and image tables referenced by integer indices)
// plus named materializable sections.
//
// Writer discipline: the Builder is the only writer of the node and mesh
// tables; the material applicator is the only writer of the material,
// texture and image tables. Every table mutation validates its index
// references at insert time so a Document can never hold a dangling index.
package scene

import (
	"fmt"
)

// NoIndex marks an unset table reference.
const NoIndex = -1

// Node is one entry in the node table. Translation is [x, y, z] in meters.
type Node struct {
	Name        string     `json:"name"`
	Mesh        int        `json:"mesh"`
	Translation [3]float64 `json:"translation"`
	Children    []int      `json:"children,omitempty"`
}

// Mesh is one entry in the mesh table: a geometry primitive plus an
// optional material table index.
type Mesh struct {
	Name     string   `json:"name"`
	Geometry Geometry `json:"geometry"`
	Material int      `json:"material"`
}

// IORExtension is the index-of-refraction extension record attached to
// highly reflective materials.
type IORExtension struct {
	Value float64 `json:"value"`
}

// MaterialExtensions holds optional typed extension records.
type MaterialExtensions struct {
	IOR *IORExtension `json:"ior,omitempty"`
}

// EncodedMaterial is one entry in the material table. Texture fields hold
// texture table indices, NoIndex when absent.
type EncodedMaterial struct {
	Name              string             `json:"name"`
	BaseColor         [4]float64         `json:"baseColor"`
	Roughness         float64            `json:"roughness"`
	Metalness         float64            `json:"metalness"`
	BaseColorTexture  int                `json:"baseColorTexture"`
	NormalTexture     int                `json:"normalTexture"`
	OcclusionTexture  int                `json:"occlusionTexture"`
	DisplacementTexture int              `json:"displacementTexture"`
	Extensions        MaterialExtensions `json:"extensions,omitempty"`
}

// Texture is one entry in the texture table, referencing an image table
// entry.
type Texture struct {
	Name  string `json:"name"`
	Image int    `json:"image"`
}

// Image is one entry in the image table. URI is the canonical dedup key.
type Image struct {
	URI string `json:"uri"`
}

// Document is the encoded scene: five typed tables referenced by integer
// indices. The zero value is a valid empty document.
type Document struct {
	Nodes     []Node            `json:"nodes"`
	Meshes    []Mesh            `json:"meshes"`
	Materials []EncodedMaterial `json:"materials"`
	Textures  []Texture         `json:"textures"`
	Images    []Image           `json:"images"`
}

// AddImage appends an image entry, deduplicating by URI. Returns the index
// of the existing or new entry.
func (d *Document) AddImage(uri string) int {
	for i, img := range d.Images {
		if img.URI == uri {
			return i
		}
	}
	d.Images = append(d.Images, Image{URI: uri})
	return len(d.Images) - 1
}

// AddTexture appends a texture entry referencing the given image index,
// deduplicating by image index. Fails if the image index is out of bounds.
func (d *Document) AddTexture(name string, imageIndex int) (int, error) {
	if imageIndex < 0 || imageIndex >= len(d.Images) {
		return NoIndex, fmt.Errorf("scene: texture %q references image %d, table has %d entries",
			name, imageIndex, len(d.Images))
	}
	for i, t := range d.Textures {
		if t.Image == imageIndex {
			return i, nil
		}
	}
	d.Textures = append(d.Textures, Texture{Name: name, Image: imageIndex})
	return len(d.Textures) - 1, nil
}

// AddMaterial appends a material entry, deduplicating by name (never by
// object identity). Fails if any texture index is out of bounds.
func (d *Document) AddMaterial(m EncodedMaterial) (int, error) {
	if m.Name == "" {
		return NoIndex, fmt.Errorf("scene: material name cannot be empty")
	}
	if idx, ok := d.MaterialIndexByName(m.Name); ok {
		return idx, nil
	}
	for _, texIdx := range []int{m.BaseColorTexture, m.NormalTexture, m.OcclusionTexture, m.DisplacementTexture} {
		if texIdx != NoIndex && (texIdx < 0 || texIdx >= len(d.Textures)) {
			return NoIndex, fmt.Errorf("scene: material %q references texture %d, table has %d entries",
				m.Name, texIdx, len(d.Textures))
		}
	}
	d.Materials = append(d.Materials, m)
	return len(d.Materials) - 1, nil
}

// MaterialIndexByName returns the index of the named material entry.
func (d *Document) MaterialIndexByName(name string) (int, bool) {
	for i, m := range d.Materials {
		if m.Name == name {
			return i, true
		}
	}
	return NoIndex, false
}

// AddMesh appends a mesh entry. Fails if the material index is set and out
// of bounds.
func (d *Document) AddMesh(m Mesh) (int, error) {
	if m.Material != NoIndex && (m.Material < 0 || m.Material >= len(d.Materials)) {
		return NoIndex, fmt.Errorf("scene: mesh %q references material %d, table has %d entries",
			m.Name, m.Material, len(d.Materials))
	}
	d.Meshes = append(d.Meshes, m)
	return len(d.Meshes) - 1, nil
}

// AddNode appends a node entry. Fails if the mesh index is set and out of
// bounds; child indices may reference nodes appended later, so they are
// checked by Validate instead.
func (d *Document) AddNode(n Node) (int, error) {
	if n.Mesh != NoIndex && (n.Mesh < 0 || n.Mesh >= len(d.Meshes)) {
		return NoIndex, fmt.Errorf("scene: node %q references mesh %d, table has %d entries",
			n.Name, n.Mesh, len(d.Meshes))
	}
	d.Nodes = append(d.Nodes, n)
	return len(d.Nodes) - 1, nil
}

// SetMeshMaterial binds a material table index onto an existing mesh.
func (d *Document) SetMeshMaterial(meshIndex, materialIndex int) error {
	if meshIndex < 0 || meshIndex >= len(d.Meshes) {
		return fmt.Errorf("scene: mesh index %d out of bounds (%d entries)", meshIndex, len(d.Meshes))
	}
	if materialIndex < 0 || materialIndex >= len(d.Materials) {
		return fmt.Errorf("scene: material index %d out of bounds (%d entries)", materialIndex, len(d.Materials))
	}
	d.Meshes[meshIndex].Material = materialIndex
	return nil
}

// Validate walks every cross-table reference and reports the first
// violation.
func (d *Document) Validate() error {
	for i, n := range d.Nodes {
		if n.Mesh != NoIndex && (n.Mesh < 0 || n.Mesh >= len(d.Meshes)) {
			return fmt.Errorf("scene: node %d (%s) references mesh %d out of bounds", i, n.Name, n.Mesh)
		}
		for _, child := range n.Children {
			if child < 0 || child >= len(d.Nodes) {
				return fmt.Errorf("scene: node %d (%s) references child %d out of bounds", i, n.Name, child)
			}
		}
	}
	for i, m := range d.Meshes {
		if m.Material != NoIndex && (m.Material < 0 || m.Material >= len(d.Materials)) {
			return fmt.Errorf("scene: mesh %d (%s) references material %d out of bounds", i, m.Name, m.Material)
		}
	}
	for i, m := range d.Materials {
		for _, texIdx := range []int{m.BaseColorTexture, m.NormalTexture, m.OcclusionTexture, m.DisplacementTexture} {
			if texIdx != NoIndex && (texIdx < 0 || texIdx >= len(d.Textures)) {
				return fmt.Errorf("scene: material %d (%s) references texture %d out of bounds", i, m.Name, texIdx)
			}
		}
	}
	for i, t := range d.Textures {
		if t.Image < 0 || t.Image >= len(d.Images) {
			return fmt.Errorf("scene: texture %d (%s) references image %d out of bounds", i, t.Name, t.Image)
		}
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	clone := &Document{
		Nodes:     make([]Node, len(d.Nodes)),
		Meshes:    append([]Mesh(nil), d.Meshes...),
		Materials: make([]EncodedMaterial, len(d.Materials)),
		Textures:  append([]Texture(nil), d.Textures...),
		Images:    append([]Image(nil), d.Images...),
	}
	for i, n := range d.Nodes {
		n.Children = append([]int(nil), n.Children...)
		clone.Nodes[i] = n
	}
	for i, m := range d.Materials {
		if m.Extensions.IOR != nil {
			ior := *m.Extensions.IOR
			m.Extensions.IOR = &ior
		}
		clone.Materials[i] = m
	}
	return clone
}

// NewEncodedMaterial returns a material entry with all texture references
// unset.
func NewEncodedMaterial(name string) EncodedMaterial {
	return EncodedMaterial{
		Name:              name,
		BaseColor:         [4]float64{1, 1, 1, 1},
		Roughness:         1,
		BaseColorTexture:  NoIndex,
		NormalTexture:     NoIndex,
		OcclusionTexture:  NoIndex,
		DisplacementTexture: NoIndex,
	}
}
