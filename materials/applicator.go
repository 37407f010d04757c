package materials

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"planforge/logging"
	"planforge/scene"
	"planforge/texturecache"
)

// reflectionIORThreshold marks materials as highly reflective; above it the
// encoded material carries an index-of-refraction extension.
const reflectionIORThreshold = 0.5

// defaultIOR is the refraction index recorded for highly reflective
// materials.
const defaultIOR = 1.5

// Applicator binds library materials onto model sections. Apply is
// two-phase: the whole selection batch validates before any mutation, and
// all mutation happens on a deep copy so the caller's model is never
// touched.
type Applicator struct {
	library *Library
	cache   *texturecache.Cache
	logger  *logging.Logger
}

// NewApplicator creates an Applicator over the given library and texture
// cache.
func NewApplicator(library *Library, cache *texturecache.Cache, logger *logging.Logger) *Applicator {
	if logger != nil {
		logger = logger.Named("materials")
	}
	return &Applicator{library: library, cache: cache, logger: logger}
}

// Apply resolves and binds every selection onto a copy of model.
//
// Phase 1 validates the entire batch: every section id must exist in the
// model and every material name in the library. Any unresolved entry
// aborts the whole call with a NotFoundError listing all offenders.
//
// Phase 2 deep-copies the model, preloads referenced textures through the
// cache, then per selection: appends the encoded material (dedup by name)
// and its texture/image entries (dedup by URL) to the scene tables, binds
// the material onto the section and mesh, and finally refreshes
// metadata.lastModified.
//
// The input model is never mutated; the bound copy is returned.
func (a *Applicator) Apply(ctx context.Context, model *scene.Model, selections []Selection) (*scene.Model, error) {
	if model == nil || model.Data == nil {
		return nil, fmt.Errorf("materials: model with encoded data is required")
	}

	resolved, err := a.validate(model, selections)
	if err != nil {
		return nil, err
	}

	applied := model.Clone()
	a.preloadTextures(ctx, resolved)

	now := time.Now().UTC()
	for i, sel := range selections {
		material := resolved[i]
		matIdx, err := applied.Data.AddMaterial(encodeMaterial(material))
		if err != nil {
			return nil, err
		}
		if err := addMaterialTextures(applied.Data, matIdx, material); err != nil {
			return nil, err
		}

		section, _ := applied.Section(sel.SectionID)
		section.Material = &scene.SectionMaterial{
			Name:      material.Name,
			Index:     matIdx,
			AppliedAt: now,
		}
		if section.Mesh != scene.NoIndex {
			if err := applied.Data.SetMeshMaterial(section.Mesh, matIdx); err != nil {
				return nil, err
			}
		}

		if a.logger != nil {
			a.logger.Info("material applied",
				zap.String("model", applied.ID),
				zap.String("section", sel.SectionID),
				zap.String("material", material.Name),
				zap.Int("material_index", matIdx))
		}
	}

	applied.Metadata.LastModified = now
	return applied, nil
}

// validate resolves the whole batch, collecting every offender instead of
// stopping at the first.
func (a *Applicator) validate(model *scene.Model, selections []Selection) ([]Material, error) {
	resolved := make([]Material, len(selections))
	nf := &NotFoundError{}

	for i, sel := range selections {
		if _, ok := model.Section(sel.SectionID); !ok {
			nf.Sections = append(nf.Sections, sel.SectionID)
		}
		material, ok := a.library.Get(sel.MaterialName)
		if !ok {
			nf.Materials = append(nf.Materials, sel.MaterialName)
			continue
		}
		resolved[i] = material
	}

	if len(nf.Sections) > 0 || len(nf.Materials) > 0 {
		return nil, nf
	}
	return resolved, nil
}

// preloadTextures warms the cache for every texture the batch references.
// Failures are logged and left for the render engine to substitute; they
// never abort an apply.
func (a *Applicator) preloadTextures(ctx context.Context, resolved []Material) {
	if a.cache == nil {
		return
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, m := range resolved {
		for _, u := range m.TextureURLs() {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return
	}

	for _, result := range a.cache.LoadBatch(ctx, urls) {
		if result.Err != nil && a.logger != nil {
			a.logger.Warn("texture preload failed",
				zap.String("url", result.URL),
				zap.Error(result.Err))
		}
	}
}

// encodeMaterial converts a library material into its encoded table entry.
// Texture indices are filled in afterwards by addMaterialTextures.
func encodeMaterial(m Material) scene.EncodedMaterial {
	encoded := scene.NewEncodedMaterial(m.Name)
	encoded.BaseColor = parseHexColor(m.Color)
	encoded.Roughness = m.Roughness
	encoded.Metalness = m.Metalness
	if m.Reflection > reflectionIORThreshold {
		encoded.Extensions.IOR = &scene.IORExtension{Value: defaultIOR}
	}
	return encoded
}

// addMaterialTextures appends image and texture table entries for the
// material's maps and wires their indices into the encoded entry. Dedup by
// URL happens inside the document's Add methods.
func addMaterialTextures(doc *scene.Document, matIdx int, m Material) error {
	set := func(url, suffix string, assign func(*scene.EncodedMaterial, int)) error {
		if url == "" {
			return nil
		}
		imgIdx := doc.AddImage(url)
		texIdx, err := doc.AddTexture(m.Name+suffix, imgIdx)
		if err != nil {
			return err
		}
		assign(&doc.Materials[matIdx], texIdx)
		return nil
	}

	if err := set(m.TextureURL, "", func(e *scene.EncodedMaterial, i int) { e.BaseColorTexture = i }); err != nil {
		return err
	}
	if err := set(m.NormalMapURL, "-normal", func(e *scene.EncodedMaterial, i int) { e.NormalTexture = i }); err != nil {
		return err
	}
	if err := set(m.AOMapURL, "-ao", func(e *scene.EncodedMaterial, i int) { e.OcclusionTexture = i }); err != nil {
		return err
	}
	return set(m.DisplacementMapURL, "-displacement", func(e *scene.EncodedMaterial, i int) { e.DisplacementTexture = i })
}

// parseHexColor converts "#rrggbb" to normalized RGBA. Unparseable colors
// fall back to opaque white.
func parseHexColor(s string) [4]float64 {
	white := [4]float64{1, 1, 1, 1}
	if len(s) != 7 || s[0] != '#' {
		return white
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return white
	}
	return [4]float64{
		float64(v>>16&0xff) / 255,
		float64(v>>8&0xff) / 255,
		float64(v&0xff) / 255,
		1,
	}
}
