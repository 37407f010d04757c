package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"time"

	xdraw "golang.org/x/image/draw"

	"planforge/core"
	"planforge/scene"
)

// Engine rasterizes one viewpoint of a model. The built-in PreviewEngine
// produces software orthographic previews; a GPU-backed engine can replace
// it behind the same seam.
type Engine interface {
	Render(ctx context.Context, model *scene.Model, req Request, view Viewpoint, light LightingPreset, quality Quality) (*Result, error)
}

// canvasSize is the internal raster size before scaling to the requested
// resolution.
const canvasSize = 512

// obliqueShear is the cavalier-projection depth offset per world unit.
const obliqueShear = 0.35

// PreviewEngine renders software previews and writes them as PNG files
// under the renders directory. Each render waits out the configured latency
// at a cancellable boundary, standing in for real rasterization time.
type PreviewEngine struct {
	rendersDir string
	latency    time.Duration
}

// NewPreviewEngine creates a PreviewEngine writing into cfg.RendersDir.
func NewPreviewEngine(cfg *core.Config) (*PreviewEngine, error) {
	if err := os.MkdirAll(cfg.RendersDir, 0o755); err != nil {
		return nil, core.ErrRendersDirInvalid(cfg.RendersDir, err.Error())
	}
	return &PreviewEngine{
		rendersDir: cfg.RendersDir,
		latency:    cfg.RenderLatency,
	}, nil
}

// Render produces one preview. The projection follows the viewpoint's
// camera axis: overhead viewpoints raster a plan view, horizontal
// viewpoints an elevation along the facing axis, and diagonal viewpoints a
// cavalier oblique. The quality tier selects the downscale filter. The
// suspension point honors context cancellation so a caller-level timeout
// can abort a stuck render.
func (e *PreviewEngine) Render(ctx context.Context, model *scene.Model, req Request, view Viewpoint, light LightingPreset, quality Quality) (*Result, error) {
	start := time.Now()

	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	canvas := e.rasterize(model, view, light)

	output := image.NewRGBA(image.Rect(0, 0, req.Resolution.Width, req.Resolution.Height))
	scalerFor(quality).Scale(output, output.Bounds(), canvas, canvas.Bounds(), xdraw.Over, nil)

	id := core.NewID()
	filename := fmt.Sprintf("render_%s.png", id)
	path := filepath.Join(e.rendersDir, filename)

	var buf bytes.Buffer
	if err := png.Encode(&buf, output); err != nil {
		return nil, fmt.Errorf("render: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("render: write %s: %w", path, err)
	}

	return &Result{
		ID:        id,
		URL:       filepath.ToSlash(path),
		Format:    "png",
		Viewpoint: req.Viewpoint,
		Lighting:  req.Lighting,
		CreatedAt: time.Now().UTC(),
		Metadata: ResultMetadata{
			Resolution:     req.Resolution,
			FileSizeBytes:  int64(buf.Len()),
			Checksum:       core.ComputeSHA256(buf.Bytes()),
			ProcessingTime: time.Since(start),
		},
	}, nil
}

// projection is the raster strategy derived from a viewpoint.
type projection int

const (
	projPlan       projection = iota // looking down the Y axis
	projElevationZ                   // facing along Z, X runs horizontal
	projElevationX                   // facing along X, Z runs horizontal
	projOblique                      // diagonal camera, cavalier projection
)

// classifyProjection maps a viewpoint to a raster strategy by the dominant
// axis of the camera direction. The mirror flag is set when the camera sits
// on the negative side of its facing axis, so opposing viewpoints show
// opposite faces.
func classifyProjection(view Viewpoint) (projection, bool) {
	dx := view.Target.X - view.Position.X
	dy := view.Target.Y - view.Position.Y
	dz := view.Target.Z - view.Position.Z
	ax, ay, az := math.Abs(dx), math.Abs(dy), math.Abs(dz)

	switch {
	case ay > ax && ay > az:
		return projPlan, false
	case az > ax:
		return projElevationZ, dz > 0
	case ax > az:
		return projElevationX, dx > 0
	default:
		return projOblique, false
	}
}

// scalerFor selects the downscale filter for a quality tier. Draft uses
// nearest neighbor, high uses Catmull-Rom, everything between is bilinear.
func scalerFor(quality Quality) xdraw.Scaler {
	switch {
	case quality.Samples <= 8:
		return xdraw.NearestNeighbor
	case quality.Samples >= 128:
		return xdraw.CatmullRom
	default:
		return xdraw.ApproxBiLinear
	}
}

// rasterize draws the model's materialed sections onto the internal canvas
// in the viewpoint's projection, modulated by the lighting intensity.
func (e *PreviewEngine) rasterize(model *scene.Model, view Viewpoint, light LightingPreset) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	background := color.RGBA{R: 24, G: 26, B: 30, A: 255}
	for i := range canvas.Pix {
		switch i % 4 {
		case 0:
			canvas.Pix[i] = background.R
		case 1:
			canvas.Pix[i] = background.G
		case 2:
			canvas.Pix[i] = background.B
		case 3:
			canvas.Pix[i] = background.A
		}
	}

	dims := model.Metadata.Dimensions
	if dims.Width <= 0 || dims.Depth <= 0 {
		return canvas
	}

	intensity := light.Intensity
	if intensity <= 0 {
		intensity = 1
	}
	if intensity > 1 {
		intensity = 1
	}

	proj, mirror := classifyProjection(view)
	switch proj {
	case projPlan:
		e.drawPlan(canvas, model, intensity)
	case projElevationZ:
		e.drawElevation(canvas, model, intensity, false, mirror)
	case projElevationX:
		e.drawElevation(canvas, model, intensity, true, mirror)
	default:
		e.drawOblique(canvas, model, intensity)
	}
	return canvas
}

// drawPlan rasters the top-down footprint, X horizontal and Z vertical.
// Floors go underneath walls; roofs are invisible from directly above the
// preview's flat shading, so they are skipped.
func (e *PreviewEngine) drawPlan(canvas *image.RGBA, model *scene.Model, intensity float64) {
	dims := model.Metadata.Dimensions
	margin, s := fitCanvas(dims.Width, dims.Depth)

	for _, kind := range []scene.SectionKind{scene.SectionFloor, scene.SectionWall} {
		for _, section := range model.Sections {
			if section.Kind != kind || section.Material == nil {
				continue
			}
			fill := shade(model.Data.Materials[section.Material.Index].BaseColor, intensity)

			halfW := section.Geometry.Width / 2
			halfD := section.Geometry.Depth / 2
			x0 := int(margin + (section.Position.X-halfW)*s)
			y0 := int(margin + (section.Position.Z-halfD)*s)
			x1 := int(margin + (section.Position.X+halfW)*s)
			y1 := int(margin + (section.Position.Z+halfD)*s)
			fillRect(canvas, x0, y0, x1, y1, fill)
		}
	}
}

// drawElevation rasters a side view with world Y vertical. sideways selects
// the Z axis as the horizontal (left/right viewpoints); otherwise X runs
// horizontal (front/back). mirror flips the horizontal so opposing
// viewpoints show opposite faces.
func (e *PreviewEngine) drawElevation(canvas *image.RGBA, model *scene.Model, intensity float64, sideways, mirror bool) {
	dims := model.Metadata.Dimensions
	extentU := dims.Width
	if sideways {
		extentU = dims.Depth
	}
	extentV := dims.Height
	if extentV <= 0 {
		return
	}
	margin, s := fitCanvas(extentU, extentV)

	for _, kind := range []scene.SectionKind{scene.SectionFloor, scene.SectionWall, scene.SectionRoof} {
		for _, section := range model.Sections {
			if section.Kind != kind || section.Material == nil {
				continue
			}
			fill := shade(model.Data.Materials[section.Material.Index].BaseColor, intensity)

			u := section.Position.X
			halfU := section.Geometry.Width / 2
			if sideways {
				u = section.Position.Z
				halfU = section.Geometry.Depth / 2
			}
			if mirror {
				u = extentU - u
			}
			v0, v1 := verticalSpan(section)

			x0 := int(margin + (u-halfU)*s)
			x1 := int(margin + (u+halfU)*s)
			// image rows grow downward, world Y grows up
			y0 := int(margin + (extentV-v1)*s)
			y1 := int(margin + (extentV-v0)*s)
			fillRect(canvas, x0, y0, x1, y1, fill)
		}
	}
}

// drawOblique rasters a cavalier projection: the front elevation sheared by
// depth, so all three axes read in one image.
func (e *PreviewEngine) drawOblique(canvas *image.RGBA, model *scene.Model, intensity float64) {
	dims := model.Metadata.Dimensions
	extentU := dims.Width + obliqueShear*dims.Depth
	extentV := dims.Height + obliqueShear*dims.Depth
	if extentV <= 0 {
		return
	}
	margin, s := fitCanvas(extentU, extentV)

	for _, kind := range []scene.SectionKind{scene.SectionFloor, scene.SectionWall, scene.SectionRoof} {
		for _, section := range model.Sections {
			if section.Kind != kind || section.Material == nil {
				continue
			}
			fill := shade(model.Data.Materials[section.Material.Index].BaseColor, intensity)

			depth := obliqueShear * section.Position.Z
			u := section.Position.X + depth
			halfU := section.Geometry.Width / 2
			v0, v1 := verticalSpan(section)
			v0 += depth
			v1 += depth

			x0 := int(margin + (u-halfU)*s)
			x1 := int(margin + (u+halfU)*s)
			y0 := int(margin + (extentV-v1)*s)
			y1 := int(margin + (extentV-v0)*s)
			fillRect(canvas, x0, y0, x1, y1, fill)
		}
	}
}

// verticalSpan returns a section's world-Y extent. Walls are centered on
// their position, roofs rise from theirs, floors get a thin slab.
func verticalSpan(section scene.ModelSection) (float64, float64) {
	switch section.Kind {
	case scene.SectionWall:
		half := section.Geometry.Height / 2
		return section.Position.Y - half, section.Position.Y + half
	case scene.SectionRoof:
		return section.Position.Y, section.Position.Y + section.Geometry.Height
	default:
		return section.Position.Y, section.Position.Y + 0.1
	}
}

// fitCanvas computes the margin and uniform world-to-pixel scale that fit
// the given extents on the internal canvas, preserving aspect ratio.
func fitCanvas(extentU, extentV float64) (float64, float64) {
	margin := 0.1 * canvasSize
	su := (canvasSize - 2*margin) / extentU
	sv := (canvasSize - 2*margin) / extentV
	if sv < su {
		return margin, sv
	}
	return margin, su
}

// shade converts a normalized base color to RGBA under the given intensity.
func shade(base [4]float64, intensity float64) color.RGBA {
	clamp := func(v float64) uint8 {
		v *= 255 * intensity
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v)
	}
	return color.RGBA{R: clamp(base[0]), G: clamp(base[1]), B: clamp(base[2]), A: 255}
}

// fillRect fills an axis-aligned rectangle, clipped to the canvas.
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	bounds := img.Bounds()
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if x1 == x0 {
		x1 = x0 + 1
	}
	if y1 == y0 {
		y1 = y0 + 1
	}
	for y := max(y0, bounds.Min.Y); y < min(y1, bounds.Max.Y); y++ {
		for x := max(x0, bounds.Min.X); x < min(x1, bounds.Max.X); x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
