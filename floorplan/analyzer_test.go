package floorplan

import (
	"context"
	"testing"
	"time"

	"planforge/aiprovider"
	"planforge/core"
)

// fakeVisionProvider returns a fixed vision response or error.
type fakeVisionProvider struct {
	name      string
	available bool
	content   string
	err       error
	calls     int
}

func (f *fakeVisionProvider) Name() string { return f.name }

func (f *fakeVisionProvider) Capabilities() aiprovider.CapabilitySet {
	return aiprovider.NewCapabilitySet(aiprovider.CapabilityVisionAnalysis)
}

func (f *fakeVisionProvider) IsAvailable(ctx context.Context) bool { return f.available }

func (f *fakeVisionProvider) AnalyzeImage(ctx context.Context, req aiprovider.ImageAnalysisRequest) (*aiprovider.VisionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &aiprovider.VisionResult{
		Content: f.content,
		Meta:    aiprovider.Meta{Provider: f.name, Model: "fake"},
	}, nil
}

func (f *fakeVisionProvider) GenerateText(ctx context.Context, req aiprovider.TextRequest) (*aiprovider.TextResult, error) {
	return nil, aiprovider.NewError(f.name, aiprovider.CategoryModelUnavailable, "not implemented")
}

func (f *fakeVisionProvider) AnalyzeMaterials(ctx context.Context, req aiprovider.MaterialAnalysisRequest) (*aiprovider.MaterialResult, error) {
	return nil, aiprovider.NewError(f.name, aiprovider.CategoryModelUnavailable, "not implemented")
}

func (f *fakeVisionProvider) Generate3DModel(ctx context.Context, req aiprovider.ModelGenerationRequest) (*aiprovider.ModelGenerationResult, error) {
	return nil, aiprovider.NewError(f.name, aiprovider.CategoryModelUnavailable, "not implemented")
}

func testConfig() *core.Config {
	return &core.Config{
		MaxUploadBytes:     1 << 20,
		AllowedUploadTypes: core.DefaultAllowedUploadTypes,
		MaxRetries:         1,
		RetryDelay:         time.Millisecond,
	}
}

func newTestAnalyzer(t *testing.T, provider aiprovider.Provider) *Analyzer {
	t.Helper()
	manager := aiprovider.NewManager(nil, nil)
	if provider != nil {
		if err := manager.Register(provider); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	return NewAnalyzer(testConfig(), manager, nil)
}

func pngUpload() ImageUpload {
	return ImageUpload{
		Data:     []byte{0x89, 0x50, 0x4E, 0x47},
		MimeType: "image/png",
		Filename: "plan.png",
	}
}

func TestAnalyzeRejectsBadUploadsBeforeProviderCall(t *testing.T) {
	tests := []struct {
		name   string
		upload ImageUpload
	}{
		{"empty data", ImageUpload{MimeType: "image/png"}},
		{"missing mime type", ImageUpload{Data: []byte{1}}},
		{"disallowed mime type", ImageUpload{Data: []byte{1}, MimeType: "application/zip"}},
		{"oversized", ImageUpload{Data: make([]byte, 2<<20), MimeType: "image/png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeVisionProvider{name: "fake", available: true, content: sampleResponse}
			analyzer := newTestAnalyzer(t, provider)

			_, err := analyzer.Analyze(context.Background(), tt.upload)
			if !core.IsValidationError(err) {
				t.Errorf("error = %v, want ValidationError", err)
			}
			if provider.calls != 0 {
				t.Errorf("provider was called %d times for an invalid upload, want 0", provider.calls)
			}
		})
	}
}

func TestAnalyzeParsesProviderResponse(t *testing.T) {
	provider := &fakeVisionProvider{name: "fake", available: true, content: sampleResponse}
	analyzer := newTestAnalyzer(t, provider)

	analysis, err := analyzer.Analyze(context.Background(), pngUpload())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.Elements) != 3 {
		t.Errorf("elements = %d, want 3 from provider response", len(analysis.Elements))
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestAnalyzeFallsBackWhenProviderFails(t *testing.T) {
	provider := &fakeVisionProvider{
		name:      "fake",
		available: true,
		err:       aiprovider.NewError("fake", aiprovider.CategoryAuth, "bad key"),
	}
	analyzer := newTestAnalyzer(t, provider)

	analysis, err := analyzer.Analyze(context.Background(), pngUpload())
	if err != nil {
		t.Fatalf("Analyze must absorb provider failures, got: %v", err)
	}
	if err := analysis.Validate(); err != nil {
		t.Errorf("fallback analysis invalid: %v", err)
	}
	if len(analysis.WallElements()) == 0 {
		t.Error("fallback analysis should contain walls")
	}
}

func TestAnalyzeFallsBackWhenNoProviderAvailable(t *testing.T) {
	provider := &fakeVisionProvider{name: "fake", available: false}
	analyzer := newTestAnalyzer(t, provider)

	analysis, err := analyzer.Analyze(context.Background(), pngUpload())
	if err != nil {
		t.Fatalf("Analyze must absorb unavailability, got: %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("unavailable provider was called %d times, want 0", provider.calls)
	}
	if len(analysis.Elements) == 0 {
		t.Error("fallback analysis should contain elements")
	}
}

func TestAnalyzeFallsBackOnZeroElements(t *testing.T) {
	provider := &fakeVisionProvider{
		name:      "fake",
		available: true,
		content:   `{"elements": [], "scale": 1.0}`,
	}
	analyzer := newTestAnalyzer(t, provider)

	analysis, err := analyzer.Analyze(context.Background(), pngUpload())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.Elements) == 0 {
		t.Error("zero-element response should trigger the synthetic fallback")
	}
}

func TestAnalyzeFallsBackOnUnparseableResponse(t *testing.T) {
	provider := &fakeVisionProvider{
		name:      "fake",
		available: true,
		content:   "I see a lovely house.",
	}
	analyzer := newTestAnalyzer(t, provider)

	analysis, err := analyzer.Analyze(context.Background(), pngUpload())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.Elements) == 0 {
		t.Error("unparseable response should trigger the synthetic fallback")
	}
}
