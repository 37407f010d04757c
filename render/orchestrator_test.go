package render

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"planforge/core"
	"planforge/scene"
)

// recordingEngine returns canned results and records the viewpoint order.
type recordingEngine struct {
	rendered []string
	failFor  map[string]error
}

func (e *recordingEngine) Render(ctx context.Context, model *scene.Model, req Request, view Viewpoint, light LightingPreset, quality Quality) (*Result, error) {
	if err, ok := e.failFor[req.Viewpoint]; ok {
		return nil, err
	}
	e.rendered = append(e.rendered, req.Viewpoint)
	return &Result{
		ID:        core.NewID(),
		URL:       fmt.Sprintf("renders/%s.png", req.Viewpoint),
		Format:    "png",
		Viewpoint: req.Viewpoint,
		Lighting:  req.Lighting,
		CreatedAt: time.Now().UTC(),
		Metadata:  ResultMetadata{Resolution: req.Resolution},
	}, nil
}

func newTestOrchestrator(engine Engine) *Orchestrator {
	return NewOrchestrator(engine, DefaultRegistry(), nil)
}

func TestRenderAllPartialFailure(t *testing.T) {
	engine := &recordingEngine{}
	o := newTestOrchestrator(engine)

	outcome, err := o.RenderAll(context.Background(), readyModel(t), BatchRequest{
		Viewpoints: []string{"front", "back", "bogus"},
		Lighting:   "daylight",
	}, nil)
	if err != nil {
		t.Fatalf("RenderAll must not fail for per-viewpoint problems: %v", err)
	}

	if len(outcome.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(outcome.Results))
	}
	if outcome.Results[0].Viewpoint != "front" || outcome.Results[1].Viewpoint != "back" {
		t.Errorf("result order = [%s %s], want input order [front back]",
			outcome.Results[0].Viewpoint, outcome.Results[1].Viewpoint)
	}

	if len(outcome.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(outcome.Failures))
	}
	if outcome.Failures[0].Viewpoint != "bogus" {
		t.Errorf("failure viewpoint = %q, want bogus", outcome.Failures[0].Viewpoint)
	}
	if !core.IsValidationError(outcome.Failures[0].Err) {
		t.Errorf("failure error = %v, want ValidationError", outcome.Failures[0].Err)
	}
}

func TestRenderAllSequentialProgress(t *testing.T) {
	engine := &recordingEngine{}
	o := newTestOrchestrator(engine)

	type tick struct{ completed, total int }
	var ticks []tick
	_, err := o.RenderAll(context.Background(), readyModel(t), BatchRequest{
		Viewpoints: []string{"front", "left", "top"},
		Lighting:   "studio",
	}, func(completed, total int) {
		ticks = append(ticks, tick{completed, total})
	})
	if err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}

	want := []tick{{1, 3}, {2, 3}, {3, 3}}
	if len(ticks) != len(want) {
		t.Fatalf("progress ticks = %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Errorf("tick %d = %v, want %v", i, ticks[i], want[i])
		}
	}

	// processing is strictly sequential in input order
	wantOrder := []string{"front", "left", "top"}
	for i, v := range wantOrder {
		if engine.rendered[i] != v {
			t.Errorf("render order[%d] = %q, want %q", i, engine.rendered[i], v)
		}
	}
}

func TestRenderAllProgressCountsFailures(t *testing.T) {
	engine := &recordingEngine{failFor: map[string]error{"back": errors.New("engine crash")}}
	o := newTestOrchestrator(engine)

	var last int
	outcome, err := o.RenderAll(context.Background(), readyModel(t), BatchRequest{
		Viewpoints: []string{"front", "back", "left"},
		Lighting:   "daylight",
	}, func(completed, total int) { last = completed })
	if err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}
	if last != 3 {
		t.Errorf("final progress = %d, want 3 (failures still advance progress)", last)
	}
	if len(outcome.Results) != 2 || len(outcome.Failures) != 1 {
		t.Errorf("outcome = %d results / %d failures, want 2/1", len(outcome.Results), len(outcome.Failures))
	}
}

func TestRenderAllRejectsUnreadyModel(t *testing.T) {
	o := newTestOrchestrator(&recordingEngine{})

	model := readyModel(t)
	model.Sections[0].Material = nil

	_, err := o.RenderAll(context.Background(), model, BatchRequest{
		Viewpoints: []string{"front"},
		Lighting:   "daylight",
	}, nil)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if len(verr.Issues) == 0 {
		t.Error("readiness failure must carry the issues list")
	}
}

func TestRenderAllDefaultsResolution(t *testing.T) {
	engine := &recordingEngine{}
	o := newTestOrchestrator(engine)

	outcome, err := o.RenderAll(context.Background(), readyModel(t), BatchRequest{
		Viewpoints: []string{"front"},
		Lighting:   "daylight",
	}, nil)
	if err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}
	if got := outcome.Results[0].Metadata.Resolution; got != DefaultResolution {
		t.Errorf("resolution = %+v, want default %+v", got, DefaultResolution)
	}
}

func TestRenderAllStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(&recordingEngine{})
	outcome, err := o.RenderAll(ctx, readyModel(t), BatchRequest{
		Viewpoints: []string{"front", "back"},
		Lighting:   "daylight",
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if outcome == nil {
		t.Fatal("partial outcome must still be returned on cancellation")
	}
}
