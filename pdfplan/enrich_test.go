package pdfplan

import (
	"testing"

	"planforge/floorplan"
)

func TestEnrichAnalysisRenamesGenericRooms(t *testing.T) {
	analysis := &floorplan.FloorPlanAnalysis{
		Rooms: []floorplan.Room{
			{Name: "room_1"},
			{Name: "Master Suite"}, // already meaningful, keep
			{Name: ""},
			{Name: "Room 4"},
		},
	}
	ann := &Annotations{
		Rooms: []RoomLabel{
			{Name: "Living Room"},
			{Name: "Kitchen"},
		},
	}

	renamed := EnrichAnalysis(analysis, ann)
	if renamed != 2 {
		t.Errorf("renamed = %d, want 2", renamed)
	}
	want := []string{"Living Room", "Master Suite", "Kitchen", "Room 4"}
	for i, name := range want {
		if analysis.Rooms[i].Name != name {
			t.Errorf("room %d = %q, want %q", i, analysis.Rooms[i].Name, name)
		}
	}
}

func TestEnrichAnalysisNoLabels(t *testing.T) {
	analysis := &floorplan.FloorPlanAnalysis{
		Rooms: []floorplan.Room{{Name: "room_1"}},
	}
	if got := EnrichAnalysis(analysis, &Annotations{}); got != 0 {
		t.Errorf("renamed = %d, want 0", got)
	}
	if got := EnrichAnalysis(nil, &Annotations{Rooms: []RoomLabel{{Name: "Hall"}}}); got != 0 {
		t.Errorf("renamed on nil analysis = %d, want 0", got)
	}
	if analysis.Rooms[0].Name != "room_1" {
		t.Errorf("room name mutated without labels: %q", analysis.Rooms[0].Name)
	}
}

func TestIsGenericName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"", true},
		{"  ", true},
		{"room", true},
		{"Room 3", true},
		{"room_12", true},
		{"Living Room", false},
		{"bedroom", false},
	}
	for _, tt := range tests {
		if got := isGenericName(tt.name); got != tt.want {
			t.Errorf("isGenericName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
