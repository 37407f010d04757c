package pdfplan

import (
	"regexp"
	"strings"

	"planforge/floorplan"
)

// genericRoomName matches placeholder room names like "room_2" or "Room 3".
var genericRoomName = regexp.MustCompile(`(?i)^room[ _-]?\d*$`)

// EnrichAnalysis supplements a floor plan analysis with information from the
// document's text layer. Rooms with generic or empty names are renamed from
// the PDF's room labels in order. Geometry is never touched: label text is
// too weakly tied to drawing coordinates to move walls by.
//
// Returns the number of rooms renamed.
func EnrichAnalysis(analysis *floorplan.FloorPlanAnalysis, ann *Annotations) int {
	if analysis == nil || ann == nil || len(ann.Rooms) == 0 {
		return 0
	}

	renamed := 0
	labelIdx := 0
	for i := range analysis.Rooms {
		if labelIdx >= len(ann.Rooms) {
			break
		}
		if !isGenericName(analysis.Rooms[i].Name) {
			continue
		}
		analysis.Rooms[i].Name = ann.Rooms[labelIdx].Name
		labelIdx++
		renamed++
	}
	return renamed
}

func isGenericName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return true
	}
	return genericRoomName.MatchString(trimmed)
}
