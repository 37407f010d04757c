package pdfplan

import (
	"regexp"
	"strconv"
	"strings"
)

// RoomLabel is a room name found in the plan's text layer, with its
// annotated dimensions in meters when the label carried any (0 otherwise).
type RoomLabel struct {
	Name  string
	Width float64
	Depth float64
}

// Dimension is a free-standing W x D annotation in meters.
type Dimension struct {
	Width float64
	Depth float64
}

// Annotations is the structured content of a plan document's text layer.
type Annotations struct {
	// Rooms in document order
	Rooms []RoomLabel
	// Dimensions not attached to any room label
	Dimensions []Dimension
	// ScaleRatio is the drawing scale denominator (100 for "1:100"),
	// 0 when the document declares no scale.
	ScaleRatio float64
}

// HasContent reports whether anything usable was found.
func (a *Annotations) HasContent() bool {
	return len(a.Rooms) > 0 || len(a.Dimensions) > 0 || a.ScaleRatio > 0
}

// roomKeywords are label words that identify a line as a room name.
var roomKeywords = []string{
	"bedroom", "living room", "living", "kitchen", "bathroom", "bath",
	"hallway", "hall", "dining", "office", "study", "garage", "closet",
	"laundry", "pantry", "utility", "entry", "foyer", "balcony", "terrace",
	"wc", "toilet", "storage",
}

var (
	// "4.5m x 3.2m", "4.5 x 3.2", "12' x 10'", "450cm x 320cm"
	dimensionPattern = regexp.MustCompile(
		`(?i)(\d+(?:[.,]\d+)?)\s*(m|cm|mm|ft|')?\s*[x×]\s*(\d+(?:[.,]\d+)?)\s*(m|cm|mm|ft|')?`)
	// "Scale 1:100", "scale = 1/50"
	scalePattern = regexp.MustCompile(`(?i)scale\s*[:=]?\s*1\s*[:/]\s*(\d+)`)
)

// ParseAnnotations scans extracted plan text line by line for room labels,
// dimension annotations, and a scale note. A dimension on the same line as a
// room label (or on the line directly after it) is attached to that room.
func ParseAnnotations(text string) *Annotations {
	ann := &Annotations{}
	if strings.TrimSpace(text) == "" {
		return ann
	}

	if m := scalePattern.FindStringSubmatch(text); m != nil {
		if denom, err := strconv.ParseFloat(m[1], 64); err == nil && denom > 0 {
			ann.ScaleRatio = denom
		}
	}

	lines := strings.Split(text, "\n")
	pendingRoom := -1 // index into ann.Rooms awaiting a dimension
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			pendingRoom = -1
			continue
		}

		roomName := matchRoomLabel(trimmed)
		dim, hasDim := matchDimension(trimmed)

		switch {
		case roomName != "" && hasDim:
			ann.Rooms = append(ann.Rooms, RoomLabel{Name: roomName, Width: dim.Width, Depth: dim.Depth})
			pendingRoom = -1
		case roomName != "":
			ann.Rooms = append(ann.Rooms, RoomLabel{Name: roomName})
			pendingRoom = len(ann.Rooms) - 1
		case hasDim && pendingRoom >= 0:
			ann.Rooms[pendingRoom].Width = dim.Width
			ann.Rooms[pendingRoom].Depth = dim.Depth
			pendingRoom = -1
		case hasDim:
			ann.Dimensions = append(ann.Dimensions, dim)
		default:
			pendingRoom = -1
		}
	}
	return ann
}

// matchRoomLabel returns the canonical room name when the line reads as a
// room label, or "". Lines longer than a label plausibly is are ignored so
// prose notes do not become rooms.
func matchRoomLabel(line string) string {
	if len(line) > 48 {
		return ""
	}
	lower := strings.ToLower(line)
	for _, keyword := range roomKeywords {
		idx := strings.Index(lower, keyword)
		if idx == -1 {
			continue
		}
		// Take the label up to any dimension annotation on the same line.
		label := line
		if loc := dimensionPattern.FindStringIndex(line); loc != nil {
			label = line[:loc[0]]
		}
		label = strings.Trim(strings.TrimSpace(label), ".:-")
		if label == "" {
			label = strings.ToUpper(keyword[:1]) + keyword[1:]
		}
		return label
	}
	return ""
}

// matchDimension parses the first W x D annotation on the line, normalized
// to meters.
func matchDimension(line string) (Dimension, bool) {
	m := dimensionPattern.FindStringSubmatch(line)
	if m == nil {
		return Dimension{}, false
	}

	width, err1 := parseMeasure(m[1], m[2])
	depth, err2 := parseMeasure(m[3], m[4])
	if err1 != nil || err2 != nil || width <= 0 || depth <= 0 {
		return Dimension{}, false
	}
	return Dimension{Width: width, Depth: depth}, true
}

// parseMeasure converts a number with an optional unit to meters.
// A missing unit is assumed to be meters already.
func parseMeasure(value, unit string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	switch strings.ToLower(unit) {
	case "", "m":
		return v, nil
	case "cm":
		return v / 100, nil
	case "mm":
		return v / 1000, nil
	case "ft", "'":
		return v * 0.3048, nil
	default:
		return v, nil
	}
}
