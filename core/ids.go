package core

import (
	"github.com/google/uuid"
)

// NewID returns a new globally unique identifier.
// Used for model ids, render result ids and pipeline session ids.
func NewID() string {
	return uuid.New().String()
}

// NewCorrelationID returns a short 8-character id used to correlate log
// entries across the stages of a single pipeline run.
func NewCorrelationID() string {
	return uuid.New().String()[:8]
}
