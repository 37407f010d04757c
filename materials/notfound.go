package materials

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports every unresolved section id and material name in a
// selection batch. Validation is batch-wide, not fail-fast: callers see the
// full list of offenders in one round trip.
type NotFoundError struct {
	// Sections lists selection section ids missing from the model.
	Sections []string

	// Materials lists selection material names missing from the library.
	Materials []string
}

func (e *NotFoundError) Error() string {
	var parts []string
	if len(e.Sections) > 0 {
		parts = append(parts, fmt.Sprintf("unknown sections: %s", strings.Join(e.Sections, ", ")))
	}
	if len(e.Materials) > 0 {
		parts = append(parts, fmt.Sprintf("unknown materials: %s", strings.Join(e.Materials, ", ")))
	}
	return "materials: " + strings.Join(parts, "; ")
}

// IsNotFound reports whether an error chain contains a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
