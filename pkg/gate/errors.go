package gate

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken means no bearer token accompanied the request.
	ErrMissingToken = errors.New("gate: missing bearer token")

	// ErrInsufficientLevel is the sentinel all InsufficientLevelError
	// values match, for errors.Is checks.
	ErrInsufficientLevel = errors.New("gate: insufficient access level")
)

// InsufficientLevelError reports a level denial with both sides of the
// comparison, so callers can build an actionable message. It never
// carries role names: a denied caller learns numbers, not the role
// roster.
type InsufficientLevelError struct {
	Required int
	Actual   int
}

func (e *InsufficientLevelError) Error() string {
	return fmt.Sprintf("gate: insufficient access level: required %d, actual %d", e.Required, e.Actual)
}

func (e *InsufficientLevelError) Is(target error) bool {
	return target == ErrInsufficientLevel
}
