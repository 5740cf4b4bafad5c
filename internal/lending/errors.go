package lending

import "errors"

// Error kinds returned by the engine. Callers match them with errors.Is; the
// wrapped message adds the ids involved.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("item unavailable")
	ErrAlreadyHeld = errors.New("item already held by holder")
	ErrNotHeld     = errors.New("item not held by holder")
)

// reason returns the metric label for a rejection.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrAlreadyHeld):
		return "already_held"
	case errors.Is(err, ErrNotHeld):
		return "not_held"
	}
	return "error"
}
