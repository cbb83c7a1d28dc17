// internal/errs/errs.go
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation so handlers can surface a stable
// machine-readable code alongside the human-readable message.
type Kind string

const (
	NotFound      Kind = "not_found"      // room/tournament/invitation absent
	InvalidPhase  Kind = "invalid_phase"  // action attempted outside its legal state
	NotYourTurn   Kind = "not_your_turn"  // seated, but not the acting seat
	NotEligible   Kind = "not_eligible"   // actor lacks permission for this action
	AlreadyExists Kind = "already_exists" // duplicate invitation/rematch request
	Full          Kind = "full"           // room/tournament at capacity
	Disconnected  Kind = "disconnected"   // target party unreachable
	Internal      Kind = "internal"       // unexpected failure, room salvage path
)

// Error is a typed, recoverable validation failure. All entity operations
// reject with one of these; shared state is never left partially mutated.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// New builds a typed error with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, unwrapping as needed. Unknown errors
// report Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
