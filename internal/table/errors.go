// Package table holds the pieces every game engine shares: the table
// registry, the participant seat index, the capped event log and the error
// taxonomy surfaced to boundary callers.
package table

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown table or an unseated participant.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState reports an action attempted in the wrong phase, such as
	// acting with no active round or rolling while a move is pending.
	ErrInvalidState = errors.New("invalid state")

	// ErrIllegalAction reports an action the rules forbid: wrong turn, wrong
	// card, bid too low, blocked move.
	ErrIllegalAction = errors.New("illegal action")

	// ErrInsufficientResource reports a chip stack too small for a commit.
	ErrInsufficientResource = errors.New("insufficient resource")
)

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func InvalidState(format string, args ...any) error {
	return wrap(ErrInvalidState, format, args...)
}

func Illegal(format string, args ...any) error {
	return wrap(ErrIllegalAction, format, args...)
}

func Insufficient(format string, args ...any) error {
	return wrap(ErrInsufficientResource, format, args...)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Code maps an engine error to a stable machine-readable code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, ErrInsufficientResource):
		return "insufficient_resource"
	default:
		return "internal"
	}
}
