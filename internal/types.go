package internal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Frame.
//
// Legal transitions (see frame.go):
//
//	FREE -> LOCKED -> RENDERED -> FREEABLE -> RENDERED (resurrection)
//	                                       \-> FREE (eviction)
//	LOCKED -> FREE (released before render)
type State int

const (
	StateFree State = iota
	StateLocked
	StateRendered
	StateFreeable
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateLocked:
		return "LOCKED"
	case StateRendered:
		return "RENDERED"
	case StateFreeable:
		return "FREEABLE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrOutOfFrames is returned by Pool.GetFreeFrame when both the free and
// freeable lists are empty. Recoverable by the caller: typically means the
// pool is undersized for the stream's reference window.
var ErrOutOfFrames = errors.New("framepool: out of frames")

// InvariantViolation is raised (via panic) when a state transition, lock
// count, or binding invariant that the pool relies on for correctness is
// violated. It always indicates a bug in the caller or in the pool itself,
// never a runtime condition — callers should not recover from it except at
// a supervisor boundary that is going to tear the whole decoder down anyway.
type InvariantViolation struct {
	// Component names the object that detected the violation, e.g. "Frame.lock".
	Component string

	// State is the state the object was in when the violation was detected.
	State State

	// FrameID and HandleID identify the frame/handle involved, when known.
	// A zero uuid.UUID means "not applicable".
	FrameID  uuid.UUID
	HandleID uuid.UUID
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf(
		"framepool: invariant violation in %s: state=%s frame=%s handle=%s",
		e.Component, e.State, e.FrameID, e.HandleID,
	)
}

// fatal panics with an *InvariantViolation built from the given fields.
// Centralized so every detection site reports in the same shape.
func fatal(component string, state State, frameID, handleID uuid.UUID) {
	panic(&InvariantViolation{
		Component: component,
		State:     state,
		FrameID:   frameID,
		HandleID:  handleID,
	})
}
