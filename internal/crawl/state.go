package crawl

import (
	"fmt"

	"github.com/lornebot/torstats/internal/database"
)

// phase is the explicit crawl state for one transcriber, derived from the
// stored cursor fields. Deriving it in one place keeps illegal combinations
// (a forward scan with no cursor) from ever reaching the scan logic.
type phase int

const (
	phaseUninitialized phase = iota
	phaseBackward
	phaseForward
	phaseInvalid
)

func (p phase) String() string {
	switch p {
	case phaseUninitialized:
		return "uninitialized"
	case phaseBackward:
		return "backward"
	case phaseForward:
		return "forward"
	case phaseInvalid:
		return "invalid"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// cursorState is the tagged crawl state: the cursor is only meaningful for
// the forward and backward phases.
type cursorState struct {
	phase  phase
	cursor string
}

// stateOf derives the crawl state from a transcriber row. Any row without
// both cursors collapses to uninitialized regardless of its direction flag.
func stateOf(t *database.Transcriber) cursorState {
	if !t.Valid {
		return cursorState{phase: phaseInvalid}
	}
	if t.StartComment == nil || t.EndComment == nil {
		return cursorState{phase: phaseUninitialized}
	}
	if t.Forwards {
		return cursorState{phase: phaseForward, cursor: *t.StartComment}
	}
	return cursorState{phase: phaseBackward, cursor: *t.EndComment}
}
