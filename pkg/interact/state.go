package interact

import (
	"strings"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// State is the gesture state of one item.
type State int

// Gesture states.
const (
	Idle State = iota
	Dragging
	Committing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Active reports whether s blocks a new gesture on the same item.
func (s State) Active() bool { return s == Dragging || s == Committing }

// allowed lists the legal transitions.
func allowed(from, to State) bool {
	switch from {
	case Idle:
		return to == Dragging
	case Dragging:
		return to == Committing || to == Cancelled || to == Idle
	case Committing, Cancelled:
		return to == Idle
	default:
		return false
	}
}

// Mode selects which bounds a gesture changes.
type Mode string

// Gesture modes.
const (
	Move        Mode = "move"
	ResizeStart Mode = "resize-start"
	ResizeEnd   Mode = "resize-end"
)

// ParseMode parses a gesture mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Move, ResizeStart, ResizeEnd:
		return m, nil
	case "":
		return Move, nil
	default:
		return "", gerrors.New(gerrors.ErrCodeInvalidInput,
			"invalid gesture mode %q (must be one of: move, resize-start, resize-end)", s)
	}
}

// Tentative is the uncommitted result of a gesture.
type Tentative struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Units is the snapped delta applied to the moving edge.
	Units int `json:"units"`

	// Clamped is set when a resize hit the opposite edge.
	Clamped bool `json:"clamped,omitempty"`
}

// Outcome is the resolution of a gesture passed to [Controller.End].
type Outcome struct {
	ItemID string

	// Item holds the bounds now in the model: the committed bounds on
	// success, the pre-drag bounds otherwise.
	Item timeline.Item

	// Changed is false when the gesture ended where it started and no
	// commit was attempted.
	Changed bool

	// Err is a COMMIT_FAILURE with a reason, or nil.
	Err error
}

// session is one drag. It lives from Begin until the gesture resolves.
type session struct {
	id        string
	mode      Mode
	originX   float64
	orig      timeline.Item
	tentative Tentative
	state     State
	began     time.Time
}

func (s *session) transition(to State) error {
	if !allowed(s.state, to) {
		return gerrors.New(gerrors.ErrCodeInternal,
			"gesture on %q: illegal transition %s -> %s", s.id, s.state, to)
	}
	s.state = to
	return nil
}
