package timeline

import (
	"slices"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
)

// Item is a schedulable record rendered as a bar on the chart.
//
// The zero value is not valid: ID, Start and End must be set.
type Item struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Group places the item in a band of related items. Items with an empty
	// group share the default band.
	Group string `json:"group,omitempty"`

	// Links lists the ids of items this item depends on.
	Links []string `json:"links,omitempty"`
}

// Validate reports an INVALID_INPUT error for a bad id and an INVALID_RANGE
// error when the item ends before it starts.
func (it Item) Validate() error {
	if err := gerrors.ValidateItemID(it.ID); err != nil {
		return err
	}
	if err := gerrors.ValidateRange(it.Start, it.End); err != nil {
		return gerrors.Wrap(gerrors.ErrCodeInvalidRange, err, "item %q", it.ID)
	}
	return nil
}

// Duration returns End - Start.
func (it Item) Duration() time.Duration { return it.End.Sub(it.Start) }

// Overlaps reports whether the half-open ranges [Start, End) intersect.
// Items sharing a start instant always overlap, so a zero-length item
// collides with anything starting at the same instant as well as with
// any range whose interior contains it.
func (it Item) Overlaps(other Item) bool {
	if it.Start.Equal(other.Start) {
		return true
	}
	return it.Start.Before(other.End) && other.Start.Before(it.End)
}

// WithBounds returns a copy of the item with new start and end.
func (it Item) WithBounds(start, end time.Time) Item {
	it.Start = start
	it.End = end
	return it
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	it.Links = slices.Clone(it.Links)
	return it
}

// Equal reports whether two items hold the same values.
// Instants are compared with time.Time.Equal.
func (it Item) Equal(other Item) bool {
	return it.ID == other.ID &&
		it.Name == other.Name &&
		it.Group == other.Group &&
		it.Start.Equal(other.Start) &&
		it.End.Equal(other.End) &&
		slices.Equal(it.Links, other.Links)
}
