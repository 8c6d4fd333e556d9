// Package scale maps instants to horizontal pixel positions.
//
// A [Scale] combines a [Granularity] (the minimum draggable increment) with a
// pixel density and an origin instant. Month arithmetic is calendar-aware:
// one month unit is always one calendar month wide on screen, regardless of
// how many days that month has.
package scale

import (
	"fmt"
	"math"
	"strings"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
)

// Granularity is the time unit a drag snaps to.
type Granularity string

// Supported granularities.
const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// maxTicks bounds Ticks so an absurd range cannot allocate without limit.
const maxTicks = 10000

// Granularities lists the supported values in ascending size.
var Granularities = []Granularity{Day, Week, Month}

// ParseGranularity parses a zoom level name, case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month:
		return g, nil
	default:
		return "", gerrors.New(gerrors.ErrCodeInvalidInput,
			"invalid zoom level %q (must be one of: day, week, month)", s)
	}
}

// DefaultPixelsPerUnit returns the default layout density for g.
func DefaultPixelsPerUnit(g Granularity) float64 {
	switch g {
	case Week:
		return 80
	case Month:
		return 120
	default:
		return 40
	}
}

// Format renders t as a header label at granularity g.
func (g Granularity) Format(t time.Time) string {
	switch g {
	case Week:
		_, w := t.ISOWeek()
		return fmt.Sprintf("W%02d", w)
	case Month:
		return t.Format("Jan 2006")
	default:
		return t.Format("Jan 02")
	}
}

// Scale converts between instants and pixels.
type Scale struct {
	Granularity   Granularity `json:"granularity"`
	PixelsPerUnit float64     `json:"pixels_per_unit"`
	Origin        time.Time   `json:"origin"`
}

// New creates a scale. A non-positive ppu selects the granularity default,
// and the origin is floored to the start of its unit.
func New(g Granularity, ppu float64, origin time.Time) Scale {
	if g == "" {
		g = Day
	}
	if ppu <= 0 {
		ppu = DefaultPixelsPerUnit(g)
	}
	s := Scale{Granularity: g, PixelsPerUnit: ppu}
	s.Origin = s.Floor(origin)
	return s
}

// WithGranularity returns a copy zoomed to g using g's default density.
// The origin is re-floored to the new unit.
func (s Scale) WithGranularity(g Granularity) Scale {
	return New(g, 0, s.Origin)
}

// Add shifts t by n whole units.
func (s Scale) Add(t time.Time, n int) time.Time {
	switch s.Granularity {
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Units returns the (fractional) number of units from from to to.
// The result is negative when to is before from.
func (s Scale) Units(from, to time.Time) float64 {
	switch s.Granularity {
	case Week:
		return to.Sub(from).Hours() / (7 * 24)
	case Month:
		if to.Before(from) {
			return -monthsBetween(to, from)
		}
		return monthsBetween(from, to)
	default:
		return to.Sub(from).Hours() / 24
	}
}

func monthsBetween(from, to time.Time) float64 {
	whole := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	anchor := from.AddDate(0, whole, 0)
	for anchor.After(to) {
		whole--
		anchor = from.AddDate(0, whole, 0)
	}
	next := from.AddDate(0, whole+1, 0)
	span := next.Sub(anchor).Seconds()
	if span <= 0 {
		return float64(whole)
	}
	return float64(whole) + to.Sub(anchor).Seconds()/span
}

// X returns the pixel offset of t from the origin.
func (s Scale) X(t time.Time) float64 {
	return s.Units(s.Origin, t) * s.PixelsPerUnit
}

// SnapUnits rounds a pixel delta to whole units.
func (s Scale) SnapUnits(dx float64) int {
	if s.PixelsPerUnit <= 0 {
		return 0
	}
	return int(math.Round(dx / s.PixelsPerUnit))
}

// Floor returns the start of the unit containing t, in t's location.
// Weeks start on Monday.
func (s Scale) Floor(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	switch s.Granularity {
	case Week:
		start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		offset := (int(start.Weekday()) + 6) % 7
		return start.AddDate(0, 0, -offset)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
}

// Ceil returns the first unit boundary at or after t.
func (s Scale) Ceil(t time.Time) time.Time {
	f := s.Floor(t)
	if f.Equal(t) {
		return f
	}
	return s.Add(f, 1)
}

// Ticks returns the unit boundaries covering [from, to].
func (s Scale) Ticks(from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	var out []time.Time
	for t := s.Floor(from); !t.After(to) && len(out) < maxTicks; t = s.Add(t, 1) {
		out = append(out, t)
	}
	return out
}
