package host

import (
	"context"
	"regexp"
	"slices"
	"sync"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// Adapter is implemented by hosts that own timeline records.
type Adapter interface {
	// LoadItems returns every item in the host's insertion order.
	LoadItems(ctx context.Context) ([]timeline.Item, error)

	// Commit persists new bounds for id. It is called at most once per
	// drag, from its own goroutine, with a context the gesture cannot
	// cancel.
	Commit(ctx context.Context, id string, start, end time.Time) error
}

// Closer is implemented by adapters holding connections or files.
type Closer interface {
	Close() error
}

// Close closes a if it implements [Closer].
func Close(a Adapter) error {
	if c, ok := a.(Closer); ok {
		return c.Close()
	}
	return nil
}

// Record is a stored item with its version.
type Record struct {
	ID      string    `json:"id" bson:"_id"`
	Name    string    `json:"name"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Group   string    `json:"group,omitempty"`
	Links   []string  `json:"links,omitempty"`
	Version int64     `json:"version"`
}

// Item converts the record to a timeline item.
func (r Record) Item() timeline.Item {
	return timeline.Item{
		ID:    r.ID,
		Name:  r.Name,
		Start: r.Start,
		End:   r.End,
		Group: r.Group,
		Links: slices.Clone(r.Links),
	}
}

// FromItem builds a record at the given version.
func FromItem(it timeline.Item, version int64) Record {
	return Record{
		ID:      it.ID,
		Name:    it.Name,
		Start:   it.Start,
		End:     it.End,
		Group:   it.Group,
		Links:   slices.Clone(it.Links),
		Version: version,
	}
}

// CheckBounds rejects inverted ranges with a validation_rejected commit
// failure. Adapters call it before touching storage.
func CheckBounds(id string, start, end time.Time) error {
	if err := gerrors.ValidateRange(start, end); err != nil {
		return gerrors.CommitFailed(gerrors.ReasonValidationRejected, err, "item %q", id)
	}
	return nil
}

// FieldMap names the storage fields for each attribute.
type FieldMap struct {
	Name  string `json:"name" toml:"name" yaml:"name"`
	Start string `json:"start" toml:"start" yaml:"start"`
	End   string `json:"end" toml:"end" yaml:"end"`
	Group string `json:"group,omitempty" toml:"group" yaml:"group,omitempty"`
	Links string `json:"links,omitempty" toml:"links" yaml:"links,omitempty"`
}

// DefaultFields returns the conventional task schema.
func DefaultFields() FieldMap {
	return FieldMap{
		Name:  "name",
		Start: "start_date",
		End:   "end_date",
		Group: "",
		Links: "depends_on",
	}
}

// WithDefaults fills empty Name, Start, End and Links from
// [DefaultFields]. Group stays optional.
func (f FieldMap) WithDefaults() FieldMap {
	d := DefaultFields()
	if f.Name == "" {
		f.Name = d.Name
	}
	if f.Start == "" {
		f.Start = d.Start
	}
	if f.End == "" {
		f.End = d.End
	}
	if f.Links == "" {
		f.Links = d.Links
	}
	return f
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is safe to interpolate as a SQL
// identifier or document key.
func IsIdentifier(s string) bool { return identRe.MatchString(s) }

// Validate requires a start field and checks that every set field is a
// plain identifier, since SQL drivers interpolate them into statements.
func (f FieldMap) Validate() error {
	if f.Start == "" {
		return gerrors.New(gerrors.ErrCodeInvalidConfig, "gantt view requires a start field")
	}
	seen := map[string]string{}
	for _, kv := range [][2]string{
		{"name", f.Name}, {"start", f.Start}, {"end", f.End}, {"group", f.Group}, {"links", f.Links},
	} {
		attr, field := kv[0], kv[1]
		if field == "" {
			continue
		}
		if !identRe.MatchString(field) {
			return gerrors.New(gerrors.ErrCodeInvalidConfig, "field %s: %q is not a valid identifier", attr, field)
		}
		if other, dup := seen[field]; dup {
			return gerrors.New(gerrors.ErrCodeInvalidConfig, "field %q mapped to both %s and %s", field, other, attr)
		}
		seen[field] = attr
	}
	return nil
}

// Versions remembers the record version each item had when loaded.
// It is safe for concurrent use.
type Versions struct {
	mu sync.Mutex
	m  map[string]int64
}

// NewVersions creates an empty table.
func NewVersions() *Versions {
	return &Versions{m: make(map[string]int64)}
}

// Remember records v as the last seen version of id.
func (v *Versions) Remember(id string, version int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[id] = version
}

// Expected returns the last seen version of id.
func (v *Versions) Expected(id string) (int64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	version, ok := v.m[id]
	return version, ok
}

// Reset forgets every remembered version.
func (v *Versions) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.m)
}

// Conflict builds the error for a commit whose expected version is stale.
func Conflict(id string, expected, actual int64) error {
	return gerrors.CommitFailed(gerrors.ReasonConcurrentModification, nil,
		"item %q changed since it was loaded (version %d, now %d)", id, expected, actual)
}

// Missing builds the error for a commit on a record that no longer exists.
func Missing(id string) error {
	return gerrors.CommitFailed(gerrors.ReasonNotFound, nil, "item %q not found", id)
}
