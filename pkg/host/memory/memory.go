// Package memory is an in-process host.
//
// A [Store] holds versioned records shared by any number of sessions; each
// [Adapter] returned by [Store.Adapter] tracks the versions it loaded, so
// two sessions over one store detect each other's writes exactly like two
// browser tabs over one database. [Store.Put] simulates an out-of-band
// write by another user.
package memory

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"sync"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// Validator inspects a record before a commit is applied. A non-nil error
// rejects the commit with reason validation_rejected.
type Validator func(r host.Record) error

// Option configures a [Store].
type Option func(*Store)

// WithValidator adds a commit rule.
func WithValidator(v Validator) Option {
	return func(s *Store) { s.validators = append(s.validators, v) }
}

// WithBeforeCommit installs a hook that runs before each commit touches
// the store. A non-nil error fails the commit. Tests use it to hold a
// commit in flight or to inject transport failures.
func WithBeforeCommit(fn func(ctx context.Context, id string) error) Option {
	return func(s *Store) { s.before = fn }
}

// Store is a versioned record set.
type Store struct {
	mu         sync.Mutex
	recs       map[string]host.Record
	order      []string
	validators []Validator
	before     func(ctx context.Context, id string) error
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{recs: make(map[string]host.Record)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed inserts items at version 1. Invalid items are rejected before any
// item is inserted.
func (s *Store) Seed(items ...timeline.Item) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	for _, it := range items {
		s.Put(host.FromItem(it, 0))
	}
	return nil
}

// Put inserts or replaces a record and advances its version past the
// stored one. It returns the new version.
func (s *Store) Put(r host.Record) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.recs[r.ID]
	if !ok {
		s.order = append(s.order, r.ID)
	}
	r.Version = max(r.Version, prev.Version) + 1
	r.Links = slices.Clone(r.Links)
	s.recs[r.ID] = r
	return r.Version
}

// Get returns the stored record.
func (s *Store) Get(id string) (host.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	return r, ok
}

// Delete removes a record.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[id]; !ok {
		return false
	}
	delete(s.recs, id)
	s.order = slices.DeleteFunc(s.order, func(x string) bool { return x == id })
	return true
}

// Records returns all records in insertion order.
func (s *Store) Records() []host.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]host.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.recs[id])
	}
	return out
}

// Adapter opens a new session on the store.
func (s *Store) Adapter() *Adapter {
	return &Adapter{store: s, versions: host.NewVersions()}
}

// Adapter is one session over a [Store].
type Adapter struct {
	store    *Store
	versions *host.Versions
}

// LoadItems returns all items and remembers their versions.
func (a *Adapter) LoadItems(ctx context.Context) ([]timeline.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs := a.store.Records()
	items := make([]timeline.Item, 0, len(recs))
	for _, r := range recs {
		a.versions.Remember(r.ID, r.Version)
		items = append(items, r.Item())
	}
	return items, nil
}

// Commit applies new bounds if the record is unchanged since load and
// every validator accepts it.
func (a *Adapter) Commit(ctx context.Context, id string, start, end time.Time) error {
	if err := host.CheckBounds(id, start, end); err != nil {
		return err
	}
	s := a.store
	if s.before != nil {
		if err := s.before(ctx, id); err != nil {
			return gerrors.AsCommitFailure(err, id)
		}
	}
	if err := ctx.Err(); err != nil {
		return gerrors.AsCommitFailure(err, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return host.Missing(id)
	}
	if want, ok := a.versions.Expected(id); ok && want != rec.Version {
		return host.Conflict(id, want, rec.Version)
	}

	next := rec
	next.Start, next.End = start, end
	for _, v := range s.validators {
		if err := v(next); err != nil {
			return gerrors.CommitFailed(gerrors.ReasonValidationRejected, err, "item %q", id)
		}
	}
	next.Version++
	s.recs[id] = next
	a.versions.Remember(id, next.Version)
	return nil
}

// Open is the memory driver. A non-empty DSN names a JSON file holding an
// array of items to seed the store with.
func Open(ctx context.Context, cfg host.Config) (host.Adapter, error) {
	s := NewStore()
	if cfg.DSN == "" {
		return s.Adapter(), nil
	}
	data, err := os.ReadFile(cfg.DSN)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeNotFound, err, "read items %s", cfg.DSN)
	}
	var items []timeline.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "parse items %s", cfg.DSN)
	}
	if err := s.Seed(items...); err != nil {
		return nil, err
	}
	return s.Adapter(), nil
}

var _ host.Adapter = (*Adapter)(nil)
