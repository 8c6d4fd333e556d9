package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/timeline"
)

func TestFieldMapDefaults(t *testing.T) {
	f := FieldMap{Name: "title"}.WithDefaults()
	want := FieldMap{Name: "title", Start: "start_date", End: "end_date", Links: "depends_on"}
	if f != want {
		t.Errorf("WithDefaults() = %+v, want %+v", f, want)
	}
}

func TestFieldMapValidate(t *testing.T) {
	tests := []struct {
		name    string
		f       FieldMap
		wantErr bool
	}{
		{"defaults", DefaultFields(), false},
		{"no start", FieldMap{Name: "name", End: "end"}, true},
		{"space", FieldMap{Start: "start date"}, true},
		{"injection", FieldMap{Start: "x; DROP TABLE t"}, true},
		{"duplicate", FieldMap{Start: "d", End: "d"}, true},
		{"group", FieldMap{Start: "s", End: "e", Group: "phase"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !gerrors.Is(err, gerrors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() code = %s, want INVALID_CONFIG", gerrors.GetCode(err))
			}
		})
	}
}

func TestRecordItem(t *testing.T) {
	d := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	it := timeline.Item{ID: "a", Name: "A", Start: d, End: d.AddDate(0, 0, 1), Links: []string{"b"}}
	r := FromItem(it, 3)
	if r.Version != 3 || !r.Item().Equal(it) {
		t.Errorf("FromItem/Item round trip = %+v", r)
	}
	r.Links[0] = "changed"
	if it.Links[0] != "b" {
		t.Error("FromItem should copy links")
	}
}

func TestCheckBounds(t *testing.T) {
	d := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := CheckBounds("a", d, d); err != nil {
		t.Errorf("zero-length range rejected: %v", err)
	}
	err := CheckBounds("a", d, d.Add(-time.Hour))
	if gerrors.CommitReason(err) != gerrors.ReasonValidationRejected {
		t.Errorf("CheckBounds error = %v", err)
	}
}

func TestVersions(t *testing.T) {
	v := NewVersions()
	if _, ok := v.Expected("a"); ok {
		t.Error("empty table should not know a")
	}

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Remember("a", int64(i))
		}()
	}
	wg.Wait()
	if _, ok := v.Expected("a"); !ok {
		t.Error("a should be remembered")
	}

	v.Reset()
	if _, ok := v.Expected("a"); ok {
		t.Error("Reset should forget a")
	}
}

func TestConflictAndMissing(t *testing.T) {
	if r := gerrors.CommitReason(Conflict("a", 1, 2)); r != gerrors.ReasonConcurrentModification {
		t.Errorf("Conflict reason = %s", r)
	}
	if r := gerrors.CommitReason(Missing("a")); r != gerrors.ReasonNotFound {
		t.Errorf("Missing reason = %s", r)
	}
}

type closingAdapter struct{ closed bool }

func (c *closingAdapter) LoadItems(context.Context) ([]timeline.Item, error) { return nil, nil }
func (c *closingAdapter) Commit(context.Context, string, time.Time, time.Time) error {
	return errors.New("read only")
}
func (c *closingAdapter) Close() error { c.closed = true; return nil }

func TestClose(t *testing.T) {
	a := &closingAdapter{}
	if err := Close(a); err != nil || !a.closed {
		t.Errorf("Close() = %v, closed = %v", err, a.closed)
	}
}

func TestDriversOpen(t *testing.T) {
	var got Config
	d := Drivers{"fake": func(_ context.Context, cfg Config) (Adapter, error) {
		got = cfg
		return &closingAdapter{}, nil
	}}
	if _, err := d.Open(context.Background(), Config{Driver: " Fake "}); err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if got.Driver != "fake" || got.Fields.Start != "start_date" || got.Logger == nil {
		t.Errorf("driver received %+v", got)
	}
}
