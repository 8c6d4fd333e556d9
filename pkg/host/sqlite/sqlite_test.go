package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

// setupTestStore creates a store in a temporary directory.
func setupTestStore(t *testing.T, fields host.FieldMap) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "gantt.db"), "", fields, nil)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return s
}

func TestSchema(t *testing.T) {
	s := setupTestStore(t, host.FieldMap{})

	var name string
	err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", DefaultTable).Scan(&name)
	if err != nil {
		t.Fatalf("table %s does not exist: %v", DefaultTable, err)
	}
	if _, err := s.DB().Exec("SELECT id, name, start_date, end_date, depends_on, version FROM " + DefaultTable); err != nil {
		t.Errorf("default columns missing: %v", err)
	}
}

func TestPutAndLoad(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, host.FieldMap{Group: "phase"})

	if _, err := s.Put(ctx, host.Record{ID: "b", Name: "Build", Start: day(2), End: day(5), Group: "dev", Links: []string{"a"}}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, err := s.Put(ctx, host.Record{ID: "a", Name: "Design", Start: day(0), End: day(2)}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	id, err := s.Put(ctx, host.Record{Name: "Anonymous", Start: day(1), End: day(1)})
	if err != nil || id == "" {
		t.Fatalf("Put without id = %q, %v", id, err)
	}

	items, err := s.LoadItems(ctx)
	if err != nil {
		t.Fatalf("LoadItems error: %v", err)
	}
	if len(items) != 3 || items[0].ID != "b" || items[1].ID != "a" || items[2].ID != id {
		t.Fatalf("items not in insertion order: %+v", items)
	}
	if items[0].Group != "dev" || len(items[0].Links) != 1 || !items[0].Start.Equal(day(2)) {
		t.Errorf("item b = %+v", items[0])
	}

	// Replacing keeps the insertion position.
	if _, err := s.Put(ctx, host.Record{ID: "b", Name: "Build v2", Start: day(2), End: day(6)}); err != nil {
		t.Fatal(err)
	}
	items, _ = s.LoadItems(ctx)
	if items[0].ID != "b" || items[0].Name != "Build v2" {
		t.Errorf("replaced item = %+v", items[0])
	}
}

func TestPutRejectsInvalid(t *testing.T) {
	s := setupTestStore(t, host.FieldMap{})
	_, err := s.Put(context.Background(), host.Record{ID: "x", Start: day(3), End: day(1)})
	if !gerrors.Is(err, gerrors.ErrCodeInvalidRange) {
		t.Errorf("Put error = %v, want INVALID_RANGE", err)
	}
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, host.FieldMap{})
	_, _ = s.Put(ctx, host.Record{ID: "a", Name: "Design", Start: day(0), End: day(2)})
	if _, err := s.LoadItems(ctx); err != nil {
		t.Fatal(err)
	}

	if err := s.Commit(ctx, "a", day(1), day(4)); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	items, _ := s.LoadItems(ctx)
	if !items[0].Start.Equal(day(1)) || !items[0].End.Equal(day(4)) {
		t.Errorf("item after commit = %+v", items[0])
	}
	if err := s.Commit(ctx, "a", day(2), day(5)); err != nil {
		t.Errorf("second Commit error: %v", err)
	}
}

func TestCommitReasons(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent modification", func(t *testing.T) {
		s := setupTestStore(t, host.FieldMap{})
		_, _ = s.Put(ctx, host.Record{ID: "a", Start: day(0), End: day(2)})
		_, _ = s.LoadItems(ctx)
		// Another writer renames the record.
		_, _ = s.Put(ctx, host.Record{ID: "a", Name: "renamed", Start: day(0), End: day(2)})

		err := s.Commit(ctx, "a", day(1), day(3))
		if got := gerrors.CommitReason(err); got != gerrors.ReasonConcurrentModification {
			t.Errorf("reason = %s (%v), want concurrent_modification", got, err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		s := setupTestStore(t, host.FieldMap{})
		err := s.Commit(ctx, "ghost", day(1), day(3))
		if got := gerrors.CommitReason(err); got != gerrors.ReasonNotFound {
			t.Errorf("reason = %s, want not_found", got)
		}
	})

	t.Run("inverted", func(t *testing.T) {
		s := setupTestStore(t, host.FieldMap{})
		_, _ = s.Put(ctx, host.Record{ID: "a", Start: day(0), End: day(2)})
		err := s.Commit(ctx, "a", day(3), day(1))
		if got := gerrors.CommitReason(err); got != gerrors.ReasonValidationRejected {
			t.Errorf("reason = %s, want validation_rejected", got)
		}
	})

	t.Run("closed database", func(t *testing.T) {
		s, err := New(filepath.Join(t.TempDir(), "gantt.db"), "", host.FieldMap{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		_ = s.Close()
		err = s.Commit(ctx, "a", day(0), day(1))
		if got := gerrors.CommitReason(err); got != gerrors.ReasonTransportFailure {
			t.Errorf("reason = %s, want transport_failure", got)
		}
	})
}

func TestCustomFields(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, host.FieldMap{Name: "title", Start: "begins", End: "ends", Links: "deps"})
	if _, err := s.Put(ctx, host.Record{ID: "a", Name: "T", Start: day(0), End: day(1)}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	var title string
	if err := s.DB().QueryRow("SELECT title FROM " + DefaultTable + " WHERE id = 'a'").Scan(&title); err != nil || title != "T" {
		t.Errorf("title column = %q, %v", title, err)
	}
}

func TestNewRejectsBadIdentifiers(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(filepath.Join(dir, "a.db"), "drop table;", host.FieldMap{}, nil); !gerrors.Is(err, gerrors.ErrCodeInvalidConfig) {
		t.Errorf("bad table error = %v", err)
	}
	if _, err := New(filepath.Join(dir, "b.db"), "", host.FieldMap{Start: "start date"}, nil); !gerrors.Is(err, gerrors.ErrCodeInvalidConfig) {
		t.Errorf("bad field error = %v", err)
	}
}
