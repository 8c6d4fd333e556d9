package timeline

import (
	"testing"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
)

var day0 = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

func item(id string, start, end int) Item {
	return Item{ID: id, Name: id, Start: day(start), End: day(end)}
}

func ids(m *Model) []string {
	var out []string
	for it := range m.List() {
		out = append(out, it.ID)
	}
	return out
}

func TestUpsertInsertionOrder(t *testing.T) {
	m, err := NewModel(item("b", 0, 1), item("a", 2, 3), item("c", 1, 2))
	if err != nil {
		t.Fatalf("NewModel() error: %v", err)
	}

	got := ids(m)
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUpsertReplaceKeepsPosition(t *testing.T) {
	m, _ := NewModel(item("a", 0, 1), item("b", 1, 2))

	if err := m.Upsert(item("a", 5, 6)); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	if got := ids(m); got[0] != "a" || got[1] != "b" {
		t.Errorf("order after replace = %v, want [a b]", got)
	}
	a, _ := m.Get("a")
	if !a.Start.Equal(day(5)) {
		t.Errorf("Start = %v, want %v", a.Start, day(5))
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestUpsertRejectsInvertedRange(t *testing.T) {
	m, _ := NewModel(item("a", 0, 1), item("b", 1, 2))
	before := m.Items()

	for range 2 {
		err := m.Upsert(item("a", 4, 3))
		if !gerrors.Is(err, gerrors.ErrCodeInvalidRange) {
			t.Fatalf("Upsert() error = %v, want INVALID_RANGE", err)
		}
	}
	if err := m.Upsert(item("new", 4, 3)); err == nil {
		t.Fatal("Upsert() of new inverted item should fail")
	}

	after := m.Items()
	if len(after) != len(before) {
		t.Fatalf("len = %d, want %d", len(after), len(before))
	}
	for i := range before {
		if !before[i].Equal(after[i]) {
			t.Errorf("item %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestUpsertRejectsBadID(t *testing.T) {
	m, _ := NewModel()
	err := m.Upsert(Item{Start: day(0), End: day(1)})
	if !gerrors.Is(err, gerrors.ErrCodeInvalidInput) {
		t.Errorf("Upsert() error = %v, want INVALID_INPUT", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestNewModelInvalid(t *testing.T) {
	if _, err := NewModel(item("a", 0, 1), item("b", 3, 1)); err == nil {
		t.Error("NewModel() with inverted item should fail")
	}
}

func TestRemove(t *testing.T) {
	m, _ := NewModel(item("a", 0, 1), item("b", 1, 2), item("c", 2, 3))

	if !m.Remove("b") {
		t.Error("Remove(b) = false, want true")
	}
	if m.Remove("b") {
		t.Error("second Remove(b) = true, want false")
	}
	if got := ids(m); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("List() = %v, want [a c]", got)
	}

	_ = m.Upsert(item("b", 1, 2))
	if got := ids(m); got[2] != "b" {
		t.Errorf("re-inserted item should go last, got %v", got)
	}
}

func TestListRestartable(t *testing.T) {
	m, _ := NewModel(item("a", 0, 1), item("b", 1, 2), item("c", 2, 3))
	seq := m.List()

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 3 || second != 3 {
		t.Errorf("ranges yielded %d and %d items, want 3 and 3", first, second)
	}

	// Early break must not poison the sequence.
	for it := range seq {
		if it.ID == "a" {
			break
		}
	}
	if got := ids(m); len(got) != 3 {
		t.Errorf("after break List() = %v", got)
	}
}

func TestListSnapshotIsolation(t *testing.T) {
	m, _ := NewModel(item("a", 0, 1), item("b", 1, 2))

	var seen []string
	for it := range m.List() {
		seen = append(seen, it.ID)
		_ = m.Upsert(item("z-"+it.ID, 0, 1))
	}
	if len(seen) != 2 {
		t.Errorf("iteration saw %v, want only the snapshot", seen)
	}
	if m.Len() != 4 {
		t.Errorf("Len() = %d, want 4", m.Len())
	}
}

func TestGetReturnsCopy(t *testing.T) {
	orig := item("a", 0, 1)
	orig.Links = []string{"x"}
	m, _ := NewModel(orig)

	got, _ := m.Get("a")
	got.Links[0] = "mutated"

	again, _ := m.Get("a")
	if again.Links[0] != "x" {
		t.Errorf("Links = %v, model was mutated through a copy", again.Links)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Item
		want bool
	}{
		{"disjoint", item("a", 0, 1), item("b", 2, 3), false},
		{"touching", item("a", 0, 2), item("b", 2, 3), false},
		{"overlapping", item("a", 1, 3), item("b", 2, 4), true},
		{"contained", item("a", 0, 5), item("b", 1, 2), true},
		{"same start zero length", item("a", 1, 1), item("b", 1, 3), true},
		{"zero length inside", item("a", 2, 2), item("b", 1, 3), true},
		{"zero length at end", item("a", 3, 3), item("b", 1, 3), false},
		{"zero length same instant", item("a", 2, 2), item("b", 2, 2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}
