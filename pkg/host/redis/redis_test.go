package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

// testStore connects to GANTT_TEST_REDIS_ADDR under a unique prefix.
func testStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("GANTT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GANTT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	prefix := "gantt-test-" + uuid.NewString()
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return New(client, prefix, host.FieldMap{Group: "phase"}, nil)
}

func TestDecode(t *testing.T) {
	s := New(nil, "", host.FieldMap{Group: "phase"}, nil)
	r, err := s.decode("a", map[string]string{
		"name":       "Design",
		"start_date": "2025-01-01T00:00:00Z",
		"end_date":   "2025-01-03T00:00:00Z",
		"phase":      "plan",
		"depends_on": `["x"]`,
		"version":    "4",
	})
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if r.Name != "Design" || r.Group != "plan" || r.Version != 4 || len(r.Links) != 1 || !r.End.Equal(day(2)) {
		t.Errorf("decode = %+v", r)
	}

	if _, err := s.decode("b", map[string]string{"start_date": "yesterday"}); err == nil {
		t.Error("decode should reject bad timestamps")
	}
}

func TestPutLoadCommit(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	for _, r := range []host.Record{
		{ID: "b", Name: "Build", Start: day(2), End: day(5), Links: []string{"a"}},
		{ID: "a", Name: "Design", Start: day(0), End: day(2), Group: "plan"},
	} {
		if _, err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}

	items, err := s.LoadItems(ctx)
	if err != nil {
		t.Fatalf("LoadItems error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "b" || items[1].Group != "plan" {
		t.Fatalf("items = %+v", items)
	}

	if err := s.Commit(ctx, "a", day(1), day(3)); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	items, _ = s.LoadItems(ctx)
	if !items[1].Start.Equal(day(1)) {
		t.Errorf("item a after commit = %+v", items[1])
	}
}

func TestCommitReasons(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	_, _ = s.Put(ctx, host.Record{ID: "a", Start: day(0), End: day(2)})
	_, _ = s.LoadItems(ctx)

	// Another writer bumps the version.
	_, _ = s.Put(ctx, host.Record{ID: "a", Name: "renamed", Start: day(0), End: day(2)})
	if r := gerrors.CommitReason(s.Commit(ctx, "a", day(1), day(3))); r != gerrors.ReasonConcurrentModification {
		t.Errorf("reason = %s, want concurrent_modification", r)
	}
	if r := gerrors.CommitReason(s.Commit(ctx, "ghost", day(1), day(3))); r != gerrors.ReasonNotFound {
		t.Errorf("reason = %s, want not_found", r)
	}
}
