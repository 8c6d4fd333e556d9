package cache

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNullCacheNeverServesRenders(t *testing.T) {
	ctx := context.Background()
	c := Disabled("--no-cache")
	defer c.Close()

	k := NewDefaultKeyer()
	keys := []string{
		k.SceneKey(Hash([]byte("layout")), SceneKeyOpts{Width: 800, Height: 200, Header: 24}),
		k.ArtifactKey(Hash([]byte("scene")), ArtifactKeyOpts{Format: "svg", Theme: "dark"}),
		k.ArtifactKey(Hash([]byte("scene")), ArtifactKeyOpts{Format: "txt", Columns: 80}),
	}
	for _, key := range keys {
		if err := c.Set(ctx, key, []byte(`{"rects":[]}`), TTLScene); err != nil {
			t.Errorf("Set(%s) error: %v", key, err)
		}
		data, hit, err := c.Get(ctx, key)
		if err != nil || hit || data != nil {
			t.Errorf("Get(%s) = %q, %v, %v; want a clean miss", key, data, hit, err)
		}
		if err := c.Delete(ctx, key); err != nil {
			t.Errorf("Delete(%s) error: %v", key, err)
		}
	}
}

func TestIsDisabled(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		c        Cache
		disabled bool
		reason   string
	}{
		{"nil", nil, true, ""},
		{"null", NewNullCache(), true, "disabled"},
		{"no-cache flag", Disabled("--no-cache"), true, "--no-cache"},
		{"file", fc, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDisabled(tt.c); got != tt.disabled {
				t.Errorf("IsDisabled = %v, want %v", got, tt.disabled)
			}
			if got := DisabledReason(tt.c); got != tt.reason {
				t.Errorf("DisabledReason = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestHashJSON(t *testing.T) {
	h1, err := HashJSON(map[string]int{"a": 1, "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := HashJSON(map[string]int{"b": 2, "a": 1})
	if h1 != h2 {
		t.Error("HashJSON should be independent of map insertion order")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	sk1 := k.SceneKey("hash123", SceneKeyOpts{Width: 800, Height: 600})
	sk2 := k.SceneKey("hash123", SceneKeyOpts{Width: 800, Height: 600, Highlight: []string{"a"}})
	if sk1 == sk2 {
		t.Error("Different SceneKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(sk1, "scene:") {
		t.Errorf("SceneKey unexpected: %s", sk1)
	}
	if k.SceneKey("hash123", SceneKeyOpts{Width: 800, Height: 600}) != sk1 {
		t.Error("SceneKey should be deterministic")
	}

	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "view:roadmap:")

	key := scoped.ArtifactKey("abc", ArtifactKeyOpts{Format: "svg"})
	if !strings.HasPrefix(key, "view:roadmap:artifact:") {
		t.Errorf("ScopedKeyer ArtifactKey should be prefixed: %s", key)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	want := "prefix:" + NewDefaultKeyer().SceneKey("h", SceneKeyOpts{})
	if got := scoped.SceneKey("h", SceneKeyOpts{}); got != want {
		t.Errorf("Unexpected key with nil inner: %s", got)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}

	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("empty cache should miss")
	}
	if err := c.Set(ctx, "k", []byte("svg"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "svg" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted key should miss")
	}
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
}

func TestKeyKind(t *testing.T) {
	k := NewDefaultKeyer()
	scoped := NewScopedKeyer(k, "view:roadmap:")
	tests := []struct {
		key  string
		want string
	}{
		{k.SceneKey("h", SceneKeyOpts{Width: 800}), KindScene},
		{k.ArtifactKey("h", ArtifactKeyOpts{Format: "png"}), KindArtifact},
		{scoped.SceneKey("h", SceneKeyOpts{}), KindScene},
		{scoped.ArtifactKey("h", ArtifactKeyOpts{Format: "pdf"}), KindArtifact},
		{"plain", KindOther},
		{"layout:abc", KindOther},
	}
	for _, tt := range tests {
		if got := KeyKind(tt.key); got != tt.want {
			t.Errorf("KeyKind(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

// seedRenders stores two scenes and one artifact.
func seedRenders(t *testing.T, c *FileCache) (scenes []string, artifact string) {
	t.Helper()
	ctx := context.Background()
	k := NewDefaultKeyer()
	scenes = []string{
		k.SceneKey("layout-a", SceneKeyOpts{Width: 800}),
		k.SceneKey("layout-b", SceneKeyOpts{Width: 800}),
	}
	artifact = k.ArtifactKey("scene-a", ArtifactKeyOpts{Format: "png", Theme: "dark"})
	for _, key := range append(scenes, artifact) {
		if err := c.Set(ctx, key, []byte(key), 0); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}
	return scenes, artifact
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()

	t.Run("scenes only", func(t *testing.T) {
		c, _ := NewFileCache(t.TempDir())
		scenes, artifact := seedRenders(t, c)

		n, err := c.Clear(KindScene)
		if err != nil || n != 2 {
			t.Fatalf("Clear(scene) = %d, %v; want 2", n, err)
		}
		for _, key := range scenes {
			if _, hit, _ := c.Get(ctx, key); hit {
				t.Errorf("scene %s survived", key)
			}
		}
		if data, hit, _ := c.Get(ctx, artifact); !hit || string(data) != artifact {
			t.Errorf("artifact lost: %q, %v", data, hit)
		}
	})

	t.Run("everything", func(t *testing.T) {
		c, _ := NewFileCache(t.TempDir())
		seedRenders(t, c)
		_ = c.Set(ctx, "plain", []byte("x"), 0)

		n, err := c.Clear()
		if err != nil || n != 4 {
			t.Fatalf("Clear() = %d, %v; want 4", n, err)
		}
		entries, _ := os.ReadDir(c.Dir())
		if len(entries) != 0 {
			t.Errorf("Clear left %d entries", len(entries))
		}
	})
}

func TestFileCacheUsage(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	seedRenders(t, c)
	stale := NewDefaultKeyer().ArtifactKey("scene-b", ArtifactKeyOpts{Format: "svg"})
	if err := c.Set(ctx, stale, []byte("<svg/>"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)

	usage, err := c.Usage()
	if err != nil {
		t.Fatal(err)
	}
	if got := usage[KindScene].Entries; got != 2 {
		t.Errorf("scene entries = %d, want 2", got)
	}
	if got := usage[KindArtifact].Entries; got != 1 {
		t.Errorf("artifact entries = %d, want 1 (expired one pruned)", got)
	}
	if usage[KindArtifact].Bytes <= 0 {
		t.Error("artifact bytes not counted")
	}
	if _, err := os.Stat(c.path(stale)); !os.IsNotExist(err) {
		t.Error("expired entry still on disk")
	}
}

func TestFileCacheCollisionMisses(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	key := NewDefaultKeyer().SceneKey("h", SceneKeyOpts{})
	if err := c.Set(ctx, key, []byte("scene"), 0); err != nil {
		t.Fatal(err)
	}
	// Rewrite the entry as if another key hashed to the same file.
	raw, _ := os.ReadFile(c.path(key))
	raw = []byte(strings.Replace(string(raw), key, "scene:other", 1))
	if err := os.WriteFile(c.path(key), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("entry stored under another key should miss")
	}
}

func TestRetryableError(t *testing.T) {
	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(ErrNotFound) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrNotFound
	})
	if err != ErrNotFound {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Retry error = %v, want ErrNetwork", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
