package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	v := NoopViewHooks{}
	v.OnLoadStart(ctx, "sqlite")
	v.OnLoadComplete(ctx, "sqlite", 12, time.Second, nil)
	v.OnLayoutComplete(ctx, "stack", 12, 4, time.Millisecond)
	v.OnRenderStart(ctx, []string{"svg"})
	v.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	g := NoopGestureHooks{}
	g.OnBegin(ctx, "task-1", "move")
	g.OnConflict(ctx, "task-1")
	g.OnCancel(ctx, "task-1")
	g.OnCommit(ctx, "task-1", time.Millisecond, "concurrent_modification")

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "scene")
	c.OnCacheMiss(ctx, "artifact")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/api/scene")
	h.OnResponse(ctx, "GET", "/api/scene", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := View().(NoopViewHooks); !ok {
		t.Error("View() should return NoopViewHooks by default")
	}
	if _, ok := Gesture().(NoopGestureHooks); !ok {
		t.Error("Gesture() should return NoopGestureHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customView := &testViewHooks{}
	SetViewHooks(customView)
	if View() != customView {
		t.Error("SetViewHooks should set custom hooks")
	}

	customGesture := &testGestureHooks{}
	SetGestureHooks(customGesture)
	if Gesture() != customGesture {
		t.Error("SetGestureHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Gesture().(NoopGestureHooks); !ok {
		t.Error("Reset() should restore NoopGestureHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testViewHooks{}
	SetViewHooks(custom)
	SetViewHooks(nil)

	if View() != custom {
		t.Error("SetViewHooks(nil) should be ignored")
	}

	Reset()
}

type testViewHooks struct{ NoopViewHooks }
type testGestureHooks struct{ NoopGestureHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
