// Package interact implements drag and resize gestures over a timeline.
//
// # State Machine
//
// Every item has at most one gesture at a time:
//
//	Idle -> Dragging -> Committing -> Idle
//	           |
//	           +----> Cancelled -> Idle
//
// [Controller.Begin] starts a drag session capturing the item's bounds and
// the pointer origin. [Controller.Move] computes tentative bounds by
// snapping the pointer delta to whole units of the current scale. A resize
// that would invert the range is clamped to zero length instead of being
// rejected, so the gesture stays continuous.
//
// [Controller.End] hands the tentative bounds to the host adapter on a
// separate goroutine and returns a channel that receives exactly one
// [Outcome]. Once sent, a commit runs to completion: it is detached from the
// caller's context and [Controller.Cancel] refuses it. A failed commit
// leaves the model untouched, which is the rollback. Pointer events for an
// item with a commit in flight are ignored and a new Begin reports
// GESTURE_CONFLICT, so commits for one item never overlap.
//
// # Refresh
//
// [Controller.Refresh] applies an externally loaded item list. Items with an
// active gesture are queued and applied after the gesture resolves; the
// latest queued value wins.
//
// # Usage
//
//	c := interact.New(model, adapter, sc, interact.WithLogger(logger))
//	if err := c.Begin("task-1", interact.Move, 100); err != nil {
//	    return err
//	}
//	c.Move("task-1", 140) // +1 day at 40px per day
//	done, err := c.End(ctx, "task-1")
//	if err != nil {
//	    return err
//	}
//	out := <-done
//	if out.Err != nil {
//	    notify(errors.UserMessage(out.Err))
//	}
package interact
