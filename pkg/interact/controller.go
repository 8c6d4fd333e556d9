package interact

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/events"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/observability"
	"github.com/matzehuels/gantt/pkg/scale"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// Option configures a [Controller].
type Option func(*Controller)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPublisher sets where commit outcomes are published.
func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.pub = p
		}
	}
}

// WithDragEnabled turns drag and drop on or off. It is on by default.
func WithDragEnabled(on bool) Option {
	return func(c *Controller) { c.dragEnabled = on }
}

// Controller owns the drag sessions over one model. All methods are safe
// for concurrent use; none blocks on the host adapter.
type Controller struct {
	mu          sync.Mutex
	model       *timeline.Model
	adapter     host.Adapter
	scale       scale.Scale
	sessions    map[string]*session
	queued      map[string]*timeline.Item // nil entry queues a removal
	dragEnabled bool

	logger *log.Logger
	pub    events.Publisher
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a controller. The model is mutated only by commits and
// refreshes made through the controller.
func New(model *timeline.Model, adapter host.Adapter, sc scale.Scale, opts ...Option) *Controller {
	c := &Controller{
		model:       model,
		adapter:     adapter,
		scale:       sc,
		sessions:    make(map[string]*session),
		queued:      make(map[string]*timeline.Item),
		dragEnabled: true,
		logger:      log.NewWithOptions(io.Discard, log.Options{}),
		pub:         events.Nop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DragEnabled reports whether gestures may start.
func (c *Controller) DragEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragEnabled
}

// SetDragEnabled toggles drag and drop. Gestures already started are not
// affected.
func (c *Controller) SetDragEnabled(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragEnabled = on
}

// Scale returns the scale gestures snap to.
func (c *Controller) Scale() scale.Scale {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// SetScale replaces the scale. Subsequent moves snap to the new unit.
func (c *Controller) SetScale(s scale.Scale) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scale = s
}

// Begin starts a gesture on id at pointer position originX.
func (c *Controller) Begin(id string, mode Mode, originX float64) error {
	if mode == "" {
		mode = Move
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dragEnabled {
		return gerrors.New(gerrors.ErrCodeDragDisabled, "drag and drop is disabled for this view")
	}
	if s, ok := c.sessions[id]; ok && s.state.Active() {
		observability.Gesture().OnConflict(context.Background(), id)
		c.logger.Debug("gesture conflict", "item", id, "state", s.state)
		return gerrors.New(gerrors.ErrCodeGestureConflict, "item %q already has a gesture (%s)", id, s.state)
	}
	it, ok := c.model.Get(id)
	if !ok {
		return gerrors.New(gerrors.ErrCodeNotFound, "item %q not found", id)
	}

	s := &session{
		id:      id,
		mode:    mode,
		originX: originX,
		orig:    it,
		state:   Idle,
		began:   c.now(),
		tentative: Tentative{
			ID:    id,
			Start: it.Start,
			End:   it.End,
		},
	}
	if err := s.transition(Dragging); err != nil {
		return err
	}
	c.sessions[id] = s

	observability.Gesture().OnBegin(context.Background(), id, string(mode))
	c.logger.Debug("gesture begin", "item", id, "mode", mode)
	return nil
}

// Move updates the tentative bounds for pointer position x. While a commit
// is in flight the event is ignored and the last tentative bounds are
// returned.
func (c *Controller) Move(id string, x float64) (Tentative, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if !ok {
		return Tentative{}, gerrors.New(gerrors.ErrCodeInvalidInput, "item %q has no active gesture", id)
	}
	if s.state != Dragging {
		return s.tentative, nil
	}
	s.tentative = c.snap(s, x)
	return s.tentative, nil
}

// snap computes tentative bounds for s at pointer position x.
func (c *Controller) snap(s *session, x float64) Tentative {
	units := c.scale.SnapUnits(x - s.originX)
	t := Tentative{ID: s.id, Start: s.orig.Start, End: s.orig.End, Units: units}
	switch s.mode {
	case ResizeStart:
		t.Start = c.scale.Add(s.orig.Start, units)
		if t.Start.After(s.orig.End) {
			t.Start = s.orig.End
			t.Clamped = true
		}
	case ResizeEnd:
		t.End = c.scale.Add(s.orig.End, units)
		if t.End.Before(s.orig.Start) {
			t.End = s.orig.Start
			t.Clamped = true
		}
	default:
		t.Start = c.scale.Add(s.orig.Start, units)
		t.End = c.scale.Add(s.orig.End, units)
		if t.End.Before(t.Start) {
			t.End = t.Start
			t.Clamped = true
		}
	}
	return t
}

// Cancel discards a dragging gesture. It fails once the commit has been
// sent.
func (c *Controller) Cancel(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if !ok {
		return gerrors.New(gerrors.ErrCodeInvalidInput, "item %q has no active gesture", id)
	}
	if s.state != Dragging {
		return gerrors.New(gerrors.ErrCodeGestureConflict, "gesture on %q is %s and cannot be cancelled", id, s.state)
	}
	if err := s.transition(Cancelled); err != nil {
		return err
	}
	c.resolve(s, nil)

	observability.Gesture().OnCancel(context.Background(), id)
	c.logger.Debug("gesture cancelled", "item", id)
	return nil
}

// End finishes a dragging gesture. When the bounds changed it sends a
// commit to the host adapter and returns immediately; the returned channel
// receives one [Outcome] and is then closed. ctx is used for values only:
// cancelling it does not abort the commit.
func (c *Controller) End(ctx context.Context, id string) (<-chan Outcome, error) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	if !ok {
		c.mu.Unlock()
		return nil, gerrors.New(gerrors.ErrCodeInvalidInput, "item %q has no active gesture", id)
	}
	if s.state != Dragging {
		c.mu.Unlock()
		return nil, gerrors.New(gerrors.ErrCodeGestureConflict, "gesture on %q is already %s", id, s.state)
	}

	done := make(chan Outcome, 1)
	t := s.tentative
	if t.Start.Equal(s.orig.Start) && t.End.Equal(s.orig.End) {
		_ = s.transition(Idle)
		c.resolve(s, nil)
		c.mu.Unlock()
		done <- Outcome{ItemID: id, Item: s.orig}
		close(done)
		c.logger.Debug("gesture ended without change", "item", id)
		return done, nil
	}

	if err := s.transition(Committing); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.commit(context.WithoutCancel(ctx), s, t, done)
	return done, nil
}

func (c *Controller) commit(ctx context.Context, s *session, t Tentative, done chan<- Outcome) {
	defer c.wg.Done()
	defer close(done)

	started := time.Now()
	err := gerrors.AsCommitFailure(c.adapter.Commit(ctx, s.id, t.Start, t.End), s.id)

	c.mu.Lock()
	out := Outcome{ItemID: s.id, Item: s.orig, Changed: true}
	var committed *timeline.Item
	if err == nil {
		next := s.orig.WithBounds(t.Start, t.End)
		if uerr := c.model.Upsert(next); uerr != nil {
			err = gerrors.CommitFailed(gerrors.ReasonValidationRejected, uerr, "item %q", s.id)
		} else {
			out.Item = next
			committed = &next
		}
	}
	out.Err = err
	_ = s.transition(Idle)
	c.resolve(s, committed)
	c.mu.Unlock()

	var reason gerrors.Reason
	ev := events.Event{
		Type:   events.Committed,
		ItemID: s.id,
		Start:  out.Item.Start,
		End:    out.Item.End,
		At:     c.now(),
	}
	if err != nil {
		reason = gerrors.CommitReason(err)
		ev.Type = events.Rejected
		ev.Start, ev.End = t.Start, t.End
		ev.Reason = string(reason)
		c.logger.Warn("commit failed", "item", s.id, "reason", reason, "err", err)
	} else {
		c.logger.Info("committed", "item", s.id, "start", t.Start.Format(time.DateOnly), "end", t.End.Format(time.DateOnly))
	}
	observability.Gesture().OnCommit(ctx, s.id, time.Since(started), string(reason))
	if perr := c.pub.Publish(ctx, ev); perr != nil {
		c.logger.Warn("publish commit event", "item", s.id, "err", perr)
	}
	done <- out
}

// resolve drops a finished session and applies any refresh queued for it.
// committed is the item a successful commit stored, nil otherwise. Queued
// snapshots were loaded before the commit landed, so they never override
// its bounds or remove the item. The caller holds c.mu.
func (c *Controller) resolve(s *session, committed *timeline.Item) {
	delete(c.sessions, s.id)
	q, ok := c.queued[s.id]
	if !ok {
		return
	}
	delete(c.queued, s.id)
	switch {
	case committed != nil && q == nil:
		c.logger.Debug("dropping queued removal of committed item", "item", s.id)
		return
	case committed != nil:
		next := q.WithBounds(committed.Start, committed.End)
		q = &next
	case q == nil:
		c.model.Remove(s.id)
		return
	}
	if err := c.model.Upsert(*q); err != nil {
		c.logger.Warn("skipping queued refresh", "item", s.id, "err", err)
	}
}

// Wait blocks until every in-flight commit has resolved.
func (c *Controller) Wait() { c.wg.Wait() }

// State returns the gesture state of id.
func (c *Controller) State(id string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[id]; ok {
		return s.state
	}
	return Idle
}

// Tentative returns the uncommitted bounds of an active gesture.
func (c *Controller) Tentative(id string) (Tentative, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if !ok {
		return Tentative{}, false
	}
	return s.tentative, true
}

// Active returns the ids with a gesture in progress, sorted.
func (c *Controller) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Items returns the model's items in insertion order with tentative bounds
// substituted for items under a gesture. It is the input for a preview
// layout.
func (c *Controller) Items() []timeline.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.model.Items()
	for i, it := range items {
		if s, ok := c.sessions[it.ID]; ok {
			items[i] = it.WithBounds(s.tentative.Start, s.tentative.End)
		}
	}
	return items
}

// RefreshResult summarises a [Controller.Refresh].
type RefreshResult struct {
	Applied int
	Queued  int
	Removed int
	Skipped int
}

// Refresh replaces the model contents with items loaded from the host.
// Items with an active gesture are queued until it resolves; items missing
// from the list are removed the same way. Invalid items are skipped and
// logged without affecting the others.
func (c *Controller) Refresh(items []timeline.Item) RefreshResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res RefreshResult
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		seen[it.ID] = true
		if err := it.Validate(); err != nil {
			res.Skipped++
			c.logger.Warn("skipping refreshed item", "item", it.ID, "err", err)
			continue
		}
		if _, busy := c.sessions[it.ID]; busy {
			q := it.Clone()
			c.queued[it.ID] = &q
			res.Queued++
			continue
		}
		if err := c.model.Upsert(it); err != nil {
			res.Skipped++
			c.logger.Warn("skipping refreshed item", "item", it.ID, "err", err)
			continue
		}
		res.Applied++
	}

	for _, id := range c.model.IDs() {
		if seen[id] {
			continue
		}
		if _, busy := c.sessions[id]; busy {
			c.queued[id] = nil
			res.Queued++
			continue
		}
		c.model.Remove(id)
		res.Removed++
	}

	c.logger.Debug("refresh", "applied", res.Applied, "queued", res.Queued, "removed", res.Removed, "skipped", res.Skipped)
	return res
}

// Reload loads items from the adapter and applies them with Refresh.
func (c *Controller) Reload(ctx context.Context) (RefreshResult, error) {
	items, err := c.adapter.LoadItems(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	return c.Refresh(items), nil
}
