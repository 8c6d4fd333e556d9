package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/gantt/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows the current pipeline phase on a single terminal line. It
// stops on its own when ctx is cancelled.
type Spinner struct {
	w       io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	started bool
	message string
	width   int // widest message drawn so far
}

// newSpinnerWithContext creates a spinner writing to stderr.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		message: message,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Message returns the text currently shown.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(s.message))
	pad := strings.Repeat(" ", s.width-len(s.message))
	fmt.Fprintf(s.w, "\r%s %s%s", styleIconSpinner.Render(frame), StyleDim.Render(s.message), pad)
}

// Stop halts the animation and clears the line. It is safe to call more
// than once, and on a spinner that never started.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.stopped
		}
		s.clearLine()
	})
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", max(s.width, len(s.message))+4))
}

// Cancelled reports whether the spinner stopped because its parent
// context ended rather than through Stop.
func (s *Spinner) Cancelled() bool {
	select {
	case <-s.done:
		return false
	default:
		return s.ctx.Err() != nil
	}
}

// phaseHooks mirrors pipeline progress onto a spinner and forwards every
// event to the hooks it replaced.
type phaseHooks struct {
	next    observability.ViewHooks
	spinner *Spinner
	driver  string
}

func (h phaseHooks) OnLoadStart(ctx context.Context, source string) {
	h.spinner.SetMessage(fmt.Sprintf("Loading items from %s...", h.driver))
	h.next.OnLoadStart(ctx, source)
}

func (h phaseHooks) OnLoadComplete(ctx context.Context, source string, n int, d time.Duration, err error) {
	if err == nil {
		h.spinner.SetMessage(fmt.Sprintf("Laying out %d items...", n))
	}
	h.next.OnLoadComplete(ctx, source, n, d, err)
}

func (h phaseHooks) OnLayoutComplete(ctx context.Context, policy string, items, rows int, d time.Duration) {
	h.spinner.SetMessage(fmt.Sprintf("Placed %d items in %d rows", items, rows))
	h.next.OnLayoutComplete(ctx, policy, items, rows, d)
}

func (h phaseHooks) OnRenderStart(ctx context.Context, formats []string) {
	h.spinner.SetMessage(fmt.Sprintf("Rendering %s...", strings.Join(formats, ", ")))
	h.next.OnRenderStart(ctx, formats)
}

func (h phaseHooks) OnRenderComplete(ctx context.Context, formats []string, d time.Duration, err error) {
	h.next.OnRenderComplete(ctx, formats, d, err)
}

// trackPhases routes view hooks through s until the returned restore func
// runs.
func trackPhases(s *Spinner, driver string) (restore func()) {
	prev := observability.View()
	observability.SetViewHooks(phaseHooks{next: prev, spinner: s, driver: driver})
	return func() { observability.SetViewHooks(prev) }
}
