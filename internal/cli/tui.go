package cli

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/interact"
	"github.com/matzehuels/gantt/pkg/render"
	"github.com/matzehuels/gantt/pkg/render/sink"
	"github.com/matzehuels/gantt/pkg/scale"
	"github.com/matzehuels/gantt/pkg/timeline"
	"github.com/matzehuels/gantt/pkg/view"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	chartStyle        = lipgloss.NewStyle().Foreground(colorWhite)
)

// dateLayout formats item bounds in the item table.
const dateLayout = "2006-01-02"

// modes is the cycle order for the mode key.
var modes = []interact.Mode{interact.Move, interact.ResizeStart, interact.ResizeEnd}

// tuiCommand creates the tui command for keyboard-driven rescheduling.
func (c *CLI) tuiCommand() *cobra.Command {
	var zoom string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and reschedule items in the terminal",
		Long: `Tui draws the timeline as a text chart and lets you drag items with the
keyboard. Changes are written to the host when a drag is confirmed.

Keys:
  ↑/↓ j/k   select item
  ←/→ h/l   drag the selected item one unit
  m         cycle drag mode (move, resize-start, resize-end)
  enter     commit the drag
  esc       cancel the drag
  +/-       zoom in/out
  r         reload items from the host
  q         quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if zoom != "" {
				g, err := scale.ParseGranularity(zoom)
				if err != nil {
					return err
				}
				cfg.View.ZoomLevel = g
			}

			// The alternate screen owns the terminal, so nothing may log.
			ctx := withLogger(cmd.Context(), log.NewWithOptions(io.Discard, log.Options{}))
			sess, err := c.openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			_, err = tea.NewProgram(NewTimelineModel(ctx, sess), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&zoom, "zoom", "z", "", "zoom level: day, week, month")
	return cmd
}

// =============================================================================
// TimelineModel - Interactive timeline
// =============================================================================

// outcomeMsg carries a resolved commit back into the update loop.
type outcomeMsg interact.Outcome

// refreshMsg carries the result of a host reload.
type refreshMsg struct {
	res interact.RefreshResult
	err error
}

// TimelineModel is the bubbletea model for the timeline view.
type TimelineModel struct {
	sess *view.Session
	ctx  context.Context

	IDs    []string
	Cursor int
	Offset int
	Height int
	Width  int

	Mode interact.Mode

	// dragging is the id under an active gesture; dx its pointer offset.
	dragging string
	dx       float64

	status    string
	statusErr bool
}

// NewTimelineModel creates a model over an opened session.
func NewTimelineModel(ctx context.Context, sess *view.Session) TimelineModel {
	m := TimelineModel{
		sess:   sess,
		ctx:    ctx,
		Height: 10,
		Width:  100,
		Mode:   interact.Move,
	}
	m.IDs = m.rowOrder()
	return m
}

// rowOrder lists item ids top to bottom, left to right.
func (m TimelineModel) rowOrder() []string {
	bars := m.sess.Layout(m.ctx).Bars
	keys := make([]rowKey, len(bars))
	for i, b := range bars {
		keys[i] = rowKey{id: b.Item.ID, row: b.Row, x: b.XStart}
	}
	slices.SortFunc(keys, byRow)
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.id
	}
	return ids
}

func (m TimelineModel) selected() string {
	if m.Cursor < 0 || m.Cursor >= len(m.IDs) {
		return ""
	}
	return m.IDs[m.Cursor]
}

func (m TimelineModel) Init() tea.Cmd {
	return nil
}

func (m TimelineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	case outcomeMsg:
		m.setOutcome(interact.Outcome(msg))
		m.reselect()
	case refreshMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(fmt.Sprintf("Reloaded: %d applied, %d queued, %d removed",
				msg.res.Applied, msg.res.Queued, msg.res.Removed))
		}
		m.reselect()
	case tea.WindowSizeMsg:
		m.Width = max(msg.Width-2, 20)
		m.Height = max(msg.Height/2-6, 5)
		m.scrollToCursor()
	}
	return m, nil
}

func (m TimelineModel) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		if m.dragging != "" {
			_ = m.sess.Cancel(m.dragging)
		}
		return m, tea.Quit
	case "up", "k":
		if m.blockedByDrag() {
			break
		}
		if m.Cursor > 0 {
			m.Cursor--
			m.scrollToCursor()
		}
	case "down", "j":
		if m.blockedByDrag() {
			break
		}
		if m.Cursor < len(m.IDs)-1 {
			m.Cursor++
			m.scrollToCursor()
		}
	case "left", "h":
		m.nudge(-1)
	case "right", "l":
		m.nudge(1)
	case "m", "tab":
		if m.blockedByDrag() {
			break
		}
		i := slices.Index(modes, m.Mode)
		m.Mode = modes[(i+1)%len(modes)]
		m.setStatus("Mode: " + string(m.Mode))
	case "enter":
		return m, m.commit()
	case "esc":
		if m.dragging == "" {
			break
		}
		if err := m.sess.Cancel(m.dragging); err != nil {
			m.setError(err)
			break
		}
		m.setStatus("Cancelled " + m.dragging)
		m.dragging, m.dx = "", 0
	case "+", "=":
		m.zoom(-1)
	case "-":
		m.zoom(1)
	case "r":
		return m, m.refresh()
	}
	return m, nil
}

func (m *TimelineModel) blockedByDrag() bool {
	if m.dragging == "" {
		return false
	}
	m.setStatus("Finish the drag first (enter commits, esc cancels)")
	return true
}

// nudge drags the selected item by n units, starting a gesture if needed.
func (m *TimelineModel) nudge(n int) {
	id := m.selected()
	if id == "" {
		return
	}
	if m.dragging == "" {
		if err := m.sess.Begin(id, m.Mode, 0); err != nil {
			m.setError(err)
			return
		}
		m.dragging, m.dx = id, 0
	}
	m.dx += float64(n) * m.sess.Scale().PixelsPerUnit
	t, err := m.sess.Move(m.dragging, m.dx)
	if err != nil {
		m.setError(err)
		return
	}
	status := fmt.Sprintf("%s: %s → %s (%+d)", t.ID, t.Start.Format(dateLayout), t.End.Format(dateLayout), t.Units)
	if t.Clamped {
		status += " clamped"
	}
	m.setStatus(status)
}

// commit ends the active gesture and waits for its outcome off the update
// loop.
func (m *TimelineModel) commit() tea.Cmd {
	if m.dragging == "" {
		return nil
	}
	done, err := m.sess.End(m.ctx, m.dragging)
	if err != nil {
		m.setError(err)
		return nil
	}
	m.setStatus("Saving " + m.dragging + "...")
	m.dragging, m.dx = "", 0
	return func() tea.Msg {
		return outcomeMsg(<-done)
	}
}

func (m *TimelineModel) refresh() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	m.setStatus("Reloading...")
	return func() tea.Msg {
		res, err := sess.Refresh(ctx)
		return refreshMsg{res: res, err: err}
	}
}

// zoom steps through the granularities; negative steps zoom in.
func (m *TimelineModel) zoom(step int) {
	if m.blockedByDrag() {
		return
	}
	i := slices.Index(scale.Granularities, m.sess.Scale().Granularity) + step
	if i < 0 || i >= len(scale.Granularities) {
		return
	}
	g := scale.Granularities[i]
	if err := m.sess.Zoom(g); err != nil {
		m.setError(err)
		return
	}
	m.setStatus("Zoom: " + string(g))
}

func (m *TimelineModel) setOutcome(o interact.Outcome) {
	switch {
	case o.Err != nil:
		m.setError(o.Err)
	case !o.Changed:
		m.setStatus(o.ItemID + " unchanged")
	default:
		m.setStatus(fmt.Sprintf("Saved %s: %s → %s", o.ItemID,
			o.Item.Start.Format(dateLayout), o.Item.End.Format(dateLayout)))
	}
}

func (m *TimelineModel) setStatus(s string) { m.status, m.statusErr = s, false }

func (m *TimelineModel) setError(err error) {
	msg := gerrors.UserMessage(err)
	if r := gerrors.CommitReason(err); r != "" {
		msg = fmt.Sprintf("%s (%s)", msg, r)
	}
	m.status, m.statusErr = msg, true
}

// reselect rebuilds the row order after items changed, keeping the cursor
// on the same item when it still exists.
func (m *TimelineModel) reselect() {
	id := m.selected()
	m.IDs = m.rowOrder()
	if i := slices.Index(m.IDs, id); i >= 0 {
		m.Cursor = i
	} else {
		m.Cursor = min(m.Cursor, max(len(m.IDs)-1, 0))
	}
	m.scrollToCursor()
}

func (m *TimelineModel) scrollToCursor() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m TimelineModel) View() string {
	var b strings.Builder

	sc := m.sess.Scale()
	b.WriteString(StyleTitle.Render("Timeline"))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s · %s", sc.Granularity, m.Mode)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ select  ←/→ drag  m mode  ⏎ commit  esc cancel  +/- zoom  r reload  q quit"))
	b.WriteString("\n\n")

	var hl []string
	if id := m.selected(); id != "" {
		hl = append(hl, id)
	}
	scene := m.sess.Scene(m.ctx, render.Viewport{}, render.WithHighlight(hl...))
	b.WriteString(chartStyle.Render(sink.Text(scene, m.Width)))
	b.WriteString("\n")
	b.WriteString(m.itemTable())
	b.WriteString("\n")

	switch {
	case m.status == "":
	case m.statusErr:
		b.WriteString(styleIconError.Render(iconError) + " " + StyleWarning.Render(m.status))
	default:
		b.WriteString(styleIconInfo.Render(iconInfo) + " " + m.status)
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.IDs)), len(m.IDs))))
	return b.String()
}

// itemTable renders the visible window of items with their gesture state.
func (m TimelineModel) itemTable() string {
	items := make(map[string]timeline.Item)
	for _, it := range m.sess.Items() {
		items[it.ID] = it
	}
	ctrl := m.sess.Controller()

	end := min(m.Offset+m.Height, len(m.IDs))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		it := items[m.IDs[i]]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		group := it.Group
		if group == "" {
			group = "-"
		}
		rows = append(rows, []string{cursor, it.ID, it.Name,
			it.Start.Format(dateLayout), it.End.Format(dateLayout), group, ctrl.State(it.ID).String()})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Name", "Start", "End", "Group", "State").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.IDs) {
				return lipgloss.NewStyle()
			}
			if idx == m.Cursor {
				if ctrl.State(m.IDs[idx]).Active() {
					return listSelectedStyle.Foreground(colorYellow)
				}
				return listSelectedStyle
			}
			if col >= 3 {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

// byRow orders bars top to bottom, then left to right.
func byRow(a, b rowKey) int {
	if c := cmp.Compare(a.row, b.row); c != 0 {
		return c
	}
	return cmp.Compare(a.x, b.x)
}

type rowKey struct {
	id  string
	row int
	x   float64
}
