// Package ics is a host backed by an iCalendar file.
//
// Every VEVENT is an item: UID is the id, SUMMARY the name, DTSTART and
// DTEND the bounds, CATEGORIES the group and RELATED-TO the dependency
// links. SEQUENCE serves as the record version, as calendar clients
// already bump it on every change. A commit re-reads the file, checks the
// sequence, updates the event and atomically rewrites the file.
package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/charmbracelet/log"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/timeline"
)

const productID = "-//matzehuels//gantt//EN"

// Parse reads every VEVENT in r. Events without a UID or a start are
// skipped and reported through logger.
func Parse(r io.Reader, logger *log.Logger) ([]host.Record, error) {
	if logger == nil {
		logger = log.Default()
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "parse calendar")
	}
	var out []host.Record
	for _, ev := range cal.Events() {
		rec, err := decode(ev)
		if err != nil {
			logger.Warn("skipping vevent", "err", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func decode(ev *ical.VEvent) (host.Record, error) {
	var r host.Record
	uid := ev.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return r, errors.New("missing UID")
	}
	r.ID = uid.Value

	start, err := ev.GetStartAt()
	if err != nil {
		return r, fmt.Errorf("event %q: DTSTART: %w", r.ID, err)
	}
	end, err := ev.GetEndAt()
	if err != nil {
		end = start
	}
	r.Start, r.End = start, end

	if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil {
		r.Name = p.Value
	}
	if p := ev.GetProperty(ical.ComponentPropertyCategories); p != nil {
		r.Group, _, _ = strings.Cut(p.Value, ",")
	}
	for _, p := range ev.GetProperties(ical.ComponentPropertyRelatedTo) {
		if p.Value != "" {
			r.Links = append(r.Links, p.Value)
		}
	}
	if p := ev.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64); err == nil {
			r.Version = n
		}
	}
	return r, nil
}

// Encode writes records as a calendar.
func Encode(w io.Writer, recs []host.Record) error {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	now := time.Now().UTC()
	for _, r := range recs {
		ev := cal.AddEvent(r.ID)
		ev.SetDtStampTime(now)
		ev.SetSummary(r.Name)
		ev.SetStartAt(r.Start)
		ev.SetEndAt(r.End)
		if r.Group != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, r.Group)
		}
		for _, l := range r.Links {
			ev.AddProperty(ical.ComponentPropertyRelatedTo, l)
		}
		ev.SetProperty(ical.ComponentPropertySequence, strconv.FormatInt(r.Version, 10))
	}
	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// Store is an iCalendar file adapter.
type Store struct {
	mu       sync.Mutex
	path     string
	versions *host.Versions
	logger   *log.Logger
}

// New creates a store on path. The file is created empty if missing.
func New(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		var buf bytes.Buffer
		if err := Encode(&buf, nil); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("create calendar: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat calendar: %w", err)
	}
	return &Store{path: path, versions: host.NewVersions(), logger: logger}, nil
}

// Open is the ics driver. DSN is the calendar file path.
func Open(ctx context.Context, cfg host.Config) (host.Adapter, error) {
	if cfg.DSN == "" {
		return nil, gerrors.New(gerrors.ErrCodeInvalidConfig, "ics driver requires a dsn (calendar path)")
	}
	return New(cfg.DSN, cfg.Logger)
}

// LoadItems parses the file and remembers each event's SEQUENCE.
func (s *Store) LoadItems(ctx context.Context) ([]timeline.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}
	defer f.Close()

	recs, err := Parse(f, s.logger)
	if err != nil {
		return nil, err
	}
	items := make([]timeline.Item, 0, len(recs))
	for _, r := range recs {
		it := r.Item()
		if err := it.Validate(); err != nil {
			s.logger.Warn("skipping invalid event", "item", r.ID, "err", err)
			continue
		}
		s.versions.Remember(r.ID, r.Version)
		items = append(items, it)
	}
	return items, nil
}

// Commit rewrites the event's DTSTART and DTEND and bumps SEQUENCE.
// All-day events stay all-day.
func (s *Store) Commit(ctx context.Context, id string, start, end time.Time) error {
	if err := host.CheckBounds(id, start, end); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "read calendar")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "parse calendar")
	}

	var ev *ical.VEvent
	for _, e := range cal.Events() {
		if p := e.GetProperty(ical.ComponentPropertyUniqueId); p != nil && p.Value == id {
			ev = e
			break
		}
	}
	if ev == nil {
		return host.Missing(id)
	}
	current, _ := decode(ev)
	want, ok := s.versions.Expected(id)
	if !ok {
		want = current.Version
	}
	if want != current.Version {
		return host.Conflict(id, want, current.Version)
	}

	if allDay(ev) {
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(end)
	} else {
		ev.SetStartAt(start)
		ev.SetEndAt(end)
	}
	ev.SetProperty(ical.ComponentPropertySequence, strconv.FormatInt(want+1, 10))
	ev.SetProperty(ical.ComponentPropertyLastModified, time.Now().UTC().Format("20060102T150405Z"))

	if err := writeAtomic(s.path, []byte(cal.Serialize())); err != nil {
		return gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "write calendar")
	}
	s.versions.Remember(id, want+1)
	return nil
}

func allDay(ev *ical.VEvent) bool {
	p := ev.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gantt-*.ics")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ host.Adapter = (*Store)(nil)
