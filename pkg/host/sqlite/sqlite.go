// Package sqlite is a host backed by a SQLite database.
//
// Records live in one table (default gantt_records) with an id primary
// key, an insertion sequence, the mapped attribute columns and a version
// counter. Commits are a version-guarded UPDATE inside a transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "gantt_records"

// Store is a SQLite-backed adapter.
type Store struct {
	db       *sql.DB
	mu       sync.Mutex
	table    string
	fields   host.FieldMap
	versions *host.Versions
	logger   *log.Logger
}

// New opens (and creates if needed) the database at path.
func New(path string, table string, fields host.FieldMap, logger *log.Logger) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !host.IsIdentifier(table) {
		return nil, gerrors.New(gerrors.ErrCodeInvalidConfig, "table %q is not a valid identifier", table)
	}
	fields = fields.WithDefaults()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, table: table, fields: fields, versions: host.NewVersions(), logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Open is the sqlite driver.
func Open(ctx context.Context, cfg host.Config) (host.Adapter, error) {
	if cfg.DSN == "" {
		return nil, gerrors.New(gerrors.ErrCodeInvalidConfig, "sqlite driver requires a dsn (database path)")
	}
	return New(cfg.DSN, cfg.Table, cfg.Fields, cfg.Logger)
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	f := s.fields
	cols := []string{
		"id TEXT PRIMARY KEY",
		"seq INTEGER NOT NULL",
		f.Name + " TEXT NOT NULL DEFAULT ''",
		f.Start + " TEXT NOT NULL",
		f.End + " TEXT NOT NULL",
	}
	if f.Group != "" {
		cols = append(cols, f.Group+" TEXT NOT NULL DEFAULT ''")
	}
	if f.Links != "" {
		cols = append(cols, f.Links+" TEXT NOT NULL DEFAULT '[]'")
	}
	cols = append(cols, "version INTEGER NOT NULL DEFAULT 1")

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		%[2]s
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_seq ON %[1]s(seq);
	`, s.table, strings.Join(cols, ",\n\t\t"))

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) columns() []string {
	f := s.fields
	cols := []string{"id", f.Name, f.Start, f.End}
	if f.Group != "" {
		cols = append(cols, f.Group)
	}
	if f.Links != "" {
		cols = append(cols, f.Links)
	}
	return append(cols, "version")
}

// Put inserts or replaces a record. Records without an id get a random
// UUID. Replacing bumps the stored version, as any other writer would.
// It returns the record id.
func (s *Store) Put(ctx context.Context, r host.Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Item().Validate(); err != nil {
		return "", err
	}
	links, err := json.Marshal(r.Links)
	if err != nil {
		return "", err
	}
	if r.Links == nil {
		links = []byte("[]")
	}

	f := s.fields
	cols := []string{"id", "seq", f.Name, f.Start, f.End}
	args := []any{r.ID, r.Name, formatTime(r.Start), formatTime(r.End)}
	set := []string{
		fmt.Sprintf("%[1]s = excluded.%[1]s", f.Name),
		fmt.Sprintf("%[1]s = excluded.%[1]s", f.Start),
		fmt.Sprintf("%[1]s = excluded.%[1]s", f.End),
	}
	if f.Group != "" {
		cols = append(cols, f.Group)
		args = append(args, r.Group)
		set = append(set, fmt.Sprintf("%[1]s = excluded.%[1]s", f.Group))
	}
	if f.Links != "" {
		cols = append(cols, f.Links)
		args = append(args, string(links))
		set = append(set, fmt.Sprintf("%[1]s = excluded.%[1]s", f.Links))
	}
	set = append(set, "version = "+s.table+".version + 1")

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	placeholders[1] = fmt.Sprintf("(SELECT COALESCE(MAX(seq), 0) + 1 FROM %s)", s.table)

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s`,
		s.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(set, ", "))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to upsert record: %w", err)
	}
	return r.ID, nil
}

// Records returns every stored record in insertion order.
func (s *Store) Records(ctx context.Context) ([]host.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY seq ASC`, strings.Join(s.columns(), ", "), s.table)

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []host.Record
	for rows.Next() {
		var (
			r          host.Record
			start, end string
			links      string
		)
		dest := []any{&r.ID, &r.Name, &start, &end}
		if s.fields.Group != "" {
			dest = append(dest, &r.Group)
		}
		if s.fields.Links != "" {
			dest = append(dest, &links)
		}
		dest = append(dest, &r.Version)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if r.Start, err = parseTime(start); err != nil {
			s.logger.Warn("skipping record with bad start", "item", r.ID, "value", start)
			continue
		}
		if r.End, err = parseTime(end); err != nil {
			s.logger.Warn("skipping record with bad end", "item", r.ID, "value", end)
			continue
		}
		if links != "" {
			if err := json.Unmarshal([]byte(links), &r.Links); err != nil {
				s.logger.Warn("ignoring malformed links", "item", r.ID, "err", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadItems returns all valid items and remembers their versions.
func (s *Store) LoadItems(ctx context.Context) ([]timeline.Item, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]timeline.Item, 0, len(recs))
	for _, r := range recs {
		it := r.Item()
		if err := it.Validate(); err != nil {
			s.logger.Warn("skipping invalid record", "item", r.ID, "err", err)
			continue
		}
		s.versions.Remember(r.ID, r.Version)
		items = append(items, it)
	}
	return items, nil
}

// Commit writes new bounds if the stored version matches the loaded one.
func (s *Store) Commit(ctx context.Context, id string, start, end time.Time) error {
	if err := host.CheckBounds(id, start, end); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "begin transaction")
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT version FROM %s WHERE id = ?`, s.table), id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return host.Missing(id)
	}
	if err != nil {
		return gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "read version of %q", id)
	}
	want, ok := s.versions.Expected(id)
	if !ok {
		want = current
	}
	if want != current {
		return host.Conflict(id, want, current)
	}

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ?, version = version + 1 WHERE id = ? AND version = ?`,
			s.table, s.fields.Start, s.fields.End),
		formatTime(start), formatTime(end), id, want)
	if err != nil {
		return gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "update %q", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return host.Conflict(id, want, current)
	}
	if err := tx.Commit(); err != nil {
		return gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "commit %q", id)
	}
	s.versions.Remember(id, want+1)
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

var _ host.Adapter = (*Store)(nil)
