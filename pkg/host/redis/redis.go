// Package redis is a host backed by Redis hashes.
//
// Each record is a hash at <prefix>:item:<id> holding the mapped fields and
// a version counter. A sorted set at <prefix>:items scored by an insertion
// sequence keeps the load order. Commits run under WATCH so a write by
// another client between the version check and the update aborts the
// transaction.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/gantt/pkg/cache"
	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "gantt"

const versionField = "version"

// Store is a Redis-backed adapter.
type Store struct {
	client   *redis.Client
	prefix   string
	fields   host.FieldMap
	versions *host.Versions
	logger   *log.Logger
}

// New wraps an existing client. The store owns the client.
func New(client *redis.Client, prefix string, fields host.FieldMap, logger *log.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		client:   client,
		prefix:   prefix,
		fields:   fields.WithDefaults(),
		versions: host.NewVersions(),
		logger:   logger,
	}
}

// Open is the redis driver. DSN is the server address (host:port) or a
// redis:// URL.
func Open(ctx context.Context, cfg host.Config) (host.Adapter, error) {
	opts := &redis.Options{Addr: cfg.DSN}
	if u, err := redis.ParseURL(cfg.DSN); err == nil {
		opts = u
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "connect to redis %s", opts.Addr)
	}
	return New(client, cfg.Prefix, cfg.Fields, cfg.Logger), nil
}

// Close closes the client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) itemKey(id string) string { return s.prefix + ":item:" + id }
func (s *Store) indexKey() string         { return s.prefix + ":items" }
func (s *Store) seqKey() string           { return s.prefix + ":seq" }

// Put inserts or replaces a record, bumping its version. Records without
// an id get a random UUID.
func (s *Store) Put(ctx context.Context, r host.Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Item().Validate(); err != nil {
		return "", err
	}
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return "", err
	}

	f := s.fields
	values := []any{
		f.Name, r.Name,
		f.Start, formatTime(r.Start),
		f.End, formatTime(r.End),
	}
	if f.Group != "" {
		values = append(values, f.Group, r.Group)
	}
	if f.Links != "" {
		links, _ := json.Marshal(r.Links)
		values = append(values, f.Links, string(links))
	}

	key := s.itemKey(r.ID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, values...)
		p.HIncrBy(ctx, key, versionField, 1)
		p.ZAddNX(ctx, s.indexKey(), redis.Z{Score: float64(seq), Member: r.ID})
		return nil
	})
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// LoadItems reads every record in insertion order. Connection errors are
// retried with backoff.
func (s *Store) LoadItems(ctx context.Context) ([]timeline.Item, error) {
	var recs []host.Record
	err := cache.RetryWithBackoff(ctx, func() error {
		var err error
		recs, err = s.records(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return cache.Retryable(err)
		}
		return err
	})
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

func (s *Store) records(ctx context.Context) ([]host.Record, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, s.itemKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]host.Record, 0, len(ids))
	for i, id := range ids {
		h := cmds[i].Val()
		if len(h) == 0 {
			continue // index entry without a hash: deleted out of band
		}
		r, err := s.decode(id, h)
		if err != nil {
			s.logger.Warn("skipping undecodable record", "item", id, "err", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) decode(id string, h map[string]string) (host.Record, error) {
	f := s.fields
	r := host.Record{ID: id, Name: h[f.Name]}
	var err error
	if r.Start, err = parseTime(h[f.Start]); err != nil {
		return r, err
	}
	if r.End, err = parseTime(h[f.End]); err != nil {
		return r, err
	}
	if f.Group != "" {
		r.Group = h[f.Group]
	}
	if raw := h[f.Links]; f.Links != "" && raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Links); err != nil {
			return r, err
		}
	}
	r.Version, _ = strconv.ParseInt(h[versionField], 10, 64)
	return r, nil
}

// Commit writes new bounds under WATCH. A version mismatch or a write by
// another client during the transaction is a concurrent modification.
func (s *Store) Commit(ctx context.Context, id string, start, end time.Time) error {
	if err := host.CheckBounds(id, start, end); err != nil {
		return err
	}
	key := s.itemKey(id)
	var next int64

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, versionField).Result()
		if errors.Is(err, redis.Nil) {
			return host.Missing(id)
		}
		if err != nil {
			return err
		}
		current, _ := strconv.ParseInt(raw, 10, 64)
		want, ok := s.versions.Expected(id)
		if !ok {
			want = current
		}
		if want != current {
			return host.Conflict(id, want, current)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, s.fields.Start, formatTime(start), s.fields.End, formatTime(end))
			p.HIncrBy(ctx, key, versionField, 1)
			return nil
		})
		next = current + 1
		return err
	}, key)

	switch {
	case err == nil:
		s.versions.Remember(id, next)
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return gerrors.CommitFailed(gerrors.ReasonConcurrentModification, err, "item %q changed during commit", id)
	default:
		return gerrors.AsCommitFailure(err, id)
	}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

var _ host.Adapter = (*Store)(nil)
