// Package mongo is a host backed by a MongoDB collection.
//
// Each record is one document keyed by _id, holding the mapped fields, an
// insertion sequence and a version. Commits are a single UpdateOne filtered
// on both _id and the loaded version, so a concurrent write makes the
// filter miss and the commit is reported as a concurrent modification.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/gantt/pkg/cache"
	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// Defaults used when the config leaves them empty.
const (
	DefaultDatabase   = "gantt"
	DefaultCollection = "records"
)

const (
	seqField     = "seq"
	versionField = "version"
)

// Store is a MongoDB-backed adapter.
type Store struct {
	client   *mongo.Client
	coll     *mongo.Collection
	fields   host.FieldMap
	versions *host.Versions
	logger   *log.Logger
}

// New wraps a connected client. The store owns the client.
func New(client *mongo.Client, database, collection string, fields host.FieldMap, logger *log.Logger) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		client:   client,
		coll:     client.Database(database).Collection(collection),
		fields:   fields.WithDefaults(),
		versions: host.NewVersions(),
		logger:   logger,
	}
}

// Open is the mongo driver. DSN is a mongodb:// connection URI.
func Open(ctx context.Context, cfg host.Config) (host.Adapter, error) {
	uri := cfg.DSN
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(5*time.Second))
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "ping mongo")
	}
	return New(client, cfg.Database, cfg.Collection, cfg.Fields, cfg.Logger), nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Collection exposes the underlying collection.
func (s *Store) Collection() *mongo.Collection { return s.coll }

// Put inserts or replaces a record, bumping its version. Records without
// an id get a random UUID.
func (s *Store) Put(ctx context.Context, r host.Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Item().Validate(); err != nil {
		return "", err
	}
	f := s.fields
	set := bson.M{f.Name: r.Name, f.Start: r.Start.UTC(), f.End: r.End.UTC()}
	if f.Group != "" {
		set[f.Group] = r.Group
	}
	if f.Links != "" {
		links := r.Links
		if links == nil {
			links = []string{}
		}
		set[f.Links] = links
	}
	update := bson.M{
		"$set":         set,
		"$inc":         bson.M{versionField: int64(1)},
		"$setOnInsert": bson.M{seqField: time.Now().UnixNano()},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": r.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("upsert record: %w", err)
	}
	return r.ID, nil
}

// LoadItems reads every document ordered by insertion sequence.
func (s *Store) LoadItems(ctx context.Context) ([]timeline.Item, error) {
	var docs []bson.M
	err := cache.RetryWithBackoff(ctx, func() error {
		cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: seqField, Value: 1}}))
		if err != nil {
			if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
				return cache.Retryable(err)
			}
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	items := make([]timeline.Item, 0, len(docs))
	for _, d := range docs {
		r, err := s.decode(d)
		if err == nil {
			err = r.Item().Validate()
		}
		if err != nil {
			s.logger.Warn("skipping invalid record", "item", d["_id"], "err", err)
			continue
		}
		s.versions.Remember(r.ID, r.Version)
		items = append(items, r.Item())
	}
	return items, nil
}

func (s *Store) decode(d bson.M) (host.Record, error) {
	f := s.fields
	var r host.Record
	id, ok := d["_id"].(string)
	if !ok {
		return r, fmt.Errorf("_id %v is not a string", d["_id"])
	}
	r.ID = id
	r.Name, _ = d[f.Name].(string)

	var err error
	if r.Start, err = asTime(d[f.Start]); err != nil {
		return r, fmt.Errorf("%s: %w", f.Start, err)
	}
	if r.End, err = asTime(d[f.End]); err != nil {
		return r, fmt.Errorf("%s: %w", f.End, err)
	}
	if f.Group != "" {
		r.Group, _ = d[f.Group].(string)
	}
	if arr, ok := d[f.Links].(bson.A); ok && f.Links != "" {
		for _, v := range arr {
			if link, ok := v.(string); ok {
				r.Links = append(r.Links, link)
			}
		}
	}
	r.Version = asInt64(d[versionField])
	return r, nil
}

// Commit updates the bounds with a filter on the loaded version.
func (s *Store) Commit(ctx context.Context, id string, start, end time.Time) error {
	if err := host.CheckBounds(id, start, end); err != nil {
		return err
	}
	want, ok := s.versions.Expected(id)
	if !ok {
		current, err := s.version(ctx, id)
		if err != nil {
			return err
		}
		want = current
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, versionField: want},
		bson.M{
			"$set": bson.M{s.fields.Start: start.UTC(), s.fields.End: end.UTC()},
			"$inc": bson.M{versionField: int64(1)},
		})
	if err != nil {
		return gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "update %q", id)
	}
	if res.MatchedCount == 0 {
		current, err := s.version(ctx, id)
		if err != nil {
			return err
		}
		return host.Conflict(id, want, current)
	}
	s.versions.Remember(id, want+1)
	return nil
}

func (s *Store) version(ctx context.Context, id string) (int64, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{versionField: 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, host.Missing(id)
	}
	if err != nil {
		return 0, gerrors.CommitFailed(gerrors.ReasonTransportFailure, err, "read version of %q", id)
	}
	return asInt64(doc[versionField]), nil
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC(), nil
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

var _ host.Adapter = (*Store)(nil)
