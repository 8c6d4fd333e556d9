package host

import (
	"context"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
)

// Config selects and configures a driver.
type Config struct {
	// Driver is the registered driver name (memory, sqlite, redis, mongo, ics).
	Driver string `json:"driver" toml:"driver" yaml:"driver"`

	// DSN locates the store: a file path for sqlite and ics, an address
	// for redis, a connection URI for mongo.
	DSN string `json:"dsn" toml:"dsn" yaml:"dsn"`

	// Database and Collection are used by the mongo driver.
	Database   string `json:"database,omitempty" toml:"database" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" toml:"collection" yaml:"collection,omitempty"`

	// Table is the sqlite table, Prefix the redis key prefix.
	Table  string `json:"table,omitempty" toml:"table" yaml:"table,omitempty"`
	Prefix string `json:"prefix,omitempty" toml:"prefix" yaml:"prefix,omitempty"`

	Fields FieldMap `json:"fields" toml:"fields" yaml:"fields"`

	// Logger receives driver diagnostics. Nil uses the default logger.
	Logger *log.Logger `json:"-" toml:"-" yaml:"-"`
}

// Opener constructs an adapter from cfg.
type Opener func(ctx context.Context, cfg Config) (Adapter, error)

// Drivers maps driver names to constructors.
type Drivers map[string]Opener

// Names returns the registered driver names, sorted.
func (d Drivers) Names() []string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Open validates cfg and calls the matching driver.
func (d Drivers) Open(ctx context.Context, cfg Config) (Adapter, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Driver))
	open, ok := d[name]
	if !ok {
		return nil, gerrors.New(gerrors.ErrCodeInvalidConfig,
			"unknown host driver %q (available: %s)", cfg.Driver, strings.Join(d.Names(), ", "))
	}
	cfg.Driver = name
	cfg.Fields = cfg.Fields.WithDefaults()
	if err := cfg.Fields.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return open(ctx, cfg)
}
