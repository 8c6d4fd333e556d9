package view

import (
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/host"
)

// TypeGantt is the view type installed by [RegisterDefaults].
const TypeGantt = "gantt"

// Factory creates a session for one view type.
type Factory func(cfg Config, adapter host.Adapter, opts ...Option) (*Session, error)

// Registry maps view type names to factories. Applications create one at
// startup and register types explicitly; nothing registers itself.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a view type. Registering a name twice is an error.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return errors.New(errors.ErrCodeInvalidInput, "view type needs a name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return errors.New(errors.ErrCodeInvalidConfig, "view type %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Open creates a session of the named type. It does not load items; call
// [Session.Open] for that.
func (r *Registry) Open(name string, cfg Config, adapter host.Adapter, opts ...Option) (*Session, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "unknown view type %q (registered: %v)", name, r.Names())
	}
	return f(cfg, adapter, opts...)
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// RegisterDefaults installs the built-in gantt view type.
func RegisterDefaults(r *Registry) error {
	return r.Register(TypeGantt, NewSession)
}
