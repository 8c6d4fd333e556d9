package timeline

import (
	"iter"
	"slices"
	"sync"
)

// Model is an insertion-ordered mapping from item id to [Item].
//
// The zero value is not usable; create models with [NewModel].
// Model is safe for concurrent use.
type Model struct {
	mu    sync.RWMutex
	items map[string]Item
	order []string
}

// NewModel creates a model pre-populated with items. It fails on the first
// invalid item and returns no model in that case.
func NewModel(items ...Item) (*Model, error) {
	m := &Model{items: make(map[string]Item, len(items))}
	for _, it := range items {
		if err := m.Upsert(it); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Upsert validates item and inserts it, replacing any entry with the same
// id. A replaced entry keeps its original insertion position.
//
// Invalid items are rejected with the validation error and the model is
// left unchanged.
func (m *Model) Upsert(item Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	item = item.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; !ok {
		m.order = append(m.order, item.ID)
	}
	m.items[item.ID] = item
	return nil
}

// Remove deletes the item with the given id and reports whether it existed.
func (m *Model) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return false
	}
	delete(m.items, id)
	if i := slices.Index(m.order, id); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	return true
}

// Get returns the item with the given id.
func (m *Model) Get(id string) (Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[id]
	if !ok {
		return Item{}, false
	}
	return it.Clone(), true
}

// Len returns the number of items.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// List returns a lazy sequence of items in insertion order. The sequence is
// restartable: each range over it walks a fresh snapshot.
func (m *Model) List() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range m.snapshot() {
			if !yield(it) {
				return
			}
		}
	}
}

// Items returns a snapshot of all items in insertion order.
func (m *Model) Items() []Item {
	return m.snapshot()
}

// IDs returns the item ids in insertion order.
func (m *Model) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

func (m *Model) snapshot() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Item, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id].Clone())
	}
	return out
}
