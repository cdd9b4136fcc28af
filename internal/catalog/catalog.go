// Package catalog provides the read-only product catalog snapshot and
// keyword retrieval used to ground assistant replies.
//
// DESIGN: A Snapshot is immutable for the lifetime of a process reload, so
// any number of sessions may rank against it concurrently without locking.
// The engine never mutates catalog data; it only reads a snapshot produced
// by the storefront's catalog service.
package catalog

// Item is a read-only view of one catalog product.
type Item struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	PriceMin int64  `json:"price"` // minor currency units (cents)
	Category string `json:"category"`
	Brand    string `json:"brand"`
}

// Snapshot is an immutable set of catalog items.
type Snapshot struct {
	items []Item
}

// NewSnapshot builds a snapshot from a fixed item list.
// The slice is copied; callers cannot mutate the snapshot afterwards.
func NewSnapshot(items []Item) *Snapshot {
	copied := make([]Item, len(items))
	copy(copied, items)
	return &Snapshot{items: copied}
}

// Len returns the number of items in the snapshot.
func (s *Snapshot) Len() int { return len(s.items) }

// Items returns a copy of all items.
func (s *Snapshot) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}
