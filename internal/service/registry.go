package service

import "sync"

// Registry is an insertion-ordered, concurrency-safe collection of records
// keyed by id. Records go in and come out as copies.
type Registry[T any] struct {
	mu    sync.RWMutex
	order []string
	items map[string]T

	id    func(T) string
	clone func(T) T
}

// NewRegistry creates a registry. id extracts a record's key and clone
// copies a record; a nil clone means T is copied by value.
func NewRegistry[T any](id func(T) string, clone func(T) T) *Registry[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Registry[T]{
		items: make(map[string]T),
		id:    id,
		clone: clone,
	}
}

// List returns the records matching pred in insertion order. A nil pred
// matches everything.
func (r *Registry[T]) List(pred func(T) bool) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		v := r.items[id]
		if pred == nil || pred(v) {
			out = append(out, r.clone(v))
		}
	}
	return out
}

// Len returns the number of records.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Get returns the record with id.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.items[id]
	if !ok {
		var zero T
		return zero, ErrRecordNotFound
	}
	return r.clone(v), nil
}

// Create appends v.
func (r *Registry[T]) Create(v T) error {
	id := r.id(v)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; ok {
		return ErrDuplicateRecord
	}
	r.items[id] = r.clone(v)
	r.order = append(r.order, id)
	return nil
}

// Update applies fn to a copy of the record with id and stores the result
// if fn returns nil. The id cannot change.
func (r *Registry[T]) Update(id string, fn func(*T) error) (T, error) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[id]
	if !ok {
		return zero, ErrRecordNotFound
	}
	next := r.clone(cur)
	if err := fn(&next); err != nil {
		return zero, err
	}
	if r.id(next) != id {
		return zero, ErrInvalidInput
	}
	r.items[id] = next
	return r.clone(next), nil
}

// Delete removes the record with id.
func (r *Registry[T]) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrRecordNotFound
	}
	delete(r.items, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
