package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/das-labor/panopticon-sub002/perr"
)

// Marshal turns a *T into its archive form, given the entity's own UUID to
// stamp as the subject of any triples it produces — mirroring the source's
// marshal(const T*, const uuid&) signature (panopticon/database.hh).
type Marshal[T any] func(id uuid.UUID, t *T) (Archive, error)

// Unmarshal reconstructs a *T from its stored triples, given the entity's
// own UUID (so e.g. a basic block can resolve its mnemonics by re-reading
// triples keyed on its own subject) and the backing Storage to query.
type Unmarshal[T any] func(id uuid.UUID, s Storage) (*T, error)

// controlBlock is the shared, type-erased-by-generics state behind both an
// owning Handle and any WeakHandle cut from it, mirroring loc_control<T> in
// the source: it remembers whether the object has been loaded yet and
// whether it has since been removed.
type controlBlock[T any] struct {
	mu        sync.Mutex
	object    *T
	loaded    bool
	removed   atomic.Bool
	marshal   Marshal[T]
	unmarshal Unmarshal[T]
	storage   Storage // nil if this handle only ever existed in memory
}

// Handle is an owning reference to a store entity, identified by a UUID
// that survives process restarts once flushed (§3 "Entities... identity").
type Handle[T any] struct {
	id    uuid.UUID
	store *Store
	cb    *controlBlock[T]
}

// NewHandle mints a new entity with a fresh UUID, already holding obj in
// memory, and stages its initial insertion in s's dirty set.
func NewHandle[T any](s *Store, obj *T, marshal Marshal[T], unmarshal Unmarshal[T]) Handle[T] {
	cb := &controlBlock[T]{object: obj, loaded: true, marshal: marshal, unmarshal: unmarshal}
	id := uuid.New()
	h := Handle[T]{id: id, store: s, cb: cb}
	after := func() (Archive, error) { return cb.marshal(id, cb.object) }
	before := func() (Archive, error) { return Archive{}, nil }
	s.markDirty(id, before, after)
	return h
}

// Open attaches a handle to an entity that may already exist in storage,
// identified by id. The object itself is not read until the first Read or
// Write call.
func Open[T any](s *Store, storage Storage, id uuid.UUID, marshal Marshal[T], unmarshal Unmarshal[T]) Handle[T] {
	cb := &controlBlock[T]{marshal: marshal, unmarshal: unmarshal, storage: storage}
	return Handle[T]{id: id, store: s, cb: cb}
}

// UUID returns the handle's durable identity.
func (h Handle[T]) UUID() uuid.UUID { return h.id }

func (cb *controlBlock[T]) ensureLoadedLocked(id uuid.UUID) error {
	if cb.removed.Load() {
		return perr.New(perr.EntityRemoved, fmt.Sprintf("entity %s was removed", id))
	}
	if cb.loaded {
		return nil
	}
	if cb.storage == nil {
		return perr.New(perr.StoreIOError, fmt.Sprintf("entity %s has no backing storage to load from", id))
	}
	obj, err := cb.unmarshal(id, cb.storage)
	if err != nil {
		return perr.Wrap(perr.StoreIOError, fmt.Sprintf("loading entity %s", id), err)
	}
	cb.object = obj
	cb.loaded = true
	return nil
}

// Read returns the entity's current in-memory state, lazily loading it from
// storage on first use (§4.8).
func (h Handle[T]) Read() (*T, error) {
	h.cb.mu.Lock()
	defer h.cb.mu.Unlock()
	if err := h.cb.ensureLoadedLocked(h.id); err != nil {
		return nil, err
	}
	return h.cb.object, nil
}

// Write returns the entity's mutable state and stages a dirty-set entry:
// the pre-image is a snapshot taken now, the post-image is marshaled lazily
// from the live object when a save point actually flushes (§4.8, §5).
func (h Handle[T]) Write() (*T, error) {
	h.cb.mu.Lock()
	defer h.cb.mu.Unlock()
	if err := h.cb.ensureLoadedLocked(h.id); err != nil {
		return nil, err
	}
	snapshot := *h.cb.object
	cb := h.cb
	id := h.id
	before := func() (Archive, error) { return cb.marshal(id, &snapshot) }
	after := func() (Archive, error) { return cb.marshal(id, cb.object) }
	h.store.markDirty(h.id, before, after)
	return h.cb.object, nil
}

// Remove tombstones the entity: a subsequent save point deletes its
// archive, and any handle or weak handle sharing this control block sees
// EntityRemoved from then on.
func (h Handle[T]) Remove() error {
	h.cb.mu.Lock()
	defer h.cb.mu.Unlock()
	if h.cb.removed.Load() {
		return nil
	}
	if err := h.cb.ensureLoadedLocked(h.id); err != nil {
		return err
	}
	snapshot := *h.cb.object
	cb := h.cb
	id := h.id
	before := func() (Archive, error) { return cb.marshal(id, &snapshot) }
	after := func() (Archive, error) { return Archive{}, nil }
	h.cb.removed.Store(true)
	h.cb.object = nil
	h.store.markDirty(h.id, before, after)
	return nil
}

// Weak cuts a weak reference to the same entity: it shares the control
// block but does not keep it reachable beyond ordinary Go garbage
// collection, and Lock reports ExpiredWeakHandle once the entity has been
// removed.
func (h Handle[T]) Weak() WeakHandle[T] {
	return WeakHandle[T]{id: h.id, store: h.store, cb: h.cb}
}

// WeakHandle is a non-owning reference to a store entity (§3, §4.8).
type WeakHandle[T any] struct {
	id    uuid.UUID
	store *Store
	cb    *controlBlock[T]
}

// UUID returns the referenced entity's identity.
func (w WeakHandle[T]) UUID() uuid.UUID { return w.id }

// Lock recovers an owning Handle if the entity has not been removed.
func (w WeakHandle[T]) Lock() (Handle[T], error) {
	if w.cb == nil || w.cb.removed.Load() {
		return Handle[T]{}, perr.New(perr.ExpiredWeakHandle, fmt.Sprintf("entity %s no longer exists", w.id))
	}
	return Handle[T]{id: w.id, store: w.store, cb: w.cb}, nil
}
