package store

import (
	"sync"

	"github.com/google/uuid"
)

// marshalFunc lazily produces an archive, matching the source's deferred
// marshal_poly closures (§4.8): the dirty set holds the intent to marshal,
// not the archive itself, so save_point sees each entity's state as of the
// flush rather than as of the write call.
type marshalFunc func() (Archive, error)

type dirtyEntry struct {
	before marshalFunc
	after  marshalFunc
}

// Store is the per-process (or per-test) journal of pending entity
// mutations described in §4.8 and the REDESIGN FLAGS' "global dirty set"
// note: rather than a package-level map guarded by a package-level mutex,
// every constructor and SavePoint take an explicit *Store.
type Store struct {
	mu    sync.Mutex
	dirty map[uuid.UUID]dirtyEntry
	order []uuid.UUID
}

// New creates an empty store.
func New() *Store {
	return &Store{dirty: make(map[uuid.UUID]dirtyEntry)}
}

// markDirty records one entity's pending mutation. If the entity already
// has a pending entry, its original "before" producer is kept — so that a
// chain of several writes between save points still undoes back to the
// state at the start of the chain, matching the source's loc.hh behavior.
func (s *Store) markDirty(id uuid.UUID, before, after marshalFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, exists := s.dirty[id]
	if exists {
		entry.after = after
	} else {
		entry = dirtyEntry{before: before, after: after}
		s.order = append(s.order, id)
	}
	s.dirty[id] = entry
}

// SavePoint applies every pending dirty entry to dst in insertion order:
// the pre-image archive's triples/blobs are removed, then the post-image
// archive's triples/blobs are inserted, and the dirty set is cleared
// (§4.8). A failure partway through leaves already-applied entries applied
// and the remaining ones still dirty, so a caller may retry.
func (s *Store) SavePoint(dst Storage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, id := range s.order {
		entry, ok := s.dirty[id]
		if !ok {
			continue
		}
		before, err := entry.before()
		if err != nil {
			return err
		}
		if err := applyArchive(dst, before, true); err != nil {
			return err
		}
		after, err := entry.after()
		if err != nil {
			return err
		}
		if err := applyArchive(dst, after, false); err != nil {
			return err
		}
		delete(s.dirty, id)
		applied++
	}
	s.order = s.order[:0]
	return nil
}

// DiscardChanges drops every pending dirty entry without touching the
// backing Storage (§4.8). In-memory object state is untouched too: the
// source's discard_changes only rewinds what would have been written, not
// live objects already mutated by Write.
func (s *Store) DiscardChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = make(map[uuid.UUID]dirtyEntry)
	s.order = s.order[:0]
}

// Pending reports how many entities currently have unsaved mutations.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}
