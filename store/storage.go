package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/das-labor/panopticon-sub002/perr"
)

// Storage is the backing surface a save point flushes archives to: a triple
// store plus a content-addressed blob store. The core only depends on this
// interface (§4.8: "the concrete storage format is an external concern"); a
// GUI or CLI driver supplies whichever concrete Storage it wants (an RDF
// store, a SQL table, a flat file).
type Storage interface {
	Insert(t Triple) error
	Remove(t Triple) error
	Select(subject uuid.UUID) ([]Triple, error)

	PutBlob(id uuid.UUID, data []byte) error
	RemoveBlob(id uuid.UUID) error
	GetBlob(id uuid.UUID) ([]byte, bool, error)
}

// MemStorage is an in-process Storage backed by plain maps, grounded on the
// teacher's sparse map+mutex overlay pattern (jyane-jnes/nes/mapper2.go).
// It exists for tests and for callers that don't need persistence across
// process restarts.
type MemStorage struct {
	mu      sync.RWMutex
	triples map[uuid.UUID][]Triple
	blobs   map[uuid.UUID][]byte
}

// NewMemStorage creates an empty in-memory store.
func NewMemStorage() *MemStorage {
	return &MemStorage{triples: make(map[uuid.UUID][]Triple), blobs: make(map[uuid.UUID][]byte)}
}

func (s *MemStorage) Insert(t Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples[t.Subject] = append(s.triples[t.Subject], t)
	return nil
}

func (s *MemStorage) Remove(t Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.triples[t.Subject]
	out := ts[:0]
	for _, existing := range ts {
		if existing.Predicate == t.Predicate && existing.Object == t.Object {
			continue
		}
		out = append(out, existing)
	}
	s.triples[t.Subject] = out
	return nil
}

func (s *MemStorage) Select(subject uuid.UUID) ([]Triple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Triple, len(s.triples[subject]))
	copy(out, s.triples[subject])
	return out, nil
}

func (s *MemStorage) PutBlob(id uuid.UUID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[id] = cp
	return nil
}

func (s *MemStorage) RemoveBlob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	return nil
}

func (s *MemStorage) GetBlob(id uuid.UUID) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, true, nil
}

// applyArchive flushes an archive's triples and blobs into dst, surfacing
// the first failure as a StoreIOError.
func applyArchive(dst Storage, a Archive, remove bool) error {
	for _, t := range a.Triples {
		var err error
		if remove {
			err = dst.Remove(t)
		} else {
			err = dst.Insert(t)
		}
		if err != nil {
			return perr.Wrap(perr.StoreIOError, "flushing triple at save point", err)
		}
	}
	for id, data := range a.Blobs {
		var err error
		if remove {
			err = dst.RemoveBlob(id)
		} else {
			err = dst.PutBlob(id, data)
		}
		if err != nil {
			return perr.Wrap(perr.StoreIOError, "flushing blob at save point", err)
		}
	}
	return nil
}
