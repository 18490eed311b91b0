package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/das-labor/panopticon-sub002/perr"
)

type widget struct {
	Name  string
	Count int
}

func marshalWidget(id uuid.UUID, w *widget) (Archive, error) {
	return Archive{
		Triples: []Triple{
			{Subject: id, Predicate: "name", Object: Lit(w.Name)},
			{Subject: id, Predicate: "count", Object: Lit(fmt.Sprint(w.Count))},
		},
	}, nil
}

func unmarshalWidget(id uuid.UUID, s Storage) (*widget, error) {
	triples, err := s.Select(id)
	if err != nil {
		return nil, err
	}
	w := &widget{}
	for _, t := range triples {
		switch t.Predicate {
		case "name":
			w.Name = t.Object.Value
		case "count":
			fmt.Sscan(t.Object.Value, &w.Count)
		}
	}
	return w, nil
}

func TestHandleWriteThenSavePoint(t *testing.T) {
	s := New()
	backing := NewMemStorage()
	h := NewHandle(s, &widget{Name: "alpha", Count: 1}, marshalWidget, unmarshalWidget)

	if got, err := h.Read(); err != nil || got.Name != "alpha" {
		t.Fatalf("Read() = %+v, %v", got, err)
	}

	w, err := h.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Count = 2

	if s.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", s.Pending())
	}

	if err := s.SavePoint(backing); err != nil {
		t.Fatalf("SavePoint: %v", err)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() after save = %d, want 0", s.Pending())
	}

	reopened := Open[widget](New(), backing, h.UUID(), marshalWidget, unmarshalWidget)
	got, err := reopened.Read()
	if err != nil {
		t.Fatalf("reopened Read: %v", err)
	}
	if got.Name != "alpha" || got.Count != 2 {
		t.Errorf("reopened = %+v, want {alpha 2}", got)
	}
}

func TestDiscardChangesDropsDirtyWithoutTouchingStorage(t *testing.T) {
	s := New()
	backing := NewMemStorage()
	h := NewHandle(s, &widget{Name: "beta", Count: 5}, marshalWidget, unmarshalWidget)
	if err := s.SavePoint(backing); err != nil {
		t.Fatalf("initial SavePoint: %v", err)
	}

	w, err := h.Write()
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.Count = 99

	s.DiscardChanges()
	if s.Pending() != 0 {
		t.Errorf("Pending() after discard = %d, want 0", s.Pending())
	}
	// The live object itself was already mutated and discard does not
	// roll that back (only pending storage writes are dropped).
	got, _ := h.Read()
	if got.Count != 99 {
		t.Errorf("Read().Count = %d, want 99 (discard must not rewind live state)", got.Count)
	}

	reopened := Open[widget](New(), backing, h.UUID(), marshalWidget, unmarshalWidget)
	gotBacking, err := reopened.Read()
	if err != nil {
		t.Fatalf("reopened Read: %v", err)
	}
	if gotBacking.Count != 5 {
		t.Errorf("backing storage Count = %d, want 5 (discarded write must not reach storage)", gotBacking.Count)
	}
}

func TestRemoveTombstonesAndExpiresWeakHandles(t *testing.T) {
	s := New()
	h := NewHandle(s, &widget{Name: "gamma"}, marshalWidget, unmarshalWidget)
	weak := h.Weak()

	if err := h.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := h.Read(); !errors.Is(err, perr.EntityRemoved) {
		t.Errorf("Read() after Remove: err=%v, want EntityRemoved", err)
	}
	if _, err := weak.Lock(); !errors.Is(err, perr.ExpiredWeakHandle) {
		t.Errorf("Lock() after Remove: err=%v, want ExpiredWeakHandle", err)
	}
}

func TestWeakHandleLocksWhileLive(t *testing.T) {
	s := New()
	h := NewHandle(s, &widget{Name: "delta"}, marshalWidget, unmarshalWidget)
	weak := h.Weak()

	locked, err := weak.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	got, err := locked.Read()
	if err != nil || got.Name != "delta" {
		t.Errorf("locked.Read() = %+v, %v", got, err)
	}
}

func TestOpenLazyLoadsFromStorage(t *testing.T) {
	s := New()
	backing := NewMemStorage()
	id := uuid.New()
	backing.Insert(Triple{Subject: id, Predicate: "name", Object: Lit("loaded-from-disk")})
	backing.Insert(Triple{Subject: id, Predicate: "count", Object: Lit("7")})

	h := Open[widget](s, backing, id, marshalWidget, unmarshalWidget)
	got, err := h.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Name != "loaded-from-disk" || got.Count != 7 {
		t.Errorf("Read() = %+v, want {loaded-from-disk 7}", got)
	}
}

func TestOpenWithoutStorageFailsToLoad(t *testing.T) {
	s := New()
	h := Open[widget](s, nil, uuid.New(), marshalWidget, unmarshalWidget)
	if _, err := h.Read(); !errors.Is(err, perr.StoreIOError) {
		t.Errorf("Read() without storage: err=%v, want StoreIOError", err)
	}
}
