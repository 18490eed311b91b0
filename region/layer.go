package region

import (
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/golang/glog"
	"github.com/google/uuid"
)

// LayerKind discriminates the five layer variants from §3.
type LayerKind int

const (
	AnonymousKind LayerKind = iota
	MutableKind
	MappingKind
	NullKind
	FileBackedKind
)

// Layer is one vertex of a region's layer graph: a source of bytes (or the
// explicit absence of bytes) covering some length. Layers never know their
// own placement in a region — that's the region's add() bookkeeping — they
// only know how to answer "what byte (if any) is at offset i".
type Layer interface {
	Kind() LayerKind
	Name() string
	Len() int64
	// At returns the tryte this layer alone holds at offset i. For a Mutable
	// layer, a Tryte with Ok == false means "pass through": Region.Read then
	// uses the root layer's tryte at the same region offset. Other layers
	// added beneath the mutable layer are not consulted.
	At(i int64) Tryte
}

// anonymousLayer holds opaque, immutable bytes — either freshly allocated
// (zeroed) space of a given length or a caller-supplied byte vector, mirroring
// the teacher's plain []byte-backed RAM (jyane-jnes/nes/ram.go) generalized to
// an arbitrary named span.
type anonymousLayer struct {
	name string
	data []byte
}

// NewAnonymousLayer wraps data as an opaque byte-vector layer.
func NewAnonymousLayer(name string, data []byte) Layer {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &anonymousLayer{name: name, data: cp}
}

// NewZeroLayer allocates length opaque zeroed bytes, e.g. for padding a
// region out to a fixed size.
func NewZeroLayer(name string, length int64) Layer {
	return &anonymousLayer{name: name, data: make([]byte, length)}
}

func (l *anonymousLayer) Kind() LayerKind { return AnonymousKind }
func (l *anonymousLayer) Name() string    { return l.name }
func (l *anonymousLayer) Len() int64      { return int64(len(l.data)) }
func (l *anonymousLayer) At(i int64) Tryte {
	if i < 0 || i >= int64(len(l.data)) {
		return Undefined
	}
	return Defined(l.data[i])
}

// mutableLayer is a sparse overlay: only the offsets explicitly Poke'd have
// a defined byte, everything else passes through to the region's root layer
// (see Region.Read),
// mirroring a bank-switch register write (jyane-jnes/nes/mapper2.go) without
// committing to a dense backing array.
type mutableLayer struct {
	name   string
	length int64
	mu     sync.RWMutex
	writes map[int64]byte
}

// NewMutableLayer creates a sparse patch layer of the given length.
func NewMutableLayer(name string, length int64) *mutableLayer {
	return &mutableLayer{name: name, length: length, writes: make(map[int64]byte)}
}

func (l *mutableLayer) Kind() LayerKind { return MutableKind }
func (l *mutableLayer) Name() string    { return l.name }
func (l *mutableLayer) Len() int64      { return l.length }

// Poke sets the byte at offset i, or clears it (passthrough) if ok is false.
func (l *mutableLayer) Poke(i int64, b byte, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok {
		l.writes[i] = b
	} else {
		delete(l.writes, i)
	}
}

func (l *mutableLayer) At(i int64) Tryte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= l.length {
		return Undefined
	}
	if b, ok := l.writes[i]; ok {
		return Defined(b)
	}
	return Undefined // signals "pass through" to Region.Read
}

// mappingLayer composes a byte->byte transform lazily over whatever lies
// beneath it in the same region, e.g. a simple XOR- or compression-style
// obfuscation pass. Like mutableLayer's passthrough, the function is applied
// each time At is called, not materialized eagerly (§9 "Lazy slab").
type mappingLayer struct {
	name   string
	length int64
	fn     func(byte) byte
	under  func(i int64) Tryte // the layer beneath, bound at construction time
}

// NewMappingLayer builds a byte->byte transform layer of the given length,
// applying fn to whatever tryte `under` produces at each offset.
func NewMappingLayer(name string, length int64, fn func(byte) byte, under func(i int64) Tryte) Layer {
	return &mappingLayer{name: name, length: length, fn: fn, under: under}
}

func (l *mappingLayer) Kind() LayerKind { return MappingKind }
func (l *mappingLayer) Name() string    { return l.name }
func (l *mappingLayer) Len() int64      { return l.length }
func (l *mappingLayer) At(i int64) Tryte {
	if i < 0 || i >= l.length {
		return Undefined
	}
	t := l.under(i)
	if !t.Ok {
		return t
	}
	return Defined(l.fn(t.B))
}

// nullLayer is all-undefined, used to blank out a range of a region (e.g.
// the unmapped I/O window in a CPU bus map).
type nullLayer struct {
	name   string
	length int64
}

// NewNullLayer creates a layer of the given length whose every tryte is
// undefined.
func NewNullLayer(name string, length int64) Layer {
	return &nullLayer{name: name, length: length}
}

func (l *nullLayer) Kind() LayerKind  { return NullKind }
func (l *nullLayer) Name() string     { return l.name }
func (l *nullLayer) Len() int64       { return l.length }
func (l *nullLayer) At(i int64) Tryte { return Undefined }

// fileLayer is a memory-mapped file identified by a content-address UUID.
// Mapping is lazy: the file is only mmap'd on the first Len or At call.
type fileLayer struct {
	name string
	id   uuid.UUID
	path string

	once    sync.Once
	mapErr  error
	handle  mmap.MMap
	openedF *os.File
}

// NewFileLayer describes (without yet opening) a memory-mapped blob layer
// backed by the file at path, content-identified by id.
func NewFileLayer(name string, id uuid.UUID, path string) Layer {
	return &fileLayer{name: name, id: id, path: path}
}

func (l *fileLayer) Kind() LayerKind { return FileBackedKind }
func (l *fileLayer) Name() string    { return l.name }

func (l *fileLayer) ensureMapped() {
	l.once.Do(func() {
		f, err := os.Open(l.path)
		if err != nil {
			l.mapErr = fmt.Errorf("file-backed layer %s (uuid %s): %w", l.name, l.id, err)
			glog.Errorf("region: failed to open blob %s: %v", l.path, err)
			return
		}
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			l.mapErr = fmt.Errorf("file-backed layer %s (uuid %s): %w", l.name, l.id, err)
			glog.Errorf("region: failed to mmap blob %s: %v", l.path, err)
			return
		}
		l.openedF = f
		l.handle = m
	})
}

func (l *fileLayer) Len() int64 {
	l.ensureMapped()
	if l.mapErr != nil {
		return 0
	}
	return int64(len(l.handle))
}

func (l *fileLayer) At(i int64) Tryte {
	l.ensureMapped()
	if l.mapErr != nil || i < 0 || i >= int64(len(l.handle)) {
		return Undefined
	}
	return Defined(l.handle[i])
}

// Close unmaps the backing file, if it was ever mapped.
func (l *fileLayer) Close() error {
	if l.handle != nil {
		if err := l.handle.Unmap(); err != nil {
			return err
		}
	}
	if l.openedF != nil {
		return l.openedF.Close()
	}
	return nil
}

// UUID returns the file-backed layer's content-address identity.
func (l *fileLayer) UUID() uuid.UUID { return l.id }
