package region

import (
	"fmt"
	"sort"
	"sync"

	"github.com/das-labor/panopticon-sub002/perr"
)

// Range is a half-open byte range [Begin, End).
type Range struct {
	Begin, End int64
}

// Len returns the range's length in bytes.
func (r Range) Len() int64 { return r.End - r.Begin }

// Empty reports whether the range contains no bytes.
func (r Range) Empty() bool { return r.End <= r.Begin }

// Overlaps reports whether r and o share at least one byte.
func (r Range) Overlaps(o Range) bool { return r.Begin < o.End && o.Begin < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Begin, r.End) }

// overlay is one (range, layer) edge added to a region via Add: "this child
// layer occupies this range of the parent" (§3).
type overlay struct {
	seq   int // insertion order, for tie-breaking ("later wins")
	rng   Range
	layer Layer
}

// Region presents an addressable byte-sequence abstraction over a DAG of
// layers rooted at a single known-length layer (§4.1). Regions are safe for
// concurrent Add/Read/Flatten calls; the projection and slab are memoized
// under an internal lock and invalidated on Add, per §5's "Layer caches"
// rule.
type Region struct {
	name string
	root Layer

	mu       sync.Mutex
	overlays []overlay
	nextSeq  int

	// memoized projection/slab, invalidated whenever overlays changes.
	projValid bool
	proj      []Segment
	slabValid bool
	slab      Slab
}

// Segment is one entry of a region's projection: a byte range and the layer
// that is visible (topmost) over that range.
type Segment struct {
	Range Range
	Layer Layer
}

// New creates a region named name whose root layer is root. The region's
// length is root.Len().
func New(name string, root Layer) *Region {
	return &Region{name: name, root: root}
}

// Name returns the region's name.
func (r *Region) Name() string { return r.name }

// Len returns the region's length, i.e. its root layer's length.
func (r *Region) Len() int64 { return r.root.Len() }

// Root returns the region's root layer.
func (r *Region) Root() Layer { return r.root }

// Add overlays layer over the region within rng, per §4.1: "range must lie
// within the region's length; overlapping adds are allowed and the later
// one wins in projection."
func (r *Region) Add(rng Range, layer Layer) error {
	if rng.Begin < 0 || rng.End > r.Len() || rng.Empty() {
		return perr.New(perr.StoreIOError, fmt.Sprintf("region %s: add range %s out of bounds [0,%d)", r.name, rng, r.Len()))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlays = append(r.overlays, overlay{seq: r.nextSeq, rng: rng, layer: layer})
	r.nextSeq++
	r.projValid = false
	r.slabValid = false
	return nil
}

// Flatten computes the projection: a non-overlapping partition of
// [0, length) attributing each byte to the topmost covering layer, per
// §4.1's split-interval-map algorithm. Ties resolve by insertion order
// (later wins).
func (r *Region) Flatten() []Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flattenLocked()
}

func (r *Region) flattenLocked() []Segment {
	if r.projValid {
		return r.proj
	}
	length := r.Len()
	if length <= 0 {
		r.proj = nil
		r.projValid = true
		return nil
	}

	// Start with a single interval [0,length) -> root, then for each
	// overlay (in insertion order) subtract its range from existing
	// intervals and insert range -> layer, exactly as §4.1 describes.
	type interval struct {
		rng   Range
		layer Layer // nil means root
	}
	intervals := []interval{{rng: Range{0, length}, layer: nil}}

	for i := range r.overlays {
		ov := &r.overlays[i]
		var next []interval
		for _, iv := range intervals {
			if !iv.rng.Overlaps(ov.rng) {
				next = append(next, iv)
				continue
			}
			// left remainder
			if iv.rng.Begin < ov.rng.Begin {
				next = append(next, interval{rng: Range{iv.rng.Begin, ov.rng.Begin}, layer: iv.layer})
			}
			// right remainder
			if iv.rng.End > ov.rng.End {
				next = append(next, interval{rng: Range{ov.rng.End, iv.rng.End}, layer: iv.layer})
			}
		}
		intervals = next
		intervals = append(intervals, interval{rng: ov.rng, layer: ov.layer})
	}

	sort.Slice(intervals, func(i, j int) bool { return intervals[i].rng.Begin < intervals[j].rng.Begin })

	segs := make([]Segment, 0, len(intervals))
	for _, iv := range intervals {
		if iv.rng.Empty() {
			continue
		}
		l := iv.layer
		if l == nil {
			l = r.root
		}
		segs = append(segs, Segment{Range: iv.rng, Layer: l})
	}
	r.proj = segs
	r.projValid = true
	return segs
}

// Read produces the flattened slab view of the region (§4.1's "read() ->
// slab"). Mutable layers whose tryte at an offset is undefined pass through
// to the root layer at that same offset, per §3's layer rules.
func (r *Region) Read() Slab {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slabValid {
		return r.slab
	}
	segs := r.flattenLocked()
	root := r.root
	s := Empty()
	for _, seg := range segs {
		seg := seg
		length := seg.Range.Len()
		layer := seg.Layer
		// base is seg's start in layer's own offsets: the region offset for
		// the root, the offset into the overlay otherwise. The overlay that is
		// topmost over seg is the latest one that covers all of it.
		base := seg.Range.Begin
		for k := len(r.overlays) - 1; k >= 0; k-- {
			if ov := r.overlays[k]; ov.rng.Begin <= seg.Range.Begin && seg.Range.End <= ov.rng.End {
				base -= ov.rng.Begin
				break
			}
		}
		s = Combine(s, FromFunc(length, func(i int64) Tryte {
			t := layer.At(base + i)
			if !t.Ok && layer.Kind() == MutableKind && layer != root {
				return root.At(seg.Range.Begin + i)
			}
			return t
		}))
	}
	r.slab = s
	r.slabValid = true
	return s
}
