package region

import "sort"

// Tryte is an optional byte: the "undefined at this offset" marker described
// in §3 and the GLOSSARY.
type Tryte struct {
	Ok bool
	B  byte
}

// Undefined is the zero Tryte.
var Undefined = Tryte{}

// Defined wraps b as a present Tryte.
func Defined(b byte) Tryte { return Tryte{Ok: true, B: b} }

// segment is one contiguous run of a Slab backed by a random-access
// function; segments are concatenated by Combine and searched by prefix sum
// of their lengths, so random access stays O(log segments) as §4.1 requires.
type segment struct {
	length int64
	at     func(i int64) Tryte
}

// Slab is the lazily-composed, finite, randomly-addressable tryte sequence
// produced by projecting a Region (§4.1's "read() -> slab"). Slabs are
// immutable; Combine returns a new Slab rather than mutating either operand.
type Slab struct {
	segments []segment
	prefix   []int64 // prefix[i] = sum of lengths of segments[:i]; len(prefix) == len(segments)+1
	length   int64
}

// Empty returns the zero-length Slab.
func Empty() Slab { return Slab{prefix: []int64{0}} }

// FromFunc builds a single-segment Slab of the given length backed by at.
// Out-of-range reads of at are the caller's responsibility; At on the Slab
// already clamps to [0, length).
func FromFunc(length int64, at func(i int64) Tryte) Slab {
	if length <= 0 {
		return Empty()
	}
	return Slab{
		segments: []segment{{length: length, at: at}},
		prefix:   []int64{0, length},
		length:   length,
	}
}

// FromBytes builds a Slab reading directly from a byte slice.
func FromBytes(data []byte) Slab {
	buf := data
	return FromFunc(int64(len(buf)), func(i int64) Tryte { return Defined(buf[i]) })
}

// Len returns the slab's length.
func (s Slab) Len() int64 { return s.length }

// At returns the tryte at offset, or Undefined if offset is out of range —
// §4.1's "Reads out-of-range yield Undefined trytes, never fail."
func (s Slab) At(offset int64) Tryte {
	if offset < 0 || offset >= s.length {
		return Undefined
	}
	// Binary search the segment containing offset via the prefix-sum table.
	i := sort.Search(len(s.prefix), func(i int) bool { return s.prefix[i] > offset }) - 1
	if i < 0 || i >= len(s.segments) {
		return Undefined
	}
	return s.segments[i].at(offset - s.prefix[i])
}

// Bytes materializes the slab into a []byte, substituting 0 for undefined
// trytes. Intended for small slabs (tests, mnemonic areas); large slabs
// should be consumed via At to preserve the "never materialize eagerly"
// property described in §9's "Lazy slab" note.
func (s Slab) Bytes() []byte {
	out := make([]byte, s.length)
	for i := int64(0); i < s.length; i++ {
		if t := s.At(i); t.Ok {
			out[i] = t.B
		}
	}
	return out
}

// Combine concatenates a and b in O(segments(a)+segments(b)), per §4.1.
func Combine(a, b Slab) Slab {
	if a.length == 0 {
		return b
	}
	if b.length == 0 {
		return a
	}
	segs := make([]segment, 0, len(a.segments)+len(b.segments))
	segs = append(segs, a.segments...)
	segs = append(segs, b.segments...)
	prefix := make([]int64, 0, len(segs)+1)
	prefix = append(prefix, 0)
	total := int64(0)
	for _, sg := range segs {
		total += sg.length
		prefix = append(prefix, total)
	}
	return Slab{segments: segs, prefix: prefix, length: total}
}
