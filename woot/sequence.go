package woot

import (
	"errors"
	"strings"
)

// ErrOutOfBounds is returned by InsertAt when the target physical index
// exceeds the sequence length. It should never surface from a correctly
// driven Site, only from a direct misuse of Sequence.
var ErrOutOfBounds = errors.New("woot: index out of bounds")

// ErrEndpointMissing is returned by Subseq when either endpoint is not
// present in the sequence.
var ErrEndpointMissing = errors.New("woot: subseq endpoint not found")

// Sequence is the ordered, append-only (modulo tombstoning) collection of
// Characters that forms one replica's view of the document.
//
// Characters live in a flat slice (physical index == slice index), with
// two accelerators layered on top: an ID->index map for O(1) PositionOf,
// and a Fenwick tree over the visible bit for O(log n) NthVisible
// queries. A physical insertion still costs O(n) to shift the tail and
// rebuild both accelerators — that cost is inherent to keeping "physical
// index" meaningful at all — but every read between writes, including
// the repeated NthVisible/PositionOf calls integrateIns performs per
// recursive step, is logarithmic or better.
type Sequence struct {
	chars []Character
	index map[ID]int
	bit   []int32 // 1-based Fenwick tree over the visible bit
}

// NewSequence returns a Sequence containing only the two sentinels.
func NewSequence() *Sequence {
	s := &Sequence{chars: []Character{CB, CE}}
	s.rebuild()
	return s
}

func (s *Sequence) rebuild() {
	s.index = make(map[ID]int, len(s.chars))
	for i, c := range s.chars {
		s.index[c.ID] = i
	}
	s.bit = make([]int32, len(s.chars)+1)
	for i, c := range s.chars {
		if c.Visible {
			s.bitAdd(i, 1)
		}
	}
}

func (s *Sequence) bitAdd(i int, delta int32) {
	for i++; i <= len(s.bit)-1; i += i & (-i) {
		s.bit[i] += delta
	}
}

func (s *Sequence) bitPrefix(i int) int32 {
	var sum int32
	for ; i > 0; i -= i & (-i) {
		sum += s.bit[i]
	}
	return sum
}

// Len returns the number of physical (visible + tombstoned) characters.
func (s *Sequence) Len() int { return len(s.chars) }

// Text returns the user-visible string: the concatenation of glyphs whose
// Visible flag is true, in sequence order.
func (s *Sequence) Text() string {
	var b strings.Builder
	for _, c := range s.chars {
		if c.Visible {
			b.WriteString(c.Glyph)
		}
	}
	return b.String()
}

// PositionOf returns the physical index of the character with this
// identifier, and whether it was found.
func (s *Sequence) PositionOf(id ID) (int, bool) {
	p, ok := s.index[id]
	return p, ok
}

// CharacterAt returns the character at physical index p.
func (s *Sequence) CharacterAt(p int) (Character, bool) {
	if p < 0 || p >= len(s.chars) {
		return Character{}, false
	}
	return s.chars[p], true
}

// InsertAt places c at physical index p, shifting the tail right. p must
// be in [0, Len()].
func (s *Sequence) InsertAt(c Character, p int) error {
	if p < 0 || p > len(s.chars) {
		return ErrOutOfBounds
	}
	s.chars = append(s.chars, Character{})
	copy(s.chars[p+1:], s.chars[p:])
	s.chars[p] = c
	s.rebuild()
	return nil
}

// SetVisible flips the Visible flag of the character with id c, updating
// the Fenwick accelerator in place (no physical reshuffle, so no rebuild
// is needed). Returns false if the identifier is absent.
func (s *Sequence) SetVisible(id ID, visible bool) bool {
	p, ok := s.index[id]
	if !ok {
		return false
	}
	if s.chars[p].Visible == visible {
		return true
	}
	delta := int32(1)
	if !visible {
		delta = -1
	}
	s.chars[p].Visible = visible
	s.bitAdd(p, delta)
	return true
}

// Subseq returns the slice of characters strictly between c and d
// (exclusive of both), in sequence order. c and d must already be
// present; order of c/d relative to each other is whatever the sequence
// currently holds (WOOT always calls this with cp preceding cn).
func (s *Sequence) Subseq(c, d Character) ([]Character, error) {
	left, ok := s.index[c.ID]
	if !ok {
		return nil, ErrEndpointMissing
	}
	right, ok := s.index[d.ID]
	if !ok {
		return nil, ErrEndpointMissing
	}
	if left+1 >= right {
		return nil, nil
	}
	out := make([]Character, right-left-1)
	copy(out, s.chars[left+1:right])
	return out, nil
}

// NthVisible returns the 1-based n-th visible character. n == 0 always
// misses.
func (s *Sequence) NthVisible(n int) (Character, bool) {
	if n <= 0 {
		return Character{}, false
	}
	total := int(s.bitPrefix(len(s.chars)))
	if n > total {
		return Character{}, false
	}
	// Fenwick "find-kth": descend by powers of two, matching the
	// standard order-statistic-tree-over-an-array technique.
	pos := 0
	remaining := int32(n)
	bitMask := highestPowerOfTwo(len(s.bit) - 1)
	for step := bitMask; step > 0; step >>= 1 {
		next := pos + step
		if next <= len(s.bit)-1 && s.bit[next] < remaining {
			pos = next
			remaining -= s.bit[next]
		}
	}
	// pos now holds the 0-based Fenwick position of the last prefix sum
	// strictly less than n; the element we want is at slice index pos
	// (Fenwick's 1-based index pos+1 corresponds to slice index pos).
	if pos < 0 || pos >= len(s.chars) {
		return Character{}, false
	}
	return s.chars[pos], true
}

func highestPowerOfTwo(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
