// Package bitset implements a dense, growable set of non-negative integers
// backed by a slice of words, used throughout the circuit store to track
// per-node influence and relevance sets.
package bitset

import "math/bits"

const wordBits = 64

// Set is a dense bit set over non-negative ints. The zero value is an empty set.
type Set struct {
	words []uint64
}

// New returns an empty Set with room for at least n bits pre-allocated.
func New(n int) *Set {
	return &Set{words: make([]uint64, wordIndex(n)+1)}
}

func wordIndex(bit int) int {
	return bit / wordBits
}

func (s *Set) ensure(word int) {
	if word < len(s.words) {
		return
	}
	grown := make([]uint64, word+1)
	copy(grown, s.words)
	s.words = grown
}

// Add puts bit into the set.
func (s *Set) Add(bit int) {
	w := wordIndex(bit)
	s.ensure(w)
	s.words[w] |= 1 << uint(bit%wordBits)
}

// Remove takes bit out of the set.
func (s *Set) Remove(bit int) {
	w := wordIndex(bit)
	if w >= len(s.words) {
		return
	}
	s.words[w] &^= 1 << uint(bit%wordBits)
}

// Test reports whether bit is a member of the set.
func (s *Set) Test(bit int) bool {
	w := wordIndex(bit)
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<uint(bit%wordBits)) != 0
}

// Clear empties the set without releasing its backing storage.
func (s *Set) Clear() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	return &Set{words: words}
}

// Union sets s to the union of s and other, growing s if needed.
func (s *Set) Union(other *Set) {
	if other == nil {
		return
	}
	s.ensure(len(other.words) - 1)
	for i, w := range other.words {
		s.words[i] |= w
	}
}

// Intersect sets s to the intersection of s and other.
func (s *Set) Intersect(other *Set) {
	for i := range s.words {
		if i < len(other.words) {
			s.words[i] &= other.words[i]
		} else {
			s.words[i] = 0
		}
	}
}

// Equal reports whether s and other contain exactly the same bits.
func (s *Set) Equal(other *Set) bool {
	n := len(s.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(s.words) {
			a = s.words[i]
		}
		if i < len(other.words) {
			b = other.words[i]
		}
		if a != b {
			return false
		}
	}
	return true
}

// Count returns the number of members in the set.
func (s *Set) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Min returns the smallest member of the set and true, or (0, false) if empty.
func (s *Set) Min() (int, bool) {
	for i, w := range s.words {
		if w != 0 {
			return i*wordBits + bits.TrailingZeros64(w), true
		}
	}
	return 0, false
}

// Max returns the largest member of the set and true, or (0, false) if empty.
func (s *Set) Max() (int, bool) {
	for i := len(s.words) - 1; i >= 0; i-- {
		if s.words[i] != 0 {
			return i*wordBits + 63 - bits.LeadingZeros64(s.words[i]), true
		}
	}
	return 0, false
}

// Each calls f for every member of the set in ascending order.
func (s *Set) Each(f func(bit int)) {
	for i, w := range s.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			f(i*wordBits + tz)
			w &^= 1 << uint(tz)
		}
	}
}

// Slice returns the members of the set in ascending order.
func (s *Set) Slice() []int {
	out := make([]int, 0, s.Count())
	s.Each(func(bit int) { out = append(out, bit) })
	return out
}
