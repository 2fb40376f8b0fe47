package searcher

// VisitedSet tracks visited slots using a bitset and a dirty list for fast reset.
type VisitedSet struct {
	bits  []uint64
	dirty []uint32
}

// NewVisitedSet creates a new visited set sized for capacity slots.
func NewVisitedSet(capacity int) *VisitedSet {
	return &VisitedSet{
		bits:  make([]uint64, (capacity+63)/64),
		dirty: make([]uint32, 0, 128),
	}
}

// Visit marks a slot as visited. It reports whether the slot was newly marked.
func (v *VisitedSet) Visit(slot uint32) bool {
	wordIdx := int(slot >> 6)
	bitMask := uint64(1) << (slot & 63)

	if wordIdx >= len(v.bits) {
		v.grow(wordIdx + 1)
	}

	if v.bits[wordIdx]&bitMask != 0 {
		return false
	}
	v.bits[wordIdx] |= bitMask
	v.dirty = append(v.dirty, slot)
	return true
}

// Visited returns true if the slot has been visited.
func (v *VisitedSet) Visited(slot uint32) bool {
	wordIdx := int(slot >> 6)
	if wordIdx >= len(v.bits) {
		return false
	}
	return v.bits[wordIdx]&(uint64(1)<<(slot&63)) != 0
}

// Reset clears the visited status for all slots visited in the current session.
func (v *VisitedSet) Reset() {
	for _, slot := range v.dirty {
		v.bits[slot>>6] &^= uint64(1) << (slot & 63)
	}
	v.dirty = v.dirty[:0]
}

func (v *VisitedSet) grow(newLen int) {
	newBits := make([]uint64, max(len(v.bits)*2, newLen))
	copy(newBits, v.bits)
	v.bits = newBits
}
