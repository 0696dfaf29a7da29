package accel

import "github.com/chewxy/math32"

// Split keys order k-d tree sweep events. Layout (msb to lsb):
//
//	[63..32] sortable split coordinate bits
//	[31..30] event type
//	[29..28] axis
//	[27..0]  primitive index
//
// Only the upper 36 bits take part in sorting.
type splitKey uint64

type eventType uint8

// Event types. For equal coordinates closing events must sort before planar
// ones and planar ones before opening ones.
const (
	closedEvent eventType = iota
	planarEvent
	openedEvent
)

const (
	keyTypeShift = 30
	keyAxisShift = 28

	keyPrimMask  = 1<<keyAxisShift - 1
	keyTypeMask  = 3 << keyTypeShift
	keySortMask  = 0xFFFFFFFFF0000000
	keySortShift = keyAxisShift

	// The largest primitive count addressable by a split key.
	maxKeyPrimitives = keyPrimMask + 1
)

// Map float bits to an unsigned value whose integer ordering matches the
// float ordering.
func sortableBits(f float32) uint32 {
	if f == 0 {
		// Fold -0 into +0.
		f = 0
	}
	b := math32.Float32bits(f)
	return b ^ (uint32(int32(b)>>31) | 0x80000000)
}

func fromSortableBits(b uint32) float32 {
	mask := ((b >> 31) - 1) | 0x80000000
	return math32.Float32frombits(b ^ mask)
}

func packKey(split float32, typ eventType, axis int, prim int) splitKey {
	k := uint64(sortableBits(split)) << 32
	k |= uint64(typ) << keyTypeShift
	k |= uint64(axis) << keyAxisShift
	k |= uint64(prim) & keyPrimMask
	return splitKey(k)
}

func (k splitKey) split() float32 {
	return fromSortableBits(uint32(k >> 32))
}

func (k splitKey) eventType() eventType {
	return eventType((k >> keyTypeShift) & 3)
}

func (k splitKey) axis() int {
	return int((k >> keyAxisShift) & 3)
}

func (k splitKey) prim() int {
	return int(k & keyPrimMask)
}

// Get the sortable part of the key with the event type replaced by typ.
func (k splitKey) withType(typ eventType) splitKey {
	return (k&keySortMask)&^keyTypeMask | splitKey(typ)<<keyTypeShift
}
