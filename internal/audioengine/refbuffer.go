package audioengine

import "sync/atomic"

const (
	refIndexMask uint32 = 0b011
	refFreshBit  uint32 = 0b100
)

type refSlot struct {
	data []byte
	seq  uint64
}

// ReferenceBuffer hands the most recent render period to the capture loop
// for echo cancellation. It is a triple buffer: the writer owns one slot,
// the reader owns another, and the third is exchanged through a single
// atomic word, so neither side blocks and a reader never sees a torn frame.
//
// Exactly one goroutine may call Publish and exactly one may call Latest.
type ReferenceBuffer struct {
	slots  [3]refSlot
	middle atomic.Uint32 // index of the shared slot, plus refFreshBit
	write  uint32        // writer-owned slot
	read   uint32        // reader-owned slot
	has    atomic.Bool
}

// NewReferenceBuffer returns a buffer whose slots hold frameBytes without
// reallocating.
func NewReferenceBuffer(frameBytes int) *ReferenceBuffer {
	r := &ReferenceBuffer{write: 0, read: 1}
	r.middle.Store(2)
	for i := range r.slots {
		r.slots[i].data = make([]byte, 0, frameBytes)
	}
	return r
}

// Publish copies p into the writer slot and makes it the latest frame.
func (r *ReferenceBuffer) Publish(p []byte, seq uint64) {
	slot := &r.slots[r.write]
	if cap(slot.data) < len(p) {
		slot.data = make([]byte, len(p))
	}
	slot.data = slot.data[:len(p)]
	copy(slot.data, p)
	slot.seq = seq

	prev := r.middle.Swap(r.write | refFreshBit)
	r.write = prev & refIndexMask
	r.has.Store(true)
}

// Latest returns the most recently published frame and its render cycle
// sequence. The slice stays valid until the next call to Latest. ok is false
// until the first Publish.
func (r *ReferenceBuffer) Latest() (data []byte, seq uint64, ok bool) {
	if !r.has.Load() {
		return nil, 0, false
	}
	if r.middle.Load()&refFreshBit != 0 {
		prev := r.middle.Swap(r.read)
		r.read = prev & refIndexMask
	}
	slot := &r.slots[r.read]
	return slot.data, slot.seq, true
}
