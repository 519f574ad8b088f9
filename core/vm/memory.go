package vm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Memory is a per-frame byte-addressed, word-granular expanding buffer.
// Expansion cost is a quadratic function of the peak word-length reached,
// paid once per frame the first time memory grows past a given size
// (spec.md §3's Execution machine).
type Memory struct {
	store       []byte
	lastGasCost uint64
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Len returns the current size in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Resize grows the buffer to at least size bytes, zero-filling the new
// region. It never shrinks. size must already be word-aligned (32-byte
// multiple); callers compute alignment via toWordSize before calling.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) >= size {
		return
	}
	grown := make([]byte, size)
	copy(grown, m.store)
	m.store = grown
}

// Set writes value into the buffer at offset. The caller must have already
// grown the buffer to cover [offset, offset+len(value)).
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes a 32-byte word at offset, left-zero-padding value if it is
// shorter than 32 bytes of meaningful data is not needed here: callers pass
// the full 32-byte encoding.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	b := val.Bytes32()
	copy(m.store[offset:offset+32], b[:])
}

// GetCopy returns a fresh copy of size bytes starting at offset. Reads
// past the end of the buffer (which should not happen if callers always
// expand first) return zero bytes.
func (m *Memory) GetCopy(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	if len(m.store) > int(offset) {
		cp := make([]byte, size)
		copy(cp, m.store[offset:])
		return cp
	}
	return make([]byte, size)
}

// GetPtr returns a slice view (not a copy) of size bytes starting at
// offset, for read-only use within the same instruction.
func (m *Memory) GetPtr(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Data returns the full backing buffer.
func (m *Memory) Data() []byte { return m.store }

// Copy implements MCOPY (EIP-5656): copies size bytes from src to dst
// within the same buffer, correctly handling overlap (matching Go's
// built-in copy, which is itself overlap-safe for a single slice).
func (m *Memory) Copy(dst, src, size uint64) {
	if size == 0 {
		return
	}
	copy(m.store[dst:dst+size], m.store[src:src+size])
}

// toWordSize returns the number of 32-byte words needed to hold size bytes,
// rounding up.
func toWordSize(size uint64) uint64 {
	if size > (^uint64(0)-31)/1 {
		return ^uint64(0) / 32
	}
	return (size + 31) / 32
}

// memoryGasCost computes the total gas cost of having memory sized at
// newSize (in bytes, need not be word-aligned) per go-ethereum's quadratic
// formula: 3*words + words^2/512. It returns the incremental cost beyond
// what has already been paid for m's current size, plus an error if the
// requested size overflows or is absurdly large (treated as out-of-gas by
// the caller).
func memoryGasCost(m *Memory, newSize uint64) (uint64, error) {
	if newSize == 0 {
		return 0, nil
	}
	// EVM memory is capped implicitly by gas: sizes above 0x1FFFFFFFE0
	// bytes (more than 2^32-1 words, where words^2 would overflow uint64)
	// are rejected outright.
	if newSize > 0x1FFFFFFFE0 {
		return 0, errGasUintOverflow
	}
	newMemSizeWords := toWordSize(newSize)
	newMemSize := newMemSizeWords * 32

	if newMemSize > uint64(m.Len()) {
		square := newMemSizeWords * newMemSizeWords
		linCoef := newMemSizeWords * 3
		quadCoef := square / 512
		newTotalFee := linCoef + quadCoef

		fee := newTotalFee - m.lastGasCost
		m.lastGasCost = newTotalFee
		return fee, nil
	}
	return 0, nil
}

// bigToUint64Checked converts a *big.Int to uint64, returning ok=false
// if it does not fit — used for
// memory-offset/size operands popped off the stack as full Words.
func bigToUint64Checked(b *big.Int) (uint64, bool) {
	if !b.IsUint64() {
		return 0, false
	}
	return b.Uint64(), true
}
