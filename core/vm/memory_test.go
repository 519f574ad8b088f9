package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestMemoryCopy(t *testing.T) {
	// Test cases from https://eips.ethereum.org/EIPS/eip-5656#test-cases
	for i, tc := range []struct {
		dst, src, len uint64
		pre           string
		want          string
	}{
		{ // MCOPY 0 32 32 - copy 32 bytes from offset 32 to offset 0.
			0, 32, 32,
			"0000000000000000000000000000000000000000000000000000000000000000 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		},
		{ // MCOPY 0 0 32 - copy 32 bytes from offset 0 to offset 0.
			0, 0, 32,
			"0101010101010101010101010101010101010101010101010101010101010101",
			"0101010101010101010101010101010101010101010101010101010101010101",
		},
		{ // MCOPY 0 1 8 - copy 8 bytes from offset 1 to offset 0 (overlapping).
			0, 1, 8,
			"000102030405060708 000000000000000000000000000000000000000000000000",
			"010203040506070808 000000000000000000000000000000000000000000000000",
		},
		{ // MCOPY 1 0 8 - copy 8 bytes from offset 0 to offset 1 (overlapping).
			1, 0, 8,
			"000102030405060708 000000000000000000000000000000000000000000000000",
			"000001020304050607 000000000000000000000000000000000000000000000000",
		},
		{ // copy zero bytes, any offsets.
			0xFFFFFF, 0xFFFFFF, 0,
			"11",
			"11",
		},
	} {
		m := NewMemory()
		data := common.FromHex(strings.ReplaceAll(tc.pre, " ", ""))
		m.Resize(uint64(len(data)))
		m.Set(0, uint64(len(data)), data)

		need := tc.dst + tc.len
		if n := tc.src + tc.len; n > need {
			need = n
		}
		if need > uint64(m.Len()) {
			m.Resize(toWordSize(need) * 32)
		}
		m.Copy(tc.dst, tc.src, tc.len)

		want := common.FromHex(strings.ReplaceAll(tc.want, " ", ""))
		got := m.GetCopy(0, int64(len(want)))
		if !bytes.Equal(got, want) {
			t.Errorf("case %d: got %x, want %x", i, got, want)
		}
	}
}

func TestMemoryResizeIsMonotonic(t *testing.T) {
	m := NewMemory()
	m.Resize(64)
	if m.Len() != 64 {
		t.Fatalf("Len() = %d, want 64", m.Len())
	}
	m.Set(0, 4, []byte{1, 2, 3, 4})
	m.Resize(32) // smaller request must not shrink or clobber existing data
	if m.Len() != 64 {
		t.Fatalf("Len() = %d after smaller Resize, want unchanged 64", m.Len())
	}
	if got := m.GetCopy(0, 4); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("data clobbered by no-op resize: %x", got)
	}
}

func TestMemCost(t *testing.T) {
	words := uint64(1024 * 1024 / 32)
	cost, err := memoryGasCost(NewMemory(), 32*words)
	if err != nil {
		t.Fatalf("memoryGasCost: %v", err)
	}
	// 3*words + words^2/512 for 32768 words.
	want := 3*words + (words*words)/512
	if cost != want {
		t.Fatalf("memoryGasCost(1MiB) = %d, want %d", cost, want)
	}
}

func TestMemCostIncremental(t *testing.T) {
	m := NewMemory()
	first, _ := memoryGasCost(m, 64)
	m.Resize(toWordSize(64) * 32)
	second, _ := memoryGasCost(m, 64)
	if second != 0 {
		t.Fatalf("re-querying the same size must be free, got %d (first %d)", second, first)
	}
}
