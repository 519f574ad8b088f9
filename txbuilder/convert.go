package txbuilder

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/rpc"
)

// HeaderFromRPC adapts a block header fetched over JSON-RPC into the
// uint256-native shape Apply consumes, so a caller wiring rpc.Client
// straight into a txbuilder.Envelope never has to touch hexutil types by
// hand. Post-Merge headers carry MixHash in place of a PoW difficulty
// (spec.md §4.6's Random field), so Difficulty is only populated pre-Merge.
func HeaderFromRPC(h *rpc.BlockHeader) Header {
	out := Header{
		Coinbase: h.Coinbase,
		Time:     uint64(h.Time),
		GasLimit: uint64(h.GasLimit),
	}
	if h.Number != nil {
		out.Number = mustUint256((*big.Int)(h.Number))
	}
	if h.BaseFee != nil {
		out.BaseFee = mustUint256((*big.Int)(h.BaseFee))
	}
	if h.BlobBaseFee != nil {
		out.BlobBaseFee = mustUint256((*big.Int)(h.BlobBaseFee))
	}
	if h.Difficulty != nil && (*big.Int)(h.Difficulty).Sign() != 0 {
		out.Difficulty = mustUint256((*big.Int)(h.Difficulty))
	} else {
		random := h.MixHash
		out.Random = &random
	}
	return out
}

func mustUint256(b *big.Int) *uint256.Int {
	v, _ := uint256.FromBig(b)
	return v
}
