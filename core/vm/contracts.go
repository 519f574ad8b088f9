package vm

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // only implementation in the ecosystem exposing the raw transform

	"github.com/lazyevm/lazyevm/core/params"
)

// PrecompiledContract is a native, address-addressable contract: a pure
// function of its input bytes plus an independent gas-cost function,
// charged up front (spec.md §4.4 — "each is a pure function of input bytes
// plus a gas-cost function of input length").
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// precompiles is the process-wide, immutable address-to-contract table
// (spec.md §9's "Global state" bullet: "the decoded-opcode table and the
// precompile table are process-wide immutable tables").
var precompiles = map[common.Address]PrecompiledContract{
	common.BytesToAddress([]byte{1}):  &ecrecover{},
	common.BytesToAddress([]byte{2}):  &sha256hash{},
	common.BytesToAddress([]byte{3}):  &ripemd160hash{},
	common.BytesToAddress([]byte{4}):  &dataCopy{},
	common.BytesToAddress([]byte{5}):  &bigModExp{},
	common.BytesToAddress([]byte{6}):  &bn254Add{},
	common.BytesToAddress([]byte{7}):  &bn254ScalarMul{},
	common.BytesToAddress([]byte{8}):  &bn254Pairing{},
	common.BytesToAddress([]byte{9}):  &blake2F{},
	common.BytesToAddress([]byte{10}): &kzgPointEvaluation{},
}

// IsPrecompile reports whether addr names one of the ten built-in contracts.
func IsPrecompile(addr common.Address) bool {
	_, ok := precompiles[addr]
	return ok
}

var errPrecompileOOG = errors.New("out of gas")

// runPrecompile charges p's gas cost for input up front and, if gas covers
// it, runs the body. "not re-entrant" (spec.md §4.4) falls out naturally:
// a precompile's Run never calls back into the EVM.
func runPrecompile(p PrecompiledContract, input []byte, gas uint64) ([]byte, uint64, error) {
	required := p.RequiredGas(input)
	if required > gas {
		return nil, 0, errPrecompileOOG
	}
	ret, err := p.Run(input)
	if err != nil {
		return nil, 0, err
	}
	return ret, gas - required, nil
}

// wordCount returns ceil(len/32), the unit EIP-2565-style per-word precompile
// gas schedules bill by.
func wordCount(n int) uint64 {
	return (uint64(n) + 31) / 32
}

// --- 0x01 ECRecover -------------------------------------------------------

type ecrecover struct{}

func (c *ecrecover) RequiredGas(input []byte) uint64 { return params.EcrecoverGas }

// secp256k1 order and its half, used to normalise a high-S signature to its
// low-S canonical form before recovery (spec.md §4.4's 0x01 bullet).
var (
	secp256k1N     = math.MustParseBig256("0xfffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	const inputLen = 128
	input = common.RightPadBytes(input, inputLen)

	v := input[63]
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])

	if !allZero(input[32:63]) || (v != 27 && v != 28) {
		return common.LeftPadBytes(nil, 32), nil
	}
	recID := v - 27
	if s.Cmp(secp256k1HalfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
		recID ^= 1
	}

	sig := make([]byte, 65)
	copy(sig[0:32], common.LeftPadBytes(r.Bytes(), 32))
	copy(sig[32:64], common.LeftPadBytes(s.Bytes(), 32))
	sig[64] = recID

	pubKey, err := crypto.Ecrecover(input[:32], sig)
	if err != nil {
		return common.LeftPadBytes(nil, 32), nil
	}
	addrHash := crypto.Keccak256(pubKey[1:])
	out := make([]byte, 32)
	copy(out[12:], addrHash[12:])
	return out, nil
}

func allZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

// --- 0x02 SHA-256 ----------------------------------------------------------

type sha256hash struct{}

func (c *sha256hash) RequiredGas(input []byte) uint64 {
	return params.Sha256BaseGas + wordCount(len(input))*params.Sha256PerWordGas
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// --- 0x03 RIPEMD-160 --------------------------------------------------------

type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 {
	return params.Ripemd160BaseGas + wordCount(len(input))*params.Ripemd160PerWordGas
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	out := make([]byte, 32)
	copy(out[12:], h.Sum(nil))
	return out, nil
}

// --- 0x04 identity -----------------------------------------------------------

type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 {
	return params.IdentityBaseGas + wordCount(len(input))*params.IdentityPerWordGas
}

func (c *dataCopy) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// --- 0x05 modexp -------------------------------------------------------------

type bigModExp struct{}

func modexpLengths(input []byte) (baseLen, expLen, modLen *big.Int) {
	input = common.RightPadBytes(input, 96)
	baseLen = new(big.Int).SetBytes(input[0:32])
	expLen = new(big.Int).SetBytes(input[32:64])
	modLen = new(big.Int).SetBytes(input[64:96])
	return
}

// modexpMultComplexity implements EIP-2565's multiplication-complexity
// formula: ceil(max(len,8)/8)^2.
func modexpMultComplexity(maxLen uint64) uint64 {
	words := (maxLen + 7) / 8
	return words * words
}

func (c *bigModExp) RequiredGas(input []byte) uint64 {
	baseLen, expLen, modLen := modexpLengths(input)
	if !baseLen.IsUint64() || !expLen.IsUint64() || !modLen.IsUint64() {
		return ^uint64(0)
	}
	maxLen := baseLen.Uint64()
	if modLen.Uint64() > maxLen {
		maxLen = modLen.Uint64()
	}

	var expHead *big.Int
	var rest []byte
	if len(input) > 96 {
		rest = input[96:]
	}
	bl := baseLen.Uint64()
	el := expLen.Uint64()
	if bl > uint64(len(rest)) {
		expHead = new(big.Int)
	} else {
		tail := rest[bl:]
		headLen := el
		if headLen > 32 {
			headLen = 32
		}
		if headLen > uint64(len(tail)) {
			headLen = uint64(len(tail))
		}
		expHead = new(big.Int).SetBytes(tail[:headLen])
	}

	iterCount := uint64(0)
	if el <= 32 && expHead.BitLen() == 0 {
		iterCount = 0
	} else if el <= 32 {
		iterCount = uint64(expHead.BitLen() - 1)
	} else {
		iterCount = 8*(el-32) + uint64(max(0, expHead.BitLen()-1))
	}
	gas := modexpMultComplexity(maxLen) * max64(iterCount, 1) / params.ModExpQuadCoeffDiv
	if gas < params.ModExpMinGas {
		return params.ModExpMinGas
	}
	return gas
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func (c *bigModExp) Run(input []byte) ([]byte, error) {
	baseLen, expLen, modLen := modexpLengths(input)
	if !baseLen.IsUint64() || !expLen.IsUint64() || !modLen.IsUint64() {
		return nil, errors.New("modexp: operand length overflow")
	}
	bl, el, ml := baseLen.Uint64(), expLen.Uint64(), modLen.Uint64()
	if bl == 0 && ml == 0 {
		return []byte{}, nil
	}

	var body []byte
	if len(input) > 96 {
		body = input[96:]
	}
	body = common.RightPadBytes(body, int(bl+el+ml))

	base := new(big.Int).SetBytes(body[:bl])
	exp := new(big.Int).SetBytes(body[bl : bl+el])
	mod := new(big.Int).SetBytes(body[bl+el : bl+el+ml])

	out := make([]byte, ml)
	if mod.BitLen() == 0 {
		return out, nil
	}
	result := new(big.Int).Exp(base, exp, mod)
	return common.LeftPadBytes(result.Bytes(), int(ml)), nil
}

// --- 0x09 blake2F's round-count helper --------------------------------------

func blake2FRounds(input []byte) uint64 {
	if len(input) < 4 {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(input[0:4]))
}
