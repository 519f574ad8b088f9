package vm

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// bytecodeCache is the process-wide, code-hash-keyed cache of decoded
// bytecode (spec.md §9 Design Notes: "the decoded-opcode table ... MAY be
// process-wide and immutably shared; contents never change after
// decoding"). Decoding the same contract's code twice across many
// transactions is wasted work, so every Contract looks itself up here
// before decoding.
var bytecodeCache sync.Map // common.Hash -> *Bytecode

func decodeCached(codeHash common.Hash, code []byte) *Bytecode {
	// EmptyCodeHash stands in for code that has no state hash of its own
	// (init code, test fixtures); such code is decoded fresh every time so
	// that different code never shares one cache entry.
	if codeHash == EmptyCodeHash {
		return Decode(code)
	}
	if v, ok := bytecodeCache.Load(codeHash); ok {
		return v.(*Bytecode)
	}
	b := Decode(code)
	actual, _ := bytecodeCache.LoadOrStore(codeHash, b)
	return actual.(*Bytecode)
}

// Contract is the code-owning side of a frame: the immutable Call tuple's
// "to" account plus its decoded bytecode (spec.md §3's Call/Context split —
// Contract carries the code-owner's identity and code, Context carries the
// frame metadata that surrounds it).
type Contract struct {
	CallerAddress common.Address
	Address       common.Address

	Code     []byte
	CodeHash common.Hash
	bytecode *Bytecode

	Input []byte
	Gas   uint64
	value *uint256.Int
}

// NewContract builds a Contract for a frame whose code-owner is `address`,
// called by `caller`, carrying `value` and an initial gas allowance.
func NewContract(caller, address common.Address, value *uint256.Int, gas uint64) *Contract {
	return &Contract{CallerAddress: caller, Address: address, value: value, Gas: gas}
}

// SetCode attaches already-fetched code and its hash, decoding (or
// retrieving from cache) its instruction stream and jump table.
func (c *Contract) SetCode(hash common.Hash, code []byte) {
	c.Code = code
	c.CodeHash = hash
	c.bytecode = decodeCached(hash, code)
}

// SetCallCode is an alias used by CALLCODE/DELEGATECALL framing, where the
// executing code belongs to a different account than the one whose
// storage is in effect.
func (c *Contract) SetCallCode(hash common.Hash, code []byte) { c.SetCode(hash, code) }

func (c *Contract) Value() *uint256.Int { return c.value }

// UseGas deducts amount from the contract's remaining gas, reporting
// ErrOutOfGas (wrapped in a *GasError) rather than going negative.
func (c *Contract) UseGas(amount uint64, op string) error {
	if c.Gas < amount {
		return NewGasError(op, amount, c.Gas)
	}
	c.Gas -= amount
	return nil
}

// RefundGas credits amount back to the contract's remaining gas — used
// when a dynamic-gas computation over-charges before the exact cost (e.g.
// memory expansion) is known, or a sub-call returns unused gas.
func (c *Contract) RefundGas(amount uint64) { c.Gas += amount }

// validJumpdest reports whether dest is both in range and the byte-offset
// of a decoded JUMPDEST instruction — grounded on the teacher's
// Contract.validJumpdest, but delegating the analysis itself to the
// decoder's single decode pass (decoder.go) instead of a second
// bitmap-based "legacy analysis" pass.
func (c *Contract) validJumpdest(dest *uint256.Int) bool {
	if !dest.IsUint64() {
		return false
	}
	udest := dest.Uint64()
	if c.bytecode == nil {
		c.bytecode = decodeCached(c.CodeHash, c.Code)
	}
	_, ok := c.bytecode.ValidJumpdest(udest)
	return ok
}

// asRunnable exposes the decoded instruction stream to the interpreter.
func (c *Contract) asRunnable() *Bytecode {
	if c.bytecode == nil {
		c.bytecode = decodeCached(c.CodeHash, c.Code)
	}
	return c.bytecode
}

// CodeAddress returns c.Address, the account whose storage is in effect.
// Contract does not record the account the code was loaded from, so under
// CALLCODE/DELEGATECALL this is not the code owner's address.
func (c *Contract) CodeAddress() common.Address { return c.Address }

// EmptyCodeHash is the canonical keccak256 of the empty byte string, used
// to recognise "no code" accounts without a storage round-trip.
var EmptyCodeHash = crypto.Keccak256Hash(nil)
