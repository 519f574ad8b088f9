// Package tracing implements the polymorphic tracer capability set
// described in spec.md §6 and §9 Design Notes: a fixed set of callback
// hooks, journaled so that a reverted frame's events are dropped rather
// than forwarded, mirroring how the state cache itself undoes a reverted
// frame's writes.
package tracing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallType mirrors vm.CallType without importing the vm package (tracing
// must not depend on vm: the interpreter depends on tracing, not the
// other way around).
type CallType int

const (
	CallTypeCall CallType = iota
	CallTypeCallCode
	CallTypeDelegateCall
	CallTypeStaticCall
	CallTypeCreate
	CallTypeCreate2
	CallTypePrecompile
)

// Hooks is the full set of events a tracer may observe, one field per event
// kind named in spec.md §6 (Init/OpCode/Keccak/State/Account/Call/Return/
// SelfDestruct/Log/Error). Every field is optional; a nil field is simply
// never called.
type Hooks struct {
	OnTxStart func(origin common.Address, gasLimit uint64)
	OnEnter   func(depth int, typ CallType, from, to common.Address, input []byte, gas uint64, value *big.Int)
	OnExit    func(depth int, output []byte, gasUsed uint64, err error, reverted bool)
	OnOpcode  func(pc uint64, op byte, name string, gas uint64, cost uint64)
	OnFault   func(pc uint64, op byte, name string, gas uint64, err error)

	OnBalanceChange func(addr common.Address, prev, new *big.Int)
	OnNonceChange   func(addr common.Address, prev, new uint64)
	OnCodeChange    func(addr common.Address, prevCodeHash common.Hash, prevCode []byte, codeHash common.Hash, code []byte)
	OnStorageChange func(addr common.Address, slot common.Hash, prev, new common.Hash)

	OnLog          func(addr common.Address, topics []common.Hash, data []byte)
	OnSelfDestruct func(addr, beneficiary common.Address, balance *big.Int)

	// Copy, if set, returns an independent deep copy of the tracer's
	// internal state. WrapWithJournal does not call it: it stages each
	// in-flight frame's calls in its own journal instead.
	Copy func() *Hooks
}
