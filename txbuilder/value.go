package txbuilder

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/vm"
)

// canTransfer and transferValue are the vm.BlockContext.{CanTransfer,Transfer}
// callbacks core/vm leaves to its caller to supply (spec.md's Context.call
// only names the check, not an implementation). No pack source defines a
// default for them — go-ethereum's own state_transition.go inlines the
// equivalent balance check and CanTransfer/SubBalance/AddBalance calls
// directly against its StateDB rather than exposing them as standalone
// functions — so these follow the plain convention every EVM implements:
// the sender must hold at least value, and a transfer is a balance debit on
// one address and credit on the other, done through Get/Set since
// vm.StateDB exposes no Add/Sub primitives.
func canTransfer(db vm.StateDB, addr common.Address, amount *uint256.Int) bool {
	return db.GetBalance(addr).Cmp(amount) >= 0
}

func transferValue(db vm.StateDB, from, to common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	fromBalance := db.GetBalance(from)
	db.SetBalance(from, new(uint256.Int).Sub(fromBalance, amount))
	toBalance := db.GetBalance(to)
	db.SetBalance(to, new(uint256.Int).Add(toBalance, amount))
}

// effectiveGasPrice is the total per-gas price the sender pays. A legacy
// envelope sets feeCap == tipCap, so it collapses to that flat price; an
// EIP-1559 envelope pays baseFee plus whatever priority fee clears
// (spec.md §4.6's gas-fee step), matching the effective-tip computation
// go-ethereum's own state transition performs.
func effectiveGasPrice(baseFee, feeCap, tipCap *uint256.Int) *uint256.Int {
	if feeCap.Eq(tipCap) {
		return feeCap.Clone()
	}
	return new(uint256.Int).Add(baseFee, priorityFeePerGas(baseFee, feeCap, tipCap))
}

// priorityFeePerGas is the part of the gas price that goes to the block's
// coinbase: a legacy envelope sends gasPrice-baseFee (or zero below the
// base fee), an EIP-1559 envelope sends min(tipCap, feeCap-baseFee).
func priorityFeePerGas(baseFee, feeCap, tipCap *uint256.Int) *uint256.Int {
	if feeCap.Eq(tipCap) {
		if feeCap.Cmp(baseFee) <= 0 {
			return new(uint256.Int)
		}
		return new(uint256.Int).Sub(feeCap, baseFee)
	}
	headroom := new(uint256.Int)
	if feeCap.Cmp(baseFee) > 0 {
		headroom.Sub(feeCap, baseFee)
	}
	if tipCap.Cmp(headroom) < 0 {
		return tipCap.Clone()
	}
	return headroom
}
