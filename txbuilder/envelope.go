// Package txbuilder is the call-site builder spec.md §4.6 and §6 describe:
// a fluent way to construct one transaction (a transfer, a call, or a
// creation) against a block header and run it through core/vm against a
// core/state cache, producing the gas accounting and tracer events a caller
// needs without making them hand-assemble a vm.EVM themselves. It mirrors
// the original implementation's Solenoid/Builder/Runner split: factory
// methods build an Envelope, With* setters configure it, and Apply runs it.
package txbuilder

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
	"github.com/lazyevm/lazyevm/core/state"
	"github.com/lazyevm/lazyevm/core/vm"
	"github.com/lazyevm/lazyevm/tracer"
)

// Kind distinguishes the three ways an Envelope can be built, mirroring the
// original implementation's Solenoid::{transfer,execute,create}.
type Kind int

const (
	KindTransfer Kind = iota
	KindExecute
	KindCreate
)

// AccessTuple is one EIP-2930 access-list entry: an address and the storage
// slots within it to pre-warm.
type AccessTuple struct {
	Address common.Address
	Slots   []common.Hash
}

// Header is the block metadata a transaction executes against (spec.md
// §4.6 step 1's "pin a block" input), lifted out of a full block so a
// caller backed only by rpc.Client.GetBlockHeader can supply it directly.
type Header struct {
	Number      *uint256.Int
	Coinbase    common.Address
	GasLimit    uint64
	Time        uint64
	Difficulty  *uint256.Int
	Random      *common.Hash
	BaseFee     *uint256.Int
	BlobBaseFee *uint256.Int
}

// normalize fills in a zero uint256 for any unset field a legacy-style
// caller (one that never touches BaseFee/Number/Difficulty) left nil, so
// Apply's arithmetic never has to nil-check them.
func (h *Header) normalize() {
	if h.Number == nil {
		h.Number = new(uint256.Int)
	}
	if h.BaseFee == nil {
		h.BaseFee = new(uint256.Int)
	}
	if h.Difficulty == nil && h.Random == nil {
		h.Difficulty = new(uint256.Int)
	}
	if h.BlobBaseFee == nil {
		h.BlobBaseFee = new(uint256.Int)
	}
}

// Envelope is a constructed, not-yet-applied transaction.
type Envelope struct {
	kind       Kind
	to         *common.Address // nil only for KindCreate
	data       []byte
	sender     common.Address
	value      *uint256.Int
	gasLimit   uint64
	gasFeeCap  *uint256.Int
	gasTipCap  *uint256.Int
	accessList []AccessTuple
	header     Header
}

func blank(kind Kind) *Envelope {
	return &Envelope{
		kind:      kind,
		value:     new(uint256.Int),
		gasFeeCap: new(uint256.Int),
		gasTipCap: new(uint256.Int),
	}
}

// Execute builds a call to an existing contract. When method is non-empty,
// the call data is keccak256(method)[:4] followed by args, the same
// selector-plus-arguments convention the original implementation's
// Solenoid::execute uses; an empty method sends args as raw calldata.
func Execute(to common.Address, method string, args []byte) *Envelope {
	e := blank(KindExecute)
	e.to = &to
	if method == "" {
		e.data = args
		return e
	}
	selector := crypto.Keccak256([]byte(method))[:4]
	data := make([]byte, 0, len(selector)+len(args))
	data = append(data, selector...)
	data = append(data, args...)
	e.data = data
	return e
}

// Create builds a contract-creation transaction from initCode.
func Create(initCode []byte) *Envelope {
	e := blank(KindCreate)
	e.data = initCode
	return e
}

// Transfer builds a plain value transfer with no calldata.
func Transfer(to common.Address, value *uint256.Int) *Envelope {
	e := blank(KindTransfer)
	e.to = &to
	e.value = value
	return e
}

func (e *Envelope) WithHeader(h Header) *Envelope { e.header = h; return e }
func (e *Envelope) WithSender(addr common.Address) *Envelope { e.sender = addr; return e }
func (e *Envelope) WithValue(v *uint256.Int) *Envelope { e.value = v; return e }

func (e *Envelope) WithGas(limit uint64, feeCap, tipCap *uint256.Int) *Envelope {
	e.gasLimit = limit
	e.gasFeeCap = feeCap
	e.gasTipCap = tipCap
	return e
}

func (e *Envelope) WithAccessList(list []AccessTuple) *Envelope { e.accessList = list; return e }

// Result is what Apply returns: the outcome of running one Envelope
// (spec.md §6's apply(cache) -> {return_data, reverted, tracer_events,
// gas_max, gas_used, gas_fee}).
type Result struct {
	ReturnData   []byte
	ContractAddr common.Address // set only for a successful KindCreate
	Reverted     bool
	Events       []tracer.Event
	GasMax       uint64
	GasUsed      uint64
	Refund       uint64 // the refund actually applied, after the EIP-3529 gasUsed/5 cap
	GasFee       *uint256.Int
	Err          error
}

// Apply runs the envelope against cache, recording every tracer-visible
// event into log (pass tracer.NoOp{} to skip bookkeeping), and returns the
// gas/outcome accounting. It implements spec.md §4.6's pipeline:
//
//  1. pre-warm the coinbase (EIP-3651), the sender, the recipient or the
//     about-to-be-derived contract address, and any explicit access list;
//  2. charge intrinsic gas up front;
//  3. derive the created address from the sender's current nonce, for a
//     creation;
//  4. run the call or creation through core/vm, which already owns the
//     CREATE code-size/deploy-gas discipline, then bump the sender's nonce
//     exactly once — nonces are never reverted for a valid transaction
//     even if execution fails;
//  5. cap the refund counter at gasUsed/5 (EIP-3529) and fold it in;
//  6. pay the block's priority fee to the coinbase;
//  7. debit the sender for gasUsed at the effective gas price.
func (e *Envelope) Apply(ctx context.Context, cache *state.Cache, log tracer.EventLog) (*Result, error) {
	// cache was built against its own context (it may have already cached
	// fetches made under a different deadline); check this call's context
	// up front so a caller that cancels before Apply even starts doesn't
	// pay for a run that's guaranteed to be thrown away.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = tracer.NoOp{}
	}
	hooks := tracer.Adapt(log)
	e.header.normalize()

	cache.WarmAddress(e.header.Coinbase)
	cache.WarmAddress(e.sender)

	isCreate := e.kind == KindCreate
	var to common.Address
	if e.to != nil {
		to = *e.to
		cache.WarmAddress(to)
	}

	accessAddrs, accessSlots := 0, 0
	for _, tuple := range e.accessList {
		accessAddrs++
		accessSlots += len(tuple.Slots)
		cache.WarmAddress(tuple.Address)
		for _, slot := range tuple.Slots {
			var key uint256.Int
			key.SetBytes(slot[:])
			cache.WarmSlot(tuple.Address, key)
		}
	}

	intrinsic := vm.IntrinsicGas(e.data, isCreate, accessAddrs, accessSlots)
	if intrinsic > e.gasLimit {
		return nil, fmt.Errorf("txbuilder: intrinsic gas %d exceeds gas limit %d", intrinsic, e.gasLimit)
	}
	gasAvailable := e.gasLimit - intrinsic

	nonce := cache.GetNonce(e.sender)
	var contractAddr common.Address
	if isCreate {
		contractAddr = vm.CreateAddress(e.sender, nonce)
		cache.WarmAddress(contractAddr)
	}

	chainConfig := &params.Mainnet
	evm := vm.NewEVM(e.blockContext(), e.txContext(accessAddrs, accessSlots), cache, chainConfig, vm.Config{
		ChainConfig: chainConfig,
		Tracer:      hooks,
	})

	var (
		ret      []byte
		leftOver uint64
		err      error
	)
	if isCreate {
		ret, contractAddr, leftOver, err = evm.Create(e.sender, e.data, gasAvailable, e.value)
	} else {
		ret, leftOver, err = evm.Call(e.sender, to, e.data, gasAvailable, e.value)
	}
	reverted := err != nil
	// Bumped only after the run, so evm.Create derives the address from the
	// same nonce as contractAddr above.
	cache.SetNonce(e.sender, nonce+1)

	// SELFDESTRUCT only marks an account during execution (core/vm never
	// moves balance or deletes state mid-frame, since a later revert in an
	// ancestor frame must still be able to undo it via the journal). Once
	// the whole transaction has committed, forward every marked account's
	// balance to its beneficiary and, per EIP-6780, purge accounts that
	// were also created within this same transaction.
	if !reverted {
		for addr, createdThisTx := range cache.SelfDestructed() {
			beneficiary := cache.Beneficiary(addr)
			transferValue(cache, addr, beneficiary, cache.GetBalance(addr))
			if createdThisTx {
				cache.Purge(addr)
			}
		}
	}

	// The refund cap (EIP-3529) is a fraction of gas used INCLUDING
	// intrinsic gas, not just the execution body — matching go-ethereum's
	// own state_transition.go, which measures gasUsed from the tx's full
	// initial gas down to whatever remains.
	preRefund := intrinsic + (gasAvailable - leftOver)
	var refund uint64
	if !reverted {
		refund = cache.GetRefund()
		if maxRefund := preRefund / params.RefundQuotientEIP3529; refund > maxRefund {
			refund = maxRefund
		}
	}
	gasUsed := preRefund - refund

	gasPrice := effectiveGasPrice(e.header.BaseFee, e.gasFeeCap, e.gasTipCap)
	tip := priorityFeePerGas(e.header.BaseFee, e.gasFeeCap, e.gasTipCap)
	if !tip.IsZero() {
		reward := new(uint256.Int).Mul(tip, uint256.NewInt(gasUsed))
		coinbaseBalance := cache.GetBalance(e.header.Coinbase)
		cache.SetBalance(e.header.Coinbase, new(uint256.Int).Add(coinbaseBalance, reward))
	}

	fee := new(uint256.Int).Mul(gasPrice, uint256.NewInt(gasUsed))
	senderBalance := cache.GetBalance(e.sender)
	if senderBalance.Cmp(fee) >= 0 {
		cache.SetBalance(e.sender, new(uint256.Int).Sub(senderBalance, fee))
	} else {
		cache.SetBalance(e.sender, new(uint256.Int))
	}

	if reverted {
		gethlog.Debug("transaction reverted", "sender", e.sender, "to", to, "gas_used", gasUsed, "err", err)
	}

	result := &Result{
		ReturnData: ret,
		Reverted:   reverted,
		Events:     log.Take(),
		GasMax:     e.gasLimit,
		GasUsed:    gasUsed,
		Refund:     refund,
		GasFee:     fee,
		Err:        err,
	}
	if isCreate && !reverted {
		result.ContractAddr = contractAddr
	}
	return result, nil
}

func (e *Envelope) blockContext() vm.BlockContext {
	return vm.BlockContext{
		CanTransfer: canTransfer,
		Transfer:    transferValue,
		GetHash:     func(uint64) common.Hash { return common.Hash{} },
		Coinbase:    e.header.Coinbase,
		GasLimit:    e.header.GasLimit,
		BlockNumber: e.header.Number,
		Time:        e.header.Time,
		Difficulty:  e.header.Difficulty,
		Random:      e.header.Random,
		BaseFee:     e.header.BaseFee,
		BlobBaseFee: e.header.BlobBaseFee,
	}
}

func (e *Envelope) txContext(accessAddrs, accessSlots int) vm.TxContext {
	return vm.TxContext{
		Origin:    e.sender,
		GasPrice:  effectiveGasPrice(e.header.BaseFee, e.gasFeeCap, e.gasTipCap),
		GasFeeCap: e.gasFeeCap,
		GasTipCap: e.gasTipCap,
		AccessListCost: uint64(accessAddrs)*params.TxAccessListAddressGas +
			uint64(accessSlots)*params.TxAccessListStorageKeyGas,
	}
}
