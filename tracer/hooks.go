package tracer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lazyevm/lazyevm/core/tracing"
	"github.com/lazyevm/lazyevm/word"
)

// Adapt builds a *tracing.Hooks that renders every live core/tracing
// callback into a structured Event and stages it through an EventLog's
// Fork/Join discipline, so events recorded by a frame that ultimately
// reverts come out with Reverted=true rather than as if they had
// succeeded — the "each event carries depth and reverted" contract spec.md
// §6 describes for the call-site builder's tracer_events output. root is
// the log the top-level call writes into directly; everything nested
// forks off it and joins back in on exit.
func Adapt(root EventLog) *tracing.Hooks {
	stack := []EventLog{root}
	top := func() EventLog { return stack[len(stack)-1] }

	push := func(kind Kind, depth int, fill func(*Event)) {
		e := Event{Kind: kind, Depth: depth}
		if fill != nil {
			fill(&e)
		}
		top().Push(e)
	}

	return &tracing.Hooks{
		OnEnter: func(depth int, typ tracing.CallType, from, to common.Address, input []byte, gas uint64, value *big.Int) {
			push(KindCall, depth, func(e *Event) {
				e.From, e.To, e.Data, e.Gas, e.Type = from, to, input, gas, typ
				if value != nil {
					e.Value = word.FromBig(value)
				}
			})
			stack = append(stack, top().Fork())
		},
		OnExit: func(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
			child := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top().Join(child, reverted)
			push(KindReturn, depth, func(e *Event) {
				e.Data, e.GasUsed, e.Reverted = output, gasUsed, reverted
				if err != nil {
					e.Message = err.Error()
				}
			})
		},
		OnOpcode: func(pc uint64, op byte, name string, gas, cost uint64) {
			push(KindOpCode, len(stack)-1, func(e *Event) {
				e.PC, e.Op, e.Name, e.Gas = pc, op, name, gas
			})
		},
		OnFault: func(pc uint64, op byte, name string, gas uint64, err error) {
			push(KindError, len(stack)-1, func(e *Event) {
				e.PC, e.Op, e.Name, e.Gas = pc, op, name, gas
				if err != nil {
					e.Message = err.Error()
				}
			})
		},
		OnBalanceChange: func(addr common.Address, prev, new *big.Int) {
			push(KindAccountSetValue, len(stack)-1, func(e *Event) {
				e.Address = addr
				if prev != nil {
					e.Val = word.FromBig(prev)
				}
				if new != nil {
					e.New = word.FromBig(new)
				}
			})
		},
		OnNonceChange: func(addr common.Address, prev, new uint64) {
			push(KindAccountSetNonce, len(stack)-1, func(e *Event) {
				e.Address, e.Nonce, e.NewNonce = addr, prev, new
			})
		},
		OnCodeChange: func(addr common.Address, prevHash common.Hash, prevCode []byte, hash common.Hash, code []byte) {
			push(KindAccountSetCode, len(stack)-1, func(e *Event) {
				e.Address, e.CodeHash, e.Code = addr, hash, code
			})
		},
		OnStorageChange: func(addr common.Address, slot common.Hash, prev, new common.Hash) {
			push(KindStatePut, len(stack)-1, func(e *Event) {
				e.Address = addr
				e.Key = word.FromBytes(slot[:])
				e.Val = word.FromBytes(prev[:])
				e.New = word.FromBytes(new[:])
			})
		},
		OnLog: func(addr common.Address, topics []common.Hash, data []byte) {
			push(KindLog, len(stack)-1, func(e *Event) {
				e.Address, e.Topics, e.Data = addr, topics, data
			})
		},
		OnSelfDestruct: func(addr, beneficiary common.Address, balance *big.Int) {
			push(KindSelfDestruct, len(stack)-1, func(e *Event) {
				e.Address, e.Beneficiary = addr, beneficiary
				if balance != nil {
					e.Balance = word.FromBig(balance)
				}
			})
		},
	}
}
