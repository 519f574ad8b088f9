package tracing

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// frame buffers every staged hook call made at one call depth, until that
// frame's OnExit reports whether it committed or reverted.
type frame struct {
	calls []func()
}

// journal wraps a *Hooks so that OnEnter/OnExit delimit frames and every
// other hook call is buffered into the current top frame rather than
// forwarded immediately. On OnExit, a reverted frame's buffered calls are
// dropped; a committed frame's calls are appended to its parent (or, at
// depth 0, replayed against the underlying hooks) — the "forked child,
// joined back with a bulk reverted flag" semantics of spec.md §6.
type journal struct {
	underlying *Hooks
	stack      []*frame
}

// WrapWithJournal builds a journaled Hooks around underlying: every hook
// that fires between an OnEnter and its matching OnExit is staged, and only
// replayed against underlying if that frame's OnExit reports reverted=false.
func WrapWithJournal(underlying *Hooks) (*Hooks, error) {
	if underlying == nil {
		return nil, errors.New("tracing: cannot journal a nil Hooks")
	}
	j := &journal{underlying: underlying, stack: []*frame{{}}}
	return j.build(), nil
}

func (j *journal) top() *frame { return j.stack[len(j.stack)-1] }

func (j *journal) stage(call func()) {
	f := j.top()
	f.calls = append(f.calls, call)
}

func (j *journal) onEnter(depth int, typ CallType, from, to common.Address, input []byte, gas uint64, value *big.Int) {
	j.stack = append(j.stack, &frame{})
	if j.underlying.OnEnter != nil {
		// OnEnter/OnExit are control events, not state mutations: they are
		// not themselves revert-sensitive (the tracer always learns that a
		// sub-call was attempted, win or lose), so forward immediately
		// rather than staging.
		j.underlying.OnEnter(depth, typ, from, to, input, gas, value)
	}
}

func (j *journal) onExit(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
	var f *frame
	if len(j.stack) > 1 {
		f = j.stack[len(j.stack)-1]
		j.stack = j.stack[:len(j.stack)-1]
	} else {
		f = j.stack[0]
		j.stack[0] = &frame{}
	}
	if j.underlying.OnExit != nil {
		j.underlying.OnExit(depth, output, gasUsed, err, reverted)
	}
	if reverted {
		return // drop every staged call this frame made
	}
	parent := j.top()
	parent.calls = append(parent.calls, f.calls...)
	if len(j.stack) == 1 {
		// Back at depth 0 with nothing left to wait on: flush now.
		for _, call := range parent.calls {
			call()
		}
		j.stack[0] = &frame{}
	}
}

// build wires each populated field of underlying into a staging closure of
// the matching signature. Written out per-field (not reflectively) so every
// hook's argument types stay checked at compile time.
func (j *journal) build() *Hooks {
	w := &Hooks{
		OnEnter: j.onEnter,
		OnExit:  j.onExit,
	}
	if j.underlying.OnTxStart != nil {
		w.OnTxStart = j.underlying.OnTxStart
	}
	if j.underlying.OnOpcode != nil {
		w.OnOpcode = func(pc uint64, op byte, name string, gas, cost uint64) {
			j.stage(func() { j.underlying.OnOpcode(pc, op, name, gas, cost) })
		}
	}
	if j.underlying.OnFault != nil {
		w.OnFault = func(pc uint64, op byte, name string, gas uint64, err error) {
			j.stage(func() { j.underlying.OnFault(pc, op, name, gas, err) })
		}
	}
	if j.underlying.OnBalanceChange != nil {
		w.OnBalanceChange = func(addr common.Address, prev, new *big.Int) {
			j.stage(func() { j.underlying.OnBalanceChange(addr, prev, new) })
		}
	}
	if j.underlying.OnNonceChange != nil {
		w.OnNonceChange = func(addr common.Address, prev, new uint64) {
			j.stage(func() { j.underlying.OnNonceChange(addr, prev, new) })
		}
	}
	if j.underlying.OnCodeChange != nil {
		w.OnCodeChange = func(addr common.Address, prevCodeHash common.Hash, prevCode []byte, codeHash common.Hash, code []byte) {
			j.stage(func() { j.underlying.OnCodeChange(addr, prevCodeHash, prevCode, codeHash, code) })
		}
	}
	if j.underlying.OnStorageChange != nil {
		w.OnStorageChange = func(addr common.Address, slot common.Hash, prev, new common.Hash) {
			j.stage(func() { j.underlying.OnStorageChange(addr, slot, prev, new) })
		}
	}
	if j.underlying.OnLog != nil {
		w.OnLog = func(addr common.Address, topics []common.Hash, data []byte) {
			j.stage(func() { j.underlying.OnLog(addr, topics, data) })
		}
	}
	if j.underlying.OnSelfDestruct != nil {
		w.OnSelfDestruct = func(addr, beneficiary common.Address, balance *big.Int) {
			j.stage(func() { j.underlying.OnSelfDestruct(addr, beneficiary, balance) })
		}
	}
	return w
}
