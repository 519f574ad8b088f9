package vm

// ScopeContext groups the three pieces of state an opcode handler needs
// beyond the EVM/interpreter pointers: the stack, the memory, and the
// contract whose code is running (spec.md §9: "flatten into two value
// types — Evm (machine state) and Context (frame metadata)" — ScopeContext
// is the machine-state half, passed by pointer into every handler).
type ScopeContext struct {
	Memory   *Memory
	Stack    *Stack
	Contract *Contract
}

// EVMInterpreter runs one frame's instruction stream against one
// ScopeContext. It is rebuilt fresh per-EVM (not per-frame): the jump
// table and fork configuration never change mid-transaction.
type EVMInterpreter struct {
	evm   *EVM
	table *JumpTable

	readOnly   bool   // STATICCALL write-protection for this frame and its children
	returnData []byte // the most recent sub-call's return data (spec.md §3)
}

// NewEVMInterpreter builds the interpreter for evm, selecting the jump
// table for the active fork configuration.
func NewEVMInterpreter(evm *EVM, cfg Config) *EVMInterpreter {
	return &EVMInterpreter{
		evm:   evm,
		table: newJumpTable(cfg.ChainConfig),
	}
}

// halt is a private sentinel: opStop/opReturn/opRevert signal "stop
// dispatching, frame is over" by returning it instead of nil, so the
// dispatch loop's only job is "keep going until an error shows up".
type halt struct {
	data     []byte
	reverted bool
}

func (h *halt) Error() string { return "halt" }

// Run executes contract's code from pc=0 until it halts, reverts, or
// faults. readOnly, once true for a frame, is irrevocably true for every
// opcode in that frame (STATICCALL's write-protection, spec.md §4.5).
func (in *EVMInterpreter) Run(contract *Contract, input []byte, readOnly bool) ([]byte, error) {
	prevReadOnly := in.readOnly
	if readOnly && !in.readOnly {
		in.readOnly = true
		defer func() { in.readOnly = prevReadOnly }()
	}

	in.returnData = nil
	contract.Input = input

	mem := NewMemory()
	stack := newstack()
	scope := &ScopeContext{Memory: mem, Stack: stack, Contract: contract}

	bc := contract.asRunnable()

	pc := uint64(0)
	for {
		if in.evm.Cancelled() {
			return nil, ErrExecutionReverted
		}
		inst, _, ok := bc.InstructionAt(pc)
		if !ok {
			// Falling off the end of the code (or onto a mid-PUSH byte,
			// which can only happen via a forged jump) behaves as an
			// implicit STOP: go-ethereum's own interpreter treats running
			// past the last instruction as success with no return data.
			return nil, nil
		}
		op := inst.Op
		entry := in.table[op]
		if !entry.valid {
			return nil, ErrInvalidOpCode
		}
		if in.readOnly && (isStateMutating(op) || isCallWithValue(op, stack)) {
			return nil, ErrWriteProtection
		}

		gasBefore := contract.Gas
		ret, err := entry.execute(&pc, in, scope)

		if t := in.evm.tracer; t != nil && t.OnOpcode != nil {
			t.OnOpcode(inst.Offset, byte(op), op.String(), contract.Gas, gasBefore-contract.Gas)
		}
		if err == nil && stack.len() > stackLimit {
			err = NewStackError(op.String(), stackLimit, stack.len(), nil)
		}
		if err == nil {
			continue
		}
		if h, isHalt := err.(*halt); isHalt {
			if h.reverted {
				return h.data, ErrExecutionReverted
			}
			return h.data, nil
		}
		if t := in.evm.tracer; t != nil && t.OnFault != nil {
			t.OnFault(inst.Offset, byte(op), op.String(), contract.Gas, err)
		}
		return ret, err
	}
}

// isStateMutating reports whether op is unconditionally forbidden inside a
// STATICCALL subtree (spec.md §4.5's STATICCALL bullet).
func isStateMutating(op OpCode) bool {
	switch op {
	case SSTORE, LOG0, LOG1, LOG2, LOG3, LOG4, CREATE, CREATE2, SELFDESTRUCT:
		return true
	default:
		return false
	}
}

// isCallWithValue reports whether op is CALL or CALLCODE carrying a
// nonzero value operand — the one state mutation a STATICCALL subtree
// forbids that isn't visible from the opcode alone.
func isCallWithValue(op OpCode, stack *Stack) bool {
	if op != CALL && op != CALLCODE {
		return false
	}
	if stack.len() < 3 {
		return false
	}
	return !stack.back(2).IsZero()
}
