package vm

import "github.com/lazyevm/lazyevm/core/params"

// executionFunc is the shape every opcode handler satisfies. Each handler
// owns its own stack/gas/memory bookkeeping (spec.md §4.5): it is handed
// the program counter, the interpreter (for chain config, the cache, and
// the return-data buffer) and the current frame's scope (stack, memory,
// contract).
type executionFunc func(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error)

// operation is one jump-table entry: whether the opcode is enabled under
// the active fork configuration, and the handler to run.
type operation struct {
	execute executionFunc
	valid   bool
}

// JumpTable is a dense array indexed by opcode byte. Dispatch is a single
// slice lookup, the same shape the teacher uses, but entries here carry no
// separate static-gas/min-stack/max-stack/memory-size fields: those checks
// live inside each handler (see instructions.go), which keeps the dispatch
// table itself trivial to regenerate per fork.
type JumpTable [256]operation

// newJumpTable builds the opcode table gated by cfg's fork flags. Opcodes
// introduced by a later fork are left with valid=false under an earlier
// configuration, causing the interpreter to fail them as ErrInvalidOpCode
// exactly like a byte the decoder never recognised.
func newJumpTable(cfg *params.ChainConfig) *JumpTable {
	var jt JumpTable

	set := func(op OpCode, fn executionFunc) { jt[op] = operation{execute: fn, valid: true} }

	// Arithmetic & comparison, 0x00-0x1D — always present.
	set(STOP, opStop)
	set(ADD, opAdd)
	set(MUL, opMul)
	set(SUB, opSub)
	set(DIV, opDiv)
	set(SDIV, opSdiv)
	set(MOD, opMod)
	set(SMOD, opSmod)
	set(ADDMOD, opAddmod)
	set(MULMOD, opMulmod)
	set(EXP, opExp)
	set(SIGNEXTEND, opSignExtend)
	set(LT, opLt)
	set(GT, opGt)
	set(SLT, opSlt)
	set(SGT, opSgt)
	set(EQ, opEq)
	set(ISZERO, opIszero)
	set(AND, opAnd)
	set(OR, opOr)
	set(XOR, opXor)
	set(NOT, opNot)
	set(BYTE, opByte)
	set(SHL, opSHL)
	set(SHR, opSHR)
	set(SAR, opSAR)

	set(KECCAK256, opKeccak256)

	set(ADDRESS, opAddress)
	set(BALANCE, opBalance)
	set(ORIGIN, opOrigin)
	set(CALLER, opCaller)
	set(CALLVALUE, opCallValue)
	set(CALLDATALOAD, opCallDataLoad)
	set(CALLDATASIZE, opCallDataSize)
	set(CALLDATACOPY, opCallDataCopy)
	set(CODESIZE, opCodeSize)
	set(CODECOPY, opCodeCopy)
	set(GASPRICE, opGasPrice)
	set(EXTCODESIZE, opExtCodeSize)
	set(EXTCODECOPY, opExtCodeCopy)
	set(RETURNDATASIZE, opReturnDataSize)
	set(RETURNDATACOPY, opReturnDataCopy)
	set(EXTCODEHASH, opExtCodeHash)
	set(BLOCKHASH, opBlockHash)
	set(COINBASE, opCoinbase)
	set(TIMESTAMP, opTimestamp)
	set(NUMBER, opNumber)
	set(DIFFICULTY, opDifficulty)
	set(GASLIMIT, opGasLimit)
	set(SELFBALANCE, opSelfBalance)
	if cfg.IsLondon {
		set(BASEFEE, opBaseFee)
	}
	if cfg.IsCancun {
		set(BLOBHASH, opBlobHash)
		set(BLOBBASEFEE, opBlobBaseFee)
	}
	set(CHAINID, opChainID)

	set(POP, opPop)
	set(MLOAD, opMload)
	set(MSTORE, opMstore)
	set(MSTORE8, opMstore8)
	set(SLOAD, opSload)
	set(SSTORE, opSstore)
	set(JUMP, opJump)
	set(JUMPI, opJumpi)
	set(PC, opPc)
	set(MSIZE, opMsize)
	set(GAS, opGas)
	set(JUMPDEST, opJumpdest)
	if cfg.IsCancun {
		set(TLOAD, opTload)
		set(TSTORE, opTstore)
		set(MCOPY, opMcopy)
	}
	if cfg.IsShanghai {
		set(PUSH0, opPush0)
	}

	for i := 1; i <= 32; i++ {
		set(OpCode(int(PUSH1)+i-1), makePush(uint64(i)))
	}
	for i := 1; i <= 16; i++ {
		set(OpCode(int(DUP1)+i-1), makeDup(i))
	}
	for i := 1; i <= 16; i++ {
		set(OpCode(int(SWAP1)+i-1), makeSwap(i))
	}
	for i := 0; i <= 4; i++ {
		set(OpCode(int(LOG0)+i), makeLog(i))
	}

	set(CREATE, opCreate)
	set(CALL, opCall)
	set(CALLCODE, opCallCode)
	set(RETURN, opReturn)
	set(DELEGATECALL, opDelegateCall)
	set(CREATE2, opCreate2)
	set(STATICCALL, opStaticCall)
	set(REVERT, opRevert)
	set(INVALID, opInvalid)
	set(SELFDESTRUCT, opSelfdestruct)

	return &jt
}
