package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
	"github.com/lazyevm/lazyevm/core/tracing"
)

// CallType distinguishes the seven ways a frame can come into existence
// (spec.md §3's Context.call type).
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

func (t CallType) String() string {
	switch t {
	case CallTypeCall:
		return "CALL"
	case CallTypeCallCode:
		return "CALLCODE"
	case CallTypeDelegateCall:
		return "DELEGATECALL"
	case CallTypeStaticCall:
		return "STATICCALL"
	case CallTypeCreate:
		return "CREATE"
	case CallTypeCreate2:
		return "CREATE2"
	case CallTypePrecompile:
		return "PRECOMPILE"
	default:
		return "UNKNOWN"
	}
}

// Context is per-frame metadata that travels alongside the Evm machine
// state but is not itself mutated by opcode execution (spec.md §3).
type Context struct {
	Depth          int
	Type           CallType
	Origin         common.Address
	CodeOwner      common.Address
	CreatedAddress common.Address // zero unless Type is Create/Create2
	ReadOnly       bool
}

// Log is one LOG0..LOG4 emission, the shape recorded in the touch log and
// surfaced to callers via the tracer.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// StateDB is the lazy state cache's public contract as seen by the
// interpreter (spec.md §4.3). core/state.Cache implements it; vm does not
// import core/state directly, avoiding a cyclic dependency between the
// cache (which never needs to know about opcodes) and the interpreter
// (which needs the cache on every storage-touching opcode).
type StateDB interface {
	GetStorage(addr common.Address, key uint256.Int) uint256.Int
	// PutStorage writes new at key and returns the EIP-2200/3529 net-metering
	// gas cost and refund delta for the write, computed against the slot's
	// original (transaction-start) value that the cache alone tracks.
	PutStorage(addr common.Address, key, new uint256.Int) (gasCost uint64, refundDelta int64)
	GetTransient(addr common.Address, key uint256.Int) uint256.Int
	PutTransient(addr common.Address, key, new uint256.Int)

	GetBalance(addr common.Address) *uint256.Int
	SetBalance(addr common.Address, amount *uint256.Int)
	GetNonce(addr common.Address) uint64
	SetNonce(addr common.Address, nonce uint64)
	GetCode(addr common.Address) ([]byte, common.Hash)
	SetCode(addr common.Address, code []byte)

	WarmAddress(addr common.Address) (wasCold bool)
	IsWarm(addr common.Address) bool
	WarmSlot(addr common.Address, key uint256.Int) (wasCold bool)
	IsSlotWarm(addr common.Address, key uint256.Int) bool

	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)

	Checkpoint() int
	Commit(marker int)
	RevertTo(marker int)

	MarkSelfDestruct(addr, beneficiary common.Address)
	HasSelfDestructed(addr common.Address) bool

	AddRefund(delta int64)
	GetRefund() uint64

	AddLog(l Log)
}

// BlockContext carries block-wide values immutable across every
// transaction in the block (spec.md §3's TxContext "block header
// snapshot"), plus the two environment-supplied callbacks go-ethereum also
// threads through here: CanTransfer (balance check) and Transfer (the
// actual balance move), so the interpreter never needs its own notion of
// how a value transfer is applied.
type BlockContext struct {
	CanTransfer func(StateDB, common.Address, *uint256.Int) bool
	Transfer    func(StateDB, common.Address, common.Address, *uint256.Int)
	GetHash     func(blockNumber uint64) common.Hash

	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber *uint256.Int
	Time        uint64
	Difficulty  *uint256.Int // pre-Merge PoW difficulty
	Random      *common.Hash // post-Merge PREVRANDAO
	BaseFee     *uint256.Int
	BlobBaseFee *uint256.Int
}

// TxContext carries the transaction-wide parameters that do not change
// across the nested calls of a single transaction (spec.md §3).
type TxContext struct {
	Origin          common.Address
	GasPrice        *uint256.Int
	GasFeeCap       *uint256.Int
	GasTipCap       *uint256.Int
	BlobHashes      []common.Hash
	AccessListCost  uint64
}

// Config bundles the pieces of an EVM instance that are neither block- nor
// transaction-scoped: the fork configuration and a tracer hook.
type Config struct {
	ChainConfig *params.ChainConfig
	Tracer      *tracing.Hooks
	NoRecursion bool // disable CALL/CREATE; used by the fuzzer-style single-opcode tests
}

// EVM is the top-level execution environment shared, by pointer, across
// every frame of one transaction: the fork configuration, the block and
// transaction context, the state cache, and the current call depth. Each
// nested frame gets its own Contract/ScopeContext but reuses the same EVM
// (spec.md §9: "a stack of checkpoints ... rather than sharing a cache
// reference across frames" — the frames share the cache, not a copy of it).
type EVM struct {
	Context   BlockContext
	TxContext TxContext
	StateDB   StateDB

	chainConfig *params.ChainConfig
	interpreter *EVMInterpreter
	tracer      *tracing.Hooks

	depth int

	abort      bool // cooperative cancellation between opcodes, see spec.md §5
	callGasTemp uint64
}

// NewEVM constructs an EVM bound to one cache for the lifetime of one
// transaction.
func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, chainConfig *params.ChainConfig, config Config) *EVM {
	evm := &EVM{
		Context:     blockCtx,
		TxContext:   txCtx,
		StateDB:     statedb,
		chainConfig: chainConfig,
		tracer:      config.Tracer,
	}
	evm.interpreter = NewEVMInterpreter(evm, config)
	return evm
}

// Cancel requests that the running call abort at the next opcode boundary
// (spec.md §5: "cancellable only between opcodes").
func (evm *EVM) Cancel()          { evm.abort = true }
func (evm *EVM) Cancelled() bool  { return evm.abort }
func (evm *EVM) ChainConfig() *params.ChainConfig { return evm.chainConfig }
func (evm *EVM) Interpreter() *EVMInterpreter      { return evm.interpreter }

// Call executes the contract at addr as a plain CALL, optionally
// transferring value. It is the entry point both for top-level
// transactions and for the CALL opcode's sub-call.
func (evm *EVM) Call(caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	return evm.call(CallTypeCall, caller, addr, addr, input, gas, value, false)
}

// CallCode executes addr's code but with caller's storage/address in
// effect for SLOAD/SSTORE/BALANCE/SELFDESTRUCT.
func (evm *EVM) CallCode(caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	return evm.call(CallTypeCallCode, caller, caller, addr, input, gas, value, false)
}

// DelegateCall executes addr's code with both the storage context and the
// value/caller identity of the parent frame preserved.
func (evm *EVM) DelegateCall(caller common.Address, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	return evm.call(CallTypeDelegateCall, caller, caller, addr, input, gas, nil, false)
}

// StaticCall executes addr's code with every state-mutating opcode
// forbidden.
func (evm *EVM) StaticCall(caller common.Address, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	return evm.call(CallTypeStaticCall, caller, addr, addr, input, gas, nil, true)
}

func (evm *EVM) call(typ CallType, caller, self, codeOwner common.Address, input []byte, gas uint64, value *uint256.Int, readOnly bool) (ret []byte, leftOverGas uint64, err error) {
	if evm.tracer != nil && evm.tracer.OnEnter != nil {
		evm.tracer.OnEnter(evm.depth, tracing.CallType(typ), caller, self, input, gas, valueOrZero(value))
	}
	ret, leftOverGas, err = evm.callInner(typ, caller, self, codeOwner, input, gas, value, readOnly)
	if evm.tracer != nil && evm.tracer.OnExit != nil {
		evm.tracer.OnExit(evm.depth, ret, gas-leftOverGas, err, err != nil)
	}
	return ret, leftOverGas, err
}

func (evm *EVM) callInner(typ CallType, caller, self, codeOwner common.Address, input []byte, gas uint64, value *uint256.Int, readOnly bool) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	if value != nil && !value.IsZero() && !readOnly {
		if !evm.Context.CanTransfer(evm.StateDB, caller, value) {
			return nil, gas, ErrInsufficientBalance
		}
	}
	snapshot := evm.StateDB.Checkpoint()

	if typ == CallTypeCall && !evm.StateDB.Exist(self) {
		evm.StateDB.CreateAccount(self)
	}
	if value != nil && !value.IsZero() {
		evm.Context.Transfer(evm.StateDB, caller, self, value)
	}

	if p, ok := precompiles[self]; ok && typ != CallTypeCreate && typ != CallTypeCreate2 {
		ret, gasLeft, perr := runPrecompile(p, input, gas)
		if perr != nil {
			evm.StateDB.RevertTo(snapshot)
			return nil, 0, perr
		}
		evm.StateDB.Commit(snapshot)
		return ret, gasLeft, nil
	}

	code, codeHash := evm.resolveCode(codeOwner)
	if len(code) == 0 {
		evm.StateDB.Commit(snapshot)
		return nil, gas, nil
	}

	contract := NewContract(caller, self, value, gas)
	contract.SetCode(codeHash, code)
	contract.Input = input

	evm.depth++
	ret, err = evm.interpreter.Run(contract, input, readOnly || (typ == CallTypeStaticCall))
	evm.depth--

	if err != nil {
		evm.StateDB.RevertTo(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	} else {
		evm.StateDB.Commit(snapshot)
	}
	return ret, contract.Gas, err
}

// valueOrZero returns v, or a zero *big.Int if v is nil — DELEGATECALL and
// STATICCALL carry no value operand.
func valueOrZero(v *uint256.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v.ToBig()
}

// resolveCode fetches owner's code, following an EIP-7702 delegation
// prefix (0xef0100 || 20-byte target) if present (spec.md §4.5's CALL
// bullet). The storage context stays with owner; only the instruction
// stream is substituted.
func (evm *EVM) resolveCode(owner common.Address) ([]byte, common.Hash) {
	code, hash := evm.StateDB.GetCode(owner)
	if target, ok := delegationTarget(code); ok {
		return evm.StateDB.GetCode(target)
	}
	return code, hash
}

const delegationPrefixLen = 3
const delegationLen = delegationPrefixLen + common.AddressLength

var delegationPrefix = [delegationPrefixLen]byte{0xef, 0x01, 0x00}

func delegationTarget(code []byte) (common.Address, bool) {
	if len(code) != delegationLen {
		return common.Address{}, false
	}
	if code[0] != delegationPrefix[0] || code[1] != delegationPrefix[1] || code[2] != delegationPrefix[2] {
		return common.Address{}, false
	}
	return common.BytesToAddress(code[delegationPrefixLen:]), true
}

// Create deploys new contract code produced by running initCode, deriving
// the new address from sender+nonce.
func (evm *EVM) Create(caller common.Address, initCode []byte, gas uint64, value *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	nonce := evm.StateDB.GetNonce(caller)
	contractAddr = CreateAddress(caller, nonce)
	return evm.create(CallTypeCreate, caller, initCode, gas, value, contractAddr)
}

// Create2 deploys new contract code at an address derived from
// sender+salt+keccak256(initCode).
func (evm *EVM) Create2(caller common.Address, initCode []byte, gas uint64, value *uint256.Int, salt *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	contractAddr = CreateAddress2(caller, salt.Bytes32(), initCode)
	return evm.create(CallTypeCreate2, caller, initCode, gas, value, contractAddr)
}

func (evm *EVM) create(typ CallType, caller common.Address, initCode []byte, gas uint64, value *uint256.Int, addr common.Address) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	if evm.tracer != nil && evm.tracer.OnEnter != nil {
		evm.tracer.OnEnter(evm.depth, tracing.CallType(typ), caller, addr, initCode, gas, valueOrZero(value))
	}
	ret, contractAddr, leftOverGas, err = evm.createInner(typ, caller, initCode, gas, value, addr)
	if evm.tracer != nil && evm.tracer.OnExit != nil {
		evm.tracer.OnExit(evm.depth, ret, gas-leftOverGas, err, err != nil)
	}
	return ret, contractAddr, leftOverGas, err
}

func (evm *EVM) createInner(typ CallType, caller common.Address, initCode []byte, gas uint64, value *uint256.Int, addr common.Address) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	contractAddr = addr
	if evm.depth > int(params.CallCreateDepth) {
		return nil, contractAddr, gas, ErrDepth
	}
	if value != nil && !value.IsZero() && !evm.Context.CanTransfer(evm.StateDB, caller, value) {
		return nil, contractAddr, gas, ErrInsufficientBalance
	}
	if uint64(len(initCode)) > params.MaxInitCodeSize {
		return nil, contractAddr, gas, ErrMaxInitCodeSizeExceeded
	}

	if evm.StateDB.Exist(contractAddr) {
		if codeLen, _ := evm.StateDB.GetCode(contractAddr); len(codeLen) > 0 {
			return nil, contractAddr, 0, ErrContractAddressCollision
		}
	}

	snapshot := evm.StateDB.Checkpoint()
	evm.StateDB.CreateAccount(contractAddr)
	evm.StateDB.SetNonce(contractAddr, 1)
	if value != nil && !value.IsZero() {
		evm.Context.Transfer(evm.StateDB, caller, contractAddr, value)
	}

	contract := NewContract(caller, contractAddr, value, gas)
	contract.SetCode(EmptyCodeHash, initCode)

	evm.depth++
	ret, err = evm.interpreter.Run(contract, nil, false)
	evm.depth--

	if err == nil && len(ret) > 0 && ret[0] == 0xEF {
		err = ErrInvalidCode
	}
	if err == nil {
		createDataGas := uint64(len(ret)) * params.CreateDataGas
		if uint64(len(ret)) > uint64(params.MaxCodeSize) {
			err = ErrMaxCodeSizeExceeded
		} else if contract.Gas < createDataGas {
			err = ErrCodeStoreOutOfGas
		} else {
			contract.Gas -= createDataGas
			evm.StateDB.SetCode(contractAddr, ret)
		}
	}

	if err != nil {
		evm.StateDB.RevertTo(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
		return nil, contractAddr, contract.Gas, err
	}
	evm.StateDB.Commit(snapshot)
	return ret, contractAddr, contract.Gas, nil
}

