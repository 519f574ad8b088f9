package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
)

// opCreate and opCreate2 share almost everything but the address-derivation
// formula and the presence of a salt operand, so the handlers below only
// differ in how they read their stack operands before calling into the
// shared evm.Create/evm.Create2 entry points and pushCreateResult.

func opCreate(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if interpreter.readOnly {
		return nil, ErrWriteProtection
	}
	value, offset, size := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	off, sz, err := mustMemArgs(&offset, &size)
	if err != nil {
		return nil, err
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(params.CreateGas+initCodeWordCost(sz), "CREATE"); err != nil {
		return nil, err
	}
	initCode := scope.Memory.GetCopy(int64(off), int64(sz))
	gas := callGasStipend(scope.Contract.Gas)
	scope.Contract.Gas -= gas

	ret, addr, leftOver, createErr := interpreter.evm.Create(scope.Contract.Address, initCode, gas, &value)
	pushCreateResult(scope, addr, createErr)
	scope.Contract.RefundGas(leftOver)
	interpreter.returnData = ret
	*pc++
	return nil, nil
}

func opCreate2(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if interpreter.readOnly {
		return nil, ErrWriteProtection
	}
	value, offset, size, salt := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	off, sz, err := mustMemArgs(&offset, &size)
	if err != nil {
		return nil, err
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	words := toWordSize(sz)
	if err := scope.Contract.UseGas(params.CreateGas+initCodeWordCost(sz)+words*params.Keccak256WordGas, "CREATE2"); err != nil {
		return nil, err
	}
	initCode := scope.Memory.GetCopy(int64(off), int64(sz))
	gas := callGasStipend(scope.Contract.Gas)
	scope.Contract.Gas -= gas

	ret, addr, leftOver, createErr := interpreter.evm.Create2(scope.Contract.Address, initCode, gas, &value, &salt)
	pushCreateResult(scope, addr, createErr)
	scope.Contract.RefundGas(leftOver)
	interpreter.returnData = ret
	*pc++
	return nil, nil
}

// initCodeWordCost is EIP-3860's per-word surcharge on the init-code being
// submitted to CREATE/CREATE2, independent of the eventual deployed-code cost.
func initCodeWordCost(size uint64) uint64 { return toWordSize(size) * params.InitCodeWordGas }

// callGasStipend returns the gas forwarded to CREATE/CREATE2: all but
// 1/64th of what remains, per EIP-150 — CREATE has no explicit gas operand.
func callGasStipend(available uint64) uint64 { return available - available/64 }

func pushCreateResult(scope *ScopeContext, addr common.Address, err error) {
	if err != nil {
		scope.Stack.push(new(uint256.Int))
		return
	}
	scope.Stack.push(new(uint256.Int).SetBytes(addr.Bytes()))
}

// --- CALL family --------------------------------------------------------

func opCall(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return doCall(pc, interpreter, scope, CallTypeCall)
}

func opCallCode(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return doCall(pc, interpreter, scope, CallTypeCallCode)
}

func opDelegateCall(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return doCall(pc, interpreter, scope, CallTypeDelegateCall)
}

func opStaticCall(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return doCall(pc, interpreter, scope, CallTypeStaticCall)
}

// doCall implements the shared CALL/CALLCODE/DELEGATECALL/STATICCALL body:
// the four opcodes differ only in their stack shape (DELEGATECALL and
// STATICCALL carry no value operand) and in which EVM entry point they
// eventually call.
func doCall(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext, typ CallType) ([]byte, error) {
	hasValue := typ == CallTypeCall || typ == CallTypeCallCode

	gasWord := scope.Stack.pop()
	addrWord := scope.Stack.pop()
	var value uint256.Int
	if hasValue {
		value = scope.Stack.pop()
	}
	inOffset, inSize := scope.Stack.pop(), scope.Stack.pop()
	outOffset, outSize := scope.Stack.pop(), scope.Stack.pop()

	addr := common.Address(addrWord.Bytes20())

	inOff, inSz, err := mustMemArgs(&inOffset, &inSize)
	if err != nil {
		return nil, err
	}
	outOff, outSz, err := mustMemArgs(&outOffset, &outSize)
	if err != nil {
		return nil, err
	}
	if inSz > 0 {
		if err := chargeMemory(scope.Contract, scope.Memory, inOff, inSz); err != nil {
			return nil, err
		}
	}
	if outSz > 0 {
		if err := chargeMemory(scope.Contract, scope.Memory, outOff, outSz); err != nil {
			return nil, err
		}
	}

	coldSurcharge := uint64(0)
	if interpreter.evm.StateDB.WarmAddress(addr) {
		coldSurcharge = params.ColdAccountAccessCostEIP2929
	} else {
		coldSurcharge = params.WarmStorageReadCostEIP2929
	}
	if err := scope.Contract.UseGas(coldSurcharge, "CALL cold/warm surcharge"); err != nil {
		return nil, err
	}

	transfersValue := hasValue && !value.IsZero()
	valueTransferCost := uint64(0)
	newAccountCost := uint64(0)
	if transfersValue {
		valueTransferCost = params.CallValueTransferGas
		if typ == CallTypeCall && !interpreter.evm.StateDB.Exist(addr) {
			newAccountCost = params.CallNewAccountGas
		}
	}
	if err := scope.Contract.UseGas(valueTransferCost+newAccountCost, "CALL value/new-account"); err != nil {
		return nil, err
	}

	gas, err := callGas(true, scope.Contract.Gas, 0, &gasWord)
	if err != nil {
		return nil, err
	}
	if gas > scope.Contract.Gas {
		gas = scope.Contract.Gas
	}
	scope.Contract.Gas -= gas
	if transfersValue {
		gas += params.CallStipend
	}

	args := scope.Memory.GetCopy(int64(inOff), int64(inSz))

	var (
		ret      []byte
		leftOver uint64
		callErr  error
	)
	switch typ {
	case CallTypeCall:
		ret, leftOver, callErr = interpreter.evm.Call(scope.Contract.Address, addr, args, gas, &value)
	case CallTypeCallCode:
		ret, leftOver, callErr = interpreter.evm.CallCode(scope.Contract.Address, addr, args, gas, &value)
	case CallTypeDelegateCall:
		ret, leftOver, callErr = interpreter.evm.DelegateCall(scope.Contract.CallerAddress, addr, args, gas)
	case CallTypeStaticCall:
		ret, leftOver, callErr = interpreter.evm.StaticCall(scope.Contract.Address, addr, args, gas)
	}
	scope.Contract.RefundGas(leftOver)

	if callErr != nil {
		scope.Stack.push(new(uint256.Int))
	} else {
		scope.Stack.push(new(uint256.Int).SetOne())
	}
	interpreter.returnData = ret
	if outSz > 0 {
		copySize := uint64(len(ret))
		if copySize > outSz {
			copySize = outSz
		}
		scope.Memory.Set(outOff, copySize, ret[:copySize])
	}
	*pc++
	return nil, nil
}

// --- RETURN / REVERT / INVALID / SELFDESTRUCT --------------------------

func opReturn(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.pop()
	off, sz, err := mustMemArgs(&offset, &size)
	if err != nil {
		return nil, err
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	data := scope.Memory.GetCopy(int64(off), int64(sz))
	return nil, &halt{data: data, reverted: false}
}

func opRevert(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.pop()
	off, sz, err := mustMemArgs(&offset, &size)
	if err != nil {
		return nil, err
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	data := scope.Memory.GetCopy(int64(off), int64(sz))
	return nil, &halt{data: data, reverted: true}
}

func opInvalid(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return nil, ErrInvalidOpCode
}

func opSelfdestruct(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if interpreter.readOnly {
		return nil, ErrWriteProtection
	}
	beneficiaryWord := scope.Stack.pop()
	beneficiary := common.Address(beneficiaryWord.Bytes20())

	gasCost := params.SelfdestructGas
	if interpreter.evm.StateDB.WarmAddress(beneficiary) {
		gasCost += params.ColdAccountAccessCostEIP2929
	}
	balance := interpreter.evm.StateDB.GetBalance(scope.Contract.Address)
	if !balance.IsZero() && !interpreter.evm.StateDB.Exist(beneficiary) {
		gasCost += params.CallNewAccountGas
	}
	if err := scope.Contract.UseGas(gasCost, "SELFDESTRUCT"); err != nil {
		return nil, err
	}

	interpreter.evm.StateDB.MarkSelfDestruct(scope.Contract.Address, beneficiary)
	if t := interpreter.evm.tracer; t != nil && t.OnSelfDestruct != nil {
		t.OnSelfDestruct(scope.Contract.Address, beneficiary, balance.ToBig())
	}
	return nil, &halt{data: nil, reverted: false}
}
