package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
)

// Every handler below follows the same shape: pop its operands off
// scope.Stack, charge whatever dynamic gas its own effects require (static
// gas already having been implicitly covered by the caller via the
// handler's own contract.UseGas calls), push its result, and advance *pc —
// *pc++ for everything except JUMP/JUMPI, which set *pc directly, and the
// halting opcodes, which never reach the increment.

// --- 0x00-0x0B arithmetic ----------------------------------------------------

func opStop(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return nil, &halt{}
}

func opAdd(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "ADD"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Add(&x, y)
	*pc++
	return nil, nil
}

func opMul(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastStep, "MUL"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Mul(&x, y)
	*pc++
	return nil, nil
}

func opSub(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "SUB"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Sub(&x, y)
	*pc++
	return nil, nil
}

func opDiv(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastStep, "DIV"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Div(&x, y)
	*pc++
	return nil, nil
}

func opSdiv(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastStep, "SDIV"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.SDiv(&x, y)
	*pc++
	return nil, nil
}

func opMod(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastStep, "MOD"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Mod(&x, y)
	*pc++
	return nil, nil
}

func opSmod(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastStep, "SMOD"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.SMod(&x, y)
	*pc++
	return nil, nil
}

func opAddmod(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasMidStep, "ADDMOD"); err != nil {
		return nil, err
	}
	x, y, z := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.peek()
	z.AddMod(&x, &y, z)
	*pc++
	return nil, nil
}

func opMulmod(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasMidStep, "MULMOD"); err != nil {
		return nil, err
	}
	x, y, z := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.peek()
	z.MulMod(&x, &y, z)
	*pc++
	return nil, nil
}

func opExp(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	base, exponent := scope.Stack.pop(), scope.Stack.peek()
	byteLen := (exponent.BitLen() + 7) / 8
	gasCost := GasSlowStep + uint64(byteLen)*50 // EIP-160: 50 gas per exponent byte
	if err := scope.Contract.UseGas(gasCost, "EXP"); err != nil {
		return nil, err
	}
	exponent.Exp(&base, exponent)
	*pc++
	return nil, nil
}

func opSignExtend(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastStep, "SIGNEXTEND"); err != nil {
		return nil, err
	}
	back, num := scope.Stack.pop(), scope.Stack.peek()
	num.ExtendSign(num, &back)
	*pc++
	return nil, nil
}

// --- 0x10-0x1D comparison & bitwise -----------------------------------------

func opLt(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "LT"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	*pc++
	return nil, nil
}

func opGt(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "GT"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	*pc++
	return nil, nil
}

func opSlt(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "SLT"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	*pc++
	return nil, nil
}

func opSgt(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "SGT"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	*pc++
	return nil, nil
}

func opEq(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "EQ"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	*pc++
	return nil, nil
}

func opIszero(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "ISZERO"); err != nil {
		return nil, err
	}
	x := scope.Stack.peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	*pc++
	return nil, nil
}

func opAnd(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "AND"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.And(&x, y)
	*pc++
	return nil, nil
}

func opOr(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "OR"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Or(&x, y)
	*pc++
	return nil, nil
}

func opXor(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "XOR"); err != nil {
		return nil, err
	}
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Xor(&x, y)
	*pc++
	return nil, nil
}

func opNot(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "NOT"); err != nil {
		return nil, err
	}
	x := scope.Stack.peek()
	x.Not(x)
	*pc++
	return nil, nil
}

func opByte(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "BYTE"); err != nil {
		return nil, err
	}
	th, val := scope.Stack.pop(), scope.Stack.peek()
	val.Byte(&th)
	*pc++
	return nil, nil
}

func opSHL(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "SHL"); err != nil {
		return nil, err
	}
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	*pc++
	return nil, nil
}

func opSHR(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "SHR"); err != nil {
		return nil, err
	}
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	*pc++
	return nil, nil
}

func opSAR(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "SAR"); err != nil {
		return nil, err
	}
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.SRsh(value, uint(shift.Uint64()))
	} else if value.Sign() >= 0 {
		value.Clear()
	} else {
		value.SetAllOne()
	}
	*pc++
	return nil, nil
}

// --- 0x20 KECCAK256 ----------------------------------------------------------

func opKeccak256(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.peek()
	off, sz, err := mustMemArgs(&offset, size)
	if err != nil {
		return nil, err
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	words := toWordSize(sz)
	if err := scope.Contract.UseGas(params.Keccak256Gas+words*params.Keccak256WordGas, "KECCAK256"); err != nil {
		return nil, err
	}
	data := scope.Memory.GetPtr(int64(off), int64(sz))
	size.SetBytes(crypto.Keccak256(data))
	*pc++
	return nil, nil
}

// mustMemArgs converts a (offset, size) stack pair to uint64s, treating
// either operand not fitting in 64 bits as an immediate out-of-gas fault
// (no real contract can afford memory that large).
func mustMemArgs(offset, size *uint256.Int) (uint64, uint64, error) {
	if size.IsZero() {
		return 0, 0, nil
	}
	if !offset.IsUint64() || !size.IsUint64() {
		return 0, 0, ErrGasUintOverflow
	}
	return offset.Uint64(), size.Uint64(), nil
}

// chargeMemory grows mem to cover [offset, offset+size) and charges the
// incremental quadratic expansion cost, the shared step behind every
// opcode that touches a memory range.
func chargeMemory(c *Contract, mem *Memory, offset, size uint64) error {
	if size == 0 {
		return nil
	}
	cost, err := memoryGasCostFor(mem, offset, size)
	if err != nil {
		return err
	}
	if err := c.UseGas(cost, "memory expansion"); err != nil {
		return err
	}
	mem.Resize(toWordSize(offset+size) * 32)
	return nil
}

// --- 0x30-0x4A environmental & block information ----------------------------

func opAddress(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "ADDRESS"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetBytes(scope.Contract.Address.Bytes()))
	*pc++
	return nil, nil
}

func opBalance(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := common.Address(slot.Bytes20())
	if err := chargeAccountAccess(scope.Contract, interpreter.evm.StateDB, addr); err != nil {
		return nil, err
	}
	slot.Set(interpreter.evm.StateDB.GetBalance(addr))
	*pc++
	return nil, nil
}

// chargeAccountAccess charges EIP-2929's cold/warm surcharge for touching
// addr, beyond the GasQuickStep the opcode already folds into its static
// cost in go-ethereum's table but is charged explicitly here instead.
func chargeAccountAccess(c *Contract, db StateDB, addr common.Address) error {
	if db.WarmAddress(addr) {
		return c.UseGas(params.ColdAccountAccessCostEIP2929, "cold account access")
	}
	return c.UseGas(params.WarmStorageReadCostEIP2929, "warm account access")
}

func opOrigin(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "ORIGIN"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetBytes(interpreter.evm.TxContext.Origin.Bytes()))
	*pc++
	return nil, nil
}

func opCaller(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "CALLER"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetBytes(scope.Contract.CallerAddress.Bytes()))
	*pc++
	return nil, nil
}

func opCallValue(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "CALLVALUE"); err != nil {
		return nil, err
	}
	v := scope.Contract.Value()
	if v == nil {
		v = new(uint256.Int)
	}
	scope.Stack.push(new(uint256.Int).Set(v))
	*pc++
	return nil, nil
}

func opCallDataLoad(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "CALLDATALOAD"); err != nil {
		return nil, err
	}
	x := scope.Stack.peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		data := getData(scope.Contract.Input, offset, 32)
		x.SetBytes(data)
	} else {
		x.Clear()
	}
	*pc++
	return nil, nil
}

// getData returns size bytes of src starting at offset, zero-padded at
// either end — the shared "slice that never goes out of bounds" helper
// used by every CALLDATA*/CODE* opcode.
func getData(src []byte, offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(src)) {
		return out
	}
	end := offset + size
	if end > uint64(len(src)) {
		end = uint64(len(src))
	}
	copy(out, src[offset:end])
	return out
}

func opCallDataSize(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "CALLDATASIZE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(scope.Contract.Input))))
	*pc++
	return nil, nil
}

func opCallDataCopy(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, dataOffset, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	off, sz, err := mustMemArgs(&memOffset, &length)
	if err != nil {
		return nil, err
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(GasFastestStep+toWordSize(sz)*params.CopyGas, "CALLDATACOPY"); err != nil {
		return nil, err
	}
	dOff, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dOff = ^uint64(0)
	}
	scope.Memory.Set(off, sz, getData(scope.Contract.Input, dOff, sz))
	*pc++
	return nil, nil
}

func opCodeSize(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "CODESIZE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(scope.Contract.Code))))
	*pc++
	return nil, nil
}

func opCodeCopy(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, codeOffset, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	off, sz, err := mustMemArgs(&memOffset, &length)
	if err != nil {
		return nil, err
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(GasFastestStep+toWordSize(sz)*params.CopyGas, "CODECOPY"); err != nil {
		return nil, err
	}
	cOff, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		cOff = ^uint64(0)
	}
	scope.Memory.Set(off, sz, getData(scope.Contract.Code, cOff, sz))
	*pc++
	return nil, nil
}

func opGasPrice(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "GASPRICE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).Set(interpreter.evm.TxContext.GasPrice))
	*pc++
	return nil, nil
}

func opExtCodeSize(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := common.Address(slot.Bytes20())
	if err := chargeAccountAccess(scope.Contract, interpreter.evm.StateDB, addr); err != nil {
		return nil, err
	}
	code, _ := interpreter.evm.StateDB.GetCode(addr)
	slot.SetUint64(uint64(len(code)))
	*pc++
	return nil, nil
}

func opExtCodeCopy(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	addrWord, memOffset, codeOffset, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	addr := common.Address(addrWord.Bytes20())
	if err := chargeAccountAccess(scope.Contract, interpreter.evm.StateDB, addr); err != nil {
		return nil, err
	}
	off, sz, err := mustMemArgs(&memOffset, &length)
	if err != nil {
		return nil, err
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(GasFastestStep+toWordSize(sz)*params.CopyGas, "EXTCODECOPY"); err != nil {
		return nil, err
	}
	cOff, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		cOff = ^uint64(0)
	}
	code, _ := interpreter.evm.StateDB.GetCode(addr)
	scope.Memory.Set(off, sz, getData(code, cOff, sz))
	*pc++
	return nil, nil
}

func opReturnDataSize(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "RETURNDATASIZE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(interpreter.returnData))))
	*pc++
	return nil, nil
}

func opReturnDataCopy(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	memOffset, dataOffset, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	off, sz, err := mustMemArgs(&memOffset, &length)
	if err != nil {
		return nil, err
	}
	dOff, overflow := dataOffset.Uint64WithOverflow()
	if overflow || dOff+sz > uint64(len(interpreter.returnData)) || dOff+sz < dOff {
		return nil, ErrReturnDataOutOfBounds
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(GasFastestStep+toWordSize(sz)*params.CopyGas, "RETURNDATACOPY"); err != nil {
		return nil, err
	}
	scope.Memory.Set(off, sz, interpreter.returnData[dOff:dOff+sz])
	*pc++
	return nil, nil
}

func opExtCodeHash(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := common.Address(slot.Bytes20())
	if err := chargeAccountAccess(scope.Contract, interpreter.evm.StateDB, addr); err != nil {
		return nil, err
	}
	if !interpreter.evm.StateDB.Exist(addr) {
		slot.Clear()
		*pc++
		return nil, nil
	}
	_, hash := interpreter.evm.StateDB.GetCode(addr)
	slot.SetBytes(hash.Bytes())
	*pc++
	return nil, nil
}

func opBlockHash(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasExtStep, "BLOCKHASH"); err != nil {
		return nil, err
	}
	num := scope.Stack.peek()
	if !num.IsUint64() {
		num.Clear()
		*pc++
		return nil, nil
	}
	num.SetBytes(interpreter.evm.Context.GetHash(num.Uint64()).Bytes())
	*pc++
	return nil, nil
}

func opCoinbase(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "COINBASE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetBytes(interpreter.evm.Context.Coinbase.Bytes()))
	*pc++
	return nil, nil
}

func opTimestamp(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "TIMESTAMP"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(interpreter.evm.Context.Time))
	*pc++
	return nil, nil
}

func opNumber(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "NUMBER"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).Set(interpreter.evm.Context.BlockNumber))
	*pc++
	return nil, nil
}

func opDifficulty(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "DIFFICULTY"); err != nil {
		return nil, err
	}
	if interpreter.evm.Context.Random != nil {
		scope.Stack.push(new(uint256.Int).SetBytes(interpreter.evm.Context.Random.Bytes()))
	} else {
		scope.Stack.push(new(uint256.Int).Set(interpreter.evm.Context.Difficulty))
	}
	*pc++
	return nil, nil
}

func opGasLimit(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "GASLIMIT"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(interpreter.evm.Context.GasLimit))
	*pc++
	return nil, nil
}

func opSelfBalance(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastStep, "SELFBALANCE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).Set(interpreter.evm.StateDB.GetBalance(scope.Contract.Address)))
	*pc++
	return nil, nil
}

func opBaseFee(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "BASEFEE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).Set(interpreter.evm.Context.BaseFee))
	*pc++
	return nil, nil
}

func opBlobHash(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasFastestStep, "BLOBHASH"); err != nil {
		return nil, err
	}
	idx := scope.Stack.peek()
	hashes := interpreter.evm.TxContext.BlobHashes
	if i, overflow := idx.Uint64WithOverflow(); !overflow && i < uint64(len(hashes)) {
		idx.SetBytes(hashes[i].Bytes())
	} else {
		idx.Clear()
	}
	*pc++
	return nil, nil
}

func opBlobBaseFee(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "BLOBBASEFEE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).Set(interpreter.evm.Context.BlobBaseFee))
	*pc++
	return nil, nil
}

func opChainID(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "CHAINID"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(interpreter.evm.chainConfig.ChainID))
	*pc++
	return nil, nil
}

// --- 0x50-0x5E storage, memory, flow -----------------------------------------

func opPop(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "POP"); err != nil {
		return nil, err
	}
	scope.Stack.pop()
	*pc++
	return nil, nil
}

func opMload(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset := scope.Stack.peek()
	off, overflow := offset.Uint64WithOverflow()
	if overflow {
		return nil, ErrGasUintOverflow
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, 32); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(GasFastestStep, "MLOAD"); err != nil {
		return nil, err
	}
	offset.SetBytes(scope.Memory.GetPtr(int64(off), 32))
	*pc++
	return nil, nil
}

func opMstore(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset, val := scope.Stack.pop(), scope.Stack.pop()
	off, overflow := offset.Uint64WithOverflow()
	if overflow {
		return nil, ErrGasUintOverflow
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, 32); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(GasFastestStep, "MSTORE"); err != nil {
		return nil, err
	}
	scope.Memory.Set32(off, &val)
	*pc++
	return nil, nil
}

func opMstore8(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset, val := scope.Stack.pop(), scope.Stack.pop()
	off, overflow := offset.Uint64WithOverflow()
	if overflow {
		return nil, ErrGasUintOverflow
	}
	if err := chargeMemory(scope.Contract, scope.Memory, off, 1); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(GasFastestStep, "MSTORE8"); err != nil {
		return nil, err
	}
	scope.Memory.Set(off, 1, []byte{byte(val.Uint64())})
	*pc++
	return nil, nil
}

func opSload(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	loc := scope.Stack.peek()
	key := *loc
	if interpreter.evm.StateDB.WarmSlot(scope.Contract.Address, key) {
		if err := scope.Contract.UseGas(params.ColdSloadCostEIP2929, "SLOAD"); err != nil {
			return nil, err
		}
	} else {
		if err := scope.Contract.UseGas(params.WarmStorageReadCostEIP2929, "SLOAD"); err != nil {
			return nil, err
		}
	}
	val := interpreter.evm.StateDB.GetStorage(scope.Contract.Address, key)
	loc.Set(&val)
	*pc++
	return nil, nil
}

func opSstore(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	loc, val := scope.Stack.pop(), scope.Stack.pop()
	if scope.Contract.Gas <= params.SstoreSentryGasEIP2200 {
		return nil, ErrOutOfGas
	}
	// PutStorage alone knows the slot's original value and warm/cold state,
	// so it computes the full EIP-2200/2929/3529 cost and refund itself.
	gasCost, refund := interpreter.evm.StateDB.PutStorage(scope.Contract.Address, loc, val)
	if err := scope.Contract.UseGas(gasCost, "SSTORE"); err != nil {
		return nil, err
	}
	interpreter.evm.StateDB.AddRefund(refund)
	*pc++
	return nil, nil
}

func opJump(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasMidStep, "JUMP"); err != nil {
		return nil, err
	}
	dest := scope.Stack.pop()
	if !scope.Contract.validJumpdest(&dest) {
		return nil, ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasSlowStep, "JUMPI"); err != nil {
		return nil, err
	}
	dest, cond := scope.Stack.pop(), scope.Stack.pop()
	if cond.IsZero() {
		*pc++
		return nil, nil
	}
	if !scope.Contract.validJumpdest(&dest) {
		return nil, ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil, nil
}

func opPc(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "PC"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(*pc))
	*pc++
	return nil, nil
}

func opMsize(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "MSIZE"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(scope.Memory.Len())))
	*pc++
	return nil, nil
}

func opGas(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "GAS"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int).SetUint64(scope.Contract.Gas))
	*pc++
	return nil, nil
}

func opJumpdest(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(params.JumpdestGas, "JUMPDEST"); err != nil {
		return nil, err
	}
	*pc++
	return nil, nil
}

func opTload(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(params.WarmStorageReadCostEIP2929, "TLOAD"); err != nil {
		return nil, err
	}
	loc := scope.Stack.peek()
	val := interpreter.evm.StateDB.GetTransient(scope.Contract.Address, *loc)
	loc.Set(&val)
	*pc++
	return nil, nil
}

func opTstore(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(params.WarmStorageReadCostEIP2929, "TSTORE"); err != nil {
		return nil, err
	}
	loc, val := scope.Stack.pop(), scope.Stack.pop()
	interpreter.evm.StateDB.PutTransient(scope.Contract.Address, loc, val)
	*pc++
	return nil, nil
}

func opMcopy(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	dst, src, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	d, overflowD := dst.Uint64WithOverflow()
	s, overflowS := src.Uint64WithOverflow()
	sz, overflowL := length.Uint64WithOverflow()
	if overflowD || overflowS || overflowL {
		return nil, ErrGasUintOverflow
	}
	top := d
	if s > top {
		top = s
	}
	if err := chargeMemory(scope.Contract, scope.Memory, top, sz); err != nil {
		return nil, err
	}
	if err := scope.Contract.UseGas(GasFastestStep+toWordSize(sz)*params.CopyGas, "MCOPY"); err != nil {
		return nil, err
	}
	scope.Memory.Copy(d, s, sz)
	*pc++
	return nil, nil
}

func opPush0(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if err := scope.Contract.UseGas(GasQuickStep, "PUSH0"); err != nil {
		return nil, err
	}
	scope.Stack.push(new(uint256.Int))
	*pc++
	return nil, nil
}

// --- PUSH1..PUSH32, DUP1..DUP16, SWAP1..SWAP16, LOG0..LOG4 -------------------

// makePush builds the handler for PUSH<n>: its immediate operand was
// already decoded into the Instruction at this pc (decoder.go), so the
// handler need only look it up and advance *pc past the operand.
func makePush(n uint64) executionFunc {
	return func(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
		if err := scope.Contract.UseGas(GasFastestStep, "PUSH"); err != nil {
			return nil, err
		}
		inst, _, ok := scope.Contract.asRunnable().InstructionAt(*pc)
		if !ok {
			return nil, ErrInvalidOpCode
		}
		scope.Stack.push(new(uint256.Int).SetBytes(inst.Data))
		*pc += 1 + n
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
		if err := scope.Contract.UseGas(GasFastestStep, "DUP"); err != nil {
			return nil, err
		}
		if scope.Stack.len() < n {
			return nil, NewStackError("DUP", n, scope.Stack.len(), nil)
		}
		scope.Stack.dup(n)
		*pc++
		return nil, nil
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
		if err := scope.Contract.UseGas(GasFastestStep, "SWAP"); err != nil {
			return nil, err
		}
		if scope.Stack.len() < n+1 {
			return nil, NewStackError("SWAP", n+1, scope.Stack.len(), nil)
		}
		scope.Stack.swap(n)
		*pc++
		return nil, nil
	}
}

func makeLog(n int) executionFunc {
	return func(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
		mStart, mSize := scope.Stack.pop(), scope.Stack.pop()
		topics := make([]common.Hash, n)
		for i := 0; i < n; i++ {
			t := scope.Stack.pop()
			topics[i] = common.Hash(t.Bytes32())
		}
		off, sz, err := mustMemArgs(&mStart, &mSize)
		if err != nil {
			return nil, err
		}
		if err := chargeMemory(scope.Contract, scope.Memory, off, sz); err != nil {
			return nil, err
		}
		gasCost := params.LogGas + uint64(n)*params.LogTopicGas + sz*params.LogDataGas
		if err := scope.Contract.UseGas(gasCost, "LOG"); err != nil {
			return nil, err
		}
		data := scope.Memory.GetCopy(int64(off), int64(sz))
		interpreter.evm.StateDB.AddLog(Log{Address: scope.Contract.Address, Topics: topics, Data: data})
		if t := interpreter.evm.tracer; t != nil && t.OnLog != nil {
			t.OnLog(scope.Contract.Address, topics, data)
		}
		*pc++
		return nil, nil
	}
}
