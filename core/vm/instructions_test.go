package vm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
)

// TwoOperandTestcase is a (x, y, expected) vector for a binary opcode,
// exercised against every handler in twoOpMethods — the same fixture shape
// the teacher's own instructions_test.go uses for its arithmetic suite.
type TwoOperandTestcase struct {
	X        string
	Y        string
	Expected string
}

var twoOpMethods = map[string]executionFunc{
	"add":     opAdd,
	"sub":     opSub,
	"mul":     opMul,
	"div":     opDiv,
	"sdiv":    opSdiv,
	"mod":     opMod,
	"smod":    opSmod,
	"exp":     opExp,
	"signext": opSignExtend,
	"lt":      opLt,
	"gt":      opGt,
	"slt":     opSlt,
	"sgt":     opSgt,
	"eq":      opEq,
	"and":     opAnd,
	"or":      opOr,
	"xor":     opXor,
	"byte":    opByte,
	"shl":     opSHL,
	"shr":     opSHR,
	"sar":     opSAR,
}

func newTestScope(gas uint64) (*EVM, *ScopeContext) {
	evm := NewEVM(BlockContext{}, TxContext{}, newFakeStateDB(), &params.Mainnet, Config{})
	contract := NewContract(addrA, addrB, nil, gas)
	return evm, &ScopeContext{Memory: NewMemory(), Stack: newstack(), Contract: contract}
}

func testTwoOperandOp(t *testing.T, tests []TwoOperandTestcase, opFn executionFunc, name string) {
	t.Helper()
	for i, test := range tests {
		evm, scope := newTestScope(1_000_000)
		x := new(uint256.Int).SetBytes(common.Hex2Bytes(test.X))
		y := new(uint256.Int).SetBytes(common.Hex2Bytes(test.Y))
		expected := new(uint256.Int).SetBytes(common.Hex2Bytes(test.Expected))

		scope.Stack.push(y)
		scope.Stack.push(x)
		pc := uint64(0)
		if _, err := opFn(&pc, evm.interpreter, scope); err != nil {
			t.Fatalf("%s test %d: unexpected error: %v", name, i, err)
		}
		if scope.Stack.len() != 1 {
			t.Fatalf("%s test %d: expected one item on stack, got %d", name, i, scope.Stack.len())
		}
		actual := scope.Stack.pop()
		if actual.Cmp(expected) != 0 {
			t.Errorf("%s test %d (%s, %s): expected %x, got %x", name, i, test.X, test.Y, expected, actual)
		}
	}
}

func TestAdd(t *testing.T) {
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000002", "0000000000000000000000000000000000000000000000000000000000000003"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000000"},
	}, opAdd, "add")
}

func TestSub(t *testing.T) {
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000003", "0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000002"},
		{"0000000000000000000000000000000000000000000000000000000000000000", "0000000000000000000000000000000000000000000000000000000000000001", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
	}, opSub, "sub")
}

func TestMul(t *testing.T) {
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000003", "0000000000000000000000000000000000000000000000000000000000000004", "000000000000000000000000000000000000000000000000000000000000000c"},
	}, opMul, "mul")
}

func TestDivByZero(t *testing.T) {
	// EVM DIV/MOD treat division by zero as yielding zero, never a fault.
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000000", "0000000000000000000000000000000000000000000000000000000000000000"},
	}, opDiv, "div")
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000000", "0000000000000000000000000000000000000000000000000000000000000000"},
	}, opMod, "mod")
}

func TestSdiv(t *testing.T) {
	testTwoOperandOp(t, []TwoOperandTestcase{
		// -4 / 2 = -2
		{"fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffc", "0000000000000000000000000000000000000000000000000000000000000002", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
	}, opSdiv, "sdiv")
}

func TestSignextend(t *testing.T) {
	testTwoOperandOp(t, []TwoOperandTestcase{
		// signext(0, 0xff) = all-ones (sign bit of the low byte is set)
		{"0000000000000000000000000000000000000000000000000000000000000000", "00000000000000000000000000000000000000000000000000000000000000ff", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
	}, opSignExtend, "signext")
}

func TestByteOp(t *testing.T) {
	testTwoOperandOp(t, []TwoOperandTestcase{
		// byte 31 (least significant) of 0x...ABCD is 0xCD
		{"000000000000000000000000000000000000000000000000000000000000001f", "000000000000000000000000000000000000000000000000000000000000abcd", "00000000000000000000000000000000000000000000000000000000000000cd"},
	}, opByte, "byte")
}

func TestShiftOps(t *testing.T) {
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000002"},
	}, opSHL, "shl")
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000002", "0000000000000000000000000000000000000000000000000000000000000001"},
	}, opSHR, "shr")
	testTwoOperandOp(t, []TwoOperandTestcase{
		// SAR of a negative number by 1 sign-extends rather than zero-fills.
		{"0000000000000000000000000000000000000000000000000000000000000001", "8000000000000000000000000000000000000000000000000000000000000000", "c000000000000000000000000000000000000000000000000000000000000000"},
	}, opSAR, "sar")
}

func TestComparisonOps(t *testing.T) {
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000002", "0000000000000000000000000000000000000000000000000000000000000001"},
	}, opLt, "lt")
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000002", "0000000000000000000000000000000000000000000000000000000000000001", "0000000000000000000000000000000000000000000000000000000000000001"},
	}, opGt, "gt")
	testTwoOperandOp(t, []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000005", "0000000000000000000000000000000000000000000000000000000000000005", "0000000000000000000000000000000000000000000000000000000000000001"},
	}, opEq, "eq")
}

func TestOpIszero(t *testing.T) {
	_, scope := newTestScope(10000)
	scope.Stack.push(new(uint256.Int))
	pc := uint64(0)
	evm := NewEVM(BlockContext{}, TxContext{}, newFakeStateDB(), &params.Mainnet, Config{})
	if _, err := opIszero(&pc, evm.interpreter, scope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope.Stack.peek().Uint64() != 1 {
		t.Errorf("expected ISZERO(0) == 1, got %d", scope.Stack.peek().Uint64())
	}
}

func TestOpMstoreAndMload(t *testing.T) {
	_, scope := newTestScope(100000)
	evm := NewEVM(BlockContext{}, TxContext{}, newFakeStateDB(), &params.Mainnet, Config{})

	scope.Stack.push(uint256.NewInt(0x2a))
	scope.Stack.push(new(uint256.Int)) // offset
	pc := uint64(0)
	if _, err := opMstore(&pc, evm.interpreter, scope); err != nil {
		t.Fatalf("mstore: unexpected error: %v", err)
	}
	scope.Stack.push(new(uint256.Int)) // offset
	pc = 0
	if _, err := opMload(&pc, evm.interpreter, scope); err != nil {
		t.Fatalf("mload: unexpected error: %v", err)
	}
	if scope.Stack.peek().Uint64() != 0x2a {
		t.Errorf("expected 0x2a roundtrip through memory, got %x", scope.Stack.peek().Bytes())
	}
}

func TestOpSloadSstoreRoundtrip(t *testing.T) {
	db := newFakeStateDB()
	evm := NewEVM(BlockContext{}, TxContext{}, db, &params.Mainnet, Config{})
	contract := NewContract(addrA, addrB, nil, 100000)
	scope := &ScopeContext{Memory: NewMemory(), Stack: newstack(), Contract: contract}

	scope.Stack.push(uint256.NewInt(7))  // value
	scope.Stack.push(new(uint256.Int))   // key
	pc := uint64(0)
	if _, err := opSstore(&pc, evm.interpreter, scope); err != nil {
		t.Fatalf("sstore: unexpected error: %v", err)
	}

	scope.Stack.push(new(uint256.Int)) // key
	pc = 0
	if _, err := opSload(&pc, evm.interpreter, scope); err != nil {
		t.Fatalf("sload: unexpected error: %v", err)
	}
	if scope.Stack.peek().Uint64() != 7 {
		t.Errorf("expected stored value 7 back from SLOAD, got %d", scope.Stack.peek().Uint64())
	}
}

func TestOpJumpRejectsNonJumpdest(t *testing.T) {
	evm := NewEVM(BlockContext{}, TxContext{}, newFakeStateDB(), &params.Mainnet, Config{})
	contract := NewContract(addrA, addrB, nil, 100000)
	contract.SetCode(EmptyCodeHash, []byte{byte(PUSH1), 0x01, byte(STOP)})
	scope := &ScopeContext{Memory: NewMemory(), Stack: newstack(), Contract: contract}

	scope.Stack.push(uint256.NewInt(1)) // not a JUMPDEST
	pc := uint64(0)
	if _, err := opJump(&pc, evm.interpreter, scope); err != ErrInvalidJump {
		t.Fatalf("expected ErrInvalidJump, got %v", err)
	}
}

func TestMakeDupAndSwap(t *testing.T) {
	_, scope := newTestScope(100000)
	evm := NewEVM(BlockContext{}, TxContext{}, newFakeStateDB(), &params.Mainnet, Config{})

	scope.Stack.push(uint256.NewInt(1))
	scope.Stack.push(uint256.NewInt(2))
	pc := uint64(0)

	dup1 := makeDup(1)
	if _, err := dup1(&pc, evm.interpreter, scope); err != nil {
		t.Fatalf("dup1: unexpected error: %v", err)
	}
	if scope.Stack.len() != 3 || scope.Stack.peek().Uint64() != 2 {
		t.Fatalf("expected DUP1 to duplicate the top of stack, got len=%d top=%d", scope.Stack.len(), scope.Stack.peek().Uint64())
	}

	swap1 := makeSwap(1)
	pc = 0
	if _, err := swap1(&pc, evm.interpreter, scope); err != nil {
		t.Fatalf("swap1: unexpected error: %v", err)
	}
	if scope.Stack.peek().Uint64() != 2 {
		t.Fatalf("expected SWAP1 to bring the second item to the top, got %d", scope.Stack.peek().Uint64())
	}
}

func TestMakePushReadsImmediateOperand(t *testing.T) {
	evm := NewEVM(BlockContext{}, TxContext{}, newFakeStateDB(), &params.Mainnet, Config{})
	contract := NewContract(addrA, addrB, nil, 100000)
	contract.SetCode(EmptyCodeHash, []byte{byte(PUSH2), 0x01, 0x02, byte(STOP)})
	scope := &ScopeContext{Memory: NewMemory(), Stack: newstack(), Contract: contract}

	push2 := makePush(2)
	pc := uint64(0)
	if _, err := push2(&pc, evm.interpreter, scope); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope.Stack.peek().Uint64() != 0x0102 {
		t.Errorf("expected PUSH2 0x0102, got %x", scope.Stack.peek().Bytes())
	}
	if pc != 3 {
		t.Errorf("expected pc to advance past the 2-byte operand to 3, got %d", pc)
	}
}
