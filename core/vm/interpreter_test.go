package vm

import (
	"math"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
)

// fakeStateDB is a minimal in-memory StateDB used by core/vm's own unit
// tests, which exercise the interpreter in isolation rather than against a
// real lazy cache (that integration lives in core/state's tests instead).
type fakeStateDB struct {
	balances  map[common.Address]*uint256.Int
	nonces    map[common.Address]uint64
	code      map[common.Address][]byte
	storage   map[common.Address]map[uint256.Int]uint256.Int
	warmAddr  map[common.Address]bool
	warmSlot  map[common.Address]map[uint256.Int]bool
	destructed map[common.Address]bool
	refund    uint64
	logs      []Log
}

func newFakeStateDB() *fakeStateDB {
	return &fakeStateDB{
		balances:   map[common.Address]*uint256.Int{},
		nonces:     map[common.Address]uint64{},
		code:       map[common.Address][]byte{},
		storage:    map[common.Address]map[uint256.Int]uint256.Int{},
		warmAddr:   map[common.Address]bool{},
		warmSlot:   map[common.Address]map[uint256.Int]bool{},
		destructed: map[common.Address]bool{},
	}
}

func (s *fakeStateDB) GetStorage(addr common.Address, key uint256.Int) uint256.Int {
	return s.storage[addr][key]
}
func (s *fakeStateDB) PutStorage(addr common.Address, key, new uint256.Int) (uint64, int64) {
	if s.storage[addr] == nil {
		s.storage[addr] = map[uint256.Int]uint256.Int{}
	}
	s.storage[addr][key] = new
	return params.SstoreSetGasEIP2200, 0
}
func (s *fakeStateDB) GetTransient(addr common.Address, key uint256.Int) uint256.Int {
	return s.storage[addr][key]
}
func (s *fakeStateDB) PutTransient(addr common.Address, key, new uint256.Int) {
	if s.storage[addr] == nil {
		s.storage[addr] = map[uint256.Int]uint256.Int{}
	}
	s.storage[addr][key] = new
}
func (s *fakeStateDB) GetBalance(addr common.Address) *uint256.Int {
	if b, ok := s.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}
func (s *fakeStateDB) SetBalance(addr common.Address, amount *uint256.Int) { s.balances[addr] = amount }
func (s *fakeStateDB) GetNonce(addr common.Address) uint64                 { return s.nonces[addr] }
func (s *fakeStateDB) SetNonce(addr common.Address, nonce uint64)          { s.nonces[addr] = nonce }
func (s *fakeStateDB) GetCode(addr common.Address) ([]byte, common.Hash) {
	c := s.code[addr]
	return c, crypto256(c)
}
func (s *fakeStateDB) SetCode(addr common.Address, code []byte) { s.code[addr] = code }

func (s *fakeStateDB) WarmAddress(addr common.Address) bool {
	wasCold := !s.warmAddr[addr]
	s.warmAddr[addr] = true
	return wasCold
}
func (s *fakeStateDB) IsWarm(addr common.Address) bool { return s.warmAddr[addr] }
func (s *fakeStateDB) WarmSlot(addr common.Address, key uint256.Int) bool {
	if s.warmSlot[addr] == nil {
		s.warmSlot[addr] = map[uint256.Int]bool{}
	}
	wasCold := !s.warmSlot[addr][key]
	s.warmSlot[addr][key] = true
	return wasCold
}
func (s *fakeStateDB) IsSlotWarm(addr common.Address, key uint256.Int) bool {
	return s.warmSlot[addr][key]
}

func (s *fakeStateDB) Exist(addr common.Address) bool {
	_, okC := s.code[addr]
	_, okB := s.balances[addr]
	_, okN := s.nonces[addr]
	return okC || okB || okN
}
func (s *fakeStateDB) CreateAccount(addr common.Address) {
	if _, ok := s.balances[addr]; !ok {
		s.balances[addr] = new(uint256.Int)
	}
}

func (s *fakeStateDB) Checkpoint() int    { return 0 }
func (s *fakeStateDB) Commit(marker int)  {}
func (s *fakeStateDB) RevertTo(marker int) {}

func (s *fakeStateDB) MarkSelfDestruct(addr, beneficiary common.Address) { s.destructed[addr] = true }
func (s *fakeStateDB) HasSelfDestructed(addr common.Address) bool        { return s.destructed[addr] }

func (s *fakeStateDB) AddRefund(delta int64) {
	if delta < 0 {
		s.refund -= uint64(-delta)
		return
	}
	s.refund += uint64(delta)
}
func (s *fakeStateDB) GetRefund() uint64 { return s.refund }

func (s *fakeStateDB) AddLog(l Log) { s.logs = append(s.logs, l) }

func crypto256(b []byte) common.Hash {
	if len(b) == 0 {
		return EmptyCodeHash
	}
	return common.BytesToHash(b)
}

var (
	addrA = common.BytesToAddress([]byte("addrA"))
	addrB = common.BytesToAddress([]byte("addrB"))
)

// loopInterruptCodes are bytecodes for an unconditional and a conditional
// infinite loop (PUSH/JUMPDEST/DUP/JUMP(I)), used to exercise Cancel().
var loopInterruptCodes = []string{
	"60025b8056",     // push(2) jumpdest dup1 jump
	"600160045b818157", // push(1) push(4) jumpdest dup2 dup2 jumpi
}

func TestLoopInterrupt(t *testing.T) {
	for i, code := range loopInterruptCodes {
		statedb := newFakeStateDB()
		statedb.CreateAccount(addrB)
		statedb.SetCode(addrB, common.FromHex(code))

		vmctx := BlockContext{
			Transfer:    func(StateDB, common.Address, common.Address, *uint256.Int) {},
			CanTransfer: func(StateDB, common.Address, *uint256.Int) bool { return true },
		}
		evm := NewEVM(vmctx, TxContext{}, statedb, &params.Mainnet, Config{})

		errCh := make(chan error, 1)
		go func() {
			_, _, err := evm.Call(common.Address{}, addrB, nil, math.MaxUint64, new(uint256.Int))
			errCh <- err
		}()

		time.Sleep(10 * time.Millisecond)
		evm.Cancel()

		select {
		case err := <-errCh:
			if err != ErrExecutionReverted {
				t.Errorf("test %d: expected cancellation to surface as ErrExecutionReverted, got %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("test %d timed out waiting for cancellation to take effect", i)
		}
	}
}

func TestInterpreterRunsSimpleArithmetic(t *testing.T) {
	statedb := newFakeStateDB()
	evm := NewEVM(BlockContext{}, TxContext{}, statedb, &params.Mainnet, Config{})

	// PUSH1 2 PUSH1 3 ADD PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN
	code := common.FromHex("600260030160005260206000f3")
	contract := NewContract(addrA, addrB, nil, 1_000_000)
	contract.SetCode(EmptyCodeHash, code)

	ret, err := evm.Interpreter().Run(contract, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := new(uint256.Int).SetBytes(ret)
	if got.Uint64() != 5 {
		t.Errorf("expected 5, got %d", got.Uint64())
	}
}
