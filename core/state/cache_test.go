package state

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
	"github.com/lazyevm/lazyevm/core/vm"
	"github.com/lazyevm/lazyevm/rpc"
)

// fakeFetcher stands in for the upstream node: canned per-address state,
// with a counter so tests can assert a slot is only ever fetched once.
type fakeFetcher struct {
	storage map[common.Address]map[common.Hash]common.Hash
	code    map[common.Address][]byte
	balance map[common.Address]*big.Int
	nonce   map[common.Address]uint64

	storageFetches int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		storage: make(map[common.Address]map[common.Hash]common.Hash),
		code:    make(map[common.Address][]byte),
		balance: make(map[common.Address]*big.Int),
		nonce:   make(map[common.Address]uint64),
	}
}

func (f *fakeFetcher) GetStorageAt(_ context.Context, addr common.Address, key common.Hash, _ rpc.BlockRef) (common.Hash, error) {
	f.storageFetches++
	return f.storage[addr][key], nil
}

func (f *fakeFetcher) GetCode(_ context.Context, addr common.Address, _ rpc.BlockRef) ([]byte, error) {
	return f.code[addr], nil
}

func (f *fakeFetcher) GetBalance(_ context.Context, addr common.Address, _ rpc.BlockRef) (*big.Int, error) {
	if b, ok := f.balance[addr]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeFetcher) GetNonce(_ context.Context, addr common.Address, _ rpc.BlockRef) (uint64, error) {
	return f.nonce[addr], nil
}

var (
	addrA = common.HexToAddress("0xaaaa")
	addrB = common.HexToAddress("0xbbbb")
	key1  = *uint256.NewInt(1)
)

func TestCacheGetStorageFetchesOnceThenCaches(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.storage[addrA] = map[common.Hash]common.Hash{common.Hash(key1.Bytes32()): common.HexToHash("0x2a")}
	c := New(context.Background(), fetcher, rpc.Latest())

	first := c.GetStorage(addrA, key1)
	second := c.GetStorage(addrA, key1)
	if first.Uint64() != 0x2a || second.Uint64() != 0x2a {
		t.Fatalf("GetStorage = %v, %v, want 0x2a both times", first, second)
	}
	if fetcher.storageFetches != 1 {
		t.Errorf("expected exactly one upstream fetch, got %d", fetcher.storageFetches)
	}
}

func TestCachePutStorageSetOnZeroChargesSstoreSet(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())

	gasCost, refund := c.PutStorage(addrA, key1, *uint256.NewInt(7))
	want := params.SstoreSetGasEIP2200 + params.ColdSloadCostEIP2929
	if gasCost != want {
		t.Errorf("PutStorage gasCost = %d, want %d", gasCost, want)
	}
	if refund != 0 {
		t.Errorf("PutStorage refund = %d, want 0", refund)
	}
	if got := c.GetStorage(addrA, key1); got.Uint64() != 7 {
		t.Errorf("GetStorage after PutStorage = %d, want 7", got.Uint64())
	}
}

func TestCachePutStorageSecondWriteIsWarm(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())

	c.PutStorage(addrA, key1, *uint256.NewInt(7))
	gasCost, _ := c.PutStorage(addrA, key1, *uint256.NewInt(9))
	if gasCost != params.WarmStorageReadCostEIP2929 {
		t.Errorf("second same-tx write to a dirty slot costs %d, want the warm-read cost %d", gasCost, params.WarmStorageReadCostEIP2929)
	}
}

func TestCachePutStorageClearingNonzeroOriginalRefunds(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.storage[addrA] = map[common.Hash]common.Hash{common.Hash(key1.Bytes32()): common.HexToHash("0x01")}
	c := New(context.Background(), fetcher, rpc.Latest())

	_, refund := c.PutStorage(addrA, key1, *uint256.NewInt(0))
	if refund != int64(params.SstoreClearsScheduleEIP3529) {
		t.Errorf("clearing a nonzero original slot refund = %d, want %d", refund, params.SstoreClearsScheduleEIP3529)
	}
}

func TestCacheTransientStorageNotFetchedUpstream(t *testing.T) {
	fetcher := newFakeFetcher()
	c := New(context.Background(), fetcher, rpc.Latest())

	if got := c.GetTransient(addrA, key1); !got.IsZero() {
		t.Fatalf("expected zero for an untouched transient slot, got %v", got)
	}
	c.PutTransient(addrA, key1, *uint256.NewInt(99))
	if got := c.GetTransient(addrA, key1); got.Uint64() != 99 {
		t.Errorf("GetTransient after PutTransient = %d, want 99", got.Uint64())
	}
	if fetcher.storageFetches != 0 {
		t.Errorf("transient storage must never hit the upstream fetcher, got %d fetches", fetcher.storageFetches)
	}
}

func TestCacheBalanceRoundtrip(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.balance[addrA] = big.NewInt(500)
	c := New(context.Background(), fetcher, rpc.Latest())

	if got := c.GetBalance(addrA); got.Uint64() != 500 {
		t.Fatalf("GetBalance = %d, want 500", got.Uint64())
	}
	c.SetBalance(addrA, uint256.NewInt(1000))
	if got := c.GetBalance(addrA); got.Uint64() != 1000 {
		t.Errorf("GetBalance after SetBalance = %d, want 1000", got.Uint64())
	}
}

func TestCacheNonceRoundtrip(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.nonce[addrA] = 3
	c := New(context.Background(), fetcher, rpc.Latest())

	if got := c.GetNonce(addrA); got != 3 {
		t.Fatalf("GetNonce = %d, want 3", got)
	}
	c.SetNonce(addrA, 4)
	if got := c.GetNonce(addrA); got != 4 {
		t.Errorf("GetNonce after SetNonce = %d, want 4", got)
	}
}

func TestCacheCodeHashComputedLocally(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.code[addrA] = []byte{0x60, 0x00}
	c := New(context.Background(), fetcher, rpc.Latest())

	code, hash := c.GetCode(addrA)
	if len(code) != 2 {
		t.Fatalf("GetCode returned %d bytes, want 2", len(code))
	}
	if hash == (common.Hash{}) || hash == vm.EmptyCodeHash {
		t.Errorf("expected a real non-empty codehash, got %s", hash)
	}
}

func TestCacheEmptyCodeHashForMissingAccount(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	code, hash := c.GetCode(addrA)
	if len(code) != 0 {
		t.Fatalf("expected no code for a missing account, got %d bytes", len(code))
	}
	if hash != vm.EmptyCodeHash {
		t.Errorf("GetCode codehash for an empty account = %s, want the empty codehash", hash)
	}
}

func TestCacheWarmAddressFirstAccessIsCold(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	if wasCold := c.WarmAddress(addrA); !wasCold {
		t.Fatal("first access to an address must report cold")
	}
	if wasCold := c.WarmAddress(addrA); wasCold {
		t.Fatal("second access to the same address must report warm")
	}
	if !c.IsWarm(addrA) {
		t.Error("IsWarm should report true after WarmAddress")
	}
}

func TestCacheWarmthSurvivesRevert(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	marker := c.Checkpoint()
	c.WarmAddress(addrA)
	c.WarmSlot(addrB, key1)
	c.RevertTo(marker)

	if !c.IsWarm(addrA) {
		t.Error("EIP-2929 warmth must survive a revert within the same transaction")
	}
	if !c.IsSlotWarm(addrB, key1) {
		t.Error("EIP-2929 slot warmth must survive a revert within the same transaction")
	}
}

func TestCacheRevertToUndoesStorageBalanceAndNonce(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())

	c.SetBalance(addrA, uint256.NewInt(10))
	c.SetNonce(addrA, 1)
	c.PutStorage(addrA, key1, *uint256.NewInt(5))

	marker := c.Checkpoint()
	c.SetBalance(addrA, uint256.NewInt(999))
	c.SetNonce(addrA, 42)
	c.PutStorage(addrA, key1, *uint256.NewInt(777))
	c.RevertTo(marker)

	if got := c.GetBalance(addrA); got.Uint64() != 10 {
		t.Errorf("balance after revert = %d, want 10", got.Uint64())
	}
	if got := c.GetNonce(addrA); got != 1 {
		t.Errorf("nonce after revert = %d, want 1", got)
	}
	if got := c.GetStorage(addrA, key1); got.Uint64() != 5 {
		t.Errorf("storage after revert = %d, want 5", got.Uint64())
	}
}

func TestCacheNestedCheckpointsRevertIndependently(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())

	c.SetBalance(addrA, uint256.NewInt(1))
	outer := c.Checkpoint()
	c.SetBalance(addrA, uint256.NewInt(2))
	inner := c.Checkpoint()
	c.SetBalance(addrA, uint256.NewInt(3))

	c.RevertTo(inner)
	if got := c.GetBalance(addrA); got.Uint64() != 2 {
		t.Fatalf("balance after inner revert = %d, want 2", got.Uint64())
	}
	c.RevertTo(outer)
	if got := c.GetBalance(addrA); got.Uint64() != 1 {
		t.Fatalf("balance after outer revert = %d, want 1", got.Uint64())
	}
}

func TestCacheCommitIsNoOpOnTopOfRevert(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	marker := c.Checkpoint()
	c.SetBalance(addrA, uint256.NewInt(1))
	c.Commit(marker)
	if got := c.GetBalance(addrA); got.Uint64() != 1 {
		t.Fatalf("Commit must preserve already-applied mutations, got balance %d", got.Uint64())
	}
}

func TestCacheExistFalseForNeverTouchedAddress(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	if c.Exist(addrA) {
		t.Fatal("Exist should be false before any fetch or create")
	}
}

func TestCacheExistTrueAfterCreateAccount(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	c.CreateAccount(addrA)
	if !c.Exist(addrA) {
		t.Fatal("Exist should be true after CreateAccount")
	}
}

func TestCacheExistTrueAfterFetchingNonzeroBalance(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.balance[addrA] = big.NewInt(1)
	c := New(context.Background(), fetcher, rpc.Latest())
	c.GetBalance(addrA)
	if !c.Exist(addrA) {
		t.Fatal("Exist should be true once a fetch reveals a nonzero balance")
	}
}

func TestCacheCreateAccountRevertsExistence(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	marker := c.Checkpoint()
	c.CreateAccount(addrA)
	c.RevertTo(marker)
	if c.Exist(addrA) {
		t.Fatal("a reverted CreateAccount must leave Exist false again")
	}
}

func TestCacheSelfDestructOnlyDeletesIfCreatedThisTx(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())

	c.CreateAccount(addrA) // created this tx
	c.MarkSelfDestruct(addrA, addrB)

	fetcher := newFakeFetcher()
	fetcher.balance[addrB] = big.NewInt(1)
	pre := New(context.Background(), fetcher, rpc.Latest())
	pre.GetBalance(addrB) // addrB exists but was NOT created this tx
	pre.MarkSelfDestruct(addrB, addrA)

	deletions := c.SelfDestructed()
	if createdThisTx := deletions[addrA]; !createdThisTx {
		t.Error("self-destructing an account created this transaction should be marked for deletion")
	}
	deletions2 := pre.SelfDestructed()
	if createdThisTx := deletions2[addrB]; createdThisTx {
		t.Error("self-destructing a pre-existing account must not be marked for deletion (EIP-6780)")
	}
}

func TestCacheRefundSaturatesAtZero(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	c.AddRefund(10)
	c.AddRefund(-100)
	if got := c.GetRefund(); got != 0 {
		t.Errorf("GetRefund = %d, want 0 (saturated)", got)
	}
}

func TestCacheRefundRevertsWithFrame(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	c.AddRefund(10)
	marker := c.Checkpoint()
	c.AddRefund(20)
	c.RevertTo(marker)
	if got := c.GetRefund(); got != 10 {
		t.Errorf("GetRefund after revert = %d, want 10", got)
	}
}

func TestCacheLogDroppedOnRevert(t *testing.T) {
	c := New(context.Background(), newFakeFetcher(), rpc.Latest())
	c.AddLog(vm.Log{Address: addrA})
	marker := c.Checkpoint()
	c.AddLog(vm.Log{Address: addrB})
	c.RevertTo(marker)

	logs := c.Logs()
	if len(logs) != 1 || logs[0].Address != addrA {
		t.Fatalf("expected only the pre-checkpoint log to survive, got %v", logs)
	}
}
