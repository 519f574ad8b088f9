// Package state is the lazy, JSON-RPC-backed state cache (spec.md §4.3):
// the vm.StateDB the interpreter reads and writes through. One Cache is
// constructed per transaction and owned exclusively by it; nested call
// frames share the same Cache instance through a stack of checkpoints
// rather than each getting a private copy (spec.md §5).
package state

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
	"github.com/lazyevm/lazyevm/core/vm"
	"github.com/lazyevm/lazyevm/rpc"
	"github.com/lazyevm/lazyevm/word"
)

// Fetcher is the subset of *rpc.Client the cache drives on a miss. Declared
// as an interface, rather than depending on *rpc.Client directly, so tests
// can substitute an in-memory stand-in instead of a network round trip.
type Fetcher interface {
	GetStorageAt(ctx context.Context, addr common.Address, key common.Hash, block rpc.BlockRef) (common.Hash, error)
	GetCode(ctx context.Context, addr common.Address, block rpc.BlockRef) ([]byte, error)
	GetBalance(ctx context.Context, addr common.Address, block rpc.BlockRef) (*big.Int, error)
	GetNonce(ctx context.Context, addr common.Address, block rpc.BlockRef) (uint64, error)
}

// storageSlot tracks both the transaction-start value of a slot (needed by
// the EIP-2200/3529 net-metering formula) and its current, possibly
// since-written value.
type storageSlot struct {
	original uint256.Int
	current  uint256.Int
}

// account is the cache's per-address bookkeeping. Zero value describes an
// address the cache has neither fetched nor created yet.
type account struct {
	balance uint256.Int
	nonce   uint64
	code    []byte
	codeHash common.Hash

	balanceFetched bool
	nonceFetched   bool
	codeFetched    bool

	touched bool // CreateAccount, or a fetch that discovered a non-empty account

	storage map[common.Hash]*storageSlot

	selfDestructed bool
	beneficiary    common.Address
	createdThisTx  bool
}

func newAccount() *account {
	return &account{storage: make(map[common.Hash]*storageSlot)}
}

// journalEntry undoes one mutation. Entries are appended in the order
// mutations happen and replayed back-to-front on RevertTo, the same
// discipline go-ethereum's own state journal uses for its dirty-object list.
type journalEntry func(c *Cache)

// Cache is the lazy state cache described by spec.md §4.3. It satisfies
// vm.StateDB.
type Cache struct {
	ctx     context.Context
	fetcher Fetcher
	block   rpc.BlockRef

	accounts  map[common.Address]*account
	transient map[common.Address]map[common.Hash]uint256.Int

	warmAddr map[common.Address]bool
	warmSlot map[common.Address]map[common.Hash]bool

	refund uint64
	logs   []vm.Log

	journal []journalEntry
}

// New constructs a Cache pinned to one block, backed by fetcher for
// on-miss reads. ctx bounds every upstream RPC the cache issues; cancelling
// it is how a caller implements spec.md §5's "cancellation rolls back to
// the most recent checkpoint or abandons the cache" without the interpreter
// needing its own notion of upstream timeouts.
func New(ctx context.Context, fetcher Fetcher, block rpc.BlockRef) *Cache {
	return &Cache{
		ctx:       ctx,
		fetcher:   fetcher,
		block:     block,
		accounts:  make(map[common.Address]*account),
		transient: make(map[common.Address]map[common.Hash]uint256.Int),
		warmAddr:  make(map[common.Address]bool),
		warmSlot:  make(map[common.Address]map[common.Hash]bool),
	}
}

func (c *Cache) account(addr common.Address) *account {
	acc, ok := c.accounts[addr]
	if !ok {
		acc = newAccount()
		c.accounts[addr] = acc
	}
	return acc
}

// fetchFault is the panic value mustFetch raises on an RPC error, wrapping
// it in the vocabulary spec.md §4.3 names for upstream failures: "upstream
// unavailable". It is not threaded through vm.StateDB's interface as a
// normal error return (which spec.md §6's call-site builder API does not
// expose either) — a fetch failure aborts the whole apply(cache) the way
// an out-of-gas fault does, not as a recoverable per-opcode error. A
// caller driving a Cache (e.g. the transaction envelope) recovers it at
// the top of apply(cache) the same way it recovers any other abort.
type fetchFault struct{ err error }

func (f fetchFault) Error() string { return f.err.Error() }

func mustFetch[T any](op string, addr common.Address, v T, err error) T {
	if err != nil {
		log.Warn("abandoning transaction: upstream fetch unavailable", "op", op, "address", addr, "err", err)
		panic(fetchFault{fmt.Errorf("upstream unavailable: %s(%s): %w", op, addr, err)})
	}
	return v
}

// GetStorage implements vm.StateDB.
func (c *Cache) GetStorage(addr common.Address, key uint256.Int) uint256.Int {
	return c.slot(addr, key).current
}

func (c *Cache) slot(addr common.Address, key uint256.Int) *storageSlot {
	acc := c.account(addr)
	keyHash := common.Hash(key.Bytes32())
	if s, ok := acc.storage[keyHash]; ok {
		return s
	}
	raw := mustFetch("eth_getStorageAt", addr, c.fetcher.GetStorageAt(c.ctx, addr, keyHash, c.block))
	var val uint256.Int
	val.SetBytes(raw[:])
	s := &storageSlot{original: val, current: val}
	acc.storage[keyHash] = s
	return s
}

// PutStorage implements vm.StateDB, charging the EIP-2200/3529
// net-metering schedule against the slot's transaction-start original
// value plus the EIP-2929 cold-surcharge this cache alone can determine
// (only it knows whether the slot has been touched yet this transaction).
func (c *Cache) PutStorage(addr common.Address, key, new uint256.Int) (gasCost uint64, refundDelta int64) {
	s := c.slot(addr, key)

	var coldSurcharge uint64
	if c.WarmSlot(addr, key) {
		coldSurcharge = params.ColdSloadCostEIP2929
	}

	gasCost, refundDelta = vm.GasSStore(word.FromUint256(&s.original), word.FromUint256(&s.current), word.FromUint256(&new), coldSurcharge)

	prev := s.current
	c.journal = append(c.journal, func(c *Cache) { s.current = prev })
	s.current = new
	return gasCost, refundDelta
}

// GetTransient implements vm.StateDB. Transient storage is never fetched
// upstream and never persists past the lifetime of this Cache (spec.md
// §4.3: "transient storage ... cleared at the end of the transaction").
func (c *Cache) GetTransient(addr common.Address, key uint256.Int) uint256.Int {
	keyHash := common.Hash(key.Bytes32())
	if slots, ok := c.transient[addr]; ok {
		if v, ok := slots[keyHash]; ok {
			return v
		}
	}
	return uint256.Int{}
}

// PutTransient implements vm.StateDB. Writes are journaled across nested
// call frames (so a revert_to inside the same transaction rolls them back)
// but the journal itself is discarded along with the whole Cache at the
// transaction boundary, never written through to any outer store.
func (c *Cache) PutTransient(addr common.Address, key, new uint256.Int) {
	keyHash := common.Hash(key.Bytes32())
	slots, ok := c.transient[addr]
	if !ok {
		slots = make(map[common.Hash]uint256.Int)
		c.transient[addr] = slots
	}
	prev, existed := slots[keyHash]
	c.journal = append(c.journal, func(c *Cache) {
		if existed {
			c.transient[addr][keyHash] = prev
		} else {
			delete(c.transient[addr], keyHash)
		}
	})
	slots[keyHash] = new
}

// GetBalance implements vm.StateDB, lazily fetching on first touch.
func (c *Cache) GetBalance(addr common.Address) *uint256.Int {
	acc := c.account(addr)
	if !acc.balanceFetched {
		raw := mustFetch("eth_getBalance", addr, c.fetcher.GetBalance(c.ctx, addr, c.block))
		balance, _ := uint256.FromBig(raw)
		acc.balance = *balance
		acc.balanceFetched = true
		if !acc.balance.IsZero() {
			acc.touched = true
		}
	}
	balance := acc.balance
	return &balance
}

// SetBalance implements vm.StateDB.
func (c *Cache) SetBalance(addr common.Address, amount *uint256.Int) {
	acc := c.account(addr)
	acc.balanceFetched = true
	prev := acc.balance
	wasTouched := acc.touched
	c.journal = append(c.journal, func(c *Cache) {
		a := c.account(addr)
		a.balance = prev
		a.touched = wasTouched
	})
	acc.balance = *amount
	if !amount.IsZero() {
		acc.touched = true
	}
}

// GetNonce implements vm.StateDB, lazily fetching on first touch.
func (c *Cache) GetNonce(addr common.Address) uint64 {
	acc := c.account(addr)
	if !acc.nonceFetched {
		acc.nonce = mustFetch("eth_getTransactionCount", addr, c.fetcher.GetNonce(c.ctx, addr, c.block))
		acc.nonceFetched = true
		if acc.nonce != 0 {
			acc.touched = true
		}
	}
	return acc.nonce
}

// SetNonce implements vm.StateDB.
func (c *Cache) SetNonce(addr common.Address, nonce uint64) {
	acc := c.account(addr)
	acc.nonceFetched = true
	prev := acc.nonce
	wasTouched := acc.touched
	c.journal = append(c.journal, func(c *Cache) {
		a := c.account(addr)
		a.nonce = prev
		a.touched = wasTouched
	})
	acc.nonce = nonce
	if nonce != 0 {
		acc.touched = true
	}
}

// GetCode implements vm.StateDB, lazily fetching on first touch and
// computing the codehash locally — the upstream node is never asked for a
// codehash directly, only the raw bytes (spec.md §4.3: "codehash computed
// locally").
func (c *Cache) GetCode(addr common.Address) ([]byte, common.Hash) {
	acc := c.account(addr)
	if !acc.codeFetched {
		code := mustFetch("eth_getCode", addr, c.fetcher.GetCode(c.ctx, addr, c.block))
		acc.code = code
		if len(code) == 0 {
			acc.codeHash = vm.EmptyCodeHash
		} else {
			acc.codeHash = crypto.Keccak256Hash(code)
			acc.touched = true
		}
		acc.codeFetched = true
	}
	return acc.code, acc.codeHash
}

// SetCode implements vm.StateDB.
func (c *Cache) SetCode(addr common.Address, code []byte) {
	acc := c.account(addr)
	acc.codeFetched = true
	prevCode, prevHash := acc.code, acc.codeHash
	wasTouched := acc.touched
	c.journal = append(c.journal, func(c *Cache) {
		a := c.account(addr)
		a.code, a.codeHash = prevCode, prevHash
		a.touched = wasTouched
	})
	acc.code = code
	if len(code) == 0 {
		acc.codeHash = vm.EmptyCodeHash
	} else {
		acc.codeHash = crypto.Keccak256Hash(code)
		acc.touched = true
	}
}

// WarmAddress implements vm.StateDB. Per EIP-2929, once an address is
// warmed it "remains warm for the rest of the transaction, including if
// the call/transaction reverts" — so, unlike every other mutation this
// cache tracks, warmth is deliberately NOT journaled and survives
// RevertTo.
func (c *Cache) WarmAddress(addr common.Address) (wasCold bool) {
	wasCold = !c.warmAddr[addr]
	c.warmAddr[addr] = true
	return wasCold
}

// IsWarm implements vm.StateDB.
func (c *Cache) IsWarm(addr common.Address) bool { return c.warmAddr[addr] }

// WarmSlot implements vm.StateDB, with the same revert-survives-warmth
// rule as WarmAddress.
func (c *Cache) WarmSlot(addr common.Address, key uint256.Int) (wasCold bool) {
	keyHash := common.Hash(key.Bytes32())
	slots, ok := c.warmSlot[addr]
	if !ok {
		slots = make(map[common.Hash]bool)
		c.warmSlot[addr] = slots
	}
	wasCold = !slots[keyHash]
	slots[keyHash] = true
	return wasCold
}

// IsSlotWarm implements vm.StateDB.
func (c *Cache) IsSlotWarm(addr common.Address, key uint256.Int) bool {
	keyHash := common.Hash(key.Bytes32())
	return c.warmSlot[addr][keyHash]
}

// Exist implements vm.StateDB: true once the address has been created, or
// a fetch discovered it holds a nonzero balance, nonce, or code. A plain
// cache miss that turns out empty never flips this — spec.md §4.3's
// "missing account yields a default-zero AccountState, no error".
func (c *Cache) Exist(addr common.Address) bool {
	acc, ok := c.accounts[addr]
	if !ok {
		return false
	}
	return acc.touched
}

// CreateAccount implements vm.StateDB. The balance already present (e.g.
// from a value transfer that landed before the CREATE/CREATE2 frame
// started) is preserved; nonce, code, and storage are not reset here —
// callers (the interpreter's createInner) explicitly SetNonce/SetCode as
// part of the same operation.
func (c *Cache) CreateAccount(addr common.Address) {
	acc := c.account(addr)
	wasTouched, wasCreated := acc.touched, acc.createdThisTx
	c.journal = append(c.journal, func(c *Cache) {
		a := c.account(addr)
		a.touched, a.createdThisTx = wasTouched, wasCreated
	})
	acc.touched = true
	acc.createdThisTx = true
}

// Checkpoint implements vm.StateDB: the journal's current length is a
// complete description of "nothing has happened since here", so it doubles
// as the snapshot marker.
func (c *Cache) Checkpoint() int { return len(c.journal) }

// Commit implements vm.StateDB. Mutations are applied to the cache in
// place as they happen rather than staged per-frame, so there is nothing
// to merge into a parent on commit — the marker is accepted only to keep
// the interface symmetric with RevertTo.
func (c *Cache) Commit(marker int) {}

// RevertTo implements vm.StateDB, unwinding every mutation recorded since
// marker, most recent first.
func (c *Cache) RevertTo(marker int) {
	for i := len(c.journal) - 1; i >= marker; i-- {
		c.journal[i](c)
	}
	c.journal = c.journal[:marker]
}

// MarkSelfDestruct implements vm.StateDB. Post-Cancun (EIP-6780) semantics:
// the balance is always forwarded to beneficiary by the caller via
// SetBalance/Transfer, but the account itself is only actually deleted at
// the end of the transaction if it was also created in this same
// transaction — which is exactly what createdThisTx records.
func (c *Cache) MarkSelfDestruct(addr, beneficiary common.Address) {
	acc := c.account(addr)
	wasMarked, prevBeneficiary := acc.selfDestructed, acc.beneficiary
	c.journal = append(c.journal, func(c *Cache) {
		a := c.account(addr)
		a.selfDestructed, a.beneficiary = wasMarked, prevBeneficiary
	})
	acc.selfDestructed = true
	acc.beneficiary = beneficiary
}

// HasSelfDestructed implements vm.StateDB.
func (c *Cache) HasSelfDestructed(addr common.Address) bool {
	acc, ok := c.accounts[addr]
	return ok && acc.selfDestructed
}

// Beneficiary returns the address a self-destructed account's balance is
// owed to, as recorded by MarkSelfDestruct. Only meaningful when
// HasSelfDestructed(addr) is true; read by the transaction envelope
// alongside SelfDestructed() when forwarding balances at tx end.
func (c *Cache) Beneficiary(addr common.Address) common.Address {
	return c.account(addr).beneficiary
}

// AddRefund implements vm.StateDB. delta may be negative (e.g. a slot
// written back to its original non-zero value reverses an earlier
// clear-refund), and the running total saturates at zero rather than
// wrapping.
func (c *Cache) AddRefund(delta int64) {
	prev := c.refund
	c.journal = append(c.journal, func(c *Cache) { c.refund = prev })
	if delta < 0 && uint64(-delta) > c.refund {
		c.refund = 0
		return
	}
	if delta < 0 {
		c.refund -= uint64(-delta)
	} else {
		c.refund += uint64(delta)
	}
}

// GetRefund implements vm.StateDB.
func (c *Cache) GetRefund() uint64 { return c.refund }

// AddLog implements vm.StateDB. A log emitted inside a frame that later
// reverts must disappear along with the rest of that frame's effects, so
// it goes through the same journal as every other mutation.
func (c *Cache) AddLog(l vm.Log) {
	c.journal = append(c.journal, func(c *Cache) {
		c.logs = c.logs[:len(c.logs)-1]
	})
	c.logs = append(c.logs, l)
}

// Logs returns every log recorded so far that has not since been reverted.
// Not part of vm.StateDB — read by the transaction envelope once execution
// finishes to build the receipt.
func (c *Cache) Logs() []vm.Log {
	out := make([]vm.Log, len(c.logs))
	copy(out, c.logs)
	return out
}

// SelfDestructed reports every address marked for destruction and whether
// each was also created in this transaction (and so must actually be
// deleted, per EIP-6780). Read by the transaction envelope at the end of
// apply(cache).
func (c *Cache) SelfDestructed() map[common.Address]bool {
	out := make(map[common.Address]bool)
	for addr, acc := range c.accounts {
		if acc.selfDestructed {
			out[addr] = acc.createdThisTx
		}
	}
	return out
}

// Purge deletes addr's entire cached account state — balance, nonce, code,
// and storage — reducing it back to the zero AccountState a never-seen
// address would report. Called by the transaction envelope, once
// execution has committed, for every self-destructed account that was
// also created within the same transaction (EIP-6780); there is nothing
// left to revert to by that point, so this bypasses the journal.
func (c *Cache) Purge(addr common.Address) {
	delete(c.accounts, addr)
}
