// Package tracer is the structured event log a call-site builder hands
// back from apply(cache) (spec.md §6): a flat, serializable record of
// everything one transaction did, as opposed to core/tracing's Hooks,
// which is a live callback interface meant for an in-process consumer.
// Where Hooks fires into caller-supplied functions as execution proceeds,
// an Event here is a value a caller can marshal, diff, or replay after the
// fact.
package tracer

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/lazyevm/lazyevm/core/tracing"
	"github.com/lazyevm/lazyevm/word"
)

// Kind names the taxonomy of events spec.md §6 lists: Init, OpCode,
// Keccak, State(Get|Put), Account(SetCode|GetCode|SetNonce|SetValue),
// Call, Return, SelfDestruct, Log, Error.
type Kind int

const (
	KindInit Kind = iota
	KindOpCode
	KindKeccak
	KindStateGet
	KindStatePut
	KindAccountSetCode
	KindAccountGetCode
	KindAccountSetNonce
	KindAccountSetValue
	KindCall
	KindReturn
	KindSelfDestruct
	KindLog
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "Init"
	case KindOpCode:
		return "OpCode"
	case KindKeccak:
		return "Keccak"
	case KindStateGet:
		return "State.Get"
	case KindStatePut:
		return "State.Put"
	case KindAccountSetCode:
		return "Account.SetCode"
	case KindAccountGetCode:
		return "Account.GetCode"
	case KindAccountSetNonce:
		return "Account.SetNonce"
	case KindAccountSetValue:
		return "Account.SetValue"
	case KindCall:
		return "Call"
	case KindReturn:
		return "Return"
	case KindSelfDestruct:
		return "SelfDestruct"
	case KindLog:
		return "Log"
	case KindError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is one entry in the trace. Only the fields relevant to Kind are
// populated; the rest are left at their zero value, mirroring the way the
// original implementation's EventData enum carries a different payload per
// variant.
type Event struct {
	Kind  Kind
	Depth int

	// Reverted is set retroactively: an event is recorded optimistically as
	// the call proceeds, then every event belonging to a frame that ends up
	// reverting gets this flipped true on Join, never deleted outright — so
	// a consumer can still see what was attempted, not just what survived.
	Reverted bool

	Message string // Init, Error

	PC   uint64 // OpCode
	Op   byte
	Name string
	Data []byte
	Gas  uint64

	Hash common.Hash // Keccak

	Address common.Address // State, Account, Call, SelfDestruct, Log
	Key     word.Word      // State
	Val     word.Word      // State, Account
	New     word.Word      // State, Account
	Refund  word.Word      // State.Put

	CodeHash common.Hash // Account.SetCode / GetCode
	Code     []byte

	Nonce    uint64 // Account.SetNonce: value before (Nonce) and after (NewNonce)
	NewNonce uint64

	From  common.Address // Call
	To    common.Address
	Value word.Word
	Type  tracing.CallType

	GasUsed uint64 // Return

	Beneficiary common.Address // SelfDestruct
	Balance     word.Word

	Topics []common.Hash // Log
}

// EventLog accumulates Events for one call frame, with fork/join semantics
// matching the original implementation's EventTracer trait: a sub-call gets
// its own forked log, which is joined back into the parent's once the
// sub-call's outcome (committed or reverted) is known.
type EventLog interface {
	Push(e Event)
	Events() []Event
	Take() []Event
	Fork() EventLog
	Join(child EventLog, reverted bool)
}

// NoOp discards every event. Used when a caller wants to run a transaction
// without paying for trace bookkeeping.
type NoOp struct{}

func (NoOp) Push(Event)               {}
func (NoOp) Events() []Event          { return nil }
func (NoOp) Take() []Event            { return nil }
func (NoOp) Fork() EventLog           { return NoOp{} }
func (NoOp) Join(EventLog, bool)      {}

// Logging records every event it is given, in order.
type Logging struct {
	events []Event
}

// NewLogging returns an empty Logging tracer.
func NewLogging() *Logging { return &Logging{} }

func (l *Logging) Push(e Event) { l.events = append(l.events, e) }

func (l *Logging) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Logging) Take() []Event {
	out := l.events
	l.events = nil
	return out
}

// Fork returns a fresh Logging tracer for a nested call frame to record
// into independently, so the parent's event order is undisturbed until the
// child is explicitly Join-ed back in.
func (l *Logging) Fork() EventLog { return &Logging{} }

// Join appends every event the child recorded onto l, flipping Reverted to
// true on all of them if the frame they came from reverted — a frame that
// commits contributes its events unchanged, one that reverts contributes
// them marked as having been rolled back, matching spec.md §6's "retroactive
// reverted flips" rather than silently dropping them.
func (l *Logging) Join(child EventLog, reverted bool) {
	for _, e := range child.Take() {
		if reverted {
			e.Reverted = true
		}
		l.Push(e)
	}
}
