package vm

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lazyevm/lazyevm/core/tracing"
)

// StructLog is one step of an opcode-level execution trace — the per-step
// record go-ethereum's StructLogger produces for debug_traceTransaction and
// the kind of thing spec.md §6's OnOpcode hook exists to let a caller build.
type StructLog struct {
	Pc      uint64 `json:"pc"`
	Op      string `json:"op"`
	Gas     uint64 `json:"gas"`
	GasCost uint64 `json:"gasCost"`
	Depth   int    `json:"depth"`
	Err     string `json:"error,omitempty"`
}

// StructLogger collects a flat StructLog trace by subscribing to the
// OnOpcode/OnFault/OnEnter/OnExit hooks of the tracing.Hooks set it builds.
// It is the reference consumer of the hook set: anything wired through
// Config.Tracer can replace it with a different aggregation without the
// interpreter or EVM changing at all.
type StructLogger struct {
	logs  []StructLog
	depth int
}

// NewStructLogger builds a StructLogger and the Hooks bundle that feeds it.
// cfg is accepted for API symmetry with go-ethereum's constructor but
// currently unused: this engine has no "disable stack/memory capture"
// knobs to thread through, since captures are driven entirely by OnOpcode's
// own (pc, op, gas, cost) arguments.
func NewStructLogger(cfg *LogConfig) (*StructLogger, *tracing.Hooks) {
	l := &StructLogger{}
	hooks := &tracing.Hooks{
		OnEnter: func(depth int, typ tracing.CallType, from, to common.Address, input []byte, gas uint64, value *big.Int) {
			l.depth = depth
		},
		OnExit: func(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
			l.depth = depth - 1
		},
		OnOpcode: func(pc uint64, op byte, name string, gas uint64, cost uint64) {
			l.logs = append(l.logs, StructLog{Pc: pc, Op: name, Gas: gas, GasCost: cost, Depth: l.depth})
		},
		OnFault: func(pc uint64, op byte, name string, gas uint64, err error) {
			l.logs = append(l.logs, StructLog{Pc: pc, Op: name, Gas: gas, Depth: l.depth, Err: err.Error()})
		},
	}
	return l, hooks
}

// LogConfig mirrors go-ethereum's trace-config knobs; none are implemented
// yet (there is only one capture mode), but the type gives callers a stable
// place to add DisableStack/DisableMemory/Limit later without another
// breaking signature change to NewStructLogger.
type LogConfig struct {
	Limit int
}

// StructLogs returns the collected trace in execution order.
func (l *StructLogger) StructLogs() []StructLog { return l.logs }

// MarshalJSON satisfies json.Marshaler so a trace can be returned directly
// from an RPC-style debug endpoint without an intermediate copy.
func (l *StructLogger) MarshalJSON() ([]byte, error) { return json.Marshal(l.logs) }
