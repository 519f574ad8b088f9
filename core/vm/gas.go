package vm

import (
	"github.com/holiman/uint256"

	"github.com/lazyevm/lazyevm/core/params"
	"github.com/lazyevm/lazyevm/word"
)

// Gas costs that do not depend on chain configuration or frame state.
const (
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20
)

// callGas returns the gas forwarded to a CALL-family sub-call: the callee
// gets min(callCost, all but 1/64 of available-base) per EIP-150, except
// under the pre-EIP150 "stipend everything" convention used when isEip150
// is false (kept only so gas_test.go's grounding case is still exercisable).
func callGas(isEip150 bool, availableGas, base uint64, callCost *uint256.Int) (uint64, error) {
	if isEip150 {
		availableGas = availableGas - base
		gas := availableGas - availableGas/64
		if !callCost.IsUint64() || gas < callCost.Uint64() {
			return gas, nil
		}
	}
	if !callCost.IsUint64() {
		return 0, ErrGasUintOverflow
	}
	return callCost.Uint64(), nil
}

// memoryGasCostFor is the dynamicGas-shaped wrapper used by the jump table:
// it resizes mem to cover [offset, offset+size) and returns the incremental
// cost of doing so.
func memoryGasCostFor(mem *Memory, offset, size uint64) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	end := offset + size
	if end < offset {
		return 0, ErrGasUintOverflow
	}
	return memoryGasCost(mem, end)
}

// GasSStore implements the EIP-2200/3529 net-gas-metering storage-write
// schedule (spec.md §4.3's put_storage rule), given the triple
// (original, current, new). It returns the total gas to charge, which
// already includes the coldSurcharge passed in (the EIP-2929 cold-slot
// cost, or 0 for a warm slot), and the refund delta to apply to the
// frame's refund counter. Exported so
// core/state's cache — the only thing that actually tracks a slot's
// transaction-start original value — can apply it without duplicating the
// formula.
func GasSStore(original, current, new word.Word, coldSurcharge uint64) (gasCost uint64, refundDelta int64) {
	if current.Eq(new) {
		// no-op write still pays the warm/cold access surcharge only.
		return params.WarmStorageReadCostEIP2929 + coldSurcharge, 0
	}
	if original.Eq(current) {
		if original.IsZero() {
			return params.SstoreSetGasEIP2200 + coldSurcharge, 0
		}
		if new.IsZero() {
			return params.SstoreResetGasEIP2200 + coldSurcharge, int64(params.SstoreClearsScheduleEIP3529)
		}
		return params.SstoreResetGasEIP2200 + coldSurcharge, 0
	}
	// Dirty slot: original != current. Refunds correct for having already
	// charged (or refunded) for the first write in this transaction.
	var refund int64
	if !original.IsZero() {
		if current.IsZero() {
			refund -= int64(params.SstoreClearsScheduleEIP3529)
		}
		if new.IsZero() {
			refund += int64(params.SstoreClearsScheduleEIP3529)
		}
	}
	if original.Eq(new) {
		if original.IsZero() {
			refund += int64(params.SstoreSetGasEIP2200 - params.WarmStorageReadCostEIP2929)
		} else {
			refund += int64(params.SstoreResetGasEIP2200 - params.WarmStorageReadCostEIP2929)
		}
	}
	return params.WarmStorageReadCostEIP2929 + coldSurcharge, refund
}

// IntrinsicGas computes the flat per-transaction cost plus per-calldata-byte
// cost charged before any opcode executes (spec.md §4.6 step 2). Exported so
// the transaction envelope — the only thing that knows about access lists
// and the create/call distinction before a Contract even exists — can
// charge it without duplicating the formula.
func IntrinsicGas(data []byte, isCreate bool, accessListAddrs, accessListSlots int) uint64 {
	var gas uint64 = params.TxGas
	if isCreate {
		gas += params.TxGasContractCreation - params.TxGas
		words := toWordSize(uint64(len(data)))
		gas += words * params.InitCodeWordGas
	}
	for _, b := range data {
		if b == 0 {
			gas += params.TxDataZeroGas
		} else {
			gas += params.TxDataNonZeroGasEIP2028
		}
	}
	gas += uint64(accessListAddrs) * params.TxAccessListAddressGas
	gas += uint64(accessListSlots) * params.TxAccessListStorageKeyGas
	return gas
}
