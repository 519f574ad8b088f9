// Package params holds the small slice of chain-configuration that this
// engine actually branches on. Unlike go-ethereum's core/params, which
// carries a fork ladder back to Frontier, this engine targets a single
// chain (mainnet) at a single fork level (roughly Cancun); see spec.md §1.
package params

// ChainConfig selects which EIPs are active. There is exactly one
// supported configuration (Mainnet), but the struct still exists — rather
// than a bare set of `const`s — so the jump table and gas schedule can be
// built once from it and shared across transactions, mirroring
// core/vm/jump_table_test.go's `newJumpTable(&params.ChainConfig{...}, ...)`.
type ChainConfig struct {
	ChainID uint64

	IsBerlin    bool // EIP-2929/2930: access lists, cold/warm gas
	IsLondon    bool // EIP-1559/3529/3541: base fee, refund cap, 0xEF rejection
	IsShanghai  bool // EIP-3855/3860: PUSH0, init-code size cap
	IsCancun    bool // EIP-1153/4844/5656/6780/7516: transient storage, blobs, MCOPY, SELFDESTRUCT semantics
	IsPrague    bool // EIP-7702: set-code delegation
}

// Mainnet is the only supported chain configuration: mainnet, Cancun.
var Mainnet = ChainConfig{
	ChainID:    1,
	IsBerlin:   true,
	IsLondon:   true,
	IsShanghai: true,
	IsCancun:   true,
	IsPrague:   true, // EIP-7702 delegation resolution is in scope per spec.md §4.6.
}

// Gas schedule constants referenced by more than one package. Opcode-local
// constants live next to their opcode in instructions.go / gas.go.
const (
	TxGas                uint64 = 21000 // G_transaction
	TxGasContractCreation uint64 = 53000 // G_transaction + G_txcreate
	TxDataZeroGas        uint64 = 4    // G_txdatazero
	TxDataNonZeroGasEIP2028 uint64 = 16 // G_txdatanonzero post EIP-2028
	TxAccessListAddressGas uint64 = 2400 // EIP-2930
	TxAccessListStorageKeyGas uint64 = 1900 // EIP-2930

	ColdAccountAccessCostEIP2929 uint64 = 2600
	WarmStorageReadCostEIP2929   uint64 = 100
	ColdSloadCostEIP2929         uint64 = 2100

	SstoreSetGasEIP2200        uint64 = 20000
	SstoreResetGasEIP2200      uint64 = 5000 - ColdSloadCostEIP2929
	SstoreClearsScheduleEIP3529 uint64 = 4800 // EIP-3529 reduced refund
	SstoreSentryGasEIP2200     uint64 = 2300

	CreateGas        uint64 = 32000
	CreateDataGas    uint64 = 200 // per byte of deployed code
	InitCodeWordGas  uint64 = 2   // EIP-3860
	MaxInitCodeSize  uint64 = 49152
	MaxCodeSize      int    = 24576

	CallStipend          uint64 = 2300 // forwarded to a callee that receives value
	CallValueTransferGas uint64 = 9000
	CallNewAccountGas    uint64 = 25000
	SelfdestructGas      uint64 = 5000

	CallCreateDepth uint64 = 1024

	RefundQuotientEIP3529 uint64 = 5 // refunds capped at gas_used / 5

	LogGas      uint64 = 375
	LogTopicGas uint64 = 375
	LogDataGas  uint64 = 8

	Keccak256Gas     uint64 = 30
	Keccak256WordGas uint64 = 6

	MemoryGas      uint64 = 3
	QuadCoeffDiv    uint64 = 512
	CopyGas         uint64 = 3

	JumpdestGas uint64 = 1

	// Precompile gas schedule (spec.md §4.4).
	EcrecoverGas           uint64 = 3000
	Sha256BaseGas          uint64 = 60
	Sha256PerWordGas       uint64 = 12
	Ripemd160BaseGas       uint64 = 600
	Ripemd160PerWordGas    uint64 = 120
	IdentityBaseGas        uint64 = 15
	IdentityPerWordGas     uint64 = 3
	ModExpQuadCoeffDiv     uint64 = 3
	ModExpMinGas           uint64 = 200
	Bn256AddGas            uint64 = 150
	Bn256ScalarMulGas      uint64 = 6000
	Bn256PairingBaseGas    uint64 = 45000
	Bn256PairingPerPointGas uint64 = 34000
	Blake2FPerRoundGas     uint64 = 1
	KZGPointEvaluationGas  uint64 = 50000
)
