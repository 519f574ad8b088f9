package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// CreateAddress derives the address CREATE assigns a newly-deployed
// contract: keccak256(rlp([sender, nonce]))[12..] (spec.md §3). go-ethereum's
// own crypto package already implements this derivation (RLP-encoding a
// sender/nonce pair is exactly what it's for), so this is a thin wrapper
// rather than a second RLP encoder.
func CreateAddress(sender common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(sender, nonce)
}

// CreateAddress2 derives the address CREATE2 assigns:
// keccak256(0xff || sender || salt || keccak256(initCode))[12..].
func CreateAddress2(sender common.Address, salt [32]byte, initCode []byte) common.Address {
	return crypto.CreateAddress2(sender, salt, crypto.Keccak256(initCode))
}
