package vm

import (
	"crypto/sha256"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"

	"github.com/lazyevm/lazyevm/core/params"
)

// 0x0A kzg_point_evaluation (EIP-4844): verify that a KZG commitment opens
// to a claimed value at a point, and that the commitment hashes to the
// expected versioned hash (spec.md §4.4's 0x0A bullet).

var (
	errKZGInvalidInputLength = errors.New("kzg: invalid input length")
	errKZGMismatchedVersion  = errors.New("kzg: versioned hash mismatch")
	errKZGInvalidProof       = errors.New("kzg: invalid proof")
)

// kzgVersionedHashVersion is the single byte (0x01) that replaces the
// top byte of a commitment's SHA-256 hash to form its versioned hash.
const kzgVersionedHashVersion = 0x01

// kzgPrecompileReturnValue is FIELD_ELEMENTS_PER_BLOB (4096) followed by
// the BLS12-381 scalar field modulus, both big-endian 32-byte words —
// the fixed 64-byte success payload EIP-4844 specifies.
var kzgPrecompileReturnValue = func() [64]byte {
	var out [64]byte
	out[30] = 0x10 // 4096 = 0x1000, big-endian in the low two bytes of the word
	copy(out[32:64], common.FromHex("0x73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001"))
	return out
}()

func kzgVersionedHash(commitment kzg4844.Commitment) common.Hash {
	h := sha256.Sum256(commitment[:])
	h[0] = kzgVersionedHashVersion
	return common.Hash(h)
}

type kzgPointEvaluation struct{}

func (c *kzgPointEvaluation) RequiredGas(input []byte) uint64 { return params.KZGPointEvaluationGas }

func (c *kzgPointEvaluation) Run(input []byte) ([]byte, error) {
	if len(input) != 192 {
		return nil, errKZGInvalidInputLength
	}
	var versionedHash common.Hash
	copy(versionedHash[:], input[:32])

	var point kzg4844.Point
	copy(point[:], input[32:64])
	var claim kzg4844.Claim
	copy(claim[:], input[64:96])
	var commitment kzg4844.Commitment
	copy(commitment[:], input[96:144])
	var proof kzg4844.Proof
	copy(proof[:], input[144:192])

	if kzgVersionedHash(commitment) != versionedHash {
		return nil, errKZGMismatchedVersion
	}
	if err := kzg4844.VerifyProof(commitment, point, claim, proof); err != nil {
		return nil, errKZGInvalidProof
	}

	out := kzgPrecompileReturnValue
	return out[:], nil
}
