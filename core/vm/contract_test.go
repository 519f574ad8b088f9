package vm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func TestValidJumpdest(t *testing.T) {
	code := []byte{byte(PUSH1), 0x02, byte(JUMPDEST), byte(STOP)}
	hash := crypto.Keccak256Hash(code)
	c := NewContract(common.Address{}, common.Address{}, uint256.NewInt(0), 0)
	c.SetCode(hash, code)

	if c.validJumpdest(uint256.NewInt(1)) {
		t.Errorf("offset 1 is inside the PUSH1 operand, must not validate")
	}
	if c.validJumpdest(uint256.NewInt(0)) {
		t.Errorf("offset 0 is PUSH1, not a JUMPDEST")
	}
}

func TestValidJumpdestAcceptsRealDestination(t *testing.T) {
	code := []byte{byte(PUSH1), 0x02, byte(JUMPDEST), byte(STOP)}
	hash := crypto.Keccak256Hash(code)
	c := NewContract(common.Address{}, common.Address{}, uint256.NewInt(0), 0)
	c.SetCode(hash, code)

	if !c.validJumpdest(uint256.NewInt(2)) {
		t.Errorf("offset 2 is a JUMPDEST, expected valid")
	}
}

func TestValidJumpdestRejectsOutOfRange(t *testing.T) {
	c := NewContract(common.Address{}, common.Address{}, uint256.NewInt(0), 0)
	c.SetCode(common.Hash{}, nil)
	huge := new(uint256.Int).SetAllOne()
	if c.validJumpdest(huge) {
		t.Errorf("an offset that doesn't fit in uint64 must never validate")
	}
}

func TestDecodeCachedSharesBytecode(t *testing.T) {
	code := []byte{byte(PUSH1), 0x01, byte(JUMPDEST)}
	hash := crypto.Keccak256Hash(code)
	a := decodeCached(hash, code)
	b := decodeCached(hash, code)
	if a != b {
		t.Errorf("decodeCached should return the same *Bytecode for the same code hash")
	}
}
