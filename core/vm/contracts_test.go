package vm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lazyevm/lazyevm/core/params"
)

func precompileAt(t *testing.T, n byte) PrecompiledContract {
	t.Helper()
	addr := common.BytesToAddress([]byte{n})
	p, ok := precompiles[addr]
	if !ok {
		t.Fatalf("no precompile registered at address %d", n)
	}
	return p
}

func TestIsPrecompile(t *testing.T) {
	for n := byte(1); n <= 10; n++ {
		if !IsPrecompile(common.BytesToAddress([]byte{n})) {
			t.Errorf("expected address %d to be a precompile", n)
		}
	}
	if IsPrecompile(common.BytesToAddress([]byte{11})) {
		t.Error("expected address 11 not to be a precompile")
	}
}

func TestIdentityPrecompile(t *testing.T) {
	p := precompileAt(t, 4)
	input := []byte("the quick brown fox")
	ret, remaining, err := runPrecompile(p, input, p.RequiredGas(input)+1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ret) != string(input) {
		t.Errorf("expected identity to echo its input, got %q", ret)
	}
	if remaining != 1000 {
		t.Errorf("expected 1000 gas left over, got %d", remaining)
	}
}

func TestIdentityPrecompileGasCost(t *testing.T) {
	p := precompileAt(t, 4)
	input := make([]byte, 64)
	got := p.RequiredGas(input)
	want := params.IdentityBaseGas + wordCount(len(input))*params.IdentityPerWordGas
	if got != want {
		t.Errorf("expected %d gas for a 64-byte input, got %d", want, got)
	}
}

func TestSha256Precompile(t *testing.T) {
	p := precompileAt(t, 2)
	ret, _, err := runPrecompile(p, []byte("abc"), p.RequiredGas([]byte("abc")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := common.FromHex("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	if common.Bytes2Hex(ret) != common.Bytes2Hex(want[:32]) {
		t.Errorf("expected the known SHA-256(\"abc\") digest, got %x", ret)
	}
}

func TestRipemd160Precompile(t *testing.T) {
	p := precompileAt(t, 3)
	ret, _, err := runPrecompile(p, []byte("abc"), p.RequiredGas([]byte("abc")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ret) != 32 {
		t.Fatalf("expected a left-padded 32-byte digest, got %d bytes", len(ret))
	}
	for _, b := range ret[:12] {
		if b != 0 {
			t.Fatalf("expected the digest left-padded with zeroes, got %x", ret)
		}
	}
}

func TestEcrecoverPrecompileGasIsFlat(t *testing.T) {
	p := precompileAt(t, 1)
	if p.RequiredGas(nil) != params.EcrecoverGas {
		t.Errorf("expected a flat %d gas regardless of input", params.EcrecoverGas)
	}
}

func TestEcrecoverMalformedInputRecoversNothing(t *testing.T) {
	p := precompileAt(t, 1)
	ret, _, err := runPrecompile(p, []byte{0x01, 0x02}, p.RequiredGas(nil))
	if err != nil {
		t.Fatalf("ECRECOVER never errors on malformed input, it returns 32 zero bytes: %v", err)
	}
	if string(ret) != string(make([]byte, 32)) {
		t.Errorf("expected 32 zero bytes for an unrecoverable signature, got %x", ret)
	}
}

func TestEcrecoverRecoversTheSigningAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	want := crypto.PubkeyToAddress(key.PublicKey)

	hash := crypto.Keccak256([]byte("ecrecover precompile test message"))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	input := make([]byte, 128)
	copy(input[0:32], hash)
	input[63] = sig[64] + 27 // v, as a single byte at the low end of its 32-byte word
	copy(input[64:96], sig[0:32])  // r
	copy(input[96:128], sig[32:64]) // s

	p := precompileAt(t, 1)
	ret, _, err := runPrecompile(p, input, p.RequiredGas(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := common.BytesToAddress(ret)
	if got != want {
		t.Errorf("recovered address = %s, want %s", got, want)
	}
}

func TestEcrecoverNormalizesHighS(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	want := crypto.PubkeyToAddress(key.PublicKey)

	hash := crypto.Keccak256([]byte("another message"))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	s := new(big.Int).SetBytes(sig[32:64])
	flippedS := new(big.Int).Sub(secp256k1N, s)
	recID := sig[64] ^ 1

	input := make([]byte, 128)
	copy(input[0:32], hash)
	input[63] = recID + 27
	copy(input[64:96], sig[0:32])
	copy(input[96:128], common.LeftPadBytes(flippedS.Bytes(), 32))

	p := precompileAt(t, 1)
	ret, _, err := runPrecompile(p, input, p.RequiredGas(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := common.BytesToAddress(ret)
	if got != want {
		t.Errorf("recovered address from the high-S form = %s, want %s", got, want)
	}
}

func TestModexpPrecompile(t *testing.T) {
	p := precompileAt(t, 5)
	// 3^5 mod 7 == 5, encoded as (baseLen=1, expLen=1, modLen=1, base=3, exp=5, mod=7).
	input := common.FromHex(
		"0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000001" +
			"03" + "05" + "07")
	ret, _, err := runPrecompile(p, input, p.RequiredGas(input)+100000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ret) != 1 || ret[0] != 5 {
		t.Errorf("expected 3^5 mod 7 == 5, got %x", ret)
	}
}

func TestModexpZeroModulusReturnsZero(t *testing.T) {
	p := precompileAt(t, 5)
	input := common.FromHex(
		"0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000001" +
			"03" + "05" + "00")
	ret, _, err := runPrecompile(p, input, p.RequiredGas(input)+100000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ret) != 1 || ret[0] != 0 {
		t.Errorf("expected mod-by-zero to yield 0, got %x", ret)
	}
}

func TestBn254AddPrecompile(t *testing.T) {
	p := precompileAt(t, 6)
	// (0,0) + (0,0) == (0,0) on the bn254 curve's point-at-infinity encoding.
	input := make([]byte, 128)
	ret, _, err := runPrecompile(p, input, p.RequiredGas(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ret) != 64 {
		t.Fatalf("expected a 64-byte encoded point, got %d bytes", len(ret))
	}
	for _, b := range ret {
		if b != 0 {
			t.Errorf("expected the identity plus the identity to stay the identity, got %x", ret)
			break
		}
	}
}

func TestBn254ScalarMulPrecompileIdentity(t *testing.T) {
	p := precompileAt(t, 7)
	input := make([]byte, 96) // point-at-infinity times any scalar is still infinity
	ret, _, err := runPrecompile(p, input, p.RequiredGas(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ret) != 64 {
		t.Fatalf("expected a 64-byte encoded point, got %d bytes", len(ret))
	}
}

func TestBn254PairingEmptyInputIsTrue(t *testing.T) {
	p := precompileAt(t, 8)
	ret, _, err := runPrecompile(p, nil, p.RequiredGas(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := common.LeftPadBytes([]byte{1}, 32)
	if common.Bytes2Hex(ret) != common.Bytes2Hex(want) {
		t.Errorf("expected the empty pairing check to return true, got %x", ret)
	}
}

func TestBlake2FMalformedInput(t *testing.T) {
	p := precompileAt(t, 9)
	for _, tc := range blake2FMalformedInputTests {
		in := common.FromHex(tc.Input)
		_, err := p.Run(in)
		if err != tc.expectedError {
			t.Errorf("%s: expected %v, got %v", tc.Name, tc.expectedError, err)
		}
	}
}

func TestBlake2FZeroRounds(t *testing.T) {
	p := precompileAt(t, 9)
	// rounds=0, final=1, all-zero state/message/counters: a no-op compression.
	input := make([]byte, 213)
	input[212] = 1
	if got := p.RequiredGas(input); got != 0 {
		t.Errorf("expected zero rounds to cost zero gas, got %d", got)
	}
	if _, err := p.Run(input); err != nil {
		t.Errorf("unexpected error on well-formed zero-round input: %v", err)
	}
}

func TestKZGPointEvaluationRejectsShortInput(t *testing.T) {
	p := precompileAt(t, 10)
	if _, err := p.Run(make([]byte, 10)); err == nil {
		t.Error("expected a too-short input to be rejected")
	}
}

func TestKZGPointEvaluationGasIsFlat(t *testing.T) {
	p := precompileAt(t, 10)
	if p.RequiredGas(nil) != params.KZGPointEvaluationGas {
		t.Errorf("expected a flat %d gas regardless of input", params.KZGPointEvaluationGas)
	}
}

// blake2FMalformedInputTests mirrors the EIP-152 malformed-input test
// vectors: inputs whose length or final-block flag are invalid.
var blake2FMalformedInputTests = []struct {
	Input         string
	expectedError error
	Name          string
}{
	{
		Input:         "",
		expectedError: errBlake2FInvalidInputLength,
		Name:          "vector 0: empty input",
	},
	{
		Input: "00000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b6162630000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000300000000000000000000000000000001",
		expectedError: errBlake2FInvalidInputLength,
		Name:          "vector 1: less than 213 bytes input",
	},
	{
		Input:         "000000000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b61626300000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000300000000000000000000000000000001",
		expectedError: errBlake2FInvalidInputLength,
		Name:          "vector 2: more than 213 bytes input",
	},
	{
		Input:         "0000000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b61626300000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000300000000000000000000000000000002",
		expectedError: errBlake2FInvalidFinalFlag,
		Name:          "vector 3: malformed final block indicator flag",
	},
}
