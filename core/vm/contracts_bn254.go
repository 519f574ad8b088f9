package vm

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/lazyevm/lazyevm/core/params"
)

// alt_bn128 (bn254) curve precompiles: 0x06 add, 0x07 scalar-mul, 0x08
// pairing check (spec.md §4.4's 0x06-0x08 bullet).

var (
	errBn254InvalidPoint = errors.New("bn254: invalid point")
	errBn254InvalidInput = errors.New("bn254: invalid input length")
)

// decodeG1 reads a 64-byte (x||y) big-endian affine point, accepting the
// point at infinity as (0,0).
func decodeG1(buf []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(buf) != 64 {
		return p, errBn254InvalidInput
	}
	p.X.SetBytes(buf[:32])
	p.Y.SetBytes(buf[32:64])
	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil
	}
	if !p.IsOnCurve() {
		return p, errBn254InvalidPoint
	}
	return p, nil
}

func encodeG1(p *bn254.G1Affine) []byte {
	out := make([]byte, 64)
	xb := p.X.Bytes()
	yb := p.Y.Bytes()
	copy(out[32-len(xb):32], xb[:])
	copy(out[64-len(yb):64], yb[:])
	return out
}

// decodeG2 reads a 128-byte (x.a1||x.a0||y.a1||y.a0) big-endian affine
// point — Ethereum's wire order puts each Fp2 coordinate's imaginary part
// first, matching go-ethereum's bn256.go twist-point encoding.
func decodeG2(buf []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(buf) != 128 {
		return p, errBn254InvalidInput
	}
	p.X.A1.SetBytes(buf[0:32])
	p.X.A0.SetBytes(buf[32:64])
	p.Y.A1.SetBytes(buf[64:96])
	p.Y.A0.SetBytes(buf[96:128])
	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil
	}
	if !p.IsOnCurve() {
		return p, errBn254InvalidPoint
	}
	return p, nil
}

type bn254Add struct{}

func (c *bn254Add) RequiredGas(input []byte) uint64 { return params.Bn256AddGas }

func (c *bn254Add) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 128)
	p1, err := decodeG1(input[:64])
	if err != nil {
		return nil, err
	}
	p2, err := decodeG1(input[64:128])
	if err != nil {
		return nil, err
	}
	var res bn254.G1Jac
	var a1, a2 bn254.G1Jac
	a1.FromAffine(&p1)
	a2.FromAffine(&p2)
	res.Set(&a1).AddAssign(&a2)
	var out bn254.G1Affine
	out.FromJacobian(&res)
	return encodeG1(&out), nil
}

type bn254ScalarMul struct{}

func (c *bn254ScalarMul) RequiredGas(input []byte) uint64 { return params.Bn256ScalarMulGas }

func (c *bn254ScalarMul) Run(input []byte) ([]byte, error) {
	input = rightPad(input, 96)
	p, err := decodeG1(input[:64])
	if err != nil {
		return nil, err
	}
	scalar := new(big.Int).SetBytes(input[64:96])
	var res bn254.G1Jac
	var aff bn254.G1Jac
	aff.FromAffine(&p)
	res.ScalarMultiplication(&aff, scalar)
	var out bn254.G1Affine
	out.FromJacobian(&res)
	return encodeG1(&out), nil
}

type bn254Pairing struct{}

func (c *bn254Pairing) RequiredGas(input []byte) uint64 {
	n := uint64(len(input) / 192)
	return params.Bn256PairingBaseGas + n*params.Bn256PairingPerPointGas
}

func (c *bn254Pairing) Run(input []byte) ([]byte, error) {
	if len(input)%192 != 0 {
		return nil, errBn254InvalidInput
	}
	var g1s []bn254.G1Affine
	var g2s []bn254.G2Affine
	for i := 0; i < len(input); i += 192 {
		chunk := input[i : i+192]
		p1, err := decodeG1(chunk[:64])
		if err != nil {
			return nil, err
		}
		p2, err := decodeG2(chunk[64:192])
		if err != nil {
			return nil, err
		}
		if !p1.IsInSubGroup() || !p2.IsInSubGroup() {
			return nil, errBn254InvalidPoint
		}
		g1s = append(g1s, p1)
		g2s = append(g2s, p2)
	}
	out := make([]byte, 32)
	if len(g1s) == 0 {
		out[31] = 1
		return out, nil
	}
	ok, err := bn254.PairingCheck(g1s, g2s)
	if err != nil {
		return nil, err
	}
	if ok {
		out[31] = 1
	}
	return out, nil
}

func rightPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b[:size]
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}
