// Package word implements the 256-bit unsigned integer that backs every
// EVM stack slot, storage key and value, and (left-zero-padded) address.
//
// Arithmetic wraps modulo 2^256, matching the EVM's ALU. Signed variants
// (SDIV, SMOD, SLT, SGT, SAR, SIGNEXTEND) reinterpret the same 32 bytes as
// two's-complement, exactly as the spec and go-ethereum's core/vm do.
package word

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Word is a 256-bit unsigned integer. The zero value is 0.
type Word struct {
	u uint256.Int
}

// Zero is the additive identity.
var Zero = Word{}

// One is the multiplicative identity.
var One = FromUint64(1)

// FromUint64 builds a Word from a native uint64.
func FromUint64(n uint64) Word {
	var w Word
	w.u.SetUint64(n)
	return w
}

// FromBig converts a big.Int, wrapping modulo 2^256 and discarding sign.
func FromBig(b *big.Int) Word {
	var w Word
	w.u.SetFromBig(b)
	return w
}

// FromBytes interprets up to 32 big-endian bytes as a Word; longer slices
// are truncated to their low 32 bytes, matching uint256.SetBytes.
func FromBytes(b []byte) Word {
	var w Word
	w.u.SetBytes(b)
	return w
}

// FromAddress left-zero-pads a 20-byte address into the low bits of a Word.
func FromAddress(addr common.Address) Word {
	var w Word
	w.u.SetBytes(addr.Bytes())
	return w
}

// FromHex parses a "0x"-prefixed or bare hex string. It never errors: an
// invalid string decodes to zero, matching the EVM's treatment of
// malformed immediates after decoding.
func FromHex(s string) Word {
	b, err := hexutilBytes(s)
	if err != nil {
		return Zero
	}
	return FromBytes(b)
}

func hexutilBytes(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexDigit(s[2*i])
		if err != nil {
			return nil, err
		}
		lo, err := hexDigit(s[2*i+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, errInvalidHexDigit
	}
}

var errInvalidHexDigit = errInvalidHex{}

type errInvalidHex struct{}

func (errInvalidHex) Error() string { return "word: invalid hex digit" }

// Bytes32 returns the big-endian 32-byte encoding.
func (w Word) Bytes32() [32]byte {
	return w.u.Bytes32()
}

// Bytes returns the big-endian encoding with no leading-zero padding.
func (w Word) Bytes() []byte {
	return w.u.Bytes()
}

// Big returns a *big.Int copy.
func (w Word) Big() *big.Int {
	return w.u.ToBig()
}

// Address returns the low 20 bytes as an address.
func (w Word) Address() common.Address {
	var a common.Address
	b := w.u.Bytes20()
	copy(a[:], b[12:])
	return a
}

// Uint64 returns the low 64 bits, truncating silently.
func (w Word) Uint64() uint64 {
	return w.u.Uint64()
}

// IsZero reports whether w == 0.
func (w Word) IsZero() bool { return w.u.IsZero() }

// Eq reports w == other.
func (w Word) Eq(other Word) bool { return w.u.Eq(&other.u) }

// Cmp returns -1, 0 or 1 comparing w and other as unsigned integers.
func (w Word) Cmp(other Word) int { return w.u.Cmp(&other.u) }

func binop(f func(dst, a, b *uint256.Int) *uint256.Int, a, b Word) Word {
	var out Word
	f(&out.u, &a.u, &b.u)
	return out
}

// Add returns a+b mod 2^256.
func Add(a, b Word) Word { return binop((*uint256.Int).Add, a, b) }

// Sub returns a-b mod 2^256.
func Sub(a, b Word) Word { return binop((*uint256.Int).Sub, a, b) }

// Mul returns a*b mod 2^256.
func Mul(a, b Word) Word { return binop((*uint256.Int).Mul, a, b) }

// Div returns floor(a/b), or 0 if b == 0 (the EVM's DIV convention).
func Div(a, b Word) Word {
	if b.IsZero() {
		return Zero
	}
	return binop((*uint256.Int).Div, a, b)
}

// Mod returns a mod b, or 0 if b == 0.
func Mod(a, b Word) Word {
	if b.IsZero() {
		return Zero
	}
	return binop((*uint256.Int).Mod, a, b)
}

// SDiv returns the signed (two's-complement) quotient, with the EVM's
// special case MinInt256 / -1 == MinInt256, and 0 if b == 0.
func SDiv(a, b Word) Word {
	if b.IsZero() {
		return Zero
	}
	return binop((*uint256.Int).SDiv, a, b)
}

// SMod returns the signed remainder, 0 if b == 0.
func SMod(a, b Word) Word {
	if b.IsZero() {
		return Zero
	}
	return binop((*uint256.Int).SMod, a, b)
}

// AddMod returns (a+b) mod m computed in 512-bit intermediate space so the
// addition cannot overflow before the modulo is applied. 0 if m == 0.
func AddMod(a, b, m Word) Word {
	if m.IsZero() {
		return Zero
	}
	var out Word
	out.u.AddMod(&a.u, &b.u, &m.u)
	return out
}

// MulMod returns (a*b) mod m computed in 512-bit intermediate space. 0 if
// m == 0.
func MulMod(a, b, m Word) Word {
	if m.IsZero() {
		return Zero
	}
	var out Word
	out.u.MulMod(&a.u, &b.u, &m.u)
	return out
}

// Exp returns a**b mod 2^256 (wrapping).
func Exp(a, b Word) Word {
	var out Word
	out.u.Exp(&a.u, &b.u)
	return out
}

// SignExtend interprets byte index b (0 = least significant) as the sign
// byte of x and sign-extends leftward. If b >= 32, x is returned unchanged.
func SignExtend(b, x Word) Word {
	var out Word
	out.u.ExtendSign(&x.u, &b.u)
	return out
}

// Lt reports a < b (unsigned).
func Lt(a, b Word) bool { return a.u.Lt(&b.u) }

// Gt reports a > b (unsigned).
func Gt(a, b Word) bool { return a.u.Gt(&b.u) }

// Slt reports a < b interpreting both as signed.
func Slt(a, b Word) bool { return a.u.Slt(&b.u) }

// Sgt reports a > b interpreting both as signed.
func Sgt(a, b Word) bool { return a.u.Sgt(&b.u) }

// And, Or, Xor, Not implement the corresponding bitwise EVM opcodes.
func And(a, b Word) Word { return binop((*uint256.Int).And, a, b) }
func Or(a, b Word) Word  { return binop((*uint256.Int).Or, a, b) }
func Xor(a, b Word) Word { return binop((*uint256.Int).Xor, a, b) }

func Not(a Word) Word {
	var out Word
	out.u.Not(&a.u)
	return out
}

// Byte returns the i-th most-significant byte of x as a Word, or 0 if
// i >= 32.
func Byte(i, x Word) Word {
	return FromUint64(x.u.Byte(&i.u))
}

// Shl returns x << shift, saturating to 0 for shift >= 256.
func Shl(shift, x Word) Word {
	if shift.Cmp(FromUint64(256)) >= 0 {
		return Zero
	}
	var out Word
	out.u.Lsh(&x.u, uint(shift.Uint64()))
	return out
}

// Shr returns x >> shift (logical), saturating to 0 for shift >= 256.
func Shr(shift, x Word) Word {
	if shift.Cmp(FromUint64(256)) >= 0 {
		return Zero
	}
	var out Word
	out.u.Rsh(&x.u, uint(shift.Uint64()))
	return out
}

// Sar returns the arithmetic (sign-filling) right shift of x by shift,
// saturating to 0 or all-ones depending on the sign bit for shift >= 256.
func Sar(shift, x Word) Word {
	var out Word
	if shift.Cmp(FromUint64(256)) >= 0 {
		if x.u.Sign() >= 0 {
			return Zero
		}
		out.u.SetAllOne()
		return out
	}
	out.u.SRsh(&x.u, uint(shift.Uint64()))
	return out
}

// Uint256 exposes the underlying holiman/uint256 value for packages that
// need to interoperate with stack/memory primitives built directly on it.
func (w Word) Uint256() *uint256.Int { return &w.u }

// FromUint256 copies the value of u into a new Word; later changes to u do
// not affect the returned Word.
func FromUint256(u *uint256.Int) Word {
	var w Word
	w.u.Set(u)
	return w
}
