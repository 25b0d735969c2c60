// Package fixed implements signed fixed-point arithmetic with explicit
// bit-growth, overflow, and rounding semantics.
//
// A Value is a signed integer stored in Bits total bits with Frac
// fractional bits, representing raw / 2^Frac. Every conversion that can
// lose information goes through Resize, which takes both an overflow
// policy (wrap or saturate) and a rounding policy (truncate or round)
// as explicit arguments. There are no implicit conversions.
package fixed

import (
	"fmt"
)

const (
	// MinBits is the smallest supported total bit-width.
	MinBits = 1

	// MaxBits is the largest total bit-width of a single operand.
	// Keeping operands at 24 bits or less guarantees that every derived
	// width in the datapath (full multiply growth plus sum-tree and
	// accumulator headroom) stays within an int64.
	MaxBits = 24

	// maxDerivedBits bounds the widths produced by Mul, Add, and the
	// accumulator formats derived from them. Widths up to 63 keep raw
	// arithmetic exact in an int64.
	maxDerivedBits = 63
)

// Format describes a fixed-point encoding: total bits and fractional bits.
type Format struct {
	// Bits is the total width N, including the sign bit.
	Bits uint

	// Frac is the number of fractional bits F, F <= N.
	Frac uint
}

// Validate checks that the format describes a representable operand encoding.
func (f Format) Validate() error {
	if f.Bits < MinBits || f.Bits > MaxBits {
		return fmt.Errorf("fixed: total bits %d out of range [%d, %d]",
			f.Bits, MinBits, MaxBits)
	}
	if f.Frac > f.Bits {
		return fmt.Errorf("fixed: fractional bits %d exceed total bits %d",
			f.Frac, f.Bits)
	}
	return nil
}

// MaxRaw returns the largest representable raw integer, 2^(N-1)-1.
func (f Format) MaxRaw() int64 {
	return (int64(1) << (f.Bits - 1)) - 1
}

// MinRaw returns the smallest representable raw integer, -2^(N-1).
func (f Format) MinRaw() int64 {
	return -(int64(1) << (f.Bits - 1))
}

func (f Format) String() string {
	return fmt.Sprintf("Q%d.%d", f.Bits-f.Frac, f.Frac)
}

// Overflow selects the behavior when a value does not fit the target width.
type Overflow int

const (
	// Wrap discards the high bits and sign-extends what remains. A value
	// that does not fit silently aliases; this is hardware truncation
	// semantics, not an error.
	Wrap Overflow = iota

	// Saturate clamps to the most positive or most negative
	// representable value at the target width.
	Saturate
)

// Rounding selects the behavior when fractional bits are discarded.
type Rounding int

const (
	// Truncate drops the removed fractional bits (arithmetic shift,
	// rounds toward negative infinity).
	Truncate Rounding = iota

	// Round rounds to the nearest representable value, ties to even.
	Round
)

// Value is an immutable signed fixed-point value.
type Value struct {
	raw int64
	fmt Format
}

// New constructs a Value from a raw integer, checking that it is
// representable in the given format.
func New(raw int64, format Format) (Value, error) {
	if err := format.Validate(); err != nil {
		return Value{}, err
	}
	if raw < format.MinRaw() || raw > format.MaxRaw() {
		return Value{}, fmt.Errorf("fixed: raw value %d not representable in %s",
			raw, format)
	}
	return Value{raw: raw, fmt: format}, nil
}

// MustNew is New that panics on error, for literals in tests and tables.
func MustNew(raw int64, format Format) Value {
	v, err := New(raw, format)
	if err != nil {
		panic(err)
	}
	return v
}

// Zero returns the zero value in the given format. The format is not
// validated; Zero is used on internal derived formats wider than MaxBits.
func Zero(format Format) Value {
	return Value{fmt: format}
}

// FromBits decodes an N-bit two's-complement bus word into a Value.
func FromBits(word uint64, format Format) (Value, error) {
	if err := format.Validate(); err != nil {
		return Value{}, err
	}
	if format.Bits < 64 && word >= uint64(1)<<format.Bits {
		return Value{}, fmt.Errorf("fixed: bus word %#x wider than %d bits",
			word, format.Bits)
	}
	return Value{raw: signExtend(int64(word), format.Bits), fmt: format}, nil
}

// Word encodes the value as an N-bit two's-complement bus word. The
// encoding is lossless: FromBits(v.Word(), v.Format()) == v.
func (v Value) Word() uint64 {
	mask := uint64(1)<<v.fmt.Bits - 1
	return uint64(v.raw) & mask
}

// Raw returns the underlying raw integer.
func (v Value) Raw() int64 {
	return v.raw
}

// Format returns the value's encoding.
func (v Value) Format() Format {
	return v.fmt
}

// Float returns raw / 2^Frac as a float64, for reporting only. The
// datapath never computes with floats.
func (v Value) Float() float64 {
	return float64(v.raw) / float64(int64(1)<<v.fmt.Frac)
}

func (v Value) String() string {
	return fmt.Sprintf("%d%s", v.raw, v.fmt)
}

// Mul multiplies two values with full bit growth: the result has
// N1+N2 total bits and F1+F2 fractional bits and is mathematically
// exact. No resize is implied.
func Mul(a, b Value) Value {
	format := Format{
		Bits: a.fmt.Bits + b.fmt.Bits,
		Frac: a.fmt.Frac + b.fmt.Frac,
	}
	return Value{raw: a.raw * b.raw, fmt: format}
}

// Add sums two values with aligned fractional bits. The result has one
// extra integer bit, so a single addition can never overflow. Operands
// with differing fractional bits are a contract violation: call sites
// must align with Resize first.
func Add(a, b Value) Value {
	if a.fmt.Frac != b.fmt.Frac {
		panic(fmt.Sprintf("fixed: Add operands not aligned: %s vs %s", a.fmt, b.fmt))
	}
	bits := a.fmt.Bits
	if b.fmt.Bits > bits {
		bits = b.fmt.Bits
	}
	format := Format{Bits: bits + 1, Frac: a.fmt.Frac}
	return Value{raw: a.raw + b.raw, fmt: format}
}

// Max returns the larger of two same-format values. Equal values yield
// that value; no bit growth occurs.
func Max(a, b Value) Value {
	if a.fmt != b.fmt {
		panic(fmt.Sprintf("fixed: Max operands differ in format: %s vs %s", a.fmt, b.fmt))
	}
	if b.raw > a.raw {
		return b
	}
	return a
}

// Resize converts a value to a new format under explicit overflow and
// rounding policies. Fractional bits are adjusted first (applying the
// rounding policy when bits are removed), then the integer range is
// adjusted (applying the overflow policy when the value does not fit).
func Resize(v Value, format Format, overflow Overflow, rounding Rounding) Value {
	raw := v.raw
	switch {
	case format.Frac < v.fmt.Frac:
		drop := v.fmt.Frac - format.Frac
		switch rounding {
		case Round:
			raw = roundHalfEven(raw, drop)
		default:
			raw >>= drop
		}
	case format.Frac > v.fmt.Frac:
		raw <<= format.Frac - v.fmt.Frac
	}

	switch overflow {
	case Saturate:
		if raw > format.MaxRaw() {
			raw = format.MaxRaw()
		} else if raw < format.MinRaw() {
			raw = format.MinRaw()
		}
	default:
		raw = signExtend(raw, format.Bits)
	}

	return Value{raw: raw, fmt: format}
}

// roundHalfEven rounds raw/2^drop to the nearest integer, ties to even.
func roundHalfEven(raw int64, drop uint) int64 {
	floor := raw >> drop
	rem := raw - floor<<drop
	half := int64(1) << (drop - 1)
	switch {
	case rem > half:
		return floor + 1
	case rem < half:
		return floor
	default:
		if floor&1 != 0 {
			return floor + 1
		}
		return floor
	}
}

// signExtend interprets the low bits of raw as a two's-complement value
// of the given width.
func signExtend(raw int64, bits uint) int64 {
	shift := 64 - bits
	return raw << shift >> shift
}

// Clog2 returns ceil(log2(n)) for n >= 1. It gives the number of extra
// integer bits needed to sum n same-format terms without overflow.
func Clog2(n int) uint {
	if n <= 1 {
		return 0
	}
	bits := uint(0)
	for v := n - 1; v > 0; v >>= 1 {
		bits++
	}
	return bits
}
