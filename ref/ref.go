// Package ref is the bit-accurate software golden model for the
// datapath.
//
// Each function computes, without any pipeline, the exact value the
// corresponding hardware unit must produce under identical fixed-point
// parameters. The rtl packages are verified against this model bit for
// bit; matching it is the compatibility contract the datapath exists to
// satisfy.
package ref

import (
	"math"

	"github.com/sarchlab/cnnsim/fixed"
)

// ProductSum returns the K*K elementwise product-sum of an activation
// window against a weight window, at the full-growth format the MM unit
// emits: N1+N2+clog2(K*K) bits, F1+F2 fractional bits.
func ProductSum(data, weights fixed.Window) fixed.Value {
	out := fixed.Format{
		Bits: data.Format().Bits + weights.Format().Bits + fixed.Clog2(data.Len()),
		Frac: data.Format().Frac + weights.Format().Frac,
	}
	acc := fixed.Zero(out)
	for i, d := range data.Values() {
		p := fixed.Resize(fixed.Mul(d, weights.Values()[i]), out, fixed.Wrap, fixed.Truncate)
		acc = fixed.Resize(fixed.Add(acc, p), out, fixed.Wrap, fixed.Truncate)
	}
	return acc
}

// Conv returns one output-channel value of a convolution: the
// product-sums of all input channels accumulated in the given
// accumulator format, plus the bias, saturated and rounded once to the
// output format. The data and weights slices hold one window per input
// channel.
func Conv(data, weights []fixed.Window, bias fixed.Value, acc, out fixed.Format) fixed.Value {
	sum := fixed.Zero(acc)
	for i, d := range data {
		ps := fixed.Resize(ProductSum(d, weights[i]), acc, fixed.Wrap, fixed.Truncate)
		sum = fixed.Resize(fixed.Add(sum, ps), acc, fixed.Wrap, fixed.Truncate)
	}
	aligned := fixed.Resize(bias, acc, fixed.Wrap, fixed.Truncate)
	biased := fixed.Add(sum, aligned)
	return fixed.Resize(biased, out, fixed.Saturate, fixed.Round)
}

// MaxPool returns the maximum element of the window. The result keeps
// the element format; max never grows the bit-width.
func MaxPool(w fixed.Window) fixed.Value {
	values := w.Values()
	m := values[0]
	for _, v := range values[1:] {
		m = fixed.Max(m, v)
	}
	return m
}

// Quantize converts a float to the nearest representable fixed-point
// value, ties to even, clamping at the representable extremes. This is
// the front-end used to build fixtures from real-valued models.
func Quantize(f float64, format fixed.Format) (fixed.Value, error) {
	scaled := f * math.Exp2(float64(format.Frac))
	raw := int64(math.RoundToEven(scaled))
	if raw > format.MaxRaw() {
		raw = format.MaxRaw()
	} else if raw < format.MinRaw() {
		raw = format.MinRaw()
	}
	return fixed.New(raw, format)
}

// QuantizeWindow quantizes a row-major float grid into a window.
func QuantizeWindow(side int, format fixed.Format, floats []float64) (fixed.Window, error) {
	values := make([]fixed.Value, 0, len(floats))
	for _, f := range floats {
		v, err := Quantize(f, format)
		if err != nil {
			return fixed.Window{}, err
		}
		values = append(values, v)
	}
	return fixed.NewWindow(side, format, values)
}
