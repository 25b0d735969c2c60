// Package mm implements the multiply-accumulate unit of the datapath.
//
// Per invocation the unit computes one scalar: the full K*K elementwise
// product-sum of an activation window against a weight window. It does
// not accumulate across input channels; that is the convolution unit's
// job. The pipeline has a constant depth of three registers (input,
// products, sum) independent of the kernel size.
package mm

import (
	"fmt"

	"github.com/sarchlab/cnnsim/fixed"
	"github.com/sarchlab/cnnsim/rtl/delay"
)

// Latency is the pipeline depth in clock cycles: a window pair presented
// with valid at tick t produces its result with valid at tick t+Latency.
const Latency = 3

// Config holds the compile-time parameters of the unit.
type Config struct {
	// Data is the element format of the activation window.
	Data fixed.Format

	// Weight is the element format of the weight window.
	Weight fixed.Format

	// Kernel is the window side K. K = 1 degenerates to a single
	// registered multiply.
	Kernel int
}

// Validate rejects invalid parameter combinations at elaboration time.
func (c Config) Validate() error {
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("mm: data format: %w", err)
	}
	if err := c.Weight.Validate(); err != nil {
		return fmt.Errorf("mm: weight format: %w", err)
	}
	if c.Kernel < 1 {
		return fmt.Errorf("mm: kernel size %d must be >= 1", c.Kernel)
	}
	out := c.OutputFormat()
	if out.Bits > 62 {
		return fmt.Errorf("mm: output width %d bits exceeds the supported 62", out.Bits)
	}
	return nil
}

// OutputFormat returns the result format: full multiply growth plus the
// extra integer bits needed to sum K*K product terms without overflow.
func (c Config) OutputFormat() fixed.Format {
	terms := c.Kernel * c.Kernel
	return fixed.Format{
		Bits: c.Data.Bits + c.Weight.Bits + fixed.Clog2(terms),
		Frac: c.Data.Frac + c.Weight.Frac,
	}
}

// Input carries the unit's per-cycle input signals.
type Input struct {
	// Enable is the channel-enable gate. When deasserted the whole unit
	// freezes: no register updates, outputs hold.
	Enable bool

	// Valid marks Data and Weights as a new window pair.
	Valid bool

	// Data is the K x K activation window.
	Data fixed.Window

	// Weights is the K x K weight window.
	Weights fixed.Window
}

// Output carries the unit's per-cycle output signals.
type Output struct {
	// Valid marks Result as a completed product-sum.
	Valid bool

	// Result is the K*K product-sum in the configured output format.
	Result fixed.Value
}

// Unit is the pipelined multiply-accumulate engine.
type Unit struct {
	config Config
	out    fixed.Format

	// Pipeline payload registers, input side first.
	dataReg    fixed.Window
	weightsReg fixed.Window
	products   []fixed.Value
	result     fixed.Value

	valid    *delay.Line
	outValid bool
}

// New creates a multiply-accumulate unit, validating the configuration.
func New(config Config) (*Unit, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	line, err := delay.New(Latency)
	if err != nil {
		return nil, err
	}
	out := config.OutputFormat()
	return &Unit{
		config: config,
		out:    out,
		result: fixed.Zero(out),
		valid:  line,
	}, nil
}

// Config returns the unit's configuration.
func (u *Unit) Config() Config {
	return u.config
}

// Tick simulates one clock cycle. The returned Output is what the
// consumer sees on the wires during this cycle, before the clock edge;
// register updates then apply unless Enable is deasserted.
func (u *Unit) Tick(in Input) Output {
	out := Output{Valid: u.outValid, Result: u.result}
	if !in.Enable {
		return out
	}

	// Advance back to front so each stage consumes the previous edge's
	// register contents.
	u.result = u.sum(u.products)
	u.products = u.multiply(u.dataReg, u.weightsReg)
	u.dataReg = in.Data
	u.weightsReg = in.Weights
	u.outValid = u.valid.Tick(in.Valid)

	return out
}

// multiply computes the elementwise products of the registered window
// pair at full bit growth.
func (u *Unit) multiply(data, weights fixed.Window) []fixed.Value {
	if data.Len() == 0 || weights.Len() == 0 {
		return nil
	}
	products := make([]fixed.Value, data.Len())
	for i, d := range data.Values() {
		products[i] = fixed.Mul(d, weights.Values()[i])
	}
	return products
}

// sum reduces the product terms into the output format. Each partial
// sum resizes with wrap+truncate: the output width already accounts for
// the full sum growth, so nothing is lost; wrapping merely bounds the
// register width instead of letting it grow per term.
func (u *Unit) sum(products []fixed.Value) fixed.Value {
	acc := fixed.Zero(u.out)
	for _, p := range products {
		aligned := fixed.Resize(p, u.out, fixed.Wrap, fixed.Truncate)
		acc = fixed.Resize(fixed.Add(acc, aligned), u.out, fixed.Wrap, fixed.Truncate)
	}
	return acc
}
