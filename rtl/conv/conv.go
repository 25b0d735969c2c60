// Package conv implements the convolution unit of the datapath.
//
// The unit wraps an mm.Unit and adds the per-output-channel state
// machine: it accumulates the MM product-sums across the input-channel
// sweep, adds the bias addressed by the output-channel counter, and
// resizes to the output precision with saturate+round. That final
// resize is the only rounding site in the whole chain; everything
// upstream keeps full precision under wrap+truncate.
package conv

import (
	"fmt"

	"github.com/sarchlab/cnnsim/fixed"
	"github.com/sarchlab/cnnsim/rtl/mm"
)

// Latency is the pipeline depth from the last window of an
// input-channel sweep to the corresponding output valid: the MM depth
// plus the accumulate, bias, and round registers.
const Latency = mm.Latency + 3

// Config holds the compile-time parameters of the unit.
type Config struct {
	// MM configures the embedded multiply-accumulate engine.
	MM mm.Config

	// Out is the output precision. The final resize saturates and
	// rounds to this format.
	Out fixed.Format

	// ChannelsIn is the number of input channels summed per output
	// channel (C_CH_IN).
	ChannelsIn int

	// ChannelsOut is the number of output channels (C_CH_OUT). The bias
	// table holds one value per output channel.
	ChannelsOut int

	// FirstStage marks a unit placed at the head of the pipeline, which
	// carries one extra integer bit of accumulator headroom.
	FirstStage bool

	// Bias is the per-output-channel bias table, loaded once at
	// elaboration and read-only afterwards.
	Bias []fixed.Value
}

// Validate rejects invalid parameter combinations at elaboration time.
func (c Config) Validate() error {
	if err := c.MM.Validate(); err != nil {
		return err
	}
	if err := c.Out.Validate(); err != nil {
		return fmt.Errorf("conv: output format: %w", err)
	}
	if c.ChannelsIn < 1 {
		return fmt.Errorf("conv: input channel count %d must be >= 1", c.ChannelsIn)
	}
	if c.ChannelsOut < 1 {
		return fmt.Errorf("conv: output channel count %d must be >= 1", c.ChannelsOut)
	}
	if len(c.Bias) != c.ChannelsOut {
		return fmt.Errorf("conv: bias table has %d entries, want one per output channel (%d)",
			len(c.Bias), c.ChannelsOut)
	}
	acc := c.AccumulatorFormat()
	if acc.Bits+1 > 63 {
		return fmt.Errorf("conv: accumulator width %d bits exceeds the supported 62", acc.Bits)
	}
	for i, b := range c.Bias {
		if i > 0 && b.Format() != c.Bias[0].Format() {
			return fmt.Errorf("conv: bias entry %d has format %s, want %s",
				i, b.Format(), c.Bias[0].Format())
		}
		if b.Format().Frac > acc.Frac || b.Format().Bits > acc.Bits {
			return fmt.Errorf("conv: bias format %s does not embed in accumulator %s",
				b.Format(), acc)
		}
	}
	return nil
}

// AccumulatorFormat returns the running-sum format: the MM output plus
// clog2(ChannelsIn) integer bits for the channel sweep, plus one more
// when the unit is the first pipeline stage.
func (c Config) AccumulatorFormat() fixed.Format {
	mmOut := c.MM.OutputFormat()
	bits := mmOut.Bits + fixed.Clog2(c.ChannelsIn)
	if c.FirstStage {
		bits++
	}
	return fixed.Format{Bits: bits, Frac: mmOut.Frac}
}

// Input carries the unit's per-cycle input signals.
type Input struct {
	// Enable is the channel-enable gate; deasserted freezes the unit
	// and its embedded MM engine.
	Enable bool

	// Valid marks Data and Weights as the next window pair of the
	// input-channel stream.
	Valid bool

	// Data is the K x K activation window.
	Data fixed.Window

	// Weights is the K x K weight window for the current channel pair.
	Weights fixed.Window
}

// Output carries the unit's per-cycle output signals. Exactly one valid
// is emitted per completed output channel, in input order.
type Output struct {
	// Valid marks Result as a completed output-channel value.
	Valid bool

	// Result is the rounded value at the configured output precision.
	Result fixed.Value
}

// sumStage captures a completed input-channel sweep.
type sumStage struct {
	valid   bool
	sum     fixed.Value
	channel int
}

// valueStage is a plain (valid, payload) pipeline register.
type valueStage struct {
	valid bool
	value fixed.Value
}

// Unit is the pipelined convolution engine.
type Unit struct {
	config Config
	acc    fixed.Format

	engine *mm.Unit

	// Running accumulation state.
	accReg fixed.Value

	// Free-running counters.
	channelInCounter  int
	mmOutCounter      int
	channelOutCounter int

	// Post-accumulate pipeline: sweep capture, bias add, final round.
	sumReg  sumStage
	biasReg valueStage
	outReg  valueStage
}

// New creates a convolution unit, validating the configuration.
func New(config Config) (*Unit, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	engine, err := mm.New(config.MM)
	if err != nil {
		return nil, err
	}
	acc := config.AccumulatorFormat()
	return &Unit{
		config: config,
		acc:    acc,
		engine: engine,
		accReg: fixed.Zero(acc),
		sumReg: sumStage{sum: fixed.Zero(acc)},
		biasReg: valueStage{
			value: fixed.Zero(fixed.Format{Bits: acc.Bits + 1, Frac: acc.Frac}),
		},
		outReg: valueStage{value: fixed.Zero(config.Out)},
	}, nil
}

// Config returns the unit's configuration.
func (u *Unit) Config() Config {
	return u.config
}

// Counters returns the free-running counter values: accepted inputs
// modulo ChannelsIn*ChannelsOut, the MM results within the current
// sweep, and the current output channel.
func (u *Unit) Counters() (channelIn, mmOut, channelOut int) {
	return u.channelInCounter, u.mmOutCounter, u.channelOutCounter
}

// Reset synchronously clears the counters and the running accumulator.
// In-flight pipeline payloads (MM registers and the bias/round chain)
// are deliberately left untouched: stale results still drain with their
// original timing after a mid-flight reset. Downstream layers depend on
// that drain timing, so it is preserved rather than fixed here.
func (u *Unit) Reset() {
	u.channelInCounter = 0
	u.mmOutCounter = 0
	u.channelOutCounter = 0
	u.accReg = fixed.Zero(u.acc)
}

// Tick simulates one clock cycle. The returned Output is what the
// consumer sees on the wires during this cycle, before the clock edge;
// register updates then apply unless Enable is deasserted.
func (u *Unit) Tick(in Input) Output {
	out := Output{Valid: u.outReg.valid, Result: u.outReg.value}
	if !in.Enable {
		return out
	}

	mmOut := u.engine.Tick(mm.Input{
		Enable:  true,
		Valid:   in.Valid,
		Data:    in.Data,
		Weights: in.Weights,
	})

	// Final stages advance back to front so each consumes the previous
	// edge's register contents.
	u.outReg = valueStage{
		valid: u.biasReg.valid,
		value: fixed.Resize(u.biasReg.value, u.config.Out, fixed.Saturate, fixed.Round),
	}
	u.biasReg = valueStage{
		valid: u.sumReg.valid,
		value: u.addBias(u.sumReg.sum, u.sumReg.channel),
	}

	// Accumulate stage, driven by the MM result cadence.
	if mmOut.Valid {
		aligned := fixed.Resize(mmOut.Result, u.acc, fixed.Wrap, fixed.Truncate)
		var sum fixed.Value
		if u.mmOutCounter == 0 {
			sum = aligned
		} else {
			sum = fixed.Resize(fixed.Add(u.accReg, aligned), u.acc, fixed.Wrap, fixed.Truncate)
		}
		u.accReg = sum

		done := u.mmOutCounter == u.config.ChannelsIn-1
		u.sumReg = sumStage{valid: done, sum: sum, channel: u.channelOutCounter}
		if done {
			u.mmOutCounter = 0
			u.channelOutCounter = (u.channelOutCounter + 1) % u.config.ChannelsOut
		} else {
			u.mmOutCounter++
		}
	} else {
		u.sumReg.valid = false
	}

	if in.Valid {
		u.channelInCounter =
			(u.channelInCounter + 1) % (u.config.ChannelsIn * u.config.ChannelsOut)
	}

	return out
}

// addBias aligns the bias table entry for the given output channel to
// the accumulator format and adds it with one bit of growth.
func (u *Unit) addBias(sum fixed.Value, channel int) fixed.Value {
	bias := fixed.Resize(u.config.Bias[channel], u.acc, fixed.Wrap, fixed.Truncate)
	return fixed.Add(sum, bias)
}
