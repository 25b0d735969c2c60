// Package pool implements the max-pooling unit of the datapath.
//
// The unit reduces a K x K window to its maximum element through a
// registered binary comparator tree: each tree level is one pipeline
// stage, so the latency grows with the kernel size while the clock
// period stays bounded by a single compare. Max never grows the
// bit-width; input and output share one format.
package pool

import (
	"fmt"

	"github.com/sarchlab/cnnsim/fixed"
	"github.com/sarchlab/cnnsim/rtl/delay"
)

// Config holds the compile-time parameters of the unit.
type Config struct {
	// Format is the shared element and result format.
	Format fixed.Format

	// Kernel is the window side K.
	Kernel int
}

// Validate rejects invalid parameter combinations at elaboration time.
func (c Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("pool: element format: %w", err)
	}
	if c.Kernel < 1 {
		return fmt.Errorf("pool: kernel size %d must be >= 1", c.Kernel)
	}
	return nil
}

// Latency returns the pipeline depth: the input register plus one stage
// per comparator tree level, 1 + clog2(K*K). K = 1 degenerates to a
// single register.
func (c Config) Latency() int {
	return 1 + int(fixed.Clog2(c.Kernel*c.Kernel))
}

// Input carries the unit's per-cycle input signals.
type Input struct {
	// Enable is the channel-enable gate; deasserted freezes the unit.
	Enable bool

	// Valid marks Data as a new window.
	Valid bool

	// Data is the K x K window to reduce.
	Data fixed.Window
}

// Output carries the unit's per-cycle output signals.
type Output struct {
	// Valid marks Result as a completed reduction.
	Valid bool

	// Result is the window maximum, in the element format.
	Result fixed.Value
}

// Unit is the pipelined max-pooling engine.
type Unit struct {
	config Config

	// stages[0] is the input register; stages[s] holds the values after
	// s comparator levels. stages[len-1] has a single element.
	stages [][]fixed.Value

	valid    *delay.Line
	outValid bool
}

// New creates a max-pooling unit, validating the configuration.
func New(config Config) (*Unit, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	line, err := delay.New(config.Latency())
	if err != nil {
		return nil, err
	}
	return &Unit{
		config: config,
		stages: make([][]fixed.Value, config.Latency()),
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
	out := Output{Valid: u.outValid, Result: u.result()}
	if !in.Enable {
		return out
	}

	for s := len(u.stages) - 1; s > 0; s-- {
		u.stages[s] = reduce(u.stages[s-1])
	}
	u.stages[0] = in.Data.Values()
	u.outValid = u.valid.Tick(in.Valid)

	return out
}

// result reads the final tree register, or the format's zero value
// while the pipeline is still empty.
func (u *Unit) result() fixed.Value {
	last := u.stages[len(u.stages)-1]
	if len(last) == 0 {
		return fixed.Zero(u.config.Format)
	}
	return last[0]
}

// reduce performs one comparator tree level: adjacent pairs collapse to
// their maximum and an odd trailing element passes through unchanged.
func reduce(values []fixed.Value) []fixed.Value {
	if len(values) <= 1 {
		return values
	}
	next := make([]fixed.Value, 0, (len(values)+1)/2)
	for i := 0; i+1 < len(values); i += 2 {
		next = append(next, fixed.Max(values[i], values[i+1]))
	}
	if len(values)%2 == 1 {
		next = append(next, values[len(values)-1])
	}
	return next
}
