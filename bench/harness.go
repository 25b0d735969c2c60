// Package bench provides the streaming verification harness for the
// datapath: it drives fixture windows through a convolution unit cycle
// by cycle, records when each output emerges, and checks the results
// against the golden model bit for bit.
package bench

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cnnsim/fixed"
	"github.com/sarchlab/cnnsim/rtl/conv"
	"github.com/sarchlab/cnnsim/rtl/pool"
	"github.com/sarchlab/cnnsim/weights"
)

// Result records one output of a streamed run.
type Result struct {
	// Cycle is the tick on which the output valid was observed.
	Cycle uint64

	// Value is the emitted output.
	Value fixed.Value
}

// Statistics holds the cycle accounting of a streamed run.
type Statistics struct {
	// Cycles is the total number of simulated clock cycles.
	Cycles uint64

	// WindowsIn is the number of valid input windows presented.
	WindowsIn uint64

	// OutputsOut is the number of valid outputs observed.
	OutputsOut uint64

	// IdleCycles is the number of cycles with no valid input.
	IdleCycles uint64
}

// Throughput returns outputs per cycle.
func (s Statistics) Throughput() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.OutputsOut) / float64(s.Cycles)
}

// SimTime returns the simulated wall-clock duration of the run in
// seconds at the given clock frequency.
func (s Statistics) SimTime(freq sim.Freq) sim.VTimeInSec {
	return sim.VTimeInSec(float64(s.Cycles) * float64(freq.Period()))
}

// HarnessConfig configures a streaming run.
type HarnessConfig struct {
	// Gap is the number of idle cycles inserted between valid inputs.
	// Zero streams back-to-back.
	Gap int

	// DrainLimit bounds the cycles spent draining the pipeline after
	// the last input. Zero uses a limit derived from the unit latency.
	DrainLimit int

	// Output is where PrintResults and PrintCSV write (default: os.Stdout).
	Output io.Writer
}

// Harness streams fixtures through a convolution unit.
type Harness struct {
	config HarnessConfig
	unit   *conv.Unit
}

// NewHarness creates a harness around a convolution unit.
func NewHarness(unit *conv.Unit, config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.DrainLimit <= 0 {
		config.DrainLimit = 4 * conv.Latency
	}
	return &Harness{config: config, unit: unit}
}

// Run streams the fixture's window pairs through the unit, one valid
// input per cycle (plus any configured gap), then drains until the
// expected output count is reached or the drain limit expires.
func (h *Harness) Run(fx *weights.Fixture) ([]Result, Statistics) {
	var results []Result
	var stats Statistics

	expected := uint64(len(fx.Inputs) / h.unit.Config().ChannelsIn)

	tick := func(in conv.Input) {
		out := h.unit.Tick(in)
		stats.Cycles++
		if in.Valid {
			stats.WindowsIn++
		} else {
			stats.IdleCycles++
		}
		if out.Valid {
			results = append(results, Result{Cycle: stats.Cycles - 1, Value: out.Result})
			stats.OutputsOut++
		}
	}

	for i, data := range fx.Inputs {
		tick(conv.Input{Enable: true, Valid: true, Data: data, Weights: fx.Weights[i]})
		for g := 0; g < h.config.Gap; g++ {
			tick(conv.Input{Enable: true})
		}
	}
	for drained := 0; stats.OutputsOut < expected && drained < h.config.DrainLimit; drained++ {
		tick(conv.Input{Enable: true})
	}

	return results, stats
}

// Verify checks the run results against the fixture's golden outputs,
// bit for bit and in order. It returns one error per mismatch.
func Verify(results []Result, fx *weights.Fixture) []error {
	var errs []error
	if len(results) != len(fx.Expected) {
		errs = append(errs, fmt.Errorf("bench: got %d outputs, want %d",
			len(results), len(fx.Expected)))
	}
	n := len(results)
	if len(fx.Expected) < n {
		n = len(fx.Expected)
	}
	for i := 0; i < n; i++ {
		if results[i].Value != fx.Expected[i] {
			errs = append(errs, fmt.Errorf("bench: output %d is %s (word %#x), want %s",
				i, results[i].Value, results[i].Value.Word(), fx.Expected[i]))
		}
	}
	return errs
}

// RunPool streams windows through a max-pooling unit back-to-back and
// returns its outputs with the same cycle accounting.
func RunPool(unit *pool.Unit, windows []fixed.Window) ([]Result, Statistics) {
	var results []Result
	var stats Statistics

	latency := unit.Config().Latency()
	total := len(windows) + latency
	for tick := 0; tick < total; tick++ {
		in := pool.Input{Enable: true}
		if tick < len(windows) {
			in.Valid = true
			in.Data = windows[tick]
			stats.WindowsIn++
		} else {
			stats.IdleCycles++
		}
		out := unit.Tick(in)
		stats.Cycles++
		if out.Valid {
			results = append(results, Result{Cycle: stats.Cycles - 1, Value: out.Result})
			stats.OutputsOut++
		}
	}

	return results, stats
}

// PrintResults writes a human-readable run report.
func (h *Harness) PrintResults(results []Result, stats Statistics, freq sim.Freq) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w, "=== cnnsim Layer Run ===")
	_, _ = fmt.Fprintf(w, "  Cycles:       %d\n", stats.Cycles)
	_, _ = fmt.Fprintf(w, "  Windows In:   %d\n", stats.WindowsIn)
	_, _ = fmt.Fprintf(w, "  Outputs:      %d\n", stats.OutputsOut)
	_, _ = fmt.Fprintf(w, "  Idle Cycles:  %d\n", stats.IdleCycles)
	_, _ = fmt.Fprintf(w, "  Throughput:   %.4f outputs/cycle\n", stats.Throughput())
	_, _ = fmt.Fprintf(w, "  Sim Time:     %.9f s\n", float64(stats.SimTime(freq)))
	for i, r := range results {
		_, _ = fmt.Fprintf(w, "  [%3d] cycle %5d  raw %8d  value %g\n",
			i, r.Cycle, r.Value.Raw(), r.Value.Float())
	}
}

// PrintCSV writes the run outputs as CSV rows.
func (h *Harness) PrintCSV(results []Result) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w, "index,cycle,raw,value")
	for i, r := range results {
		_, _ = fmt.Fprintf(w, "%d,%d,%d,%g\n", i, r.Cycle, r.Value.Raw(), r.Value.Float())
	}
}
