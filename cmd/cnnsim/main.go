// Package main provides the entry point for cnnsim.
// cnnsim is a cycle-accurate fixed-point CNN datapath simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/cnnsim/bench"
	"github.com/sarchlab/cnnsim/rtl/conv"
	"github.com/sarchlab/cnnsim/weights"
)

var (
	configPath = flag.String("config", "", "Path to layer configuration JSON file")
	gap        = flag.Int("gap", 0, "Idle cycles inserted between input windows")
	csv        = flag.Bool("csv", false, "Print outputs as CSV instead of a report")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "Usage: cnnsim [options] <input.csv> <weights.csv> [expected.csv]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	layer := bench.DefaultLayerConfig()
	if *configPath != "" {
		loaded, err := bench.LoadLayerConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading layer config: %v\n", err)
			os.Exit(1)
		}
		layer = loaded
	}

	cfg, err := layer.ConvConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error elaborating layer: %v\n", err)
		os.Exit(1)
	}

	unit, err := conv.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building datapath: %v\n", err)
		os.Exit(1)
	}

	fx, err := loadFixture(layer, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fixture: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Layer: K=%d, %d in / %d out channels, %s -> %s\n",
			layer.Kernel, layer.ChannelsIn, layer.ChannelsOut,
			layer.DataFormat(), layer.OutFormat())
		fmt.Printf("Accumulator: %s, latency %d cycles\n",
			cfg.AccumulatorFormat(), conv.Latency)
	}

	h := bench.NewHarness(unit, bench.HarnessConfig{Gap: *gap})
	results, stats := h.Run(fx)

	if *csv {
		h.PrintCSV(results)
	} else {
		h.PrintResults(results, stats, layer.Freq())
	}

	if len(fx.Expected) > 0 {
		errs := bench.Verify(results, fx)
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "MISMATCH: %v\n", err)
		}
		if len(errs) > 0 {
			os.Exit(1)
		}
		fmt.Printf("All %d outputs match the golden reference.\n", len(results))
	}
}

// loadFixture reads the positional input/weight[/expected] CSV files.
func loadFixture(layer *bench.LayerConfig, args []string) (*weights.Fixture, error) {
	formats := weights.FixtureFormats{
		Data:   layer.DataFormat(),
		Weight: layer.WeightFormat(),
		Out:    layer.OutFormat(),
	}
	if len(args) >= 3 {
		return weights.LoadFixture(args[0], args[1], args[2], formats, layer.Kernel)
	}

	inputs, err := weights.LoadWindows(args[0], formats.Data, layer.Kernel)
	if err != nil {
		return nil, err
	}
	wk, err := weights.LoadWindows(args[1], formats.Weight, layer.Kernel)
	if err != nil {
		return nil, err
	}
	if len(inputs) != len(wk) {
		return nil, fmt.Errorf("%d input windows but %d weight windows", len(inputs), len(wk))
	}
	return &weights.Fixture{Inputs: inputs, Weights: wk}, nil
}
