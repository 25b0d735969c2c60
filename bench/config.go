package bench

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cnnsim/fixed"
	"github.com/sarchlab/cnnsim/rtl/conv"
	"github.com/sarchlab/cnnsim/rtl/mm"
	"github.com/sarchlab/cnnsim/weights"
)

// LayerConfig describes one convolution layer for the harness: the
// fixed-point parameters, the topology generics, and the clock. It is
// the JSON counterpart of the hardware generics.
type LayerConfig struct {
	// DataBits/DataFrac is the activation element format.
	DataBits uint `json:"data_bits"`
	DataFrac uint `json:"data_frac"`

	// WeightBits/WeightFrac is the weight element format.
	WeightBits uint `json:"weight_bits"`
	WeightFrac uint `json:"weight_frac"`

	// OutBits/OutFrac is the rounded output format.
	OutBits uint `json:"out_bits"`
	OutFrac uint `json:"out_frac"`

	// Kernel is the window side K.
	Kernel int `json:"kernel"`

	// ChannelsIn and ChannelsOut are the layer channel counts.
	ChannelsIn  int `json:"channels_in"`
	ChannelsOut int `json:"channels_out"`

	// FirstStage marks the layer at the head of the pipeline.
	FirstStage bool `json:"first_stage"`

	// ClockMHz is the simulated clock frequency.
	ClockMHz float64 `json:"clock_mhz"`

	// BiasPath points to the bias table literal, one raw value per
	// output channel. Bias values use the data format.
	BiasPath string `json:"bias_path"`
}

// DefaultLayerConfig returns the configuration of a small 3x3
// single-channel first-stage layer at 100 MHz.
func DefaultLayerConfig() *LayerConfig {
	return &LayerConfig{
		DataBits:    8,
		DataFrac:    3,
		WeightBits:  8,
		WeightFrac:  3,
		OutBits:     12,
		OutFrac:     3,
		Kernel:      3,
		ChannelsIn:  1,
		ChannelsOut: 1,
		FirstStage:  true,
		ClockMHz:    100,
	}
}

// LoadLayerConfig loads a LayerConfig from a JSON file, filling
// unspecified fields from the defaults.
func LoadLayerConfig(path string) (*LayerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer config file: %w", err)
	}

	config := DefaultLayerConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse layer config: %w", err)
	}

	return config, nil
}

// DataFormat returns the activation element format.
func (c *LayerConfig) DataFormat() fixed.Format {
	return fixed.Format{Bits: c.DataBits, Frac: c.DataFrac}
}

// WeightFormat returns the weight element format.
func (c *LayerConfig) WeightFormat() fixed.Format {
	return fixed.Format{Bits: c.WeightBits, Frac: c.WeightFrac}
}

// OutFormat returns the rounded output format.
func (c *LayerConfig) OutFormat() fixed.Format {
	return fixed.Format{Bits: c.OutBits, Frac: c.OutFrac}
}

// Freq returns the simulated clock frequency.
func (c *LayerConfig) Freq() sim.Freq {
	return sim.Freq(c.ClockMHz) * sim.MHz
}

// ConvConfig elaborates the layer into a validated conv.Config, loading
// the bias table from BiasPath (or a zero table when the path is empty).
func (c *LayerConfig) ConvConfig() (conv.Config, error) {
	bias := make([]fixed.Value, 0, c.ChannelsOut)
	if c.BiasPath != "" {
		loaded, err := weights.LoadBias(c.BiasPath, c.DataFormat(), c.ChannelsOut)
		if err != nil {
			return conv.Config{}, err
		}
		bias = loaded
	} else {
		for i := 0; i < c.ChannelsOut; i++ {
			v, err := fixed.New(0, c.DataFormat())
			if err != nil {
				return conv.Config{}, err
			}
			bias = append(bias, v)
		}
	}

	cfg := conv.Config{
		MM: mm.Config{
			Data:   c.DataFormat(),
			Weight: c.WeightFormat(),
			Kernel: c.Kernel,
		},
		Out:         c.OutFormat(),
		ChannelsIn:  c.ChannelsIn,
		ChannelsOut: c.ChannelsOut,
		FirstStage:  c.FirstStage,
		Bias:        bias,
	}
	if err := cfg.Validate(); err != nil {
		return conv.Config{}, err
	}
	return cfg, nil
}
