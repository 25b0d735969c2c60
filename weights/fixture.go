package weights

import (
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/cnnsim/fixed"
)

// Fixture is a declarative input/weight/expected triple for the
// verification harness: activation windows, the matching weight
// windows, and the golden-model outputs they must produce.
type Fixture struct {
	// Inputs holds one activation window per streamed cycle.
	Inputs []fixed.Window

	// Weights holds one weight window per streamed cycle, paired
	// elementwise with Inputs.
	Weights []fixed.Window

	// Expected holds the golden output values, one per completed
	// output channel, in emission order.
	Expected []fixed.Value
}

// FixtureFormats bundles the per-stream formats of a fixture.
type FixtureFormats struct {
	Data   fixed.Format
	Weight fixed.Format
	Out    fixed.Format
}

// ParseFixture assembles a fixture from its three literal sources.
func ParseFixture(inputs, weightKernels, expected string, formats FixtureFormats, kernel int) (*Fixture, error) {
	in, err := ParseWindows(strings.NewReader(inputs), formats.Data, kernel)
	if err != nil {
		return nil, fmt.Errorf("weights: fixture inputs: %w", err)
	}
	wk, err := ParseWindows(strings.NewReader(weightKernels), formats.Weight, kernel)
	if err != nil {
		return nil, fmt.Errorf("weights: fixture weights: %w", err)
	}
	exp, err := ParseValues(strings.NewReader(expected), formats.Out)
	if err != nil {
		return nil, fmt.Errorf("weights: fixture expected: %w", err)
	}
	if len(in) != len(wk) {
		return nil, fmt.Errorf("weights: fixture has %d input windows but %d weight windows",
			len(in), len(wk))
	}
	return &Fixture{Inputs: in, Weights: wk, Expected: exp}, nil
}

// LoadFixture reads a fixture from three files.
func LoadFixture(inputPath, weightPath, expectedPath string, formats FixtureFormats, kernel int) (*Fixture, error) {
	inputs, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	wk, err := os.ReadFile(weightPath)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	return ParseFixture(string(inputs), string(wk), string(expected), formats, kernel)
}
