// Package weights loads bias tables, weight kernels, and activation
// fixtures from plain-text/CSV literals.
//
// The on-disk format is the one the model-export tooling emits: raw
// fixed-point integers, comma separated, one row per line. All parsing
// happens once at elaboration time; a malformed literal is a fatal
// configuration error, never a runtime condition.
package weights

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/cnnsim/fixed"
)

// ParseValues reads raw integers in the given format, comma or
// whitespace separated, until EOF.
func ParseValues(r io.Reader, format fixed.Format) ([]fixed.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("weights: read: %w", err)
	}
	fields := strings.FieldsFunc(string(data), func(c rune) bool {
		return c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r'
	})
	values := make([]fixed.Value, 0, len(fields))
	for i, field := range fields {
		raw, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("weights: value %d (%q): %w", i, field, err)
		}
		v, err := fixed.New(raw, format)
		if err != nil {
			return nil, fmt.Errorf("weights: value %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// ParseBias reads one bias value per output channel and checks the
// count against the channel count.
func ParseBias(r io.Reader, format fixed.Format, channels int) ([]fixed.Value, error) {
	values, err := ParseValues(r, format)
	if err != nil {
		return nil, err
	}
	if len(values) != channels {
		return nil, fmt.Errorf("weights: bias table has %d values, want one per output channel (%d)",
			len(values), channels)
	}
	return values, nil
}

// LoadBias reads a bias table from a file.
func LoadBias(path string, format fixed.Format, channels int) ([]fixed.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	defer f.Close()
	return ParseBias(f, format, channels)
}

// ParseWindows reads K x K windows, one per line of K*K raw integers.
// Blank lines are skipped.
func ParseWindows(r io.Reader, format fixed.Format, kernel int) ([]fixed.Window, error) {
	var windows []fixed.Window
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		values, err := ParseValues(strings.NewReader(line), format)
		if err != nil {
			return nil, fmt.Errorf("weights: line %d: %w", lineNo, err)
		}
		w, err := fixed.NewWindow(kernel, format, values)
		if err != nil {
			return nil, fmt.Errorf("weights: line %d: %w", lineNo, err)
		}
		windows = append(windows, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("weights: scan: %w", err)
	}
	return windows, nil
}

// LoadWindows reads windows from a file.
func LoadWindows(path string, format fixed.Format, kernel int) ([]fixed.Window, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	defer f.Close()
	return ParseWindows(f, format, kernel)
}
