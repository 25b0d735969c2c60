package fixed

import "fmt"

// Window is a square K x K grid of same-format values, stored row-major.
// It represents either an activation patch or a weight kernel.
type Window struct {
	side   int
	format Format
	values []Value
}

// NewWindow builds a window from row-major values. The element count
// must be a perfect square matching side*side and all elements must
// share the given format.
func NewWindow(side int, format Format, values []Value) (Window, error) {
	if side < 1 {
		return Window{}, fmt.Errorf("fixed: window side %d must be >= 1", side)
	}
	if err := format.Validate(); err != nil {
		return Window{}, err
	}
	if len(values) != side*side {
		return Window{}, fmt.Errorf("fixed: window needs %d values, got %d",
			side*side, len(values))
	}
	for i, v := range values {
		if v.fmt != format {
			return Window{}, fmt.Errorf("fixed: window element %d has format %s, want %s",
				i, v.fmt, format)
		}
	}
	w := Window{side: side, format: format, values: make([]Value, len(values))}
	copy(w.values, values)
	return w, nil
}

// WindowFromRaw builds a window from row-major raw integers, each
// range-checked against the format.
func WindowFromRaw(side int, format Format, raws []int64) (Window, error) {
	values := make([]Value, 0, len(raws))
	for i, raw := range raws {
		v, err := New(raw, format)
		if err != nil {
			return Window{}, fmt.Errorf("fixed: window element %d: %w", i, err)
		}
		values = append(values, v)
	}
	return NewWindow(side, format, values)
}

// UniformWindow builds a window with every element set to the same raw value.
func UniformWindow(side int, format Format, raw int64) (Window, error) {
	raws := make([]int64, side*side)
	for i := range raws {
		raws[i] = raw
	}
	return WindowFromRaw(side, format, raws)
}

// Side returns K.
func (w Window) Side() int {
	return w.side
}

// Len returns the element count K*K. The zero Window has length 0.
func (w Window) Len() int {
	return len(w.values)
}

// Format returns the shared element format.
func (w Window) Format() Format {
	return w.format
}

// At returns the element at row r, column c.
func (w Window) At(r, c int) Value {
	return w.values[r*w.side+c]
}

// Values returns the row-major elements. The slice must not be modified.
func (w Window) Values() []Value {
	return w.values
}
