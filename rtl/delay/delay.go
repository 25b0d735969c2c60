// Package delay provides the valid-propagation shift register shared by
// all datapath units.
//
// Each pipelined unit owns payload registers of some depth L. A Line of
// the same depth carries the input valid strobe alongside them, so the
// valid bit and its payload exit the unit on the same cycle. There is no
// handshake and no backpressure: the consumer is assumed always ready.
package delay

import "fmt"

// Line is a fixed-depth single-bit shift register.
type Line struct {
	bits []bool
}

// New creates a line of the given depth. Depth must be at least 1;
// a combinational (depth 0) path is not a pipeline stage.
func New(depth int) (*Line, error) {
	if depth < 1 {
		return nil, fmt.Errorf("delay: depth %d must be >= 1", depth)
	}
	return &Line{bits: make([]bool, depth)}, nil
}

// Depth returns the number of cycles the line delays its input.
func (l *Line) Depth() int {
	return len(l.bits)
}

// Tick applies one clock edge: the input bit enters the first slot,
// every bit moves one slot, and the bit now in the final slot is
// returned. Units latch the returned bit into their output register, so
// a consumer reading unit outputs before each edge sees the input valid
// exactly Depth ticks after it was presented.
func (l *Line) Tick(in bool) bool {
	copy(l.bits[1:], l.bits[:len(l.bits)-1])
	l.bits[0] = in
	return l.bits[len(l.bits)-1]
}

// Peek returns the bit currently in the final slot, without advancing
// the line.
func (l *Line) Peek() bool {
	return l.bits[len(l.bits)-1]
}
