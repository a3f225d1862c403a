package vm

import (
	"github.com/tendai-kore/simian/code"
	"github.com/tendai-kore/simian/object"
)

// Frame is one call's worth of VM execution state: which closure is
// running, where its instruction pointer is, and where its locals/arguments
// begin on the shared value stack.
type Frame struct {
	cl          *object.Closure
	ip          int
	basePointer int
}

// NewFrame starts a frame for cl with ip positioned just before the first
// instruction (Run's fetch loop pre-increments) and locals/arguments
// beginning at stack slot base.
func NewFrame(cl *object.Closure, base int) *Frame {
	return &Frame{cl: cl, ip: -1, basePointer: base}
}

// Instructions returns the bytecode this frame is executing.
func (f *Frame) Instructions() code.Instructions {
	return f.cl.Fn.Instructions
}
