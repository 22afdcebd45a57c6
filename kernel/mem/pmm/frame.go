// Package pmm describes physical memory: the frames that make it up and the
// region catalog reported by the boot loader.
package pmm

import (
	"math"
	"sorrowos/kernel/mem"
)

// Frame describes a physical memory frame index. A frame is identified by
// its base address which is always aligned to mem.PageSize.
type Frame uintptr

const (
	// InvalidFrame is returned by frame allocators when they fail to
	// reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical base address of this frame.
func (f Frame) Address() uintptr {
	return uintptr(f << mem.PageShift)
}

// FrameFromAddress returns the Frame that contains physAddr. Unaligned
// addresses are rounded down.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame((physAddr &^ uintptr(mem.PageSize-1)) >> mem.PageShift)
}

// FrameAllocator is implemented by types that hand out physical frames. A
// false return value signals that no frames are left; running out of memory
// is an expected outcome and not an error.
type FrameAllocator interface {
	AllocFrame() (Frame, bool)
}
