// Package allocator contains the physical frame allocators used while the
// kernel boots.
package allocator

import (
	"sorrowos/kernel"
	"sorrowos/kernel/mem/pmm"
	"sorrowos/kernel/sync"
)

// BootMemAllocator hands out the usable frames of a region catalog in catalog
// order. Frames are never freed or reused.
//
// The allocator keeps a resumable iterator over the usable frames so each
// allocation is O(1) amortized. The iterator is advanced exactly once per
// AllocFrame call which makes the result identical to re-deriving the usable
// frame sequence and picking its next-th element.
type BootMemAllocator struct {
	lock sync.Spinlock

	catalog *pmm.RegionCatalog
	frames  pmm.FrameIterator

	// next counts AllocFrame calls. It never decreases.
	next uint64
}

// NewBootMemAllocator returns an allocator that draws frames from catalog.
//
// The caller must guarantee that every region marked as usable is really
// unused (e.g. it does not hold the kernel image or the catalog itself). A
// catalog can back a single allocator; further attempts return an error.
func NewBootMemAllocator(catalog *pmm.RegionCatalog) (*BootMemAllocator, *kernel.Error) {
	if err := catalog.Claim(); err != nil {
		return nil, err
	}

	return &BootMemAllocator{
		catalog: catalog,
		frames:  catalog.UsableFrames(),
	}, nil
}

// AllocFrame reserves the next available usable frame. It returns false once
// all usable frames have been handed out.
func (alloc *BootMemAllocator) AllocFrame() (pmm.Frame, bool) {
	alloc.lock.Acquire()
	frame, ok := alloc.frames.Next()
	alloc.next++
	alloc.lock.Release()

	return frame, ok
}
