// Package heap reserves the virtual address range that backs the kernel heap.
package heap

import (
	"sorrowos/kernel/kfmt"
	"sorrowos/kernel/mem"
	"sorrowos/kernel/mem/pmm"
	"sorrowos/kernel/mem/vmm"
)

const (
	// HeapStart is the virtual address of the first heap byte.
	HeapStart = uintptr(0x444444440000)

	// HeapSize is the size of the initial heap.
	HeapSize = 100 * mem.Kb

	// heapFlags are applied to every heap page.
	heapFlags = vmm.FlagPresent | vmm.FlagRW | vmm.FlagNoExecute
)

// Region describes the virtual memory range backing the heap.
type Region struct {
	Start uintptr
	Size  mem.Size
}

// End returns the address one past the last heap byte.
func (r Region) End() uintptr {
	return r.Start + uintptr(r.Size)
}

// PageMapper is implemented by *vmm.Mapper.
type PageMapper interface {
	MapTo(page vmm.Page, frame pmm.Frame, flags vmm.PageTableEntryFlag, alloc pmm.FrameAllocator) *vmm.MapToError
}

// Init maps every page in [HeapStart, HeapStart+HeapSize) to a fresh frame
// obtained from alloc. The same allocator provides any page tables that
// need to be created along the way. Pages mapped before a failure are not
// rolled back.
func Init(mapper PageMapper, alloc pmm.FrameAllocator) (Region, *vmm.MapToError) {
	region := Region{Start: HeapStart, Size: HeapSize}

	firstPage := vmm.PageFromAddress(region.Start)
	for pageIndex, pageCount := uint64(0), region.Size.Pages(); pageIndex < pageCount; pageIndex++ {
		page := firstPage + vmm.Page(pageIndex)

		frame, ok := alloc.AllocFrame()
		if !ok {
			return Region{}, &vmm.MapToError{Kind: vmm.FrameAllocationFailed, Page: page, Frame: pmm.InvalidFrame}
		}

		if err := mapper.MapTo(page, frame, heapFlags, alloc); err != nil {
			return Region{}, err
		}
	}

	kfmt.Printf("[heap] mapped %dKb at 0x%x\n", uint64(region.Size/mem.Kb), region.Start)
	return region, nil
}
