package vmm

import (
	"sorrowos/kernel"
	"sorrowos/kernel/mem"
	"sorrowos/kernel/mem/pmm"
	"unsafe"
)

var (
	// ptePtrFn returns a pointer to the supplied entry address. When
	// compiling the kernel this function will be automatically inlined.
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(entryAddr)
	}

	errEntryIndexOutOfRange = &kernel.Error{Module: "vmm", Message: "page table entry index out of range"}
)

// PhysicalMemoryView provides access to physical memory through the linear
// mapping that the boot loader establishes at the physical memory offset:
// physical address p is visible at virtual address offset+p.
//
// All page table reads and writes performed by this package go through a
// PhysicalMemoryView.
type PhysicalMemoryView struct {
	offset uintptr
}

// NewPhysicalMemoryView returns a view for the linear mapping that starts at
// the supplied virtual address. The caller must guarantee that all physical
// memory is mapped there.
func NewPhysicalMemoryView(physMemOffset uintptr) PhysicalMemoryView {
	return PhysicalMemoryView{offset: physMemOffset}
}

// Offset returns the virtual address where physical address 0 is mapped.
func (v PhysicalMemoryView) Offset() uintptr {
	return v.offset
}

// VirtualAddress returns the virtual address through which physAddr can be
// accessed.
func (v PhysicalMemoryView) VirtualAddress(physAddr uintptr) uintptr {
	return v.offset + physAddr
}

// Entry returns the entry at the given index of the page table stored in
// table.
func (v PhysicalMemoryView) Entry(table pmm.Frame, index uint16) (PageTableEntry, *kernel.Error) {
	pte, err := v.entryPtr(table, index)
	if err != nil {
		return 0, err
	}
	return *pte, nil
}

// SetEntry overwrites the entry at the given index of the page table stored
// in table.
func (v PhysicalMemoryView) SetEntry(table pmm.Frame, index uint16, entry PageTableEntry) *kernel.Error {
	pte, err := v.entryPtr(table, index)
	if err != nil {
		return err
	}
	*pte = entry
	return nil
}

// ZeroFrame clears the contents of a physical frame.
func (v PhysicalMemoryView) ZeroFrame(frame pmm.Frame) {
	mem.Memset(v.VirtualAddress(frame.Address()), 0, mem.PageSize)
}

// entryPtr returns a pointer to an entry of the page table stored in table.
func (v PhysicalMemoryView) entryPtr(table pmm.Frame, index uint16) (*PageTableEntry, *kernel.Error) {
	if index >= entriesPerTable {
		return nil, errEntryIndexOutOfRange
	}

	entryAddr := v.VirtualAddress(table.Address()) + (uintptr(index) << mem.PointerShift)
	return (*PageTableEntry)(ptePtrFn(entryAddr)), nil
}
