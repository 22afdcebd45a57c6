package vmm

import "sorrowos/kernel/mem"

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual address of the first byte in this page.
func (p Page) Address() uintptr {
	return uintptr(p << mem.PageShift)
}

// PageFromAddress returns the Page that contains virtAddr. Unaligned addresses
// are rounded down.
func PageFromAddress(virtAddr uintptr) Page {
	return Page((virtAddr &^ uintptr(mem.PageSize-1)) >> mem.PageShift)
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & ((1 << pageLevelShifts[pageLevels-1]) - 1)
}

// tableIndex returns the index into the page table at the given level
// (0 = P4, 3 = P1) that virtAddr selects.
func tableIndex(virtAddr uintptr, level uint8) uint16 {
	return uint16((virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1))
}
