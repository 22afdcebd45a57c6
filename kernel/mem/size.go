// Package mem contains the size constants and raw memory helpers shared by
// the physical and virtual memory managers.
package mem

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Pages returns the number of pages needed to hold a block of this size.
func (s Size) Pages() uint64 {
	return uint64((s + PageSize - 1) >> PageShift)
}

// PageAlignUp rounds addr up to the nearest page boundary. Addresses inside
// the last page of the address space wrap to 0.
func PageAlignUp(addr uint64) uint64 {
	return (addr + uint64(PageSize-1)) &^ uint64(PageSize-1)
}

// PageAlignDown rounds addr down to the nearest page boundary.
func PageAlignDown(addr uint64) uint64 {
	return addr &^ uint64(PageSize-1)
}
