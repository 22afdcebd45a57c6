package pmm

import "sorrowos/kernel/mem"

// RegionKind classifies a physical memory region.
type RegionKind uint8

const (
	// RegionUnknown marks a region whose type was not recognized.
	RegionUnknown RegionKind = iota

	// RegionUsable is free RAM that the kernel may hand out as frames.
	RegionUsable

	// RegionReserved is memory that must not be touched.
	RegionReserved

	// RegionAcpiReclaimable holds ACPI tables; it can be reused once they
	// have been parsed.
	RegionAcpiReclaimable

	// RegionNvs must be preserved across hibernation.
	RegionNvs

	// RegionKernel holds the loaded kernel image.
	RegionKernel
)

// String implements fmt.Stringer for RegionKind.
func (k RegionKind) String() string {
	switch k {
	case RegionUsable:
		return "usable"
	case RegionReserved:
		return "reserved"
	case RegionAcpiReclaimable:
		return "ACPI (reclaimable)"
	case RegionNvs:
		return "NVS"
	case RegionKernel:
		return "kernel"
	default:
		return "unknown"
	}
}

// MemoryRegion describes the physical byte range [Start, End) and its kind.
type MemoryRegion struct {
	Start uint64
	End   uint64
	Kind  RegionKind
}

// Size returns the length of the region in bytes.
func (r MemoryRegion) Size() mem.Size {
	return mem.Size(r.End - r.Start)
}

// frameRange returns the first frame and the number of whole frames that fit
// inside the region. Unaligned edges are trimmed so that no returned frame
// extends past the region.
func (r MemoryRegion) frameRange() (Frame, uint64) {
	// Compare against the aligned end before rounding the start up; a start
	// inside the last page of the address space would otherwise wrap to 0.
	end := mem.PageAlignDown(r.End)
	if r.Start >= end {
		return Frame(end >> mem.PageShift), 0
	}

	start := mem.PageAlignUp(r.Start)
	if end <= start {
		return Frame(start >> mem.PageShift), 0
	}

	return Frame(start >> mem.PageShift), (end - start) >> mem.PageShift
}

// overlaps returns true if r and other share at least one byte.
func (r MemoryRegion) overlaps(other MemoryRegion) bool {
	return r.Start < other.End && other.Start < r.End
}
