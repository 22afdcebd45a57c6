// Package boot collects the information that the boot loader hands over to
// the kernel into a single value that is threaded through initialization.
package boot

import (
	"sorrowos/kernel"
	"sorrowos/kernel/hal/multiboot"
	"sorrowos/kernel/kfmt"
	"sorrowos/kernel/mem/pmm"
	"strconv"
)

// maxMemoryRegions bounds the number of regions an Info can hold. Regions
// are kept in a fixed array as Info is populated before the Go allocator is
// available.
const maxMemoryRegions = 128

// physMemOffsetKey is the kernel command line key that specifies the virtual
// address where the loader mapped all physical memory.
const physMemOffsetKey = "physmem_offset"

var (
	errTooManyRegions       = &kernel.Error{Module: "boot", Message: "too many memory regions"}
	errInvalidKernelImage   = &kernel.Error{Module: "boot", Message: "kernel image end precedes its start"}
	errInvalidPhysMemOffset = &kernel.Error{Module: "boot", Message: "malformed physmem_offset value"}

	// The following functions are used by tests to mock the multiboot
	// info block.
	visitMemRegionsFn    = multiboot.VisitMemRegions
	lookupBootCmdLineFn  = multiboot.LookupBootCmdLine
	getFramebufferInfoFn = multiboot.GetFramebufferInfo
)

// Info describes the machine state reported by the boot loader.
type Info struct {
	regions     [maxMemoryRegions]pmm.MemoryRegion
	regionCount int

	physMemOffset    uint64
	hasPhysMemOffset bool

	// Framebuffer is the framebuffer set up by the loader or nil.
	Framebuffer *multiboot.FramebufferInfo
}

// Regions returns the physical memory regions in the order the loader
// reported them. The returned slice aliases the Info.
func (i *Info) Regions() []pmm.MemoryRegion {
	return i.regions[:i.regionCount]
}

// PhysicalMemoryOffset returns the virtual address where the loader mapped
// all of physical memory or nil if the loader did not set up such a mapping.
func (i *Info) PhysicalMemoryOffset() *uint64 {
	if !i.hasPhysMemOffset {
		return nil
	}

	return &i.physMemOffset
}

// LoadMultiboot populates i from the multiboot info block registered via
// multiboot.SetInfoPtr. The physical range [kernelStart, kernelEnd) holds
// the kernel image; any part of it that the loader reported as available is
// recorded as a separate RegionKernel region so it never gets handed out as
// a free frame.
func (i *Info) LoadMultiboot(kernelStart, kernelEnd uintptr) *kernel.Error {
	if kernelEnd < kernelStart {
		return errInvalidKernelImage
	}

	*i = Info{}

	var err *kernel.Error
	visitMemRegionsFn(func(entry *multiboot.MemoryMapEntry) bool {
		if entry.Length == 0 {
			return true
		}

		region := pmm.MemoryRegion{
			Start: entry.PhysAddress,
			End:   entry.PhysAddress + entry.Length,
			Kind:  regionKind(entry.Type),
		}

		// Clamp regions that extend past the end of the address space
		if region.End < region.Start {
			region.End = ^uint64(0)
		}

		if region.Kind == pmm.RegionUsable {
			err = i.addUsable(region, uint64(kernelStart), uint64(kernelEnd))
		} else {
			err = i.addRegion(region)
		}

		return err == nil
	})

	if err != nil {
		return err
	}

	if value, ok := lookupBootCmdLineFn(physMemOffsetKey); ok {
		offset, parseErr := strconv.ParseUint(value, 0, 64)
		if parseErr != nil {
			return errInvalidPhysMemOffset
		}

		i.physMemOffset, i.hasPhysMemOffset = offset, true
	}

	i.Framebuffer = getFramebufferInfoFn()

	kfmt.Printf("[boot] loaded %d memory regions; kernel image at [0x%x - 0x%x)\n", i.regionCount, kernelStart, kernelEnd)
	return nil
}

// addUsable appends a usable region, splitting off the part that overlaps
// the kernel image [kernelStart, kernelEnd).
func (i *Info) addUsable(region pmm.MemoryRegion, kernelStart, kernelEnd uint64) *kernel.Error {
	if kernelStart == kernelEnd || region.End <= kernelStart || kernelEnd <= region.Start {
		return i.addRegion(region)
	}

	overlapStart, overlapEnd := max(region.Start, kernelStart), min(region.End, kernelEnd)

	if region.Start < overlapStart {
		if err := i.addRegion(pmm.MemoryRegion{Start: region.Start, End: overlapStart, Kind: pmm.RegionUsable}); err != nil {
			return err
		}
	}

	if err := i.addRegion(pmm.MemoryRegion{Start: overlapStart, End: overlapEnd, Kind: pmm.RegionKernel}); err != nil {
		return err
	}

	if overlapEnd < region.End {
		return i.addRegion(pmm.MemoryRegion{Start: overlapEnd, End: region.End, Kind: pmm.RegionUsable})
	}

	return nil
}

func (i *Info) addRegion(region pmm.MemoryRegion) *kernel.Error {
	if i.regionCount == len(i.regions) {
		return errTooManyRegions
	}

	i.regions[i.regionCount] = region
	i.regionCount++
	return nil
}

func regionKind(entryType multiboot.MemoryEntryType) pmm.RegionKind {
	switch entryType {
	case multiboot.MemAvailable:
		return pmm.RegionUsable
	case multiboot.MemReserved:
		return pmm.RegionReserved
	case multiboot.MemAcpiReclaimable:
		return pmm.RegionAcpiReclaimable
	case multiboot.MemNvs:
		return pmm.RegionNvs
	default:
		return pmm.RegionUnknown
	}
}
