package pmm

import (
	"sorrowos/kernel"
	"sorrowos/kernel/kfmt"
	"sorrowos/kernel/mem"
	"sync/atomic"
)

var (
	errInvalidRegion      = &kernel.Error{Module: "pmm", Message: "memory region ends before it starts"}
	errOverlappingRegions = &kernel.Error{Module: "pmm", Message: "usable memory regions overlap"}
	errCatalogClaimed     = &kernel.Error{Module: "pmm", Message: "region catalog is already owned by a frame allocator"}
)

// RegionVisitor is invoked by VisitRegions for each region in the catalog.
// The visitor must return true to continue or false to abort the scan.
type RegionVisitor func(*MemoryRegion) bool

// RegionCatalog is a read-only view over the memory regions reported by the
// boot loader. The catalog does not copy the region slice; the loader owns it
// for the lifetime of the kernel.
type RegionCatalog struct {
	regions []MemoryRegion

	// claimed is set once a frame allocator takes ownership of the usable
	// frames of this catalog.
	claimed uint32
}

// NewRegionCatalog wraps the supplied region list. Regions are kept in the
// order reported by the loader. An error is returned if a region ends before
// it starts or if two usable regions overlap; handing out frames from such a
// map would issue the same frame twice.
func NewRegionCatalog(regions []MemoryRegion) (*RegionCatalog, *kernel.Error) {
	for i := range regions {
		if regions[i].End < regions[i].Start {
			return nil, errInvalidRegion
		}

		if regions[i].Kind != RegionUsable {
			continue
		}

		for j := i + 1; j < len(regions); j++ {
			if regions[j].Kind == RegionUsable && regions[i].overlaps(regions[j]) {
				return nil, errOverlappingRegions
			}
		}
	}

	return &RegionCatalog{regions: regions}, nil
}

// Claim marks the catalog as owned by a frame allocator. Only the first call
// succeeds; two allocators drawing from the same catalog would hand out the
// same frames.
func (c *RegionCatalog) Claim() *kernel.Error {
	if !atomic.CompareAndSwapUint32(&c.claimed, 0, 1) {
		return errCatalogClaimed
	}
	return nil
}

// VisitRegions invokes visitor for each region in catalog order.
func (c *RegionCatalog) VisitRegions(visitor RegionVisitor) {
	for i := range c.regions {
		if !visitor(&c.regions[i]) {
			return
		}
	}
}

// UsableFrames returns a new iterator over the frames of all usable regions.
// Each call starts over from the first usable region.
func (c *RegionCatalog) UsableFrames() FrameIterator {
	return FrameIterator{regions: c.regions, regionIndex: -1}
}

// UsableFrameCount returns the number of frames that UsableFrames yields.
func (c *RegionCatalog) UsableFrameCount() uint64 {
	var count uint64
	for _, region := range c.regions {
		if region.Kind == RegionUsable {
			_, frames := region.frameRange()
			count += frames
		}
	}
	return count
}

// UsableSize returns the total size of all usable regions.
func (c *RegionCatalog) UsableSize() mem.Size {
	var total mem.Size
	for _, region := range c.regions {
		if region.Kind == RegionUsable {
			total += region.Size()
		}
	}
	return total
}

// PrintMemoryMap logs the system memory map.
func (c *RegionCatalog) PrintMemoryMap() {
	kfmt.Printf("[pmm] system memory map:\n")
	c.VisitRegions(func(region *MemoryRegion) bool {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.Start, region.End, uint64(region.Size()), region.Kind.String())
		return true
	})
	kfmt.Printf("[pmm] available memory: %dKb (%d frames)\n", uint64(c.UsableSize()/mem.Kb), c.UsableFrameCount())
}

// FrameIterator lazily walks the frames of the usable regions in a catalog.
// The zero value yields no frames.
type FrameIterator struct {
	regions     []MemoryRegion
	regionIndex int

	// next is the frame that will be returned by the following call to
	// Next; remaining is the number of frames left in the current region.
	next      Frame
	remaining uint64
}

// Next returns the next usable frame. It returns false once all usable
// regions have been exhausted.
func (it *FrameIterator) Next() (Frame, bool) {
	for it.remaining == 0 {
		if it.regionIndex+1 >= len(it.regions) {
			return InvalidFrame, false
		}

		it.regionIndex++
		if region := it.regions[it.regionIndex]; region.Kind == RegionUsable {
			it.next, it.remaining = region.frameRange()
		}
	}

	frame := it.next
	it.next++
	it.remaining--
	return frame, true
}
