package vmm

import (
	"sorrowos/kernel/cpu"
	"sorrowos/kernel/mem"
	"sorrowos/kernel/mem/pmm"
)

var (
	// activePDTFn is used by tests to override calls to cpu.ActivePDT
	// which will cause a fault if called in user-mode.
	activePDTFn = cpu.ActivePDT
)

// FrameErrorKind describes why a page table entry could not be resolved to a
// frame.
type FrameErrorKind uint8

const (
	// FrameNotPresent indicates that the entry is not marked as present.
	FrameNotPresent FrameErrorKind = iota + 1

	// HugeFrameUnsupported indicates that the entry maps a huge page which
	// the walker does not decode.
	HugeFrameUnsupported
)

// FrameError is returned when a page table walk for VirtAddr stops at Level
// (4 for the P4 table down to 1 for the P1 table). A FrameError only concerns
// the requested address; callers such as a page fault handler may treat it as
// an unmapped page.
//
// Error reports the kind and level using static text so it can be called
// before the Go allocator is available; VirtAddr must be read from the field.
type FrameError struct {
	Kind     FrameErrorKind
	Level    uint8
	VirtAddr uintptr
}

var (
	// Indexed by FrameError.Level; index 0 is used for out of range levels.
	frameNotPresentMessages = [pageLevels + 1]string{
		"frame error: frame not present",
		"frame error: P1 entry not present",
		"frame error: P2 entry not present",
		"frame error: P3 entry not present",
		"frame error: P4 entry not present",
	}
	hugeFrameMessages = [pageLevels + 1]string{
		"frame error: huge pages not supported",
		"frame error: huge pages not supported (P1 entry)",
		"frame error: huge pages not supported (P2 entry)",
		"frame error: huge pages not supported (P3 entry)",
		"frame error: huge pages not supported (P4 entry)",
	}
)

// Error implements the error interface.
func (e *FrameError) Error() string {
	level := int(e.Level)
	if level > pageLevels {
		level = 0
	}

	switch e.Kind {
	case FrameNotPresent:
		return frameNotPresentMessages[level]
	case HugeFrameUnsupported:
		return hugeFrameMessages[level]
	default:
		return "frame error: unknown"
	}
}

// activeRootFrame returns the frame of the P4 table that CR3 points to.
func activeRootFrame() pmm.Frame {
	return pmm.Frame((activePDTFn() & ptePhysPageMask) >> mem.PageShift)
}

// Translate returns the physical address that virtAddr maps to in the
// currently active page tables. The tables are accessed through the linear
// mapping of physical memory at physMemOffset which the caller must
// guarantee to be valid.
//
// Translate re-reads CR3 on each call. Code that owns a Mapper should use
// Mapper.Translate instead.
func Translate(virtAddr, physMemOffset uintptr) (uintptr, *FrameError) {
	return translate(NewPhysicalMemoryView(physMemOffset), activeRootFrame(), virtAddr)
}

func translate(view PhysicalMemoryView, root pmm.Frame, virtAddr uintptr) (uintptr, *FrameError) {
	pte, err := view.leafEntry(root, virtAddr)
	if err != nil {
		return 0, err
	}

	// Calculate the physical address by taking the physical frame address and
	// appending the offset from the virtual address
	return pte.Frame().Address() + PageOffset(virtAddr), nil
}

// leafEntry returns the P1 entry that maps virtAddr. The walk fails at the
// first entry that is not present or that maps a huge page. Bit 7 of a P1
// entry is the PAT bit and is not treated as a huge page marker.
func (v PhysicalMemoryView) leafEntry(root pmm.Frame, virtAddr uintptr) (*PageTableEntry, *FrameError) {
	var (
		err   *FrameError
		entry *PageTableEntry
	)

	v.walk(root, virtAddr, func(pteLevel uint8, pte *PageTableEntry) bool {
		switch {
		case !pte.HasFlags(FlagPresent):
			err = &FrameError{Kind: FrameNotPresent, Level: pageLevels - pteLevel, VirtAddr: virtAddr}
			return false
		case pteLevel < pageLevels-1 && pte.HasFlags(FlagHugePage):
			err = &FrameError{Kind: HugeFrameUnsupported, Level: pageLevels - pteLevel, VirtAddr: virtAddr}
			return false
		}

		entry = pte
		return true
	})

	return entry, err
}
