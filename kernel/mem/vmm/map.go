package vmm

import (
	"sorrowos/kernel/cpu"
	"sorrowos/kernel/mem/pmm"
)

var (
	// flushTLBEntryFn is used by tests to override calls to flushTLBEntry
	// which will cause a fault if called in user-mode.
	flushTLBEntryFn = cpu.FlushTLBEntry
)

// MapToErrorKind describes why MapTo failed.
type MapToErrorKind uint8

const (
	// FrameAllocationFailed indicates that a frame for a missing page
	// table could not be allocated.
	FrameAllocationFailed MapToErrorKind = iota + 1

	// ParentEntryHugePage indicates that a P3 or P2 entry on the path to
	// the page maps a huge page.
	ParentEntryHugePage

	// PageAlreadyMapped indicates that the page is already mapped. The
	// existing frame is reported in MapToError.Frame.
	PageAlreadyMapped
)

// MapToError is returned by MapTo. The page itself is never mapped when
// MapTo fails, but page tables allocated and linked before the failure stay
// in place.
type MapToError struct {
	Kind  MapToErrorKind
	Page  Page
	Frame pmm.Frame
}

// Error implements the error interface.
func (e *MapToError) Error() string {
	switch e.Kind {
	case FrameAllocationFailed:
		return "failed to allocate frame for page table"
	case ParentEntryHugePage:
		return "parent entry maps a huge page"
	case PageAlreadyMapped:
		return "page already mapped"
	default:
		return "unknown map error"
	}
}

// MapTo establishes a mapping between a virtual page and a physical frame.
// FlagPresent is always added to flags. Missing intermediate page tables are
// allocated from alloc, cleared and linked as present and writable (and user
// accessible if flags request it). Use allocator.Empty if all tables are
// known to exist.
//
// The caller must guarantee that frame is not in use by another mapping
// unless sharing is intended.
func (m *Mapper) MapTo(page Page, frame pmm.Frame, flags PageTableEntryFlag, alloc pmm.FrameAllocator) *MapToError {
	var (
		err         *MapToError
		parentFlags = FlagPresent | FlagRW | (flags & FlagUserAccessible)
	)

	m.lock.Acquire()
	defer m.lock.Release()

	m.view.walk(m.root, page.Address(), func(pteLevel uint8, pte *PageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place and flag it as present and flush its TLB entry
		if pteLevel == pageLevels-1 {
			if !pte.IsUnused() {
				err = &MapToError{Kind: PageAlreadyMapped, Page: page, Frame: pte.Frame()}
				return false
			}

			pte.SetFrame(frame)
			pte.SetFlags(flags | FlagPresent)
			flushTLBEntryFn(page.Address())
			return true
		}

		if pte.HasFlags(FlagPresent | FlagHugePage) {
			err = &MapToError{Kind: ParentEntryHugePage, Page: page, Frame: pmm.InvalidFrame}
			return false
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents before linking it.
		if !pte.HasFlags(FlagPresent) {
			tableFrame, ok := alloc.AllocFrame()
			if !ok {
				err = &MapToError{Kind: FrameAllocationFailed, Page: page, Frame: pmm.InvalidFrame}
				return false
			}

			m.view.ZeroFrame(tableFrame)
			*pte = 0
			pte.SetFrame(tableFrame)
		}

		pte.SetFlags(parentFlags)
		return true
	})

	return err
}

// Unmap removes the mapping for page and returns the frame it pointed to.
// Page tables that become empty are not freed.
func (m *Mapper) Unmap(page Page) (pmm.Frame, *FrameError) {
	m.lock.Acquire()
	defer m.lock.Release()

	pte, err := m.view.leafEntry(m.root, page.Address())
	if err != nil {
		return pmm.InvalidFrame, err
	}

	frame := pte.Frame()
	*pte = 0
	flushTLBEntryFn(page.Address())
	return frame, nil
}
