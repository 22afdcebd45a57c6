// Package vmm walks and modifies the amd64 4-level page tables through the
// boot loader's linear mapping of physical memory.
package vmm

import (
	"sorrowos/kernel"
	"sorrowos/kernel/kfmt"
	"sorrowos/kernel/mem/pmm"
	"sorrowos/kernel/sync"
	"sync/atomic"
)

var (
	// mapperInitialized is set by the first successful call to Init.
	mapperInitialized uint32

	// ErrPhysicalMemoryOffset is returned by Init when the boot loader did
	// not report where physical memory is mapped. The kernel cannot
	// continue without it.
	ErrPhysicalMemoryOffset = &kernel.Error{Module: "vmm", Message: "physical memory offset not set"}

	// ErrMapperAlreadyInitialized is returned by all calls to Init after
	// the first successful one.
	ErrMapperAlreadyInitialized = &kernel.Error{Module: "vmm", Message: "page table mapper already initialized"}
)

// Mapper provides translation and mapping services for the page tables that
// were active when it was created. It is the only object allowed to modify
// them; all operations are serialized by an internal spinlock.
type Mapper struct {
	lock sync.Spinlock

	view PhysicalMemoryView
	root pmm.Frame
}

// Init creates the kernel's page table Mapper. physMemOffset is the virtual
// address where the boot loader mapped all physical memory; a nil value
// means the loader did not set up such a mapping and ErrPhysicalMemoryOffset
// is returned without touching the page tables.
//
// Init succeeds at most once. The returned Mapper must be passed explicitly
// to the code that needs it; two Mappers over the same tables could modify
// the same entries concurrently.
func Init(physMemOffset *uint64) (*Mapper, *kernel.Error) {
	if physMemOffset == nil {
		return nil, ErrPhysicalMemoryOffset
	}

	if !atomic.CompareAndSwapUint32(&mapperInitialized, 0, 1) {
		return nil, ErrMapperAlreadyInitialized
	}

	m := &Mapper{
		view: NewPhysicalMemoryView(uintptr(*physMemOffset)),
		root: activeRootFrame(),
	}

	kfmt.Printf("[vmm] active P4 table at 0x%x; physical memory mapped at 0x%x\n", m.root.Address(), m.view.Offset())
	return m, nil
}

// Root returns the frame that holds the P4 table managed by this Mapper.
func (m *Mapper) Root() pmm.Frame {
	return m.root
}

// View returns the physical memory view used by this Mapper.
func (m *Mapper) View() PhysicalMemoryView {
	return m.view
}

// Translate returns the physical address that virtAddr maps to.
func (m *Mapper) Translate(virtAddr uintptr) (uintptr, *FrameError) {
	m.lock.Acquire()
	defer m.lock.Release()

	return translate(m.view, m.root, virtAddr)
}

// TranslatePage returns the frame that page maps to.
func (m *Mapper) TranslatePage(page Page) (pmm.Frame, *FrameError) {
	m.lock.Acquire()
	defer m.lock.Release()

	pte, err := m.view.leafEntry(m.root, page.Address())
	if err != nil {
		return pmm.InvalidFrame, err
	}
	return pte.Frame(), nil
}
