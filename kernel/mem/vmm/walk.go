package vmm

import "sorrowos/kernel/mem/pmm"

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level (0 = P4, 3 = P1) and a pointer to
// the page table entry that the walked address selects at that level. If the
// function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *PageTableEntry) bool

// walk performs a page table walk for the given virtual address starting at
// the P4 table stored in root. For each level it calls walkFn with the entry
// that corresponds to virtAddr and then descends into the table that the
// entry points to. walkFn may modify the entry (e.g. to install a missing
// table) before the walk descends.
func (v PhysicalMemoryView) walk(root pmm.Frame, virtAddr uintptr, walkFn pageTableWalker) {
	table := root
	for level := uint8(0); level < pageLevels; level++ {
		// tableIndex always yields a value below entriesPerTable so
		// entryPtr cannot fail here.
		pte, _ := v.entryPtr(table, tableIndex(virtAddr, level))
		if !walkFn(level, pte) {
			return
		}

		table = pte.Frame()
	}
}
