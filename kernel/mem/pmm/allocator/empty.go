package allocator

import "sorrowos/kernel/mem/pmm"

// Empty is a frame allocator that never has any frames to offer. It can be
// passed to code that requires an allocator when all needed page tables are
// known to exist.
type Empty struct{}

// AllocFrame always returns false.
func (Empty) AllocFrame() (pmm.Frame, bool) {
	return pmm.InvalidFrame, false
}
