// Package cpu exposes the privileged amd64 instructions used by the memory
// subsystem. All functions are implemented in assembly and fault when
// executed outside ring 0.
package cpu

// Halt disables interrupts and stops instruction execution.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// ActivePDT returns the raw contents of the CR3 register: the physical
// address of the active level 4 table plus the PCD/PWT flag bits.
func ActivePDT() uintptr
