package kfmt

import (
	"sorrowos/kernel"
	"sorrowos/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic reports e to the active sink and halts the CPU. It is the only exit
// path for unrecoverable boot failures such as a missing physical memory
// offset. Calls to Panic never return on real hardware.
func Panic(e interface{}) {
	var (
		module  = errRuntimePanic.Module
		message = errRuntimePanic.Message
	)

	switch t := e.(type) {
	case *kernel.Error:
		if t != nil {
			module, message = t.Module, t.Message
		}
	case string:
		message = t
	case error:
		message = t.Error()
	}

	Printf("\n-----------------------------------\n")
	if e != nil {
		Printf("[%s] unrecoverable error: %s\n", module, message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}
