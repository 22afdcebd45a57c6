package kmain

import (
	"sorrowos/kernel"
	"sorrowos/kernel/boot"
	"sorrowos/kernel/hal/multiboot"
	"sorrowos/kernel/kfmt"
	"sorrowos/kernel/mem/heap"
	"sorrowos/kernel/mem/pmm"
	"sorrowos/kernel/mem/pmm/allocator"
	"sorrowos/kernel/mem/vmm"
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errHeapInit      = &kernel.Error{Module: "heap", Message: "heap initialization failed"}

	// bootInfo is populated before the Go allocator is available so it
	// lives in the data segment.
	bootInfo boot.Info

	// memory holds the memory managers created by initMemory.
	memory memoryManagers

	// The following functions are mocked by tests.
	mapperInitFn = vmm.Init
	heapInitFn   = heap.Init
	panicFn      = kfmt.Panic
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT and a minimal g0 struct that allows Go code to
// run on the 4K stack allocated by the assembly code.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader as well as the physical addresses for the kernel start/end.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	if err := bootInfo.LoadMultiboot(kernelStart, kernelEnd); err != nil {
		panicFn(err)
		return
	}

	var err *kernel.Error
	if memory, err = initMemory(bootInfo.PhysicalMemoryOffset(), bootInfo.Regions()); err != nil {
		panicFn(err)
		return
	}
	kfmt.Printf("[kmain] kernel heap ready at [0x%x - 0x%x)\n", memory.heap.Start, memory.heap.End())

	// Use panicFn instead of returning to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// memoryManagers groups the objects that own physical and virtual memory
// once initMemory returns.
type memoryManagers struct {
	mapper     *vmm.Mapper
	frameAlloc *allocator.BootMemAllocator

	// heap is the mapped virtual window that backs the kernel heap.
	heap heap.Region
}

// initMemory brings up the memory subsystem: it creates the page table
// mapper, catalogs the physical memory regions, builds the boot frame
// allocator on top of the catalog and maps the kernel heap. The returned
// managers are owned by the caller.
func initMemory(physMemOffset *uint64, regions []pmm.MemoryRegion) (memoryManagers, *kernel.Error) {
	mapper, err := mapperInitFn(physMemOffset)
	if err != nil {
		return memoryManagers{}, err
	}

	catalog, err := pmm.NewRegionCatalog(regions)
	if err != nil {
		return memoryManagers{}, err
	}
	catalog.PrintMemoryMap()

	frameAlloc, err := allocator.NewBootMemAllocator(catalog)
	if err != nil {
		return memoryManagers{}, err
	}

	heapRegion, mapErr := heapInitFn(mapper, frameAlloc)
	if mapErr != nil {
		kfmt.Printf("[kmain] unable to map heap page 0x%x: %s\n", mapErr.Page.Address(), mapErr.Error())
		return memoryManagers{}, errHeapInit
	}

	return memoryManagers{mapper: mapper, frameAlloc: frameAlloc, heap: heapRegion}, nil
}
