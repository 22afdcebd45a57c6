// Package multiboot reads the boot information block that a multiboot2
// compliant loader places in memory before jumping to the kernel.
package multiboot

import "unsafe"

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
)

// infoHeader describes the multiboot info section header.
type infoHeader struct {
	// Total size of multiboot info section.
	totalSize uint32

	// Always set to zero; reserved for future use
	reserved uint32
}

// tagHeader describes the header that precedes each tag.
type tagHeader struct {
	// The type of the tag
	tagType tagType

	// The size of the tag including the header but *not* including any
	// padding. Each tag starts at an 8-byte aligned address.
	size uint32
}

// mmapHeader describes the header for a memory map specification.
type mmapHeader struct {
	// The size of each entry.
	entrySize uint32

	// The version of the entries that follow.
	entryVersion uint32
}

// FramebufferType defines the type of the initialized framebuffer.
type FramebufferType uint8

const (
	// FrameBufferTypeIndexed specifies a 256-color palette.
	FrameBufferTypeIndexed FramebufferType = iota

	// FramebufferTypeRGB specifies direct RGB mode.
	FramebufferTypeRGB

	// FramebufferTypeEGA specifies EGA text mode.
	FramebufferTypeEGA
)

// FramebufferInfo describes the framebuffer set up by the boot loader.
type FramebufferInfo struct {
	// The framebuffer physical address.
	PhysAddr uint64

	// Row pitch in bytes.
	Pitch uint32

	// Width and height in pixels (or characters if Type = FramebufferTypeEGA)
	Width, Height uint32

	// Bits per pixel (non EGA modes only).
	Bpp uint8

	// Framebuffer type.
	Type FramebufferType
}

// MemoryEntryType defines the type of a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable indicates that the memory region is available for use.
	MemAvailable MemoryEntryType = iota + 1

	// MemReserved indicates that the memory region is not available for use.
	MemReserved

	// MemAcpiReclaimable indicates a memory region that holds ACPI info that
	// can be reused by the OS.
	MemAcpiReclaimable

	// MemNvs indicates memory that must be preserved when hibernating.
	MemNvs

	// Any value >= memUnknown is reported as MemReserved.
	memUnknown
)

// String implements fmt.Stringer for MemoryEntryType.
func (t MemoryEntryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemAcpiReclaimable:
		return "ACPI (reclaimable)"
	case MemNvs:
		return "NVS"
	default:
		return "unknown"
	}
}

// MemoryMapEntry describes a physical memory region reported by the loader.
type MemoryMapEntry struct {
	// The physical address for this memory region.
	PhysAddress uint64

	// The length of the memory region.
	Length uint64

	// The type of this entry.
	Type MemoryEntryType
}

// MemRegionVisitor is invoked by VisitMemRegions for each memory map entry.
// It returns false to abort the scan.
type MemRegionVisitor func(*MemoryMapEntry) bool

var infoData uintptr

// SetInfoPtr sets the address of the multiboot info block. It must be called
// before any other function in this package.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// VisitMemRegions invokes visitor for each entry of the loader's memory map,
// in the order the loader reported them. Entries with an unknown type are
// reported as MemReserved.
func VisitMemRegions(visitor MemRegionVisitor) {
	curPtr, size := findTagByType(tagMemoryMap)
	if size == 0 {
		return
	}

	hdr := (*mmapHeader)(unsafe.Pointer(curPtr))
	if hdr.entrySize == 0 {
		return
	}

	endPtr := curPtr + uintptr(size)
	curPtr += unsafe.Sizeof(mmapHeader{})

	var entry MemoryMapEntry
	for ; curPtr+uintptr(hdr.entrySize) <= endPtr; curPtr += uintptr(hdr.entrySize) {
		// Copy the entry so the loader's data is never modified
		entry = *(*MemoryMapEntry)(unsafe.Pointer(curPtr))
		if entry.Type == 0 || entry.Type >= memUnknown {
			entry.Type = MemReserved
		}

		if !visitor(&entry) {
			return
		}
	}
}

// GetFramebufferInfo returns the framebuffer set up by the boot loader or nil
// if the loader did not report one.
func GetFramebufferInfo() *FramebufferInfo {
	curPtr, size := findTagByType(tagFramebufferInfo)
	if size == 0 {
		return nil
	}

	return (*FramebufferInfo)(unsafe.Pointer(curPtr))
}

// LookupBootCmdLine scans the kernel command line for a "key=value" pair and
// returns its value. A key that appears without a value is returned as its
// own value. The returned string points into the info block so no memory is
// allocated; this allows it to be used before the Go allocator is available.
func LookupBootCmdLine(key string) (string, bool) {
	cmdLine := bootCmdLine()

	for start := 0; start < len(cmdLine); {
		for start < len(cmdLine) && isSpace(cmdLine[start]) {
			start++
		}

		end := start
		for end < len(cmdLine) && !isSpace(cmdLine[end]) {
			end++
		}

		if field := cmdLine[start:end]; len(field) >= len(key) && field[:len(key)] == key {
			switch {
			case len(field) == len(key):
				return field, true
			case field[len(key)] == '=':
				return field[len(key)+1:], true
			}
		}

		start = end
	}

	return "", false
}

// bootCmdLine returns the command line stored in the info block without its
// NUL terminator.
func bootCmdLine() string {
	curPtr, size := findTagByType(tagBootCmdLine)
	if size == 0 {
		return ""
	}

	cmdLine := unsafe.String((*byte)(unsafe.Pointer(curPtr)), int(size))
	for i := 0; i < len(cmdLine); i++ {
		if cmdLine[i] == 0 {
			return cmdLine[:i]
		}
	}

	return cmdLine
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// findTagByType scans the multiboot info data looking for the specified tag.
// It returns a pointer to the tag payload and the payload length excluding
// the tag header. If the tag is not present it returns (0, 0).
func findTagByType(tagType tagType) (uintptr, uint32) {
	if infoData == 0 {
		return 0, 0
	}

	hdrSize := uintptr(unsafe.Sizeof(tagHeader{}))
	endPtr := infoData + uintptr((*infoHeader)(unsafe.Pointer(infoData)).totalSize)

	for curPtr := infoData + unsafe.Sizeof(infoHeader{}); curPtr+hdrSize <= endPtr; {
		tag := (*tagHeader)(unsafe.Pointer(curPtr))
		if tag.tagType == tagMbSectionEnd || tag.size < uint32(hdrSize) {
			break
		}

		if tag.tagType == tagType {
			return curPtr + hdrSize, tag.size - uint32(hdrSize)
		}

		// Tags start at 8-byte aligned addresses
		curPtr += (uintptr(tag.size) + 7) &^ 7
	}

	return 0, 0
}
