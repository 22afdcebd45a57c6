package mem

import "unsafe"

// Memset sets size bytes at the given address to the supplied value. Instead
// of a byte loop it performs log2(size) copy calls which is fast for the page
// sized, page aligned blocks this is used for.
func Memset(addr uintptr, value byte, size Size) {
	if size == 0 {
		return
	}

	target := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))

	target[0] = value
	for filled := 1; filled < len(target); filled *= 2 {
		copy(target[filled:], target[:filled])
	}
}
