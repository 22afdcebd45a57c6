package mem

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uintptr)). Page table
	// entries are pointer sized so this is also the shift that converts a
	// table index into a byte offset.
	PointerShift = 3

	// PageShift is equal to log2(PageSize). Shifting a physical address
	// right by PageShift yields its frame number and vice-versa.
	PageShift = 12

	// PageSize is the size of a standard page and of a physical frame.
	PageSize = Size(1 << PageShift)
)
