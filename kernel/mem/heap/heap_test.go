package heap

import (
	"sorrowos/kernel/mem"
	"sorrowos/kernel/mem/pmm"
	"sorrowos/kernel/mem/vmm"
	"testing"
)

type mapping struct {
	page  vmm.Page
	frame pmm.Frame
	flags vmm.PageTableEntryFlag
}

type fakeMapper struct {
	mappings []mapping
	failAt   int
	err      *vmm.MapToError
}

func (m *fakeMapper) MapTo(page vmm.Page, frame pmm.Frame, flags vmm.PageTableEntryFlag, _ pmm.FrameAllocator) *vmm.MapToError {
	if m.err != nil && len(m.mappings) == m.failAt {
		return m.err
	}

	m.mappings = append(m.mappings, mapping{page, frame, flags})
	return nil
}

type countingAllocator struct {
	next, limit pmm.Frame
}

func (a *countingAllocator) AllocFrame() (pmm.Frame, bool) {
	if a.next >= a.limit {
		return pmm.InvalidFrame, false
	}

	a.next++
	return a.next - 1, true
}

func TestInit(t *testing.T) {
	mapper := &fakeMapper{}
	alloc := &countingAllocator{next: 0x100, limit: 0x1000}

	region, err := Init(mapper, alloc)
	if err != nil {
		t.Fatal(err)
	}

	if region.Start != HeapStart || region.Size != HeapSize || region.End() != HeapStart+uintptr(HeapSize) {
		t.Fatalf("unexpected heap region %+v", region)
	}

	if exp := int(HeapSize / mem.PageSize); len(mapper.mappings) != exp {
		t.Fatalf("expected %d pages to be mapped; got %d", exp, len(mapper.mappings))
	}

	firstPage := vmm.PageFromAddress(HeapStart)
	for i, m := range mapper.mappings {
		if exp := firstPage + vmm.Page(i); m.page != exp {
			t.Errorf("[mapping %d] expected page 0x%x; got 0x%x", i, exp, m.page)
		}

		if exp := pmm.Frame(0x100 + i); m.frame != exp {
			t.Errorf("[mapping %d] expected frame 0x%x; got 0x%x", i, exp, m.frame)
		}

		if m.flags != vmm.FlagPresent|vmm.FlagRW|vmm.FlagNoExecute {
			t.Errorf("[mapping %d] unexpected flags 0x%x", i, m.flags)
		}
	}
}

func TestInitErrors(t *testing.T) {
	t.Run("frame allocation", func(t *testing.T) {
		mapper := &fakeMapper{}
		alloc := &countingAllocator{limit: 3}

		_, err := Init(mapper, alloc)
		if err == nil || err.Kind != vmm.FrameAllocationFailed {
			t.Fatalf("expected FrameAllocationFailed; got %v", err)
		}

		if exp := vmm.PageFromAddress(HeapStart) + 3; err.Page != exp {
			t.Fatalf("expected error for page 0x%x; got 0x%x", exp, err.Page)
		}

		if len(mapper.mappings) != 3 {
			t.Fatalf("expected 3 pages to be mapped before failing; got %d", len(mapper.mappings))
		}
	})

	t.Run("map error", func(t *testing.T) {
		expErr := &vmm.MapToError{Kind: vmm.PageAlreadyMapped, Page: vmm.PageFromAddress(HeapStart) + 5, Frame: 0x42}
		mapper := &fakeMapper{failAt: 5, err: expErr}

		if _, err := Init(mapper, &countingAllocator{limit: 0x1000}); err != expErr {
			t.Fatalf("expected MapTo error to be returned; got %v", err)
		}
	})
}
