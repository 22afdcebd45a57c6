package pmm

import (
	"bytes"
	"sorrowos/kernel"
	"sorrowos/kernel/kfmt"
	"sorrowos/kernel/mem"
	"strings"
	"testing"
)

func collectFrames(it FrameIterator) []Frame {
	var frames []Frame
	for {
		frame, ok := it.Next()
		if !ok {
			return frames
		}
		frames = append(frames, frame)
	}
}

func TestUsableFrames(t *testing.T) {
	specs := []struct {
		regions   []MemoryRegion
		expFrames []Frame
	}{
		{
			// exactly 4 frames
			[]MemoryRegion{{0x0, 0x4000, RegionUsable}},
			[]Frame{0, 1, 2, 3},
		},
		{
			// reserved regions are skipped; catalog order is kept
			[]MemoryRegion{
				{0x10000, 0x12000, RegionUsable},
				{0x0, 0x10000, RegionReserved},
				{0x2000, 0x3000, RegionUsable},
			},
			[]Frame{0x10, 0x11, 0x2},
		},
		{
			// unaligned edges are trimmed to whole frames
			[]MemoryRegion{{0x800, 0x3800, RegionUsable}},
			[]Frame{1, 2},
		},
		{
			// regions smaller than a frame yield nothing
			[]MemoryRegion{
				{0x100, 0xf00, RegionUsable},
				{0x5000, 0x5000, RegionUsable},
			},
			nil,
		},
		{
			[]MemoryRegion{
				{0x0, 0x9fc00, RegionReserved},
				{0x100000, 0x200000, RegionKernel},
				{0xfffc0000, 0x100000000, RegionNvs},
			},
			nil,
		},
		{
			// a region starting in the last page of the address space
			// must not wrap around to frame 0
			[]MemoryRegion{
				{0x0, 0x2000, RegionUsable},
				{0xfffffffffffff001, 0xffffffffffffffff, RegionUsable},
			},
			[]Frame{0, 1},
		},
		{
			[]MemoryRegion{
				{0xffffffffffffe000, 0xffffffffffffffff, RegionUsable},
			},
			[]Frame{0xffffffffffffe},
		},
		{
			nil,
			nil,
		},
	}

	for specIndex, spec := range specs {
		catalog, err := NewRegionCatalog(spec.regions)
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}

		got := collectFrames(catalog.UsableFrames())
		if len(got) != len(spec.expFrames) {
			t.Errorf("[spec %d] expected %d frames; got %d", specIndex, len(spec.expFrames), len(got))
			continue
		}

		for i := range got {
			if got[i] != spec.expFrames[i] {
				t.Errorf("[spec %d] expected frame %d to be %d; got %d", specIndex, i, spec.expFrames[i], got[i])
			}
		}

		if exp := uint64(len(spec.expFrames)); catalog.UsableFrameCount() != exp {
			t.Errorf("[spec %d] expected UsableFrameCount to return %d; got %d", specIndex, exp, catalog.UsableFrameCount())
		}
	}
}

func TestUsableFramesIsRestartable(t *testing.T) {
	catalog, err := NewRegionCatalog([]MemoryRegion{
		{0x0, 0x2000, RegionUsable},
		{0x8000, 0xa000, RegionUsable},
	})
	if err != nil {
		t.Fatal(err)
	}

	first := collectFrames(catalog.UsableFrames())
	second := collectFrames(catalog.UsableFrames())

	if len(first) != 4 || len(first) != len(second) {
		t.Fatalf("expected both iterations to yield 4 frames; got %d and %d", len(first), len(second))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("expected frame %d to be the same in both iterations; got %d and %d", i, first[i], second[i])
		}
	}

	var exhausted FrameIterator
	if frame, ok := exhausted.Next(); ok || frame.Valid() {
		t.Error("expected zero FrameIterator to yield no frames")
	}
}

func TestNewRegionCatalogErrors(t *testing.T) {
	specs := []struct {
		regions []MemoryRegion
		expErr  *kernel.Error
	}{
		{
			[]MemoryRegion{{0x2000, 0x1000, RegionReserved}},
			errInvalidRegion,
		},
		{
			[]MemoryRegion{
				{0x0, 0x4000, RegionUsable},
				{0x8000, 0x9000, RegionReserved},
				{0x3000, 0x5000, RegionUsable},
			},
			errOverlappingRegions,
		},
		{
			// overlapping a reserved region is the loader's business
			[]MemoryRegion{
				{0x0, 0x4000, RegionUsable},
				{0x3000, 0x5000, RegionReserved},
			},
			nil,
		},
		{
			// adjacent usable regions do not overlap
			[]MemoryRegion{
				{0x0, 0x4000, RegionUsable},
				{0x4000, 0x5000, RegionUsable},
			},
			nil,
		},
	}

	for specIndex, spec := range specs {
		_, err := NewRegionCatalog(spec.regions)
		switch {
		case spec.expErr == nil && err != nil:
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
		case spec.expErr != nil && err != spec.expErr:
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestCatalogClaim(t *testing.T) {
	catalog, _ := NewRegionCatalog([]MemoryRegion{{0x0, 0x4000, RegionUsable}})

	if err := catalog.Claim(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := catalog.Claim(); err != errCatalogClaimed {
		t.Fatalf("expected errCatalogClaimed; got %v", err)
	}
}

func TestVisitRegions(t *testing.T) {
	catalog, _ := NewRegionCatalog([]MemoryRegion{
		{0x0, 0x9fc00, RegionUsable},
		{0x9fc00, 0xa0000, RegionReserved},
		{0x100000, 0x7fe0000, RegionUsable},
	})

	var visited int
	catalog.VisitRegions(func(region *MemoryRegion) bool {
		visited++
		return region.Kind == RegionUsable
	})

	if visited != 2 {
		t.Fatalf("expected visitor to abort after 2 regions; visited %d", visited)
	}

	if exp, got := mem.Size(0x9fc00+0x7ee0000), catalog.UsableSize(); got != exp {
		t.Fatalf("expected usable size to be %d; got %d", exp, got)
	}
}

func TestPrintMemoryMap(t *testing.T) {
	defer kfmt.SetOutputSink(nil)

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)

	catalog, _ := NewRegionCatalog([]MemoryRegion{
		{0x0, 0x9fc00, RegionUsable},
		{0xf0000, 0x100000, RegionReserved},
	})
	catalog.PrintMemoryMap()

	out := buf.String()
	for _, exp := range []string{
		"[0x0000000000 - 0x000009fc00], size:     654336, type: usable",
		"[0x00000f0000 - 0x0000100000], size:      65536, type: reserved",
		"[pmm] available memory: 639Kb (159 frames)",
	} {
		if !strings.Contains(out, exp) {
			t.Errorf("expected output to contain %q; got:\n%s", exp, out)
		}
	}
}
