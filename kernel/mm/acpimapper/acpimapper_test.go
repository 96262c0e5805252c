package acpimapper

import (
	"testing"

	"nocciolo/kernel"
	"nocciolo/kernel/mm"
	"nocciolo/kernel/mm/pagenum"
	"nocciolo/kernel/mm/vmm"
)

// recordingMapper records every Map/Unmap call instead of editing live page
// tables, so the page-run arithmetic can be checked without privileged
// instructions.
type recordingMapper struct {
	mapped   map[mm.Page]mm.Frame
	unmapped []mm.Page
}

func newRecordingMapper() *recordingMapper {
	return &recordingMapper{mapped: make(map[mm.Page]mm.Frame)}
}

func (r *recordingMapper) Map(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, fa vmm.FrameAllocator) *kernel.Error {
	r.mapped[page] = frame
	return nil
}

func (r *recordingMapper) Unmap(page mm.Page) (mm.Frame, *kernel.Error) {
	frame, ok := r.mapped[page]
	if !ok {
		return mm.InvalidFrame, &kernel.Error{Module: "test", Message: "unmap of unmapped page"}
	}
	delete(r.mapped, page)
	r.unmapped = append(r.unmapped, page)
	return frame, nil
}

func testMapper(rec *recordingMapper) *Mapper {
	return &Mapper{mapper: rec, pages: pagenum.New()}
}

func TestMapPhysicalRegionSubPageOffset(t *testing.T) {
	rec := newRecordingMapper()
	am := testMapper(rec)

	m, err := MapPhysicalRegion[byte](am, 0x1234, 100, 0)
	if err != nil {
		t.Fatalf("map failed: %v", err)
	}

	// The caller sees the exact byte 0x1234 points to: the virtual start
	// is offset by phys mod 4096 inside the first mapped page.
	if got := m.VirtualStart % mm.PageSize; got != 0x234 {
		t.Errorf("expected virtual start offset 0x234 within its page; got %#x", got)
	}
	if m.PhysicalStart != 0x1234 || m.RegionLength != 100 {
		t.Errorf("unexpected mapping bounds: %+v", m)
	}
	if m.MappedLength != mm.PageSize {
		t.Errorf("expected a single mapped page for a region inside one page; got %#x bytes", m.MappedLength)
	}

	if len(rec.mapped) != 1 {
		t.Fatalf("expected 1 page install; got %d", len(rec.mapped))
	}
	page := mm.PageFromAddress(m.VirtualStart)
	if frame, ok := rec.mapped[page]; !ok || frame.Address() != 0x1000 {
		t.Errorf("expected the page containing the virtual start to map frame 0x1000; got %v", rec.mapped)
	}
}

func TestMapPhysicalRegionOffsetCrossesPage(t *testing.T) {
	rec := newRecordingMapper()
	am := testMapper(rec)

	// 100 bytes at 0x1FB0 spill past the 0x2000 boundary: the run must
	// cover two pages even though the region itself is far smaller than
	// one. Sizing the run from the region length alone would truncate it.
	m, err := MapPhysicalRegion[byte](am, 0x1FB0, 100, 0)
	if err != nil {
		t.Fatalf("map failed: %v", err)
	}

	if m.MappedLength != 2*mm.PageSize {
		t.Errorf("expected 2 mapped pages; got %#x bytes", m.MappedLength)
	}
	if m.MappedLength < m.RegionLength+(m.PhysicalStart%mm.PageSize) {
		t.Errorf("mapped length %#x does not cover region length plus sub-page offset", m.MappedLength)
	}

	if len(rec.mapped) != 2 {
		t.Fatalf("expected 2 page installs; got %d", len(rec.mapped))
	}

	// The pages are contiguous and identity-track the physical frames.
	first := mm.PageFromAddress(m.VirtualStart)
	second := first + 1
	if frame, ok := rec.mapped[first]; !ok || frame.Address() != 0x1000 {
		t.Errorf("expected first page to map frame 0x1000; got %v", rec.mapped)
	}
	if frame, ok := rec.mapped[second]; !ok || frame.Address() != 0x2000 {
		t.Errorf("expected second page to map frame 0x2000; got %v", rec.mapped)
	}
}

func TestUnmapPhysicalRegionUnmapsWholeRun(t *testing.T) {
	rec := newRecordingMapper()
	am := testMapper(rec)

	m, err := MapPhysicalRegion[byte](am, 0x1FB0, 100, 0)
	if err != nil {
		t.Fatalf("map failed: %v", err)
	}

	if err := am.UnmapPhysicalRegion(m.VirtualStart, m.MappedLength); err != nil {
		t.Fatalf("unmap failed: %v", err)
	}

	// Exactly mapped_length/4096 pages, starting at the page containing
	// the (offset) virtual start.
	if want := int(m.MappedLength / mm.PageSize); len(rec.unmapped) != want {
		t.Fatalf("expected %d pages unmapped; got %d", want, len(rec.unmapped))
	}
	if rec.unmapped[0] != mm.PageFromAddress(m.VirtualStart) {
		t.Errorf("expected unmapping to start at the page containing the virtual start; got %v", rec.unmapped)
	}
	if len(rec.mapped) != 0 {
		t.Errorf("expected no pages left mapped; got %v", rec.mapped)
	}
}

func TestMapPhysicalRegionReservesDistinctRuns(t *testing.T) {
	rec := newRecordingMapper()
	am := testMapper(rec)

	a, err := MapPhysicalRegion[byte](am, 0x1000, 0x1000, 0)
	if err != nil {
		t.Fatalf("map failed: %v", err)
	}
	b, err := MapPhysicalRegion[byte](am, 0x1000, 0x1000, 0)
	if err != nil {
		t.Fatalf("map failed: %v", err)
	}

	if a.VirtualStart == b.VirtualStart {
		t.Error("expected each mapping to reserve a fresh virtual page run")
	}
}
