package pci

import (
	"testing"
	"unsafe"

	"nocciolo/device/acpi/table"
)

// buildMCFG lays out a synthetic MCFG table in a byte buffer exactly the
// way firmware would: a 36-byte SDT header, an 8-byte reserved field, then
// packed 16-byte entries, so the test exercises the same offset arithmetic
// SegmentsFromMCFG performs against real hardware tables.
func buildMCFG(t *testing.T, entries ...MCFGSegment) (*table.MCFG, []byte) {
	t.Helper()

	const headerLen = 44

	buf := make([]byte, headerLen+len(entries)*16)
	mcfg := (*table.MCFG)(unsafe.Pointer(&buf[0]))

	put16 := func(off int, v uint16) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
	}
	put64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}

	pos := headerLen
	for _, e := range entries {
		put64(pos, uint64(e.BaseAddress))
		put16(pos+8, e.Segment)
		buf[pos+10] = e.StartBus
		buf[pos+11] = e.EndBus
		pos += 16
	}

	mcfg.Length = uint32(pos)
	return mcfg, buf
}

func TestSegmentsFromMCFG(t *testing.T) {
	want := []MCFGSegment{
		{BaseAddress: 0xB000_0000, Segment: 0, StartBus: 0, EndBus: 0xFF},
		{BaseAddress: 0xD000_0000, Segment: 1, StartBus: 4, EndBus: 7},
	}

	mcfg, buf := buildMCFG(t, want...)
	_ = buf

	got := SegmentsFromMCFG(mcfg)
	if len(got) != len(want) {
		t.Fatalf("expected %d segments; got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d: expected %+v; got %+v", i, want[i], got[i])
		}
	}
}

func TestSegmentsFromMCFGNilTable(t *testing.T) {
	if got := SegmentsFromMCFG(nil); got != nil {
		t.Errorf("expected nil segment list for a nil MCFG; got %v", got)
	}
}

// windowedRegion maps a test-owned buffer as if it were one MCFG segment's
// configuration space region.
func windowedRegion(seg MCFGSegment, window []byte) mcfgRegion {
	return mcfgRegion{MCFGSegment: seg, virtBase: uintptr(unsafe.Pointer(&window[0]))}
}

func TestMCFGRegisterOffset(t *testing.T) {
	// Four buses starting at bus 0: bus 3's window begins at 0x30_0000.
	window := make([]byte, 4<<busShift)
	cfg := &MCFGConfigSpace{regions: []mcfgRegion{
		windowedRegion(MCFGSegment{Segment: 0, StartBus: 0, EndBus: 3}, window),
	}}

	const wantOffset = 0x30_0010
	window[wantOffset] = 0xEF
	window[wantOffset+1] = 0xBE
	window[wantOffset+2] = 0xAD
	window[wantOffset+3] = 0xDE

	addr := Address{Segment: 0, Bus: 3, Device: 0, Function: 0}
	if got := cfg.ReadConfig32(addr, 0x10); got != 0xDEADBEEF {
		t.Errorf("expected read at MMIO offset %#x to return 0xDEADBEEF; got %#x", wantOffset, got)
	}

	cfg.WriteConfig32(addr, 0x10, 0x12345678)
	if window[wantOffset] != 0x78 || window[wantOffset+3] != 0x12 {
		t.Error("expected write to land at the same MMIO offset as the read")
	}
}

func TestMCFGRegisterDeviceFunctionOffsets(t *testing.T) {
	window := make([]byte, 1<<busShift)
	cfg := &MCFGConfigSpace{regions: []mcfgRegion{
		windowedRegion(MCFGSegment{Segment: 0, StartBus: 0, EndBus: 0}, window),
	}}

	specs := []struct {
		addr   Address
		offset uint16
		want   uintptr
	}{
		{Address{Device: 1}, 0x00, 1 << deviceShift},
		{Address{Function: 2}, 0x00, 2 << functionShift},
		{Address{Device: 31, Function: 7}, 0xFFC, 31<<deviceShift | 7<<functionShift | 0xFFC},
	}

	for _, spec := range specs {
		window[spec.want] = 0xAA
		if got := cfg.ReadConfig32(spec.addr, spec.offset); got&0xFF != 0xAA {
			t.Errorf("access for %+v offset %#x: expected MMIO offset %#x", spec.addr, spec.offset, spec.want)
		}
		window[spec.want] = 0
	}
}

func TestMCFGRegisterRespectsSegmentAndBusRange(t *testing.T) {
	window := make([]byte, 1<<busShift)
	cfg := &MCFGConfigSpace{regions: []mcfgRegion{
		windowedRegion(MCFGSegment{Segment: 1, StartBus: 4, EndBus: 4}, window),
	}}

	// Out-of-range bus and mismatched segment both read as absent.
	if got := cfg.ReadConfig32(Address{Segment: 1, Bus: 5}, 0x00); got != 0xFFFFFFFF {
		t.Errorf("expected out-of-range bus to read as absent; got %#x", got)
	}
	if got := cfg.ReadConfig32(Address{Segment: 0, Bus: 4}, 0x00); got != 0xFFFFFFFF {
		t.Errorf("expected mismatched segment to read as absent; got %#x", got)
	}

	window[0] = 0x34
	window[1] = 0x12
	got := cfg.ReadConfig32(Address{Segment: 1, Bus: 4}, 0x00)
	if got != 0x1234 || window[0] != 0x34 {
		t.Errorf("expected in-range access to hit the region base; got %#x", got)
	}
}
