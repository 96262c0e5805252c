package apic

import (
	"testing"
	"unsafe"

	"nocciolo/device/acpi/table"
)

// buildMADT lays out a synthetic MADT (header plus entries) in a byte
// buffer exactly the way firmware would: entries are packed wire bytes, not
// Go structs, so the test exercises the same offset arithmetic ParseMADT
// performs against real hardware tables.
func buildMADT(t *testing.T) (*table.MADT, []byte) {
	t.Helper()

	buf := make([]byte, 512)
	madt := (*table.MADT)(unsafe.Pointer(&buf[0]))

	pos := int(unsafe.Sizeof(table.MADT{}))

	put8 := func(off int, v uint8) { buf[off] = v }
	put16 := func(off int, v uint16) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
	}
	put32 := func(off int, v uint32) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
		buf[off+2] = byte(v >> 16)
		buf[off+3] = byte(v >> 24)
	}

	// A Local APIC entry (type 0, 8 bytes): ParseMADT must skip it.
	put8(pos, uint8(table.MADTEntryTypeLocalAPIC))
	put8(pos+1, 8)
	put8(pos+2, 0)     // processor ID
	put8(pos+3, 0)     // APIC ID
	put32(pos+4, 1)    // flags: enabled
	pos += 8

	// An I/O APIC entry (type 1, 12 bytes) at the legacy base address, GSI
	// base 0.
	put8(pos, uint8(table.MADTEntryTypeIOAPIC))
	put8(pos+1, 12)
	put8(pos+2, 2)             // I/O APIC ID
	put8(pos+3, 0)             // reserved
	put32(pos+4, 0xFEC00000)   // address
	put32(pos+8, 0)            // GSI base
	pos += 12

	// An interrupt source override (type 2, 10 bytes) rerouting legacy IRQ0
	// (PIT) to GSI 2, the standard layout on PC-compatible chipsets.
	put8(pos, uint8(table.MADTEntryTypeIntSrcOverride))
	put8(pos+1, 10)
	put8(pos+2, 0)   // bus: ISA
	put8(pos+3, 0)   // source IRQ
	put32(pos+4, 2)  // global system interrupt
	put16(pos+8, 0)  // flags
	pos += 10

	madt.Length = uint32(pos)
	return madt, buf
}

func TestParseMADTFindsIOAPICAndOverride(t *testing.T) {
	madt, buf := buildMADT(t)
	_ = buf

	ioapics, overrides := ParseMADT(madt)

	if len(ioapics) != 1 {
		t.Fatalf("expected 1 I/O APIC; got %d", len(ioapics))
	}
	if ioapics[0].APICID != 2 || ioapics[0].Address != 0xFEC00000 || ioapics[0].GSIBase != 0 {
		t.Fatalf("unexpected IOAPICInfo: %+v", ioapics[0])
	}

	if len(overrides) != 1 {
		t.Fatalf("expected 1 interrupt override; got %d", len(overrides))
	}
	if overrides[0].IRQSrc != 0 || overrides[0].GlobalInterrupt != 2 {
		t.Fatalf("unexpected InterruptOverride: %+v", overrides[0])
	}
}

func TestParseMADTNilTable(t *testing.T) {
	ioapics, overrides := ParseMADT(nil)
	if ioapics != nil || overrides != nil {
		t.Fatalf("expected nil, nil for a nil MADT; got %v, %v", ioapics, overrides)
	}
}

func TestResolveGSIAppliesOverride(t *testing.T) {
	madt, _ := buildMADT(t)
	_, overrides := ParseMADT(madt)

	if gsi := ResolveGSI(overrides, 0); gsi != 2 {
		t.Fatalf("expected IRQ0 to be rerouted to GSI 2; got %d", gsi)
	}
	if gsi := ResolveGSI(overrides, 1); gsi != 1 {
		t.Fatalf("expected IRQ1 with no override to keep its identity GSI; got %d", gsi)
	}
}

func TestLocalAPICBaseOverride(t *testing.T) {
	buf := make([]byte, 128)
	madt := (*table.MADT)(unsafe.Pointer(&buf[0]))

	pos := int(unsafe.Sizeof(table.MADT{}))

	// A Local APIC address override entry (type 5, 12 bytes).
	buf[pos] = uint8(table.MADTEntryTypeLocalAPICAddrOverride)
	buf[pos+1] = 12
	// 2 reserved bytes, then the 64-bit address.
	addr := uint64(0x00000000FEE01000)
	for i := 0; i < 8; i++ {
		buf[pos+4+i] = byte(addr >> (8 * i))
	}
	pos += 12

	madt.Length = uint32(pos)

	if got := LocalAPICBaseOverride(madt); got != uintptr(addr) {
		t.Fatalf("expected override address %#x; got %#x", addr, got)
	}
}

func TestLocalAPICBaseOverrideAbsent(t *testing.T) {
	madt, _ := buildMADT(t)
	if got := LocalAPICBaseOverride(madt); got != 0 {
		t.Fatalf("expected 0 with no override entry; got %#x", got)
	}

	if got := LocalAPICBaseOverride(nil); got != 0 {
		t.Fatalf("expected 0 for a nil MADT; got %#x", got)
	}
}
