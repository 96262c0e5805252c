package pmm

import (
	"nocciolo/kernel/boot"
	"nocciolo/kernel/mm"
	"testing"
)

func contractWithRegions(regions ...boot.MemoryRegion) *boot.Contract {
	return &boot.Contract{
		PhysicalMemoryOffset: 0xffff800000000000,
		MemoryRegions:        regions,
	}
}

func TestFrameAllocatorStability(t *testing.T) {
	fa := NewFrameAllocator(contractWithRegions(boot.MemoryRegion{
		Start: 0x100000,
		End:   0x200000,
		Kind:  boot.Usable,
	}))

	expAddrs := []uintptr{0x100000, 0x101000, 0x102000, 0x103000}
	for i, exp := range expAddrs {
		frame, err := fa.Allocate()
		if err != nil {
			t.Fatalf("allocation %d: unexpected error: %v", i, err)
		}
		if got := frame.Address(); got != exp {
			t.Errorf("allocation %d: expected frame at %x; got %x", i, exp, got)
		}
	}
}

func TestFrameAllocatorExhaustion(t *testing.T) {
	fa := NewFrameAllocator(contractWithRegions(boot.MemoryRegion{
		Start: 0x100000,
		End:   0x200000,
		Kind:  boot.Usable,
	}))

	// The region spans 256 frames (0x100000 bytes / 0x1000).
	for i := 0; i < 256; i++ {
		if _, err := fa.Allocate(); err != nil {
			t.Fatalf("allocation %d: unexpected error: %v", i, err)
		}
	}

	if _, err := fa.Allocate(); err == nil {
		t.Fatal("expected the 257th allocation to fail")
	}
}

func TestFrameAllocatorSkipsNonUsableRegions(t *testing.T) {
	fa := NewFrameAllocator(contractWithRegions(
		boot.MemoryRegion{Start: 0x0, End: 0x1000, Kind: boot.Reserved},
		boot.MemoryRegion{Start: 0x1000, End: 0x3000, Kind: boot.Usable},
	))

	frame, err := fa.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := frame.Address(); got != 0x1000 {
		t.Errorf("expected first usable frame at 0x1000; got %x", got)
	}
}

func TestFrameAllocatorAllocateAt(t *testing.T) {
	fa := NewFrameAllocator(contractWithRegions(boot.MemoryRegion{
		Start: 0x100000,
		End:   0x200000,
		Kind:  boot.Usable,
	}))

	frame, err := fa.AllocateAt(0x101123)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp := mm.FrameFromAddress(0x101000); frame != exp {
		t.Errorf("expected %v; got %v", exp, frame)
	}

	if _, err := fa.AllocateAt(0x500000); err == nil {
		t.Fatal("expected AllocateAt to fail for a frame outside any usable region")
	}
}
