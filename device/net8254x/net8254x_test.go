package net8254x

import (
	"testing"

	"nocciolo/device/pci"
)

// fakeConfigSpace is a minimal in-memory pci.ConfigSpace for exercising
// SetCandidate/DriverInit without touching real I/O ports.
type fakeConfigSpace struct {
	regs map[pci.Address]map[uint16]uint32
}

func newFakeConfigSpace() *fakeConfigSpace {
	return &fakeConfigSpace{regs: make(map[pci.Address]map[uint16]uint32)}
}

func (f *fakeConfigSpace) put(addr pci.Address, offset uint16, value uint32) {
	if f.regs[addr] == nil {
		f.regs[addr] = make(map[uint16]uint32)
	}
	f.regs[addr][offset] = value
}

func (f *fakeConfigSpace) ReadConfig32(addr pci.Address, offset uint16) uint32 {
	regs, ok := f.regs[addr]
	if !ok {
		return 0xFFFFFFFF
	}
	return regs[offset]
}

func (f *fakeConfigSpace) WriteConfig32(addr pci.Address, offset uint16, value uint32) {
	f.put(addr, offset, value)
}

// newFunction registers a function in cfg and returns the pci.Function the
// real Enumerator would hand to a visitor, since pci.Function's internal
// ConfigSpace reference is unexported outside package pci.
func newFunction(cfg *fakeConfigSpace, addr pci.Address, vendor, device uint16) pci.Function {
	cfg.put(addr, 0x00, uint32(device)<<16|uint32(vendor))
	cfg.put(addr, 0x0C, 0x00000000)
	cfg.put(addr, 0x10, 0xF0000000)

	var found pci.Function
	pci.New(cfg).Enumerate(func(fn pci.Function) bool {
		if fn.Address == addr {
			found = fn
			return false
		}
		return true
	})
	return found
}

func TestSetCandidateIgnoresUnknownVendor(t *testing.T) {
	defer func() { candidate = nil }()
	cfg := newFakeConfigSpace()
	fn := newFunction(cfg, pci.Address{Bus: 0, Device: 0, Function: 0}, 0x10DE, 0x100E)

	SetCandidate(fn)
	if candidate != nil {
		t.Fatal("expected SetCandidate to ignore a non-Intel vendor ID")
	}
}

func TestSetCandidateIgnoresUnknownDevice(t *testing.T) {
	defer func() { candidate = nil }()
	cfg := newFakeConfigSpace()
	fn := newFunction(cfg, pci.Address{Bus: 0, Device: 0, Function: 0}, vendorIntel, 0x1234)

	SetCandidate(fn)
	if candidate != nil {
		t.Fatal("expected SetCandidate to ignore an unrecognized Intel device ID")
	}
}

func TestSetCandidateAndProbe(t *testing.T) {
	defer func() { candidate = nil }()
	cfg := newFakeConfigSpace()
	addr := pci.Address{Bus: 0, Device: 4, Function: 0}
	fn := newFunction(cfg, addr, vendorIntel, 0x100E)

	SetCandidate(fn)
	if candidate == nil {
		t.Fatal("expected SetCandidate to record a matching 82540EM function")
	}

	drv := probe()
	if drv == nil {
		t.Fatal("expected probe to return a Driver once a candidate is set")
	}
	if got := drv.DriverName(); got != "intel_8254x" {
		t.Errorf("expected DriverName %q; got %q", "intel_8254x", got)
	}

	if err := drv.DriverInit(); err != nil {
		t.Fatalf("unexpected DriverInit error: %v", err)
	}
	if got := drv.(*Driver).BAR0(); got != 0xF0000000 {
		t.Errorf("expected BAR0 0xF0000000; got %#x", got)
	}
}

func TestProbeWithNoCandidateReturnsNil(t *testing.T) {
	defer func() { candidate = nil }()
	candidate = nil
	if drv := probe(); drv != nil {
		t.Fatalf("expected probe() to return nil with no candidate; got %v", drv)
	}
}
