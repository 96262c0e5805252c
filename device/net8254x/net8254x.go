// Package net8254x is a stub driver for the Intel 8254x family of gigabit
// Ethernet controllers (e.g. the 82540EM "e1000" QEMU emulates). It claims
// the device and records the BAR0 MMIO window a real driver would use, but
// never touches the hardware beyond enabling bus mastering: there is no
// network stack above it to hand packets to.
package net8254x

import (
	"nocciolo/device"
	"nocciolo/device/pci"
	"nocciolo/kernel"
)

// vendorIntel is the PCI vendor ID Intel Corporation devices report.
const vendorIntel = 0x8086

// knownDeviceIDs lists the 8254x device IDs this stub recognizes. 0x100E is
// the 82540EM ("e1000") QEMU/Bochs emulate; others are added here as they
// are encountered rather than guessed at.
var knownDeviceIDs = map[uint16]bool{
	0x100E: true, // 82540EM Gigabit Ethernet Controller
}

// Driver claims one Intel 8254x function discovered on the PCI bus.
type Driver struct {
	fn   pci.Function
	bar0 uint32
}

// candidate is set by SetCandidate when PCI enumeration finds a matching
// function, and consumed by the DriverInfo registered in init(). A single
// package-level slot is enough: this kernel has no SMP and enumerates PCI
// exactly once at boot.
var candidate *pci.Function

// SetCandidate records fn as the function net8254x's registered driver
// should claim, if fn's vendor/device IDs match a known 8254x part.
// Called from PCI enumeration; a no-op for any other device.
func SetCandidate(fn pci.Function) {
	if fn.VendorID() != vendorIntel {
		return
	}
	if !knownDeviceIDs[fn.DeviceID()] {
		return
	}
	f := fn
	candidate = &f
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderLast,
		Probe: probe,
	})
}

// probe returns a Driver for whatever function SetCandidate last recorded,
// or nil if none was found.
func probe() device.Driver {
	if candidate == nil {
		return nil
	}
	return &Driver{fn: *candidate}
}

// DriverName implements device.Driver.
func (d *Driver) DriverName() string { return "intel_8254x" }

// DriverVersion implements device.Driver.
func (d *Driver) DriverVersion() (uint16, uint16, uint16) { return 0, 1, 0 }

// DriverInit enables bus mastering and records BAR0. No packet path is
// wired up: this stub exists so the device is acknowledged during
// enumeration without pretending to drive hardware this kernel has no
// network stack to serve.
func (d *Driver) DriverInit() *kernel.Error {
	d.fn.EnableBusMastering()

	bar0, ok := d.fn.BaseAddress(0)
	if !ok {
		return &kernel.Error{Module: "net8254x", Message: "missing BAR0"}
	}
	d.bar0 = bar0
	return nil
}

// BAR0 returns the raw base address register 0 value recorded during
// DriverInit, or 0 before DriverInit has run.
func (d *Driver) BAR0() uint32 { return d.bar0 }
