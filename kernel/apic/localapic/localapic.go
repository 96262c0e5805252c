// Package localapic drives the per-CPU Local APIC: enabling it, arming its
// periodic timer, masking the LINT0/LINT1 lines the legacy PIC used to
// drive, and acknowledging interrupts via its End-Of-Interrupt register.
package localapic

import (
	"unsafe"

	"nocciolo/kernel"
	"nocciolo/kernel/cpu"
	"nocciolo/kernel/gate"
	"nocciolo/kernel/kfmt"
	"nocciolo/kernel/mm/acpimapper"
	"nocciolo/kernel/mm/vmm"
)

const (
	apicBaseMSR = 0x1B

	regID           = 0x020
	regSVR          = 0x0F0
	regEOI          = 0x0B0
	regLvtTimer     = 0x320
	regLvtLINT0     = 0x350
	regLvtLINT1     = 0x360
	regLvtError     = 0x370
	regTimerInitCnt = 0x380
	regTimerCurCnt  = 0x390
	regTimerDivide  = 0x3E0

	svrEnable = 1 << 8

	lvtMasked        = 1 << 16
	lvtTimerPeriodic = 1 << 17

	apicBaseEnableBit = 1 << 11
	apicBaseAddrMask  = 0xFFFFF000
)

// regPerm encodes a Local APIC register's architectural access permission.
type regPerm uint8

const (
	permR regPerm = 1 << iota
	permW

	permRW = permR | permW
)

// permOf returns the access permission of the registers this kernel
// touches. Any register not listed here is off-limits to read and write.
func permOf(reg uint32) regPerm {
	switch reg {
	case regID, regTimerCurCnt:
		return permR
	case regEOI:
		return permW
	case regSVR, regLvtTimer, regLvtLINT0, regLvtLINT1, regLvtError,
		regTimerInitCnt, regTimerDivide:
		return permRW
	}
	return 0
}

// LocalApic is a memory-mapped view of the calling CPU's Local APIC.
type LocalApic struct {
	regs *[0x400]uint32
	mmio *acpimapper.PhysicalMapping[[0x400]uint32]
}

// New discovers the Local APIC's base address from IA32_APIC_BASE — or from
// baseOverride, the MADT's 64-bit address-override entry, when non-zero —
// maps its 4 KiB MMIO window uncached, and returns a handle to it. am must
// outlive the returned LocalApic.
func New(am *acpimapper.Mapper, baseOverride uintptr) (*LocalApic, *kernel.Error) {
	phys := baseOverride
	if phys == 0 {
		base := cpu.Rdmsr(apicBaseMSR)
		phys = uintptr(base) & apicBaseAddrMask
	}

	mapping, err := acpimapper.MapPhysicalRegion[[0x400]uint32](am, phys, 0x400*4, vmm.FlagCacheDisableStrong)
	if err != nil {
		return nil, err
	}

	return &LocalApic{regs: mapping.Value(), mmio: mapping}, nil
}

func (a *LocalApic) read(reg uint32) uint32 {
	if permOf(reg)&permR == 0 {
		kfmt.Panic(&kernel.Error{Module: "localapic", Message: "read from non-readable register"})
	}
	return a.regs[reg/4]
}

func (a *LocalApic) write(reg uint32, v uint32) {
	if permOf(reg)&permW == 0 {
		kfmt.Panic(&kernel.Error{Module: "localapic", Message: "write to non-writable register"})
	}
	a.regs[reg/4] = v
}

// Enable sets the APIC software-enable bit (SVR bit 8) and routes spurious
// interrupts to gate.SpuriousLocalApic.
func (a *LocalApic) Enable() {
	a.write(regSVR, uint32(gate.SpuriousLocalApic)|svrEnable)
}

// MaskLegacyLines masks LINT0 and LINT1 (the pins the legacy PIC used to
// drive through the CPU directly) onto the spurious vector so they cannot
// deliver interrupts once the IO APIC takes over IRQ routing, and points
// the Local APIC's own error LVT entry at gate.LvtError.
func (a *LocalApic) MaskLegacyLines() {
	a.write(regLvtLINT0, uint32(gate.SpuriousLocalApic)|lvtMasked)
	a.write(regLvtLINT1, uint32(gate.SpuriousLocalApic)|lvtMasked)
	a.write(regLvtError, uint32(gate.LvtError))
}

// StartPeriodicTimer arms the Local APIC timer in periodic mode, vectored
// to gate.Timer, counting down from initialCount on every bus tick (divide
// configuration fixed at /16, matching the divide value PIT-based
// calibration in package pit assumes).
func (a *LocalApic) StartPeriodicTimer(initialCount uint32) {
	const divideBy16 = 0x3
	a.write(regTimerDivide, divideBy16)
	a.write(regLvtTimer, uint32(gate.Timer)|lvtTimerPeriodic)
	a.write(regTimerInitCnt, initialCount)
}

// CurrentTimerCount returns the timer's current countdown value, used by
// package pit to calibrate the bus frequency against the PIT's known rate.
func (a *LocalApic) CurrentTimerCount() uint32 { return a.read(regTimerCurCnt) }

// EOIRegisterAddress returns the virtual address of the EOI register so the
// IO APIC can acknowledge through it without holding a reference to this
// LocalApic.
func (a *LocalApic) EOIRegisterAddress() uintptr {
	return uintptr(unsafe.Pointer(&a.regs[regEOI/4]))
}

// NotifyEndOfInterrupt signals completion of interrupt handling to the
// Local APIC; vector is accepted to satisfy idt.EOINotifier but otherwise
// unused, since the Local APIC's EOI register acknowledges whichever
// interrupt is currently in service regardless of which vector it was. It
// must be called from every interrupt handler whose vector the Local APIC
// or IO APIC delivered, or no further interrupts on that priority class
// will be accepted.
func (a *LocalApic) NotifyEndOfInterrupt(vector uint8) {
	a.write(regEOI, 0)
}

// ID returns the Local APIC ID of the executing CPU.
func (a *LocalApic) ID() uint8 {
	return uint8(a.read(regID) >> 24)
}
