// Package ioapic drives one IO APIC: programming its redirection table so
// legacy ISA IRQ lines (and any MADT-described source overrides) are
// delivered as Local APIC vectors.
package ioapic

import (
	"unsafe"

	"nocciolo/kernel"
	"nocciolo/kernel/gate"
	"nocciolo/kernel/mm/acpimapper"
	"nocciolo/kernel/mm/vmm"
)

const (
	indexID        = 0x00
	indexVer       = 0x01
	indexRedirBase = 0x10 // + 2*n for the low/high dwords of entry n
)

// DeliveryMode selects how an interrupt is presented to the CPU.
type DeliveryMode uint8

// The delivery modes this kernel recognizes.
const (
	DeliveryModeFixed          DeliveryMode = 0b000
	DeliveryModeLowestPriority DeliveryMode = 0b001
	DeliveryModeSystemManaged  DeliveryMode = 0b010
	DeliveryModeNMI            DeliveryMode = 0b100
	DeliveryModeINIT           DeliveryMode = 0b101
	DeliveryModeExternal       DeliveryMode = 0b111
)

// Polarity describes the active level of the interrupt line.
type Polarity uint8

// The supported polarity values.
const (
	PolarityHighActive Polarity = 0
	PolarityLowActive  Polarity = 1
)

// TriggerMode describes whether the line is edge or level triggered.
type TriggerMode uint8

// The supported trigger modes.
const (
	TriggerModeEdge  TriggerMode = 0
	TriggerModeLevel TriggerMode = 1
)

// Entry is the decoded form of one 64-bit redirection-table record, split
// across the two 32-bit indirect registers 0x10+2n (low) and 0x11+2n
// (high). DeliveryStatus and RemoteIRR are set by the hardware and ignored
// on writes; every other field round-trips bit-exact through
// ReadEntry/WriteEntry.
type Entry struct {
	Vector          uint8
	DeliveryMode    DeliveryMode
	DestinationMode uint8 // 0 = physical APIC ID, 1 = logical set
	DeliveryStatus  uint8 // read-only: 1 while delivery is pending
	Polarity        Polarity
	RemoteIRR       uint8 // read-only: level-triggered IRQ awaiting EOI
	TriggerMode     TriggerMode
	Masked          bool
	Destination     uint8
}

// decodeEntry unpacks the two redirection dwords into an Entry.
func decodeEntry(low, high uint32) Entry {
	masked := low&(1<<16) != 0

	return Entry{
		Vector:          uint8(low),
		DeliveryMode:    DeliveryMode((low >> 8) & 0b111),
		DestinationMode: uint8((low >> 11) & 0b1),
		DeliveryStatus:  uint8((low >> 12) & 0b1),
		Polarity:        Polarity((low >> 13) & 0b1),
		RemoteIRR:       uint8((low >> 14) & 0b1),
		TriggerMode:     TriggerMode((low >> 15) & 0b1),
		Masked:          masked,
		Destination:     uint8(high >> 24),
	}
}

// encode packs the Entry back into its two redirection dwords.
func (e Entry) encode() (low, high uint32) {
	low = uint32(e.Vector) |
		uint32(e.DeliveryMode&0b111)<<8 |
		uint32(e.DestinationMode&0b1)<<11 |
		uint32(e.DeliveryStatus&0b1)<<12 |
		uint32(e.Polarity&0b1)<<13 |
		uint32(e.RemoteIRR&0b1)<<14 |
		uint32(e.TriggerMode&0b1)<<15

	if e.Masked {
		low |= 1 << 16
	}

	high = uint32(e.Destination) << 24
	return low, high
}

// regs is the 2-register MMIO window every IO APIC exposes: writing the
// register index to regSelect makes its 32-bit value appear at regWindow.
type regs struct {
	selectReg uint32
	_         [3]uint32
	windowReg uint32
}

// IoApic is a handle to one IO APIC's MMIO window.
type IoApic struct {
	mmio       *acpimapper.PhysicalMapping[regs]
	r          *regs
	gsiBase    uint32
	redirCount uint8

	// lapicEOI is the raw virtual address of the Local APIC's EOI
	// register, captured at construction instead of holding a reference to
	// the LocalApic itself (the two controllers would otherwise point at
	// each other).
	lapicEOI uintptr
}

// New maps the IO APIC whose redirection table begins at global system
// interrupt gsiBase, located at the given physical address. lapicEOI is
// the Local APIC EOI register address interrupts routed through this IO
// APIC are acknowledged at. am must outlive the returned IoApic.
func New(am *acpimapper.Mapper, phys uintptr, gsiBase uint32, lapicEOI uintptr) (*IoApic, *kernel.Error) {
	mapping, err := acpimapper.MapPhysicalRegion[regs](am, phys, 20, vmm.FlagCacheDisableStrong)
	if err != nil {
		return nil, err
	}

	a := &IoApic{mmio: mapping, r: mapping.Value(), gsiBase: gsiBase, lapicEOI: lapicEOI}
	a.redirCount = uint8(a.read(indexVer)>>16) + 1
	return a, nil
}

// NotifyEndOfInterrupt acknowledges an interrupt this IO APIC delivered by
// writing 0 to the Local APIC EOI register captured at construction; the
// vector argument satisfies idt.EOINotifier and is otherwise unused.
func (a *IoApic) NotifyEndOfInterrupt(vector uint8) {
	*(*uint32)(unsafe.Pointer(a.lapicEOI)) = 0
}

func (a *IoApic) read(index uint32) uint32 {
	a.r.selectReg = index
	return a.r.windowReg
}

func (a *IoApic) write(index uint32, v uint32) {
	a.r.selectReg = index
	a.r.windowReg = v
}

// RedirectionCount returns the number of redirection table entries this
// IO APIC exposes: the maximum redirection entry index held in bits 16-23
// of its version register, plus one.
func (a *IoApic) RedirectionCount() uint8 { return a.redirCount }

// HandlesGSI reports whether global system interrupt gsi is routed through
// this IO APIC's redirection table.
func (a *IoApic) HandlesGSI(gsi uint32) bool {
	return gsi >= a.gsiBase && gsi < a.gsiBase+uint32(a.redirCount)
}

// ReadEntry returns redirection table entry index. index must be <
// RedirectionCount().
func (a *IoApic) ReadEntry(index uint8) Entry {
	low := a.read(indexRedirBase + uint32(index)*2)
	high := a.read(indexRedirBase + uint32(index)*2 + 1)
	return decodeEntry(low, high)
}

// WriteEntry programs redirection table entry index. index must be <
// RedirectionCount().
func (a *IoApic) WriteEntry(index uint8, e Entry) {
	low, high := e.encode()
	a.write(indexRedirBase+uint32(index)*2, low)
	a.write(indexRedirBase+uint32(index)*2+1, high)
}

// SanitizeRouting walks every redirection table entry firmware left behind.
// An entry already masked is left exactly as-is: its delivery-mode,
// polarity, and trigger-mode bits may encode a legacy ISA quirk this kernel
// has no business overwriting, and it delivers nothing until something
// later explicitly unmasks it. An entry firmware left unmasked is
// re-pointed at a vector from the spurious pool, rather than trusted to
// collide with the CPU exception range; every other field of the entry is
// preserved and it stays unmasked.
func (a *IoApic) SanitizeRouting() {
	for i := uint8(0); i < a.redirCount; i++ {
		entry := a.ReadEntry(i)
		if entry.Masked {
			continue
		}

		slot := int(i) % gate.IoApicSpuriousCount()
		entry.Vector = uint8(gate.IoApicSpuriousVector(slot))
		a.WriteEntry(i, entry)
	}
}

// RouteGSI programs the redirection table entry for the given global
// system interrupt to deliver vector to the boot CPU's Local APIC in fixed
// delivery mode, masked or unmasked per enabled. The polarity and trigger
// mode firmware (or a MADT override) configured for the line are
// preserved.
func (a *IoApic) RouteGSI(gsi uint32, vector gate.InterruptNumber, enabled bool) {
	index := uint8(gsi - a.gsiBase)

	entry := a.ReadEntry(index)
	entry.Vector = uint8(vector)
	entry.DeliveryMode = DeliveryModeFixed
	entry.DestinationMode = 0 // physical
	entry.Destination = 0     // boot CPU's APIC ID
	entry.Masked = !enabled
	a.WriteEntry(index, entry)
}
