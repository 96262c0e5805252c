// Package apic provides the glue between the ACPI MADT table and the
// localapic/ioapic drivers: walking the table's variable-length entry list
// to discover where the I/O APICs live and which legacy IRQs have been
// rerouted to a different global system interrupt.
package apic

import (
	"unsafe"

	"nocciolo/device/acpi/table"
)

// IOAPICInfo describes one I/O APIC discovered in the MADT.
type IOAPICInfo struct {
	APICID  uint8
	Address uintptr
	GSIBase uint32
}

// InterruptOverride records that the legacy ISA IRQ IRQSrc has been rerouted
// to GlobalInterrupt, as reported by a MADT Interrupt Source Override entry.
type InterruptOverride struct {
	IRQSrc          uint8
	GlobalInterrupt uint32
	Flags           uint16
}

// ParseMADT walks the variable-length entry list following the MADT header
// and returns every I/O APIC and interrupt source override it describes.
// Local APIC and NMI entries are skipped: the former is discovered through
// the MSR base instead, and this kernel does not configure per-CPU NMI
// delivery.
func ParseMADT(madt *table.MADT) ([]IOAPICInfo, []InterruptOverride) {
	if madt == nil {
		return nil, nil
	}

	var (
		ioapics   []IOAPICInfo
		overrides []InterruptOverride
	)

	// Entries are packed on the wire, so each field is read at its
	// byte offset from the entry start rather than through a Go struct
	// (whose alignment padding does not match the table layout).
	const (
		entryHeaderLen = 2

		ioapicEntryLen  = 12
		ioapicIDOff     = 2
		ioapicAddrOff   = 4
		ioapicGSIOff    = 8

		overrideEntryLen = 10
		overrideIRQOff   = 3
		overrideGSIOff   = 4
		overrideFlagsOff = 8
	)

	base := uintptr(unsafe.Pointer(madt))
	pos := base + unsafe.Sizeof(table.MADT{})
	end := base + uintptr(madt.Length)

	for pos+entryHeaderLen <= end {
		entType := table.MADTEntryType(*(*uint8)(unsafe.Pointer(pos)))
		entLen := uintptr(*(*uint8)(unsafe.Pointer(pos + 1)))
		if entLen < entryHeaderLen || pos+entLen > end {
			break
		}

		switch {
		case entType == table.MADTEntryTypeIOAPIC && entLen >= ioapicEntryLen:
			ioapics = append(ioapics, IOAPICInfo{
				APICID:  *(*uint8)(unsafe.Pointer(pos + ioapicIDOff)),
				Address: uintptr(*(*uint32)(unsafe.Pointer(pos + ioapicAddrOff))),
				GSIBase: *(*uint32)(unsafe.Pointer(pos + ioapicGSIOff)),
			})
		case entType == table.MADTEntryTypeIntSrcOverride && entLen >= overrideEntryLen:
			overrides = append(overrides, InterruptOverride{
				IRQSrc:          *(*uint8)(unsafe.Pointer(pos + overrideIRQOff)),
				GlobalInterrupt: *(*uint32)(unsafe.Pointer(pos + overrideGSIOff)),
				Flags:           *(*uint16)(unsafe.Pointer(pos + overrideFlagsOff)),
			})
		}

		pos += entLen
	}

	return ioapics, overrides
}

// LocalAPICBaseOverride returns the 64-bit Local APIC base address from a
// MADT Local APIC Address Override entry, or 0 if the table carries none
// (the IA32_APIC_BASE MSR is authoritative then).
func LocalAPICBaseOverride(madt *table.MADT) uintptr {
	if madt == nil {
		return 0
	}

	const (
		overrideEntryLen = 12
		overrideAddrOff  = 4
	)

	base := uintptr(unsafe.Pointer(madt))
	pos := base + unsafe.Sizeof(table.MADT{})
	end := base + uintptr(madt.Length)

	for pos+2 <= end {
		entType := table.MADTEntryType(*(*uint8)(unsafe.Pointer(pos)))
		entLen := uintptr(*(*uint8)(unsafe.Pointer(pos + 1)))
		if entLen < 2 || pos+entLen > end {
			break
		}

		if entType == table.MADTEntryTypeLocalAPICAddrOverride && entLen >= overrideEntryLen {
			return uintptr(*(*uint64)(unsafe.Pointer(pos + overrideAddrOff)))
		}

		pos += entLen
	}

	return 0
}

// ResolveGSI maps a legacy ISA IRQ number to its global system interrupt,
// applying any override ParseMADT found. IRQs with no override keep their
// identity mapping, the default required by the ACPI specification.
func ResolveGSI(overrides []InterruptOverride, irq uint8) uint32 {
	for _, o := range overrides {
		if o.IRQSrc == irq {
			return o.GlobalInterrupt
		}
	}
	return uint32(irq)
}
