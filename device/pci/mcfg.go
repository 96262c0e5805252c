package pci

import (
	"unsafe"

	"nocciolo/device/acpi/table"
	"nocciolo/kernel"
	"nocciolo/kernel/mm/acpimapper"
	"nocciolo/kernel/mm/vmm"
)

// MCFGSegment describes one entry of the ACPI MCFG table: the physical
// base address of bus startBus's configuration space within one PCI
// segment group, and the bus range that base covers.
type MCFGSegment struct {
	BaseAddress uintptr
	Segment     uint16
	StartBus    uint8
	EndBus      uint8
}

// SegmentsFromMCFG walks the variable-length array of MCFGEntry records
// that immediately follows the MCFG table header and returns them as
// MCFGSegments.
func SegmentsFromMCFG(mcfg *table.MCFG) []MCFGSegment {
	if mcfg == nil {
		return nil
	}

	// The wire header is the SDT header plus an 8-byte reserved field;
	// unsafe.Sizeof(table.MCFG{}) overstates this by the alignment padding
	// the Go struct inserts before its reserved uint64.
	headerLen := unsafe.Sizeof(table.SDTHeader{}) + 8
	entrySize := unsafe.Sizeof(table.MCFGEntry{})
	count := (uintptr(mcfg.SDTHeader.Length) - headerLen) / entrySize

	base := uintptr(unsafe.Pointer(mcfg)) + headerLen
	segments := make([]MCFGSegment, 0, count)

	for i := uintptr(0); i < count; i++ {
		e := (*table.MCFGEntry)(unsafe.Pointer(base + i*entrySize))
		segments = append(segments, MCFGSegment{
			BaseAddress: uintptr(e.BaseAddress),
			Segment:     e.SegmentGroup,
			StartBus:    e.StartBus,
			EndBus:      e.EndBus,
		})
	}

	return segments
}

// Per-access offset shifts under the Enhanced Configuration Access
// Mechanism: each bus gets a 1 MiB window, each device 32 KiB, each
// function a 4 KiB extended configuration space.
const (
	busShift      = 20
	deviceShift   = 15
	functionShift = 12
)

// mcfgRegion is one MCFG segment together with the standing virtual
// mapping of its entire configuration space region.
type mcfgRegion struct {
	MCFGSegment

	virtBase uintptr
}

// MCFGConfigSpace accesses PCI configuration space through the memory-
// mapped Enhanced Configuration Access Mechanism described by one or more
// ACPI MCFG segments. Each segment's whole region, sized
// (EndBus - StartBus + 1) << 20 bytes, is mapped read-write once at
// construction; individual accesses just index into the standing mapping.
// Unlike the legacy mechanism it exposes the full 4 KiB extended
// configuration space, though this kernel only reads the first 256 bytes
// of it.
type MCFGConfigSpace struct {
	regions []mcfgRegion
}

// NewMCFGConfigSpace maps the configuration space region of every given
// MCFG segment and returns a ConfigSpace over them. A mapping failure
// fails construction; the caller falls back to the legacy mechanism.
func NewMCFGConfigSpace(am *acpimapper.Mapper, segments []MCFGSegment) (*MCFGConfigSpace, *kernel.Error) {
	regions := make([]mcfgRegion, 0, len(segments))
	for _, seg := range segments {
		size := (uintptr(seg.EndBus-seg.StartBus) + 1) << busShift

		mapping, err := acpimapper.MapPhysicalRegion[byte](am, seg.BaseAddress, size, vmm.FlagCacheDisableStrong)
		if err != nil {
			return nil, err
		}

		regions = append(regions, mcfgRegion{MCFGSegment: seg, virtBase: mapping.VirtualStart})
	}

	return &MCFGConfigSpace{regions: regions}, nil
}

// register returns a pointer to the 32-bit configuration register at
// offset within the addressed function, or false if no mapped segment
// covers the address.
func (m *MCFGConfigSpace) register(addr Address, offset uint16) (*uint32, bool) {
	for i := range m.regions {
		r := &m.regions[i]
		if addr.Segment != r.Segment || addr.Bus < r.StartBus || addr.Bus > r.EndBus {
			continue
		}

		off := uintptr(addr.Bus-r.StartBus)<<busShift |
			uintptr(addr.Device)<<deviceShift |
			uintptr(addr.Function)<<functionShift |
			uintptr(offset&0xFFF)
		return (*uint32)(unsafe.Pointer(r.virtBase + off)), true
	}

	return nil, false
}

// ReadConfig32 implements ConfigSpace.
func (m *MCFGConfigSpace) ReadConfig32(addr Address, offset uint16) uint32 {
	reg, ok := m.register(addr, offset)
	if !ok {
		return 0xFFFFFFFF
	}
	return *reg
}

// WriteConfig32 implements ConfigSpace.
func (m *MCFGConfigSpace) WriteConfig32(addr Address, offset uint16, value uint32) {
	reg, ok := m.register(addr, offset)
	if !ok {
		return
	}
	*reg = value
}
