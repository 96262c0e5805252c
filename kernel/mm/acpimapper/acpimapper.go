// Package acpimapper implements map_physical_region/unmap_physical_region:
// the mechanism used by AcpiIngest and AmlHost to dereference arbitrary
// physical addresses (ACPI tables, MMIO windows, APIC registers) as typed
// Go values.
package acpimapper

import (
	"nocciolo/kernel"
	"nocciolo/kernel/mm"
	"nocciolo/kernel/mm/pagenum"
	"nocciolo/kernel/mm/vmm"
	"unsafe"
)

// PhysicalMapping describes an active mapping of a physical memory region
// into the kernel's virtual address space, typed as T.
//
// VirtualStart may be offset inside the first mapped page so that callers
// see the exact byte physical_start points to; MappedLength is always a
// multiple of 4096 and is always >= RegionLength + (physical_start mod
// 4096).
type PhysicalMapping[T any] struct {
	PhysicalStart uintptr
	VirtualStart  uintptr
	RegionLength  uintptr
	MappedLength  uintptr
}

// Value returns a pointer to the mapped region's contents, typed as T.
func (m *PhysicalMapping[T]) Value() *T {
	return (*T)(unsafe.Pointer(m.VirtualStart))
}

// pageMapper is the subset of vmm.Mapper this package drives, kept as an
// interface so tests can record the page installs instead of editing live
// page tables.
type pageMapper interface {
	Map(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, fa vmm.FrameAllocator) *kernel.Error
	Unmap(page mm.Page) (mm.Frame, *kernel.Error)
}

// Mapper maps physical memory regions on demand by combining a vmm.Mapper
// (for the page table edits) and a pagenum.Allocator (for reserving virtual
// address space). The region's physical frames are referenced as they are,
// not newly allocated; a frame allocator is only used for any intermediate
// page tables a mapping needs.
type Mapper struct {
	mapper pageMapper
	pages  *pagenum.Allocator
}

// New creates an acpimapper.Mapper.
func New(mapper *vmm.Mapper, pages *pagenum.Allocator) *Mapper {
	return &Mapper{mapper: mapper, pages: pages}
}

// MapPhysicalRegion maps size bytes starting at the physical address phys
// and returns a PhysicalMapping[T] over it. Since Map is a free function
// (Go methods cannot carry their own type parameters) it takes the
// acpimapper.Mapper explicitly as its first argument. ACPI tables are
// ordinary cacheable memory; pass extraFlags = 0 for those. MMIO windows
// (Local APIC, IO APIC) must never be cached: pass
// vmm.FlagCacheDisableStrong.
func MapPhysicalRegion[T any](am *Mapper, phys uintptr, size uintptr, extraFlags vmm.PageTableEntryFlag) (*PhysicalMapping[T], *kernel.Error) {
	start := alignDown(phys, mm.PageSize)
	end := alignUp(phys+size, mm.PageSize)
	n := (end - start) / mm.PageSize

	virt := am.pages.AllocateN(n)

	for i := uintptr(0); i < n; i++ {
		page := mm.PageFromAddress(virt + i*mm.PageSize)
		frame := mm.FrameFromAddress(start + i*mm.PageSize)

		if err := am.mapper.Map(page, frame, vmm.FlagPresent|vmm.FlagRW|extraFlags, identityFrameAllocator{}); err != nil {
			return nil, err
		}
	}

	return &PhysicalMapping[T]{
		PhysicalStart: phys,
		VirtualStart:  virt + (phys % mm.PageSize),
		RegionLength:  size,
		MappedLength:  end - start,
	}, nil
}

// UnmapPhysicalRegion reverses a mapping produced by MapPhysicalRegion,
// unmapping and flushing exactly mappedLength/4096 pages starting at the
// page containing virtualStart.
func (am *Mapper) UnmapPhysicalRegion(virtualStart, mappedLength uintptr) *kernel.Error {
	start := alignDown(virtualStart, mm.PageSize)
	n := mappedLength / mm.PageSize

	for i := uintptr(0); i < n; i++ {
		page := mm.PageFromAddress(start + i*mm.PageSize)
		if _, err := am.mapper.Unmap(page); err != nil {
			return err
		}
	}

	return nil
}

// identityFrameAllocator satisfies vmm.Mapper.Map's FrameAllocator
// parameter. ACPI regions live at known, fixed physical addresses rather
// than being dynamically allocated, but Map always accepts an allocator in
// case an intermediate page table level still needs to be created; that
// allocator is the same process-wide singleton every other subsystem uses.
type identityFrameAllocator struct{}

func (identityFrameAllocator) Allocate() (mm.Frame, *kernel.Error) {
	return mm.AllocFrame()
}

func alignDown(addr, align uintptr) uintptr { return addr &^ (align - 1) }
func alignUp(addr, align uintptr) uintptr   { return (addr + align - 1) &^ (align - 1) }
