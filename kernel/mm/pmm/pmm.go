// Package pmm implements the physical frame allocator described by the
// kernel's memory subsystem: it hands out 4 KiB frames carved out of the
// Usable regions reported in the boot contract.
package pmm

import (
	"nocciolo/kernel"
	"nocciolo/kernel/boot"
	"nocciolo/kernel/mm"
)

// FrameAllocator hands out physical frames from the Usable regions of a
// boot.Contract. It never reclaims a frame once handed out: the kernel
// never needs to reuse early boot frames.
type FrameAllocator struct {
	regions []boot.MemoryRegion

	// next is the index, within the logical sequence of all 4 KiB-aligned
	// frames across every Usable region (in boot-map order), of the next
	// frame Allocate will hand out.
	next uint64
}

// NewFrameAllocator constructs a FrameAllocator over the Usable regions of
// contract. Only the region list is retained; the "iterator of usable
// frames" is reconstructed on every call to Allocate, matching the
// component's documented rationale of simplicity over throughput, since
// frames are only handed out during early boot and ACPI/PCI setup.
func NewFrameAllocator(contract *boot.Contract) *FrameAllocator {
	fa := &FrameAllocator{}
	contract.UsableRegions(func(r boot.MemoryRegion) bool {
		fa.regions = append(fa.regions, r)
		return true
	})
	return fa
}

// usableFrameAt walks every 4 KiB-aligned frame address across all Usable
// regions, in region order, and returns the address at logical position
// index, or false if index is beyond the last usable frame.
func (fa *FrameAllocator) usableFrameAt(index uint64) (uintptr, bool) {
	var seen uint64

	for _, r := range fa.regions {
		start := alignUp(r.Start, mm.PageSize)
		end := alignDown(r.End, mm.PageSize)
		if end <= start {
			continue
		}

		count := uint64(end-start) / uint64(mm.PageSize)
		if index < seen+count {
			offset := (index - seen) * uint64(mm.PageSize)
			return start + uintptr(offset), true
		}
		seen += count
	}

	return 0, false
}

// Allocate returns the next unused physical frame, or a kernel.Error if the
// usable memory map has been exhausted.
func (fa *FrameAllocator) Allocate() (mm.Frame, *kernel.Error) {
	addr, ok := fa.usableFrameAt(fa.next)
	if !ok {
		return mm.InvalidFrame, &kernel.Error{Module: "pmm", Message: "out of physical memory"}
	}

	fa.next++
	return mm.FrameFromAddress(addr), nil
}

// AllocateAt scans the usable frame sequence for the frame whose start
// equals align_down(phys, 4096) and returns it without advancing next. It
// claims a specific frame (e.g. the page backing an ACPI table) rather than
// the next free one.
func (fa *FrameAllocator) AllocateAt(phys uintptr) (mm.Frame, *kernel.Error) {
	want := alignDown(phys, mm.PageSize)

	for i := uint64(0); ; i++ {
		addr, ok := fa.usableFrameAt(i)
		if !ok {
			return mm.InvalidFrame, &kernel.Error{Module: "pmm", Message: "requested frame is not usable"}
		}
		if addr == want {
			return mm.FrameFromAddress(addr), nil
		}
	}
}

func alignDown(addr, align uintptr) uintptr {
	return addr &^ (align - 1)
}

func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}
