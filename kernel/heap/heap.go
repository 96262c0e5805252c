// Package heap reserves the virtual address range backing the Go runtime's
// memory allocator. It mirrors the bump-allocator used by earlier
// generations of this kernel to carve out scratch mappings during early
// boot, before a general-purpose virtual memory manager is available: each
// reservation simply takes the next unused slice of a fixed descending
// range and never gives it back.
package heap

import (
	"nocciolo/kernel"
	"nocciolo/kernel/mm"
)

// regionCeiling is the address immediately above the heap's reserved range.
// It sits far above the upward-growing device mapping range handed out by
// pagenum.Allocator, so the two ranges can never collide regardless of how
// much either one ends up using.
const regionCeiling = uintptr(0x0000_7000_0000_0000)

var (
	lastUsed = regionCeiling

	errNoSpace = &kernel.Error{Module: "heap", Message: "remaining virtual address space not large enough to satisfy reservation request"}
)

// ReserveRegion reserves a page-aligned contiguous virtual memory region of
// the requested size and returns its starting virtual address. If size is
// not a multiple of mm.PageSize it is rounded up. The returned range is
// reserved, not mapped: callers must still establish page table entries for
// every page before touching the memory.
func ReserveRegion(size uintptr) (uintptr, *kernel.Error) {
	size = (size + (mm.PageSize - 1)) & ^(mm.PageSize - 1)

	if size > lastUsed {
		return 0, errNoSpace
	}

	lastUsed -= size
	return lastUsed, nil
}
