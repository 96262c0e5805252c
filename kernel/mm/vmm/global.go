package vmm

import (
	"nocciolo/kernel"
	"nocciolo/kernel/mm"
	"nocciolo/kernel/sync"
)

var (
	activeMapperLock sync.Spinlock
	activeMapper     *Mapper

	// globalFrameAllocator backs package-level Map/Unmap calls that don't
	// have a FrameAllocator handy (e.g. the Go runtime allocator hooks in
	// kernel/goruntime). It is the same instance registered via
	// mm.SetFrameAllocator.
	globalFrameAllocator globalFrameAllocatorFn
)

type globalFrameAllocatorFn struct{}

func (globalFrameAllocatorFn) Allocate() (mm.Frame, *kernel.Error) {
	return mm.AllocFrame()
}

// SetActiveMapper installs m as the process-wide Mapper singleton. It must
// be called once, early during boot, before any other package calls
// WithMapper, Map, Unmap or Translate.
func SetActiveMapper(m *Mapper) {
	activeMapperLock.Acquire()
	defer activeMapperLock.Release()
	activeMapper = m
}

// WithMapper invokes fn with the active Mapper singleton while holding its
// lock. Any lock also taken inside fn from interrupt context must be
// acquired via sync.WithoutInterrupts to avoid a re-entrant deadlock.
func WithMapper(fn func(*Mapper)) {
	activeMapperLock.Acquire()
	defer activeMapperLock.Release()
	fn(activeMapper)
}

// Map installs a mapping using the active Mapper singleton and the
// process-wide physical frame allocator.
func Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	var err *kernel.Error
	WithMapper(func(m *Mapper) {
		err = m.Map(page, frame, flags, globalFrameAllocator)
	})
	return err
}

// Unmap removes a mapping using the active Mapper singleton.
func Unmap(page mm.Page) (mm.Frame, *kernel.Error) {
	var (
		frame mm.Frame
		err   *kernel.Error
	)
	WithMapper(func(m *Mapper) {
		frame, err = m.Unmap(page)
	})
	return frame, err
}

// Translate resolves a virtual address using the active Mapper singleton.
func Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	var (
		phys uintptr
		err  *kernel.Error
	)
	WithMapper(func(m *Mapper) {
		phys, err = m.Translate(virtAddr)
	})
	return phys, err
}
