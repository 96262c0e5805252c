package sync

import "nocciolo/kernel/cpu"

// WithoutInterrupts runs fn with interrupts disabled on the local CPU and
// restores the previous interrupt state afterwards, regardless of whether
// fn panics. Any spinlock that is also acquired from an interrupt handler
// must be acquired everywhere else through this wrapper: without it, an
// interrupt arriving while the lock is held by non-interrupt code would
// spin forever trying to re-acquire the same lock from the interrupt
// handler that preempted it.
func WithoutInterrupts(fn func()) {
	enabled := cpu.InterruptsEnabled()
	cpu.DisableInterrupts()
	defer func() {
		if enabled {
			cpu.EnableInterrupts()
		}
	}()

	fn()
}
