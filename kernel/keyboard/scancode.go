// Package keyboard bridges PS/2 scancode bytes delivered in interrupt
// context to a cooperative consumer task, through a small lock-free ring
// buffer and a single waker slot.
package keyboard

import (
	"sync/atomic"

	"nocciolo/kernel/task"
)

// queueCapacity bounds the scancode backlog the kernel is willing to carry
// between interrupt delivery and the consumer task actually running. A
// slow consumer drops scancodes past this point rather than growing
// unboundedly or blocking the interrupt handler.
const queueCapacity = 100

// ScancodeStream is a single-producer (the keyboard interrupt handler),
// single-consumer (one task) byte queue. It implements idt.KeyboardScancodeSink
// so it can be wired directly as the keyboard interrupt's sink.
type ScancodeStream struct {
	buf        [queueCapacity]byte
	head, tail uint32 // indices mod queueCapacity; producer owns tail, consumer owns head
	count      int32  // atomic: number of queued bytes

	waker     atomic.Value // holds task.Waker, set by the consumer before parking
	hasWaker  int32        // atomic: 1 once waker holds a valid value
}

// NewScancodeStream returns an empty ScancodeStream.
func NewScancodeStream() *ScancodeStream { return &ScancodeStream{} }

// PushScancode enqueues b. Called from interrupt context: it never blocks
// and silently drops the byte if the queue is full, since a kernel with no
// flow control back to the PS/2 controller has no way to apply backpressure
// anyway.
func (s *ScancodeStream) PushScancode(b byte) {
	if atomic.LoadInt32(&s.count) >= queueCapacity {
		return
	}

	s.buf[s.tail] = b
	s.tail = (s.tail + 1) % queueCapacity
	atomic.AddInt32(&s.count, 1)

	if atomic.CompareAndSwapInt32(&s.hasWaker, 1, 0) {
		w := s.waker.Load().(task.Waker)
		w.Wake()
	}
}

// Poll implements the scan-queue consumer protocol: fast path first (try
// to pop immediately), and only register a waker and return task.Pending
// if the queue was empty, then re-check once more in case a scancode
// arrived between the empty check and the waker registration.
func (s *ScancodeStream) Poll(w task.Waker) (byte, task.Poll) {
	if b, ok := s.tryPop(); ok {
		return b, task.Ready
	}

	s.waker.Store(w)
	atomic.StoreInt32(&s.hasWaker, 1)

	if b, ok := s.tryPop(); ok {
		// A scancode arrived between the empty check and registering the
		// waker; consume it directly and clear the registration, since no
		// wakeup for it will otherwise occur.
		atomic.StoreInt32(&s.hasWaker, 0)
		return b, task.Ready
	}

	return 0, task.Pending
}

func (s *ScancodeStream) tryPop() (byte, bool) {
	if atomic.LoadInt32(&s.count) == 0 {
		return 0, false
	}

	b := s.buf[s.head]
	s.head = (s.head + 1) % queueCapacity
	atomic.AddInt32(&s.count, -1)
	return b, true
}
