// Package task implements a cooperative, single-threaded task executor in
// the style of an async/await runtime, adapted to a kernel with no
// preemptive scheduler: a Task is a resumable function that runs until it
// either finishes or decides to yield control back to the executor, at
// which point it registers a Waker that some interrupt handler or other
// task will invoke once the event it is waiting for has occurred.
package task

import "nocciolo/kernel/cpu"

// Poll is the result of resuming a task: either it is done, or it parked
// itself waiting for an event and registered wake to be called when that
// event occurs.
type Poll uint8

const (
	// Pending means the task has not finished; it has arranged for wake
	// to be invoked when it should be polled again.
	Pending Poll = iota
	// Ready means the task has finished and should not be polled again.
	Ready
)

// Task is a single unit of cooperative work. Step is called repeatedly by
// the executor; each call it should make as much progress as it can
// without blocking, then either return Ready (it is finished) or register
// a Waker with whatever it is waiting on and return Pending.
type Task interface {
	Step() Poll
}

// TaskFunc adapts a plain step function into a Task for simple,
// state-machine-free cases.
type TaskFunc func() Poll

// Step implements Task.
func (f TaskFunc) Step() Poll { return f() }

// Waker lets an interrupt handler or another task notify the executor that
// a previously-parked task should be polled again. Waking a task that is
// already queued to run is a no-op.
type Waker struct {
	id   uint64
	wake func(uint64)
}

// Wake schedules the task this Waker was issued to for another Step call.
// Safe to call from interrupt context.
func (w Waker) Wake() {
	if w.wake != nil {
		w.wake(w.id)
	}
}

// Executor runs a FIFO queue of tasks to completion, cooperatively. It is
// meant to run on the boot CPU's idle path: once the queue is empty it
// halts with interrupts enabled, waiting for a device interrupt to wake a
// parked task back into the queue.
type Executor struct {
	tasks   map[uint64]Task
	nextID  uint64
	runQ    []uint64
	pending map[uint64]bool
}

// NewExecutor returns an empty Executor.
func NewExecutor() *Executor {
	return &Executor{
		tasks:   make(map[uint64]Task),
		pending: make(map[uint64]bool),
	}
}

// Spawn registers t with the executor and queues it to run on the next
// Run iteration.
func (e *Executor) Spawn(t Task) {
	id := e.nextID
	e.nextID++
	e.tasks[id] = t
	e.enqueue(id)
}

// enqueue is idempotent: waking an already-queued task does not duplicate
// its run-queue entry.
func (e *Executor) enqueue(id uint64) {
	if e.pending[id] {
		return
	}
	e.pending[id] = true
	e.runQ = append(e.runQ, id)
}

// newWaker builds the Waker handed to a task when it parks, bound to its
// task ID.
func (e *Executor) newWaker(id uint64) Waker {
	return Waker{id: id, wake: e.enqueue}
}

// WakerFor returns the Waker for the task currently identified by id. Used
// by tasks that need to hand their Waker to something outside the
// executor (e.g. an interrupt-driven byte stream) before their first Step
// call returns.
func (e *Executor) WakerFor(id uint64) Waker { return e.newWaker(id) }

// Run drives the executor until every spawned task has completed: each
// iteration steps every task currently in the run queue once, removing
// finished tasks, then halts the CPU (with interrupts enabled) if the run
// queue is empty but tasks remain live, waiting for an interrupt handler to
// wake one of them. Returns once no live tasks remain.
func (e *Executor) Run() {
	for len(e.tasks) > 0 {
		for len(e.runQ) > 0 {
			id := e.runQ[0]
			e.runQ = e.runQ[1:]
			delete(e.pending, id)

			t, ok := e.tasks[id]
			if !ok {
				continue
			}

			if t.Step() == Ready {
				delete(e.tasks, id)
			}
		}

		if len(e.tasks) > 0 {
			e.idle()
		}
	}
}

// idle halts the CPU until the next interrupt, which is the only thing
// that can enqueue more work once the run queue is empty. Interrupts are
// enabled right before HLT so no wakeup delivered between the empty-check
// and the halt is lost: cpu.Halt with IF=1 resumes immediately after
// servicing exactly one pending interrupt.
func (e *Executor) idle() {
	cpu.EnableInterrupts()
	cpu.Halt()
}
