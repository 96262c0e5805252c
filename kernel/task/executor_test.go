package task

import "testing"

// countingTask completes after n Step calls.
type countingTask struct {
	remaining int
	steps     int
}

func (c *countingTask) Step() Poll {
	c.steps++
	c.remaining--
	if c.remaining <= 0 {
		return Ready
	}
	return Pending
}

func TestExecutorRunDrainsToCompletion(t *testing.T) {
	e := NewExecutor()
	a := &countingTask{remaining: 1}
	b := &countingTask{remaining: 1}

	e.Spawn(a)
	e.Spawn(b)

	e.Run()

	if a.steps != 1 || b.steps != 1 {
		t.Fatalf("expected both tasks stepped once; got a=%d b=%d", a.steps, b.steps)
	}
	if len(e.tasks) != 0 {
		t.Fatalf("expected no live tasks after Run; got %d", len(e.tasks))
	}
}

func TestExecutorRunReturnsImmediatelyWithNoTasks(t *testing.T) {
	e := NewExecutor()
	e.Run() // must not hang: no tasks, no idle halt
}

// parkingTask parks itself via a Waker the first time it is stepped, and
// only reports Ready once that waker has fired.
type parkingTask struct {
	woken  bool
	waker  func() Waker
	waited Waker
	armed  bool
}

func (p *parkingTask) Step() Poll {
	if p.woken {
		return Ready
	}
	if !p.armed {
		p.waited = p.waker()
		p.armed = true
	}
	return Pending
}

// stepOne pops and steps exactly one runnable task, mirroring the inner
// loop body of Run without its outer idle-halt.
func stepOne(e *Executor) {
	id := e.runQ[0]
	e.runQ = e.runQ[1:]
	delete(e.pending, id)

	t, ok := e.tasks[id]
	if !ok {
		return
	}
	if t.Step() == Ready {
		delete(e.tasks, id)
	}
}

func TestExecutorWakerReQueuesParkedTask(t *testing.T) {
	e := NewExecutor()

	var id uint64
	pt := &parkingTask{}
	pt.waker = func() Waker { return e.WakerFor(id) }

	id = e.nextID
	e.Spawn(pt)

	// First step: the task parks and registers its waker instead of
	// reporting Ready.
	stepOne(e)
	if !pt.armed {
		t.Fatal("expected task to have armed its waker after one step")
	}
	if len(e.tasks) != 1 {
		t.Fatalf("expected parked task to remain live; got %d", len(e.tasks))
	}

	pt.woken = true
	pt.waited.Wake()

	if len(e.runQ) != 1 {
		t.Fatalf("expected waking a parked task to re-queue it; runQ=%v", e.runQ)
	}

	stepOne(e)
	if len(e.tasks) != 0 {
		t.Fatalf("expected task to be removed once it reports Ready; got %d live", len(e.tasks))
	}
}

func TestWakerWakeIsNoOpWithoutCallback(t *testing.T) {
	var w Waker
	w.Wake() // must not panic when wake is nil
}

func TestEnqueueIsIdempotent(t *testing.T) {
	e := NewExecutor()
	e.Spawn(TaskFunc(func() Poll { return Pending }))

	before := len(e.runQ)
	e.enqueue(0)
	if len(e.runQ) != before {
		t.Fatalf("expected re-enqueueing an already-queued task to be a no-op; runQ grew to %v", e.runQ)
	}
}
