package keyboard

import (
	"testing"

	"nocciolo/kernel/task"
)

func TestPollReturnsQueuedByteWithoutParking(t *testing.T) {
	s := NewScancodeStream()
	s.PushScancode(0x1E)

	b, poll := s.Poll(task.Waker{})
	if poll != task.Ready {
		t.Fatalf("expected Ready with a byte already queued; got %v", poll)
	}
	if b != 0x1E {
		t.Fatalf("expected scancode 0x1E; got %#x", b)
	}
}

func TestPollOrdersBytesFIFO(t *testing.T) {
	s := NewScancodeStream()
	s.PushScancode(1)
	s.PushScancode(2)
	s.PushScancode(3)

	for _, want := range []byte{1, 2, 3} {
		b, poll := s.Poll(task.Waker{})
		if poll != task.Ready {
			t.Fatalf("expected Ready; got %v", poll)
		}
		if b != want {
			t.Fatalf("expected %d; got %d", want, b)
		}
	}
}

func TestPollParksWhenEmptyAndWakesOnPush(t *testing.T) {
	s := NewScancodeStream()
	e := task.NewExecutor()

	var observed byte
	var done bool
	e.Spawn(task.TaskFunc(func() task.Poll {
		b, poll := s.Poll(e.WakerFor(0))
		if poll == task.Ready {
			observed = b
			done = true
			return task.Ready
		}
		return task.Pending
	}))

	// Runs right after the consumer parks in the same batch, playing the
	// keyboard interrupt handler: pushing here wakes the consumer's
	// already-registered waker and re-queues it within this Run call.
	e.Spawn(task.TaskFunc(func() task.Poll {
		s.PushScancode(0x9C)
		return task.Ready
	}))

	e.Run()

	if !done || observed != 0x9C {
		t.Fatalf("expected the parked task to observe 0x9C after push; got done=%v observed=%#x", done, observed)
	}
}

func TestPushScancodeDropsWhenQueueFull(t *testing.T) {
	s := NewScancodeStream()
	for i := 0; i < queueCapacity; i++ {
		s.PushScancode(byte(i))
	}
	s.PushScancode(0xFF) // queue is full: this byte must be dropped

	for i := 0; i < queueCapacity; i++ {
		b, poll := s.Poll(task.Waker{})
		if poll != task.Ready {
			t.Fatalf("expected %d queued bytes; ran out at index %d", queueCapacity, i)
		}
		if b != byte(i) {
			t.Fatalf("expected FIFO order to survive the dropped overflow byte; at %d got %d want %d", i, b, i)
		}
	}

	if _, poll := s.Poll(task.Waker{}); poll != task.Pending {
		t.Fatal("expected the queue to be empty after draining exactly queueCapacity bytes")
	}
}
