package pagenum

import (
	"nocciolo/kernel/mm"
	"testing"
)

func TestAllocateN(t *testing.T) {
	a := New()

	first := a.AllocateN(1)
	if first != base {
		t.Fatalf("expected first allocation to start at %x; got %x", base, first)
	}

	second := a.AllocateN(3)
	if exp := base + mm.PageSize; second != exp {
		t.Fatalf("expected second allocation to start at %x; got %x", exp, second)
	}

	third := a.AllocateN(1)
	if exp := base + 4*mm.PageSize; third != exp {
		t.Fatalf("expected third allocation to start at %x; got %x", exp, third)
	}
}

func TestAllocateNClampsToOne(t *testing.T) {
	a := New()
	first := a.AllocateN(0)
	second := a.AllocateN(1)
	if second-first != mm.PageSize {
		t.Fatalf("expected AllocateN(0) to behave like AllocateN(1)")
	}
}
