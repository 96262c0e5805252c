package heap

import "testing"

func TestReserveRegion(t *testing.T) {
	defer func(orig uintptr) { lastUsed = orig }(lastUsed)

	lastUsed = 4096
	next, err := ReserveRegion(42)
	if err != nil {
		t.Fatal(err)
	}
	if exp := uintptr(0); next != exp {
		t.Fatalf("expected reservation request to be rounded to the nearest page; got %x", next)
	}

	if _, err := ReserveRegion(1); err != errNoSpace {
		t.Fatalf("expected errNoSpace; got %v", err)
	}
}

func TestReserveRegionDescends(t *testing.T) {
	defer func(orig uintptr) { lastUsed = orig }(lastUsed)

	lastUsed = regionCeiling

	first, err := ReserveRegion(8192)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ReserveRegion(4096)
	if err != nil {
		t.Fatal(err)
	}

	if second >= first {
		t.Fatalf("expected successive reservations to descend; first=%x second=%x", first, second)
	}
	if exp := first - 4096; second != exp {
		t.Fatalf("expected second reservation to immediately precede the first; got %x want %x", second, exp)
	}
}
