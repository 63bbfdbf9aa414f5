package growable

import (
	"errors"
	"testing"
)

func TestGrowCapacity(t *testing.T) {
	tests := []struct {
		old  int
		want int
	}{
		{0, 8},
		{1, 8},
		{7, 8},
		{8, 16},
		{16, 32},
		{1024, 2048},
	}

	for _, tc := range tests {
		if got := GrowCapacity(tc.old); got != tc.want {
			t.Errorf("GrowCapacity(%d) = %d, want %d", tc.old, got, tc.want)
		}
	}
}

func TestArrayZeroValue(t *testing.T) {
	var a Array[int]

	if a.Len() != 0 || a.Cap() != 0 {
		t.Fatalf("zero Array: Len=%d Cap=%d, want 0/0", a.Len(), a.Cap())
	}
	if err := a.Append(42); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if a.At(0) != 42 {
		t.Errorf("At(0) = %d, want 42", a.At(0))
	}
	if a.Cap() != 8 {
		t.Errorf("Cap() = %d, want 8", a.Cap())
	}
}

func TestArrayAppendPreservesOrder(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 9, 100, 1000} {
		a := New[int]()
		prevCap := 0
		for i := 0; i < n; i++ {
			if err := a.Append(i * 3); err != nil {
				t.Fatalf("n=%d: Append(%d): %v", n, i, err)
			}
			if a.Cap() < prevCap {
				t.Fatalf("n=%d: capacity shrank from %d to %d", n, prevCap, a.Cap())
			}
			prevCap = a.Cap()
		}

		if a.Len() != n {
			t.Errorf("n=%d: Len() = %d", n, a.Len())
		}
		for i := 0; i < n; i++ {
			if a.At(i) != i*3 {
				t.Fatalf("n=%d: At(%d) = %d, want %d", n, i, a.At(i), i*3)
			}
		}
		items := a.Items()
		if len(items) != n {
			t.Errorf("n=%d: len(Items()) = %d", n, len(items))
		}
	}
}

func TestArrayGrowthSequence(t *testing.T) {
	a := New[byte]()
	var caps []int
	for i := 0; i < 40; i++ {
		_ = a.Append(byte(i))
		if len(caps) == 0 || caps[len(caps)-1] != a.Cap() {
			caps = append(caps, a.Cap())
		}
	}

	want := []int{8, 16, 32, 64}
	if len(caps) != len(want) {
		t.Fatalf("capacity steps = %v, want %v", caps, want)
	}
	for i := range want {
		if caps[i] != want[i] {
			t.Errorf("capacity step %d = %d, want %d", i, caps[i], want[i])
		}
	}
}

func TestArrayFree(t *testing.T) {
	a := New[string]()
	_ = a.Append("a")
	_ = a.Append("b")

	a.Free()

	if a.Len() != 0 {
		t.Errorf("Len() after Free = %d, want 0", a.Len())
	}
	if a.Cap() != 0 {
		t.Errorf("Cap() after Free = %d, want 0", a.Cap())
	}

	// Reusable after Free
	if err := a.Append("c"); err != nil {
		t.Fatalf("Append after Free: %v", err)
	}
	if a.At(0) != "c" {
		t.Errorf("At(0) = %q, want %q", a.At(0), "c")
	}
}

func TestArrayLimit(t *testing.T) {
	a := New[int](WithLimit(10))
	for i := 0; i < 10; i++ {
		if err := a.Append(i); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	if a.Cap() > 10 {
		t.Errorf("Cap() = %d, should not exceed limit 10", a.Cap())
	}

	err := a.Append(10)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Append past limit: err = %v, want ErrCapacityExceeded", err)
	}
	if a.Len() != 10 {
		t.Errorf("Len() after failed append = %d, want 10", a.Len())
	}
	if a.At(9) != 9 {
		t.Errorf("At(9) = %d, want 9", a.At(9))
	}
}

func TestArraySet(t *testing.T) {
	a := New[float64]()
	_ = a.Append(1.5)
	a.Set(0, 2.5)
	if a.At(0) != 2.5 {
		t.Errorf("At(0) = %v, want 2.5", a.At(0))
	}
}

func TestArrayAtOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("At past Len should panic")
		}
	}()
	a := New[int]()
	_ = a.Append(1)
	_ = a.At(1)
}
