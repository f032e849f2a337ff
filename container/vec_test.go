package container

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-engine/errors"
)

func vecVariants(capacity int) map[string]*Vec[int] {
	return map[string]*Vec[int]{
		"dynamic": NewVec[int](capacity),
		"fixed":   NewFixedVec[int](capacity),
	}
}

func TestVecPushPop(t *testing.T) {
	for name, v := range vecVariants(4) {
		t.Run(name, func(t *testing.T) {
			if !v.IsEmpty() || v.Len() != 0 {
				t.Fatal("new vec should be empty")
			}
			for i := 0; i < 4; i++ {
				if err := v.Push(i * 10); err != nil {
					t.Fatalf("Push(%d): %v", i, err)
				}
			}
			if v.Len() != 4 || v.IsEmpty() {
				t.Fatalf("Len = %d", v.Len())
			}
			for i := 3; i >= 0; i-- {
				x, ok := v.Pop()
				if !ok || x != i*10 {
					t.Fatalf("Pop = %d,%v want %d", x, ok, i*10)
				}
			}
			if _, ok := v.Pop(); ok {
				t.Fatal("Pop on empty should fail")
			}
		})
	}
}

func TestVecCapacityFailureLeavesUnchanged(t *testing.T) {
	for name, v := range vecVariants(2) {
		t.Run(name, func(t *testing.T) {
			v.Push(1)
			v.Push(2)

			err := v.Push(3)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindCapacity {
				t.Fatalf("want capacity error, got %v", err)
			}
			if e.Requested != 3 || e.Available != 2 {
				t.Fatalf("wrong sizes: requested=%d available=%d", e.Requested, e.Available)
			}
			if v.Len() != 2 {
				t.Fatalf("failed push mutated length: %d", v.Len())
			}
			if x, _ := v.Get(1); x != 2 {
				t.Fatal("failed push mutated contents")
			}
		})
	}
}

func TestVecIsEmptyIffLenZero(t *testing.T) {
	for name, v := range vecVariants(3) {
		t.Run(name, func(t *testing.T) {
			states := []func(){
				func() { v.Push(1) },
				func() { v.Push(2) },
				func() { v.Pop() },
				func() { v.Pop() },
				func() { v.Push(3) },
				func() { v.Truncate(0) },
			}
			for i, mutate := range states {
				mutate()
				if v.IsEmpty() != (v.Len() == 0) {
					t.Fatalf("step %d: IsEmpty=%v Len=%d", i, v.IsEmpty(), v.Len())
				}
			}
		})
	}
}

func TestVecRemoveFirstShifts(t *testing.T) {
	for name, v := range vecVariants(4) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 3; i++ {
				v.Push(i)
			}
			x, ok := v.RemoveFirst()
			if !ok || x != 1 {
				t.Fatalf("RemoveFirst = %d,%v", x, ok)
			}
			if a, _ := v.Get(0); a != 2 {
				t.Fatal("elements not shifted")
			}
			if v.Len() != 2 {
				t.Fatalf("Len = %d", v.Len())
			}
		})
	}
}

func TestVecTruncate(t *testing.T) {
	v := NewFixedVec[int](8)
	for i := 0; i < 5; i++ {
		v.Push(i)
	}
	v.Truncate(2)
	if v.Len() != 2 {
		t.Fatalf("Len = %d", v.Len())
	}
	// Truncate never extends.
	v.Truncate(7)
	if v.Len() != 2 {
		t.Fatalf("Truncate extended to %d", v.Len())
	}
}

func TestVecIteratorRestartable(t *testing.T) {
	v := NewVec[int](4)
	v.Push(7)
	v.Push(8)
	v.Push(9)

	it := v.Iter()
	var first []int
	for x, ok := it.Next(); ok; x, ok = it.Next() {
		first = append(first, x)
	}
	if len(first) != 3 || first[0] != 7 || first[2] != 9 {
		t.Fatalf("first pass = %v", first)
	}
	if _, ok := it.Next(); ok {
		t.Fatal("exhausted iterator should stay exhausted")
	}

	it.Reset()
	x, ok := it.Next()
	if !ok || x != 7 {
		t.Fatalf("after Reset: %d,%v", x, ok)
	}
}

func TestFixedVecZeroesVacatedSlots(t *testing.T) {
	v := NewFixedVec[*int](2)
	n := 42
	v.Push(&n)
	v.Pop()
	v.s.Extend(1)
	if got := v.s.Buf()[0]; got != nil {
		t.Fatal("vacated slot still holds the old pointer")
	}
}
