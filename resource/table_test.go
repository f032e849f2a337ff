package resource

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/wasm-engine/errors"
)

const (
	fileType   = 1
	socketType = 2
)

func backends(cap int) map[string]Backend {
	return map[string]Backend{
		"counter": NewCounterBackend(cap),
		"slot":    NewSlotBackend(cap),
	}
}

func TestAllocateGetRemove(t *testing.T) {
	// allocate 8 -> r; get(r) -> 8; remove(r); get(r) -> not found.
	for name, b := range backends(16) {
		t.Run(name, func(t *testing.T) {
			table := NewTable(b)

			r, err := table.Allocate(fileType, 0, 8)
			if err != nil {
				t.Fatalf("Allocate: %v", err)
			}
			if r == 0 {
				t.Fatal("handle 0 is reserved")
			}

			v, err := table.Get(r, fileType)
			if err != nil || v.(int) != 8 {
				t.Fatalf("Get = %v, %v", v, err)
			}

			if _, err := table.Remove(r); err != nil {
				t.Fatalf("Remove: %v", err)
			}

			_, err = table.Get(r, fileType)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound {
				t.Fatalf("get after remove: want not found, got %v", err)
			}
		})
	}
}

func TestTypeMismatchDistinctFromAbsence(t *testing.T) {
	for name, b := range backends(16) {
		t.Run(name, func(t *testing.T) {
			table := NewTable(b)
			h, _ := table.Allocate(fileType, 0, "f")

			_, err := table.Get(h, socketType)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
				t.Fatalf("wrong tag: want type mismatch, got %v", err)
			}

			table.Remove(h)
			_, err = table.Get(h, socketType)
			if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound {
				t.Fatalf("removed handle: want not found, got %v", err)
			}
		})
	}
}

func TestCounterHandlesNeverReused(t *testing.T) {
	table := NewTable(NewCounterBackend(16))

	h1, _ := table.Allocate(fileType, 0, "a")
	table.Remove(h1)
	h2, _ := table.Allocate(fileType, 0, "b")
	if h2 == h1 {
		t.Fatal("counter backend reused a handle")
	}
	if _, err := table.Get(h1, fileType); err == nil {
		t.Fatal("stale handle resolved")
	}
}

func TestSlotStaleGeneration(t *testing.T) {
	table := NewTable(NewSlotBackend(1))

	h1, _ := table.Allocate(fileType, 0, "a")
	table.Remove(h1)

	// Capacity 1 forces the same slot to be reused, with a new type.
	h2, err := table.Allocate(socketType, 0, "b")
	if err != nil {
		t.Fatalf("Allocate into recycled slot: %v", err)
	}
	if h2 == h1 {
		t.Fatal("recycled slot kept its generation")
	}

	// The stale handle must read as absent, not as the socket.
	_, err = table.Get(h1, fileType)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindNotFound {
		t.Fatalf("stale handle: want not found, got %v", err)
	}
	if v, err := table.Get(h2, socketType); err != nil || v.(string) != "b" {
		t.Fatalf("live handle: %v, %v", v, err)
	}
}

func TestCapacityExhaustion(t *testing.T) {
	for name, b := range backends(2) {
		t.Run(name, func(t *testing.T) {
			table := NewTable(b)
			table.Allocate(fileType, 0, 1)
			table.Allocate(fileType, 0, 2)

			_, err := table.Allocate(fileType, 0, 3)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindLimitExceeded {
				t.Fatalf("want limit exceeded, got %v", err)
			}
			if table.Len() != 2 {
				t.Fatalf("failed allocate changed Len to %d", table.Len())
			}
		})
	}
}

func TestTransferOwnership(t *testing.T) {
	for name, b := range backends(4) {
		t.Run(name, func(t *testing.T) {
			table := NewTable(b)
			h, _ := table.Allocate(fileType, 1, "f")

			if err := table.TransferOwnership(h, 2); err != nil {
				t.Fatalf("TransferOwnership: %v", err)
			}
			owner, err := table.Owner(h)
			if err != nil || owner != 2 {
				t.Fatalf("Owner = %d, %v", owner, err)
			}
			// The value and handle survive the transfer.
			if v, err := table.Get(h, fileType); err != nil || v.(string) != "f" {
				t.Fatalf("Get after transfer: %v, %v", v, err)
			}

			if err := table.TransferOwnership(999, 2); err == nil {
				t.Fatal("transfer of unknown handle should fail")
			}
		})
	}
}

func TestRestoreRollsBackRemove(t *testing.T) {
	for name, b := range backends(4) {
		t.Run(name, func(t *testing.T) {
			table := NewTable(b)
			h, _ := table.Allocate(fileType, 1, 42)
			e, _ := table.Entry(h)

			table.Remove(h)
			if err := table.Restore(h, e); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			v, err := table.Get(h, fileType)
			if err != nil || v.(int) != 42 {
				t.Fatalf("Get after restore: %v, %v", v, err)
			}
		})
	}
}

func TestRestoreFailsAfterSlotReuse(t *testing.T) {
	table := NewTable(NewSlotBackend(1))
	h, _ := table.Allocate(fileType, 0, "a")
	e, _ := table.Entry(h)
	table.Remove(h)

	h2, _ := table.Allocate(socketType, 0, "b")
	table.Remove(h2)

	// The slot has moved two generations past h; restoring would alias.
	if err := table.Restore(h, e); err == nil {
		t.Fatal("restore after reuse should fail")
	}
}

func TestEachDeterministicOrder(t *testing.T) {
	for name, b := range backends(8) {
		t.Run(name, func(t *testing.T) {
			table := NewTable(b)
			var want []Handle
			for i := 0; i < 5; i++ {
				h, _ := table.Allocate(fileType, 0, i)
				want = append(want, h)
			}

			for run := 0; run < 3; run++ {
				var got []Handle
				table.Each(func(h Handle, _ Entry) bool {
					got = append(got, h)
					return true
				})
				if len(got) != len(want) {
					t.Fatalf("visited %d entries, want %d", len(got), len(want))
				}
				for i := range want {
					if got[i] != want[i] {
						t.Fatalf("run %d: order %v, want %v", run, got, want)
					}
				}
			}
		})
	}
}

type dropRecorder struct {
	mu      sync.Mutex
	dropped int
}

func (d *dropRecorder) Drop() {
	d.mu.Lock()
	d.dropped++
	d.mu.Unlock()
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) OnResourceEvent(ev Event) {
	r.events = append(r.events, ev)
}

func TestClearDropsAndInvalidates(t *testing.T) {
	for name, b := range backends(8) {
		t.Run(name, func(t *testing.T) {
			table := NewTable(b)
			d := &dropRecorder{}
			h1, _ := table.Allocate(fileType, 0, d)
			h2, _ := table.Allocate(fileType, 0, d)

			table.Clear()
			if d.dropped != 2 {
				t.Fatalf("dropped %d values, want 2", d.dropped)
			}
			if !table.IsEmpty() {
				t.Fatal("table not empty after Clear")
			}
			for _, h := range []Handle{h1, h2} {
				if _, err := table.Get(h, fileType); err == nil {
					t.Fatal("handle survived Clear")
				}
			}
		})
	}
}

func TestObserverEvents(t *testing.T) {
	table := NewTable(NewCounterBackend(8))
	rec := &eventRecorder{}
	table.Subscribe(rec)

	h, _ := table.Allocate(fileType, 1, "f")
	table.TransferOwnership(h, 2)
	table.Remove(h)

	if len(rec.events) != 3 {
		t.Fatalf("got %d events, want 3", len(rec.events))
	}
	want := []EventType{EventCreated, EventTransferred, EventRemoved}
	for i, typ := range want {
		if rec.events[i].Type != typ {
			t.Fatalf("event %d type = %d, want %d", i, rec.events[i].Type, typ)
		}
		if rec.events[i].Handle != h {
			t.Fatalf("event %d handle = %d, want %d", i, rec.events[i].Handle, h)
		}
	}
	if rec.events[1].Owner != 2 {
		t.Fatalf("transfer event owner = %d", rec.events[1].Owner)
	}
}

func TestGenericGet(t *testing.T) {
	table := NewTable(NewCounterBackend(8))
	h, _ := table.Allocate(fileType, 0, "hello")

	s, err := Get[string](table, h, fileType)
	if err != nil || s != "hello" {
		t.Fatalf("Get[string] = %q, %v", s, err)
	}

	_, err = Get[int](table, h, fileType)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Fatalf("Get[int]: want type mismatch, got %v", err)
	}
}

func TestSharedConcurrentAllocate(t *testing.T) {
	shared := NewShared(NewTable(NewCounterBackend(1024)))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(owner uint32) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h, err := shared.Allocate(fileType, owner, i)
				if err != nil {
					t.Errorf("Allocate: %v", err)
					return
				}
				if _, err := shared.Get(h, fileType); err != nil {
					t.Errorf("Get: %v", err)
					return
				}
			}
		}(uint32(g))
	}
	wg.Wait()

	if shared.Len() != 800 {
		t.Fatalf("Len = %d, want 800", shared.Len())
	}
}

func TestResetInvalidatesAcrossBackends(t *testing.T) {
	for name, b := range backends(4) {
		t.Run(name, func(t *testing.T) {
			table := NewTable(b)
			h, _ := table.Allocate(fileType, 0, "x")
			b.Reset()

			if _, err := table.Get(h, fileType); err == nil {
				t.Fatal("handle survived reset")
			}
			// The freed capacity is usable again.
			if _, err := table.Allocate(fileType, 0, "y"); err != nil {
				t.Fatalf("allocate after reset: %v", err)
			}
		})
	}
}
