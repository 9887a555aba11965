package event

import "testing"

func TestEventsAreReadableNextTick(t *testing.T) {
	b := NewBus()
	var got []uint64
	Subscribe(b, func(e UnitFinished) { got = append(got, e.ID) })

	Emit(b, UnitFinished{ID: 1})
	Emit(b, UnitFinished{ID: 2})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("events delivered before swap: %v", got)
	}
	if b.Pending() != 2 {
		t.Fatalf("Pending = %d", b.Pending())
	}

	b.SwapBuffers()
	Emit(b, UnitFinished{ID: 3})
	b.DispatchAll()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
}

func TestDispatchOrderFollowsFirstEmit(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(UnitStarted) { order = append(order, "started") })
	Subscribe(b, func(UnitFinished) { order = append(order, "finished") })
	Subscribe(b, func(ControllerFinished) { order = append(order, "controller") })

	for i := 0; i < 20; i++ {
		order = order[:0]
		Emit(b, UnitStarted{})
		Emit(b, ControllerFinished{})
		Emit(b, UnitFinished{})
		b.SwapBuffers()
		b.DispatchAll()
		// queues are created by Subscribe, in registration order
		want := []string{"started", "finished", "controller"}
		for j := range want {
			if order[j] != want[j] {
				t.Fatalf("round %d: order = %v, want %v", i, order, want)
			}
		}
	}
}
