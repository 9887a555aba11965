package action

import (
	"context"
	"testing"
	"time"
)

func TestSequenceOfZeroDurationCallbacksDrainsInOneUpdate(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 16} {
		for _, dt := range []time.Duration{0, frameDT, time.Second} {
			ctx, d, _ := newTestDriver(t)
			calls := 0
			seq := ctx.Sequence()
			for i := 0; i < n; i++ {
				seq.Call(func() { calls++ })
			}
			c := mustStart(t, d, seq, nil)

			d.Tick(dt)

			if !c.IsFinished() {
				t.Errorf("n=%d dt=%v: sequence not finished after one update", n, dt)
			}
			if calls != n {
				t.Errorf("n=%d dt=%v: calls = %d, want %d", n, dt, calls, n)
			}
		}
	}
}

func TestSequenceDelayThenCallback(t *testing.T) {
	ctx, d, _ := newTestDriver(t)
	fired := 0
	firedOn := 0
	delay := ctx.Delay(time.Second, nil)
	tick := 0
	seq := ctx.Sequence(delay, ctx.Callback(func() {
		fired++
		firedOn = tick
	}))
	c := mustStart(t, d, seq, nil)

	var total time.Duration
	for _, dt := range []time.Duration{400 * time.Millisecond, 400 * time.Millisecond, 300 * time.Millisecond} {
		tick++
		total += dt
		d.Advance(dt)
		if tick == 3 && delay.Elapsed() < time.Second {
			t.Fatalf("delay elapsed = %v at callback time, want >= 1s", delay.Elapsed())
		}
		d.Flush()
	}

	if fired != 1 {
		t.Fatalf("callback fired %d times, want 1", fired)
	}
	if firedOn != 3 {
		t.Fatalf("callback fired on update %d, want 3", firedOn)
	}
	if total < time.Second {
		t.Fatalf("cumulative dt = %v", total)
	}
	if !c.IsFinished() {
		t.Fatal("sequence should be finished")
	}
}

func TestRaceTwoDelays(t *testing.T) {
	ctx, d, _ := newTestDriver(t)
	slowDone := false
	fastDone := false
	slow := ctx.Delay(2*time.Second, func() { slowDone = true })
	fast := ctx.Delay(time.Second, func() { fastDone = true })
	race := ctx.Race(slow, fast)
	c := mustStart(t, d, race, nil)

	d.Tick(time.Second)
	if c.IsFinished() {
		t.Fatal("race finished after the first tick")
	}

	d.Advance(time.Second)
	if !c.IsFinished() {
		t.Fatal("race not finished after the second tick")
	}
	if !slow.TornDown() {
		t.Fatal("losing delay was not torn down in the finishing tick")
	}
	d.Flush()

	if slowDone {
		t.Fatal("losing delay reached its completion callback")
	}
	if !fastDone {
		t.Fatal("winning delay did not run its completion callback")
	}
}

func TestStoppedBridgeIgnoresLateCompletion(t *testing.T) {
	ctx, d, _ := newTestDriver(t)
	gate := make(chan struct{})
	returned := make(chan struct{})
	cancelled := make(chan struct{})

	doneCalls := 0
	finishCalls := 0
	task := ctx.Task(func(c context.Context) error {
		defer close(returned)
		select {
		case <-c.Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
		<-gate
		return nil
	}, func(error) { doneCalls++ })
	c := mustStart(t, d, task, func() { finishCalls++ })

	d.Tick(frameDT)
	if c.IsFinished() {
		t.Fatal("task finished before it was released")
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("task context was not cancelled by teardown")
	}
	close(gate)
	<-returned

	for i := 0; i < 5; i++ {
		d.Tick(frameDT)
		time.Sleep(time.Millisecond)
	}
	if doneCalls != 0 || finishCalls != 0 {
		t.Fatalf("finish path ran after cancel: done=%d finish=%d", doneCalls, finishCalls)
	}
	if err := c.Pause(); err != ErrStale {
		t.Fatalf("Pause on stopped controller = %v, want ErrStale", err)
	}
	if err := c.Stop(); err != ErrStale {
		t.Fatalf("second Stop = %v, want ErrStale", err)
	}
}
