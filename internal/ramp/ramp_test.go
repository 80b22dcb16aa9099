package ramp

import (
	"context"
	"testing"
	"time"
)

// fakeClock lets tests drive ramp time deterministically.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestController_EasedPath(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := New(2*time.Second, WithClock(clock.now))

	c.SetTarget(5.0)
	if !c.Ramping() {
		t.Fatalf("Ramping() = false, want true after SetTarget")
	}

	// t=0: still at the start value.
	c.update()
	if got := c.Value(); got != 0.0 {
		t.Errorf("Value() at t=0 = %v, want 0.0", got)
	}

	// t=duration/2: ease-in-out midpoint, exactly halfway.
	clock.advance(time.Second)
	c.update()
	if got := c.Value(); got != 2.5 {
		t.Errorf("Value() at t=duration/2 = %v, want 2.5", got)
	}

	// t=duration: snapped exactly to the target, ramp cleared.
	clock.advance(time.Second)
	c.update()
	if got := c.Value(); got != 5.0 {
		t.Errorf("Value() at t=duration = %v, want exactly 5.0", got)
	}
	if c.Ramping() {
		t.Errorf("Ramping() = true, want false after completion")
	}
}

func TestController_QuarterPointEasesIn(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := New(4*time.Second, WithClock(clock.now))

	c.SetTarget(8.0)
	clock.advance(time.Second) // p=0.25, eased = 2*0.0625 = 0.125
	c.update()

	if got, want := c.Value(), 1.0; got != want {
		t.Errorf("Value() at p=0.25 = %v, want %v (eased below linear 2.0)", got, want)
	}
}

func TestSetTarget_NoiseThresholdDoesNotRestart(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := New(2*time.Second, WithClock(clock.now))

	c.SetTarget(5.0)

	clock.advance(time.Second)
	c.update()
	if got := c.Value(); got != 2.5 {
		t.Fatalf("Value() at midpoint = %v, want 2.5", got)
	}

	// Within the 0.1 threshold: must not reset the ramp start or retarget.
	c.SetTarget(5.05)

	c.update()
	if got := c.Value(); got != 2.5 {
		t.Errorf("Value() after noisy SetTarget = %v, want unchanged 2.5", got)
	}

	clock.advance(time.Second)
	c.update()
	if got := c.Value(); got != 5.0 {
		t.Errorf("Value() at original deadline = %v, want 5.0 (ramp not restarted)", got)
	}
}

func TestSetTarget_RetargetMidRampStartsFromCurrent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := New(2*time.Second, WithClock(clock.now))

	c.SetTarget(4.0)
	clock.advance(time.Second)
	c.update() // midpoint: 2.0

	c.SetTarget(0.0)
	clock.advance(2 * time.Second)
	c.update()

	if got := c.Value(); got != 0.0 {
		t.Errorf("Value() after retarget = %v, want 0.0", got)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := New(100*time.Millisecond, WithUpdateInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	c.SetTarget(1.0)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not stop within bounded wait")
	}
}
