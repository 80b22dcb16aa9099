// Package ramp provides a time-based smoother: a single scalar that
// eases from its current value to a target over a fixed wall-clock
// duration, advanced by a periodic background task independent of when
// new targets arrive.
package ramp

import (
	"context"
	"sync"
	"time"
)

const (
	defaultThreshold      = 0.1
	defaultUpdateInterval = time.Second / 60
)

// Controller holds the ramp state. SetTarget is called from the
// ingestion path and Run's ticker mutates the same state, so every
// read-modify-write happens under one mutex. The lock is never held
// across I/O.
type Controller struct {
	mu        sync.Mutex
	current   float64
	target    float64
	start     float64
	rampStart time.Time
	ramping   bool

	duration  time.Duration
	threshold float64
	interval  time.Duration

	now func() time.Time
}

// Option tweaks a Controller at construction.
type Option func(*Controller)

// WithThreshold overrides the minimum change required to restart a
// ramp. Changes below it are treated as noise and ignored.
func WithThreshold(t float64) Option {
	return func(c *Controller) { c.threshold = t }
}

// WithUpdateInterval overrides the background tick rate.
func WithUpdateInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithClock injects a virtual clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a Controller that ramps over the given duration.
func New(duration time.Duration, opts ...Option) *Controller {
	c := &Controller{
		duration:  duration,
		threshold: defaultThreshold,
		interval:  defaultUpdateInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTarget starts easing toward v. Requests within the noise threshold
// of the current target do not restart the ramp.
func (c *Controller) SetTarget(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if abs(v-c.target) <= c.threshold {
		return
	}

	c.start = c.current
	c.target = v
	c.rampStart = c.now()
	c.ramping = true
}

// Value returns the current eased value.
func (c *Controller) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Ramping reports whether a transition is in flight.
func (c *Controller) Ramping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ramping
}

// Run advances the ramp on a fixed tick until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.update()
		}
	}
}

// update moves current along the eased path; once the window has
// elapsed it snaps exactly to the target and clears the ramping flag.
func (c *Controller) update() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ramping {
		return
	}

	elapsed := c.now().Sub(c.rampStart)
	progress := float64(elapsed) / float64(c.duration)
	if progress >= 1 {
		c.current = c.target
		c.ramping = false
		return
	}
	if progress < 0 {
		progress = 0
	}

	c.current = c.start + (c.target-c.start)*easeInOut(progress)
}

// easeInOut is a symmetric ease-in-out curve: 2p^2 below the midpoint,
// 1-2(1-p)^2 above it. At p=0.5 both halves meet at 0.5.
func easeInOut(p float64) float64 {
	if p < 0.5 {
		return 2 * p * p
	}
	q := 1 - p
	return 1 - 2*q*q
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
