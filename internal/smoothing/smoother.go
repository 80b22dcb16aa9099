// Package smoothing turns sparse, noisy wind samples into a dense,
// bounded control signal. Samples are averaged over a small buffer to
// form a target, and the emitted value eases from wherever it currently
// sits toward that target one interpolation step per read.
package smoothing

import (
	"fmt"
	"math"
)

// Kind selects both how buffered samples collapse into a target and
// which curve shapes the transition toward it.
type Kind string

const (
	Linear      Kind = "linear"
	Exponential Kind = "exponential"
	Gaussian    Kind = "gaussian"
)

// ParseKind validates a smoothing type name from configuration.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Linear, Exponential, Gaussian:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("invalid smoothing type %q (allowed: linear, exponential, gaussian)", s)
	}
}

// Params are the tunable knobs of a Smoother. Larger buffers and more
// steps trade responsiveness for smoothness.
type Params struct {
	BufferSize         int
	InterpolationSteps int
	// ResponseSpeed stretches the interpolation window; clamped to [0.1, 1.0].
	ResponseSpeed float64
}

func (p Params) validate() error {
	if p.BufferSize < 1 {
		return fmt.Errorf("buffer size must be >= 1, got %d", p.BufferSize)
	}
	if p.InterpolationSteps < 1 {
		return fmt.Errorf("interpolation steps must be >= 1, got %d", p.InterpolationSteps)
	}
	return nil
}

// Smoother holds a bounded history of raw wind samples and produces an
// interpolated, range-normalized scalar on demand. It does no I/O and
// is not safe for concurrent use; callers serialize access.
type Smoother struct {
	params     Params
	kind       Kind
	maxWindMPH float64

	buf         []float64
	lastValue   float64
	targetValue float64
	currentStep int
}

// New creates a Smoother. maxWindMPH is the normalization ceiling and
// must be strictly positive.
func New(maxWindMPH float64, kind Kind, params Params) (*Smoother, error) {
	if maxWindMPH <= 0 {
		return nil, fmt.Errorf("max wind must be positive, got %v", maxWindMPH)
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	s := &Smoother{
		kind:       kind,
		maxWindMPH: maxWindMPH,
		buf:        make([]float64, 0, params.BufferSize),
	}
	s.applyParams(params)
	return s, nil
}

// AddReading folds a raw sample into the buffer and recomputes the
// interpolation target. The transition restarts from the value the
// signal currently sits at, so a new sample never causes a jump.
func (s *Smoother) AddReading(sample float64) {
	sample = clamp(sample, 0, s.maxWindMPH)

	// Capture where the signal sits before the target moves: once the
	// previous transition has settled, valueAt() tracks the target, so
	// reading it afterwards would collapse the restart into a jump.
	prev := s.valueAt()

	if len(s.buf) == s.params.BufferSize {
		copy(s.buf, s.buf[1:])
		s.buf[len(s.buf)-1] = sample
	} else {
		s.buf = append(s.buf, sample)
	}

	switch s.kind {
	case Gaussian:
		s.targetValue = gaussianMean(s.buf)
	case Exponential:
		// EMA folding the new sample into the running target.
		alpha := 2.0 / (float64(len(s.buf)) + 1.0)
		s.targetValue = alpha*sample + (1.0-alpha)*s.targetValue
	default:
		s.targetValue = mean(s.buf)
	}

	s.lastValue = prev
	s.currentStep = 0
}

// SmoothedValue returns the current interpolated value and advances the
// transition by one step. Calling it at a constant cadence yields a
// constant-rate output stream; this is the only place step advancement
// happens.
func (s *Smoother) SmoothedValue() float64 {
	v := s.valueAt()
	if s.currentStep < s.params.InterpolationSteps {
		s.currentStep++
	}
	return v
}

// NormalizedValue is SmoothedValue scaled into [0, 1].
func (s *Smoother) NormalizedValue() float64 {
	return s.SmoothedValue() / s.maxWindMPH
}

// valueAt computes the interpolated value at the current step without
// advancing it.
func (s *Smoother) valueAt() float64 {
	if s.currentStep >= s.params.InterpolationSteps {
		return s.targetValue
	}

	adjusted := float64(s.params.InterpolationSteps) / s.params.ResponseSpeed
	progress := float64(s.currentStep) / adjusted

	switch s.kind {
	case Exponential:
		// Ease-out: fast start, soft landing.
		progress = 1.0 - (1.0-progress)*(1.0-progress)
	case Gaussian:
		progress = 1.0 - math.Exp(-4.0*progress)
	}
	progress = clamp(progress, 0, 1)

	return s.lastValue + (s.targetValue-s.lastValue)*progress
}

// SetProfile switches to a named parameter profile. An unknown name is
// an error and leaves the current configuration intact.
func (s *Smoother) SetProfile(name string) error {
	p, ok := Profile(name)
	if !ok {
		return fmt.Errorf("unknown smoothing profile %q (available: %s)", name, profileNames())
	}
	s.applyParams(p)
	return nil
}

// SetCustom replaces parameters and smoothing type with explicit values.
func (s *Smoother) SetCustom(params Params, kind Kind) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	if err := params.validate(); err != nil {
		return err
	}
	s.kind = kind
	s.applyParams(params)
	return nil
}

// applyParams installs new parameters and re-clamps the buffer to the
// new capacity, discarding the oldest excess samples. An in-flight
// interpolation keeps its existing endpoints.
func (s *Smoother) applyParams(p Params) {
	p.ResponseSpeed = clamp(p.ResponseSpeed, 0.1, 1.0)
	s.params = p
	if excess := len(s.buf) - p.BufferSize; excess > 0 {
		s.buf = append(s.buf[:0], s.buf[excess:]...)
	}
}

// Info is a point-in-time snapshot for status reporting.
type Info struct {
	Kind               Kind
	BufferSize         int
	InterpolationSteps int
	ResponseSpeed      float64
	BufferFill         int
	CurrentStep        int
	LastValue          float64
	TargetValue        float64
}

func (s *Smoother) Info() Info {
	return Info{
		Kind:               s.kind,
		BufferSize:         s.params.BufferSize,
		InterpolationSteps: s.params.InterpolationSteps,
		ResponseSpeed:      s.params.ResponseSpeed,
		BufferFill:         len(s.buf),
		CurrentStep:        s.currentStep,
		LastValue:          s.lastValue,
		TargetValue:        s.targetValue,
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// gaussianMean weights samples with a Gaussian kernel centered on the
// buffer midpoint, so central samples dominate over edge samples.
func gaussianMean(xs []float64) float64 {
	n := float64(len(xs))
	var sum, sumW float64
	for i, x := range xs {
		d := (float64(i) - n/2.0) / (n / 4.0)
		w := math.Exp(-0.5 * d * d)
		sum += w * x
		sumW += w
	}
	return sum / sumW
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
