package midi

import (
	"fmt"
)

// Control drives one synth LFO from environmental values.
type Control struct {
	sink *Sink
	// maxIntensity is the wind speed in mph that pins the LFO rate at 127.
	maxIntensity float64
}

// NewControl creates a Control over an open sink.
func NewControl(sink *Sink, maxIntensity float64) (*Control, error) {
	if maxIntensity <= 0 {
		return nil, fmt.Errorf("max intensity must be positive, got %v", maxIntensity)
	}
	return &Control{sink: sink, maxIntensity: maxIntensity}, nil
}

func (c *Control) ccMap(lfo int) (CCMap, error) {
	m, ok := lfoCC[lfo]
	if !ok {
		return CCMap{}, fmt.Errorf("lfo must be 1 or 2, got %d", lfo)
	}
	return m, nil
}

// Apply maps wind speed to LFO rate, wind direction to waveform and
// temperature to depth, and dispatches all three. An LFO outside the
// supported set is rejected before anything is sent. Callers pass the
// smoothed wind speed so the rate moves continuously with the ticks
// between readings, never jumping to a raw sample.
func (c *Control) Apply(lfo int, windSpeedMPH, windDirectionDeg, temperatureC float64) error {
	m, err := c.ccMap(lfo)
	if err != nil {
		return err
	}

	if err := c.sink.SendCC(int(m.Speed), WindSpeedToRate(windSpeedMPH, c.maxIntensity)); err != nil {
		return err
	}
	if err := c.sink.SendCC(int(m.Waveform), WindDirectionToWaveform(windDirectionDeg)); err != nil {
		return err
	}
	return c.sink.SendCC(int(m.Depth), TemperatureToDepth(temperatureC))
}

// ApplyRate sends only the speed CC, from a wind speed in mph on the
// same scale Apply uses. Used on interpolation ticks between readings.
func (c *Control) ApplyRate(lfo int, windSpeedMPH float64) error {
	m, err := c.ccMap(lfo)
	if err != nil {
		return err
	}
	return c.sink.SendCC(int(m.Speed), WindSpeedToRate(windSpeedMPH, c.maxIntensity))
}

// SetDestination routes the LFO to a modulation destination.
func (c *Control) SetDestination(lfo, destination int) error {
	m, err := c.ccMap(lfo)
	if err != nil {
		return err
	}
	return c.sink.SendCC(int(m.Destination), destination)
}

// SetMultiplier sets the LFO tempo multiplier.
func (c *Control) SetMultiplier(lfo, multiplier int) error {
	m, err := c.ccMap(lfo)
	if err != nil {
		return err
	}
	return c.sink.SendCC(int(m.Multiplier), multiplier)
}
