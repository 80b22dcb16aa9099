// Package midi maps normalized environmental values onto synthesizer
// LFO parameters and dispatches them as MIDI control-change messages
// over a byte-oriented port.
package midi

// CCMap holds the control-change numbers for one synth LFO.
type CCMap struct {
	Speed       byte
	SpeedLSB    byte
	Depth       byte
	DepthLSB    byte
	Waveform    byte
	Destination byte
	Multiplier  byte
	Fade        byte
	StartPhase  byte
	TrigMode    byte
}

// The two hardware LFOs and their CC assignments.
var lfoCC = map[int]CCMap{
	1: {Speed: 28, SpeedLSB: 60, Depth: 29, DepthLSB: 61, Waveform: 111, Destination: 110, Multiplier: 108, Fade: 109, StartPhase: 112, TrigMode: 113},
	2: {Speed: 30, SpeedLSB: 62, Depth: 31, DepthLSB: 63, Waveform: 117, Destination: 116, Multiplier: 114, Fade: 115, StartPhase: 118, TrigMode: 119},
}

// LFO waveform values, selected by wind sector.
const (
	waveTriangle    = 0
	waveSine        = 1
	waveSquare      = 2
	waveSawtooth    = 3
	waveExponential = 4
	waveRamp        = 5
	waveRandom      = 6
)

// WindSpeedToRate maps wind speed in mph linearly onto the full CC
// range, saturating at maxIntensity.
func WindSpeedToRate(mph, maxIntensity float64) int {
	if maxIntensity <= 0 {
		return 0
	}
	if mph < 0 {
		mph = 0
	} else if mph > maxIntensity {
		mph = maxIntensity
	}
	return int(mph / maxIntensity * 127)
}

// WindDirectionToWaveform picks an LFO waveform from the eight compass
// sectors. North and northwest share the triangle.
func WindDirectionToWaveform(deg float64) int {
	d := deg
	for d < 0 {
		d += 360
	}
	for d >= 360 {
		d -= 360
	}

	switch {
	case d < 22.5 || d >= 337.5:
		return waveTriangle // north
	case d < 67.5:
		return waveSine // northeast
	case d < 112.5:
		return waveSquare // east
	case d < 157.5:
		return waveSawtooth // southeast
	case d < 202.5:
		return waveExponential // south
	case d < 247.5:
		return waveRamp // southwest
	case d < 292.5:
		return waveRandom // west
	default:
		return waveTriangle // northwest
	}
}

// TemperatureToDepth maps 0–40 °C onto LFO depth 0–63.
func TemperatureToDepth(celsius float64) int {
	const maxTemp, maxDepth = 40.0, 63.0
	if celsius < 0 {
		celsius = 0
	} else if celsius > maxTemp {
		celsius = maxTemp
	}
	return int(celsius / maxTemp * maxDepth)
}

// clampCC bounds a value to the 7-bit MIDI data range. Values outside
// [0,127] are never sent on the wire.
func clampCC(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return byte(v)
}
