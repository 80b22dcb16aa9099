package decoder

import (
	"encoding/json"
	"math"
)

// wind_avg_m_s arrives in meters/second; downstream mapping works in mph.
const metersPerSecondToMPH = 2.23694

// Reading is one parsed, model-filtered environmental observation.
// Immutable once constructed; it has no identity beyond arrival order.
type Reading struct {
	WindSpeedMPH     float64 `json:"wind_speed_mph"`
	WindDirectionDeg float64 `json:"wind_direction_deg"`
	TemperatureC     float64 `json:"temperature_c"`
	Humidity         float64 `json:"humidity_pct"`
}

// decoderLine mirrors the fields we consume from one rtl_433 JSON line.
type decoderLine struct {
	Model        string   `json:"model"`
	WindAvgMS    *float64 `json:"wind_avg_m_s"`
	WindDirDeg   *float64 `json:"wind_dir_deg"`
	TemperatureC *float64 `json:"temperature_C"`
	Humidity     *float64 `json:"humidity"`
}

// parseReading attempts one stdout line. Partial or garbled radio lines
// and records from other sensor models are expected; both report
// ok=false without error. Missing fields default to zero.
func parseReading(line []byte, model string) (Reading, bool) {
	var rec decoderLine
	if err := json.Unmarshal(line, &rec); err != nil {
		return Reading{}, false
	}
	if rec.Model != model {
		return Reading{}, false
	}

	var r Reading
	if rec.WindAvgMS != nil {
		r.WindSpeedMPH = *rec.WindAvgMS * metersPerSecondToMPH
	}
	if rec.WindDirDeg != nil {
		r.WindDirectionDeg = math.Mod(*rec.WindDirDeg, 360)
		if r.WindDirectionDeg < 0 {
			r.WindDirectionDeg += 360
		}
	}
	if rec.TemperatureC != nil {
		r.TemperatureC = *rec.TemperatureC
	}
	if rec.Humidity != nil {
		r.Humidity = *rec.Humidity
	}
	return r, true
}
