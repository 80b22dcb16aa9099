package decoder

import (
	"math"
	"testing"
)

func TestParseReading(t *testing.T) {
	const model = "Fineoffset-WH24"

	tests := []struct {
		name   string
		line   string
		wantOK bool
		want   Reading
	}{
		{
			name:   "full record",
			line:   `{"model":"Fineoffset-WH24","wind_avg_m_s":2.0,"wind_dir_deg":90,"temperature_C":21.5,"humidity":55}`,
			wantOK: true,
			want:   Reading{WindSpeedMPH: 2.0 * 2.23694, WindDirectionDeg: 90, TemperatureC: 21.5, Humidity: 55},
		},
		{
			name:   "missing fields default to zero",
			line:   `{"model":"Fineoffset-WH24"}`,
			wantOK: true,
			want:   Reading{},
		},
		{
			name:   "direction wraps modulo 360",
			line:   `{"model":"Fineoffset-WH24","wind_dir_deg":450}`,
			wantOK: true,
			want:   Reading{WindDirectionDeg: 90},
		},
		{
			name:   "negative direction wraps positive",
			line:   `{"model":"Fineoffset-WH24","wind_dir_deg":-90}`,
			wantOK: true,
			want:   Reading{WindDirectionDeg: 270},
		},
		{name: "other model ignored", line: `{"model":"Acurite-5n1","wind_avg_m_s":2.0}`, wantOK: false},
		{name: "no model field", line: `{"wind_avg_m_s":2.0}`, wantOK: false},
		{name: "garbled line", line: `�E�time : 2024-01-01`, wantOK: false},
		{name: "non-object json", line: `[1,2,3]`, wantOK: false},
		{name: "empty line", line: ``, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseReading([]byte(tt.line), model)
			if ok != tt.wantOK {
				t.Fatalf("parseReading() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if math.Abs(got.WindSpeedMPH-tt.want.WindSpeedMPH) > 1e-9 {
				t.Errorf("WindSpeedMPH = %v, want %v", got.WindSpeedMPH, tt.want.WindSpeedMPH)
			}
			if got.WindDirectionDeg != tt.want.WindDirectionDeg {
				t.Errorf("WindDirectionDeg = %v, want %v", got.WindDirectionDeg, tt.want.WindDirectionDeg)
			}
			if got.TemperatureC != tt.want.TemperatureC {
				t.Errorf("TemperatureC = %v, want %v", got.TemperatureC, tt.want.TemperatureC)
			}
			if got.Humidity != tt.want.Humidity {
				t.Errorf("Humidity = %v, want %v", got.Humidity, tt.want.Humidity)
			}
		})
	}
}
