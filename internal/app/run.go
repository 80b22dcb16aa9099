// Package app wires the acquisition pipeline: the supervised radio
// decoder feeds the smoothing engine, and every update fans out to the
// synth (MIDI), the broker (MQTT telemetry) and the health publisher.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/newcubes/Living-Synthesizer/internal/config"
	"github.com/newcubes/Living-Synthesizer/internal/decoder"
	"github.com/newcubes/Living-Synthesizer/internal/midi"
	"github.com/newcubes/Living-Synthesizer/internal/mqtt"
	"github.com/newcubes/Living-Synthesizer/internal/ramp"
	"github.com/newcubes/Living-Synthesizer/internal/smoothing"
	"github.com/newcubes/Living-Synthesizer/internal/usb"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing",
		"station_id", cfg.StationID,
		"decoder", cfg.DecoderPath,
		"frequency", cfg.DecoderFrequency,
		"strategy", cfg.Strategy,
		"profile", cfg.SmoothingProfile,
		"smoothing_type", cfg.SmoothingType,
	)

	smoother, err := smoothing.New(cfg.MaxWindMPH, cfg.SmoothingType, cfg.SmoothingParams())
	if err != nil {
		return err
	}

	mqttClient := mqtt.NewClient(cfg, slog.Default())
	go func() {
		// Connect keeps retrying inside the paho client; telemetry is
		// best effort, the control loop never waits for the broker.
		if err := mqttClient.Connect(ctx); err != nil {
			slog.Warn("mqtt connect failed; continuing without broker", "error", err)
		}
	}()
	defer mqttClient.Disconnect()

	var control *midi.Control
	if cfg.MIDIPort == "" {
		slog.Warn("no midi port configured; running without synth output")
	} else {
		sink, err := midi.Open(cfg.MIDIPort)
		if err != nil {
			slog.Warn("midi port unavailable; running without synth output", "port", cfg.MIDIPort, "error", err)
		} else {
			defer sink.Close()
			control, err = midi.NewControl(sink, cfg.MaxIntensityMPH)
			if err != nil {
				return err
			}
		}
	}

	var deviceCheck func() bool
	if cfg.DeviceCheck {
		probe := usb.NewProbe(cfg.DeviceVendorID)
		deviceCheck = probe.Present
	}

	var rampCtl *ramp.Controller
	if cfg.Strategy == config.StrategyRamp {
		rampCtl = ramp.New(cfg.RampDuration,
			ramp.WithThreshold(cfg.RampThreshold),
			ramp.WithUpdateInterval(cfg.RampUpdateInterval),
		)
		go func() { _ = rampCtl.Run(ctx) }()
	}

	var (
		mu       sync.Mutex
		lastSeen time.Time
	)
	go publishHealth(ctx, mqttClient, cfg, func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return lastSeen
	})

	out := &output{control: control, lfo: cfg.MIDILFO, maxWind: cfg.MaxWindMPH}

	emit := func(u decoder.Update) {
		value := u.Smoothed
		if rampCtl != nil {
			if !u.Stale {
				rampCtl.SetTarget(u.Smoothed)
			}
			value = rampCtl.Value()
		}

		out.send(u, value)

		if u.Stale {
			return
		}

		mu.Lock()
		lastSeen = u.At
		mu.Unlock()

		if mqttClient.IsConnected() {
			t := mqtt.Telemetry{
				StationID:        cfg.StationID,
				Timestamp:        u.At,
				WindSpeedMPH:     u.Reading.WindSpeedMPH,
				WindDirectionDeg: u.Reading.WindDirectionDeg,
				TemperatureC:     u.Reading.TemperatureC,
				HumidityPct:      u.Reading.Humidity,
				Smoothed:         value,
				Stale:            false,
			}
			if err := mqttClient.PublishTelemetry(t); err != nil {
				slog.Warn("telemetry publish failed", "error", err)
			}
		}
	}

	sup := decoder.New(decoder.Options{
		Command:      cfg.DecoderPath,
		Frequency:    cfg.DecoderFrequency,
		Model:        cfg.SensorModel,
		DeviceCheck:  deviceCheck,
		CheckBackoff: cfg.DeviceCheckBackoff,
		RetryBackoff: cfg.DecoderRetryBackoff,
		TickInterval: cfg.TickInterval,
		KillTimeout:  cfg.DecoderKillTimeout,
	}, smoother)

	err = sup.Run(ctx, emit)

	slog.Info("shutting down")
	return err
}

// output drives the synth from one update. The speed CC always comes
// from the smoothed output value converted back to mph, so fresh
// readings and the ticks between them move the same controller along
// the same scale; waveform and depth come from the reading itself.
type output struct {
	control *midi.Control
	lfo     int
	maxWind float64
}

func (o *output) send(u decoder.Update, value float64) {
	if o.control == nil {
		return
	}

	mph := value * o.maxWind
	if u.Stale {
		if err := o.control.ApplyRate(o.lfo, mph); err != nil {
			slog.Warn("midi rate update failed", "error", err)
		}
		return
	}
	if err := o.control.Apply(o.lfo, mph, u.Reading.WindDirectionDeg, u.Reading.TemperatureC); err != nil {
		slog.Warn("midi apply failed", "error", err)
	}
}

// publishHealth periodically publishes the retained station health
// record. A station is healthy while readings keep arriving within two
// health intervals.
func publishHealth(ctx context.Context, client *mqtt.Client, cfg config.Config, lastSeen func() time.Time) {
	ticker := time.NewTicker(cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !client.IsConnected() {
				continue
			}
			seen := lastSeen()
			h := mqtt.StationHealth{
				StationID: cfg.StationID,
				LastSeen:  seen,
				Healthy:   !seen.IsZero() && now.Sub(seen) < 2*cfg.HealthInterval,
			}
			if err := client.PublishHealth(h); err != nil {
				slog.Debug("health publish failed", "error", err)
			}
		}
	}
}
