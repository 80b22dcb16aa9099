package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/newcubes/Living-Synthesizer/internal/smoothing"
)

// Strategy selects which smoother drives the output value.
const (
	StrategySteps = "steps" // step-based interpolation engine
	StrategyRamp  = "ramp"  // time-based ramp controller
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	StationID    string

	DecoderPath      string
	DecoderFrequency string
	SensorModel      string

	DeviceCheck         bool
	DeviceVendorID      uint16
	DeviceCheckBackoff  time.Duration
	DecoderRetryBackoff time.Duration
	DecoderKillTimeout  time.Duration
	TickInterval        time.Duration

	// MIDIPort empty disables MIDI output; the gateway then only
	// acquires, smooths and publishes.
	MIDIPort        string
	MIDILFO         int
	MaxIntensityMPH float64

	SmoothingProfile  string // named profile or "custom"
	SmoothingType     smoothing.Kind
	MaxWindMPH        float64
	SmoothingBuffer   int
	SmoothingSteps    int
	SmoothingResponse float64

	Strategy           string
	RampDuration       time.Duration
	RampUpdateInterval time.Duration
	RampThreshold      float64

	HealthInterval time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{}

	appEnv := envString("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}
	cfg.AppEnv = appEnv

	level, err := parseLogLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	cfg.MQTTBroker = envString("MQTT_BROKER", "localhost")
	if cfg.MQTTPort, err = envInt("MQTT_PORT", 1883); err != nil {
		return Config{}, err
	}
	cfg.MQTTClientID = envString("MQTT_CLIENT_ID", "wind-synth-gateway")
	cfg.StationID = envString("STATION_ID", "outdoor")

	cfg.DecoderPath = envString("DECODER_PATH", "rtl_433")
	cfg.DecoderFrequency = envString("DECODER_FREQUENCY", "915M")
	cfg.SensorModel = envString("SENSOR_MODEL", "Fineoffset-WH24")

	if cfg.DeviceCheck, err = envBool("DEVICE_CHECK", true); err != nil {
		return Config{}, err
	}
	vid, err := envUint16("DEVICE_VENDOR_ID", "0x0bda")
	if err != nil {
		return Config{}, err
	}
	cfg.DeviceVendorID = vid

	if cfg.DeviceCheckBackoff, err = envDuration("DEVICE_CHECK_BACKOFF", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DecoderRetryBackoff, err = envDuration("DECODER_RETRY_BACKOFF", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DecoderKillTimeout, err = envDuration("DECODER_KILL_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TickInterval, err = envDuration("TICK_INTERVAL", 100*time.Millisecond); err != nil {
		return Config{}, err
	}

	cfg.MIDIPort = envString("MIDI_PORT", "")
	if cfg.MIDILFO, err = envInt("MIDI_LFO", 1); err != nil {
		return Config{}, err
	}
	if cfg.MIDILFO != 1 && cfg.MIDILFO != 2 {
		return Config{}, fmt.Errorf("invalid MIDI_LFO %d (allowed: 1, 2)", cfg.MIDILFO)
	}
	if cfg.MaxIntensityMPH, err = envFloat("MAX_INTENSITY_MPH", 25.0); err != nil {
		return Config{}, err
	}
	if cfg.MaxIntensityMPH <= 0 {
		return Config{}, fmt.Errorf("MAX_INTENSITY_MPH must be positive, got %v", cfg.MaxIntensityMPH)
	}

	cfg.SmoothingProfile = envString("SMOOTHING_PROFILE", "balanced")
	if cfg.SmoothingProfile != "custom" {
		if _, ok := smoothing.Profile(cfg.SmoothingProfile); !ok {
			return Config{}, fmt.Errorf("unknown SMOOTHING_PROFILE %q (allowed: responsive, balanced, smooth, ambient, custom)", cfg.SmoothingProfile)
		}
	}
	kind, err := smoothing.ParseKind(envString("SMOOTHING_TYPE", "linear"))
	if err != nil {
		return Config{}, fmt.Errorf("SMOOTHING_TYPE: %w", err)
	}
	cfg.SmoothingType = kind

	if cfg.MaxWindMPH, err = envFloat("MAX_WIND_MPH", 20.0); err != nil {
		return Config{}, err
	}
	if cfg.MaxWindMPH <= 0 {
		return Config{}, fmt.Errorf("MAX_WIND_MPH must be positive, got %v", cfg.MaxWindMPH)
	}
	if cfg.SmoothingBuffer, err = envInt("SMOOTHING_BUFFER_SIZE", 10); err != nil {
		return Config{}, err
	}
	if cfg.SmoothingBuffer < 1 {
		return Config{}, fmt.Errorf("SMOOTHING_BUFFER_SIZE must be >= 1, got %d", cfg.SmoothingBuffer)
	}
	if cfg.SmoothingSteps, err = envInt("SMOOTHING_STEPS", 150); err != nil {
		return Config{}, err
	}
	if cfg.SmoothingSteps < 1 {
		return Config{}, fmt.Errorf("SMOOTHING_STEPS must be >= 1, got %d", cfg.SmoothingSteps)
	}
	if cfg.SmoothingResponse, err = envFloat("SMOOTHING_RESPONSE", 0.5); err != nil {
		return Config{}, err
	}

	cfg.Strategy = envString("STRATEGY", StrategySteps)
	switch cfg.Strategy {
	case StrategySteps, StrategyRamp:
	default:
		return Config{}, fmt.Errorf("invalid STRATEGY %q (allowed: steps, ramp)", cfg.Strategy)
	}
	if cfg.RampDuration, err = envDuration("RAMP_DURATION", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RampUpdateInterval, err = envDuration("RAMP_UPDATE_INTERVAL", time.Second/60); err != nil {
		return Config{}, err
	}
	if cfg.RampThreshold, err = envFloat("RAMP_THRESHOLD", 0.1); err != nil {
		return Config{}, err
	}

	if cfg.HealthInterval, err = envDuration("HEALTH_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SmoothingParams resolves the configured profile name, or the explicit
// overrides when the profile is "custom".
func (c Config) SmoothingParams() smoothing.Params {
	if c.SmoothingProfile != "custom" {
		if p, ok := smoothing.Profile(c.SmoothingProfile); ok {
			return p
		}
	}
	return smoothing.Params{
		BufferSize:         c.SmoothingBuffer,
		InterpolationSteps: c.SmoothingSteps,
		ResponseSpeed:      c.SmoothingResponse,
	}
}

func envString(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envUint16(key, fallback string) (uint16, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		v = fallback
	}
	n, err := strconv.ParseUint(v, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return uint16(n), nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
