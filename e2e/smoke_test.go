//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."   // relative to ./e2e
const mainPkgRel = "./cmd" // main.go lives in cmd/

const stationID = "e2e-station"

func TestSmoke_TelemetryFlow(t *testing.T) {
	repoRoot := repoRootPath(t)

	brokerHost, brokerPort := startMosquitto(t)
	decoderPath := writeFakeDecoder(t)

	bin := buildBinary(t, repoRoot)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=debug",

		"MQTT_BROKER="+brokerHost,
		fmt.Sprintf("MQTT_PORT=%d", brokerPort),
		"MQTT_CLIENT_ID=e2e-gateway",
		"STATION_ID="+stationID,

		// No radio, no synth: the fake decoder stands in for rtl_433.
		"DEVICE_CHECK=false",
		"DECODER_PATH="+decoderPath,
		"MIDI_PORT=",

		"SMOOTHING_PROFILE=responsive",
		"TICK_INTERVAL=50ms",
		"HEALTH_INTERVAL=1s",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	sub, msgs := subscribeTelemetry(t, brokerHost, brokerPort)
	defer sub.Disconnect(250)

	if err := cmd.Start(); err != nil {
		t.Fatalf("start gateway: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	var got telemetry
	select {
	case got = <-msgs:
	case <-time.After(30 * time.Second):
		t.Fatalf("no telemetry received within 30s")
	}

	if got.StationID != stationID {
		t.Errorf("station_id = %q, want %q", got.StationID, stationID)
	}
	// The fake decoder reports 5 m/s, which is 11.18 mph.
	if got.WindSpeedMPH < 11.0 || got.WindSpeedMPH > 11.4 {
		t.Errorf("wind_speed_mph = %v, want ~11.18", got.WindSpeedMPH)
	}
	if got.Smoothed < 0 || got.Smoothed > 1 {
		t.Errorf("smoothed = %v, want within [0,1]", got.Smoothed)
	}
	if got.Stale {
		t.Errorf("telemetry marked stale, want fresh")
	}

	stopGateway(t, cmd)
}

type telemetry struct {
	StationID    string  `json:"station_id"`
	WindSpeedMPH float64 `json:"wind_speed_mph"`
	Smoothed     float64 `json:"smoothed"`
	Stale        bool    `json:"stale"`
}

func startMosquitto(t *testing.T) (string, int) {
	t.Helper()

	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort(nat.Port("1883/tcp")).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, nat.Port("1883/tcp"))
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	return host, port.Int()
}

// writeFakeDecoder creates a script that emits one decoded reading every
// half second, mimicking rtl_433's json:- output.
func writeFakeDecoder(t *testing.T) string {
	t.Helper()

	script := `#!/bin/sh
while true; do
  echo '{"model":"Fineoffset-WH24","wind_avg_m_s":5.0,"wind_dir_deg":90,"temperature_C":21.5,"humidity":40}'
  sleep 0.5
done
`
	path := filepath.Join(t.TempDir(), "fake-rtl433")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake decoder: %v", err)
	}
	return path
}

func subscribeTelemetry(t *testing.T, host string, port int) (mqtt.Client, <-chan telemetry) {
	t.Helper()

	msgs := make(chan telemetry, 16)

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", host, port)).
		SetClientID("e2e-subscriber")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("subscriber connect: %v", token.Error())
	}

	topic := fmt.Sprintf("wind/%s/telemetry", stationID)
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, m mqtt.Message) {
		var tm telemetry
		if err := json.Unmarshal(m.Payload(), &tm); err != nil {
			t.Errorf("unmarshal telemetry: %v", err)
			return
		}
		select {
		case msgs <- tm:
		default:
		}
	})
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("subscribe %s: %v", topic, token.Error())
	}

	return client, msgs
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	tmp := t.TempDir()
	out := filepath.Join(tmp, "living-synthesizer")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func stopGateway(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("gateway did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("gateway exited non-zero: %v", err)
			}
			t.Fatalf("gateway wait error: %v", err)
		}
	}
}
