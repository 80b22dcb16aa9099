// Package decoder supervises the external rtl_433 process: device
// presence checks, spawn, line-by-line JSON parsing, model filtering
// and restart with backoff. Accepted readings are folded into the
// smoothing engine and re-emitted as a steady stream of updates.
package decoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/newcubes/Living-Synthesizer/internal/smoothing"
)

// Update pairs a Reading with the smoothed control value at emission
// time. Stale marks ticks that re-emit the last known reading because
// no fresh data arrived before the tick.
type Update struct {
	Reading  Reading
	Smoothed float64 // normalized [0,1]
	Stale    bool
	At       time.Time
}

// Options configure the Supervisor.
type Options struct {
	Command   string // decoder executable, e.g. "rtl_433"
	Frequency string // tuner frequency argument, e.g. "915M"
	Model     string // exact model filter, e.g. "Fineoffset-WH24"

	// DeviceCheck reports whether the radio hardware is attached. nil
	// disables the check (useful without hardware, e.g. in e2e runs).
	DeviceCheck func() bool

	CheckBackoff time.Duration // wait between presence probes
	RetryBackoff time.Duration // wait before restarting a dead decoder
	TickInterval time.Duration // output cadence
	KillTimeout  time.Duration // graceful terminate window
}

func (o *Options) applyDefaults() {
	if o.Command == "" {
		o.Command = "rtl_433"
	}
	if o.Frequency == "" {
		o.Frequency = "915M"
	}
	if o.CheckBackoff <= 0 {
		o.CheckBackoff = 5 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 5 * time.Second
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 100 * time.Millisecond
	}
	if o.KillTimeout <= 0 {
		o.KillTimeout = 2 * time.Second
	}
}

// Supervisor owns the decoder process lifecycle. It runs as a single
// logical thread of control: the smoother and last-reading state are
// only touched from Run's goroutine.
type Supervisor struct {
	opts     Options
	smoother *smoothing.Smoother

	last   Reading
	spawns int
}

// New creates a Supervisor feeding the given smoother.
func New(opts Options, smoother *smoothing.Smoother) *Supervisor {
	opts.applyDefaults()
	return &Supervisor{opts: opts, smoother: smoother}
}

// Run drives the monitor loop until ctx is canceled: probe the device,
// spawn the decoder, stream its output, restart on failure. emit is
// invoked from this goroutine — on every accepted reading and on every
// tick in between, so downstream consumers always receive ticks at the
// configured cadence even while the hardware is gone.
func (s *Supervisor) Run(ctx context.Context, emit func(Update)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.opts.DeviceCheck != nil && !s.opts.DeviceCheck() {
			slog.Warn("decoder: radio device not found, waiting", "backoff", s.opts.CheckBackoff)
			if err := s.idle(ctx, s.opts.CheckBackoff, emit); err != nil {
				return err
			}
			continue
		}

		err := s.session(ctx, emit)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("decoder: session ended, restarting", "error", err, "backoff", s.opts.RetryBackoff)
		if err := s.idle(ctx, s.opts.RetryBackoff, emit); err != nil {
			return err
		}
	}
}

// session runs one decoder process to completion: spawned, streamed,
// torn down. Returns why the session ended; every cause except ctx
// cancellation is treated as transient by Run.
func (s *Supervisor) session(ctx context.Context, emit func(Update)) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.Command(s.opts.Command, "-f", s.opts.Frequency, "-F", "json:-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decoder stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("decoder stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start decoder: %w", err)
	}
	s.spawns++
	slog.Info("decoder: started", "command", s.opts.Command, "pid", cmd.Process.Pid, "frequency", s.opts.Frequency)
	defer s.stop(cmd)

	lines := make(chan []byte, 16)
	readDone := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-sctx.Done():
				return
			}
		}
		readDone <- sc.Err()
	}()
	go logStderr(stderr)

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	lastCheck := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readDone:
			// EOF means the process closed stdout, i.e. exited. Exit is
			// not an error condition, only a signal to restart.
			if err != nil {
				return fmt.Errorf("read decoder output: %w", err)
			}
			return errors.New("decoder exited")

		case line := <-lines:
			r, ok := parseReading(line, s.opts.Model)
			if !ok {
				continue
			}
			s.accept(r, emit)

		case now := <-ticker.C:
			if s.opts.DeviceCheck != nil && now.Sub(lastCheck) >= s.opts.CheckBackoff {
				lastCheck = now
				if !s.opts.DeviceCheck() {
					return errors.New("radio device lost")
				}
			}
			s.emitStale(now, emit)
		}
	}
}

func (s *Supervisor) accept(r Reading, emit func(Update)) {
	s.smoother.AddReading(r.WindSpeedMPH)
	s.last = r

	u := Update{Reading: r, Smoothed: s.smoother.NormalizedValue(), At: time.Now()}
	slog.Debug("decoder: reading accepted",
		"wind_mph", r.WindSpeedMPH,
		"dir_deg", r.WindDirectionDeg,
		"temp_c", r.TemperatureC,
		"humidity", r.Humidity,
		"smoothed", u.Smoothed,
	)
	emit(u)
}

// emitStale re-emits the last known reading with the current (still
// advancing) smoothed value so the signal degrades gracefully instead
// of disappearing.
func (s *Supervisor) emitStale(now time.Time, emit func(Update)) {
	emit(Update{Reading: s.last, Smoothed: s.smoother.NormalizedValue(), Stale: true, At: now})
}

// idle waits out a backoff window while keeping the output cadence
// alive with stale ticks.
func (s *Supervisor) idle(ctx context.Context, d time.Duration, emit func(Update)) error {
	deadline := time.Now().Add(d)
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.emitStale(now, emit)
			if !now.Before(deadline) {
				return nil
			}
		}
	}
}

// stop terminates the decoder: SIGTERM first, escalating to SIGKILL if
// it has not exited within KillTimeout.
func (s *Supervisor) stop(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(s.opts.KillTimeout):
		slog.Warn("decoder: did not exit after SIGTERM, killing", "pid", cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-done
	}
	slog.Info("decoder: stopped", "pid", cmd.Process.Pid)
}

// logStderr drains the decoder's stderr; rtl_433 prints tuner chatter
// there that is only interesting when debugging.
func logStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		slog.Debug("decoder: stderr", "line", sc.Text())
	}
}
