// Package transcode bridges container-encoded client audio into raw PCM
// frames for the transcription backend.
//
// An external decoder process (ffmpeg) does the decoding; a dedicated
// worker goroutine reads its output and forwards frames through a single
// bounded submission point. This is the only place where a blocking read
// loop hands work to the session's asynchronous logic.
package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-copilot/internal/observability/metrics"
)

// ForwardFunc delivers one decoded PCM frame to the transcription backend.
// It must respect the context deadline.
type ForwardFunc func(ctx context.Context, frame []byte) error

// Config holds bridge settings.
type Config struct {
	// Command is the decoder argv. Defaults to FFmpegCommand("ffmpeg").
	Command                []string
	FrameBytes             int
	ForwardTimeout         time.Duration
	MaxForwardAttempts     int
	RetryBackoff           time.Duration
	MaxConsecutiveFailures int
}

// FFmpegCommand returns the decoder argv for WebM/Opus input to 16kHz
// mono s16le PCM on stdout. The error-tolerance flags let the decoder ride
// out truncated container chunks instead of dying mid-session.
func FFmpegCommand(path string) []string {
	return []string{
		path,
		"-loglevel", "warning",
		"-fflags", "+genpts+igndts+discardcorrupt",
		"-err_detect", "ignore_err",
		"-f", "webm",
		"-i", "pipe:0",
		"-vn",
		"-f", "s16le",
		"-ar", "16000",
		"-ac", "1",
		"pipe:1",
	}
}

// DefaultConfig returns production defaults. The retry and failure limits
// mirror the forward policy: 3 attempts per frame with exponential backoff
// starting at 100ms, unhealthy after 5 consecutive full failures.
func DefaultConfig() Config {
	return Config{
		Command:                FFmpegCommand("ffmpeg"),
		FrameBytes:             2560, // 80ms at 16kHz mono s16le
		ForwardTimeout:         5 * time.Second,
		MaxForwardAttempts:     3,
		RetryBackoff:           100 * time.Millisecond,
		MaxConsecutiveFailures: 5,
	}
}

// ErrUnhealthy is reported to the unhealthy callback when the bridge gives
// up forwarding after too many consecutive failures.
var ErrUnhealthy = errors.New("transcoder bridge unhealthy: too many consecutive forward failures")

// Bridge manages one decoder process and its worker goroutines for the
// lifetime of a session. Stop is idempotent and a fresh Start immediately
// after Stop must leave no orphaned process or goroutine.
type Bridge struct {
	cfg         Config
	forward     ForwardFunc
	onUnhealthy func(error)
	log         zerolog.Logger
	metrics     *metrics.Metrics

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	running  bool
	healthy  bool
	finished bool
	done     chan struct{}
}

// New creates a bridge. onUnhealthy may be nil.
func New(cfg Config, forward ForwardFunc, onUnhealthy func(error), log zerolog.Logger) *Bridge {
	if len(cfg.Command) == 0 {
		cfg.Command = FFmpegCommand("ffmpeg")
	}
	if cfg.FrameBytes <= 0 {
		cfg.FrameBytes = DefaultConfig().FrameBytes
	}
	if cfg.MaxForwardAttempts <= 0 {
		cfg.MaxForwardAttempts = DefaultConfig().MaxForwardAttempts
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = DefaultConfig().MaxConsecutiveFailures
	}
	return &Bridge{
		cfg:         cfg,
		forward:     forward,
		onUnhealthy: onUnhealthy,
		log:         log,
		metrics:     metrics.DefaultMetrics,
	}
}

// Start launches the decoder process and its worker goroutines.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("bridge already started")
	}

	cmd := exec.Command(b.cfg.Command[0], b.cfg.Command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("decoder stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decoder stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("decoder stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start decoder: %w", err)
	}

	b.cmd = cmd
	b.stdin = stdin
	b.running = true
	b.healthy = true
	b.finished = false
	b.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.readLoop(stdout)
	}()
	go func() {
		defer wg.Done()
		b.stderrLoop(stderr)
	}()

	// Reap the process once both pipe readers are drained.
	done := b.done
	go func() {
		wg.Wait()
		if err := cmd.Wait(); err != nil {
			b.log.Debug().Err(err).Msg("Decoder exited")
		}
		close(done)
	}()

	b.log.Info().Str("decoder", b.cfg.Command[0]).Msg("Transcoder bridge started")
	return nil
}

// Feed writes one container-encoded audio chunk to the decoder's input.
// It returns false, without panicking, if the decoder is not running or
// has died; the caller should stop sending and may restart the bridge.
func (b *Bridge) Feed(chunk []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running || b.finished || b.stdin == nil {
		return false
	}

	if _, err := b.stdin.Write(chunk); err != nil {
		b.log.Error().Err(err).Msg("Decoder stdin write failed, process likely dead")
		return false
	}
	return true
}

// Finish closes the decoder's input, letting buffered frames flush through
// to the backend. The bridge keeps running until the output drains.
func (b *Bridge) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running || b.finished || b.stdin == nil {
		return nil
	}
	b.finished = true
	return b.stdin.Close()
}

// Stop unconditionally tears down the decoder and worker goroutines.
// Idempotent, and safe to call before Start.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false

	if b.stdin != nil && !b.finished {
		b.stdin.Close()
		b.finished = true
	}
	if b.cmd != nil && b.cmd.Process != nil {
		b.cmd.Process.Kill()
	}
	done := b.done
	b.mu.Unlock()

	if done != nil {
		<-done
	}

	b.mu.Lock()
	b.cmd = nil
	b.stdin = nil
	b.done = nil
	b.mu.Unlock()

	b.log.Info().Msg("Transcoder bridge stopped")
}

// Healthy reports whether the bridge is still forwarding frames.
func (b *Bridge) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running && b.healthy
}

// readLoop reads decoded PCM frames and forwards them in order. It runs on
// a dedicated goroutine because the pipe read blocks.
func (b *Bridge) readLoop(stdout io.Reader) {
	reader := bufio.NewReaderSize(stdout, b.cfg.FrameBytes*4)
	buf := make([]byte, b.cfg.FrameBytes)
	consecutiveFailures := 0

	for {
		n, err := io.ReadFull(reader, buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])

			if fwdErr := b.forwardFrame(frame); fwdErr != nil {
				consecutiveFailures++
				b.log.Error().
					Err(fwdErr).
					Int("consecutiveFailures", consecutiveFailures).
					Int("limit", b.cfg.MaxConsecutiveFailures).
					Msg("Frame forward failed after all attempts")

				if consecutiveFailures >= b.cfg.MaxConsecutiveFailures {
					b.markUnhealthy(fwdErr)
					return
				}
			} else {
				consecutiveFailures = 0
			}
		}

		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				b.log.Debug().Err(err).Msg("Decoder stdout read ended")
			}
			return
		}
	}
}

// forwardFrame delivers one frame through the submission point, retrying
// timeouts with exponential backoff.
func (b *Bridge) forwardFrame(frame []byte) error {
	backoff := b.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= b.cfg.MaxForwardAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.ForwardTimeout)
		err := b.forward(ctx, frame)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt < b.cfg.MaxForwardAttempts {
			b.metrics.ForwardRetries.Inc()
			b.log.Warn().
				Int("attempt", attempt).
				Int("maxAttempts", b.cfg.MaxForwardAttempts).
				Msg("Timeout forwarding frame, retrying")
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}

func (b *Bridge) markUnhealthy(err error) {
	b.mu.Lock()
	b.healthy = false
	cb := b.onUnhealthy
	b.mu.Unlock()

	b.metrics.BridgeUnhealthy.Inc()
	b.log.Error().Err(err).Msg("Transcoder bridge marked unhealthy")
	if cb != nil {
		cb(fmt.Errorf("%w: %v", ErrUnhealthy, err))
	}
}

// stderrLoop surfaces decoder diagnostics at appropriate levels.
func (b *Bridge) stderrLoop(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "error") || strings.Contains(lower, "fatal"):
			b.log.Error().Str("decoder", line).Msg("Decoder error output")
		case strings.Contains(lower, "warning"):
			b.log.Warn().Str("decoder", line).Msg("Decoder warning output")
		default:
			b.log.Debug().Str("decoder", line).Msg("Decoder output")
		}
	}
}
