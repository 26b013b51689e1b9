package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/haivivi/livestudio/pkg/audio/pcm"
	"github.com/haivivi/livestudio/pkg/live"
)

var _ live.Devices = (*FFmpeg)(nil)

// FFmpeg captures with ffmpeg and plays with ffplay.
type FFmpeg struct {
	// FFmpegPath and FFplayPath default to the binaries on PATH.
	FFmpegPath string
	FFplayPath string

	// InputFormat and InputDevice select the ffmpeg capture source. Empty
	// values pick the platform default microphone.
	InputFormat string
	InputDevice string

	// Volume is the ffplay volume, 0-100. Zero means 100.
	Volume int
}

// OpenCapture starts ffmpeg recording mono 16-bit PCM at sampleRate.
func (d *FFmpeg) OpenCapture(ctx context.Context, sampleRate int) (live.CaptureStream, error) {
	bin := d.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, d.inputArgs()...)
	args = append(args, "-ac", "1", "-ar", strconv.Itoa(sampleRate), "-f", "s16le", "-")

	cmd := exec.Command(bin, args...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("device: ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("device: start ffmpeg: %w", err)
	}
	return NewReaderCapture(stdout, func() error { return stopProcess(cmd) }), nil
}

func (d *FFmpeg) inputArgs() []string {
	if d.InputFormat != "" {
		dev := d.InputDevice
		if dev == "" {
			dev = "default"
		}
		return []string{"-f", d.InputFormat, "-i", dev}
	}
	if runtime.GOOS == "darwin" {
		return []string{"-f", "avfoundation", "-i", ":0"}
	}
	return []string{"-f", "pulse", "-i", "default"}
}

// OpenPlayback starts ffplay reading mono 16-bit PCM at sampleRate.
func (d *FFmpeg) OpenPlayback(ctx context.Context, sampleRate int) (live.PlaybackDevice, error) {
	format, err := pcm.FormatOf(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	bin := d.FFplayPath
	if bin == "" {
		bin = "ffplay"
	}
	volume := d.Volume
	if volume <= 0 || volume > 100 {
		volume = 100
	}
	cmd := exec.Command(bin,
		"-hide_banner", "-loglevel", "error", "-nostats",
		"-volume", strconv.Itoa(volume),
		"-nodisp",
		"-f", "s16le", "-ch_layout", "mono", "-ar", strconv.Itoa(sampleRate),
		"-i", "-",
	)
	cmd.Stderr = os.Stderr
	if runtime.GOOS == "darwin" {
		cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("device: ffplay stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("device: start ffplay: %w", err)
	}
	closeSink := func() error {
		stdin.Close()
		return stopProcess(cmd)
	}
	return NewPlayback(format, pcm.ChunkWriter(stdin), closeSink), nil
}

// stopProcess kills cmd and reaps it. A process that was killed is not an
// error.
func stopProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	_ = cmd.Process.Kill()
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if err == nil || errors.As(err, &exitErr) || errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("device: %s did not exit", cmd.Path)
	}
}
