package device

import (
	"context"
	"fmt"
	"time"

	"github.com/haivivi/livestudio/pkg/audio/pcm"
	"github.com/haivivi/livestudio/pkg/audio/playout"
	"github.com/haivivi/livestudio/pkg/audio/portaudio"
	"github.com/haivivi/livestudio/pkg/live"
)

var _ live.Devices = (*PortAudio)(nil)

// PortAudio uses the system default input and output devices.
type PortAudio struct {
	// Buffer is the device transfer size. Zero means 20ms.
	Buffer time.Duration

	// Gain scales playback. Zero means unity.
	Gain float32
}

// NewPortAudio initializes PortAudio.
func NewPortAudio() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	return &PortAudio{}, nil
}

func (d *PortAudio) buffer() time.Duration {
	if d.Buffer > 0 {
		return d.Buffer
	}
	return 20 * time.Millisecond
}

// OpenCapture opens the default input device.
func (d *PortAudio) OpenCapture(ctx context.Context, sampleRate int) (live.CaptureStream, error) {
	format, err := pcm.FormatOf(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	in, err := portaudio.NewInputStream(format, d.buffer())
	if err != nil {
		return nil, fmt.Errorf("device: open input: %w", err)
	}
	return &portaudioCapture{in: in}, nil
}

// OpenPlayback opens the default output device.
func (d *PortAudio) OpenPlayback(ctx context.Context, sampleRate int) (live.PlaybackDevice, error) {
	format, err := pcm.FormatOf(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	out, err := portaudio.NewOutputStream(format, d.buffer())
	if err != nil {
		return nil, fmt.Errorf("device: open output: %w", err)
	}
	var opts []playout.Option
	if d.Gain > 0 {
		opts = append(opts, playout.WithGain(d.Gain))
	}
	opts = append(opts, playout.WithBlockDuration(d.buffer()))
	return NewPlayback(format, out, out.Close, opts...), nil
}

type portaudioCapture struct {
	in  *portaudio.InputStream
	buf []int16
}

func (c *portaudioCapture) ReadSamples(p []float32) (int, error) {
	if cap(c.buf) < len(p) {
		c.buf = make([]int16, len(p))
	}
	n, err := c.in.Read(c.buf[:len(p)])
	for i := range n {
		p[i] = float32(c.buf[i]) / 32768
	}
	return n, err
}

func (c *portaudioCapture) Close() error {
	return c.in.Close()
}
