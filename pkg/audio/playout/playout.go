// Package playout schedules decoded audio buffers onto a sample clock and
// renders them as one mixed PCM stream.
//
// A Device owns a clock that only advances as audio is rendered through Read
// or Pump. Buffers are started at absolute positions on that clock, so
// back-to-back buffers play without gaps or overlaps regardless of when they
// were scheduled.
package playout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/haivivi/livestudio/pkg/audio/pcm"
	"github.com/haivivi/livestudio/pkg/codec"
)

// ErrClosed is returned when starting a voice on a closed device.
var ErrClosed = errors.New("playout: device closed")

// Option configures a Device.
type Option func(*Device)

// WithGain sets the initial output gain. Defaults to 1.
func WithGain(gain float32) Option {
	return func(d *Device) {
		d.gain.Store(gain)
	}
}

// WithBlockDuration sets how much audio Pump renders per write. Defaults to
// 20ms.
func WithBlockDuration(block time.Duration) Option {
	return func(d *Device) {
		if block > 0 {
			d.block = block
		}
	}
}

// Device mixes scheduled voices into a single mono output.
//
// It is safe to call methods on Device from multiple goroutines.
type Device struct {
	format pcm.Format
	block  time.Duration
	gain   *pcm.AtomicFloat32

	mu     sync.Mutex
	pos    int64 // frames rendered so far
	voices []*Voice
	closed bool
	mix    []float32
}

// New returns a Device rendering in format.
func New(format pcm.Format, opts ...Option) *Device {
	d := &Device{
		format: format,
		block:  20 * time.Millisecond,
		gain:   pcm.NewAtomicFloat32(1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Format returns the output format.
func (d *Device) Format() pcm.Format {
	return d.format
}

// SetGain changes the output gain.
func (d *Device) SetGain(gain float32) {
	d.gain.Store(gain)
}

// Now returns the current clock position.
func (d *Device) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.framesToDuration(d.pos)
}

// Active returns the number of voices that have not ended or been stopped.
func (d *Device) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.voices)
}

func (d *Device) framesToDuration(frames int64) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(d.format.SampleRate())
}

// durationToFrames rounds to the nearest frame so that a start time computed
// as a previous start plus a buffer duration lands exactly on the previous
// buffer's last frame.
func (d *Device) durationToFrames(t time.Duration) int64 {
	rate := int64(d.format.SampleRate())
	return (int64(t)*rate + int64(time.Second)/2) / int64(time.Second)
}

// Start schedules buf to begin playing at clock position at. A position in
// the past starts the buffer at the current position. onEnded, if non-nil,
// is called once after the last sample has been rendered; it is not called
// when the voice is stopped. Multi-channel buffers are downmixed.
func (d *Device) Start(buf *codec.AudioBuffer, at time.Duration, onEnded func()) (*Voice, error) {
	if buf.SampleRate != d.format.SampleRate() {
		return nil, fmt.Errorf("playout: buffer rate %d does not match device rate %d", buf.SampleRate, d.format.SampleRate())
	}
	samples := downmix(buf)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	start := max(d.durationToFrames(at), d.pos)
	v := &Voice{
		dev:     d,
		samples: samples,
		start:   start,
		onEnded: onEnded,
	}
	if len(samples) == 0 {
		d.mu.Unlock()
		// Nothing to render; it ends immediately.
		if onEnded != nil {
			go onEnded()
		}
		return v, nil
	}
	d.voices = append(d.voices, v)
	d.mu.Unlock()
	return v, nil
}

func downmix(buf *codec.AudioBuffer) []float32 {
	switch buf.NumChannels() {
	case 0:
		return nil
	case 1:
		return buf.Channel(0)
	}
	out := make([]float32, buf.Frames())
	scale := 1 / float32(buf.NumChannels())
	for _, ch := range buf.Channels {
		for i, s := range ch {
			out[i] += s * scale
		}
	}
	return out
}

// Read renders len(p)/2 frames of mixed audio into p and advances the clock
// by the same amount. It never blocks; silence is rendered where no voice is
// scheduled. Read returns io.EOF after Close.
func (d *Device) Read(p []byte) (int, error) {
	frames := len(p) / d.format.FrameBytes()
	if frames == 0 {
		return 0, nil
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, io.EOF
	}
	if cap(d.mix) < frames {
		d.mix = make([]float32, frames)
	}
	mix := d.mix[:frames]
	clear(mix)

	from, to := d.pos, d.pos+int64(frames)
	var ended []*Voice
	live := d.voices[:0]
	for _, v := range d.voices {
		v.mixInto(mix, from, to)
		if v.end() <= to {
			ended = append(ended, v)
			continue
		}
		live = append(live, v)
	}
	clear(d.voices[len(live):])
	d.voices = live
	d.pos = to

	gain := d.gain.Load()
	for i, s := range mix {
		s *= gain
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s >= 0 {
			v = int16(s * 32767)
		} else {
			v = int16(s * 32768)
		}
		p[i*2] = byte(v)
		p[i*2+1] = byte(v >> 8)
	}
	d.mu.Unlock()

	for _, v := range ended {
		if v.onEnded != nil {
			v.onEnded()
		}
	}
	return frames * d.format.FrameBytes(), nil
}

// Pump renders audio into w in real time until ctx is done, the device is
// closed, or w fails. Each iteration renders the frames due since the
// previous one, so the clock tracks wall time even if writes are uneven.
func (d *Device) Pump(ctx context.Context, w pcm.Writer) error {
	ticker := time.NewTicker(d.block)
	defer ticker.Stop()

	began := time.Now()
	var rendered int64
	for {
		due := d.format.SamplesInDuration(time.Since(began)) - rendered
		if due > 0 {
			buf := make([]byte, due*int64(d.format.FrameBytes()))
			n, err := d.Read(buf)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			rendered += int64(n / d.format.FrameBytes())
			if err := w.Write(d.format.DataChunk(buf[:n])); err != nil {
				return fmt.Errorf("playout: write: %w", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Close stops every voice without calling their end callbacks. Subsequent
// Start calls fail and Read returns io.EOF.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	clear(d.voices)
	d.voices = nil
	return nil
}

func (d *Device) remove(v *Voice) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, it := range d.voices {
		if it == v {
			d.voices = append(d.voices[:i], d.voices[i+1:]...)
			return true
		}
	}
	return false
}

// Voice is one scheduled buffer.
type Voice struct {
	dev     *Device
	samples []float32
	start   int64
	onEnded func()
}

// StartAt returns the clock position the voice was scheduled at.
func (v *Voice) StartAt() time.Duration {
	return v.dev.framesToDuration(v.start)
}

// Stop silences the voice immediately. It is a no-op if the voice already
// ended. The end callback is not called.
func (v *Voice) Stop() {
	v.dev.remove(v)
}

func (v *Voice) end() int64 {
	return v.start + int64(len(v.samples))
}

// mixInto adds the part of the voice overlapping [from, to) into mix.
func (v *Voice) mixInto(mix []float32, from, to int64) {
	lo := max(from, v.start)
	hi := min(to, v.end())
	for f := lo; f < hi; f++ {
		mix[f-from] += v.samples[f-v.start]
	}
}
