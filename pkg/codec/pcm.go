package codec

import (
	"errors"
	"fmt"
	"time"
)

// ErrShortPCM is returned when PCM data does not hold a whole number of
// sample frames.
var ErrShortPCM = errors.New("codec: pcm data is not frame aligned")

// AudioBuffer holds decoded audio as one float32 slice per channel. All
// channels have the same length.
type AudioBuffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewAudioBuffer allocates a silent buffer of the given shape.
func NewAudioBuffer(sampleRate, channels, frames int) *AudioBuffer {
	buf := &AudioBuffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
	}
	for i := range buf.Channels {
		buf.Channels[i] = make([]float32, frames)
	}
	return buf
}

// NumChannels returns the number of channels.
func (b *AudioBuffer) NumChannels() int {
	return len(b.Channels)
}

// Frames returns the number of sample frames per channel.
func (b *AudioBuffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Channel returns the samples of channel i.
func (b *AudioBuffer) Channel(i int) []float32 {
	return b.Channels[i]
}

// Duration returns the playback length of the buffer.
func (b *AudioBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// PCM16ToFloat decodes interleaved little-endian signed 16-bit PCM into a
// per-channel float buffer. Each sample is divided by 32768.
func PCM16ToFloat(data []byte, sampleRate, channels int) (*AudioBuffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("codec: invalid channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("codec: invalid sample rate %d", sampleRate)
	}
	frameBytes := 2 * channels
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %d channels", ErrShortPCM, len(data), channels)
	}

	frames := len(data) / frameBytes
	buf := NewAudioBuffer(sampleRate, channels, frames)
	for i := range frames {
		for ch := range channels {
			j := (i*channels + ch) * 2
			s := int16(data[j]) | int16(data[j+1])<<8
			buf.Channels[ch][i] = float32(s) / 32768
		}
	}
	return buf, nil
}

// FloatToPCM16 encodes mono float samples as little-endian signed 16-bit PCM.
// Samples are scaled by 32768, clamped to the int16 range and truncated
// toward zero.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		s := floatToInt16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// Interleave encodes every channel of buf as interleaved little-endian signed
// 16-bit PCM.
func (b *AudioBuffer) Interleave() []byte {
	channels := b.NumChannels()
	frames := b.Frames()
	out := make([]byte, frames*channels*2)
	for i := range frames {
		for ch := range channels {
			s := floatToInt16(b.Channels[ch][i])
			j := (i*channels + ch) * 2
			out[j] = byte(s)
			out[j+1] = byte(s >> 8)
		}
	}
	return out
}

func floatToInt16(v float32) int16 {
	f := v * 32768
	switch {
	case f >= 32767:
		return 32767
	case f <= -32768:
		return -32768
	}
	return int16(f)
}
