package pcm

import (
	"fmt"
	"io"
	"time"
)

const (
	// L16Mono16K is 16-bit mono PCM at 16 kHz, the capture format.
	L16Mono16K Format = iota
	// L16Mono24K is 16-bit mono PCM at 24 kHz, the synthesized speech format.
	L16Mono24K
	// L16Mono48K is 16-bit mono PCM at 48 kHz.
	L16Mono48K
)

// Format is a 16-bit little-endian mono PCM layout at a fixed sample rate.
type Format int

// FormatOf returns the Format for a sample rate.
func FormatOf(sampleRate int) (Format, error) {
	switch sampleRate {
	case 16000:
		return L16Mono16K, nil
	case 24000:
		return L16Mono24K, nil
	case 48000:
		return L16Mono48K, nil
	}
	return 0, fmt.Errorf("pcm: unsupported sample rate %d", sampleRate)
}

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio type")
}

// Channels returns the channel count.
func (f Format) Channels() int {
	return 1
}

// FrameBytes returns the size of one sample frame in bytes.
func (f Format) FrameBytes() int {
	return 2 * f.Channels()
}

// BytesRate returns the number of bytes per second of audio.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.FrameBytes()
}

// SamplesInDuration returns the number of sample frames in d.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in d.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.FrameBytes())
}

// Duration returns the playback length of n bytes.
func (f Format) Duration(n int64) time.Duration {
	frames := n / int64(f.FrameBytes())
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate())
}

// MIMEType returns the media type used for inline audio payloads, for
// example "audio/pcm;rate=16000".
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate())
}

// DataChunk wraps raw bytes as a chunk in this format.
func (f Format) DataChunk(data []byte) Chunk {
	return &DataChunk{Data: data, fmt: f}
}

// SilenceChunk returns d worth of silence.
func (f Format) SilenceChunk(d time.Duration) Chunk {
	return &SilenceChunk{Duration: d, len: f.BytesInDuration(d), fmt: f}
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate(), f.Channels())
}

// Chunk is a span of audio in a known format.
type Chunk interface {
	Len() int64
	Format() Format
	WriteTo(w io.Writer) (int64, error)
}

// DataChunk is a chunk backed by raw PCM bytes.
type DataChunk struct {
	Data []byte
	fmt  Format
}

// Len returns the chunk size in bytes.
func (c *DataChunk) Len() int64 { return int64(len(c.Data)) }

// Format returns the chunk format.
func (c *DataChunk) Format() Format { return c.fmt }

// WriteTo writes the raw bytes to w.
func (c *DataChunk) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Data)
	return int64(n), err
}

// SilenceChunk is a chunk of zero samples.
type SilenceChunk struct {
	Duration time.Duration
	len      int64
	fmt      Format
}

// Len returns the chunk size in bytes.
func (c *SilenceChunk) Len() int64 { return c.len }

// Format returns the chunk format.
func (c *SilenceChunk) Format() Format { return c.fmt }

var zeros [8192]byte

// WriteTo writes Len zero bytes to w.
func (c *SilenceChunk) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for written < c.len {
		n := min(c.len-written, int64(len(zeros)))
		m, err := w.Write(zeros[:n])
		written += int64(m)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
