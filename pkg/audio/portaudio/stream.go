package portaudio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/haivivi/livestudio/pkg/audio/pcm"
)

// InputStream records from the default input device.
type InputStream struct {
	s      *stream
	format pcm.Format
}

// NewInputStream opens and starts a capture stream. bufferDuration sets the
// device transfer size.
func NewInputStream(format pcm.Format, bufferDuration time.Duration) (*InputStream, error) {
	frames := int(format.SamplesInDuration(bufferDuration))
	s, err := openStream(true, format.Channels(), float64(format.SampleRate()), frames)
	if err != nil {
		return nil, err
	}
	return &InputStream{s: s, format: format}, nil
}

// Read blocks until len(samples) samples have been captured.
func (is *InputStream) Read(samples []int16) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	if err := is.s.read(samples); err != nil {
		return 0, err
	}
	return len(samples), nil
}

// Format returns the capture format.
func (is *InputStream) Format() pcm.Format {
	return is.format
}

// Close stops the stream. A Read blocked in the device returns once the
// current transfer completes.
func (is *InputStream) Close() error {
	return is.s.close()
}

// OutputStream plays to the default output device.
type OutputStream struct {
	s      *stream
	format pcm.Format
}

var _ pcm.Writer = (*OutputStream)(nil)

// NewOutputStream opens and starts a playback stream.
func NewOutputStream(format pcm.Format, bufferDuration time.Duration) (*OutputStream, error) {
	frames := int(format.SamplesInDuration(bufferDuration))
	s, err := openStream(false, format.Channels(), float64(format.SampleRate()), frames)
	if err != nil {
		return nil, err
	}
	return &OutputStream{s: s, format: format}, nil
}

// WriteSamples plays samples, blocking while the device buffer is full.
func (os *OutputStream) WriteSamples(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	return os.s.write(samples)
}

// Write implements pcm.Writer. The chunk must be in the stream's format.
func (os *OutputStream) Write(c pcm.Chunk) error {
	if c.Format() != os.format {
		return fmt.Errorf("portaudio: chunk format %v does not match stream format %v", c.Format(), os.format)
	}
	var b bytes.Buffer
	if _, err := c.WriteTo(&b); err != nil {
		return err
	}
	data := b.Bytes()
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return os.WriteSamples(samples)
}

// Format returns the playback format.
func (os *OutputStream) Format() pcm.Format {
	return os.format
}

// Close stops the stream.
func (os *OutputStream) Close() error {
	return os.s.close()
}
