// Package framesampler extracts evenly spaced still frames from a video.
//
// A Sampler drives a Decoder through a sequence of seek points, strictly one
// at a time, rasterizes the frame at each point and encodes it as JPEG.
// Frames are returned in timestamp order.
package framesampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/haivivi/livestudio/pkg/codec"
)

var (
	// ErrLoad is returned when the decoder cannot load the source.
	ErrLoad = errors.New("framesampler: failed to load video")

	// ErrNoFrames is returned when no frame could be captured.
	ErrNoFrames = errors.New("framesampler: no frames extracted")
)

// MIMEType is the media type of extracted frames.
const MIMEType = "image/jpeg"

// Metadata describes a loaded source.
type Metadata struct {
	// Duration is zero when the source does not report one.
	Duration time.Duration
	Width    int
	Height   int
}

// Decoder is a video decoding element with a single playback position.
type Decoder interface {
	Load(ctx context.Context, src []byte) (Metadata, error)

	// Seek moves the playback position and returns once it has settled.
	Seek(ctx context.Context, t time.Duration) error

	// Rasterize returns the frame at the current position.
	Rasterize(ctx context.Context) (image.Image, error)

	Close() error
}

// Frame is one extracted still.
type Frame struct {
	Timestamp time.Duration `json:"timestamp"`
	MIMEType  string        `json:"mime_type"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Data      []byte        `json:"-"`
}

// Base64 returns the encoded image as base64 text.
func (f Frame) Base64() string {
	return codec.EncodeBase64(f.Data)
}

// Blob returns the frame as an inline payload.
func (f Frame) Blob() codec.Blob {
	return codec.Blob{MIMEType: f.MIMEType, Data: f.Base64()}
}

// Timestamps returns count points spread evenly across duration, excluding
// both ends: duration*i/(count+1) for i in 1..count.
func Timestamps(duration time.Duration, count int) []time.Duration {
	if count <= 0 || duration <= 0 {
		return nil
	}
	out := make([]time.Duration, count)
	for i := range count {
		out[i] = duration * time.Duration(i+1) / time.Duration(count+1)
	}
	return out
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithSettleDelay sets how long to wait before the single capture made
// when the source reports no duration. The default is one second.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Sampler) {
		s.settle = d
	}
}

// WithJPEGQuality sets the encoder quality, 1-100. The default is 92.
func WithJPEGQuality(q int) Option {
	return func(s *Sampler) {
		s.quality = q
	}
}

// Sampler extracts frames through a Decoder. It does not close the decoder.
type Sampler struct {
	dec     Decoder
	settle  time.Duration
	quality int
}

// New returns a Sampler using dec.
func New(dec Decoder, opts ...Option) *Sampler {
	s := &Sampler{
		dec:     dec,
		settle:  time.Second,
		quality: 92,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract loads src and captures count frames. If loading fails it returns
// no frames and an error wrapping ErrLoad. If a capture fails, the frames
// taken so far are returned together with the error.
func (s *Sampler) Extract(ctx context.Context, src []byte, count int) ([]Frame, error) {
	if count <= 0 {
		return nil, fmt.Errorf("framesampler: invalid frame count %d", count)
	}
	meta, err := s.dec.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if meta.Duration <= 0 {
		return s.extractOne(ctx)
	}

	frames := make([]Frame, 0, count)
	for _, ts := range Timestamps(meta.Duration, count) {
		if err := s.dec.Seek(ctx, ts); err != nil {
			return frames, fmt.Errorf("framesampler: seek to %v: %w", ts, err)
		}
		f, err := s.capture(ctx, ts)
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func (s *Sampler) extractOne(ctx context.Context) ([]Frame, error) {
	t := time.NewTimer(s.settle)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	f, err := s.capture(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFrames, err)
	}
	return []Frame{f}, nil
}

func (s *Sampler) capture(ctx context.Context, ts time.Duration) (Frame, error) {
	img, err := s.dec.Rasterize(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("framesampler: rasterize at %v: %w", ts, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return Frame{}, fmt.Errorf("framesampler: encode at %v: %w", ts, err)
	}
	b := img.Bounds()
	return Frame{
		Timestamp: ts,
		MIMEType:  MIMEType,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Data:      buf.Bytes(),
	}, nil
}
