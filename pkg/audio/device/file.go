package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/haivivi/livestudio/pkg/audio/pcm"
	"github.com/haivivi/livestudio/pkg/audio/resampler"
	"github.com/haivivi/livestudio/pkg/live"
)

var _ live.Devices = (*File)(nil)

// File replays a raw 16-bit PCM file as the microphone and renders playback
// into a writer.
type File struct {
	// Path is the input file.
	Path string

	// Format describes the input file. Channels above one are averaged.
	Format resampler.Format

	// Output receives rendered playback. Nil discards it.
	Output io.Writer

	// Gain scales playback. Zero means unity.
	Gain float32
}

// OpenCapture replays the file, resampled to sampleRate, in real time. The
// stream ends with io.EOF when the file is exhausted.
func (d *File) OpenCapture(ctx context.Context, sampleRate int) (live.CaptureStream, error) {
	format, err := pcm.FormatOf(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("device: open input: %w", err)
	}
	rs, err := resampler.New(f, d.Format, sampleRate)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("device: %w", err)
	}
	paced := newPacedReader(rs, format)
	return NewReaderCapture(paced, func() error {
		paced.Close()
		return errors.Join(rs.Close(), f.Close())
	}), nil
}

// OpenPlayback renders the mix into Output in real time.
func (d *File) OpenPlayback(ctx context.Context, sampleRate int) (live.PlaybackDevice, error) {
	format, err := pcm.FormatOf(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	sink := pcm.Discard
	if d.Output != nil {
		sink = pcm.ChunkWriter(d.Output)
	}
	pb := NewPlayback(format, sink, nil)
	if d.Gain > 0 {
		pb.SetGain(d.Gain)
	}
	return pb, nil
}
