package live

import (
	"context"
	"iter"
	"time"

	"github.com/haivivi/livestudio/pkg/codec"
)

// Devices opens the audio endpoints of a run.
type Devices interface {
	OpenCapture(ctx context.Context, sampleRate int) (CaptureStream, error)
	OpenPlayback(ctx context.Context, sampleRate int) (PlaybackDevice, error)
}

// CaptureStream yields mono float samples in [-1, 1].
type CaptureStream interface {
	// ReadSamples blocks until at least one sample is available. It
	// returns io.EOF when the source is exhausted.
	ReadSamples(p []float32) (int, error)
	Close() error
}

// PlaybackDevice schedules buffers on a monotonic playback clock.
type PlaybackDevice interface {
	// Now returns the current position of the playback clock.
	Now() time.Duration

	// Start schedules buf to begin at the given clock position. onEnded
	// is called once when playback finishes naturally, never after
	// Voice.Stop. It must not be called from within Start.
	Start(buf *codec.AudioBuffer, at time.Duration, onEnded func()) (Voice, error)

	Close() error
}

// Voice is a scheduled playback unit.
type Voice interface {
	Stop()
}

// ConnectConfig describes the connection a Session asks for.
type ConnectConfig struct {
	Model               string
	SystemPrompt        string
	Voice               string
	ResponseModality    string
	InputTranscription  bool
	OutputTranscription bool
}

// Connector opens connections to the remote peer.
type Connector interface {
	Connect(ctx context.Context, cfg ConnectConfig) (Conn, error)
}

// Conn is an open duplex connection.
type Conn interface {
	SendAudio(ctx context.Context, chunk AudioChunk) error

	// EndAudio tells the peer no more audio follows, so it can answer
	// what it has heard.
	EndAudio(ctx context.Context) error

	// Receive yields server messages in arrival order. It ends without
	// an error when the peer closes normally.
	Receive() iter.Seq2[ServerMessage, error]

	Close() error
}
