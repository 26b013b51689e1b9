package live

import (
	"log/slog"
	"time"
)

const (
	// DefaultModel is a native-audio dialog model.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	// DefaultSystemPrompt is sent when Config.SystemPrompt is empty.
	DefaultSystemPrompt = "You are a friendly and helpful conversational assistant."

	// ModalityAudio is the only response modality a Session requests.
	ModalityAudio = "AUDIO"
)

// Config holds the parameters of a Session. Zero fields take defaults.
type Config struct {
	Model        string
	SystemPrompt string

	// Voice is an optional prebuilt voice name.
	Voice string

	CaptureRate  int
	PlaybackRate int

	// BlockSize is the number of samples per outbound chunk.
	BlockSize int

	// ConnectTimeout bounds connection setup. An established connection
	// is never timed out.
	ConnectTimeout time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Model:          DefaultModel,
		SystemPrompt:   DefaultSystemPrompt,
		CaptureRate:    16000,
		PlaybackRate:   24000,
		BlockSize:      4096,
		ConnectTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	if c.CaptureRate <= 0 {
		c.CaptureRate = d.CaptureRate
	}
	if c.PlaybackRate <= 0 {
		c.PlaybackRate = d.PlaybackRate
	}
	if c.BlockSize <= 0 {
		c.BlockSize = d.BlockSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	return c
}

// Option configures a Session.
//
// Callbacks run on session goroutines. Transcript and turn callbacks run on
// the event loop and must not call Stop. The state callback may call Stop.
type Option func(*Session)

// WithConfig sets the session configuration.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg.withDefaults()
	}
}

// WithOnState registers a callback invoked on every state transition.
func WithOnState(fn func(State)) Option {
	return func(s *Session) {
		s.onState = fn
	}
}

// WithOnError registers a callback for the error that ends a run.
func WithOnError(fn func(error)) Option {
	return func(s *Session) {
		s.onError = fn
	}
}

// WithOnTranscript registers a callback invoked whenever the running
// transcript changes.
func WithOnTranscript(fn func(Transcript)) Option {
	return func(s *Session) {
		s.onTranscript = fn
	}
}

// WithOnTurn registers a callback invoked with every finalized turn.
func WithOnTurn(fn func(Turn)) Option {
	return func(s *Session) {
		s.onTurn = fn
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}
