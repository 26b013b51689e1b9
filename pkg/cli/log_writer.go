package cli

import (
	"strings"

	"github.com/haivivi/livestudio/pkg/buffer"
)

// LogWriter keeps the last lines written to it, for showing logs inside a
// TUI. It is safe for concurrent use.
type LogWriter struct {
	lines  *buffer.RingBuffer[string]
	notify chan struct{}
}

// NewLogWriter keeps up to maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		lines:  buffer.RingN[string](maxLines),
		notify: make(chan struct{}, 1),
	}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		_ = w.lines.Add(line)
	}
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return len(p), nil
}

// Lines returns the kept lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.lines.Bytes()
}

// Updated receives a value after writes. Bursts coalesce into one.
func (w *LogWriter) Updated() <-chan struct{} {
	return w.notify
}
