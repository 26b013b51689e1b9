package pcm

import (
	"errors"
	"io"
	"time"
)

// Writer consumes audio chunks.
type Writer interface {
	Write(Chunk) error
}

var _ Writer = WriteFunc(nil)

// WriteFunc adapts a function to Writer.
type WriteFunc func(Chunk) error

// Write implements Writer.
func (f WriteFunc) Write(c Chunk) error {
	return f(c)
}

// Discard is a Writer that drops every chunk.
var Discard Writer = WriteFunc(func(Chunk) error { return nil })

// ChunkWriter returns a Writer that serializes chunks onto w.
func ChunkWriter(w io.Writer) Writer {
	return WriteFunc(func(c Chunk) error {
		_, err := c.WriteTo(w)
		return err
	})
}

// Copy reads raw PCM from r and writes it to w as chunks of at least 20ms.
// It returns nil when r is exhausted.
func Copy(w Writer, r io.Reader, format Format) error {
	minChunk := int(format.BytesInDuration(20 * time.Millisecond))
	buf := make([]byte, 10*minChunk)
	for {
		n, err := io.ReadAtLeast(r, buf, minChunk)
		if n > 0 {
			n -= n % format.FrameBytes()
			data := make([]byte, n)
			copy(data, buf[:n])
			if werr := w.Write(format.DataChunk(data)); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}
