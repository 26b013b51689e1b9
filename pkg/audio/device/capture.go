package device

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/haivivi/livestudio/pkg/audio/pcm"
	"github.com/haivivi/livestudio/pkg/live"
)

var _ live.CaptureStream = (*ReaderCapture)(nil)

// ReaderCapture turns a stream of 16-bit little-endian mono PCM into float
// samples.
type ReaderCapture struct {
	r       io.Reader
	closeFn func() error
	buf     []byte
	odd     []byte // trailing byte of an incomplete sample

	closeOnce sync.Once
	closeErr  error
}

// NewReaderCapture reads PCM from r. closeFn, if not nil, is called once by
// Close and must unblock a pending read.
func NewReaderCapture(r io.Reader, closeFn func() error) *ReaderCapture {
	return &ReaderCapture{r: r, closeFn: closeFn}
}

// ReadSamples reads up to len(p) samples.
func (c *ReaderCapture) ReadSamples(p []float32) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	need := len(p) * 2
	if cap(c.buf) < need {
		c.buf = make([]byte, need)
	}
	buf := c.buf[:need]
	n := copy(buf, c.odd)
	c.odd = c.odd[:0]
	for n < 2 {
		m, err := c.r.Read(buf[n:])
		n += m
		if err != nil {
			if n >= 2 {
				break
			}
			return 0, err
		}
	}
	whole := n &^ 1
	if whole < n {
		c.odd = append(c.odd, buf[whole])
	}
	for i := 0; i < whole; i += 2 {
		p[i/2] = float32(int16(buf[i])|int16(buf[i+1])<<8) / 32768
	}
	return whole / 2, nil
}

// Close releases the source.
func (c *ReaderCapture) Close() error {
	c.closeOnce.Do(func() {
		if c.closeFn != nil {
			c.closeErr = c.closeFn()
		}
	})
	return c.closeErr
}

// pacedReader limits reads from r to the byte rate of format, so a file
// replays in real time. Close interrupts a pending wait.
type pacedReader struct {
	r      io.Reader
	format pcm.Format

	began time.Time
	read  int64
	ctx   context.Context
	stop  context.CancelFunc
}

func newPacedReader(r io.Reader, format pcm.Format) *pacedReader {
	ctx, stop := context.WithCancel(context.Background())
	return &pacedReader{r: r, format: format, ctx: ctx, stop: stop}
}

func (p *pacedReader) Read(b []byte) (int, error) {
	if p.began.IsZero() {
		p.began = time.Now()
	}
	ahead := p.format.Duration(p.read) - time.Since(p.began)
	if ahead > 0 {
		t := time.NewTimer(ahead)
		select {
		case <-t.C:
		case <-p.ctx.Done():
			t.Stop()
			return 0, fmt.Errorf("device: %w", io.ErrClosedPipe)
		}
	}
	if p.ctx.Err() != nil {
		return 0, fmt.Errorf("device: %w", io.ErrClosedPipe)
	}
	// One 20ms block per read keeps the pace smooth.
	if limit := int(p.format.BytesInDuration(20 * time.Millisecond)); len(b) > limit {
		b = b[:limit]
	}
	n, err := p.r.Read(b)
	p.read += int64(n)
	return n, err
}

func (p *pacedReader) Close() error {
	p.stop()
	return nil
}
