package resampler

import (
	"errors"
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Reader converts PCM read from a source into mono PCM at a target rate.
// Multi-channel input is averaged down to one channel before resampling.
type Reader struct {
	src     io.Reader
	srcFmt  Format
	dstRate int

	mu       sync.Mutex
	rs       resampling.Resampler
	readBuf  []byte
	partial  []byte // incomplete source frame carried between reads
	leftover []byte // converted output not yet returned
	srcErr   error
	closeErr error
}

// New returns a Reader producing mono PCM at dstRate from src in srcFmt.
func New(src io.Reader, srcFmt Format, dstRate int) (*Reader, error) {
	if err := srcFmt.validate(); err != nil {
		return nil, err
	}
	if dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid target rate %d", dstRate)
	}
	r := &Reader{src: src, srcFmt: srcFmt, dstRate: dstRate}
	if srcFmt.SampleRate != dstRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcFmt.SampleRate),
			OutputRate: float64(dstRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: create: %w", err)
		}
		r.rs = rs
	}
	return r, nil
}

// Read returns converted mono PCM. The byte count is always even.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) < 2 {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)&^1]

	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if len(r.leftover) > 0 {
			n := copy(p, r.leftover)
			r.leftover = r.leftover[n:]
			return n, nil
		}
		if r.closeErr != nil {
			return 0, r.closeErr
		}
		if r.srcErr != nil {
			return 0, r.srcErr
		}
		if err := r.fill(len(p)); err != nil {
			r.srcErr = err
		}
	}
}

// fill reads one batch from the source and appends converted output to
// leftover. A returned error is sticky and reported once leftover drains.
func (r *Reader) fill(want int) error {
	frameBytes := r.srcFmt.frameBytes()
	need := want / 2 * frameBytes
	if r.rs != nil {
		need = int(float64(need)*float64(r.srcFmt.SampleRate)/float64(r.dstRate)) + frameBytes
	}
	need = max(need, frameBytes)
	if cap(r.readBuf) < need {
		r.readBuf = make([]byte, need)
	}
	buf := r.readBuf[:need]
	n := copy(buf, r.partial)
	rn, err := r.src.Read(buf[n:])
	n += rn
	whole := n / frameBytes * frameBytes
	r.partial = append(r.partial[:0], buf[whole:n]...)

	mono := r.downmix(buf[:whole])
	if r.rs == nil {
		r.leftover = append(r.leftover, encode(mono)...)
	} else if len(mono) > 0 {
		out, perr := r.rs.Process(mono)
		if perr != nil {
			return fmt.Errorf("resampler: process: %w", perr)
		}
		r.leftover = append(r.leftover, encode(out)...)
	}

	if err != nil {
		if errors.Is(err, io.EOF) && len(r.partial) > 0 {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

func (r *Reader) downmix(data []byte) []float64 {
	channels := r.srcFmt.channels()
	frames := len(data) / (channels * 2)
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			j := (i*channels + ch) * 2
			sum += float64(int16(data[j]) | int16(data[j+1])<<8)
		}
		out[i] = sum / float64(channels) / 32768
	}
	return out
}

func encode(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		var v int16
		switch {
		case s >= 1:
			v = 32767
		case s <= -1:
			v = -32768
		default:
			v = int16(s * 32768)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// Close releases the resampler. Subsequent reads fail with io.ErrClosedPipe.
func (r *Reader) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError releases the resampler; subsequent reads return err.
func (r *Reader) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.leftover = nil
	r.rs = nil
	return nil
}
