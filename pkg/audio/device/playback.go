package device

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/haivivi/livestudio/pkg/audio/pcm"
	"github.com/haivivi/livestudio/pkg/audio/playout"
	"github.com/haivivi/livestudio/pkg/codec"
	"github.com/haivivi/livestudio/pkg/live"
)

var _ live.PlaybackDevice = (*Playback)(nil)

// Playback schedules buffers on a playout.Device and pumps the mix into a
// sink until closed.
type Playback struct {
	dev       *playout.Device
	closeSink func() error

	cancel    context.CancelFunc
	pumpDone  chan struct{}
	pumpErr   error
	closeOnce sync.Once
}

// NewPlayback starts pumping a mix in format into sink. closeSink, if not
// nil, is called by Close after the pump stops.
func NewPlayback(format pcm.Format, sink pcm.Writer, closeSink func() error, opts ...playout.Option) *Playback {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Playback{
		dev:       playout.New(format, opts...),
		closeSink: closeSink,
		cancel:    cancel,
		pumpDone:  make(chan struct{}),
	}
	go func() {
		defer close(p.pumpDone)
		if err := p.dev.Pump(ctx, sink); err != nil {
			slog.Warn("device: playback pump stopped", "err", err)
			p.pumpErr = err
		}
	}()
	return p
}

// Now returns the playback clock.
func (p *Playback) Now() time.Duration {
	return p.dev.Now()
}

// Start schedules buf at the given clock position.
func (p *Playback) Start(buf *codec.AudioBuffer, at time.Duration, onEnded func()) (live.Voice, error) {
	v, err := p.dev.Start(buf, at, onEnded)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Play schedules buf as soon as possible and blocks until it has been
// rendered or ctx is done.
func (p *Playback) Play(ctx context.Context, buf *codec.AudioBuffer) error {
	ended := make(chan struct{})
	v, err := p.dev.Start(buf, p.dev.Now(), func() { close(ended) })
	if err != nil {
		return err
	}
	select {
	case <-ended:
		return nil
	case <-p.pumpDone:
		if p.pumpErr != nil {
			return p.pumpErr
		}
		return playout.ErrClosed
	case <-ctx.Done():
		v.Stop()
		return ctx.Err()
	}
}

// SetGain sets the output gain.
func (p *Playback) SetGain(gain float32) {
	p.dev.SetGain(gain)
}

// Close stops the pump, drops scheduled audio and closes the sink.
func (p *Playback) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.pumpDone
		err = p.dev.Close()
		if p.closeSink != nil {
			err = errors.Join(err, p.closeSink())
		}
	})
	return err
}
