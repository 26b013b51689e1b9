package live

import (
	"context"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haivivi/livestudio/pkg/codec"
)

type fakeCapture struct {
	blocks    chan []float32
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{
		blocks: make(chan []float32, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeCapture) ReadSamples(p []float32) (int, error) {
	select {
	case b, ok := <-c.blocks:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, b), nil
	case <-c.closed:
		return 0, io.ErrClosedPipe
	}
}

func (c *fakeCapture) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeCapture) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type scheduled struct {
	at       time.Duration
	duration time.Duration
	voice    *fakeVoice
}

type fakeVoice struct {
	onEnded func()
	stopped atomic.Bool
}

func (v *fakeVoice) Stop() { v.stopped.Store(true) }

type fakePlayback struct {
	mu     sync.Mutex
	now    time.Duration
	starts []scheduled
	closed atomic.Bool
}

func (p *fakePlayback) Now() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

func (p *fakePlayback) setNow(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = d
}

func (p *fakePlayback) Start(buf *codec.AudioBuffer, at time.Duration, onEnded func()) (Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := &fakeVoice{onEnded: onEnded}
	p.starts = append(p.starts, scheduled{at: at, duration: buf.Duration(), voice: v})
	return v, nil
}

func (p *fakePlayback) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *fakePlayback) scheduled() []scheduled {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]scheduled(nil), p.starts...)
}

type fakeDevices struct {
	mu          sync.Mutex
	captures    []*fakeCapture
	playbacks   []*fakePlayback
	captureErr  error
	playbackErr error
	now         time.Duration
}

func (d *fakeDevices) OpenCapture(ctx context.Context, sampleRate int) (CaptureStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.captureErr != nil {
		return nil, d.captureErr
	}
	c := newFakeCapture()
	d.captures = append(d.captures, c)
	return c, nil
}

func (d *fakeDevices) OpenPlayback(ctx context.Context, sampleRate int) (PlaybackDevice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playbackErr != nil {
		return nil, d.playbackErr
	}
	p := &fakePlayback{now: d.now}
	d.playbacks = append(d.playbacks, p)
	return p, nil
}

func (d *fakeDevices) capture() *fakeCapture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.captures[len(d.captures)-1]
}

func (d *fakeDevices) playback() *fakePlayback {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playbacks[len(d.playbacks)-1]
}

type connEvent struct {
	msg ServerMessage
	err error
}

type fakeConn struct {
	events    chan connEvent
	sent      chan AudioChunk
	sendErr   error
	closed    chan struct{}
	closeOnce sync.Once
	closes    atomic.Int32

	// ended receives the number of chunks sent before EndAudio.
	ended chan int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		events: make(chan connEvent),
		sent:   make(chan AudioChunk, 64),
		closed: make(chan struct{}),
		ended:  make(chan int, 1),
	}
}

func (c *fakeConn) EndAudio(ctx context.Context) error {
	select {
	case c.ended <- len(c.sent):
	default:
	}
	return nil
}

func (c *fakeConn) SendAudio(ctx context.Context, chunk AudioChunk) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	select {
	case c.sent <- chunk:
	default:
	}
	return nil
}

func (c *fakeConn) Receive() iter.Seq2[ServerMessage, error] {
	return func(yield func(ServerMessage, error) bool) {
		for {
			select {
			case ev, ok := <-c.events:
				if !ok {
					return
				}
				if !yield(ev.msg, ev.err) || ev.err != nil {
					return
				}
			case <-c.closed:
				return
			}
		}
	}
}

func (c *fakeConn) Close() error {
	c.closes.Add(1)
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// push delivers msg to the session, failing the test if it is not taken.
func (c *fakeConn) push(t *testing.T, msg ServerMessage) {
	t.Helper()
	select {
	case c.events <- connEvent{msg: msg}:
	case <-time.After(2 * time.Second):
		t.Fatalf("message %T not consumed", msg)
	}
}

type fakeConnector struct {
	mu      sync.Mutex
	conns   []*fakeConn
	err     error
	block   bool
	entered chan struct{}
	cfg     ConnectConfig
}

func (f *fakeConnector) Connect(ctx context.Context, cfg ConnectConfig) (Conn, error) {
	f.mu.Lock()
	f.cfg = cfg
	block, err, entered := f.block, f.err, f.entered
	f.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	c := newFakeConn()
	f.mu.Lock()
	f.conns = append(f.conns, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeConnector) conn() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[len(f.conns)-1]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// audioPayload returns a silent 24 kHz payload lasting d.
func audioPayload(d time.Duration) AudioPayload {
	n := int(d * 24000 / time.Second)
	return AudioPayload{
		MIMEType: "audio/pcm;rate=24000",
		Data:     codec.EncodeBase64(codec.FloatToPCM16(make([]float32, n))),
	}
}
