package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/haivivi/livestudio/pkg/codec"
)

func startSession(t *testing.T, d *fakeDevices, c *fakeConnector, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithConfig(Config{BlockSize: 4})}, opts...)
	s := NewSession(d, c, opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestStartConnectsWithAudioAndTranscription(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := startSession(t, d, c)

	if st := s.State(); st != StateActive {
		t.Fatalf("state = %v, want active", st)
	}
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()
	if cfg.Model != DefaultModel || cfg.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("connect config = %+v", cfg)
	}
	if cfg.ResponseModality != ModalityAudio || !cfg.InputTranscription || !cfg.OutputTranscription {
		t.Errorf("connect config = %+v", cfg)
	}
	if s.RunID() == "" {
		t.Error("empty run id")
	}
}

func TestStartWhileActive(t *testing.T) {
	s := startSession(t, &fakeDevices{}, &fakeConnector{})
	if err := s.Start(context.Background()); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start = %v, want ErrSessionActive", err)
	}
}

func TestGaplessScheduling(t *testing.T) {
	d := &fakeDevices{now: 5 * time.Second}
	c := &fakeConnector{}
	startSession(t, d, c)
	conn := c.conn()
	pb := d.playback()

	for range 3 {
		conn.push(t, audioPayload(100*time.Millisecond))
	}
	waitFor(t, "three units", func() bool { return len(pb.scheduled()) == 3 })

	want := []time.Duration{5 * time.Second, 5100 * time.Millisecond, 5200 * time.Millisecond}
	got := pb.scheduled()
	for i, w := range want {
		if got[i].at != w {
			t.Errorf("unit %d start = %v, want %v", i, got[i].at, w)
		}
		if got[i].duration != 100*time.Millisecond {
			t.Errorf("unit %d duration = %v", i, got[i].duration)
		}
	}

	// Underrun: the clock moved past the end of the queue.
	pb.setNow(10 * time.Second)
	conn.push(t, audioPayload(50*time.Millisecond))
	waitFor(t, "fourth unit", func() bool { return len(pb.scheduled()) == 4 })
	if at := pb.scheduled()[3].at; at != 10*time.Second {
		t.Errorf("unit after underrun start = %v, want 10s", at)
	}
}

func TestInterruptionFlushesAndReanchors(t *testing.T) {
	d := &fakeDevices{now: time.Second}
	c := &fakeConnector{}
	s := startSession(t, d, c)
	conn := c.conn()
	pb := d.playback()

	conn.push(t, audioPayload(100*time.Millisecond))
	conn.push(t, audioPayload(100*time.Millisecond))
	waitFor(t, "two units", func() bool { return len(pb.scheduled()) == 2 })

	conn.push(t, Interrupted{})
	waitFor(t, "flush", func() bool { return s.Stats().Interruptions == 1 })
	for i, u := range pb.scheduled() {
		if !u.voice.stopped.Load() {
			t.Errorf("unit %d still playing after interruption", i)
		}
	}

	pb.setNow(1050 * time.Millisecond)
	conn.push(t, audioPayload(100*time.Millisecond))
	waitFor(t, "third unit", func() bool { return len(pb.scheduled()) == 3 })
	if at := pb.scheduled()[2].at; at != 1050*time.Millisecond {
		t.Errorf("start after interruption = %v, want 1.05s", at)
	}
}

func TestTranscriptFinalizedAtomically(t *testing.T) {
	var (
		mu    sync.Mutex
		turns []Turn
	)
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := startSession(t, d, c, WithOnTurn(func(turn Turn) {
		mu.Lock()
		turns = append(turns, turn)
		mu.Unlock()
	}))
	conn := c.conn()

	conn.push(t, InputTranscript{Text: "Hel"})
	conn.push(t, OutputTranscript{Text: "Hi"})
	conn.push(t, InputTranscript{Text: "lo"})
	conn.push(t, OutputTranscript{Text: " there"})
	waitFor(t, "transcript", func() bool {
		return s.Transcript() == Transcript{User: "Hello", Model: "Hi there"}
	})

	conn.push(t, TurnComplete{})
	waitFor(t, "turn", func() bool { return len(s.History()) == 1 })

	h := s.History()
	if h[0].User != "Hello" || h[0].Model != "Hi there" || h[0].Index != 0 {
		t.Errorf("turn = %+v", h[0])
	}
	if !s.Transcript().Empty() {
		t.Errorf("transcript not reset: %+v", s.Transcript())
	}

	conn.push(t, OutputTranscript{Text: "again"})
	conn.push(t, TurnComplete{})
	waitFor(t, "second turn", func() bool { return len(s.History()) == 2 })
	if h := s.History()[1]; h.User != "" || h.Model != "again" || h.Index != 1 {
		t.Errorf("second turn = %+v", h)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(turns) != 2 {
		t.Errorf("OnTurn called %d times, want 2", len(turns))
	}
}

func TestCaptureSendsBlocksInOrder(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	startSession(t, d, c)
	capture := d.capture()
	conn := c.conn()

	blocks := [][]float32{
		{0.5, -0.5, 0.25, 0},
		{1, -1, 0.125, -0.125},
	}
	for _, b := range blocks {
		capture.blocks <- b
	}
	for i, b := range blocks {
		select {
		case chunk := <-conn.sent:
			if chunk.MIMEType != "audio/pcm;rate=16000" {
				t.Errorf("chunk %d mime = %q", i, chunk.MIMEType)
			}
			want := codec.EncodeBase64(codec.FloatToPCM16(b))
			if chunk.Data != want {
				t.Errorf("chunk %d data = %q, want %q", i, chunk.Data, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("chunk %d not sent", i)
		}
	}
}

func TestSendFailureKeepsCapturing(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := NewSession(d, connectorFunc(func(ctx context.Context, cfg ConnectConfig) (Conn, error) {
		conn := newFakeConn()
		conn.sendErr = errors.New("network down")
		c.mu.Lock()
		c.conns = append(c.conns, conn)
		c.mu.Unlock()
		return conn, nil
	}), WithConfig(Config{BlockSize: 2}))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	capture := d.capture()
	for range 3 {
		capture.blocks <- []float32{0.1, 0.2}
	}
	waitFor(t, "send failures", func() bool { return s.Stats().SendFailures == 3 })
	if st := s.State(); st != StateActive {
		t.Fatalf("state = %v after send failures, want active", st)
	}
}

type connectorFunc func(ctx context.Context, cfg ConnectConfig) (Conn, error)

func (f connectorFunc) Connect(ctx context.Context, cfg ConnectConfig) (Conn, error) {
	return f(ctx, cfg)
}

func TestDecodeFailureSkipsPayload(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := startSession(t, d, c)
	conn := c.conn()

	conn.push(t, AudioPayload{Data: "not base64!"})
	conn.push(t, AudioPayload{Data: codec.EncodeBase64([]byte{1, 2, 3})})
	conn.push(t, audioPayload(10*time.Millisecond))
	waitFor(t, "valid unit", func() bool { return len(d.playback().scheduled()) == 1 })

	if got := s.Stats().DecodeFailures; got != 2 {
		t.Errorf("decode failures = %d, want 2", got)
	}
	if st := s.State(); st != StateActive {
		t.Errorf("state = %v, want active", st)
	}
}

func TestStopIdempotent(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := NewSession(d, c, WithConfig(Config{BlockSize: 4}))
	s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn := c.conn()
	conn.push(t, audioPayload(time.Second))
	waitFor(t, "unit", func() bool { return len(d.playback().scheduled()) == 1 })

	s.Stop()
	s.Stop()

	if st := s.State(); st != StateIdle {
		t.Fatalf("state = %v, want idle", st)
	}
	if !d.capture().isClosed() || !d.playback().closed.Load() {
		t.Error("devices left open")
	}
	if n := conn.closes.Load(); n != 1 {
		t.Errorf("connection closed %d times, want 1", n)
	}
	if !d.playback().scheduled()[0].voice.stopped.Load() {
		t.Error("in-flight unit not stopped")
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done not closed after Stop")
	}
}

func TestStopDuringStart(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{block: true, entered: make(chan struct{})}
	s := NewSession(d, c)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	<-c.entered
	if st := s.State(); st != StateStarting {
		t.Fatalf("state = %v, want starting", st)
	}
	s.Stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrStopped) {
			t.Fatalf("Start = %v, want ErrStopped", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}
	if st := s.State(); st != StateIdle {
		t.Fatalf("state = %v, want idle", st)
	}
	if !d.capture().isClosed() || !d.playback().closed.Load() {
		t.Error("partially acquired devices left open")
	}
	s.Stop()
}

func TestStartFailureReleasesResources(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name          string
		devices       *fakeDevices
		connector     *fakeConnector
		captureClosed bool
	}{
		{"capture", &fakeDevices{captureErr: boom}, &fakeConnector{}, false},
		{"playback", &fakeDevices{playbackErr: boom}, &fakeConnector{}, true},
		{"connect", &fakeDevices{}, &fakeConnector{err: boom}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(tt.devices, tt.connector)
			err := s.Start(context.Background())
			if !errors.Is(err, boom) {
				t.Fatalf("Start = %v, want boom", err)
			}
			if st := s.State(); st != StateIdle {
				t.Fatalf("state = %v, want idle", st)
			}
			if tt.captureClosed && !tt.devices.capture().isClosed() {
				t.Error("capture left open")
			}
			if tt.name == "connect" && !tt.devices.playback().closed.Load() {
				t.Error("playback left open")
			}
		})
	}
}

func TestTransportErrorStopsSession(t *testing.T) {
	var (
		mu     sync.Mutex
		errs   []error
		states []State
	)
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := startSession(t, d, c,
		WithOnError(func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}),
		WithOnState(func(st State) {
			mu.Lock()
			states = append(states, st)
			mu.Unlock()
		}),
	)
	done := s.Done()
	conn := c.conn()

	boom := errors.New("connection reset")
	conn.events <- connEvent{err: boom}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	if st := s.State(); st != StateIdle {
		t.Fatalf("state = %v, want idle", st)
	}
	if !d.capture().isClosed() || !d.playback().closed.Load() {
		t.Error("devices left open")
	}
	if conn.closes.Load() == 0 {
		t.Error("connection not closed")
	}

	s.Stop()
	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Fatalf("errors = %v, want exactly one wrapping boom", errs)
	}
	want := []State{StateStarting, StateActive, StateStopping, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestRemoteCloseStopsWithoutError(t *testing.T) {
	var reported bool
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := startSession(t, d, c, WithOnError(func(error) { reported = true }))
	done := s.Done()

	close(c.conn().events)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	if reported {
		t.Error("clean close reported as error")
	}
	if st := s.State(); st != StateIdle {
		t.Fatalf("state = %v, want idle", st)
	}
}

func TestRestartKeepsHistory(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := NewSession(d, c)

	for i := range 2 {
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		c.conn().push(t, InputTranscript{Text: "hi"})
		c.conn().push(t, TurnComplete{})
		waitFor(t, "turn", func() bool { return len(s.History()) == i+1 })
		s.Stop()
	}
	if h := s.History(); h[1].Index != 1 {
		t.Errorf("second run turn index = %d, want 1", h[1].Index)
	}
}

func TestStopFromStateCallback(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	var s *Session
	s = NewSession(d, c, WithConfig(Config{BlockSize: 4}), WithOnState(func(st State) {
		if st == StateActive {
			s.Stop()
		}
	}))

	errc := make(chan error, 1)
	go func() { errc <- s.Start(context.Background()) }()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start did not return; state = %v", s.State())
	}

	if st := s.State(); st != StateIdle {
		t.Fatalf("state = %v, want idle", st)
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done not closed")
	}
	if !d.capture().isClosed() || !d.playback().closed.Load() || c.conn().closes.Load() == 0 {
		t.Error("resources not released")
	}
}

func TestCaptureEndSendsEndAudio(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := startSession(t, d, c)
	conn := c.conn()
	capture := d.capture()

	capture.blocks <- []float32{0.1, 0.2, 0.3, 0.4}
	capture.blocks <- []float32{0.5, 0.6, 0.7, 0.8}
	close(capture.blocks)

	select {
	case n := <-conn.ended:
		if n != 2 {
			t.Errorf("EndAudio after %d chunks, want 2", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EndAudio not sent after capture ended")
	}
	if st := s.State(); st != StateActive {
		t.Errorf("state = %v, want active until the peer answers", st)
	}
	if got := s.Stats().ChunksSent; got != 2 {
		t.Errorf("chunks sent = %d, want 2", got)
	}
}

func TestGoAwayKeepsSessionActive(t *testing.T) {
	d := &fakeDevices{}
	c := &fakeConnector{}
	s := startSession(t, d, c)

	c.conn().push(t, GoAway{TimeLeft: "10s"})
	c.conn().push(t, OutputTranscript{Text: "still here"})
	waitFor(t, "transcript", func() bool { return s.Transcript().Model == "still here" })
	if st := s.State(); st != StateActive {
		t.Errorf("state = %v, want active", st)
	}
}
