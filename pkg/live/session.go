package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/livestudio/pkg/buffer"
	"github.com/haivivi/livestudio/pkg/codec"
)

var (
	// ErrSessionActive is returned by Start when a run is already in
	// progress.
	ErrSessionActive = errors.New("live: session already active")

	// ErrStopped is returned by Start when Stop interrupts it.
	ErrStopped = errors.New("live: session stopped")
)

// State is the lifecycle state of a Session.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Stats counts the activity of the current run.
type Stats struct {
	ChunksSent     int64 `json:"chunks_sent"`
	SendFailures   int64 `json:"send_failures"`
	UnitsScheduled int64 `json:"units_scheduled"`
	DecodeFailures int64 `json:"decode_failures"`
	Interruptions  int64 `json:"interruptions"`
	Turns          int64 `json:"turns"`
}

// Session is a live conversation. A Session may be started again after it
// stops; at most one run is in progress at a time.
type Session struct {
	devices   Devices
	connector Connector
	cfg       Config
	log       *slog.Logger

	onState      func(State)
	onError      func(error)
	onTranscript func(Transcript)
	onTurn       func(Turn)

	mu         sync.Mutex
	state      State
	run        *run
	done       chan struct{}
	transcript Transcript
	history    []Turn

	chunksSent     atomic.Int64
	sendFailures   atomic.Int64
	unitsScheduled atomic.Int64
	decodeFailures atomic.Int64
	interruptions  atomic.Int64
	turns          atomic.Int64
}

// NewSession returns an idle session.
func NewSession(devices Devices, connector Connector, opts ...Option) *Session {
	done := make(chan struct{})
	close(done)
	s := &Session{
		devices:   devices,
		connector: connector,
		cfg:       DefaultConfig(),
		log:       slog.Default(),
		done:      done,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done returns a channel closed when the current run has been torn down.
// When idle it returns a closed channel.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Transcript returns the running transcript of the current turn.
func (s *Session) Transcript() Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// History returns the finalized turns, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Stats returns counters of the current or last run.
func (s *Session) Stats() Stats {
	return Stats{
		ChunksSent:     s.chunksSent.Load(),
		SendFailures:   s.sendFailures.Load(),
		UnitsScheduled: s.unitsScheduled.Load(),
		DecodeFailures: s.decodeFailures.Load(),
		Interruptions:  s.interruptions.Load(),
		Turns:          s.turns.Load(),
	}
}

// RunID returns the identifier of the current run, or "" when idle.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil {
		return ""
	}
	return s.run.id
}

// Start opens the capture stream, the playback device and the connection,
// then begins streaming. On failure everything acquired so far is released
// and the session is idle again. ctx bounds acquisition only. If the state
// callback stops the run as it becomes active, Start still returns nil.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSessionActive
	}
	startCtx, cancelStart := context.WithCancel(ctx)
	defer cancelStart()
	r := &run{
		id:          newRunID(),
		s:           s,
		cancelStart: cancelStart,
		done:        make(chan struct{}),
	}
	s.run = r
	s.done = r.done
	s.state = StateStarting
	s.transcript = Transcript{}
	s.resetStats()
	s.mu.Unlock()
	s.notifyState(StateStarting)

	err := r.acquire(startCtx)

	s.mu.Lock()
	stopped := r.stopRequested
	if err != nil || stopped {
		s.mu.Unlock()
		r.release()
		s.mu.Lock()
		s.state = StateIdle
		s.run = nil
		s.mu.Unlock()
		s.notifyState(StateIdle)
		close(r.done)
		if stopped {
			return ErrStopped
		}
		s.log.Warn("live: start failed", "run", r.id, "err", err)
		return err
	}
	s.state = StateActive
	r.begin()
	s.mu.Unlock()

	s.log.Info("live: session active", "run", r.id, "model", s.cfg.Model)
	s.notifyState(StateActive)
	close(r.ready)
	return nil
}

// Stop ends the current run and waits for teardown. It is a no-op when
// idle and may be called from any goroutine, including while Start is in
// progress.
func (s *Session) Stop() {
	s.mu.Lock()
	r := s.run
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return
	case StateStarting:
		r.stopRequested = true
		r.cancelStart()
		s.mu.Unlock()
		<-r.done
		return
	}
	s.mu.Unlock()
	s.stopRun(r, nil)
	<-r.done
}

// stopRun tears down r if it is still the active run. A non-nil cause is
// reported through the error callback once teardown completes.
func (s *Session) stopRun(r *run, cause error) {
	s.mu.Lock()
	if s.run != r || s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	s.mu.Unlock()
	s.notifyState(StateStopping)

	r.teardown()

	s.mu.Lock()
	s.state = StateIdle
	s.run = nil
	s.mu.Unlock()
	s.notifyState(StateIdle)

	if cause != nil {
		s.log.Error("live: session failed", "run", r.id, "err", cause)
		if s.onError != nil {
			s.onError(cause)
		}
	} else {
		s.log.Info("live: session stopped", "run", r.id)
	}
	close(r.done)
}

func (s *Session) notifyState(st State) {
	if s.onState != nil {
		s.onState(st)
	}
}

func (s *Session) resetStats() {
	s.chunksSent.Store(0)
	s.sendFailures.Store(0)
	s.unitsScheduled.Store(0)
	s.decodeFailures.Store(0)
	s.interruptions.Store(0)
	s.turns.Store(0)
}

func (s *Session) appendTranscript(user, model string) {
	if user == "" && model == "" {
		return
	}
	s.mu.Lock()
	s.transcript.User += user
	s.transcript.Model += model
	t := s.transcript
	s.mu.Unlock()
	if s.onTranscript != nil {
		s.onTranscript(t)
	}
}

func (s *Session) finalizeTurn(runID string) {
	s.mu.Lock()
	turn := Turn{
		RunID:       runID,
		Index:       len(s.history),
		User:        s.transcript.User,
		Model:       s.transcript.Model,
		CompletedAt: time.Now(),
	}
	s.history = append(s.history, turn)
	s.transcript = Transcript{}
	s.mu.Unlock()
	s.turns.Add(1)

	if s.onTurn != nil {
		s.onTurn(turn)
	}
	if s.onTranscript != nil {
		s.onTranscript(Transcript{})
	}
}

// run holds the resources of one Start..Stop cycle.
type run struct {
	id string
	s  *Session

	// Guarded by s.mu.
	stopRequested bool
	cancelStart   context.CancelFunc

	capture  CaptureStream
	playback PlaybackDevice
	conn     Conn

	ctx     context.Context
	cancel  context.CancelFunc
	closing atomic.Bool
	queue   *buffer.Buffer[AudioChunk]
	wg      sync.WaitGroup

	msgs     chan ServerMessage
	ended    chan uint64
	quit     chan struct{}
	loopDone chan struct{}
	ready    chan struct{}
	done     chan struct{}

	// Owned by the event loop.
	voices    map[uint64]Voice
	nextID    uint64
	nextStart time.Duration
}

func (r *run) acquire(ctx context.Context) error {
	cfg := r.s.cfg

	capture, err := r.s.devices.OpenCapture(ctx, cfg.CaptureRate)
	if err != nil {
		return fmt.Errorf("live: open capture: %w", err)
	}
	r.capture = capture
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("live: open capture: %w", err)
	}

	playback, err := r.s.devices.OpenPlayback(ctx, cfg.PlaybackRate)
	if err != nil {
		return fmt.Errorf("live: open playback: %w", err)
	}
	r.playback = playback
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("live: open playback: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	conn, err := r.s.connector.Connect(connCtx, ConnectConfig{
		Model:               cfg.Model,
		SystemPrompt:        cfg.SystemPrompt,
		Voice:               cfg.Voice,
		ResponseModality:    ModalityAudio,
		InputTranscription:  true,
		OutputTranscription: true,
	})
	if err != nil {
		return fmt.Errorf("live: connect: %w", err)
	}
	r.conn = conn
	return nil
}

// release closes whatever acquire obtained.
func (r *run) release() {
	log := r.s.log
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			log.Debug("live: close connection", "run", r.id, "err", err)
		}
	}
	if r.capture != nil {
		if err := r.capture.Close(); err != nil {
			log.Debug("live: close capture", "run", r.id, "err", err)
		}
	}
	if r.playback != nil {
		if err := r.playback.Close(); err != nil {
			log.Debug("live: close playback", "run", r.id, "err", err)
		}
	}
}

// begin starts the run goroutines. Called with s.mu held.
func (r *run) begin() {
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.queue = buffer.N[AudioChunk](16)
	r.msgs = make(chan ServerMessage)
	r.ended = make(chan uint64, 64)
	r.quit = make(chan struct{})
	r.loopDone = make(chan struct{})
	r.ready = make(chan struct{})
	r.voices = make(map[uint64]Voice)
	r.nextStart = r.playback.Now()

	go r.loop()
	r.wg.Add(3)
	go r.readLoop()
	go r.captureLoop()
	go r.sendLoop()
}

// teardown releases the run. The connection goes first so no message is
// handled against a half torn down run.
func (r *run) teardown() {
	log := r.s.log
	r.closing.Store(true)

	if err := r.conn.Close(); err != nil {
		log.Debug("live: close connection", "run", r.id, "err", err)
	}
	r.cancel()
	if err := r.capture.Close(); err != nil {
		log.Debug("live: close capture", "run", r.id, "err", err)
	}
	r.queue.Close()
	r.wg.Wait()

	close(r.quit)
	<-r.loopDone

	for id, v := range r.voices {
		v.Stop()
		delete(r.voices, id)
	}
	r.nextStart = 0
	if err := r.playback.Close(); err != nil {
		log.Debug("live: close playback", "run", r.id, "err", err)
	}
}

// loop handles server messages and playback completions one at a time.
func (r *run) loop() {
	defer close(r.loopDone)
	for {
		select {
		case <-r.quit:
			return
		case msg := <-r.msgs:
			r.handle(msg)
		case id := <-r.ended:
			delete(r.voices, id)
		}
	}
}

func (r *run) handle(msg ServerMessage) {
	switch m := msg.(type) {
	case InputTranscript:
		r.s.appendTranscript(m.Text, "")
	case OutputTranscript:
		r.s.appendTranscript("", m.Text)
	case TurnComplete:
		r.s.finalizeTurn(r.id)
	case AudioPayload:
		r.schedule(m)
	case Interrupted:
		r.flush()
	case GoAway:
		r.s.log.Warn("live: peer going away", "run", r.id, "time_left", m.TimeLeft)
	default:
		r.s.log.Debug("live: unhandled message", "run", r.id, "type", fmt.Sprintf("%T", msg))
	}
}

// schedule decodes an audio payload and queues it right after the previous
// unit, or at the current clock position if playback has fallen behind.
func (r *run) schedule(m AudioPayload) {
	log := r.s.log
	data, err := codec.DecodeBase64(m.Data)
	if err != nil {
		r.s.decodeFailures.Add(1)
		log.Warn("live: skip audio payload", "run", r.id, "err", err)
		return
	}
	buf, err := codec.PCM16ToFloat(data, r.s.cfg.PlaybackRate, 1)
	if err != nil {
		r.s.decodeFailures.Add(1)
		log.Warn("live: skip audio payload", "run", r.id, "err", err)
		return
	}
	if buf.Frames() == 0 {
		return
	}

	start := max(r.nextStart, r.playback.Now())
	id := r.nextID
	r.nextID++
	v, err := r.playback.Start(buf, start, func() { r.voiceEnded(id) })
	if err != nil {
		log.Warn("live: schedule audio", "run", r.id, "err", err)
		return
	}
	r.voices[id] = v
	r.nextStart = start + buf.Duration()
	r.s.unitsScheduled.Add(1)
}

// flush stops every scheduled unit and re-anchors the schedule to the clock.
func (r *run) flush() {
	for id, v := range r.voices {
		v.Stop()
		delete(r.voices, id)
	}
	r.nextStart = 0
	r.s.interruptions.Add(1)
	r.s.log.Debug("live: playback interrupted", "run", r.id)
}

func (r *run) voiceEnded(id uint64) {
	select {
	case r.ended <- id:
	case <-r.loopDone:
	}
}

func (r *run) readLoop() {
	defer r.wg.Done()
	select {
	case <-r.ready:
	case <-r.ctx.Done():
		// Stopped from the state callback before Start returned.
		return
	}

	for msg, err := range r.conn.Receive() {
		if err != nil {
			if r.closing.Load() {
				return
			}
			go r.s.stopRun(r, fmt.Errorf("live: receive: %w", err))
			return
		}
		select {
		case r.msgs <- msg:
		case <-r.quit:
			return
		}
	}
	if !r.closing.Load() {
		r.s.log.Info("live: connection closed by peer", "run", r.id)
		go r.s.stopRun(r, nil)
	}
}

func (r *run) captureLoop() {
	defer r.wg.Done()
	cfg := r.s.cfg
	mime := fmt.Sprintf("audio/pcm;rate=%d", cfg.CaptureRate)
	block := make([]float32, cfg.BlockSize)

	for {
		n, err := readBlock(r.capture, block)
		if n > 0 {
			chunk := AudioChunk{
				MIMEType: mime,
				Data:     codec.EncodeBase64(codec.FloatToPCM16(block[:n])),
			}
			if r.queue.Add(chunk) != nil {
				return
			}
		}
		if err != nil {
			if r.closing.Load() || r.ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				r.s.log.Info("live: capture ended", "run", r.id)
				r.queue.CloseWrite()
			} else {
				r.s.log.Warn("live: capture failed", "run", r.id, "err", err)
			}
			return
		}
	}
}

// readBlock fills block from c. It returns fewer samples only together
// with an error.
func readBlock(c CaptureStream, block []float32) (int, error) {
	n := 0
	for n < len(block) {
		m, err := c.ReadSamples(block[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r *run) sendLoop() {
	defer r.wg.Done()
	for {
		chunk, err := r.queue.Next()
		if errors.Is(err, buffer.ErrIteratorDone) {
			r.endAudio()
			return
		}
		if err != nil {
			return
		}
		if err := r.conn.SendAudio(r.ctx, chunk); err != nil {
			if r.closing.Load() {
				return
			}
			r.s.sendFailures.Add(1)
			r.s.log.Warn("live: send audio chunk", "run", r.id, "err", err)
			continue
		}
		r.s.chunksSent.Add(1)
	}
}

// endAudio runs once the capture stream is exhausted and every chunk has
// been sent.
func (r *run) endAudio() {
	if r.closing.Load() {
		return
	}
	if err := r.conn.EndAudio(r.ctx); err != nil {
		if !r.closing.Load() {
			r.s.log.Warn("live: end audio stream", "run", r.id, "err", err)
		}
		return
	}
	r.s.log.Debug("live: audio stream ended", "run", r.id)
}

// newRunID returns a time-ordered identifier so stored runs sort by start.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
