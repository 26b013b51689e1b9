package geminilive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is a live websocket session.
type Session struct {
	id        string
	conn      *websocket.Conn
	config    *ConnectConfig
	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once
	mu        sync.Mutex
}

type eventOrError struct {
	msg *ServerMessage
	err error
}

// Connect dials the Live API, sends the setup message and waits for the
// server to acknowledge it. The context bounds the whole exchange.
func (c *Client) Connect(ctx context.Context, config *ConnectConfig) (*Session, error) {
	if config == nil {
		config = &ConnectConfig{}
	}
	if config.Model == "" {
		config.Model = ModelNativeAudio
	}

	header := c.config.header.Clone()
	header.Set("x-goog-api-key", c.config.apiKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, c.config.wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("geminilive: dial: %w", err)
	}

	s := &Session{
		id:       uuid.NewString(),
		conn:     conn,
		config:   config,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}

	if err := s.handshake(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

func (s *Session) handshake(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	if err := s.send(clientMessage{Setup: buildSetup(s.config)}); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("geminilive: setup: %w", ctx.Err())
		}
		return fmt.Errorf("geminilive: setup: %w", err)
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("geminilive: await setup: %w", ctx.Err())
			}
			return readError(err)
		}
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("geminilive: await setup: decode: %w", err)
		}
		if msg.SetupComplete != nil {
			slog.Debug("geminilive: setup complete", "session", s.id, "model", s.config.Model)
			return nil
		}
	}
}

func buildSetup(cfg *ConnectConfig) *setup {
	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	st := &setup{Model: model}

	gc := &generationConfig{ResponseModalities: cfg.ResponseModalities}
	if cfg.Voice != "" {
		gc.SpeechConfig = &speechConfig{
			VoiceConfig: &voiceConfig{
				PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if len(gc.ResponseModalities) > 0 || gc.SpeechConfig != nil {
		st.GenerationConfig = gc
	}
	if cfg.SystemInstruction != "" {
		st.SystemInstruction = &Content{Parts: []Part{{Text: cfg.SystemInstruction}}}
	}
	if cfg.InputTranscription {
		st.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputTranscription {
		st.OutputAudioTranscription = &struct{}{}
	}
	return st
}

// ID returns a locally generated identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// SendAudio streams one chunk of base64-encoded audio.
func (s *Session) SendAudio(ctx context.Context, audio Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(clientMessage{RealtimeInput: &realtimeInput{Audio: &audio}})
}

// SendAudioStreamEnd tells the server the audio stream has paused.
func (s *Session) SendAudioStreamEnd(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(clientMessage{RealtimeInput: &realtimeInput{AudioStreamEnd: true}})
}

// SendText adds a user text turn.
func (s *Session) SendText(ctx context.Context, text string, turnComplete bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(clientMessage{ClientContent: &clientContent{
		Turns:        []Content{{Role: "user", Parts: []Part{{Text: text}}}},
		TurnComplete: turnComplete,
	}})
}

// Events returns an iterator over server messages. Iteration ends after the
// first error, when the server closes normally, or when the session is
// closed.
func (s *Session) Events() iter.Seq2[*ServerMessage, error] {
	return func(yield func(*ServerMessage, error) bool) {
		for {
			select {
			case <-s.closeCh:
				return
			case item, ok := <-s.eventsCh:
				if !ok {
					return
				}
				if !yield(item.msg, item.err) {
					return
				}
				if item.err != nil {
					return
				}
			}
		}
	}
}

// Close closes the session. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *Session) closed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

func (s *Session) send(msg clientMessage) error {
	if s.closed() {
		return ErrClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("geminilive: marshal: %w", err)
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		str := string(data)
		if len(str) > 500 {
			str = str[:500] + "..."
		}
		slog.Debug("geminilive: sending", "session", s.id, "content", str)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if s.closed() {
			return ErrClosed
		}
		return fmt.Errorf("geminilive: write: %w", err)
	}
	return nil
}

func (s *Session) readLoop() {
	defer close(s.eventsCh)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			select {
			case <-s.closeCh:
			case s.eventsCh <- eventOrError{err: readError(err)}:
			}
			return
		}

		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			str := string(data)
			if len(str) > 1000 {
				str = str[:1000] + "..."
			}
			slog.Debug("geminilive: received", "session", s.id, "len", len(data), "content", str)
		}

		msg := &ServerMessage{Raw: data}
		if err := json.Unmarshal(data, msg); err != nil {
			select {
			case <-s.closeCh:
				return
			case s.eventsCh <- eventOrError{err: fmt.Errorf("geminilive: decode: %w", err)}:
			}
			return
		}

		select {
		case <-s.closeCh:
			return
		case s.eventsCh <- eventOrError{msg: msg}:
		}
	}
}

func readError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &Error{Code: ce.Code, Message: ce.Text}
	}
	return fmt.Errorf("geminilive: read: %w", err)
}
