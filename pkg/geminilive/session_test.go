package geminilive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// newServer starts a websocket server running handler for each connection.
func newServer(t *testing.T, handler func(t *testing.T, r *http.Request, conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(t, r, conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readClientMessage(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Errorf("server read: %v", err)
		return nil
	}
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Errorf("server decode: %v", err)
	}
	return msg
}

func acceptSetup(t *testing.T, conn *websocket.Conn) *setup {
	t.Helper()
	msg := readClientMessage(t, conn)
	var st setup
	if err := json.Unmarshal(msg["setup"], &st); err != nil {
		t.Errorf("setup decode: %v", err)
	}
	conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))
	return &st
}

func TestConnectSendsSetup(t *testing.T) {
	got := make(chan *setup, 1)
	keys := make(chan string, 1)
	url := newServer(t, func(t *testing.T, r *http.Request, conn *websocket.Conn) {
		keys <- r.Header.Get("x-goog-api-key")
		got <- acceptSetup(t, conn)
		conn.ReadMessage()
	})

	client := NewClient("test-key", WithWebSocketURL(url))
	s, err := client.Connect(context.Background(), &ConnectConfig{
		Model:               ModelNativeAudio,
		SystemInstruction:   "be nice",
		ResponseModalities:  []string{ModalityAudio},
		Voice:               "Kore",
		InputTranscription:  true,
		OutputTranscription: true,
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	if k := <-keys; k != "test-key" {
		t.Errorf("api key header = %q", k)
	}
	st := <-got
	if st.Model != "models/"+ModelNativeAudio {
		t.Errorf("model = %q", st.Model)
	}
	if st.SystemInstruction == nil || st.SystemInstruction.Parts[0].Text != "be nice" {
		t.Errorf("system instruction = %+v", st.SystemInstruction)
	}
	if st.GenerationConfig == nil || st.GenerationConfig.ResponseModalities[0] != ModalityAudio {
		t.Fatalf("generation config = %+v", st.GenerationConfig)
	}
	if v := st.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; v != "Kore" {
		t.Errorf("voice = %q", v)
	}
	if st.InputAudioTranscription == nil || st.OutputAudioTranscription == nil {
		t.Error("transcription not enabled")
	}
}

func TestAudioRoundTrip(t *testing.T) {
	url := newServer(t, func(t *testing.T, r *http.Request, conn *websocket.Conn) {
		acceptSetup(t, conn)

		msg := readClientMessage(t, conn)
		var in realtimeInput
		if err := json.Unmarshal(msg["realtimeInput"], &in); err != nil {
			t.Errorf("realtimeInput decode: %v", err)
			return
		}
		if in.Audio == nil || in.Audio.MIMEType != "audio/pcm;rate=16000" || in.Audio.Data != "AAAA" {
			t.Errorf("audio = %+v", in.Audio)
		}

		conn.WriteMessage(websocket.TextMessage, []byte(`{"serverContent":{"inputTranscription":{"text":"hi"}}}`))
		conn.WriteMessage(websocket.BinaryMessage, []byte(`{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AQID"}}]}}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"serverContent":{"turnComplete":true}}`))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	client := NewClient("k", WithWebSocketURL(url))
	s, err := client.Connect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	if err := s.SendAudio(context.Background(), Blob{MIMEType: "audio/pcm;rate=16000", Data: "AAAA"}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	var msgs []*ServerMessage
	for msg, err := range s.Events() {
		if err != nil {
			t.Fatalf("event error: %v", err)
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if tr := msgs[0].ServerContent.InputTranscription; tr == nil || tr.Text != "hi" {
		t.Errorf("input transcription = %+v", tr)
	}
	parts := msgs[1].ServerContent.AudioParts()
	if len(parts) != 1 || parts[0].Data != "AQID" {
		t.Errorf("audio parts = %+v", parts)
	}
	if !msgs[2].ServerContent.TurnComplete {
		t.Error("turnComplete not set")
	}
}

func TestServerCloseError(t *testing.T) {
	url := newServer(t, func(t *testing.T, r *http.Request, conn *websocket.Conn) {
		acceptSetup(t, conn)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "quota exceeded"))
		conn.ReadMessage()
	})

	s, err := NewClient("k", WithWebSocketURL(url)).Connect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	var got error
	for _, err := range s.Events() {
		if err != nil {
			got = err
		}
	}
	var apiErr *Error
	if !errors.As(got, &apiErr) {
		t.Fatalf("err = %v, want *Error", got)
	}
	if apiErr.Code != websocket.ClosePolicyViolation || apiErr.Message != "quota exceeded" {
		t.Errorf("err = %+v", apiErr)
	}
}

func TestConnectTimeoutWaitingForSetup(t *testing.T) {
	url := newServer(t, func(t *testing.T, r *http.Request, conn *websocket.Conn) {
		readClientMessage(t, conn)
		conn.ReadMessage()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := NewClient("k", WithWebSocketURL(url)).Connect(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestHandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient("k", WithWebSocketURL("ws"+strings.TrimPrefix(srv.URL, "http"))).Connect(context.Background(), nil)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.HTTPStatus != http.StatusForbidden {
		t.Fatalf("err = %v, want HTTP 403 *Error", err)
	}
}

func TestSendAfterClose(t *testing.T) {
	url := newServer(t, func(t *testing.T, r *http.Request, conn *websocket.Conn) {
		acceptSetup(t, conn)
		conn.ReadMessage()
	})
	s, err := NewClient("k", WithWebSocketURL(url)).Connect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Close()
	s.Close()
	if err := s.SendAudio(context.Background(), Blob{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("SendAudio after Close = %v, want ErrClosed", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewClient("")
}

func TestClientInputMessages(t *testing.T) {
	type received struct {
		header string
		setup  *setup
		input  realtimeInput
		turn   clientContent
	}
	got := make(chan received, 1)
	url := newServer(t, func(t *testing.T, r *http.Request, conn *websocket.Conn) {
		var rec received
		rec.header = r.Header.Get("x-client")
		rec.setup = acceptSetup(t, conn)
		if err := json.Unmarshal(readClientMessage(t, conn)["realtimeInput"], &rec.input); err != nil {
			t.Errorf("realtimeInput decode: %v", err)
		}
		if err := json.Unmarshal(readClientMessage(t, conn)["clientContent"], &rec.turn); err != nil {
			t.Errorf("clientContent decode: %v", err)
		}
		got <- rec
		conn.ReadMessage()
	})

	client := NewClient("k",
		WithWebSocketURL(url),
		WithHeader("x-client", "livestudio"),
		WithHandshakeTimeout(5*time.Second),
	)
	s, err := client.Connect(context.Background(), &ConnectConfig{ResponseModalities: []string{ModalityText}})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.SendAudioStreamEnd(ctx); err != nil {
		t.Fatalf("SendAudioStreamEnd: %v", err)
	}
	if err := s.SendText(ctx, "what time is it?", true); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	rec := <-got
	if rec.header != "livestudio" {
		t.Errorf("x-client header = %q", rec.header)
	}
	if m := rec.setup.GenerationConfig.ResponseModalities; len(m) != 1 || m[0] != ModalityText {
		t.Errorf("modalities = %v", m)
	}
	if !rec.input.AudioStreamEnd || rec.input.Audio != nil {
		t.Errorf("realtimeInput = %+v, want audioStreamEnd only", rec.input)
	}
	if !rec.turn.TurnComplete || len(rec.turn.Turns) != 1 {
		t.Fatalf("clientContent = %+v", rec.turn)
	}
	if c := rec.turn.Turns[0]; c.Role != "user" || c.Parts[0].Text != "what time is it?" {
		t.Errorf("turn = %+v", c)
	}
}

func TestSendCanceledContext(t *testing.T) {
	url := newServer(t, func(t *testing.T, r *http.Request, conn *websocket.Conn) {
		acceptSetup(t, conn)
		conn.ReadMessage()
	})
	s, err := NewClient("k", WithWebSocketURL(url)).Connect(context.Background(), nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.SendAudioStreamEnd(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("SendAudioStreamEnd = %v, want context.Canceled", err)
	}
	if err := s.SendText(ctx, "x", true); !errors.Is(err, context.Canceled) {
		t.Errorf("SendText = %v, want context.Canceled", err)
	}
}
