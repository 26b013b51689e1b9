package live

import (
	"context"
	"iter"

	"github.com/haivivi/livestudio/pkg/geminilive"
)

// GeminiConnector connects sessions to the Gemini Live API.
type GeminiConnector struct {
	Client *geminilive.Client
}

// Connect opens a Live API session and waits for setup to complete.
func (g *GeminiConnector) Connect(ctx context.Context, cfg ConnectConfig) (Conn, error) {
	var modalities []string
	if cfg.ResponseModality != "" {
		modalities = []string{cfg.ResponseModality}
	}
	sess, err := g.Client.Connect(ctx, &geminilive.ConnectConfig{
		Model:               cfg.Model,
		SystemInstruction:   cfg.SystemPrompt,
		ResponseModalities:  modalities,
		Voice:               cfg.Voice,
		InputTranscription:  cfg.InputTranscription,
		OutputTranscription: cfg.OutputTranscription,
	})
	if err != nil {
		return nil, err
	}
	return &geminiConn{sess: sess}, nil
}

type geminiConn struct {
	sess *geminilive.Session
}

func (c *geminiConn) SendAudio(ctx context.Context, chunk AudioChunk) error {
	return c.sess.SendAudio(ctx, geminilive.Blob{MIMEType: chunk.MIMEType, Data: chunk.Data})
}

func (c *geminiConn) EndAudio(ctx context.Context) error {
	return c.sess.SendAudioStreamEnd(ctx)
}

func (c *geminiConn) Receive() iter.Seq2[ServerMessage, error] {
	return func(yield func(ServerMessage, error) bool) {
		for msg, err := range c.sess.Events() {
			if err != nil {
				yield(nil, err)
				return
			}
			for _, m := range translate(msg) {
				if !yield(m, nil) {
					return
				}
			}
		}
	}
}

func (c *geminiConn) Close() error {
	return c.sess.Close()
}

// translate splits one server message into session messages: go-away
// notice, input transcript, output transcript, audio parts, interruption,
// turn completion.
func translate(msg *geminilive.ServerMessage) []ServerMessage {
	var out []ServerMessage
	if msg.GoAway != nil {
		out = append(out, GoAway{TimeLeft: msg.GoAway.TimeLeft})
	}
	sc := msg.ServerContent
	if sc == nil {
		return out
	}
	if tr := sc.InputTranscription; tr != nil && tr.Text != "" {
		out = append(out, InputTranscript{Text: tr.Text})
	}
	if tr := sc.OutputTranscription; tr != nil && tr.Text != "" {
		out = append(out, OutputTranscript{Text: tr.Text})
	}
	for _, b := range sc.AudioParts() {
		out = append(out, AudioPayload{MIMEType: b.MIMEType, Data: b.Data})
	}
	if sc.Interrupted {
		out = append(out, Interrupted{})
	}
	if sc.TurnComplete {
		out = append(out, TurnComplete{})
	}
	return out
}
