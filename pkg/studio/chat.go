package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"
)

const (
	// ChatSystemPrompt is the default persona of a Chat.
	ChatSystemPrompt = "You are a friendly, supportive, and open-source AI companion. Your name is Sparky. Be cheerful and encouraging in your responses."

	// ChatGreeting is shown before the first user turn.
	ChatGreeting = "Hello! My name is Sparky. What's on your mind today?"
)

// ErrEmptyMessage is returned by Chat.Send for a blank message.
var ErrEmptyMessage = errors.New("studio: empty message")

// Chat is a multi-turn text conversation. The whole history is sent with
// every turn. A Chat is safe for concurrent use, turns are serialized.
type Chat struct {
	c      *Client
	system string

	mu      sync.Mutex
	history []*genai.Content
}

// NewChat starts a conversation with the given system instruction. An empty
// system uses ChatSystemPrompt.
func (c *Client) NewChat(system string) *Chat {
	if system == "" {
		system = ChatSystemPrompt
	}
	return &Chat{c: c, system: system}
}

// Send adds a user turn and returns the model reply. A failed turn leaves
// the history unchanged.
func (ch *Chat) Send(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyMessage
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()

	contents := make([]*genai.Content, 0, len(ch.history)+1)
	contents = append(contents, ch.history...)
	contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ch.system, genai.RoleUser),
	}

	slog.Debug("studio: chat turn", "model", ch.c.chatModel, "turns", len(contents))
	resp, err := ch.c.gen.GenerateContent(ctx, ch.c.chatModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("studio: chat: %w", err)
	}
	reply := responseText(resp)
	ch.history = append(contents, genai.NewContentFromText(reply, genai.RoleModel))
	return reply, nil
}

// History returns a copy of the turns so far.
func (ch *Chat) History() []*genai.Content {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]*genai.Content, len(ch.history))
	copy(out, ch.history)
	return out
}
