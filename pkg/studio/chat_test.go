package studio

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestChatHistory(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("Hi there!")}
	chat := New(gen).NewChat("")

	if _, err := chat.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if gen.model != DefaultChatModel {
		t.Errorf("model = %q", gen.model)
	}
	if gen.config == nil || gen.config.SystemInstruction == nil ||
		gen.config.SystemInstruction.Parts[0].Text != ChatSystemPrompt {
		t.Fatalf("system instruction = %+v", gen.config)
	}
	if len(gen.contents) != 1 {
		t.Fatalf("first turn sent %d contents, want 1", len(gen.contents))
	}

	gen.resp = textResponse("Fine, thanks.")
	reply, err := chat.Send(context.Background(), "how are you?")
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if reply != "Fine, thanks." {
		t.Errorf("reply = %q", reply)
	}

	want := []struct {
		role genai.Role
		text string
	}{
		{genai.RoleUser, "hello"},
		{genai.RoleModel, "Hi there!"},
		{genai.RoleUser, "how are you?"},
	}
	if len(gen.contents) != len(want) {
		t.Fatalf("second turn sent %d contents, want %d", len(gen.contents), len(want))
	}
	for i, w := range want {
		c := gen.contents[i]
		if c.Role != string(w.role) || c.Parts[0].Text != w.text {
			t.Errorf("content %d = %s %q, want %s %q", i, c.Role, c.Parts[0].Text, w.role, w.text)
		}
	}
	if got := len(chat.History()); got != 4 {
		t.Errorf("history has %d turns, want 4", got)
	}
}

func TestChatFailedTurnKeepsHistory(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("ok")}
	chat := New(gen, WithChatModel("chat-model")).NewChat("Be brief.")
	if _, err := chat.Send(context.Background(), "one"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gen.model != "chat-model" {
		t.Errorf("model = %q", gen.model)
	}
	if got := gen.config.SystemInstruction.Parts[0].Text; got != "Be brief." {
		t.Errorf("system = %q", got)
	}

	gen.err = errors.New("quota")
	if _, err := chat.Send(context.Background(), "two"); err == nil {
		t.Fatal("Send succeeded on generator error")
	}
	if got := len(chat.History()); got != 2 {
		t.Errorf("history has %d turns after failure, want 2", got)
	}
	if _, err := chat.Send(context.Background(), ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty message err = %v", err)
	}
}
