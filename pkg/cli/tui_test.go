package cli

import (
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestFrameRender(t *testing.T) {
	f := Frame{
		Styles: NewStyles(DefaultTheme),
		Title:  "livestudio",
		Status: "active",
		Sections: []Section{
			{Label: "You", Lines: []string{"one", "two", "three"}},
			{Label: "Log", Lines: []string{strings.Repeat("x", 200)}, Weight: 2},
		},
		Help: "q: quit",
	}
	out := f.Render(40, 12)
	lines := strings.Split(out, "\n")
	if len(lines) != 12 {
		t.Fatalf("rendered %d lines, want 12:\n%s", len(lines), out)
	}
	for i, line := range lines[:len(lines)-1] {
		if w := lipgloss.Width(line); w != 40 {
			t.Errorf("line %d width = %d, want 40: %q", i, w, line)
		}
	}
	if !strings.Contains(out, "three") || strings.Contains(out, "one") {
		t.Errorf("section should keep its last lines:\n%s", out)
	}
	if !strings.Contains(out, "…") {
		t.Error("long line not clipped")
	}
	if got := f.Render(4, 4); got != "livestudio" {
		t.Errorf("tiny render = %q", got)
	}
}

func TestWrap(t *testing.T) {
	got := Wrap("the quick brown fox\njumps", 10)
	want := []string{"the quick", "brown fox", "jumps"}
	if !slices.Equal(got, want) {
		t.Errorf("Wrap = %q, want %q", got, want)
	}
}

func TestLogWriter(t *testing.T) {
	w := NewLogWriter(3)
	if _, err := w.Write([]byte("a\nb\n")); err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("c\nd\n"))
	if got := w.Lines(); !slices.Equal(got, []string{"b", "c", "d"}) {
		t.Errorf("Lines = %q", got)
	}
	select {
	case <-w.Updated():
	default:
		t.Error("no update notification")
	}
}
