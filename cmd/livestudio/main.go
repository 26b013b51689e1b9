// Command livestudio talks to Gemini: live voice conversations from the
// terminal, plus one-shot video analysis, transcription and speech.
//
// Usage:
//
//	livestudio [flags] <command> [args]
//
// Commands:
//
//	live        - Start a live voice session
//	frames      - Extract still frames from a video
//	analyze     - Describe a video from sampled frames
//	transcribe  - Transcribe an audio file
//	speak       - Synthesize speech
//	history     - Browse saved live session transcripts
//	devices     - List audio devices
//	config      - Manage contexts
//
// Configuration lives in ~/.livestudio/livestudio/. Without a context the
// API key is read from GEMINI_API_KEY, which may be set in ./.env.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/livestudio/cmd/livestudio/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
