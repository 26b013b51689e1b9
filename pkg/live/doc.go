// Package live runs a real-time duplex audio conversation with a remote
// model.
//
// A Session captures microphone audio in fixed blocks, encodes each block as
// 16-bit PCM and streams it upstream. Downstream it receives synthesized
// audio and transcript fragments, schedules the audio back to back on the
// playback clock, flushes playback when the server reports an interruption
// and collects the transcript of every completed turn.
//
// Devices and the remote connection are injected through the Devices and
// Connector interfaces. GeminiConnector connects to the Gemini Live API.
//
// All server messages of one run are handled by a single event loop
// goroutine, so the in-flight playback set and the schedule are never
// mutated concurrently.
package live
