// Package device provides the audio endpoints used by live sessions.
//
// Three backends implement live.Devices:
//
//   - PortAudio: the default input and output devices through cgo PortAudio.
//   - FFmpeg: capture by running ffmpeg, playback by piping into ffplay.
//   - File: replay of a raw 16-bit PCM file in real time, with playback
//     rendered to a writer such as a file or io.Discard.
//
// Every backend plays through a Playback, which mixes scheduled buffers on a
// playout.Device and pumps the result to the backend's sink in real time.
package device
