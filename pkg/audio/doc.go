// Package audio groups the audio packages used by live sessions:
//
//   - pcm: 16-bit mono formats, chunks and writers
//   - resampler: sample rate and channel conversion of raw PCM streams
//   - playout: a mixer that schedules buffers on a shared clock
//   - portaudio: cgo bindings for system capture and playback
//   - device: capture and playback backends for live.Session
//
// A typical pipeline converts a capture stream to the 16 kHz input rate
// and plays replies at 24 kHz:
//
//	devs, _ := device.NewPortAudio()
//	mic, _ := devs.OpenCapture(ctx, 16000)
//	out, _ := devs.OpenPlayback(ctx, 24000)
package audio
