// Package pcm describes the 16-bit PCM formats exchanged with capture and
// playback devices and provides chunk plumbing between them.
//
// Example usage:
//
//	format, err := pcm.FormatOf(24000)
//	bytes := format.BytesInDuration(20 * time.Millisecond)
//	err = pcm.Copy(pcm.ChunkWriter(speaker), mixed, format)
package pcm
