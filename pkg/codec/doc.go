// Package codec converts audio and media between the representations used on
// the wire and the ones used by playback and capture.
//
// The wire carries base64 text. Audio travels as interleaved little-endian
// signed 16-bit PCM, while devices work with per-channel float32 samples in
// the range [-1, 1]. Files are sent to the model service as a MIME type plus a
// base64 payload.
//
// Example usage:
//
//	pcm := codec.FloatToPCM16(samples)
//	text := codec.EncodeBase64(pcm)
//
//	raw, err := codec.DecodeBase64(text)
//	buf, err := codec.PCM16ToFloat(raw, 24000, 1)
package codec
