package codec

import "encoding/binary"

// WAV returns b as a 16-bit PCM WAV file.
func WAV(b *AudioBuffer) []byte {
	data := b.Interleave()
	channels := b.NumChannels()
	blockAlign := channels * 2

	h := make([]byte, 44, 44+len(data))
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+len(data)))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(b.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], 16)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(len(data)))
	return append(h, data...)
}
