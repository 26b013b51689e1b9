// Package resampler converts 16-bit PCM streams to mono at a target sample
// rate, for feeding recorded audio files into a capture pipeline that expects
// a fixed rate.
//
// Resampling uses github.com/tphakala/go-audio-resampling, a pure Go
// implementation.
//
// Example usage:
//
//	r, err := resampler.New(file, resampler.Format{SampleRate: 44100, Channels: 2}, 16000)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	io.Copy(dst, r)
package resampler
