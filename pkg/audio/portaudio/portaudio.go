// Package portaudio opens blocking capture and playback streams on the
// system's default audio devices through the PortAudio C library.
//
// Building requires portaudio discoverable via pkg-config
// (brew install portaudio, apt install portaudio19-dev).
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

static PaError pa_open_stream(void **stream,
                              const PaStreamParameters *in,
                              const PaStreamParameters *out,
                              double sampleRate,
                              unsigned long framesPerBuffer) {
    return Pa_OpenStream((PaStream**)stream, in, out, sampleRate,
                         framesPerBuffer, paClipOff, NULL, NULL);
}

static PaError pa_start_stream(void *s) { return Pa_StartStream((PaStream*)s); }
static PaError pa_stop_stream(void *s)  { return Pa_StopStream((PaStream*)s); }
static PaError pa_close_stream(void *s) { return Pa_CloseStream((PaStream*)s); }

static PaError pa_read_stream(void *s, void *buf, unsigned long frames) {
    return Pa_ReadStream((PaStream*)s, buf, frames);
}

static PaError pa_write_stream(void *s, const void *buf, unsigned long frames) {
    return Pa_WriteStream((PaStream*)s, buf, frames);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	initOnce sync.Once
	initErr  error
)

// ErrStreamClosed is returned by operations on a closed stream.
var ErrStreamClosed = errors.New("portaudio: stream closed")

func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return fmt.Errorf("portaudio: %s", C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the library. It is safe to call more than once.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// DeviceInfo describes one host audio device.
type DeviceInfo struct {
	Index             int     `json:"index" yaml:"index"`
	Name              string  `json:"name" yaml:"name"`
	MaxInputChannels  int     `json:"max_input_channels" yaml:"max_input_channels"`
	MaxOutputChannels int     `json:"max_output_channels" yaml:"max_output_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate" yaml:"default_sample_rate"`
	IsDefaultInput    bool    `json:"default_input,omitempty" yaml:"default_input,omitempty"`
	IsDefaultOutput   bool    `json:"default_output,omitempty" yaml:"default_output,omitempty"`
}

// Devices lists the host's audio devices.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}
	defIn := int(C.Pa_GetDefaultInputDevice())
	defOut := int(C.Pa_GetDefaultOutputDevice())

	devices := make([]DeviceInfo, 0, count)
	for i := range count {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil {
			continue
		}
		devices = append(devices, DeviceInfo{
			Index:             i,
			Name:              C.GoString(info.name),
			MaxInputChannels:  int(info.maxInputChannels),
			MaxOutputChannels: int(info.maxOutputChannels),
			DefaultSampleRate: float64(info.defaultSampleRate),
			IsDefaultInput:    i == defIn,
			IsDefaultOutput:   i == defOut,
		})
	}
	return devices, nil
}

// stream is an open blocking PortAudio stream with a C-side transfer buffer.
type stream struct {
	mu     sync.Mutex
	handle unsafe.Pointer
	cbuf   unsafe.Pointer
	frames int
	closed bool
}

func openStream(input bool, channels int, sampleRate float64, frames int) (*stream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	var dev C.PaDeviceIndex
	if input {
		dev = C.Pa_GetDefaultInputDevice()
	} else {
		dev = C.Pa_GetDefaultOutputDevice()
	}
	if dev == C.paNoDevice {
		if input {
			return nil, errors.New("portaudio: no default input device")
		}
		return nil, errors.New("portaudio: no default output device")
	}
	info := C.Pa_GetDeviceInfo(dev)
	params := &C.PaStreamParameters{
		device:       dev,
		channelCount: C.int(channels),
		sampleFormat: C.paInt16,
	}
	var in, out *C.PaStreamParameters
	if input {
		params.suggestedLatency = info.defaultLowInputLatency
		in = params
	} else {
		params.suggestedLatency = info.defaultLowOutputLatency
		out = params
	}

	var handle unsafe.Pointer
	if err := paError(C.pa_open_stream(&handle, in, out, C.double(sampleRate), C.ulong(frames))); err != nil {
		return nil, err
	}
	s := &stream{
		handle: handle,
		cbuf:   C.malloc(C.size_t(frames * channels * 2)),
		frames: frames,
	}
	if err := paError(C.pa_start_stream(handle)); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// read fills samples with exactly len(samples) frames.
func (s *stream) read(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	for len(samples) > 0 {
		n := min(len(samples), s.frames)
		if err := paError(C.pa_read_stream(s.handle, s.cbuf, C.ulong(n))); err != nil {
			return err
		}
		C.memcpy(unsafe.Pointer(&samples[0]), s.cbuf, C.size_t(n*2))
		samples = samples[n:]
	}
	return nil
}

// write plays every sample in samples, blocking until the device accepts it.
func (s *stream) write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	for len(samples) > 0 {
		n := min(len(samples), s.frames)
		C.memcpy(s.cbuf, unsafe.Pointer(&samples[0]), C.size_t(n*2))
		if err := paError(C.pa_write_stream(s.handle, s.cbuf, C.ulong(n))); err != nil {
			return err
		}
		samples = samples[n:]
	}
	return nil
}

func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	C.pa_stop_stream(s.handle)
	err := paError(C.pa_close_stream(s.handle))
	C.free(s.cbuf)
	return err
}
