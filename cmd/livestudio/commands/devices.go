package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/audio/device"
	"github.com/haivivi/livestudio/pkg/audio/portaudio"
	"github.com/haivivi/livestudio/pkg/audio/resampler"
	"github.com/haivivi/livestudio/pkg/live"
)

var (
	flagDevice      string
	flagInput       string
	flagInputRate   int
	flagInputFormat string
	flagInputDevice string
	flagGain        float32
)

// addDeviceFlags registers the audio device selection flags on cmd.
func addDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDevice, "device", "portaudio", "audio backend: portaudio, ffmpeg or file")
	cmd.Flags().StringVar(&flagInput, "input", "", "raw s16le PCM file used as microphone (--device file)")
	cmd.Flags().IntVar(&flagInputRate, "input-rate", 16000, "sample rate of --input")
	cmd.Flags().StringVar(&flagInputFormat, "input-format", "", "ffmpeg capture format, e.g. pulse, avfoundation")
	cmd.Flags().StringVar(&flagInputDevice, "input-device", "", "ffmpeg capture device")
	cmd.Flags().Float32Var(&flagGain, "gain", 1, "playback gain, 0-1")
}

// openDevices returns the backend selected by the device flags and a
// function releasing what it opened.
func openDevices() (live.Devices, func() error, error) {
	nop := func() error { return nil }
	switch flagDevice {
	case "portaudio", "":
		d, err := device.NewPortAudio()
		if err != nil {
			return nil, nil, err
		}
		d.Gain = flagGain
		return d, nop, nil
	case "ffmpeg":
		return &device.FFmpeg{
			InputFormat: flagInputFormat,
			InputDevice: flagInputDevice,
			Volume:      int(flagGain * 100),
		}, nop, nil
	case "file":
		if flagInput == "" {
			return nil, nil, fmt.Errorf("--device file requires --input")
		}
		d := &device.File{
			Path:   flagInput,
			Format: resampler.Format{SampleRate: flagInputRate, Channels: 1},
			Gain:   flagGain,
		}
		if outputFile == "" {
			return d, nop, nil
		}
		f, err := os.Create(outputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("create output: %w", err)
		}
		d.Output = f
		return d, f.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown device %q (want portaudio, ffmpeg or file)", flagDevice)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List PortAudio devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return err
		}
		devs, err := portaudio.Devices()
		if err != nil {
			return err
		}
		if outputJSON || outputFile != "" {
			return outputResult(devs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tNAME\tIN\tOUT\tRATE\tDEFAULT")
		for _, d := range devs {
			def := ""
			switch {
			case d.IsDefaultInput && d.IsDefaultOutput:
				def = "in,out"
			case d.IsDefaultInput:
				def = "in"
			case d.IsDefaultOutput:
				def = "out"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.0f\t%s\n",
				d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, def)
		}
		return w.Flush()
	},
}
