package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/codec"
	"github.com/haivivi/livestudio/pkg/studio"
)

var (
	flagSpeakVoice string
	flagSpeakModel string
)

// speakRequest is the -f request file of speak.
type speakRequest struct {
	Text  string `json:"text" yaml:"text"`
	Voice string `json:"voice" yaml:"voice"`
}

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Synthesize speech with a prebuilt voice",
	Long: `Synthesize speech and play it, or save it with -o.

Output files ending in .wav get a WAV header; anything else receives raw
16-bit little-endian PCM at 24 kHz.

Examples:
  livestudio speak "Hello there"
  livestudio speak "Hello there" --voice Puck -o hello.wav
  livestudio speak -f line.yaml --device ffmpeg`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSpeak,
}

func init() {
	addDeviceFlags(speakCmd)
	speakCmd.Flags().StringVar(&flagSpeakVoice, "voice", "", "prebuilt voice (overrides the context)")
	speakCmd.Flags().StringVar(&flagSpeakModel, "model", studio.DefaultSpeechModel, "model")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	var req speakRequest
	if inputFile != "" {
		if err := cli.LoadRequest(inputFile, &req); err != nil {
			return err
		}
	}
	if len(args) == 1 {
		req.Text = args[0]
	}
	if flagSpeakVoice != "" {
		req.Voice = flagSpeakVoice
	}
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("no text given")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, err := newStudio(ctx, studio.WithSpeechModel(flagSpeakModel))
	if err != nil {
		return err
	}
	buf, err := client.Speak(ctx, req.Text, req.Voice)
	if err != nil {
		return err
	}

	if outputFile != "" {
		data := buf.Interleave()
		if strings.EqualFold(filepath.Ext(outputFile), ".wav") {
			data = codec.WAV(buf)
		}
		if err := cli.WriteFile(outputFile, data); err != nil {
			return err
		}
		cli.PrintSuccess("Wrote %s of audio to %s", cli.FormatDuration(buf.Duration()), outputFile)
		return nil
	}

	// The file device would write to -o, which is handled above.
	if flagDevice == "file" {
		return fmt.Errorf("--device file requires -o")
	}
	devices, closeDevices, err := openDevices()
	if err != nil {
		return err
	}
	defer closeDevices()

	out, err := devices.OpenPlayback(ctx, studio.SpeechSampleRate)
	if err != nil {
		return err
	}
	defer out.Close()

	player, ok := out.(interface {
		Play(ctx context.Context, buf *codec.AudioBuffer) error
	})
	if !ok {
		return fmt.Errorf("device %q cannot play a clip", flagDevice)
	}
	return player.Play(ctx, buf)
}
