package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/codec"
	"github.com/haivivi/livestudio/pkg/studio"
)

var flagTranscribeModel string

type transcribeResult struct {
	File     string `json:"file" yaml:"file"`
	MIMEType string `json:"mime_type" yaml:"mime_type"`
	Text     string `json:"text" yaml:"text"`
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe an audio file",
	Long: `Transcribe an audio file verbatim.

The media type is detected from the file content.

Examples:
  livestudio transcribe memo.m4a
  livestudio transcribe memo.wav -o memo.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := codec.ReadFileBlob(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		client, err := newStudio(ctx, studio.WithTranscribeModel(flagTranscribeModel))
		if err != nil {
			return err
		}
		cli.PrintInfo("transcribing %s (%s)...", args[0], blob.MIMEType)
		text, err := client.Transcribe(ctx, blob)
		if err != nil {
			return err
		}

		if !outputJSON && outputFile == "" {
			fmt.Println(text)
			return nil
		}
		return outputResult(transcribeResult{File: args[0], MIMEType: blob.MIMEType, Text: text})
	},
}

func init() {
	transcribeCmd.Flags().StringVar(&flagTranscribeModel, "model", studio.DefaultTranscribeModel, "model")
}
