package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/codec"
	"github.com/haivivi/livestudio/pkg/studio"
)

var (
	flagImagePrompt string
	flagImageModel  string
)

type imageResult struct {
	File     string `json:"file" yaml:"file"`
	MIMEType string `json:"mime_type" yaml:"mime_type"`
	Prompt   string `json:"prompt" yaml:"prompt"`
	Text     string `json:"text" yaml:"text"`
}

var imageCmd = &cobra.Command{
	Use:   "image <image-file>",
	Short: "Describe or ask about an image",
	Long: `Send an image with a prompt and print the answer.

Examples:
  livestudio image photo.jpg
  livestudio image chart.png --prompt "What trend does this show?"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := codec.ReadFileBlob(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		client, err := newStudio(ctx, studio.WithImageModel(flagImageModel))
		if err != nil {
			return err
		}
		cli.PrintInfo("analyzing %s (%s)...", args[0], blob.MIMEType)
		text, err := client.AnalyzeImage(ctx, blob, flagImagePrompt)
		if err != nil {
			return err
		}

		if !outputJSON && outputFile == "" {
			fmt.Println(text)
			return nil
		}
		return outputResult(imageResult{File: args[0], MIMEType: blob.MIMEType, Prompt: flagImagePrompt, Text: text})
	},
}

func init() {
	imageCmd.Flags().StringVar(&flagImagePrompt, "prompt", studio.DefaultImagePrompt, "question about the image")
	imageCmd.Flags().StringVar(&flagImageModel, "model", studio.DefaultImageModel, "model")
}
