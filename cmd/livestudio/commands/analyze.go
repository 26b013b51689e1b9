package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/framesampler"
	"github.com/haivivi/livestudio/pkg/studio"
)

var (
	flagAnalyzePrompt string
	flagAnalyzeCount  int
	flagAnalyzeModel  string
)

// analyzeRequest is the -f request file of analyze.
type analyzeRequest struct {
	Video  string `json:"video" yaml:"video"`
	Prompt string `json:"prompt" yaml:"prompt"`
	Count  int    `json:"count" yaml:"count"`
	Model  string `json:"model" yaml:"model"`
}

type analyzeResult struct {
	Video    string `json:"video" yaml:"video"`
	Model    string `json:"model" yaml:"model"`
	Frames   int    `json:"frames" yaml:"frames"`
	Duration string `json:"duration" yaml:"duration"`
	Text     string `json:"text" yaml:"text"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [video]",
	Short: "Describe a video from sampled frames",
	Long: `Sample frames from a video and ask the model about them.

The frames are sent in order, followed by the prompt.

Examples:
  livestudio analyze clip.mp4
  livestudio analyze clip.mp4 --prompt "Count the people." -n 12
  livestudio analyze -f request.yaml --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&flagAnalyzePrompt, "prompt", studio.DefaultVideoPrompt, "question about the video")
	analyzeCmd.Flags().IntVarP(&flagAnalyzeCount, "count", "n", studio.DefaultFrameCount, "number of frames")
	analyzeCmd.Flags().StringVar(&flagAnalyzeModel, "model", studio.DefaultVideoModel, "model")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	req := analyzeRequest{
		Prompt: flagAnalyzePrompt,
		Count:  flagAnalyzeCount,
		Model:  flagAnalyzeModel,
	}
	if inputFile != "" {
		if err := cli.LoadRequest(inputFile, &req); err != nil {
			return err
		}
	}
	if len(args) == 1 {
		req.Video = args[0]
	}
	if req.Video == "" {
		return fmt.Errorf("no video given")
	}

	video, err := os.ReadFile(req.Video)
	if err != nil {
		return fmt.Errorf("read video: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, err := newStudio(ctx, studio.WithVideoModel(req.Model))
	if err != nil {
		return err
	}

	cli.PrintInfo("sampling %d frames from %s...", req.Count, req.Video)
	start := time.Now()
	sampler := framesampler.New(&framesampler.FFmpegDecoder{})
	text, frames, err := client.ExtractAndAnalyze(ctx, sampler, video, req.Count, req.Prompt)
	if err != nil {
		return err
	}

	if !outputJSON && outputFile == "" {
		fmt.Println(text)
		return nil
	}
	return outputResult(analyzeResult{
		Video:    req.Video,
		Model:    req.Model,
		Frames:   len(frames),
		Duration: elapsed(start),
		Text:     text,
	})
}
