package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/codec"
	"github.com/haivivi/livestudio/pkg/framesampler"
	"github.com/haivivi/livestudio/pkg/studio"
)

var (
	flagFrameCount   int
	flagFrameDir     string
	flagFrameQuality int
	flagFrameInline  bool
)

// frameInfo is the printed summary of one extracted frame.
type frameInfo struct {
	Index     int    `json:"index" yaml:"index"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Width     int    `json:"width" yaml:"width"`
	Height    int    `json:"height" yaml:"height"`
	Size      string `json:"size" yaml:"size"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`

	// Image is the base64 JPEG, set with --inline.
	Image *codec.Blob `json:"image,omitempty" yaml:"image,omitempty"`
}

var framesCmd = &cobra.Command{
	Use:   "frames <video>",
	Short: "Extract evenly spaced frames from a video",
	Long: `Extract evenly spaced JPEG stills from a video file with ffmpeg.

Frames are taken at the midpoints of equal slices of the video. With --dir
each frame is written as frame_NN.jpg. With --inline the base64 image is
included in the output.

Examples:
  livestudio frames clip.mp4
  livestudio frames clip.mp4 -n 4 --dir out/`,
	Args: cobra.ExactArgs(1),
	RunE: runFrames,
}

func init() {
	framesCmd.Flags().IntVarP(&flagFrameCount, "count", "n", studio.DefaultFrameCount, "number of frames")
	framesCmd.Flags().StringVar(&flagFrameDir, "dir", "", "directory to write frames to")
	framesCmd.Flags().IntVar(&flagFrameQuality, "quality", 92, "JPEG quality, 1-100")
	framesCmd.Flags().BoolVar(&flagFrameInline, "inline", false, "include base64 images in the output")
}

func runFrames(cmd *cobra.Command, args []string) error {
	video, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read video: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	sampler := framesampler.New(&framesampler.FFmpegDecoder{}, framesampler.WithJPEGQuality(flagFrameQuality))
	frames, err := sampler.Extract(ctx, video, flagFrameCount)
	if len(frames) == 0 {
		if err == nil {
			err = framesampler.ErrNoFrames
		}
		return err
	}
	if err != nil {
		cli.PrintWarning("kept %d frames: %v", len(frames), err)
	}

	if flagFrameDir != "" {
		if _, err := cli.Ensure(flagFrameDir); err != nil {
			return err
		}
	}
	infos := make([]frameInfo, 0, len(frames))
	for i, f := range frames {
		info := frameInfo{
			Index:     i,
			Timestamp: cli.FormatDuration(f.Timestamp),
			Width:     f.Width,
			Height:    f.Height,
			Size:      cli.FormatBytes(int64(len(f.Data))),
		}
		if flagFrameInline {
			blob := f.Blob()
			info.Image = &blob
		}
		if flagFrameDir != "" {
			info.File = filepath.Join(flagFrameDir, fmt.Sprintf("frame_%02d.jpg", i))
			if err := cli.WriteFile(info.File, f.Data); err != nil {
				return err
			}
		}
		infos = append(infos, info)
	}
	return outputResult(infos)
}
