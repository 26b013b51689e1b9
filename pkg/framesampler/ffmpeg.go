package framesampler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/itchyny/gojq"
)

var _ Decoder = (*FFmpegDecoder)(nil)

// probeQuery reduces ffprobe JSON output to the fields Metadata needs.
var probeQuery = mustParse(`{
	duration: ((.format.duration // "0") | (tonumber? // 0)),
	video: ([.streams[]? | select(.codec_type == "video")] | first // null)
} | {
	duration: .duration,
	video: (.video != null),
	width: (.video.width // 0),
	height: (.video.height // 0)
}`)

func mustParse(expr string) *gojq.Query {
	q, err := gojq.Parse(expr)
	if err != nil {
		panic(fmt.Sprintf("framesampler: invalid jq expression: %v", err))
	}
	return q
}

// FFmpegDecoder decodes with the ffprobe and ffmpeg binaries. The source is
// spooled to a temporary file so it can be probed and seeked.
type FFmpegDecoder struct {
	// FFmpegPath and FFprobePath default to the binaries on PATH.
	FFmpegPath  string
	FFprobePath string

	path string
	pos  time.Duration
}

// Load writes src to a temporary file and probes it.
func (d *FFmpegDecoder) Load(ctx context.Context, src []byte) (Metadata, error) {
	if err := d.Close(); err != nil {
		return Metadata{}, err
	}
	f, err := os.CreateTemp("", "framesampler-*")
	if err != nil {
		return Metadata{}, fmt.Errorf("framesampler: spool: %w", err)
	}
	d.path = f.Name()
	if _, err := f.Write(src); err != nil {
		f.Close()
		return Metadata{}, fmt.Errorf("framesampler: spool: %w", err)
	}
	if err := f.Close(); err != nil {
		return Metadata{}, fmt.Errorf("framesampler: spool: %w", err)
	}

	bin := d.FFprobePath
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", d.path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("framesampler: ffprobe: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	d.pos = 0
	return parseProbe(ctx, out)
}

// parseProbe extracts Metadata from ffprobe JSON output.
func parseProbe(ctx context.Context, data []byte) (Metadata, error) {
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return Metadata{}, fmt.Errorf("framesampler: decode probe: %w", err)
	}
	iter := probeQuery.RunWithContext(ctx, input)
	v, ok := iter.Next()
	if !ok {
		return Metadata{}, errors.New("framesampler: probe query returned no result")
	}
	if err, ok := v.(error); ok {
		return Metadata{}, fmt.Errorf("framesampler: probe query: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return Metadata{}, fmt.Errorf("framesampler: unexpected probe result %T", v)
	}
	if video, _ := m["video"].(bool); !video {
		return Metadata{}, errors.New("framesampler: no video stream")
	}
	secs := number(m["duration"])
	return Metadata{
		Duration: time.Duration(secs * float64(time.Second)),
		Width:    int(number(m["width"])),
		Height:   int(number(m["height"])),
	}, nil
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// Seek records the position used by the next Rasterize. Every frame is
// decoded by a fresh ffmpeg process, so the seek is settled immediately.
func (d *FFmpegDecoder) Seek(ctx context.Context, t time.Duration) error {
	if d.path == "" {
		return errors.New("framesampler: seek before load")
	}
	d.pos = t
	return ctx.Err()
}

// Rasterize decodes the frame at the current position.
func (d *FFmpegDecoder) Rasterize(ctx context.Context) (image.Image, error) {
	if d.path == "" {
		return nil, errors.New("framesampler: rasterize before load")
	}
	bin := d.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(d.pos.Seconds(), 'f', 3, 64),
		"-i", d.path,
		"-frames:v", "1", "-f", "image2pipe", "-c:v", "png", "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("framesampler: ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("framesampler: no frame at %v", d.pos)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("framesampler: decode frame: %w", err)
	}
	return img, nil
}

// Close removes the spooled source.
func (d *FFmpegDecoder) Close() error {
	if d.path == "" {
		return nil
	}
	err := os.Remove(d.path)
	d.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("framesampler: %w", err)
	}
	return nil
}
