package studio

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/haivivi/livestudio/pkg/codec"
	"github.com/haivivi/livestudio/pkg/framesampler"
)

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	g.model = model
	g.contents = contents
	g.config = config
	return g.resp, g.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	var ps []*genai.Part
	for _, p := range parts {
		ps = append(ps, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: ps}}},
	}
}

func TestAnalyzeVideo(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("A cat ", "jumps.")}
	c := New(gen)
	frames := []framesampler.Frame{
		{Timestamp: time.Second, MIMEType: "image/jpeg", Data: []byte{1}},
		{Timestamp: 2 * time.Second, MIMEType: "image/jpeg", Data: []byte{2}},
	}
	got, err := c.AnalyzeVideo(context.Background(), frames, "")
	if err != nil {
		t.Fatalf("AnalyzeVideo: %v", err)
	}
	if got != "A cat jumps." {
		t.Errorf("text = %q", got)
	}
	if gen.model != DefaultVideoModel {
		t.Errorf("model = %q", gen.model)
	}
	parts := gen.contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("sent %d parts, want 3", len(parts))
	}
	for i := range 2 {
		if parts[i].InlineData == nil || parts[i].InlineData.Data[0] != byte(i+1) {
			t.Errorf("part %d = %+v, want frame %d", i, parts[i], i+1)
		}
	}
	if parts[2].Text != DefaultVideoPrompt {
		t.Errorf("prompt = %q", parts[2].Text)
	}

	if _, err := c.AnalyzeVideo(context.Background(), nil, ""); !errors.Is(err, ErrNoFrames) {
		t.Errorf("no frames err = %v", err)
	}
}

type failingDecoder struct{}

func (failingDecoder) Load(context.Context, []byte) (framesampler.Metadata, error) {
	return framesampler.Metadata{}, errors.New("corrupt")
}
func (failingDecoder) Seek(context.Context, time.Duration) error { return nil }
func (failingDecoder) Rasterize(context.Context) (image.Image, error) {
	return nil, errors.New("unreachable")
}
func (failingDecoder) Close() error { return nil }

func TestExtractAndAnalyzeNoFrames(t *testing.T) {
	gen := &fakeGenerator{}
	c := New(gen)
	_, frames, err := c.ExtractAndAnalyze(context.Background(), framesampler.New(failingDecoder{}), []byte("x"), 0, "")
	if !errors.Is(err, ErrNoFrames) || !errors.Is(err, framesampler.ErrLoad) {
		t.Fatalf("err = %v, want ErrNoFrames and ErrLoad", err)
	}
	if len(frames) != 0 || gen.contents != nil {
		t.Error("request sent without frames")
	}
}

func TestTranscribe(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("hello world")}
	c := New(gen, WithTranscribeModel("custom"))
	blob := codec.NewBlob([]byte("RIFF....WAVE"), ".wav")

	got, err := c.Transcribe(context.Background(), blob)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello world" {
		t.Errorf("text = %q", got)
	}
	if gen.model != "custom" {
		t.Errorf("model = %q", gen.model)
	}
	parts := gen.contents[0].Parts
	if string(parts[0].InlineData.Data) != "RIFF....WAVE" || parts[0].InlineData.MIMEType != blob.MIMEType {
		t.Errorf("audio part = %+v", parts[0].InlineData)
	}
	if parts[1].Text != TranscribePrompt {
		t.Errorf("prompt = %q", parts[1].Text)
	}

	gen.err = errors.New("quota")
	if _, err := c.Transcribe(context.Background(), blob); err == nil {
		t.Error("expected error")
	}
}

func TestSpeak(t *testing.T) {
	pcm := codec.FloatToPCM16([]float32{0.5, -0.5, 0, 0.25})
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "audio/L16;codec=pcm;rate=24000", Data: pcm}},
		}}}},
	}}
	c := New(gen)

	buf, err := c.Speak(context.Background(), "Hello", "")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if buf.SampleRate != SpeechSampleRate || buf.Frames() != 4 {
		t.Fatalf("buffer = %d Hz, %d frames", buf.SampleRate, buf.Frames())
	}
	if buf.Channel(0)[0] != 0.5 {
		t.Errorf("first sample = %v", buf.Channel(0)[0])
	}
	if gen.model != DefaultSpeechModel {
		t.Errorf("model = %q", gen.model)
	}
	voice := gen.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName
	if voice != DefaultVoice {
		t.Errorf("voice = %q", voice)
	}
	if len(gen.config.ResponseModalities) != 1 || gen.config.ResponseModalities[0] != "AUDIO" {
		t.Errorf("modalities = %v", gen.config.ResponseModalities)
	}

	gen.resp = textResponse("no audio here")
	if _, err := c.Speak(context.Background(), "Hello", "Puck"); !errors.Is(err, ErrNoAudio) {
		t.Errorf("err = %v, want ErrNoAudio", err)
	}
	if v := gen.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; v != "Puck" {
		t.Errorf("voice override = %q", v)
	}
}

func TestResponseTextSkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{Text: "Let me reason about this first.", Thought: true},
			{Text: "The answer is 4."},
		}}}},
	}
	if got := responseText(resp); got != "The answer is 4." {
		t.Errorf("responseText = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("responseText(nil) = %q", got)
	}
}
