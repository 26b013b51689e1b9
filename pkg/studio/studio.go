// Package studio wraps the model calls used around live sessions: video
// description from sampled frames, transcription, speech synthesis, image
// analysis, long reasoning, search grounded answers and a text chat.
//
// Each call is a single generateContent request with no retries.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/haivivi/livestudio/pkg/codec"
	"github.com/haivivi/livestudio/pkg/framesampler"
)

const (
	DefaultVideoModel      = "gemini-3-pro-preview"
	DefaultTranscribeModel = "gemini-2.5-flash"
	DefaultSpeechModel     = "gemini-2.5-flash-preview-tts"
	DefaultVoice           = "Kore"
	DefaultChatModel       = "gemini-2.5-flash"
	DefaultReasoningModel  = "gemini-3-pro-preview"
	DefaultImageModel      = "gemini-3-pro-preview"
	DefaultSearchModel     = "gemini-2.5-flash"

	// DefaultVideoPrompt is used by AnalyzeVideo when no prompt is given.
	DefaultVideoPrompt = "Describe what is happening in this video based on these frames."

	// TranscribePrompt is sent along with the audio by Transcribe.
	TranscribePrompt = "Transcribe this audio recording."

	// SpeechSampleRate is the rate of synthesized speech.
	SpeechSampleRate = 24000

	// DefaultFrameCount is the number of frames sampled from a video.
	DefaultFrameCount = 8
)

var (
	// ErrNoFrames is returned when a video yields no frames.
	ErrNoFrames = errors.New("studio: could not extract any frames from the video; the file may be corrupt or in an unsupported format")

	// ErrNoAudio is returned when a speech response carries no audio.
	ErrNoAudio = errors.New("studio: response contained no audio")
)

// Generator is the generateContent call. *genai.Models implements it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client issues one-shot requests.
type Client struct {
	gen             Generator
	videoModel      string
	transcribeModel string
	speechModel     string
	voice           string
	chatModel       string
	reasoningModel  string
	imageModel      string
	searchModel     string
}

// Option configures a Client.
type Option func(*Client)

// WithVideoModel sets the model used by AnalyzeVideo.
func WithVideoModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.videoModel = model
		}
	}
}

// WithTranscribeModel sets the model used by Transcribe.
func WithTranscribeModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.transcribeModel = model
		}
	}
}

// WithSpeechModel sets the model used by Speak.
func WithSpeechModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.speechModel = model
		}
	}
}

// WithVoice sets the default prebuilt voice for Speak.
func WithVoice(voice string) Option {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithChatModel sets the model used by chats.
func WithChatModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.chatModel = model
		}
	}
}

// WithReasoningModel sets the model used by Think.
func WithReasoningModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.reasoningModel = model
		}
	}
}

// WithImageModel sets the model used by AnalyzeImage.
func WithImageModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.imageModel = model
		}
	}
}

// WithSearchModel sets the model used by Search.
func WithSearchModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.searchModel = model
		}
	}
}

// New returns a Client sending requests through gen.
func New(gen Generator, opts ...Option) *Client {
	c := &Client{
		gen:             gen,
		videoModel:      DefaultVideoModel,
		transcribeModel: DefaultTranscribeModel,
		speechModel:     DefaultSpeechModel,
		voice:           DefaultVoice,
		chatModel:       DefaultChatModel,
		reasoningModel:  DefaultReasoningModel,
		imageModel:      DefaultImageModel,
		searchModel:     DefaultSearchModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGemini returns a Client for the Gemini API. An empty baseURL uses the
// SDK default.
func NewGemini(ctx context.Context, apiKey, baseURL string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("studio: genai client: %w", err)
	}
	return New(gc.Models, opts...), nil
}

// ExtractAndAnalyze samples count frames from video and describes them.
func (c *Client) ExtractAndAnalyze(ctx context.Context, sampler *framesampler.Sampler, video []byte, count int, prompt string) (string, []framesampler.Frame, error) {
	if count <= 0 {
		count = DefaultFrameCount
	}
	frames, err := sampler.Extract(ctx, video, count)
	if len(frames) == 0 {
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrNoFrames, err)
		}
		return "", nil, ErrNoFrames
	}
	if err != nil {
		slog.Warn("studio: using partial frames", "frames", len(frames), "err", err)
	}
	text, err := c.AnalyzeVideo(ctx, frames, prompt)
	return text, frames, err
}

// AnalyzeVideo sends the frames, in order, followed by the prompt.
func (c *Client) AnalyzeVideo(ctx context.Context, frames []framesampler.Frame, prompt string) (string, error) {
	if len(frames) == 0 {
		return "", ErrNoFrames
	}
	if prompt == "" {
		prompt = DefaultVideoPrompt
	}
	parts := make([]*genai.Part, 0, len(frames)+1)
	for _, f := range frames {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: f.MIMEType, Data: f.Data}})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	resp, err := c.generate(ctx, c.videoModel, parts, nil)
	if err != nil {
		return "", fmt.Errorf("studio: analyze video: %w", err)
	}
	return responseText(resp), nil
}

// Transcribe returns the transcript of an audio blob.
func (c *Client) Transcribe(ctx context.Context, audio codec.Blob) (string, error) {
	data, err := audio.Bytes()
	if err != nil {
		return "", fmt.Errorf("studio: transcribe: %w", err)
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: audio.MIMEType, Data: data}},
		{Text: TranscribePrompt},
	}
	resp, err := c.generate(ctx, c.transcribeModel, parts, nil)
	if err != nil {
		return "", fmt.Errorf("studio: transcribe: %w", err)
	}
	return responseText(resp), nil
}

// Speak synthesizes text with a prebuilt voice. An empty voice uses the
// client default. The result is mono at SpeechSampleRate.
func (c *Client) Speak(ctx context.Context, text, voice string) (*codec.AudioBuffer, error) {
	if voice == "" {
		voice = c.voice
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := c.generate(ctx, c.speechModel, []*genai.Part{{Text: text}}, cfg)
	if err != nil {
		return nil, fmt.Errorf("studio: speak: %w", err)
	}
	data := responseAudio(resp)
	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	buf, err := codec.PCM16ToFloat(data, SpeechSampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("studio: speak: %w", err)
	}
	return buf, nil
}

func (c *Client) generate(ctx context.Context, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	slog.Debug("studio: generate", "model", model, "parts", len(parts))
	return c.gen.GenerateContent(ctx, model, []*genai.Content{{Role: "user", Parts: parts}}, cfg)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// responseAudio concatenates the inline audio of the first candidate.
func responseAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []byte
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil {
			out = append(out, p.InlineData.Data...)
		}
	}
	return out
}
