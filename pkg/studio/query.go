package studio

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/haivivi/livestudio/pkg/codec"
)

const (
	// ThinkingBudget is the token budget Think grants the model.
	ThinkingBudget = 32768

	// DefaultImagePrompt is used by AnalyzeImage when no prompt is given.
	DefaultImagePrompt = "Describe this image in detail."
)

// Source is a web page a search grounded answer cites.
type Source struct {
	Title string `json:"title" yaml:"title"`
	URI   string `json:"uri" yaml:"uri"`
}

// SearchResult is an answer with the pages it was grounded on.
type SearchResult struct {
	Text    string   `json:"text" yaml:"text"`
	Sources []Source `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Think answers a prompt with an extended thinking budget. Only the answer
// text is returned.
func (c *Client) Think(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](ThinkingBudget)},
	}
	resp, err := c.generate(ctx, c.reasoningModel, []*genai.Part{{Text: prompt}}, cfg)
	if err != nil {
		return "", fmt.Errorf("studio: think: %w", err)
	}
	return responseText(resp), nil
}

// AnalyzeImage sends an image followed by the prompt.
func (c *Client) AnalyzeImage(ctx context.Context, image codec.Blob, prompt string) (string, error) {
	data, err := image.Bytes()
	if err != nil {
		return "", fmt.Errorf("studio: analyze image: %w", err)
	}
	if prompt == "" {
		prompt = DefaultImagePrompt
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: image.MIMEType, Data: data}},
		{Text: prompt},
	}
	resp, err := c.generate(ctx, c.imageModel, parts, nil)
	if err != nil {
		return "", fmt.Errorf("studio: analyze image: %w", err)
	}
	return responseText(resp), nil
}

// Search answers a query with Google Search grounding. Sources are listed
// in citation order, without duplicates.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	resp, err := c.generate(ctx, c.searchModel, []*genai.Part{{Text: query}}, cfg)
	if err != nil {
		return nil, fmt.Errorf("studio: search: %w", err)
	}
	return &SearchResult{Text: responseText(resp), Sources: groundingSources(resp)}, nil
}

func groundingSources(resp *genai.GenerateContentResponse) []Source {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []Source
	seen := make(map[string]bool)
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		out = append(out, Source{Title: title, URI: chunk.Web.URI})
	}
	return out
}
