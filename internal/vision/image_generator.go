package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/prompts"
)

const defaultImageModel = "gemini-2.5-flash-image"

// contentGenerator is the slice of the genai Models service the designer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiDesigner renders interiors via Gemini image outputs.
type GeminiDesigner struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// NewGeminiDesigner constructs a designer able to request inline images.
func NewGeminiDesigner(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiDesigner, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("vision: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: create genai client: %w", err)
	}
	return newGeminiDesigner(client.Models, model, timeout), nil
}

func newGeminiDesigner(models contentGenerator, model string, timeout time.Duration) *GeminiDesigner {
	if strings.TrimSpace(model) == "" {
		model = defaultImageModel
	}
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiDesigner{
		models:  models,
		model:   model,
		timeout: timeout,
	}
}

// GenerateInitialDesign asks Gemini to restyle the original room photo.
func (g *GeminiDesigner) GenerateInitialDesign(ctx context.Context, original imagecodec.DataURI, styleName string) (imagecodec.DataURI, error) {
	if strings.TrimSpace(styleName) == "" {
		return "", fmt.Errorf("vision: style is required")
	}
	return g.render(ctx, original, prompts.InitialDesign(styleName))
}

// RefineDesign asks Gemini to apply an edit to the current design.
func (g *GeminiDesigner) RefineDesign(ctx context.Context, current imagecodec.DataURI, instruction string) (imagecodec.DataURI, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", fmt.Errorf("vision: instruction is required")
	}
	return g.render(ctx, current, prompts.Refine(instruction))
}

func (g *GeminiDesigner) render(ctx context.Context, base imagecodec.DataURI, prompt string) (imagecodec.DataURI, error) {
	if g == nil || g.models == nil {
		return "", fmt.Errorf("vision: image generator unavailable")
	}
	contents, err := buildImageContents(base, prompt)
	if err != nil {
		return "", err
	}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(childCtx, g.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return "", fmt.Errorf("vision: render failed: %w", err)
	}
	return firstInlineImage(resp)
}

func buildImageContents(base imagecodec.DataURI, prompt string) ([]*genai.Content, error) {
	data, mime, err := imagecodec.Decode(base)
	if err != nil {
		return nil, fmt.Errorf("vision: base image: %w", err)
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mime),
		genai.NewPartFromText(prompt),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) (imagecodec.DataURI, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("vision: render returned no candidates")
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if strings.TrimSpace(mime) == "" {
				mime = "image/png"
			}
			return imagecodec.FromBytes(part.InlineData.Data, mime), nil
		}
	}
	return "", ErrNoImage
}
