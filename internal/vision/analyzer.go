package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/prompts"
)

const defaultVisionModel = "gemini-2.5-flash"

// RoomInsights is a structured description of an uploaded room.
type RoomInsights struct {
	Summary        string   `json:"summary"`
	RoomType       string   `json:"room_type"`
	Style          string   `json:"style"`
	NotableDetails []string `json:"notable_details"`
	ColorPalette   []string `json:"color_palette"`
	Tags           []string `json:"tags"`
}

// Analyzer extracts structured insights from room photos.
type Analyzer interface {
	Analyze(ctx context.Context, image imagecodec.DataURI) (RoomInsights, error)
}

// GeminiAnalyzer asks a Gemini text model for RoomInsights in JSON mode.
type GeminiAnalyzer struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

// NewGeminiAnalyzer constructs a Gemini-powered image analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiAnalyzer, error) {
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
	return newGeminiAnalyzer(client.Models, model, timeout), nil
}

func newGeminiAnalyzer(models contentGenerator, model string, timeout time.Duration) *GeminiAnalyzer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiAnalyzer{models: models, model: visionModel(model), timeout: timeout}
}

var insightsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary":         {Type: genai.TypeString},
		"room_type":       {Type: genai.TypeString},
		"style":           {Type: genai.TypeString},
		"notable_details": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"color_palette":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"tags":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"summary", "room_type"},
}

// Analyze describes the room shown in image.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, image imagecodec.DataURI) (RoomInsights, error) {
	if g == nil || g.models == nil {
		return RoomInsights{}, fmt.Errorf("vision: analyzer unavailable")
	}
	data, mime, err := imagecodec.Decode(image)
	if err != nil {
		return RoomInsights{}, fmt.Errorf("vision: %w", err)
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(prompts.RoomAnalysis()),
		genai.NewPartFromBytes(data, mime),
	}, genai.RoleUser)}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(childCtx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: "application/json",
		ResponseSchema:   insightsSchema,
	})
	if err != nil {
		return RoomInsights{}, fmt.Errorf("vision: analyze room: %w", err)
	}
	text := firstText(resp)
	if text == "" {
		return RoomInsights{}, fmt.Errorf("vision: empty response")
	}
	return parseInsights(text)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text
		}
	}
	return ""
}

// parseInsights accepts bare JSON or JSON wrapped in prose or code fences.
func parseInsights(text string) (RoomInsights, error) {
	var insights RoomInsights
	err := json.Unmarshal([]byte(text), &insights)
	if err == nil {
		return insights, nil
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return RoomInsights{}, fmt.Errorf("vision: parse response: %w", err)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &insights); err != nil {
		return RoomInsights{}, fmt.Errorf("vision: parse response: %w", err)
	}
	return insights, nil
}

func visionModel(model string) string {
	clean := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(model), "models/"))
	clean = strings.TrimSuffix(clean, "-latest")
	if clean == "" {
		return defaultVisionModel
	}
	return clean
}
