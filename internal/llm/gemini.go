package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.5-flash"
)

// GeminiClient talks to the generateContent REST endpoint. It authenticates
// with an OAuth2 token source when one is set, an API key otherwise.
type GeminiClient struct {
	apiKey      string
	model       string
	baseURL     string
	http        *http.Client
	tokenSource oauth2.TokenSource
}

// NewGeminiClient constructs a Gemini client for the desired model.
func NewGeminiClient(apiKey, model string, timeout time.Duration, tokenSource oauth2.TokenSource) *GeminiClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiClient{
		apiKey:      strings.TrimSpace(apiKey),
		model:       geminiModel(model),
		baseURL:     defaultGeminiBaseURL,
		http:        &http.Client{Timeout: timeout},
		tokenSource: tokenSource,
	}
}

// WithBaseURL points the client at a different API host.
func (c *GeminiClient) WithBaseURL(baseURL string) *GeminiClient {
	c.baseURL = trimBaseURL(c.baseURL, baseURL)
	return c
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// ChatCompletion sends the conversation and returns the first candidate's text.
// System messages are merged into the system instruction.
func (c *GeminiClient) ChatCompletion(ctx context.Context, messages []ChatMessage, temperature float64) (string, error) {
	payload := buildGeminiRequest(messages, temperature)
	if len(payload.Contents) == 0 {
		return "", fmt.Errorf("gemini: missing user or assistant messages")
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	headers := http.Header{}
	switch {
	case c.tokenSource != nil:
		token, err := c.tokenSource.Token()
		if err != nil {
			return "", fmt.Errorf("gemini: fetch oauth token: %w", err)
		}
		headers.Set("Authorization", "Bearer "+token.AccessToken)
	case c.apiKey != "":
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	default:
		return "", fmt.Errorf("gemini: missing API key or service account credentials")
	}

	var resp geminiResponse
	if err := postJSON(ctx, c.http, "gemini", endpoint, headers, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates returned")
	}

	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text := strings.TrimSpace(part.Text); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("gemini: candidate missing text")
	}
	return strings.Join(texts, "\n\n"), nil
}

func buildGeminiRequest(messages []ChatMessage, temperature float64) geminiRequest {
	var (
		req    geminiRequest
		system []string
	)
	req.GenerationConfig.Temperature = temperature
	for _, msg := range messages {
		switch strings.ToLower(strings.TrimSpace(msg.Role)) {
		case "system":
			system = append(system, msg.Content)
		case "assistant", "model":
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}
	return req
}

func geminiModel(model string) string {
	clean := strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if clean == "" {
		return defaultGeminiModel
	}
	return clean
}
