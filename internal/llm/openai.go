package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI compatible /chat/completions endpoint.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewOpenAIClient constructs a client using the provided API key and model.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultOpenAIBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at an OpenAI compatible API.
func (c *OpenAIClient) WithBaseURL(baseURL string) *OpenAIClient {
	c.baseURL = trimBaseURL(c.baseURL, baseURL)
	return c
}

type openAIRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []ChatMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// ChatCompletion returns the content of the first choice. The Gemini "model"
// role is sent as "assistant".
func (c *OpenAIClient) ChatCompletion(ctx context.Context, messages []ChatMessage, temperature float64) (string, error) {
	req := openAIRequest{Model: c.model, Temperature: temperature, Messages: make([]ChatMessage, 0, len(messages))}
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "model" {
			role = "assistant"
		}
		req.Messages = append(req.Messages, ChatMessage{Role: role, Content: msg.Content})
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.apiKey)

	var resp openAIResponse
	if err := postJSON(ctx, c.http, "openai", c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
