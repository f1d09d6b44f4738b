package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ChatMessage represents a generic chat turn in the prompt history.
// Role is one of "system", "user" or "assistant"/"model".
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the behaviour required by the conversational backends.
type Client interface {
	ChatCompletion(ctx context.Context, messages []ChatMessage, temperature float64) (string, error)
}

// apiError is the error envelope shared by the Gemini and OpenAI REST APIs.
type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// postJSON sends in as a JSON body and decodes a 2xx response into out.
// Non-2xx responses become errors prefixed with provider.
func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, headers http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: new request: %w", provider, err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: perform request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure apiError
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		msg := strings.TrimSpace(failure.Error.Message)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s: status %d: %s", provider, resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", provider, err)
	}
	return nil
}

func trimBaseURL(current, next string) string {
	if trimmed := strings.TrimSuffix(strings.TrimSpace(next), "/"); trimmed != "" {
		return trimmed
	}
	return current
}
