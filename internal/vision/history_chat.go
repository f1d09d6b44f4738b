package vision

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"roomStylerAi/internal/llm"
	"roomStylerAi/internal/prompts"
)

// HistoryChats emulates chat sessions on top of a stateless completion client
// by replaying the whole transcript on every turn.
type HistoryChats struct {
	client      llm.Client
	temperature float64

	mu       sync.Mutex
	sessions map[ChatHandle]*transcript
}

type transcript struct {
	mu    sync.Mutex
	turns []llm.ChatMessage
}

// NewHistoryChats wraps an llm.Client (Gemini REST or OpenAI).
func NewHistoryChats(client llm.Client) *HistoryChats {
	return &HistoryChats{
		client:      client,
		temperature: 0.4,
		sessions:    make(map[ChatHandle]*transcript),
	}
}

// StartChat registers a transcript seeded with history.
func (h *HistoryChats) StartChat(_ context.Context, history []Turn) (ChatHandle, error) {
	if h == nil || h.client == nil {
		return "", fmt.Errorf("vision: chat client unavailable")
	}
	t := &transcript{}
	for _, turn := range history {
		t.turns = append(t.turns, llm.ChatMessage{Role: normalizeRole(turn.Role), Content: turn.Text})
	}

	handle := ChatHandle(uuid.NewString())
	h.mu.Lock()
	h.sessions[handle] = t
	h.mu.Unlock()
	return handle, nil
}

// SendMessage appends message, asks the model, and records the reply.
// A failed call leaves the transcript unchanged.
func (h *HistoryChats) SendMessage(ctx context.Context, handle ChatHandle, message string) (string, error) {
	h.mu.Lock()
	t, ok := h.sessions[handle]
	h.mu.Unlock()
	if !ok {
		return "", ErrUnknownChat
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	user := llm.ChatMessage{Role: "user", Content: message}
	messages := make([]llm.ChatMessage, 0, len(t.turns)+2)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: prompts.ChatInstruction()})
	messages = append(messages, t.turns...)
	messages = append(messages, user)

	reply, err := h.client.ChatCompletion(ctx, messages, h.temperature)
	if err != nil {
		return "", fmt.Errorf("vision: chat message: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("vision: chat reply was empty")
	}

	t.turns = append(t.turns, user, llm.ChatMessage{Role: "assistant", Content: reply})
	return reply, nil
}

// EndChat drops the transcript.
func (h *HistoryChats) EndChat(handle ChatHandle) {
	h.mu.Lock()
	delete(h.sessions, handle)
	h.mu.Unlock()
}

func normalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), "model") {
		return "assistant"
	}
	return "user"
}
