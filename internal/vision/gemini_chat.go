package vision

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"roomStylerAi/internal/prompts"
)

// chatSession is the part of *genai.Chat the backend uses.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// chatFactory opens a chat session; genai's Chats.Create in production.
type chatFactory func(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)

// GeminiChats holds genai chat sessions keyed by opaque handles.
type GeminiChats struct {
	create  chatFactory
	model   string
	timeout time.Duration

	mu       sync.Mutex
	sessions map[ChatHandle]chatSession
}

const defaultChatModel = "gemini-2.5-flash"

// NewGeminiChats constructs a chat backend on the Gemini API.
func NewGeminiChats(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiChats, error) {
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
	create := func(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
		return client.Chats.Create(ctx, model, config, history)
	}
	return newGeminiChats(create, model, timeout), nil
}

func newGeminiChats(create chatFactory, model string, timeout time.Duration) *GeminiChats {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		model = defaultChatModel
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiChats{
		create:   create,
		model:    model,
		timeout:  timeout,
		sessions: make(map[ChatHandle]chatSession),
	}
}

// StartChat creates a genai chat with the design assistant instruction.
func (g *GeminiChats) StartChat(ctx context.Context, history []Turn) (ChatHandle, error) {
	chat, err := g.create(ctx, g.model, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompts.ChatInstruction()}}},
	}, toGenaiHistory(history))
	if err != nil {
		return "", fmt.Errorf("vision: create chat: %w", err)
	}

	handle := ChatHandle(uuid.NewString())
	g.mu.Lock()
	g.sessions[handle] = chat
	g.mu.Unlock()
	return handle, nil
}

// SendMessage forwards the user message to the chat behind handle.
func (g *GeminiChats) SendMessage(ctx context.Context, handle ChatHandle, message string) (string, error) {
	g.mu.Lock()
	chat, ok := g.sessions[handle]
	g.mu.Unlock()
	if !ok {
		return "", ErrUnknownChat
	}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := chat.SendMessage(childCtx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("vision: chat message: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("vision: chat reply was empty")
	}
	return text, nil
}

// EndChat forgets the chat behind handle.
func (g *GeminiChats) EndChat(handle ChatHandle) {
	g.mu.Lock()
	delete(g.sessions, handle)
	g.mu.Unlock()
}

func toGenaiHistory(history []Turn) []*genai.Content {
	if len(history) == 0 {
		return nil
	}
	out := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if strings.EqualFold(turn.Role, "model") {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(turn.Text, role))
	}
	return out
}
