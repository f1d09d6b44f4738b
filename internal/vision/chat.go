package vision

import (
	"context"
	"errors"
)

// ErrUnknownChat is returned for handles that were never issued or already ended.
var ErrUnknownChat = errors.New("vision: unknown chat session")

// ChatHandle identifies a conversation held by a Conversations backend.
// Callers store it and pass it back; they never inspect it.
type ChatHandle string

// Turn is one entry of a conversation seed.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Conversations keeps server-side chat context across refine turns.
type Conversations interface {
	// StartChat opens a conversation seeded with history (may be empty).
	StartChat(ctx context.Context, history []Turn) (ChatHandle, error)
	// SendMessage continues the conversation and returns the model's reply.
	SendMessage(ctx context.Context, handle ChatHandle, message string) (string, error)
	// EndChat releases the conversation. Unknown handles are ignored.
	EndChat(handle ChatHandle)
}
