package ui

import (
	"strings"

	"roomStylerAi/internal/session"
)

// ChatPanel is the refine chat as rendered next to the comparator.
type ChatPanel struct {
	Messages []session.ChatMessage
	Loading  bool
	Input    string
}

// CanSubmit reports whether the send button is enabled.
func CanSubmit(input string, loading bool) bool {
	return !loading && strings.TrimSpace(input) != ""
}

// CanSubmit reports whether the panel's current input may be sent.
func (p ChatPanel) CanSubmit() bool {
	return CanSubmit(p.Input, p.Loading)
}

// ShowTypingIndicator is true while a reply is pending for the latest user message.
func (p ChatPanel) ShowTypingIndicator() bool {
	if !p.Loading || len(p.Messages) == 0 {
		return false
	}
	return p.Messages[len(p.Messages)-1].Role == session.RoleUser
}

// ScrollAnchor names the element the panel scrolls to after every update.
func (p ChatPanel) ScrollAnchor() string {
	return "chat-end"
}
