// Package session owns the per-user design flow: upload, style selection and
// chat-driven refinement, plus the in-memory store that keeps sessions alive.
package session

import (
	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/vision"
)

// Step is the screen a session is on.
type Step string

const (
	StepUpload Step = "UPLOAD"
	StepStyle  Step = "STYLE"
	StepResult Step = "RESULT"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one entry of the chat history. Entries are append-only.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID             string             `json:"id"`
	Step           Step               `json:"step"`
	Style          string             `json:"style,omitempty"`
	OriginalImage  imagecodec.DataURI `json:"originalImage,omitempty"`
	GeneratedImage imagecodec.DataURI `json:"generatedImage,omitempty"`
	ChatHistory    []ChatMessage      `json:"chatHistory"`
	Loading        bool               `json:"loading"`
	LoadingMessage string             `json:"loadingMessage,omitempty"`
	Error          string             `json:"error,omitempty"`
	HasChat        bool               `json:"hasChat"`
}

// state is the mutable session record guarded by Controller.mu.
type state struct {
	step           Step
	style          string
	originalImage  imagecodec.DataURI
	generatedImage imagecodec.DataURI
	chatHistory    []ChatMessage
	loading        bool
	loadingMessage string
	errMessage     string
	chat           vision.ChatHandle
}

func initialState() state {
	return state{step: StepUpload}
}

func (s state) snapshot(id string) Snapshot {
	history := make([]ChatMessage, len(s.chatHistory))
	copy(history, s.chatHistory)
	return Snapshot{
		ID:             id,
		Step:           s.step,
		Style:          s.style,
		OriginalImage:  s.originalImage,
		GeneratedImage: s.generatedImage,
		ChatHistory:    history,
		Loading:        s.loading,
		LoadingMessage: s.loadingMessage,
		Error:          s.errMessage,
		HasChat:        s.chat != "",
	}
}
