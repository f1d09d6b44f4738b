package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"roomStylerAi/internal/catalog"
	"roomStylerAi/internal/events"
	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/logger"
	"roomStylerAi/internal/prompts"
	"roomStylerAi/internal/vision"
)

// Publisher receives progress updates for the loading veil.
type Publisher interface {
	Publish(evt events.Event)
}

// Dependencies are the collaborators shared by every Controller.
type Dependencies struct {
	Designer      vision.Designer
	Conversations vision.Conversations
	Catalog       catalog.Catalog
	Publisher     Publisher
	Upload        imagecodec.Options
	// Rand drives SurpriseMe. Nil uses the global source.
	Rand *rand.Rand
}

// Controller sequences the AI calls of one session and owns its state.
// It is safe for concurrent use; at most one AI operation runs at a time.
type Controller struct {
	id   string
	deps Dependencies

	mu         sync.Mutex
	state      state
	generation uint64
	busy       bool
	rngMu      sync.Mutex
}

// NewController returns a controller in the UPLOAD step.
func NewController(id string, deps Dependencies) *Controller {
	return &Controller{
		id:    id,
		deps:  deps,
		state: initialState(),
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.snapshot(c.id)
}

// Upload converts the file and moves the session from UPLOAD to STYLE.
// On failure the step is unchanged and the banner is set. The file is read
// without holding the session lock.
func (c *Controller) Upload(r io.Reader, filename string) (Snapshot, error) {
	c.mu.Lock()
	err := c.uploadAllowedLocked()
	c.mu.Unlock()
	if err != nil {
		return c.Snapshot(), err
	}

	uri, encErr := imagecodec.Encode(r, filename, c.deps.Upload)

	c.mu.Lock()
	defer c.mu.Unlock()
	// The session may have moved on while the file was read.
	if err := c.uploadAllowedLocked(); err != nil {
		return c.state.snapshot(c.id), err
	}
	if encErr != nil {
		c.state.errMessage = MessageConversion
		logger.ErrorWithFields("image conversion failed", logger.Fields{
			"session_id": c.id,
			"operation":  "upload",
			"filename":   filename,
			"error":      encErr.Error(),
		})
		c.publishLocked()
		return c.state.snapshot(c.id), &ConversionError{Filename: filename, Err: encErr}
	}

	c.state.originalImage = uri
	c.state.step = StepStyle
	c.state.errMessage = ""
	c.publishLocked()
	return c.state.snapshot(c.id), nil
}

func (c *Controller) uploadAllowedLocked() error {
	if c.busy {
		return ErrBusy
	}
	if c.state.step != StepUpload {
		return ErrWrongStep
	}
	return nil
}

// SelectStyle renders the original photo in the named style, seeds the chat
// history with a greeting and opens the chat session. On failure the session
// stays on STYLE with the banner set.
func (c *Controller) SelectStyle(ctx context.Context, name string) (Snapshot, error) {
	style, err := c.deps.Catalog.Find(name)
	if err != nil {
		return c.Snapshot(), fmt.Errorf("session: select %q: %w", name, err)
	}
	return c.generate(ctx, style)
}

// SurpriseMe selects a uniformly random catalog style.
func (c *Controller) SurpriseMe(ctx context.Context) (Snapshot, error) {
	c.rngMu.Lock()
	style, err := c.deps.Catalog.Random(c.deps.Rand)
	c.rngMu.Unlock()
	if err != nil {
		return c.Snapshot(), fmt.Errorf("session: surprise: %w", err)
	}
	return c.generate(ctx, style)
}

func (c *Controller) generate(ctx context.Context, style catalog.DesignStyle) (Snapshot, error) {
	c.mu.Lock()
	if c.busy {
		defer c.mu.Unlock()
		return c.state.snapshot(c.id), ErrBusy
	}
	if c.state.step != StepStyle {
		defer c.mu.Unlock()
		return c.state.snapshot(c.id), ErrWrongStep
	}
	if c.state.originalImage == "" {
		defer c.mu.Unlock()
		return c.state.snapshot(c.id), ErrNoImage
	}
	gen := c.begin(prompts.GeneratingStatus(style.Name))
	original := c.state.originalImage
	c.mu.Unlock()

	generated, err := c.deps.Designer.GenerateInitialDesign(ctx, original, style.Name)
	var handle vision.ChatHandle
	if err == nil {
		handle, err = c.deps.Conversations.StartChat(ctx, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		if handle != "" {
			c.deps.Conversations.EndChat(handle)
		}
		logger.WarnWithFields("discarding stale design", logger.Fields{
			"session_id": c.id,
			"operation":  "generate",
			"style":      style.Name,
		})
		return c.state.snapshot(c.id), ErrStale
	}
	c.busy = false
	c.state.loading = false
	c.state.loadingMessage = ""

	if err != nil {
		c.state.errMessage = MessageGeneration
		logger.ErrorWithFields("design generation failed", logger.Fields{
			"session_id": c.id,
			"operation":  "generate",
			"style":      style.Name,
			"error":      err.Error(),
		})
		c.publishLocked()
		return c.state.snapshot(c.id), &GenerationError{Style: style.Name, Err: err}
	}

	c.state.generatedImage = generated
	c.state.style = style.Name
	c.state.chatHistory = []ChatMessage{{Role: RoleModel, Text: prompts.Greeting(style.Name)}}
	c.state.chat = handle
	c.state.step = StepResult
	c.publishLocked()
	return c.state.snapshot(c.id), nil
}

// Refine applies a chat instruction. The user message is appended at once;
// the image edit and the chat reply run concurrently and must both succeed.
// On failure the previous image is kept and an apology is appended.
func (c *Controller) Refine(ctx context.Context, message string) (Snapshot, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return c.Snapshot(), ErrEmptyMessage
	}

	c.mu.Lock()
	if c.busy {
		defer c.mu.Unlock()
		return c.state.snapshot(c.id), ErrBusy
	}
	if c.state.step != StepResult {
		defer c.mu.Unlock()
		return c.state.snapshot(c.id), ErrWrongStep
	}
	c.state.chatHistory = append(c.state.chatHistory, ChatMessage{Role: RoleUser, Text: message})
	gen := c.begin(prompts.RefiningStatus())
	current := c.state.generatedImage
	handle := c.state.chat
	c.mu.Unlock()

	var (
		refined imagecodec.DataURI
		reply   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := c.deps.Designer.RefineDesign(gctx, current, message)
		if err != nil {
			return err
		}
		refined = img
		return nil
	})
	g.Go(func() error {
		text, err := c.deps.Conversations.SendMessage(gctx, handle, message)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		logger.WarnWithFields("discarding stale refinement", logger.Fields{
			"session_id": c.id,
			"operation":  "refine",
		})
		return c.state.snapshot(c.id), ErrStale
	}
	c.busy = false
	c.state.loading = false
	c.state.loadingMessage = ""

	if err != nil {
		c.state.chatHistory = append(c.state.chatHistory, ChatMessage{Role: RoleModel, Text: prompts.Apology()})
		c.state.errMessage = MessageRefinement
		logger.ErrorWithFields("design refinement failed", logger.Fields{
			"session_id": c.id,
			"operation":  "refine",
			"error":      err.Error(),
		})
		c.publishLocked()
		return c.state.snapshot(c.id), &RefinementError{Instruction: message, Err: err}
	}

	c.state.generatedImage = refined
	c.state.chatHistory = append(c.state.chatHistory, ChatMessage{Role: RoleModel, Text: reply})
	c.publishLocked()
	return c.state.snapshot(c.id), nil
}

// Reset returns the session to UPLOAD from any step and releases the chat.
// Operations still in flight will have their results discarded.
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.chat != "" && c.deps.Conversations != nil {
		c.deps.Conversations.EndChat(c.state.chat)
	}
	c.state = initialState()
	c.generation++
	c.busy = false
	c.publishLocked()
	return c.state.snapshot(c.id)
}

// DismissError clears the banner.
func (c *Controller) DismissError() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.errMessage = ""
	return c.state.snapshot(c.id)
}

// Close releases external resources. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.chat != "" && c.deps.Conversations != nil {
		c.deps.Conversations.EndChat(c.state.chat)
		c.state.chat = ""
	}
	c.generation++
}

// begin marks an AI operation as running and returns its generation.
// Callers hold c.mu.
func (c *Controller) begin(status string) uint64 {
	c.busy = true
	c.state.loading = true
	c.state.loadingMessage = status
	c.state.errMessage = ""
	c.publishLocked()
	return c.generation
}

func (c *Controller) publishLocked() {
	if c.deps.Publisher == nil {
		return
	}
	c.deps.Publisher.Publish(events.Event{
		SessionID: c.id,
		Step:      string(c.state.step),
		Loading:   c.state.loading,
		Status:    c.state.loadingMessage,
		Error:     c.state.errMessage,
	})
}

// IsStale reports whether err means the result was dropped after a reset.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}
