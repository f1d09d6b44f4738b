package session

import (
	"errors"

	"roomStylerAi/internal/catalog"
)

// Banner texts shown to the user. Causes are logged, never displayed.
const (
	MessageConversion = "Failed to process image. Please try another file."
	MessageGeneration = "Failed to generate design. Please try again."
	MessageRefinement = "Failed to refine design. Please try again."
)

var (
	// ErrNoImage is returned when an operation needs an image the session does not hold yet.
	ErrNoImage = errors.New("session: no image available")
	// ErrUnknownStyle is returned for style names outside the catalog.
	ErrUnknownStyle = catalog.ErrUnknownStyle
	// ErrNoStyles is returned by SurpriseMe when the catalog is empty.
	ErrNoStyles = catalog.ErrEmpty
	// ErrWrongStep is returned when an action is not valid on the current screen.
	ErrWrongStep = errors.New("session: action not allowed in current step")
	// ErrBusy is returned while another AI operation of the same session is in flight.
	ErrBusy = errors.New("session: another operation is in progress")
	// ErrEmptyMessage is returned for blank chat submissions.
	ErrEmptyMessage = errors.New("session: message is empty")
	// ErrStale is returned when a reset happened while the operation was running.
	ErrStale = errors.New("session: result discarded after reset")
	// ErrNotFound is returned by the Store for unknown or expired sessions.
	ErrNotFound = errors.New("session: not found")
)

// ConversionError means the uploaded file could not be turned into an encoded image.
type ConversionError struct {
	Filename string
	Err      error
}

func (e *ConversionError) Error() string {
	if e.Filename != "" {
		return "session: convert " + e.Filename + ": " + e.Err.Error()
	}
	return "session: convert upload: " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// GenerationError means the initial design for Style could not be produced.
type GenerationError struct {
	Style string
	Err   error
}

func (e *GenerationError) Error() string {
	return "session: generate " + e.Style + " design: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RefinementError means the image edit or the chat reply of a refine step failed.
type RefinementError struct {
	Instruction string
	Err         error
}

func (e *RefinementError) Error() string {
	return "session: refine design: " + e.Err.Error()
}

func (e *RefinementError) Unwrap() error { return e.Err }

// UserMessage maps an error returned by the Controller to the text shown to the user.
func UserMessage(err error) string {
	var (
		conv *ConversionError
		gen  *GenerationError
		ref  *RefinementError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &conv):
		return MessageConversion
	case errors.As(err, &gen):
		return MessageGeneration
	case errors.As(err, &ref):
		return MessageRefinement
	case errors.Is(err, ErrBusy):
		return "Please wait for the current change to finish."
	case errors.Is(err, ErrEmptyMessage):
		return "Please describe the change you would like."
	case errors.Is(err, ErrUnknownStyle):
		return "Please pick one of the offered styles."
	case errors.Is(err, ErrNoStyles):
		return "No styles are available right now."
	case errors.Is(err, ErrWrongStep):
		return "That action is not available right now."
	case errors.Is(err, ErrStale):
		return "The session was reset before the change finished."
	case errors.Is(err, ErrNotFound):
		return "Your session has expired. Please start again."
	case errors.Is(err, ErrNoImage):
		return "There is no design to use yet."
	default:
		return "Something went wrong. Please try again."
	}
}
