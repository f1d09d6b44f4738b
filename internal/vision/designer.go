package vision

import (
	"context"
	"errors"

	"roomStylerAi/internal/imagecodec"
)

// ErrNoImage is returned when a backend answers without image data.
var ErrNoImage = errors.New("vision: response contained no image")

// Designer renders room redesigns. Both calls return a new encoded image and
// never modify their input.
type Designer interface {
	// GenerateInitialDesign redecorates the original photo in the named style.
	GenerateInitialDesign(ctx context.Context, original imagecodec.DataURI, styleName string) (imagecodec.DataURI, error)
	// RefineDesign applies a free-text edit to the current generated image.
	RefineDesign(ctx context.Context, current imagecodec.DataURI, instruction string) (imagecodec.DataURI, error)
}
