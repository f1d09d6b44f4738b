// Package ui holds the view state of the screens: drag-and-drop upload,
// style picker, before/after comparator, chat panel and header.
package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultReveal is the initial boundary position, in percent.
const DefaultReveal = 50.0

// ClampReveal bounds a reveal percentage to [0,100]. NaN maps to the default.
func ClampReveal(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return DefaultReveal
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Comparator tracks the boundary between the original (left) and the
// generated image (right).
type Comparator struct {
	reveal float64
}

// NewComparator starts with the boundary in the middle.
func NewComparator() *Comparator {
	return &Comparator{reveal: DefaultReveal}
}

// Reveal returns the boundary in percent of the container width.
func (c *Comparator) Reveal() float64 { return c.reveal }

// Set moves the boundary to p percent, clamped.
func (c *Comparator) Set(p float64) {
	c.reveal = ClampReveal(p)
}

// ParseReveal reads a reveal value from a form or query string,
// falling back to the default.
func ParseReveal(raw string) float64 {
	p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return DefaultReveal
	}
	return ClampReveal(p)
}

// ClipPath is the CSS clip for the generated image layer.
func (c *Comparator) ClipPath() string {
	return fmt.Sprintf("inset(0 %s%% 0 0)", formatPercent(100-c.reveal))
}

// HandleLeft is the CSS left offset of the drag handle.
func (c *Comparator) HandleLeft() string {
	return fmt.Sprintf("calc(%s%% - 2px)", formatPercent(c.reveal))
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
