// Package catalog holds the read-only list of design styles offered to users.
package catalog

import (
	"errors"
	"math/rand/v2"
	"strings"
)

// ErrUnknownStyle is returned when a style name is not part of the catalog.
var ErrUnknownStyle = errors.New("catalog: unknown style")

// ErrEmpty is returned when a random pick is requested from an empty catalog.
var ErrEmpty = errors.New("catalog: no styles available")

// DesignStyle is a named aesthetic with a representative thumbnail.
type DesignStyle struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// Catalog is an immutable, ordered set of styles.
type Catalog struct {
	styles []DesignStyle
}

// New builds a catalog, dropping blank names and case-insensitive duplicates.
func New(styles []DesignStyle) Catalog {
	seen := make(map[string]struct{}, len(styles))
	cleaned := make([]DesignStyle, 0, len(styles))
	for _, s := range styles {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, DesignStyle{Name: name, ImageURL: strings.TrimSpace(s.ImageURL)})
	}
	return Catalog{styles: cleaned}
}

// Default returns the built-in catalog.
func Default() Catalog {
	return New([]DesignStyle{
		{Name: "Mid-Century Modern", ImageURL: "https://picsum.photos/seed/mcm/400/300"},
		{Name: "Scandinavian", ImageURL: "https://picsum.photos/seed/scandi/400/300"},
		{Name: "Industrial", ImageURL: "https://picsum.photos/seed/industrial/400/300"},
		{Name: "Bohemian", ImageURL: "https://picsum.photos/seed/boho/400/300"},
		{Name: "Minimalist", ImageURL: "https://picsum.photos/seed/minimal/400/300"},
		{Name: "Coastal", ImageURL: "https://picsum.photos/seed/coastal/400/300"},
	})
}

// Styles returns a copy of the catalog entries in display order.
func (c Catalog) Styles() []DesignStyle {
	out := make([]DesignStyle, len(c.styles))
	copy(out, c.styles)
	return out
}

// Len reports the number of styles.
func (c Catalog) Len() int { return len(c.styles) }

// Find looks a style up by name, ignoring case and surrounding space.
func (c Catalog) Find(name string) (DesignStyle, error) {
	name = strings.TrimSpace(name)
	for _, s := range c.styles {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return DesignStyle{}, ErrUnknownStyle
}

// Random picks a uniformly distributed entry. A nil rng uses the global source.
func (c Catalog) Random(rng *rand.Rand) (DesignStyle, error) {
	if len(c.styles) == 0 {
		return DesignStyle{}, ErrEmpty
	}
	var idx int
	if rng == nil {
		idx = rand.IntN(len(c.styles))
	} else {
		idx = rng.IntN(len(c.styles))
	}
	return c.styles[idx], nil
}
