// Package language maps short language codes to the human-readable
// display names embedded in prompts and backend requests.
package language

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FallbackLabel is used verbatim when a code has no known display name.
// Requests with unknown codes are still issued, never blocked.
const FallbackLabel = "the selected language"

// Resolver is a pure lookup from code to display name. No state beyond
// the table itself.
type Resolver struct {
	names map[string]string
}

// NewResolver returns a resolver seeded with the built-in table.
func NewResolver() *Resolver {
	names := make(map[string]string, len(defaultNames))
	for code, name := range defaultNames {
		names[code] = name
	}
	return &Resolver{names: names}
}

// LoadOverlay merges a YAML file of code→name entries over the built-in
// table. Deployments use this to add or rename languages without a rebuild.
func (r *Resolver) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read language overlay %s: %w", path, err)
	}
	overlay := make(map[string]string)
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse language overlay %s: %w", path, err)
	}
	for code, name := range overlay {
		r.names[strings.ToLower(strings.TrimSpace(code))] = name
	}
	return nil
}

// Resolve returns the display name for a code, or FallbackLabel when the
// code is not in the table.
func (r *Resolver) Resolve(code string) string {
	if name, ok := r.names[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return FallbackLabel
}

// Known reports whether the code has a display name.
func (r *Resolver) Known(code string) bool {
	_, ok := r.names[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// Codes returns all known codes, sorted.
func (r *Resolver) Codes() []string {
	codes := make([]string, 0, len(r.names))
	for code := range r.names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

var defaultNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"ru": "Russian",
	"uk": "Ukrainian",
	"ar": "Arabic",
	"hi": "Hindi",
	"bn": "Bengali",
	"zh": "Mandarin",
	"ja": "Japanese",
	"ko": "Korean",
	"vi": "Vietnamese",
	"th": "Thai",
	"tr": "Turkish",
	"fa": "Persian",
	"sw": "Swahili",
	"ta": "Tamil",
	"ur": "Urdu",
	"id": "Indonesian",
	"tl": "Tagalog",
}
