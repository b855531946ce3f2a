// Package language maps an asset's content language to a Tesseract language
// code.
package language

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/a3tai/mcp-media-extract/internal/config"
	"github.com/a3tai/mcp-media-extract/internal/logging"
)

// DefaultCode is returned when no mapping applies.
const DefaultCode = "eng"

// Mapping is one entry of the "tesseract" fragment.
type Mapping struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Resolver looks up OCR language codes in the "tesseract" configuration
// fragment.
type Resolver struct {
	provider config.Provider
	logger   arbor.ILogger
}

// NewResolver creates a resolver backed by provider. A nil provider resolves
// every language to DefaultCode.
func NewResolver(provider config.Provider, logger arbor.ILogger) *Resolver {
	return &Resolver{
		provider: provider,
		logger:   logging.OrDiscard(logger),
	}
}

// Resolve returns the OCR language code for an asset language. English
// variants never consult the mapping table.
func (r *Resolver) Resolve(assetLanguage string) string {
	lang := strings.ToLower(strings.TrimSpace(assetLanguage))
	if strings.HasPrefix(lang, "en") {
		return DefaultCode
	}
	if r.provider == nil {
		return DefaultCode
	}

	node, ok := r.provider.ConfigNode(config.FragmentTesseract)
	if !ok || node == nil {
		return DefaultCode
	}

	var mappings []Mapping
	if err := node.Decode(&mappings); err != nil {
		r.logger.Warn().Err(err).Msg("Invalid tesseract language mapping, using default language")
		return DefaultCode
	}

	for _, m := range mappings {
		if m.Name == lang && m.Code != "" {
			return m.Code
		}
	}
	return DefaultCode
}
