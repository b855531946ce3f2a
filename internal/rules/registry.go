package rules

import (
	"fmt"
	"sort"
	"sync"

	mediaerrors "github.com/a3tai/mcp-media-extract/internal/errors"
	"github.com/a3tai/mcp-media-extract/internal/media"
)

// Factory builds the extractor named by an include entry's type attribute
type Factory func() (media.Extractor, error)

// Registry maps extractor type names to factories. Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name
func (r *Registry) Register(name string, factory Factory) error {
	key := normalizeKey(name)
	if key == "" {
		return fmt.Errorf("extractor type name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("extractor type %s: factory cannot be nil", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("extractor type %s is already registered", key)
	}
	r.factories[key] = factory
	return nil
}

// RegisterExtractor registers a factory that always returns extractor
func (r *Registry) RegisterExtractor(name string, extractor media.Extractor) error {
	if extractor == nil {
		return fmt.Errorf("extractor type %s: extractor cannot be nil", name)
	}
	return r.Register(name, func() (media.Extractor, error) { return extractor, nil })
}

// Resolve instantiates the extractor registered under name
func (r *Registry) Resolve(name string) (media.Extractor, error) {
	key := normalizeKey(name)

	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()

	if !ok {
		return nil, mediaerrors.Configuration("resolve_type", "unknown extractor type %q", name)
	}

	extractor, err := factory()
	if err != nil {
		return nil, &mediaerrors.Error{
			Kind:    mediaerrors.KindConfiguration,
			Op:      "resolve_type",
			Message: fmt.Sprintf("extractor type %q failed to instantiate", name),
			Err:     err,
		}
	}
	if extractor == nil {
		return nil, mediaerrors.Configuration("resolve_type", "extractor type %q returned no extractor", name)
	}
	return extractor, nil
}

// Names returns the registered type names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
