package rules

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-media-extract/internal/config"
	mediaerrors "github.com/a3tai/mcp-media-extract/internal/errors"
	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/media"
)

// Configuration keys of a field's media indexing section.
const (
	SectionMediaIndexing = "mediaIndexing"
	AttrRef              = "ref"
	ListExtensions       = "extensions"
	ListMimeTypes        = "mimeTypes"
	ListIncludes         = "includes"
	ListExcludes         = "excludes"

	// DefaultExtractorName labels the default extractor in rule snapshots.
	DefaultExtractorName = "tesseract"
)

// Entry is one include or exclude item. It is written either as a bare scalar
// (pdf) or as a mapping naming a registered extractor type
// ({value: pdf, type: pdftext}).
type Entry struct {
	Value string `yaml:"value"`
	Type  string `yaml:"type"`
}

// UnmarshalYAML accepts both entry forms
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Value = strings.TrimSpace(node.Value)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Value string `yaml:"value"`
			Type  string `yaml:"type"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		e.Value = strings.TrimSpace(raw.Value)
		e.Type = strings.TrimSpace(raw.Type)
		return nil
	default:
		return fmt.Errorf("line %d: entry must be a scalar or a mapping", node.Line)
	}
}

// CompileDeps are the collaborators of Compile
type CompileDeps struct {
	// Provider resolves the ref indirection. May be nil when no section uses ref.
	Provider config.Provider
	// Registry resolves include entries carrying a type. May be nil.
	Registry *Registry
	// Default is used for untyped includes, wildcard fallbacks, and typed
	// includes whose type cannot be instantiated.
	Default     media.Extractor
	DefaultName string
	Logger      arbor.ILogger
}

// Compile builds a Table from a field configuration node. It fails soft: every
// problem is logged and the table built so far is still returned. The error,
// when non-nil, joins the configuration errors that were logged; callers are
// not expected to abort on it.
func Compile(node *yaml.Node, deps CompileDeps) (*Table, error) {
	c := &compiler{
		deps:  deps,
		table: NewTable(),
	}
	c.deps.Logger = logging.OrDiscard(c.deps.Logger)
	if c.deps.DefaultName == "" {
		c.deps.DefaultName = DefaultExtractorName
	}

	node = unwrapDocument(node)
	if node == nil || isNull(node) {
		return c.table, nil
	}

	if c.deps.Default == nil {
		c.fail("compile", "no default extractor configured")
		return c.table, c.err()
	}

	section, ok := c.resolveSection(node)
	if !ok {
		return c.table, c.err()
	}

	extIncludes := c.readList(section, ListExtensions, ListIncludes)
	extExcludes := c.readList(section, ListExtensions, ListExcludes)
	c.register(MatchExtension, extIncludes, extExcludes)

	mimeIncludes := c.readList(section, ListMimeTypes, ListIncludes)
	mimeExcludes := c.readList(section, ListMimeTypes, ListExcludes)
	c.register(MatchMimeType, mimeIncludes, mimeExcludes)

	c.deps.Logger.Info().
		Int("extensions", len(c.table.byExtension)).
		Int("mime_types", len(c.table.byMimeType)).
		Int("fallbacks", len(c.table.fallback)).
		Msg("Media indexing rules compiled")

	return c.table, c.err()
}

type compiler struct {
	deps  CompileDeps
	table *Table
	errs  []error
}

func (c *compiler) fail(op, format string, args ...interface{}) {
	err := mediaerrors.Configuration(op, format, args...)
	c.deps.Logger.Error().Str("operation", op).Msg(err.Message)
	c.errs = append(c.errs, err)
}

func (c *compiler) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return mediaerrors.Join(c.errs...)
}

// resolveSection finds the mediaIndexing section, following its ref attribute
// to a named fragment.
func (c *compiler) resolveSection(node *yaml.Node) (*yaml.Node, bool) {
	var section *yaml.Node
	if hasChildren(node) {
		section = child(node, SectionMediaIndexing)
		if ref := child(section, AttrRef); ref != nil {
			name := strings.TrimSpace(ref.Value)
			if name == "" {
				c.fail("resolve_ref", "%q attribute in %s section cannot be empty", AttrRef, SectionMediaIndexing)
				return nil, false
			}
			section = c.lookupFragment(name)
		}
	} else {
		c.deps.Logger.Warn().Msg("Media indexing configuration node has no children")
	}

	if section == nil {
		c.fail("resolve_section", "could not find %s section in field configuration", SectionMediaIndexing)
		return nil, false
	}
	return section, true
}

func (c *compiler) lookupFragment(name string) *yaml.Node {
	if c.deps.Provider == nil {
		return nil
	}
	fragment, ok := c.deps.Provider.ConfigNode(name)
	if !ok {
		return nil
	}
	return unwrapDocument(fragment)
}

// readList decodes section.group.list. A missing list node is a configuration
// error; a present list with no value is an empty list.
func (c *compiler) readList(section *yaml.Node, group, list string) []Entry {
	node := child(child(section, group), list)
	if node == nil {
		c.fail("read_list", "%s/%s node not found", group, list)
		return nil
	}
	if isNull(node) {
		return nil
	}

	var entries []Entry
	if err := node.Decode(&entries); err != nil {
		c.fail("read_list", "%s/%s: %v", group, list, err)
		return nil
	}
	return entries
}

// register applies the registration policy to one kind. The branch depends on
// the exclude count first and the include count second.
func (c *compiler) register(kind MatchKind, includes, excludes []Entry) {
	for _, e := range excludes {
		c.table.addExclude(kind, e.Value)
	}

	switch {
	case len(excludes) == 1:
		if excludes[0].Value != Wildcard {
			c.deps.Logger.Warn().
				Str("kind", kind.String()).
				Str("exclude", excludes[0].Value).
				Msg("Single exclude is not a wildcard, no rules registered")
			return
		}
		c.registerExact(kind, includes)

	case len(includes) == 1:
		if includes[0].Value != Wildcard {
			c.deps.Logger.Warn().
				Str("kind", kind.String()).
				Str("include", includes[0].Value).
				Msg("Single include is not a wildcard, no rules registered")
			return
		}
		c.table.prependFallback(c.deps.DefaultName, c.deps.Default)

	default:
		c.registerExact(kind, includes)
	}
}

func (c *compiler) registerExact(kind MatchKind, includes []Entry) {
	for _, inc := range includes {
		if inc.Value == "" {
			c.deps.Logger.Warn().Str("kind", kind.String()).Msg("Skipping include with empty value")
			continue
		}
		name, extractor := c.extractorFor(inc)
		c.table.addExact(kind, inc.Value, name, extractor)
	}
}

// extractorFor resolves a typed include through the registry. Resolution
// failures fall back to the default extractor.
func (c *compiler) extractorFor(inc Entry) (string, media.Extractor) {
	if inc.Type == "" {
		return c.deps.DefaultName, c.deps.Default
	}

	if c.deps.Registry == nil {
		c.fail("resolve_type", "extractor type %q requested for %q but no registry is configured", inc.Type, inc.Value)
		return c.deps.DefaultName, c.deps.Default
	}

	extractor, err := c.deps.Registry.Resolve(inc.Type)
	if err != nil {
		c.deps.Logger.Error().Err(err).Str("include", inc.Value).Msg("Falling back to default extractor")
		c.errs = append(c.errs, err)
		return c.deps.DefaultName, c.deps.Default
	}
	return normalizeKey(inc.Type), extractor
}

func unwrapDocument(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

func hasChildren(node *yaml.Node) bool {
	return node.Kind == yaml.MappingNode && len(node.Content) > 0
}

// child returns the value of key in a mapping node, or nil
func child(node *yaml.Node, key string) *yaml.Node {
	node = unwrapDocument(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
