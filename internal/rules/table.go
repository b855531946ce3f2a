// Package rules compiles media indexing configuration into a routing table and
// dispatches assets to the extractor that table selects.
package rules

import (
	"sort"
	"strings"

	"github.com/a3tai/mcp-media-extract/internal/media"
)

// Wildcard is the include/exclude entry meaning "all values".
const Wildcard = "*"

// MatchKind identifies which asset attribute a rule is keyed on
type MatchKind int

const (
	MatchExtension MatchKind = iota
	MatchMimeType
	MatchFallback
)

// String returns a string representation of the MatchKind
func (k MatchKind) String() string {
	switch k {
	case MatchExtension:
		return "extension"
	case MatchMimeType:
		return "mime_type"
	case MatchFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Rule describes one registration in a Table
type Rule struct {
	Key       string    `json:"key"`
	Kind      MatchKind `json:"-"`
	KindName  string    `json:"kind"`
	Extractor string    `json:"extractor"`
	Position  int       `json:"position,omitempty"` // order within the fallback chain
}

type handle struct {
	name      string
	extractor media.Extractor
}

// ExcludeSet holds the exclude entries retained for the fallback check
type ExcludeSet struct {
	extensions map[string]struct{}
	mimeTypes  map[string]struct{}
}

// HasExtension reports whether ext is excluded
func (s ExcludeSet) HasExtension(ext string) bool {
	_, ok := s.extensions[normalizeKey(ext)]
	return ok
}

// HasMimeType reports whether mimeType is excluded
func (s ExcludeSet) HasMimeType(mimeType string) bool {
	_, ok := s.mimeTypes[normalizeKey(mimeType)]
	return ok
}

// Extensions returns the excluded extensions, sorted
func (s ExcludeSet) Extensions() []string {
	return sortedKeys(s.extensions)
}

// MimeTypes returns the excluded MIME types, sorted
func (s ExcludeSet) MimeTypes() []string {
	return sortedKeys(s.mimeTypes)
}

// Table is the compiled routing state. It is populated by Compile and must
// not be modified once handed to a Dispatcher; concurrent reads need no
// locking.
type Table struct {
	byExtension map[string]handle
	byMimeType  map[string]handle
	fallback    []handle // most recently added first
	excludes    ExcludeSet
}

// NewTable returns an empty table. An empty table routes nothing.
func NewTable() *Table {
	return &Table{
		byExtension: make(map[string]handle),
		byMimeType:  make(map[string]handle),
		excludes: ExcludeSet{
			extensions: make(map[string]struct{}),
			mimeTypes:  make(map[string]struct{}),
		},
	}
}

// addExact registers an exact-match rule. A later registration for the same
// key replaces the earlier one.
func (t *Table) addExact(kind MatchKind, key, name string, extractor media.Extractor) {
	h := handle{name: name, extractor: extractor}
	switch kind {
	case MatchMimeType:
		t.byMimeType[normalizeKey(key)] = h
	default:
		t.byExtension[normalizeKey(key)] = h
	}
}

// prependFallback puts extractor at the head of the fallback chain
func (t *Table) prependFallback(name string, extractor media.Extractor) {
	t.fallback = append([]handle{{name: name, extractor: extractor}}, t.fallback...)
}

func (t *Table) addExclude(kind MatchKind, value string) {
	key := normalizeKey(value)
	if key == "" {
		return
	}
	switch kind {
	case MatchMimeType:
		t.excludes.mimeTypes[key] = struct{}{}
	default:
		t.excludes.extensions[key] = struct{}{}
	}
}

// ByMimeType returns the extractor registered for mimeType
func (t *Table) ByMimeType(mimeType string) (media.Extractor, bool) {
	h, ok := t.byMimeType[normalizeKey(mimeType)]
	return h.extractor, ok
}

// ByExtension returns the extractor registered for ext
func (t *Table) ByExtension(ext string) (media.Extractor, bool) {
	h, ok := t.byExtension[normalizeKey(ext)]
	return h.extractor, ok
}

// Fallback returns the fallback chain in evaluation order
func (t *Table) Fallback() []media.Extractor {
	out := make([]media.Extractor, len(t.fallback))
	for i, h := range t.fallback {
		out[i] = h.extractor
	}
	return out
}

// Excludes returns the retained exclude entries
func (t *Table) Excludes() ExcludeSet {
	return t.excludes
}

// IsEmpty reports whether the table routes nothing
func (t *Table) IsEmpty() bool {
	return len(t.byExtension) == 0 && len(t.byMimeType) == 0 && len(t.fallback) == 0
}

// Rules returns a snapshot of the table: extension rules, then MIME type
// rules, each sorted by key, then the fallback chain in evaluation order.
func (t *Table) Rules() []Rule {
	rules := make([]Rule, 0, len(t.byExtension)+len(t.byMimeType)+len(t.fallback))
	rules = append(rules, exactRules(MatchExtension, t.byExtension)...)
	rules = append(rules, exactRules(MatchMimeType, t.byMimeType)...)
	for i, h := range t.fallback {
		rules = append(rules, Rule{
			Key:       Wildcard,
			Kind:      MatchFallback,
			KindName:  MatchFallback.String(),
			Extractor: h.name,
			Position:  i + 1,
		})
	}
	return rules
}

func exactRules(kind MatchKind, m map[string]handle) []Rule {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rules := make([]Rule, 0, len(keys))
	for _, k := range keys {
		rules = append(rules, Rule{Key: k, Kind: kind, KindName: kind.String(), Extractor: m[k].name})
	}
	return rules
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
