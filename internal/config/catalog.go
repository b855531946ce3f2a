package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Setting and fragment names looked up by the extraction components.
const (
	SettingMediaIndexingFolder = "MediaIndexingFolder"
	SettingTessdataFolder      = "TessdataFolder"
	SettingOCRMode             = "TesseractMode"
	SettingTextBackend         = "PdfTextBackend"

	FragmentTesseract = "tesseract"
)

// Provider resolves named configuration fragments and flat settings.
type Provider interface {
	// ConfigNode returns the fragment registered under name.
	ConfigNode(name string) (*yaml.Node, bool)
	// Setting returns the value of a flat setting, or "" when unset.
	Setting(name string) string
}

// Catalog is the index configuration document. It is loaded once at startup
// and read concurrently afterwards; it must not be modified once published.
//
//	settings:
//	  MediaIndexingFolder: /var/tmp/media-indexing
//	  TessdataFolder: tessdata
//	fragments:
//	  contentSearch/mediaIndexing:
//	    extensions: {includes: ["*"], excludes: []}
//	    mimeTypes:  {includes: [], excludes: []}
//	  tesseract:
//	    - {name: fr-fr, code: fra}
//	fields:
//	  media_content:
//	    mediaIndexing:
//	      ref: contentSearch/mediaIndexing
type Catalog struct {
	settings  map[string]string
	fragments map[string]*yaml.Node
	fields    map[string]*yaml.Node
}

type catalogDocument struct {
	Settings  map[string]string    `yaml:"settings"`
	Fragments map[string]yaml.Node `yaml:"fragments"`
	Fields    map[string]yaml.Node `yaml:"fields"`
}

// NewCatalog returns an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		settings:  make(map[string]string),
		fragments: make(map[string]*yaml.Node),
		fields:    make(map[string]*yaml.Node),
	}
}

// LoadCatalog reads a catalog from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes a catalog document
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	c := NewCatalog()
	for k, v := range doc.Settings {
		c.settings[k] = v
	}
	for name := range doc.Fragments {
		node := doc.Fragments[name]
		c.fragments[name] = &node
	}
	for name := range doc.Fields {
		node := doc.Fields[name]
		c.fields[name] = &node
	}
	return c, nil
}

// ConfigNode returns a named fragment
func (c *Catalog) ConfigNode(name string) (*yaml.Node, bool) {
	node, ok := c.fragments[name]
	return node, ok
}

// Setting returns a flat setting value
func (c *Catalog) Setting(name string) string {
	return c.settings[name]
}

// Field returns the configuration node of a computed field
func (c *Catalog) Field(name string) (*yaml.Node, bool) {
	node, ok := c.fields[name]
	return node, ok
}

// FieldNames returns the names of all configured computed fields
func (c *Catalog) FieldNames() []string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	return names
}

// SetDefault sets a setting only if the catalog does not define it. It is
// meant for startup wiring, before the catalog is shared.
func (c *Catalog) SetDefault(name, value string) {
	if _, ok := c.settings[name]; !ok && value != "" {
		c.settings[name] = value
	}
}

// ApplyDefaults copies process configuration into unset catalog settings
func (c *Catalog) ApplyDefaults(cfg *Config) {
	c.SetDefault(SettingMediaIndexingFolder, cfg.StagingDirectory)
	c.SetDefault(SettingTessdataFolder, cfg.TessdataPath())
	c.SetDefault(SettingOCRMode, cfg.OCRMode)
	c.SetDefault(SettingTextBackend, cfg.TextBackend)

	// A relative tessdata folder from the catalog is relative to the base directory
	if t := c.settings[SettingTessdataFolder]; t != "" && !filepath.IsAbs(t) && cfg.BaseDirectory != "" {
		c.settings[SettingTessdataFolder] = filepath.Join(cfg.BaseDirectory, t)
	}
}
