package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Text backends for native PDF page text
	TextBackendLedongthuc = "ledongthuc"
	TextBackendFitz       = "fitz"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultField       = "media_content"
	DefaultTessdata    = "tessdata"
	DefaultOCRMode     = "auto"
	DefaultWorkers     = 4

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds the process configuration of the media extraction server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Indexing configuration
	CatalogFile      string // YAML index catalog: settings, fragments, fields
	Field            string // computed field whose rules are compiled
	MediaDirectory   string // default directory for batch indexing
	StagingDirectory string // MediaIndexingFolder setting fallback
	TessdataFolder   string // TessdataFolder setting fallback
	BaseDirectory    string // base for a relative tessdata folder
	OCRMode          string
	TextBackend      string
	ValidatePDF      bool
	Workers          int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum asset size in bytes for batch indexing
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	baseDir := currentDir
	if exe, err := os.Executable(); err == nil {
		baseDir = filepath.Dir(exe)
	}

	return &Config{
		Mode:             ModeStdio, // Default to stdio mode for MCP compatibility
		Host:             DefaultHost,
		Port:             DefaultPort,
		Field:            DefaultField,
		MediaDirectory:   currentDir,
		StagingDirectory: filepath.Join(os.TempDir(), "media-indexing"),
		TessdataFolder:   DefaultTessdata,
		BaseDirectory:    baseDir,
		OCRMode:          DefaultOCRMode,
		TextBackend:      TextBackendLedongthuc,
		ValidatePDF:      true,
		Workers:          DefaultWorkers,
		Version:          "1.0.0",
		ServerName:       "mcp-media-extract",
		LogLevel:         DefaultLogLevel,
		MaxFileSize:      DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, p := range []*string{&cfg.MediaDirectory, &cfg.StagingDirectory, &cfg.CatalogFile} {
		if *p == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*p); err == nil {
			*p = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("MEDIA_EXTRACT")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("catalog", cfg.CatalogFile)
	viper.SetDefault("field", cfg.Field)
	viper.SetDefault("dir", cfg.MediaDirectory)
	viper.SetDefault("staging", cfg.StagingDirectory)
	viper.SetDefault("tessdata", cfg.TessdataFolder)
	viper.SetDefault("basedir", cfg.BaseDirectory)
	viper.SetDefault("ocrmode", cfg.OCRMode)
	viper.SetDefault("textbackend", cfg.TextBackend)
	viper.SetDefault("validatepdf", cfg.ValidatePDF)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("catalog", cfg.CatalogFile, "Index catalog YAML file (settings, fragments, field rules)")
	pflag.String("field", cfg.Field, "Computed field whose media indexing rules are compiled")
	pflag.String("dir", cfg.MediaDirectory, "Default directory for batch indexing")
	pflag.String("staging", cfg.StagingDirectory, "Staging directory for temporary extraction files")
	pflag.String("tessdata", cfg.TessdataFolder, "Tesseract data folder (relative to --basedir when not absolute)")
	pflag.String("basedir", cfg.BaseDirectory, "Base directory for relative tessdata folders")
	pflag.String("ocrmode", cfg.OCRMode, "OCR page segmentation mode (auto, single_block, sparse)")
	pflag.String("textbackend", cfg.TextBackend, "Native PDF text backend (ledongthuc, fitz)")
	pflag.Bool("validatepdf", cfg.ValidatePDF, "Validate PDFs with pdfcpu before extraction")
	pflag.Int("workers", cfg.Workers, "Concurrent extractions during batch indexing")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum asset file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "catalog", "field", "dir", "staging", "tessdata",
		"basedir", "ocrmode", "textbackend", "validatepdf", "workers", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Media Extract - OCR and PDF text extraction for search indexing\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --catalog=index.yaml                    # stdio mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --catalog=index.yaml --dir=/srv/media   # custom media directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MEDIA_EXTRACT_CATALOG   Index catalog file\n")
		fmt.Fprintf(os.Stderr, "  MEDIA_EXTRACT_STAGING   Staging directory\n")
		fmt.Fprintf(os.Stderr, "  MEDIA_EXTRACT_TESSDATA  Tesseract data folder\n")
		fmt.Fprintf(os.Stderr, "  MEDIA_EXTRACT_LOGLEVEL  Log level\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.CatalogFile = viper.GetString("catalog")
	cfg.Field = viper.GetString("field")
	cfg.MediaDirectory = viper.GetString("dir")
	cfg.StagingDirectory = viper.GetString("staging")
	cfg.TessdataFolder = viper.GetString("tessdata")
	cfg.BaseDirectory = viper.GetString("basedir")
	cfg.OCRMode = viper.GetString("ocrmode")
	cfg.TextBackend = viper.GetString("textbackend")
	cfg.ValidatePDF = viper.GetBool("validatepdf")
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Field == "" {
		return errors.New("field cannot be empty")
	}

	if c.StagingDirectory == "" {
		return errors.New("staging directory cannot be empty")
	}

	// Validate media directory
	if c.MediaDirectory == "" {
		return errors.New("media directory cannot be empty")
	}
	if _, err := os.Stat(c.MediaDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.MediaDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create media directory %s: %w", c.MediaDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access media directory %s: %w", c.MediaDirectory, err)
	}

	// The catalog is optional; without it the rule table is empty.
	if c.CatalogFile != "" {
		if _, err := os.Stat(c.CatalogFile); err != nil {
			return fmt.Errorf("cannot access catalog file %s: %w", c.CatalogFile, err)
		}
	}

	if c.TextBackend != TextBackendLedongthuc && c.TextBackend != TextBackendFitz {
		return fmt.Errorf("invalid text backend: %s (must be one of: %s, %s)",
			c.TextBackend, TextBackendLedongthuc, TextBackendFitz)
	}

	validOCRModes := map[string]bool{
		"auto":         true,
		"single_block": true,
		"sparse":       true,
	}
	if !validOCRModes[c.OCRMode] {
		return fmt.Errorf("invalid OCR mode: %s (must be one of: auto, single_block, sparse)", c.OCRMode)
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// TessdataPath resolves the tessdata folder against the base directory
func (c *Config) TessdataPath() string {
	if filepath.IsAbs(c.TessdataFolder) || c.BaseDirectory == "" {
		return c.TessdataFolder
	}
	return filepath.Join(c.BaseDirectory, c.TessdataFolder)
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Catalog: %s, Field: %s, MediaDirectory: %s, Staging: %s, "+
		"Tessdata: %s, TextBackend: %s, Workers: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.CatalogFile, c.Field, c.MediaDirectory, c.StagingDirectory,
		c.TessdataPath(), c.TextBackend, c.Workers, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
