package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/a3tai/mcp-media-extract/internal/config"
	"github.com/a3tai/mcp-media-extract/internal/extract"
	"github.com/a3tai/mcp-media-extract/internal/indexing"
	"github.com/a3tai/mcp-media-extract/internal/language"
	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/mcp"
	"github.com/a3tai/mcp-media-extract/internal/ocr"
	"github.com/a3tai/mcp-media-extract/internal/pdf/wrapper"
	"github.com/a3tai/mcp-media-extract/internal/rules"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode. In stdio mode
// stdout carries the MCP protocol, so logs go to a file next to the binary.
func setupLogging(cfg *config.Config) arbor.ILogger {
	logger := arbor.NewLogger()

	if cfg.IsStdioMode() {
		logsDir := filepath.Join(cfg.BaseDirectory, "logs")
		if err := os.MkdirAll(logsDir, config.DefaultDirPerm); err != nil {
			return logging.NewDiscard()
		}
		logger = logger.WithFileWriter(arbor_models.WriterConfiguration{
			Type:             arbor_models.LogWriterTypeFile,
			FileName:         filepath.Join(logsDir, "mcp-media-extract.log"),
			TimeFormat:       "15:04:05",
			MaxSize:          100 * 1024 * 1024, // 100 MB
			MaxBackups:       3,
			DisableTimestamp: false,
		})
	} else {
		logger = logger.WithConsoleWriter(arbor_models.WriterConfiguration{
			Type:             arbor_models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			DisableTimestamp: false,
		})
	}

	return logger.WithLevelFromString(cfg.LogLevel)
}

// loadCatalog reads the index catalog and fills unset settings from cfg
func loadCatalog(cfg *config.Config) (*config.Catalog, error) {
	catalog := config.NewCatalog()
	if cfg.CatalogFile != "" {
		var err error
		catalog, err = config.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
	}
	catalog.ApplyDefaults(cfg)
	return catalog, nil
}

// buildServer wires the extraction pipeline behind the MCP tools
func buildServer(cfg *config.Config, catalog *config.Catalog, logger arbor.ILogger) (*mcp.Server, error) {
	library, err := wrapper.NewLibrary(wrapper.FactoryConfig{
		TextBackend:    wrapper.TextBackend(catalog.Setting(config.SettingTextBackend)),
		ValidateOnOpen: cfg.ValidatePDF,
		MaxFileSize:    cfg.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF library: %w", err)
	}

	engine, err := extract.NewEngine(extract.Deps{
		Settings:  catalog,
		Languages: language.NewResolver(catalog, logger),
		PDF:       library,
		OCR:       ocr.NewTesseractFactory(),
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction engine: %w", err)
	}

	registry := rules.NewRegistry()
	if err := extract.RegisterBuiltins(registry, engine, logger); err != nil {
		return nil, fmt.Errorf("failed to register extractors: %w", err)
	}

	node, ok := catalog.Field(cfg.Field)
	if !ok {
		logger.Warn().Str("field", cfg.Field).Msg("Field has no configuration, no media will be indexed")
	}

	// Configuration errors are logged; the rules that compiled stay active.
	table, err := rules.Compile(node, rules.CompileDeps{
		Provider:    catalog,
		Registry:    registry,
		Default:     engine,
		DefaultName: rules.DefaultExtractorName,
		Logger:      logger,
	})
	if err != nil {
		logger.Error().Err(err).Str("field", cfg.Field).Msg("Media indexing configuration has errors")
	}

	dispatcher := rules.NewDispatcher(table, logger)
	indexer := indexing.NewIndexer(dispatcher, indexing.Options{
		Workers:     cfg.Workers,
		MaxFileSize: cfg.MaxFileSize,
	}, logger)

	return mcp.NewServer(cfg, mcp.Services{
		Dispatcher: dispatcher,
		Indexer:    indexer,
		Registry:   registry,
		Settings:   catalog,
	}, logger)
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger arbor.ILogger) {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		logger.Info().Str("signal", sig.String()).Msg("Initiating graceful shutdown")
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			logger.Error().Err(err).Msg("Server shutdown with error")
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("Server error")
			os.Exit(1)
		}
	}

	logger.Info().Msg("Server stopped successfully")
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, server *mcp.Server, logger arbor.ILogger) {
	// In stdio mode, the parent process controls our lifecycle
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger.Debug().Str("config", cfg.String()).Msg("Starting with configuration")

	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load index catalog")
		os.Exit(1)
	}

	server, err := buildServer(cfg, catalog, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create MCP server")
		os.Exit(1)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsServerMode() {
		runServerMode(ctx, cancel, server, logger)
	} else {
		runStdioMode(ctx, server, logger)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP Media Extract\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
