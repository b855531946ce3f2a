package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/a3tai/mcp-media-extract/internal/config"
	"github.com/a3tai/mcp-media-extract/internal/descriptions"
	"github.com/a3tai/mcp-media-extract/internal/indexing"
	"github.com/a3tai/mcp-media-extract/internal/logging"
	"github.com/a3tai/mcp-media-extract/internal/media"
	"github.com/a3tai/mcp-media-extract/internal/rules"
)

// previewLength caps the text shown per file by media_index_directory
const previewLength = 200

// Services are the components the tools call into
type Services struct {
	Dispatcher *rules.Dispatcher
	Indexer    *indexing.Indexer
	Registry   *rules.Registry
	Settings   config.Provider
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	services  Services
	mcpServer *server.MCPServer
	logger    arbor.ILogger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, services Services, logger arbor.ILogger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if services.Dispatcher == nil || services.Indexer == nil {
		return nil, fmt.Errorf("dispatcher and indexer cannot be nil")
	}
	if services.Settings == nil {
		services.Settings = config.NewCatalog()
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		services:  services,
		mcpServer: mcpServer,
		logger:    logging.OrDiscard(logger),
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractTextTool := mcp.NewTool(
		descriptions.ToolExtractText,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolExtractText)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the media file"),
		),
		mcp.WithString("mime_type",
			mcp.Description("MIME type of the file (detected from content if empty)"),
		),
		mcp.WithString("language",
			mcp.Description("Content language, e.g. en-US or fr-FR (default: en)"),
		),
	)
	s.mcpServer.AddTool(extractTextTool, s.handleExtractText)

	indexDirectoryTool := mcp.NewTool(
		descriptions.ToolIndexDirectory,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolIndexDirectory)),
		mcp.WithString("directory",
			mcp.Description("Directory path to index (uses default if empty)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of files to index (0 for no limit)"),
		),
	)
	s.mcpServer.AddTool(indexDirectoryTool, s.handleIndexDirectory)

	rulesTool := mcp.NewTool(
		descriptions.ToolRules,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolRules)),
	)
	s.mcpServer.AddTool(rulesTool, s.handleRules)

	serverInfoTool := mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolServerInfo)),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleExtractText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err = s.confine(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	var opts []media.FileOption
	if mimeType, ok := args["mime_type"].(string); ok && mimeType != "" {
		opts = append(opts, media.WithMimeType(mimeType))
	}
	if lang, ok := args["language"].(string); ok && lang != "" {
		opts = append(opts, media.WithLanguage(lang))
	}

	result, err := s.services.Indexer.IndexFile(ctx, path, opts...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExtractTextResult(result)), nil
}

func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	directory := s.config.MediaDirectory // default
	if dir, ok := args["directory"].(string); ok && dir != "" {
		confined, err := s.confine(dir)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		directory = confined
	}

	limit := 0
	if l, ok := args["limit"].(float64); ok {
		if l < 0 {
			return mcp.NewToolResultError("limit cannot be negative"), nil
		}
		limit = int(l)
	}

	report, err := s.services.Indexer.IndexDirectory(ctx, directory, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if report.Total == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No media files found in directory: %s", report.Directory)), nil
	}
	return mcp.NewToolResultText(s.formatIndexDirectoryResult(report)), nil
}

func (s *Server) handleRules(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatRules(s.services.Dispatcher.Table())), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

// confine resolves a tool supplied path against the media directory and
// rejects it when it lies outside, symlinks included
func (s *Server) confine(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.config.MediaDirectory, path)
	}

	within, err := indexing.WithinDirectory(path, s.config.MediaDirectory)
	if err != nil {
		return "", fmt.Errorf("cannot validate path %s: %w", path, err)
	}
	if !within {
		s.logger.Warn().
			Str("path", path).
			Str("directory", s.config.MediaDirectory).
			Msg("Rejected path outside the media directory")
		return "", fmt.Errorf("path %s is outside the media directory %s", path, s.config.MediaDirectory)
	}
	return path, nil
}

// Formatting methods
func (s *Server) formatExtractTextResult(result indexing.Result) string {
	if !result.Indexed {
		return fmt.Sprintf("No text extracted from %s\n"+
			"The file matched no rule, is excluded, or extraction failed (see server logs).\n"+
			"Extension: %s\nMIME Type: %s\n", result.Path, orNone(result.Extension), orNone(result.MimeType))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extracted text from: %s\n", result.Path)
	fmt.Fprintf(&b, "Extension: %s\n", orNone(result.Extension))
	fmt.Fprintf(&b, "MIME Type: %s\n", orNone(result.MimeType))
	fmt.Fprintf(&b, "Language: %s\n", result.Language)
	fmt.Fprintf(&b, "Characters: %d\n", result.Characters)
	fmt.Fprintf(&b, "Duration: %d ms\n", result.DurationMS)
	b.WriteString("\nContent:\n")
	b.WriteString(result.Text)
	return b.String()
}

func (s *Server) formatIndexDirectoryResult(report *indexing.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Indexed directory: %s\n", report.Directory)
	fmt.Fprintf(&b, "Files: %d, with text: %d, absent: %d\n\n", report.Total, report.Indexed, report.Absent)

	for i, r := range report.Results {
		status := "absent"
		if r.Indexed {
			status = fmt.Sprintf("%d characters", r.Characters)
		}
		if r.Error != "" {
			status = "error: " + r.Error
		}

		fmt.Fprintf(&b, "%d. %s (%s, %s)\n", i+1, r.Path, orNone(r.MimeType), status)
		if r.Indexed && r.Text != "" {
			fmt.Fprintf(&b, "   %s\n", preview(r.Text))
		}
	}
	return b.String()
}

func (s *Server) formatRules(table *rules.Table) string {
	ruleList := table.Rules()
	if len(ruleList) == 0 {
		return "No media indexing rules are configured; every asset is absent.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Media indexing rules for field %s\n", s.config.Field)

	current := rules.MatchKind(-1)
	for _, r := range ruleList {
		if r.Kind != current {
			current = r.Kind
			fmt.Fprintf(&b, "\n%s rules:\n", strings.ReplaceAll(r.KindName, "_", " "))
		}
		if r.Kind == rules.MatchFallback {
			fmt.Fprintf(&b, "  %d. %s\n", r.Position, r.Extractor)
			continue
		}
		fmt.Fprintf(&b, "  %s -> %s\n", r.Key, r.Extractor)
	}

	excludes := table.Excludes()
	if exts := excludes.Extensions(); len(exts) > 0 {
		fmt.Fprintf(&b, "\nExcluded extensions: %s\n", strings.Join(exts, ", "))
	}
	if mimes := excludes.MimeTypes(); len(mimes) > 0 {
		fmt.Fprintf(&b, "Excluded MIME types: %s\n", strings.Join(mimes, ", "))
	}
	return b.String()
}

func (s *Server) formatServerInfo() string {
	settings := s.services.Settings

	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	fmt.Fprintf(&b, "Field: %s\n", s.config.Field)
	fmt.Fprintf(&b, "Default Directory: %s\n", s.config.MediaDirectory)
	fmt.Fprintf(&b, "Staging Folder: %s\n", orNone(settings.Setting(config.SettingMediaIndexingFolder)))
	fmt.Fprintf(&b, "Tessdata Folder: %s\n", orNone(settings.Setting(config.SettingTessdataFolder)))
	fmt.Fprintf(&b, "OCR Mode: %s\n", orNone(settings.Setting(config.SettingOCRMode)))
	fmt.Fprintf(&b, "PDF Text Backend: %s\n", orNone(settings.Setting(config.SettingTextBackend)))
	fmt.Fprintf(&b, "Workers: %d\n", s.config.Workers)
	fmt.Fprintf(&b, "Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))

	if s.services.Registry != nil {
		fmt.Fprintf(&b, "Extractor Types: %s\n", strings.Join(s.services.Registry.Names(), ", "))
	}

	b.WriteString("\nAvailable Tools:\n")
	for _, name := range descriptions.GetAllToolNames() {
		fmt.Fprintf(&b, "\n• %s\n", name)
		fmt.Fprintf(&b, "  %s\n", firstLine(descriptions.GetToolDescription(name)))
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug().
		Str("directory", s.config.MediaDirectory).
		Msg("Starting media MCP server in stdio mode")

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	sseServer := server.NewSSEServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.config.Address()).Msg("Starting media MCP server in SSE mode")
		errCh <- sseServer.Start(s.config.Address())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve SSE: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down SSE server: %w", err)
		}
		return nil
	}
}
