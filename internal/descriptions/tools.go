package descriptions

import "sort"

// Tool names exposed by the MCP server
const (
	ToolExtractText    = "media_extract_text"
	ToolIndexDirectory = "media_index_directory"
	ToolRules          = "media_rules"
	ToolServerInfo     = "media_server_info"
)

const (
	ExtractTextDescription = `Extract searchable text from one media file using the configured indexing rules.

**When to use:** Need the text a search index would store for an image, a scanned document, or a PDF.

**How it works:** The file is routed by MIME type first, then by extension, then through the wildcard fallback chain. PDF pages that carry text are read directly; pages without text are rendered at 300 DPI and recognized with Tesseract. Images are recognized directly.

**Examples:**
• OCR a scanned receipt: "Extract text from /scans/receipt-0412.png"
• Index a mixed PDF: "Get the indexable text of contract.pdf including its signed scan pages"
• Non-English content: "Extract text from facture.pdf with language fr-FR"

**Best practices:** Pass mime_type when the host already knows it; otherwise it is detected from the file content. An "absent" result means no rule matched, the asset is excluded, or extraction failed (see server logs).`

	IndexDirectoryDescription = `Run the indexing pipeline over every file in a directory.

**When to use:** Preview what a search index would receive for a folder of media, or check which files the rules exclude.

**How it works:** Files are discovered recursively (hidden directories skipped, files above the size limit ignored) and extracted concurrently by a bounded worker pool. One file failing never affects the others. Results keep directory walk order.

**Examples:**
• Audit a media library: "Index /media/uploads and show which files produced text"
• Quick sample: "Index the first 20 files of /archive/scans"

**Best practices:** Use limit on large trees; OCR is CPU bound and slow per page.`

	RulesDescription = `Show the compiled media indexing rules.

**When to use:** Debug why an asset was or was not indexed.

**Output:** exact-match rules by extension and MIME type with the extractor each one uses, the fallback chain in evaluation order, and the exclude lists that abandon the fallback chain.`

	ServerInfoDescription = `Get server configuration, available tools, and registered extractor types.

**When to use:** First call in a session, to learn the staging folder, tessdata location, OCR mode, text backend and the field whose rules are active.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolExtractText:    ExtractTextDescription,
	ToolIndexDirectory: IndexDirectoryDescription,
	ToolRules:          RulesDescription,
	ToolServerInfo:     ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all tool names, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
