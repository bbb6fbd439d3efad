package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"coinvault/internal/collection"
	"coinvault/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"item", "album", "collection", "backup"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"item_add": {
		def:     itemAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleItemAdd },
	},
	"item_list": {
		def:     itemListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleItemList },
	},
	"item_update": {
		def:     itemUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleItemUpdate },
	},
	"item_delete": {
		def:     itemDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleItemDelete },
	},
	"item_favorite": {
		def:     itemFavoriteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleItemFavorite },
	},
	"album_create": {
		def:     albumCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAlbumCreate },
	},
	"album_delete": {
		def:     albumDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAlbumDelete },
	},
	"album_items": {
		def:     albumItemsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAlbumItems },
	},
	"collection_stats": {
		def:     collectionStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionStats },
	},
	"backup_export": {
		def:     backupExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupExport },
	},
	"backup_import": {
		def:     backupImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "item_add" → "item").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with CoinVault tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(coll *collection.Collection, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"coinvault",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(coll, cfg)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(coll *collection.Collection, cfg *config.Config, version string) error {
	s := NewServer(coll, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
