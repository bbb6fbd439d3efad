package mcp

import (
	"context"
	"encoding/json"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"coinvault/internal/collection"
	"coinvault/internal/config"
	"coinvault/internal/errors"
	"coinvault/internal/item"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	coll *collection.Collection
	cfg  *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(coll *collection.Collection, cfg *config.Config) *Handlers {
	return &Handlers{coll: coll, cfg: cfg}
}

// Request types for each tool

// ItemRequest carries the item fields shared by add and update.
type ItemRequest struct {
	ID            string `json:"id,omitempty"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Denomination  string `json:"denomination,omitempty"`
	Year          string `json:"year,omitempty"`
	Country       string `json:"country,omitempty"`
	Material      string `json:"material,omitempty"`
	Condition     string `json:"condition,omitempty"`
	PurchaseValue string `json:"purchase_value,omitempty"`
	SaleValue     string `json:"sale_value,omitempty"`
	FrontImage    string `json:"front_image,omitempty"`
	BackImage     string `json:"back_image,omitempty"`
	Favorite      bool   `json:"favorite,omitempty"`
}

func (r ItemRequest) toItem() item.Item {
	return item.Item{
		ID:            r.ID,
		Type:          item.Type(r.Type),
		Name:          r.Name,
		Description:   r.Description,
		Denomination:  r.Denomination,
		Year:          r.Year,
		Country:       r.Country,
		Material:      r.Material,
		Condition:     r.Condition,
		PurchaseValue: r.PurchaseValue,
		SaleValue:     r.SaleValue,
		FrontImage:    r.FrontImage,
		BackImage:     r.BackImage,
		Favorite:      r.Favorite,
	}
}

// ListRequest represents the arguments for item_list.
type ListRequest struct {
	Type string `json:"type"`
}

// IDRequest represents the arguments for tools addressed by a single id.
type IDRequest struct {
	ID string `json:"id"`
}

// AlbumCreateRequest represents the arguments for album_create.
type AlbumCreateRequest struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Color       string   `json:"color,omitempty"`
	Design      string   `json:"design,omitempty"`
	ItemIDs     []string `json:"item_ids,omitempty"`
}

// ExportRequest represents the arguments for backup_export.
type ExportRequest struct {
	Path  string `json:"path"`
	Plain bool   `json:"plain,omitempty"`
}

// ImportRequest represents the arguments for backup_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// Handler implementations

// HandleItemAdd handles the item_add tool call.
func (h *Handlers) HandleItemAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ItemRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	typ := item.Type(input.Type)
	if !typ.Valid() {
		return errorResult(errors.NewInvalidRequest("unknown item type: " + input.Type)), nil
	}
	if input.Name == "" {
		return errorResult(errors.NewInvalidRequest("name is required")), nil
	}

	stored, err := h.coll.AddItem(ctx, input.toItem(), typ)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(stored)
}

// HandleItemList handles the item_list tool call.
func (h *Handlers) HandleItemList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	typ := item.Type(input.Type)
	if !typ.Valid() {
		return errorResult(errors.NewInvalidRequest("unknown item type: " + input.Type)), nil
	}

	snap := h.coll.Snapshot()
	var items []item.Item
	switch typ {
	case item.TypeCoin:
		items = snap.Coins
	case item.TypeBanknote:
		items = snap.Banknotes
	case item.TypeWishlist:
		items = snap.Wishlist
	}
	return successResult(map[string]any{"items": items, "count": len(items)})
}

// HandleItemUpdate handles the item_update tool call.
func (h *Handlers) HandleItemUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ItemRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	typ := item.Type(input.Type)
	if !typ.Valid() {
		return errorResult(errors.NewInvalidRequest("unknown item type: " + input.Type)), nil
	}

	if err := h.coll.UpdateItem(ctx, input.toItem()); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "updated": true})
}

// HandleItemDelete handles the item_delete tool call.
func (h *Handlers) HandleItemDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.coll.RemoveItem(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": true})
}

// HandleItemFavorite handles the item_favorite tool call.
func (h *Handlers) HandleItemFavorite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	favorite, err := h.coll.ToggleFavorite(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "favorite": favorite})
}

// HandleAlbumCreate handles the album_create tool call.
func (h *Handlers) HandleAlbumCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[AlbumCreateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	alb, err := h.coll.CreateAlbum(ctx, item.AlbumSpec{
		ID:          input.ID,
		Title:       input.Title,
		Description: input.Description,
		Color:       input.Color,
		Design:      input.Design,
		ItemIDs:     input.ItemIDs,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(alb)
}

// HandleAlbumDelete handles the album_delete tool call.
func (h *Handlers) HandleAlbumDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.coll.DeleteAlbum(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": true})
}

// HandleAlbumItems handles the album_items tool call.
func (h *Handlers) HandleAlbumItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	items, err := h.coll.FetchAlbumItems(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"items": items, "count": len(items)})
}

// HandleCollectionStats handles the collection_stats tool call.
func (h *Handlers) HandleCollectionStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.coll.Stats())
}

// HandleBackupExport handles the backup_export tool call.
func (h *Handlers) HandleBackupExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	var data []byte
	if input.Plain {
		data, err = h.coll.ExportBackup(ctx)
	} else {
		data, err = h.coll.ExportCompressedBackup(ctx)
	}
	if err != nil {
		return errorResult(err), nil
	}

	if err := os.WriteFile(input.Path, data, 0600); err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return successResult(map[string]any{"path": input.Path, "bytes": len(data)})
}

// HandleBackupImport handles the backup_import tool call.
func (h *Handlers) HandleBackupImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	data, err := os.ReadFile(input.Path)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("cannot read backup file: " + err.Error())), nil
	}
	if err := h.coll.ImportBackup(ctx, data); err != nil {
		return errorResult(err), nil
	}

	st := h.coll.Stats()
	return successResult(map[string]any{"imported": true, "stats": st})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if vaultErr, ok := err.(*errors.VaultError); ok {
		errorObj := map[string]any{
			"code":    vaultErr.Code,
			"message": vaultErr.Message,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if vaultErr.Code != errors.ErrInternal && vaultErr.Details != nil {
			errorObj["details"] = vaultErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
