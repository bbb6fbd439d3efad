package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"coinvault/internal/collection"
	"coinvault/internal/config"
	"coinvault/internal/errors"
	"coinvault/internal/logging"
	"coinvault/internal/store/relstore"
)

// testSetup creates a temporary store-backed collection for testing.
func testSetup(t *testing.T) (*collection.Collection, *config.Config) {
	t.Helper()

	cfg := config.DefaultConfig()
	st := relstore.New(t.TempDir(), cfg)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	coll := collection.New(st, nil, cfg, logging.Discard())
	if _, err := coll.Load(context.Background()); err != nil {
		t.Fatalf("failed to load collection: %v", err)
	}
	return coll, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleItemAdd(t *testing.T) {
	coll, cfg := testSetup(t)
	h := NewHandlers(coll, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "add valid coin",
			args: map[string]any{
				"type":           "coin",
				"name":           "Liberty Dollar",
				"country":        "USA",
				"year":           "1921",
				"purchase_value": "45.00",
			},
			wantError: false,
		},
		{
			name: "add banknote with explicit id",
			args: map[string]any{
				"type": "banknote",
				"id":   "b1",
				"name": "100 Lempira",
			},
			wantError: false,
		},
		{
			name: "add without name",
			args: map[string]any{
				"type": "coin",
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "add with unknown type",
			args: map[string]any{
				"type": "stamp",
				"name": "Penny Black",
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "add with mistyped arguments",
			args: map[string]any{
				"type": "coin",
				"name": 12345,
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleItemAdd(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}
}

func TestHandleItemList(t *testing.T) {
	coll, cfg := testSetup(t)
	h := NewHandlers(coll, cfg)
	ctx := context.Background()

	for _, name := range []string{"first", "second"} {
		result, err := h.HandleItemAdd(ctx, makeRequest(map[string]any{"type": "coin", "name": name}))
		if err != nil || result.IsError {
			t.Fatalf("seed add failed: %v %v", err, extractErrorMessage(result))
		}
	}

	result, err := h.HandleItemList(ctx, makeRequest(map[string]any{"type": "coin"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	payload := decodePayload(t, result)
	if count, _ := payload["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", payload["count"])
	}

	result, err = h.HandleItemList(ctx, makeRequest(map[string]any{"type": "bottlecap"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for unknown type")
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleItemUpdate(t *testing.T) {
	coll, cfg := testSetup(t)
	h := NewHandlers(coll, cfg)
	ctx := context.Background()

	seed, err := h.HandleItemAdd(ctx, makeRequest(map[string]any{"type": "coin", "id": "c1", "name": "before"}))
	if err != nil || seed.IsError {
		t.Fatalf("seed add failed: %v %v", err, extractErrorMessage(seed))
	}

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name:      "update existing",
			args:      map[string]any{"id": "c1", "type": "coin", "name": "after"},
			wantError: false,
		},
		{
			name:      "update missing id",
			args:      map[string]any{"id": "nope", "type": "coin", "name": "ghost"},
			wantError: true,
			errorCode: "NOT_FOUND",
		},
		{
			name:      "update without id",
			args:      map[string]any{"type": "coin", "name": "anonymous"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleItemUpdate(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}

	if coll.Snapshot().Coins[0].Name != "after" {
		t.Errorf("update not visible in snapshot: %+v", coll.Snapshot().Coins)
	}
}

func TestHandleItemDeleteAndFavorite(t *testing.T) {
	coll, cfg := testSetup(t)
	h := NewHandlers(coll, cfg)
	ctx := context.Background()

	seed, err := h.HandleItemAdd(ctx, makeRequest(map[string]any{"type": "coin", "id": "c1", "name": "keeper"}))
	if err != nil || seed.IsError {
		t.Fatalf("seed add failed: %v %v", err, extractErrorMessage(seed))
	}

	fav, err := h.HandleItemFavorite(ctx, makeRequest(map[string]any{"id": "c1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if fav.IsError {
		t.Fatalf("favorite failed: %v", extractErrorMessage(fav))
	}
	payload := decodePayload(t, fav)
	if on, _ := payload["favorite"].(bool); !on {
		t.Error("expected favorite to be on after toggle")
	}

	missing, err := h.HandleItemFavorite(ctx, makeRequest(map[string]any{"id": "ghost"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, missing, "NOT_FOUND")

	del, err := h.HandleItemDelete(ctx, makeRequest(map[string]any{"id": "c1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if del.IsError {
		t.Fatalf("delete failed: %v", extractErrorMessage(del))
	}
	if len(coll.Snapshot().Coins) != 0 {
		t.Errorf("coins = %+v, want empty after delete", coll.Snapshot().Coins)
	}

	// Deleting again is a no-op, not an error.
	again, err := h.HandleItemDelete(ctx, makeRequest(map[string]any{"id": "c1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if again.IsError {
		t.Errorf("repeat delete should succeed: %v", extractErrorMessage(again))
	}
}

func TestHandleAlbumLifecycle(t *testing.T) {
	coll, cfg := testSetup(t)
	h := NewHandlers(coll, cfg)
	ctx := context.Background()

	seed, err := h.HandleItemAdd(ctx, makeRequest(map[string]any{"type": "coin", "id": "c1", "name": "member"}))
	if err != nil || seed.IsError {
		t.Fatalf("seed add failed: %v %v", err, extractErrorMessage(seed))
	}

	create, err := h.HandleAlbumCreate(ctx, makeRequest(map[string]any{
		"title":    "19th Century",
		"item_ids": []any{"c1"},
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if create.IsError {
		t.Fatalf("album create failed: %v", extractErrorMessage(create))
	}
	payload := decodePayload(t, create)
	albumID, _ := payload["id"].(string)
	if albumID == "" {
		t.Fatalf("no album id in response: %v", payload)
	}
	if payload["color"] != "indigo" || payload["design"] != "classic" {
		t.Errorf("album defaults not applied: %v", payload)
	}

	untitled, err := h.HandleAlbumCreate(ctx, makeRequest(map[string]any{"description": "no title"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, untitled, "INVALID_REQUEST")

	items, err := h.HandleAlbumItems(ctx, makeRequest(map[string]any{"id": albumID}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if items.IsError {
		t.Fatalf("album items failed: %v", extractErrorMessage(items))
	}
	itemsPayload := decodePayload(t, items)
	if count, _ := itemsPayload["count"].(float64); count != 1 {
		t.Errorf("album item count = %v, want 1", itemsPayload["count"])
	}

	del, err := h.HandleAlbumDelete(ctx, makeRequest(map[string]any{"id": albumID}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if del.IsError {
		t.Fatalf("album delete failed: %v", extractErrorMessage(del))
	}
	if len(coll.Snapshot().Albums) != 0 {
		t.Errorf("albums = %+v, want empty", coll.Snapshot().Albums)
	}
	if len(coll.Snapshot().Coins) != 1 {
		t.Error("album delete must not remove items")
	}
}

func TestHandleCollectionStats(t *testing.T) {
	coll, cfg := testSetup(t)
	h := NewHandlers(coll, cfg)
	ctx := context.Background()

	for _, args := range []map[string]any{
		{"type": "coin", "name": "Liberty Dollar", "country": "USA", "purchase_value": "45.00"},
		{"type": "banknote", "name": "100 Lempira", "country": "Honduras", "purchase_value": "10.00"},
	} {
		result, err := h.HandleItemAdd(ctx, makeRequest(args))
		if err != nil || result.IsError {
			t.Fatalf("seed add failed: %v %v", err, extractErrorMessage(result))
		}
	}

	result, err := h.HandleCollectionStats(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("stats failed: %v", extractErrorMessage(result))
	}
	payload := decodePayload(t, result)
	if payload["total_value"] != "55.00" {
		t.Errorf("total_value = %v, want 55.00", payload["total_value"])
	}
	countries, _ := payload["countries"].(map[string]any)
	if len(countries) != 2 {
		t.Errorf("countries = %v, want USA and Honduras", countries)
	}
}

func TestHandleBackupExportImport(t *testing.T) {
	coll, cfg := testSetup(t)
	h := NewHandlers(coll, cfg)
	ctx := context.Background()

	seed, err := h.HandleItemAdd(ctx, makeRequest(map[string]any{"type": "coin", "id": "c1", "name": "exported"}))
	if err != nil || seed.IsError {
		t.Fatalf("seed add failed: %v %v", err, extractErrorMessage(seed))
	}

	path := filepath.Join(t.TempDir(), "backup.json.gz")
	export, err := h.HandleBackupExport(ctx, makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if export.IsError {
		t.Fatalf("export failed: %v", extractErrorMessage(export))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("backup file not written: %v", err)
	}

	// Import into a fresh collection.
	coll2, cfg2 := testSetup(t)
	h2 := NewHandlers(coll2, cfg2)
	imported, err := h2.HandleBackupImport(ctx, makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if imported.IsError {
		t.Fatalf("import failed: %v", extractErrorMessage(imported))
	}
	if len(coll2.Snapshot().Coins) != 1 {
		t.Errorf("coins = %d after import, want 1", len(coll2.Snapshot().Coins))
	}

	corrupt := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(corrupt, []byte("not a backup"), 0600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	bad, err := h2.HandleBackupImport(ctx, makeRequest(map[string]any{"path": corrupt}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, bad, "CORRUPT_BACKUP")
}

func TestServerRegistration(t *testing.T) {
	coll, cfg := testSetup(t)

	s := NewServer(coll, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"item_add",
		"item_list",
		"item_update",
		"item_delete",
		"item_favorite",
		"album_create",
		"album_delete",
		"album_items",
		"collection_stats",
		"backup_export",
		"backup_import",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	coll, cfg := testSetup(t)

	cfg.DisabledTools = []string{"backup_export", "backup_import"}
	s := NewServer(coll, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 9 {
		t.Errorf("registered tool count = %d, want 9", len(tools))
	}
	for _, name := range []string{"backup_export", "backup_import"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	for _, name := range []string{"item_add", "item_list", "album_create"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("core tool %q should be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	coll, cfg := testSetup(t)

	cfg.DisabledTypes = []string{"album"}
	s := NewServer(coll, cfg, "test")
	tools := s.ListTools()

	for _, name := range []string{"album_create", "album_delete", "album_items"} {
		if _, ok := tools[name]; ok {
			t.Errorf("tool %q of disabled type should not be registered", name)
		}
	}
	if _, ok := tools["item_add"]; !ok {
		t.Error("item tools should survive disabling the album type")
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"item_add", "frob", "album_items", "nate"})
	if len(unknown) != 2 || unknown[0] != "frob" || unknown[1] != "nate" {
		t.Errorf("unknown = %v, want [frob nate]", unknown)
	}

	if got := ValidateDisabledTypes([]string{"item", "widget"}); len(got) != 1 || got[0] != "widget" {
		t.Errorf("unknown types = %v, want [widget]", got)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames returned %d names, want %d", len(names), len(toolRegistry))
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	err := errors.NewInternal(os.ErrPermission)
	result := errorResult(err)

	if !result.IsError {
		t.Fatal("expected error result")
	}
	text := extractErrorMessage(result)
	var payload map[string]any
	if jerr := json.Unmarshal([]byte(text), &payload); jerr != nil {
		t.Fatalf("unmarshal payload: %v", jerr)
	}
	errorObj := payload["error"].(map[string]any)
	if _, ok := errorObj["details"]; ok {
		t.Error("internal error must not expose details")
	}
}

func TestErrorResult_UnknownErrorIsInternal(t *testing.T) {
	result := errorResult(os.ErrClosed)
	assertErrorCode(t, result, "INTERNAL")
}

// Test helpers

func decodePayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is not TextContent")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	return payload
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error result, got success")
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}
	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}
	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}
	if code != expectedCode {
		t.Errorf("error code = %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
