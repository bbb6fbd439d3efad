package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var itemAddToolDef = mcp.NewTool("item_add",
	mcp.WithDescription("Add a coin, banknote, or wishlist entry to the collection. An existing id is overwritten."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Item type"), mcp.Enum("coin", "banknote", "wishlist")),
	mcp.WithString("id", mcp.Description("Item id; generated when omitted")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
	mcp.WithString("description", mcp.Description("Free-form notes")),
	mcp.WithString("denomination", mcp.Description("Face value as printed or minted")),
	mcp.WithString("year", mcp.Description("Year of issue")),
	mcp.WithString("country", mcp.Description("Country of origin")),
	mcp.WithString("material", mcp.Description("Metal or paper composition")),
	mcp.WithString("condition", mcp.Description("Grading or condition note")),
	mcp.WithString("purchase_value", mcp.Description("Price paid, decimal string")),
	mcp.WithString("sale_value", mcp.Description("Estimated sale price, decimal string")),
	mcp.WithString("front_image", mcp.Description("Front image reference")),
	mcp.WithString("back_image", mcp.Description("Back image reference")),
	mcp.WithBoolean("favorite", mcp.Description("Mark as favorite")),
)

var itemListToolDef = mcp.NewTool("item_list",
	mcp.WithDescription("List the items of one type, newest first."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Item type"), mcp.Enum("coin", "banknote", "wishlist")),
)

var itemUpdateToolDef = mcp.NewTool("item_update",
	mcp.WithDescription("Replace an existing item's fields. Fails if the id does not exist."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	mcp.WithString("type", mcp.Required(), mcp.Description("Item type"), mcp.Enum("coin", "banknote", "wishlist")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
	mcp.WithString("description", mcp.Description("Free-form notes")),
	mcp.WithString("denomination", mcp.Description("Face value as printed or minted")),
	mcp.WithString("year", mcp.Description("Year of issue")),
	mcp.WithString("country", mcp.Description("Country of origin")),
	mcp.WithString("material", mcp.Description("Metal or paper composition")),
	mcp.WithString("condition", mcp.Description("Grading or condition note")),
	mcp.WithString("purchase_value", mcp.Description("Price paid, decimal string")),
	mcp.WithString("sale_value", mcp.Description("Estimated sale price, decimal string")),
	mcp.WithString("front_image", mcp.Description("Front image reference")),
	mcp.WithString("back_image", mcp.Description("Back image reference")),
	mcp.WithBoolean("favorite", mcp.Description("Mark as favorite")),
)

var itemDeleteToolDef = mcp.NewTool("item_delete",
	mcp.WithDescription("Delete an item by id. The item disappears from any albums that held it; deleting a missing id is a no-op."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
)

var itemFavoriteToolDef = mcp.NewTool("item_favorite",
	mcp.WithDescription("Toggle the favorite flag on an item."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
)

var albumCreateToolDef = mcp.NewTool("album_create",
	mcp.WithDescription("Create an album with an optional initial set of items. An existing id is replaced along with its memberships."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Album title")),
	mcp.WithString("id", mcp.Description("Album id; generated when omitted")),
	mcp.WithString("description", mcp.Description("Album description")),
	mcp.WithString("color", mcp.Description("Cover color; defaults to indigo")),
	mcp.WithString("design", mcp.Description("Cover design; defaults to classic")),
	mcp.WithArray("item_ids", mcp.Description("Ids of items to place in the album"),
		mcp.Items(map[string]any{"type": "string"})),
)

var albumDeleteToolDef = mcp.NewTool("album_delete",
	mcp.WithDescription("Delete an album and its memberships. The items themselves are kept."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Album id")),
)

var albumItemsToolDef = mcp.NewTool("album_items",
	mcp.WithDescription("List the items in an album, newest first."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Album id")),
)

var collectionStatsToolDef = mcp.NewTool("collection_stats",
	mcp.WithDescription("Summarize the collection: counts per type, favorites, total purchase value, and items per country."),
)

var backupExportToolDef = mcp.NewTool("backup_export",
	mcp.WithDescription("Write a full backup of the collection to a file. Gzip-compressed unless plain is requested."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Destination file path")),
	mcp.WithBoolean("plain", mcp.Description("Write uncompressed JSON instead of gzip")),
)

var backupImportToolDef = mcp.NewTool("backup_import",
	mcp.WithDescription("Merge a backup file into the collection. The format is detected from the file contents, not its name."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Backup file path")),
)
