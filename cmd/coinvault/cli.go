package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"coinvault/internal/cloud"
	"coinvault/internal/collection"
	"coinvault/internal/config"
	"coinvault/internal/errors"
	"coinvault/internal/item"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(coll *collection.Collection, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "coinvault",
		Usage:   "Coin and banknote collection manager",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(coll),
			listCmd(coll),
			updateCmd(coll),
			deleteCmd(coll),
			favoriteCmd(coll),
			albumsCmd(coll),
			albumCreateCmd(coll),
			albumDeleteCmd(coll),
			albumItemsCmd(coll),
			statsCmd(coll),
			exportCmd(coll),
			importCmd(coll),
			pushCmd(coll, cfg),
			pullCmd(coll, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// itemFlags are the descriptive fields shared by add and update.
func itemFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Required: true, Usage: "Item type: coin|banknote|wishlist"},
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Display name"},
		&cli.StringFlag{Name: "description", Usage: "Free-form notes"},
		&cli.StringFlag{Name: "denomination", Usage: "Face value as printed or minted"},
		&cli.StringFlag{Name: "year", Usage: "Year of issue"},
		&cli.StringFlag{Name: "country", Usage: "Country of origin"},
		&cli.StringFlag{Name: "material", Usage: "Metal or paper composition"},
		&cli.StringFlag{Name: "condition", Usage: "Grading or condition note"},
		&cli.StringFlag{Name: "purchase-value", Usage: "Price paid, decimal string"},
		&cli.StringFlag{Name: "sale-value", Usage: "Estimated sale price, decimal string"},
		&cli.StringFlag{Name: "front-image", Usage: "Front image reference"},
		&cli.StringFlag{Name: "back-image", Usage: "Back image reference"},
		&cli.BoolFlag{Name: "favorite", Usage: "Mark as favorite"},
	}
}

func itemFromFlags(c *cli.Context, id string) item.Item {
	return item.Item{
		ID:            id,
		Type:          item.Type(c.String("type")),
		Name:          c.String("name"),
		Description:   c.String("description"),
		Denomination:  c.String("denomination"),
		Year:          c.String("year"),
		Country:       c.String("country"),
		Material:      c.String("material"),
		Condition:     c.String("condition"),
		PurchaseValue: c.String("purchase-value"),
		SaleValue:     c.String("sale-value"),
		FrontImage:    c.String("front-image"),
		BackImage:     c.String("back-image"),
		Favorite:      c.Bool("favorite"),
	}
}

// addCmd creates the add command.
func addCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a coin, banknote, or wishlist entry",
		Flags: append(itemFlags(),
			&cli.StringFlag{Name: "id", Usage: "Item id (generated when omitted)"}),
		Action: func(c *cli.Context) error {
			typ := item.Type(c.String("type"))
			if !typ.Valid() {
				return outputError(errors.NewInvalidRequest("unknown item type: " + c.String("type")))
			}

			stored, err := coll.AddItem(c.Context, itemFromFlags(c, c.String("id")), typ)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(stored)
		},
	}
}

// listCmd creates the list command.
func listCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List items of one type, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "coin", Usage: "Item type: coin|banknote|wishlist"},
		},
		Action: func(c *cli.Context) error {
			typ := item.Type(c.String("type"))
			if !typ.Valid() {
				return outputError(errors.NewInvalidRequest("unknown item type: " + c.String("type")))
			}

			snap := coll.Snapshot()
			var items []item.Item
			switch typ {
			case item.TypeCoin:
				items = snap.Coins
			case item.TypeBanknote:
				items = snap.Banknotes
			case item.TypeWishlist:
				items = snap.Wishlist
			}
			return outputJSON(map[string]any{"items": items, "count": len(items)})
		},
	}
}

// updateCmd creates the update command.
func updateCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Replace an existing item's fields",
		ArgsUsage: "<id>",
		Flags:     itemFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}
			typ := item.Type(c.String("type"))
			if !typ.Valid() {
				return outputError(errors.NewInvalidRequest("unknown item type: " + c.String("type")))
			}

			id := c.Args().First()
			if err := coll.UpdateItem(c.Context, itemFromFlags(c, id)); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "updated": true})
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an item (it disappears from any albums that held it)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}
			id := c.Args().First()
			if err := coll.RemoveItem(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "deleted": true})
		},
	}
}

// favoriteCmd creates the favorite command.
func favoriteCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Usage:     "Toggle the favorite flag on an item",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}
			id := c.Args().First()
			favorite, err := coll.ToggleFavorite(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "favorite": favorite})
		},
	}
}

// albumsCmd creates the albums command.
func albumsCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:  "albums",
		Usage: "List albums, newest first",
		Action: func(c *cli.Context) error {
			albums := coll.Snapshot().Albums
			return outputJSON(map[string]any{"albums": albums, "count": len(albums)})
		},
	}
}

// albumCreateCmd creates the album-create command.
func albumCreateCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:  "album-create",
		Usage: "Create an album with an optional initial set of items",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Album title"},
			&cli.StringFlag{Name: "id", Usage: "Album id (generated when omitted)"},
			&cli.StringFlag{Name: "description", Usage: "Album description"},
			&cli.StringFlag{Name: "color", Usage: "Cover color (defaults to indigo)"},
			&cli.StringFlag{Name: "design", Usage: "Cover design (defaults to classic)"},
			&cli.StringFlag{Name: "items", Usage: "Comma-separated item ids"},
		},
		Action: func(c *cli.Context) error {
			alb, err := coll.CreateAlbum(c.Context, item.AlbumSpec{
				ID:          c.String("id"),
				Title:       c.String("title"),
				Description: c.String("description"),
				Color:       c.String("color"),
				Design:      c.String("design"),
				ItemIDs:     parseIDs(c.String("items")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(alb)
		},
	}
}

// albumDeleteCmd creates the album-delete command.
func albumDeleteCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:      "album-delete",
		Usage:     "Delete an album (its items are kept)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}
			id := c.Args().First()
			if err := coll.DeleteAlbum(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "deleted": true})
		},
	}
}

// albumItemsCmd creates the album-items command.
func albumItemsCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:      "album-items",
		Usage:     "List the items in an album, newest first",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}
			items, err := coll.FetchAlbumItems(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"items": items, "count": len(items)})
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarize the collection",
		Action: func(c *cli.Context) error {
			return outputJSON(coll.Stats())
		},
	}
}

// exportCmd creates the export command.
func exportCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a full backup to a file (gzip unless --plain)",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "plain", Usage: "Write uncompressed JSON instead of gzip"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("path argument is required"))
			}
			path := c.Args().First()

			var data []byte
			var err error
			if c.Bool("plain") {
				data, err = coll.ExportBackup(c.Context)
			} else {
				data, err = coll.ExportCompressedBackup(c.Context)
			}
			if err != nil {
				return outputError(err)
			}
			if err := os.WriteFile(path, data, 0600); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(map[string]any{"path": path, "bytes": len(data)})
		},
	}
}

// importCmd creates the import command.
func importCmd(coll *collection.Collection) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge a backup file into the collection (format detected from contents)",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("path argument is required"))
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return outputError(errors.NewInvalidRequest("cannot read backup file: " + err.Error()))
			}
			if err := coll.ImportBackup(c.Context, data); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"imported": true, "stats": coll.Stats()})
		},
	}
}

// pushCmd creates the push command.
func pushCmd(coll *collection.Collection, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Upload a compressed backup to the configured cloud bucket",
		Action: func(c *cli.Context) error {
			fs, err := openCloud(c, cfg)
			if err != nil {
				return outputError(err)
			}
			h, err := coll.PushCloudBackup(c.Context, fs)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"name": h.Key, "bytes": h.Size})
		},
	}
}

// pullCmd creates the pull command.
func pullCmd(coll *collection.Collection, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Download the cloud backup and merge it into the collection",
		Action: func(c *cli.Context) error {
			fs, err := openCloud(c, cfg)
			if err != nil {
				return outputError(err)
			}
			if err := coll.PullCloudBackup(c.Context, fs); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"imported": true, "stats": coll.Stats()})
		},
	}
}

func openCloud(c *cli.Context, cfg *config.Config) (cloud.FileStore, error) {
	if cfg == nil || cfg.Cloud.Bucket == "" {
		return nil, errors.NewInvalidRequest("cloud backup is not configured: set cloud.bucket in config.json")
	}
	return cloud.NewS3Store(c.Context, cfg.Cloud)
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vaultErr, ok := err.(*errors.VaultError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vaultErr.Code, vaultErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseIDs splits a comma-separated string into a slice of ids.
func parseIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		id := strings.TrimSpace(p)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
