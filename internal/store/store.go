// Package store defines the uniform contract over the two embedded
// backends and the one place where a backend is chosen.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"coinvault/internal/config"
	"coinvault/internal/item"
	"coinvault/internal/store/docstore"
	"coinvault/internal/store/relstore"
)

// Store is the storage facade. Both backends satisfy it with identical
// semantics; callers must not be able to tell which one is active.
//
// AddItem assigns id and created_at when absent, stamps the type, and
// upserts by id. DeleteItem is idempotent. UpdateItem and SetFavorite
// return a NOT_FOUND error for missing ids. ListItems orders by
// created_at descending with a stable tie-break. CreateAlbum persists
// the album row and every membership row as one atomic unit, and
// DeleteAlbum cascades the same way. Init is idempotent.
type Store interface {
	Init(ctx context.Context) error
	Close() error

	ListItems(ctx context.Context, typ item.Type) ([]item.Item, error)
	AddItem(ctx context.Context, it item.Item, typ item.Type) (item.Item, error)
	UpdateItem(ctx context.Context, it item.Item) error
	DeleteItem(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string, favorite bool) error

	ListAlbums(ctx context.Context) ([]item.Album, error)
	CreateAlbum(ctx context.Context, spec item.AlbumSpec) (item.Album, error)
	DeleteAlbum(ctx context.Context, id string) error
	ListAlbumItems(ctx context.Context, albumID string) ([]item.Item, error)
}

// Open selects a backend once per process and returns it unopened;
// callers run Init themselves. The selection branch lives only here.
func Open(baseDir string, cfg *config.Config, log *slog.Logger) (Store, error) {
	driver := resolveDriver(cfg)
	log.Info("storage backend selected", "driver", driver)

	switch driver {
	case config.DriverRelational:
		return relstore.New(baseDir, cfg), nil
	case config.DriverDocument:
		return docstore.New(baseDir), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// resolveDriver applies the selection policy: an explicit config value
// wins; "auto" probes the platform. Mobile builds get the relational
// backend, everything else the document backend, mirroring the
// native-shell check the original application made.
func resolveDriver(cfg *config.Config) string {
	driver := config.DriverAuto
	if cfg != nil && cfg.StorageDriver != "" {
		driver = cfg.StorageDriver
	}
	if driver != config.DriverAuto {
		return driver
	}
	if runtime.GOOS == "android" || runtime.GOOS == "ios" {
		return config.DriverRelational
	}
	return config.DriverDocument
}
