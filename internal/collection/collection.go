// Package collection keeps the user's whole collection in memory and
// funnels every mutation through the persistent store. Reads are served
// from the cached snapshot; writes hit the store first and refresh the
// snapshot only on success, so a failed write leaves the last good
// state visible.
package collection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"coinvault/internal/backup"
	"coinvault/internal/cloud"
	"coinvault/internal/config"
	"coinvault/internal/errors"
	"coinvault/internal/item"
	"coinvault/internal/legacy"
	"coinvault/internal/store"
)

// Collection is the in-memory aggregate over the store.
type Collection struct {
	store  store.Store
	legacy *legacy.Store
	cfg    *config.Config
	log    *slog.Logger

	mu   sync.RWMutex
	snap item.Snapshot
}

// MigrationReport summarizes a one-time import of legacy file data.
type MigrationReport struct {
	Total    int
	Migrated int
	Failed   int
}

// Stats is the derived summary view of the collection.
type Stats struct {
	Coins      int            `json:"coins"`
	Banknotes  int            `json:"banknotes"`
	Wishlist   int            `json:"wishlist"`
	Albums     int            `json:"albums"`
	Favorites  int            `json:"favorites"`
	TotalValue string         `json:"total_value"`
	Countries  map[string]int `json:"countries"`
}

func New(st store.Store, leg *legacy.Store, cfg *config.Config, log *slog.Logger) *Collection {
	return &Collection{store: st, legacy: leg, cfg: cfg, log: log}
}

// Load populates the snapshot from the store. If the store holds no
// coins and no banknotes but legacy file data exists, that data is
// migrated first. Migration is best effort per record: a bad record is
// skipped and counted, it never aborts startup.
func (c *Collection) Load(ctx context.Context) (*MigrationReport, error) {
	coins, err := c.store.ListItems(ctx, item.TypeCoin)
	if err != nil {
		return nil, err
	}
	banknotes, err := c.store.ListItems(ctx, item.TypeBanknote)
	if err != nil {
		return nil, err
	}

	var report *MigrationReport
	if len(coins) == 0 && len(banknotes) == 0 && c.legacy != nil && !c.legacy.Empty() {
		report = c.migrateLegacy(ctx)
		if report.Failed > 0 {
			c.log.Warn("legacy migration incomplete",
				"migrated", report.Migrated,
				"failed", report.Failed,
				"error", errors.NewPartialMigration(report.Failed, report.Total))
		} else {
			c.log.Info("legacy migration complete", "migrated", report.Migrated)
		}
	}

	if err := c.Refresh(ctx); err != nil {
		return report, err
	}
	return report, nil
}

func (c *Collection) migrateLegacy(ctx context.Context) *MigrationReport {
	report := &MigrationReport{}
	keys := []struct {
		key string
		typ item.Type
	}{
		{legacy.KeyCoins, item.TypeCoin},
		{legacy.KeyBanknotes, item.TypeBanknote},
		{legacy.KeyWishlist, item.TypeWishlist},
	}
	for _, k := range keys {
		raw := c.legacy.Get(k.key)
		if len(raw) == 0 {
			continue
		}
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			// The whole list is unreadable. Count it as one lost record
			// so the report reflects the loss.
			report.Total++
			report.Failed++
			c.log.Warn("skipping unreadable legacy list", "key", k.key, "error", err)
			continue
		}
		for _, rec := range records {
			report.Total++
			var it item.Item
			if err := json.Unmarshal(rec, &it); err != nil {
				report.Failed++
				c.log.Warn("legacy record not migrated", "key", k.key, "error", err)
				continue
			}
			if _, err := c.store.AddItem(ctx, it, k.typ); err != nil {
				report.Failed++
				c.log.Warn("legacy record not migrated", "key", k.key, "id", it.ID, "error", err)
				continue
			}
			report.Migrated++
		}
	}
	return report
}

// Refresh reloads the whole snapshot from the store.
func (c *Collection) Refresh(ctx context.Context) error {
	var snap item.Snapshot
	var err error

	if snap.Coins, err = c.store.ListItems(ctx, item.TypeCoin); err != nil {
		return err
	}
	if snap.Banknotes, err = c.store.ListItems(ctx, item.TypeBanknote); err != nil {
		return err
	}
	if snap.Wishlist, err = c.store.ListItems(ctx, item.TypeWishlist); err != nil {
		return err
	}
	if snap.Albums, err = c.store.ListAlbums(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}

// Snapshot returns the cached state. The slices are shared; callers
// must not mutate them.
func (c *Collection) Snapshot() item.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Collection) AddItem(ctx context.Context, it item.Item, typ item.Type) (item.Item, error) {
	stored, err := c.store.AddItem(ctx, it, typ)
	if err != nil {
		return item.Item{}, err
	}
	if err := c.Refresh(ctx); err != nil {
		return item.Item{}, err
	}
	return stored, nil
}

func (c *Collection) UpdateItem(ctx context.Context, it item.Item) error {
	if err := c.store.UpdateItem(ctx, it); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

func (c *Collection) RemoveItem(ctx context.Context, id string) error {
	if err := c.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// ToggleFavorite flips the favorite flag of an item in the cached
// snapshot and persists the new value.
func (c *Collection) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	current, ok := c.findItem(id)
	if !ok {
		return false, errors.NewNotFound(id)
	}
	next := !current.Favorite
	if err := c.store.SetFavorite(ctx, id, next); err != nil {
		return false, err
	}
	if err := c.Refresh(ctx); err != nil {
		return false, err
	}
	return next, nil
}

func (c *Collection) findItem(id string) (item.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, list := range [][]item.Item{c.snap.Coins, c.snap.Banknotes, c.snap.Wishlist} {
		for _, it := range list {
			if it.ID == id {
				return it, true
			}
		}
	}
	return item.Item{}, false
}

func (c *Collection) CreateAlbum(ctx context.Context, spec item.AlbumSpec) (item.Album, error) {
	alb, err := c.store.CreateAlbum(ctx, spec)
	if err != nil {
		return item.Album{}, err
	}
	if err := c.Refresh(ctx); err != nil {
		return item.Album{}, err
	}
	return alb, nil
}

func (c *Collection) DeleteAlbum(ctx context.Context, id string) error {
	if err := c.store.DeleteAlbum(ctx, id); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// FetchAlbumItems reads album contents straight from the store; album
// membership is not cached.
func (c *Collection) FetchAlbumItems(ctx context.Context, albumID string) ([]item.Item, error) {
	return c.store.ListAlbumItems(ctx, albumID)
}

// Favorites returns the favorited coins and banknotes. Wishlist items
// are not owned, so they never count.
func (c *Collection) Favorites() []item.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []item.Item
	for _, list := range [][]item.Item{c.snap.Coins, c.snap.Banknotes} {
		for _, it := range list {
			if it.Favorite {
				out = append(out, it)
			}
		}
	}
	return out
}

// CountByCountry tallies owned items (coins and banknotes) per country.
// Items with no country set are skipped.
func (c *Collection) CountByCountry() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[string]int)
	for _, list := range [][]item.Item{c.snap.Coins, c.snap.Banknotes} {
		for _, it := range list {
			if it.Country == "" {
				continue
			}
			counts[it.Country]++
		}
	}
	return counts
}

// TotalValuation sums the purchase values of owned items. Values are
// opaque strings entered by the user; anything that does not parse as
// a decimal counts as zero.
func (c *Collection) TotalValuation() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := decimal.Zero
	for _, list := range [][]item.Item{c.snap.Coins, c.snap.Banknotes} {
		for _, it := range list {
			if it.PurchaseValue == "" {
				continue
			}
			v, err := decimal.NewFromString(it.PurchaseValue)
			if err != nil {
				continue
			}
			total = total.Add(v)
		}
	}
	return total
}

// Stats builds the summary view from the cached snapshot.
func (c *Collection) Stats() Stats {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	return Stats{
		Coins:      len(snap.Coins),
		Banknotes:  len(snap.Banknotes),
		Wishlist:   len(snap.Wishlist),
		Albums:     len(snap.Albums),
		Favorites:  len(c.Favorites()),
		TotalValue: c.TotalValuation().StringFixed(2),
		Countries:  c.CountByCountry(),
	}
}

// ExportBackup serializes the full collection as plain JSON.
func (c *Collection) ExportBackup(ctx context.Context) ([]byte, error) {
	doc, err := c.buildDocument(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}

// ExportCompressedBackup serializes the full collection as gzip-wrapped
// JSON, the format used for cloud uploads.
func (c *Collection) ExportCompressedBackup(ctx context.Context) ([]byte, error) {
	doc, err := c.buildDocument(ctx)
	if err != nil {
		return nil, err
	}
	plain, err := doc.Marshal()
	if err != nil {
		return nil, err
	}
	compressed, err := doc.MarshalCompressed()
	if err != nil {
		return nil, err
	}
	c.log.Info("backup compressed",
		"plain_bytes", len(plain),
		"compressed_bytes", len(compressed))
	return compressed, nil
}

func (c *Collection) buildDocument(ctx context.Context) (*backup.Document, error) {
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	snap := c.Snapshot()

	memberships := make(map[string][]string, len(snap.Albums))
	for _, alb := range snap.Albums {
		items, err := c.store.ListAlbumItems(ctx, alb.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		memberships[alb.ID] = ids
	}

	return backup.Encode(snap, memberships, time.Now()), nil
}

// ImportBackup decodes a backup (gzip or plain, detected by content)
// and merges it into the store. Existing records with matching ids are
// overwritten; everything else is left alone.
func (c *Collection) ImportBackup(ctx context.Context, data []byte) error {
	doc, err := backup.Decode(data)
	if err != nil {
		return err
	}
	if err := backup.Restore(ctx, c.store, doc); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// PushCloudBackup uploads a compressed backup under the configured name.
func (c *Collection) PushCloudBackup(ctx context.Context, fs cloud.FileStore) (*cloud.FileHandle, error) {
	data, err := c.ExportCompressedBackup(ctx)
	if err != nil {
		return nil, err
	}
	h, err := fs.Upload(ctx, c.cfg.Cloud.BackupName, data)
	if err != nil {
		return nil, err
	}
	c.log.Info("backup uploaded", "name", h.Key, "bytes", h.Size)
	return h, nil
}

// PullCloudBackup downloads the configured backup file and merges it.
// A missing remote file is reported as NOT_FOUND.
func (c *Collection) PullCloudBackup(ctx context.Context, fs cloud.FileStore) error {
	h, err := fs.Find(ctx, c.cfg.Cloud.BackupName)
	if err != nil {
		return err
	}
	if h == nil {
		return errors.NewNotFound(c.cfg.Cloud.BackupName)
	}
	data, err := fs.Download(ctx, h)
	if err != nil {
		return err
	}
	c.log.Info("backup downloaded", "name", h.Key, "bytes", len(data))
	return c.ImportBackup(ctx, data)
}
