// Package relstore is the relational store backend: hand-written SQL
// over an embedded sqlite database. It is the backend for installed
// mobile builds.
package relstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/glebarez/go-sqlite"

	"coinvault/internal/config"
	"coinvault/internal/errors"
	"coinvault/internal/item"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Store is the relational backend. One open handle per process,
// established by Init and reused for the process lifetime.
type Store struct {
	baseDir string
	cfg     *config.Config
	db      *sql.DB
}

// New returns an unopened store rooted at baseDir.
func New(baseDir string, cfg *config.Config) *Store {
	return &Store{baseDir: baseDir, cfg: cfg}
}

// Init opens the database at baseDir/coinvault.db and applies schema
// migrations. Safe to call multiple times; a no-op after the first
// successful call.
func (s *Store) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(s.baseDir, 0700); err != nil {
		return errors.NewStoreUnavailable(fmt.Errorf("failed to create base directory: %w", err))
	}
	_ = os.Chmod(s.baseDir, 0700)

	dbPath := filepath.Join(s.baseDir, "coinvault.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return errors.NewStoreUnavailable(fmt.Errorf("failed to open database: %w", err))
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return errors.NewStoreUnavailable(err)
	}

	_ = os.Chmod(dbPath, 0600)

	if s.cfg != nil {
		if s.cfg.DBMaxOpenConns > 0 {
			db.SetMaxOpenConns(s.cfg.DBMaxOpenConns)
		}
		if s.cfg.DBMaxIdleConns > 0 {
			db.SetMaxIdleConns(s.cfg.DBMaxIdleConns)
		}
	}

	s.db = db
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// migrate applies schema migrations based on user_version.
func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("failed to get user_version: %w", err)
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS items (
		  id             TEXT PRIMARY KEY,
		  type           TEXT NOT NULL,
		  name           TEXT,
		  description    TEXT,
		  denomination   TEXT,
		  front_image    TEXT,
		  back_image     TEXT,
		  year           TEXT,
		  country        TEXT,
		  material       TEXT,
		  condition      TEXT,
		  purchase_value TEXT,
		  sale_value     TEXT,
		  favorite       INTEGER NOT NULL DEFAULT 0,
		  created_at     INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_items_type_created
		ON items(type, created_at DESC);

		CREATE TABLE IF NOT EXISTS albums (
		  id          TEXT PRIMARY KEY,
		  title       TEXT NOT NULL,
		  description TEXT,
		  color       TEXT NOT NULL DEFAULT 'indigo',
		  design      TEXT NOT NULL DEFAULT 'classic',
		  created_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS album_items (
		  album_id TEXT NOT NULL,
		  item_id  TEXT NOT NULL,
		  PRIMARY KEY (album_id, item_id)
		);

		CREATE INDEX IF NOT EXISTS idx_album_items_album
		ON album_items(album_id);
		`
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", CurrentSchemaVersion)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}

	return nil
}

const itemColumns = `id, type, name, description, denomination, front_image, back_image,
	year, country, material, condition, purchase_value, sale_value, favorite, created_at`

// ListItems returns all items of the given type, newest first.
func (s *Store) ListItems(ctx context.Context, typ item.Type) ([]item.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM items WHERE type = ?
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, string(typ))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := []item.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// AddItem stamps defaults and upserts by id.
func (s *Store) AddItem(ctx context.Context, it item.Item, typ item.Type) (item.Item, error) {
	stamped, err := item.Stamp(it, typ)
	if err != nil {
		return item.Item{}, errors.NewInternal(err)
	}

	query := `INSERT OR REPLACE INTO items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		stamped.ID, string(stamped.Type), stamped.Name, stamped.Description,
		stamped.Denomination, stamped.FrontImage, stamped.BackImage,
		stamped.Year, stamped.Country, stamped.Material, stamped.Condition,
		stamped.PurchaseValue, stamped.SaleValue, boolToInt(stamped.Favorite), stamped.CreatedAt,
	)
	if err != nil {
		return item.Item{}, errors.NewInternal(err)
	}
	return stamped, nil
}

// UpdateItem replaces the full record by id.
func (s *Store) UpdateItem(ctx context.Context, it item.Item) error {
	query := `UPDATE items SET
		type = ?, name = ?, description = ?, denomination = ?,
		front_image = ?, back_image = ?, year = ?, country = ?,
		material = ?, condition = ?, purchase_value = ?, sale_value = ?,
		favorite = ?, created_at = ?
		WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		string(it.Type), it.Name, it.Description, it.Denomination,
		it.FrontImage, it.BackImage, it.Year, it.Country,
		it.Material, it.Condition, it.PurchaseValue, it.SaleValue,
		boolToInt(it.Favorite), it.CreatedAt,
		it.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(it.ID)
	}
	return nil
}

// DeleteItem removes an item. Deleting a non-existent id is not an error.
// Membership rows referencing the item are left in place; ListAlbumItems
// skips them.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SetFavorite flips the favorite flag by id.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE items SET favorite = ? WHERE id = ?", boolToInt(favorite), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// ListAlbums returns all albums, newest first.
func (s *Store) ListAlbums(ctx context.Context) ([]item.Album, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, color, design, created_at
		FROM albums ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	albums := []item.Album{}
	for rows.Next() {
		var a item.Album
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Color, &a.Design, &a.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return albums, nil
}

// CreateAlbum inserts the album row and one membership row per item id
// in a single transaction. With an explicit spec ID the album row is
// replaced and its membership set rebuilt; either way the whole unit
// commits or nothing does.
func (s *Store) CreateAlbum(ctx context.Context, spec item.AlbumSpec) (item.Album, error) {
	if spec.Title == "" {
		return item.Album{}, errors.NewInvalidRequest("title is required")
	}

	album, err := item.StampAlbum(spec)
	if err != nil {
		return item.Album{}, errors.NewInternal(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return item.Album{}, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO albums (id, title, description, color, design, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		album.ID, album.Title, album.Description, album.Color, album.Design, album.CreatedAt)
	if err != nil {
		return item.Album{}, errors.NewInternal(err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM album_items WHERE album_id = ?", album.ID); err != nil {
		return item.Album{}, errors.NewInternal(err)
	}

	for _, itemID := range spec.ItemIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO album_items (album_id, item_id) VALUES (?, ?)", album.ID, itemID); err != nil {
			return item.Album{}, errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return item.Album{}, errors.NewInternal(err)
	}
	return album, nil
}

// DeleteAlbum removes the album row and all its membership rows atomically.
func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM albums WHERE id = ?", id); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM album_items WHERE album_id = ?", id); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListAlbumItems returns the item records joined through the membership
// table. Membership rows whose item no longer exists drop out of the
// join silently.
func (s *Store) ListAlbumItems(ctx context.Context, albumID string) ([]item.Item, error) {
	query := `SELECT i.id, i.type, i.name, i.description, i.denomination,
		i.front_image, i.back_image, i.year, i.country, i.material,
		i.condition, i.purchase_value, i.sale_value, i.favorite, i.created_at
		FROM items i
		INNER JOIN album_items ai ON i.id = ai.item_id
		WHERE ai.album_id = ?
		ORDER BY i.created_at DESC, i.id DESC`

	rows, err := s.db.QueryContext(ctx, query, albumID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	items := []item.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return items, nil
}

// scanItem scans the itemColumns tuple into an Item.
func scanItem(rows *sql.Rows) (item.Item, error) {
	var (
		it       item.Item
		typ      string
		favorite int
	)
	err := rows.Scan(
		&it.ID, &typ, &it.Name, &it.Description, &it.Denomination,
		&it.FrontImage, &it.BackImage, &it.Year, &it.Country,
		&it.Material, &it.Condition, &it.PurchaseValue, &it.SaleValue,
		&favorite, &it.CreatedAt,
	)
	if err != nil {
		return item.Item{}, err
	}
	it.Type = item.Type(typ)
	it.Favorite = favorite != 0
	return it, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
