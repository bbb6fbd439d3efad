// Package docstore is the document store backend: GORM models over the
// pure-Go sqlite driver. It is the default backend outside installed
// mobile builds and mirrors the object-store shape of the original
// browser database.
package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"coinvault/internal/errors"
	"coinvault/internal/item"
)

// itemRow maps an Item onto the items table. Descriptive fields are
// plain text columns; the store never interprets them.
type itemRow struct {
	ID            string `gorm:"column:id;primaryKey"`
	Type          string `gorm:"column:type;index:idx_items_type"`
	Name          string `gorm:"column:name"`
	Description   string `gorm:"column:description"`
	Denomination  string `gorm:"column:denomination"`
	FrontImage    string `gorm:"column:front_image"`
	BackImage     string `gorm:"column:back_image"`
	Year          string `gorm:"column:year"`
	Country       string `gorm:"column:country"`
	Material      string `gorm:"column:material"`
	Condition     string `gorm:"column:condition"`
	PurchaseValue string `gorm:"column:purchase_value"`
	SaleValue     string `gorm:"column:sale_value"`
	Favorite      bool   `gorm:"column:favorite"`
	CreatedAt     int64  `gorm:"column:created_at"`
}

func (itemRow) TableName() string { return "items" }

type albumRow struct {
	ID          string `gorm:"column:id;primaryKey"`
	Title       string `gorm:"column:title;not null"`
	Description string `gorm:"column:description"`
	Color       string `gorm:"column:color"`
	Design      string `gorm:"column:design"`
	CreatedAt   int64  `gorm:"column:created_at"`
}

func (albumRow) TableName() string { return "albums" }

type membershipRow struct {
	AlbumID string `gorm:"column:album_id;primaryKey"`
	ItemID  string `gorm:"column:item_id;primaryKey"`
}

func (membershipRow) TableName() string { return "album_items" }

// Store is the document backend. One open handle per process.
type Store struct {
	baseDir string
	db      *gorm.DB
}

// New returns an unopened store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init opens the database and runs auto-migration once. Safe to call
// multiple times; a no-op after the first successful call.
func (s *Store) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(s.baseDir, 0700); err != nil {
		return errors.NewStoreUnavailable(fmt.Errorf("failed to create base directory: %w", err))
	}

	dbPath := filepath.Join(s.baseDir, "coinvault.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return errors.NewStoreUnavailable(fmt.Errorf("failed to open database: %w", err))
	}

	if err := db.WithContext(ctx).AutoMigrate(&itemRow{}, &albumRow{}, &membershipRow{}); err != nil {
		return errors.NewStoreUnavailable(fmt.Errorf("failed to migrate database: %w", err))
	}

	s.db = db
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}

// ListItems returns all items of the given type, newest first.
func (s *Store) ListItems(ctx context.Context, typ item.Type) ([]item.Item, error) {
	var rows []itemRow
	err := s.db.WithContext(ctx).
		Where("type = ?", string(typ)).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	items := make([]item.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toItem())
	}
	return items, nil
}

// AddItem stamps defaults and upserts by id.
func (s *Store) AddItem(ctx context.Context, it item.Item, typ item.Type) (item.Item, error) {
	stamped, err := item.Stamp(it, typ)
	if err != nil {
		return item.Item{}, errors.NewInternal(err)
	}

	row := fromItem(stamped)
	err = s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return item.Item{}, errors.NewInternal(err)
	}
	return stamped, nil
}

// UpdateItem replaces the full record by id.
func (s *Store) UpdateItem(ctx context.Context, it item.Item) error {
	return s.txErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing itemRow
		if err := tx.First(&existing, "id = ?", it.ID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NewNotFound(it.ID)
			}
			return errors.NewInternal(err)
		}
		row := fromItem(it)
		if err := tx.Save(&row).Error; err != nil {
			return errors.NewInternal(err)
		}
		return nil
	}))
}

// DeleteItem removes an item. Deleting a non-existent id is not an error.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&itemRow{}, "id = ?", id).Error; err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SetFavorite flips the favorite flag by id.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) error {
	result := s.db.WithContext(ctx).
		Model(&itemRow{}).
		Where("id = ?", id).
		Update("favorite", favorite)
	if result.Error != nil {
		return errors.NewInternal(result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// ListAlbums returns all albums, newest first.
func (s *Store) ListAlbums(ctx context.Context) ([]item.Album, error) {
	var rows []albumRow
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&rows).Error
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	albums := make([]item.Album, 0, len(rows))
	for _, r := range rows {
		albums = append(albums, item.Album{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Color:       r.Color,
			Design:      r.Design,
			CreatedAt:   r.CreatedAt,
		})
	}
	return albums, nil
}

// CreateAlbum inserts the album row and its membership rows in one
// transaction; an explicit spec ID replaces the row and rebuilds the
// membership set.
func (s *Store) CreateAlbum(ctx context.Context, spec item.AlbumSpec) (item.Album, error) {
	if spec.Title == "" {
		return item.Album{}, errors.NewInvalidRequest("title is required")
	}

	album, err := item.StampAlbum(spec)
	if err != nil {
		return item.Album{}, errors.NewInternal(err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := albumRow{
			ID:          album.ID,
			Title:       album.Title,
			Description: album.Description,
			Color:       album.Color,
			Design:      album.Design,
			CreatedAt:   album.CreatedAt,
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if err := tx.Delete(&membershipRow{}, "album_id = ?", album.ID).Error; err != nil {
			return err
		}
		for _, itemID := range spec.ItemIDs {
			if err := tx.Create(&membershipRow{AlbumID: album.ID, ItemID: itemID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return item.Album{}, errors.NewInternal(err)
	}
	return album, nil
}

// DeleteAlbum removes the album row and all its membership rows atomically.
func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	return s.txErr(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&albumRow{}, "id = ?", id).Error; err != nil {
			return errors.NewInternal(err)
		}
		if err := tx.Delete(&membershipRow{}, "album_id = ?", id).Error; err != nil {
			return errors.NewInternal(err)
		}
		return nil
	}))
}

// ListAlbumItems returns the item records joined through the membership
// table; memberships pointing at deleted items drop out of the join.
func (s *Store) ListAlbumItems(ctx context.Context, albumID string) ([]item.Item, error) {
	var rows []itemRow
	err := s.db.WithContext(ctx).
		Joins("INNER JOIN album_items ON album_items.item_id = items.id").
		Where("album_items.album_id = ?", albumID).
		Order("items.created_at DESC, items.id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	items := make([]item.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toItem())
	}
	return items, nil
}

// txErr passes through structured errors and wraps anything else.
func (s *Store) txErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.VaultError); ok {
		return err
	}
	return errors.NewInternal(err)
}

func (r itemRow) toItem() item.Item {
	return item.Item{
		ID:            r.ID,
		Type:          item.Type(r.Type),
		Name:          r.Name,
		Description:   r.Description,
		Denomination:  r.Denomination,
		FrontImage:    r.FrontImage,
		BackImage:     r.BackImage,
		Year:          r.Year,
		Country:       r.Country,
		Material:      r.Material,
		Condition:     r.Condition,
		PurchaseValue: r.PurchaseValue,
		SaleValue:     r.SaleValue,
		Favorite:      r.Favorite,
		CreatedAt:     r.CreatedAt,
	}
}

func fromItem(it item.Item) itemRow {
	return itemRow{
		ID:            it.ID,
		Type:          string(it.Type),
		Name:          it.Name,
		Description:   it.Description,
		Denomination:  it.Denomination,
		FrontImage:    it.FrontImage,
		BackImage:     it.BackImage,
		Year:          it.Year,
		Country:       it.Country,
		Material:      it.Material,
		Condition:     it.Condition,
		PurchaseValue: it.PurchaseValue,
		SaleValue:     it.SaleValue,
		Favorite:      it.Favorite,
		CreatedAt:     it.CreatedAt,
	}
}
