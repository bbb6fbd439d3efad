package item

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type identifies which of the three collections an item belongs to.
type Type string

const (
	TypeCoin     Type = "coin"
	TypeBanknote Type = "banknote"
	TypeWishlist Type = "wishlist"
)

// Types lists all valid item types.
var Types = []Type{TypeCoin, TypeBanknote, TypeWishlist}

// Valid reports whether t is a known item type.
func (t Type) Valid() bool {
	return t == TypeCoin || t == TypeBanknote || t == TypeWishlist
}

// Album presentation defaults, matching the original schema defaults.
const (
	DefaultAlbumColor  = "indigo"
	DefaultAlbumDesign = "classic"
)

// Item represents a coin, banknote, or wishlist entry.
// All descriptive fields are opaque text: the store persists and returns
// them unchanged, with no validation or type coercion (a malformed year
// or price stays exactly as the user typed it).
type Item struct {
	// ID is a ULID that uniquely identifies this item across all types
	ID string `json:"id"`

	// Type partitions the single item collection (coin, banknote, wishlist)
	Type Type `json:"type"`

	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	Denomination  string `json:"denomination,omitempty"`
	FrontImage    string `json:"front_image,omitempty"`
	BackImage     string `json:"back_image,omitempty"`
	Year          string `json:"year,omitempty"`
	Country       string `json:"country,omitempty"`
	Material      string `json:"material,omitempty"`
	Condition     string `json:"condition,omitempty"`
	PurchaseValue string `json:"purchase_value,omitempty"`
	SaleValue     string `json:"sale_value,omitempty"`

	Favorite bool `json:"favorite"`

	// CreatedAt is the Unix timestamp in milliseconds, the default sort key
	CreatedAt int64 `json:"created_at"`
}

// Album is a user-defined named grouping of items with presentation metadata.
type Album struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
	Design      string `json:"design"`
	CreatedAt   int64  `json:"created_at"`
}

// AlbumSpec describes an album to create. ID is normally left empty and
// assigned by the store; backup restore supplies an explicit ID, in which
// case the album row and its membership set are replaced as one unit.
type AlbumSpec struct {
	ID          string
	Title       string
	Description string
	Color       string
	Design      string
	ItemIDs     []string
}

// Snapshot is the in-memory, UI-facing copy of all collections.
// It is rebuilt wholesale after every mutation and never patched in place.
type Snapshot struct {
	Coins     []Item
	Banknotes []Item
	Wishlist  []Item
	Albums    []Album
}

// NewID generates a ULID for the given creation time.
func NewID(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Stamp fills the store-owned fields of an item prior to an upsert:
// id and created_at when absent, and the type tag unconditionally.
// Favorite keeps whatever the caller set (false by default).
func Stamp(it Item, typ Type) (Item, error) {
	now := time.Now()
	if it.ID == "" {
		id, err := NewID(now)
		if err != nil {
			return Item{}, err
		}
		it.ID = id
	}
	if it.CreatedAt == 0 {
		it.CreatedAt = now.UnixMilli()
	}
	it.Type = typ
	return it, nil
}

// StampAlbum resolves an AlbumSpec into a full Album record, assigning an
// id when the spec carries none and applying presentation defaults.
func StampAlbum(spec AlbumSpec) (Album, error) {
	now := time.Now()
	id := spec.ID
	if id == "" {
		var err error
		id, err = NewID(now)
		if err != nil {
			return Album{}, err
		}
	}
	color := spec.Color
	if color == "" {
		color = DefaultAlbumColor
	}
	design := spec.Design
	if design == "" {
		design = DefaultAlbumDesign
	}
	return Album{
		ID:          id,
		Title:       spec.Title,
		Description: spec.Description,
		Color:       color,
		Design:      design,
		CreatedAt:   now.UnixMilli(),
	}, nil
}
