// Package backup encodes the collection into a portable document and
// decodes it back, handling both plain JSON and gzip-compressed bytes.
//
// Restore is a MERGE, not a wipe-and-replace: every record in the
// document is replayed through the store's upsert, so local records
// whose ids are absent from the backup survive untouched, and matching
// ids are overwritten by the backup's version. Surface this wording in
// any user-facing copy.
package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"time"

	"coinvault/internal/errors"
	"coinvault/internal/item"
	"coinvault/internal/store"
)

// FormatVersion is the backup document format tag.
const FormatVersion = "1"

// Backup file naming convention. Decode never trusts the name; the
// cloud provider has been observed to mislabel content.
const (
	FileName           = "coinvault_backup.json"
	CompressedFileName = "coinvault_backup.json.gz"
)

// AlbumEntry is an album plus the ids of its member items.
type AlbumEntry struct {
	item.Album
	ItemIDs []string `json:"item_ids,omitempty"`
}

// Document is the portable representation of the whole collection.
type Document struct {
	Coins         []item.Item  `json:"coins"`
	Banknotes     []item.Item  `json:"banknotes"`
	Wishlist      []item.Item  `json:"wishlist"`
	Albums        []AlbumEntry `json:"albums"`
	GeneratedAt   int64        `json:"generated_at"`
	FormatVersion string       `json:"format_version"`
}

// Encode builds a Document from a snapshot. memberships maps album id
// to its member item ids; albums without an entry encode with none.
func Encode(snap item.Snapshot, memberships map[string][]string, now time.Time) *Document {
	doc := &Document{
		Coins:         emptyIfNil(snap.Coins),
		Banknotes:     emptyIfNil(snap.Banknotes),
		Wishlist:      emptyIfNil(snap.Wishlist),
		Albums:        []AlbumEntry{},
		GeneratedAt:   now.UnixMilli(),
		FormatVersion: FormatVersion,
	}
	for _, a := range snap.Albums {
		doc.Albums = append(doc.Albums, AlbumEntry{Album: a, ItemIDs: memberships[a.ID]})
	}
	return doc
}

// Marshal serializes the document as plain JSON text.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// MarshalCompressed serializes the document and gzips it for the cloud path.
func (d *Document) MarshalCompressed() ([]byte, error) {
	data, err := d.Marshal()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := zw.Close(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return buf.Bytes(), nil
}

// IsGzip reports whether data starts with the gzip magic number
// (0x1F 0x8B). Filenames and content-type metadata lie; bytes don't.
func IsGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B
}

// Decode parses a backup document from bytes that may be plain JSON or
// gzip-compressed JSON, regardless of what any label claimed. Returns a
// CORRUPT_BACKUP error when gunzip fails on magic-matched bytes or when
// JSON parsing fails after format detection.
func Decode(data []byte) (*Document, error) {
	if IsGzip(data) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.NewCorruptBackup("gzip header matched but stream is invalid", err)
		}
		defer zr.Close()
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, errors.NewCorruptBackup("gzip stream truncated", err)
		}
	}

	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.NewCorruptBackup("not a valid backup document", err)
	}
	return doc, nil
}

// Restore replays the document into the store: items through the upsert
// path, albums through CreateAlbum with their original ids. Records are
// replayed sequentially; duplicate-id upserts make re-running safe.
func Restore(ctx context.Context, st store.Store, doc *Document) error {
	groups := []struct {
		typ   item.Type
		items []item.Item
	}{
		{item.TypeCoin, doc.Coins},
		{item.TypeBanknote, doc.Banknotes},
		{item.TypeWishlist, doc.Wishlist},
	}
	for _, g := range groups {
		for _, it := range g.items {
			if _, err := st.AddItem(ctx, it, g.typ); err != nil {
				return err
			}
		}
	}

	for _, entry := range doc.Albums {
		spec := item.AlbumSpec{
			ID:          entry.ID,
			Title:       entry.Title,
			Description: entry.Description,
			Color:       entry.Color,
			Design:      entry.Design,
			ItemIDs:     entry.ItemIDs,
		}
		if _, err := st.CreateAlbum(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

func emptyIfNil(items []item.Item) []item.Item {
	if items == nil {
		return []item.Item{}
	}
	return items
}
