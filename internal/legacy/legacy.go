// Package legacy reads the flat key-value file left behind by the old
// storage layer. It exists only for the one-time migration into the
// embedded store and is strictly read-only.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Keys used by the old flat store.
const (
	KeyCoins     = "collection-coins"
	KeyBanknotes = "collection-banknotes"
	KeyWishlist  = "collection-wishlist"
)

// Store is a read-only view over a flat JSON key-value dump.
type Store struct {
	values map[string]json.RawMessage
}

// Open reads the dump at path. A missing file yields an empty store,
// since most installations never had the old layer.
func Open(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Store{values: map[string]json.RawMessage{}}, nil
		}
		return nil, fmt.Errorf("failed to read legacy store: %w", err)
	}

	values := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse legacy store: %w", err)
	}
	return &Store{values: values}, nil
}

// Get returns the raw value for key, or nil if the key is absent.
func (s *Store) Get(key string) json.RawMessage {
	return s.values[key]
}

// Empty reports whether none of the collection keys hold data.
func (s *Store) Empty() bool {
	return s.values[KeyCoins] == nil && s.values[KeyBanknotes] == nil && s.values[KeyWishlist] == nil
}
