package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Collection names a JSON document holding an array of records
type Collection string

const (
	Cart     Collection = "cart"
	Orders   Collection = "orders"
	Products Collection = "products"
)

// AllCollections lists every collection the service persists
var AllCollections = []Collection{Cart, Orders, Products}

var (
	ErrCollectionNotLocked = errors.New("collection is not part of the transaction")
	ErrUnknownDriver       = errors.New("unknown store driver")
	ErrCorruptDocument     = errors.New("collection document is corrupt")
)

// Tx is the view of the locked collections inside Store.Update.
// Get observes earlier Puts of the same transaction.
type Tx interface {
	Get(c Collection) ([]byte, error)
	Put(c Collection, doc []byte) error
}

// Store persists whole collections as JSON documents.
//
// Get returns nil for a collection that has never been written and the
// stored bytes otherwise, even when they are not valid JSON. Update locks the given collections for the
// duration of fn and commits every Put atomically when fn returns nil.
type Store interface {
	Get(ctx context.Context, c Collection) ([]byte, error)
	Update(ctx context.Context, fn func(tx Tx) error, collections ...Collection) error
	Health(ctx context.Context) map[string]string
	Close() error
}

// Decode converts a collection document into records.
// Missing documents and documents of the wrong shape decode to an empty slice.
func Decode[T any](doc []byte) []T {
	records := []T{}
	if len(doc) == 0 {
		return records
	}
	if err := json.Unmarshal(doc, &records); err != nil || records == nil {
		return []T{}
	}
	return records
}

// DecodeStrict is Decode for callers that must not mistake a damaged
// document for an empty collection
func DecodeStrict[T any](doc []byte) ([]T, error) {
	records := []T{}
	if len(doc) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(doc, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: document is null", ErrCorruptDocument)
	}
	return records, nil
}

// Encode serializes records as a collection document.
// A nil slice is written as an empty array.
func Encode[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	doc, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection: %w", err)
	}
	return doc, nil
}

// Load reads and decodes a collection outside of a transaction
func Load[T any](ctx context.Context, s Store, c Collection) ([]T, error) {
	doc, err := s.Get(ctx, c)
	if err != nil {
		return nil, err
	}
	return Decode[T](doc), nil
}

// LoadStrict reads a collection and fails with ErrCorruptDocument when it
// cannot be decoded
func LoadStrict[T any](ctx context.Context, s Store, c Collection) ([]T, error) {
	doc, err := s.Get(ctx, c)
	if err != nil {
		return nil, err
	}
	return DecodeStrict[T](doc)
}

// LoadTx reads and decodes a collection inside a transaction
func LoadTx[T any](tx Tx, c Collection) ([]T, error) {
	doc, err := tx.Get(c)
	if err != nil {
		return nil, err
	}
	return Decode[T](doc), nil
}

// SaveTx encodes and stages a collection inside a transaction
func SaveTx[T any](tx Tx, c Collection, records []T) error {
	doc, err := Encode(records)
	if err != nil {
		return err
	}
	return tx.Put(c, doc)
}

// lockOrder returns the collections deduplicated and sorted so that
// every transaction acquires locks in the same order.
func lockOrder(collections []Collection) []Collection {
	seen := make(map[Collection]bool, len(collections))
	ordered := make([]Collection, 0, len(collections))
	for _, c := range collections {
		if seen[c] {
			continue
		}
		seen[c] = true
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered
}
