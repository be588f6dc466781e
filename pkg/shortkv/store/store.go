// Package store provides the bucketed key-value store the repositories sit
// on: flat bucket/key records with exact-value secondary indexes. Two
// backends exist, one on gorm (sqlite or postgres) and one on redis.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the bucket holds no value for the key.
var ErrNotFound = errors.New("store: key not found")

// IndexEntry attaches a record to a secondary index under the given value.
// Entries are replaced as a set on every Put.
type IndexEntry struct {
	Name  string
	Value string
}

// Object is a stored value with its index entries and a backend-assigned
// write version. The version is carried so mutations can later be made
// conditional; current backends assign it on write but do not compare it,
// which leaves the repositories' check-then-act sequences unguarded.
type Object struct {
	Value   []byte
	Indexes []IndexEntry
	Version string
}

// Query describes a secondary-index lookup. Continuation is the opaque token
// from a previous page; empty starts from the beginning. MaxResults of zero
// lets the backend pick a page size.
type Query struct {
	Bucket       string
	Index        string
	Value        string
	Continuation string
	MaxResults   int
}

// Page is one page of index query results. Done signals that no further
// pages exist; Continuation is only meaningful when Done is false.
type Page struct {
	Keys         []string
	Continuation string
	Done         bool
}

// Store is the adapter over the key-value backend. Single-key operations are
// atomic; there are no multi-key transactions.
type Store interface {
	// Get fetches the object stored under bucket/key, or ErrNotFound.
	Get(ctx context.Context, bucket, key string) (*Object, error)

	// Put stores the object under bucket/key, replacing any previous value
	// and its index entries.
	Put(ctx context.Context, bucket, key string, obj *Object) error

	// Delete removes the record and its index entries.
	Delete(ctx context.Context, bucket, key string) error

	// QueryIndex returns one page of primary keys whose index entry matches
	// the query value exactly.
	QueryIndex(ctx context.Context, q Query) (*Page, error)

	// Ping verifies the backend connection is alive.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// QueryAllKeys pages through an index query until the backend signals
// completion and returns the full key set.
func QueryAllKeys(ctx context.Context, s Store, bucket, index, value string) ([]string, error) {
	var keys []string
	q := Query{Bucket: bucket, Index: index, Value: value}
	for {
		page, err := s.QueryIndex(ctx, q)
		if err != nil {
			return nil, err
		}
		keys = append(keys, page.Keys...)
		if page.Done {
			return keys, nil
		}
		q.Continuation = page.Continuation
	}
}
