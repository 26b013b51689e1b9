// Package kv stores byte values under hierarchical keys.
//
// A Key such as {"runs", "0192...", "turns", "000003"} is encoded by joining
// its segments with '/'. Listing by prefix only matches whole segments, so
// the prefix {"runs", "a"} never yields keys below {"runs", "ab"}.
//
// Badger persists to disk; Memory is a map-backed store for tests.
package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("kv: not found")

	// ErrInvalidKey is returned for keys with empty segments or segments
	// containing the separator.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Separator joins key segments.
const Separator = '/'

// Key is a hierarchical path.
type Key []string

func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

// Entry is a key and its value.
type Entry struct {
	Key   Key
	Value []byte
}

// Op is one mutation in a Write batch. A nil Value deletes the key.
type Op struct {
	Key   Key
	Value []byte
}

// ListOptions controls List.
type ListOptions struct {
	// Reverse lists in descending key order.
	Reverse bool

	// Limit stops after this many entries. Zero means no limit.
	Limit int
}

// Store is a key-value store.
type Store interface {
	// Get returns ErrNotFound if key is absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	Set(ctx context.Context, key Key, value []byte) error

	// Delete succeeds when key is absent.
	Delete(ctx context.Context, key Key) error

	// List yields entries strictly below prefix in key order. An empty
	// prefix lists everything.
	List(ctx context.Context, prefix Key, opts ListOptions) iter.Seq2[Entry, error]

	// Write applies all ops atomically.
	Write(ctx context.Context, ops []Op) error

	Close() error
}

func encodeKey(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, seg := range k {
		if seg == "" || strings.IndexByte(seg, Separator) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, k.String())
		}
	}
	return []byte(k.String()), nil
}

// listPrefix encodes k with a trailing separator so it matches whole
// segments only. An empty prefix encodes to nil.
func listPrefix(k Key) ([]byte, error) {
	if len(k) == 0 {
		return nil, nil
	}
	p, err := encodeKey(k)
	if err != nil {
		return nil, err
	}
	return append(p, Separator), nil
}

func decodeKey(b []byte) Key {
	return Key(strings.Split(string(b), string(Separator)))
}
