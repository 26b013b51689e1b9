package kv

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is a map-backed Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	k, err := encodeKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(k)]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Memory) Set(ctx context.Context, key Key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return m.Write(ctx, []Op{{Key: key, Value: value}})
}

func (m *Memory) Delete(ctx context.Context, key Key) error {
	return m.Write(ctx, []Op{{Key: key}})
}

func (m *Memory) Write(_ context.Context, ops []Op) error {
	keys := make([]string, len(ops))
	for i, op := range ops {
		k, err := encodeKey(op.Key)
		if err != nil {
			return err
		}
		keys[i] = string(k)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, op := range ops {
		if op.Value == nil {
			delete(m.data, keys[i])
		} else {
			m.data[keys[i]] = bytes.Clone(op.Value)
		}
	}
	return nil
}

// List snapshots the matching entries before yielding them.
func (m *Memory) List(_ context.Context, prefix Key, opts ListOptions) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		p, err := listPrefix(prefix)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		m.mu.RLock()
		var keys []string
		for k := range m.data {
			if strings.HasPrefix(k, string(p)) {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		if opts.Reverse {
			slices.Reverse(keys)
		}
		if opts.Limit > 0 && len(keys) > opts.Limit {
			keys = keys[:opts.Limit]
		}
		entries := make([]Entry, len(keys))
		for i, k := range keys {
			entries[i] = Entry{Key: decodeKey([]byte(k)), Value: bytes.Clone(m.data[k])}
		}
		m.mu.RUnlock()

		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
