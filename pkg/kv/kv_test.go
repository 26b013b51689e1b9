package kv_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/haivivi/livestudio/pkg/kv"
)

func stores(t *testing.T) map[string]kv.Store {
	t.Helper()
	b, err := kv.OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	m := kv.NewMemory()
	t.Cleanup(func() {
		b.Close()
		m.Close()
	})
	return map[string]kv.Store{"memory": m, "badger": b}
}

func listKeys(t *testing.T, s kv.Store, prefix kv.Key, opts kv.ListOptions) []string {
	t.Helper()
	var out []string
	for e, err := range s.List(context.Background(), prefix, opts) {
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		out = append(out, e.Key.String())
	}
	return out
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := kv.Key{"runs", "r1"}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Get missing = %v, want ErrNotFound", err)
			}
			if err := s.Set(ctx, key, []byte("one")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, key, []byte("two")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil || string(got) != "two" {
				t.Fatalf("Get = %q, %v; want two", got, err)
			}
			got[0] = 'X'
			if again, _ := s.Get(ctx, key); string(again) != "two" {
				t.Errorf("stored value mutated through Get result: %q", again)
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Get after delete = %v", err)
			}
		})
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []kv.Key{
				{"turns", "a", "000002"},
				{"turns", "a", "000000"},
				{"turns", "a", "000001"},
				{"turns", "ab", "000000"},
				{"runs", "a"},
			} {
				if err := s.Set(ctx, k, []byte(k.String())); err != nil {
					t.Fatalf("Set %s: %v", k, err)
				}
			}

			tests := []struct {
				name   string
				prefix kv.Key
				opts   kv.ListOptions
				want   []string
			}{
				{"ascending", kv.Key{"turns", "a"}, kv.ListOptions{}, []string{
					"turns/a/000000", "turns/a/000001", "turns/a/000002",
				}},
				{"reverse", kv.Key{"turns", "a"}, kv.ListOptions{Reverse: true}, []string{
					"turns/a/000002", "turns/a/000001", "turns/a/000000",
				}},
				{"limit", kv.Key{"turns", "a"}, kv.ListOptions{Reverse: true, Limit: 1}, []string{
					"turns/a/000002",
				}},
				{"segment boundary", kv.Key{"turns", "ab"}, kv.ListOptions{}, []string{
					"turns/ab/000000",
				}},
				{"no match", kv.Key{"missing"}, kv.ListOptions{}, nil},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got := listKeys(t, s, tt.prefix, tt.opts)
					if !slices.Equal(got, tt.want) {
						t.Errorf("List = %v, want %v", got, tt.want)
					}
				})
			}

			if all := listKeys(t, s, nil, kv.ListOptions{}); len(all) != 5 {
				t.Errorf("List all = %v", all)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, kv.Key{"old"}, []byte("x")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			err := s.Write(ctx, []kv.Op{
				{Key: kv.Key{"new", "1"}, Value: []byte("1")},
				{Key: kv.Key{"new", "2"}, Value: []byte("2")},
				{Key: kv.Key{"old"}},
			})
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			if got := listKeys(t, s, nil, kv.ListOptions{}); !slices.Equal(got, []string{"new/1", "new/2"}) {
				t.Errorf("keys = %v", got)
			}

			err = s.Write(ctx, []kv.Op{
				{Key: kv.Key{"new", "3"}, Value: []byte("3")},
				{Key: kv.Key{"bad/key"}, Value: []byte("x")},
			})
			if !errors.Is(err, kv.ErrInvalidKey) {
				t.Fatalf("Write invalid = %v, want ErrInvalidKey", err)
			}
			if _, err := s.Get(ctx, kv.Key{"new", "3"}); !errors.Is(err, kv.ErrNotFound) {
				t.Errorf("partial batch applied: %v", err)
			}
		})
	}
}

func TestInvalidKeys(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []kv.Key{nil, {""}, {"a", ""}, {"a/b"}} {
				if err := s.Set(ctx, k, []byte("x")); !errors.Is(err, kv.ErrInvalidKey) {
					t.Errorf("Set(%q) = %v, want ErrInvalidKey", k, err)
				}
			}
			for _, err := range s.List(ctx, kv.Key{"a/b"}, kv.ListOptions{}) {
				if !errors.Is(err, kv.ErrInvalidKey) {
					t.Errorf("List invalid prefix = %v", err)
				}
			}
		})
	}
}

func TestBadgerOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := kv.OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	if err := s.Set(ctx, kv.Key{"k"}, []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = kv.OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, kv.Key{"k"})
	if err != nil || string(got) != "v" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}
