// Package memory provides an in-process store backend. Transactions work on a
// copy-on-write overlay and publish their writes atomically on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-crudform/pkg/schema"
	"github.com/goliatone/go-crudform/pkg/store"
)

// Backend keeps every model in a map keyed by the primary key string.
type Backend struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string]any
	seq    map[string]int64
}

var _ store.Backend = (*Backend)(nil)

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		tables: make(map[string]map[string]map[string]any),
		seq:    make(map[string]int64),
	}
}

// Open is a shortcut for store.Open(memory.New(), meta).
func Open(meta schema.Metadata) (*store.DB, *Backend) {
	backend := New()
	return store.Open(backend, meta), backend
}

// Insert seeds a row outside any transaction. The id sequence is advanced so
// later inserts do not collide.
func (b *Backend) Insert(model string, key store.PK, attrs map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.put(model, key, attrs)
	if len(key) == 1 && key[0] > b.seq[model] {
		b.seq[model] = key[0]
	}
}

// Len reports how many rows model holds.
func (b *Backend) Len(model string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tables[model])
}

// Row returns a copy of a committed row.
func (b *Backend) Row(model string, key store.PK) (map[string]any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	row, ok := b.tables[model][key.String()]
	if !ok {
		return nil, false
	}
	return copyAttrs(row), true
}

// Begin implements store.Backend.
func (b *Backend) Begin(context.Context) (store.BackendTx, error) {
	return &tx{
		backend: b,
		writes:  make(map[string]map[string]map[string]any),
		deletes: make(map[string]map[string]struct{}),
	}, nil
}

func (b *Backend) put(model string, key store.PK, attrs map[string]any) {
	table, ok := b.tables[model]
	if !ok {
		table = make(map[string]map[string]any)
		b.tables[model] = table
	}
	table[key.String()] = copyAttrs(attrs)
}

type tx struct {
	backend *Backend
	writes  map[string]map[string]map[string]any
	deletes map[string]map[string]struct{}
	done    bool
}

func (t *tx) Load(_ context.Context, model string, key store.PK) (map[string]any, bool, error) {
	if t.done {
		return nil, false, store.ErrTxClosed
	}
	k := key.String()
	if _, gone := t.deletes[model][k]; gone {
		return nil, false, nil
	}
	if row, ok := t.writes[model][k]; ok {
		return copyAttrs(row), true, nil
	}
	row, ok := t.backend.Row(model, key)
	return row, ok, nil
}

func (t *tx) Scan(_ context.Context, model string, fn func(map[string]any) error) error {
	if t.done {
		return store.ErrTxClosed
	}
	rows := make(map[string]map[string]any)
	t.backend.mu.RLock()
	for k, row := range t.backend.tables[model] {
		rows[k] = copyAttrs(row)
	}
	t.backend.mu.RUnlock()
	for k, row := range t.writes[model] {
		rows[k] = copyAttrs(row)
	}
	for k := range t.deletes[model] {
		delete(rows, k)
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(rows[k]); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) NextID(_ context.Context, model string) (int64, error) {
	if t.done {
		return 0, store.ErrTxClosed
	}
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	t.backend.seq[model]++
	return t.backend.seq[model], nil
}

func (t *tx) Put(_ context.Context, model string, key store.PK, attrs map[string]any) error {
	if t.done {
		return store.ErrTxClosed
	}
	if t.writes[model] == nil {
		t.writes[model] = make(map[string]map[string]any)
	}
	k := key.String()
	t.writes[model][k] = copyAttrs(attrs)
	delete(t.deletes[model], k)
	return nil
}

func (t *tx) Delete(_ context.Context, model string, key store.PK) error {
	if t.done {
		return store.ErrTxClosed
	}
	k := key.String()
	delete(t.writes[model], k)
	if t.deletes[model] == nil {
		t.deletes[model] = make(map[string]struct{})
	}
	t.deletes[model][k] = struct{}{}
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return store.ErrTxClosed
	}
	t.done = true

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	for model, keys := range t.deletes {
		for k := range keys {
			delete(t.backend.tables[model], k)
		}
	}
	for model, rows := range t.writes {
		if t.backend.tables[model] == nil {
			t.backend.tables[model] = make(map[string]map[string]any)
		}
		for k, row := range rows {
			t.backend.tables[model][k] = row
		}
	}
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.writes = nil
	t.deletes = nil
	return nil
}

func copyAttrs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// String helps when debugging table contents in tests.
func (b *Backend) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fmt.Sprintf("memory.Backend(%d tables)", len(b.tables))
}
