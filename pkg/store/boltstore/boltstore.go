// Package boltstore persists admin models in a bbolt file. Each model gets
// its own bucket; rows are JSON documents keyed by their primary key string.
package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/goliatone/go-crudform/pkg/schema"
	"github.com/goliatone/go-crudform/pkg/store"
)

const fileMode os.FileMode = 0o600

// Backend is a store.Backend over a bbolt database.
type Backend struct {
	db *bolt.DB
}

var _ store.Backend = (*Backend)(nil)

// New opens (or creates) the database file at path.
func New(path string) (*Backend, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	return &Backend{db: db}, nil
}

// Open opens path and wraps it in a unit-of-work store.
func Open(path string, meta schema.Metadata) (*store.DB, *Backend, error) {
	backend, err := New(path)
	if err != nil {
		return nil, nil, err
	}
	return store.Open(backend, meta), backend, nil
}

// Close releases the database file.
func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Begin implements store.Backend. bbolt allows a single writer, so concurrent
// requests serialise on Begin.
func (b *Backend) Begin(ctx context.Context) (store.BackendTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	btx, err := b.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("boltstore: begin: %w", err)
	}
	return &tx{btx: btx}, nil
}

type tx struct {
	btx *bolt.Tx
}

func (t *tx) Load(_ context.Context, model string, key store.PK) (map[string]any, bool, error) {
	bucket := t.btx.Bucket([]byte(model))
	if bucket == nil {
		return nil, false, nil
	}
	raw := bucket.Get([]byte(key.String()))
	if raw == nil {
		return nil, false, nil
	}
	attrs, err := decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("boltstore: decode %s %s: %w", model, key, err)
	}
	return attrs, true, nil
}

func (t *tx) Scan(_ context.Context, model string, fn func(map[string]any) error) error {
	bucket := t.btx.Bucket([]byte(model))
	if bucket == nil {
		return nil
	}
	return bucket.ForEach(func(k, v []byte) error {
		attrs, err := decode(v)
		if err != nil {
			return fmt.Errorf("boltstore: decode %s %s: %w", model, k, err)
		}
		return fn(attrs)
	})
}

func (t *tx) NextID(_ context.Context, model string) (int64, error) {
	bucket, err := t.btx.CreateBucketIfNotExists([]byte(model))
	if err != nil {
		return 0, err
	}
	for {
		seq, err := bucket.NextSequence()
		if err != nil {
			return 0, err
		}
		// Rows seeded with explicit ids may already occupy the sequence value.
		if bucket.Get([]byte(store.PK{int64(seq)}.String())) == nil {
			return int64(seq), nil
		}
	}
}

func (t *tx) Put(_ context.Context, model string, key store.PK, attrs map[string]any) error {
	bucket, err := t.btx.CreateBucketIfNotExists([]byte(model))
	if err != nil {
		return err
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("boltstore: encode %s %s: %w", model, key, err)
	}
	return bucket.Put([]byte(key.String()), raw)
}

func (t *tx) Delete(_ context.Context, model string, key store.PK) error {
	bucket := t.btx.Bucket([]byte(model))
	if bucket == nil {
		return nil
	}
	return bucket.Delete([]byte(key.String()))
}

func (t *tx) Commit() error {
	return t.btx.Commit()
}

func (t *tx) Rollback() error {
	err := t.btx.Rollback()
	if errors.Is(err, bolt.ErrTxClosed) {
		return nil
	}
	return err
}

func decode(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}
