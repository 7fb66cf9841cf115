package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/goliatone/go-crudform/pkg/schema"
)

// DB pairs a Backend with schema metadata and hands out unit-of-work
// sessions. It satisfies Provider.
type DB struct {
	backend Backend
	meta    schema.Metadata
}

var _ Provider = (*DB)(nil)

// Open wraps backend. Metadata supplies primary keys and relationships.
func Open(backend Backend, meta schema.Metadata) *DB {
	return &DB{backend: backend, meta: meta}
}

// Metadata returns the schema metadata the DB was opened with.
func (db *DB) Metadata() schema.Metadata { return db.meta }

// Begin implements Provider.
func (db *DB) Begin(ctx context.Context) (Tx, error) {
	if db == nil || db.backend == nil {
		return nil, fmt.Errorf("store: backend is not configured")
	}
	btx, err := db.backend.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	return newSession(btx, db.meta), nil
}

type objState int

const (
	stateClean objState = iota
	stateNew
	stateDeleted
)

type tracked struct {
	obj      Object
	key      PK
	state    objState
	snapshot map[string]any
}

type identity struct {
	model string
	key   string
}

// session is the unit of work behind Tx. Objects are tracked in an identity
// map so repeated loads return the same instance.
type session struct {
	btx     BackendTx
	meta    schema.Metadata
	objects map[identity]*tracked
	order   []identity
	related map[identity]map[string][]Object
	closed  bool
}

func newSession(btx BackendTx, meta schema.Metadata) *session {
	return &session{
		btx:     btx,
		meta:    meta,
		objects: make(map[identity]*tracked),
		related: make(map[identity]map[string][]Object),
	}
}

func (s *session) Get(ctx context.Context, model string, pk PK) (Object, error) {
	if s.closed {
		return nil, ErrTxClosed
	}
	id := identity{model: model, key: pk.String()}
	if t, ok := s.objects[id]; ok {
		if t.state == stateDeleted {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, model, pk)
		}
		return t.obj, nil
	}
	attrs, ok, err := s.btx.Load(ctx, model, pk)
	if err != nil {
		return nil, fmt.Errorf("store: load %s %s: %w", model, pk, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, model, pk)
	}
	return s.track(model, pk, attrs), nil
}

func (s *session) Add(ctx context.Context, obj Object) error {
	if s.closed {
		return ErrTxClosed
	}
	if obj == nil {
		return fmt.Errorf("store: cannot add nil object")
	}
	if s.lookup(obj) != nil {
		return nil
	}
	pkAttrs, err := s.meta.PrimaryKeys(obj.ModelName())
	if err != nil {
		return err
	}
	pk, ok := PKOf(obj, pkAttrs)
	if !ok {
		if len(pkAttrs) != 1 {
			return fmt.Errorf("%w: %s needs every key attribute set", ErrMissingKey, obj.ModelName())
		}
		next, err := s.btx.NextID(ctx, obj.ModelName())
		if err != nil {
			return fmt.Errorf("store: allocate id for %s: %w", obj.ModelName(), err)
		}
		obj.SetAttr(pkAttrs[0], next)
		pk = PK{next}
	}
	id := identity{model: obj.ModelName(), key: pk.String()}
	if existing, ok := s.objects[id]; ok && existing.state != stateDeleted {
		return fmt.Errorf("store: %s %s is already present in the session", obj.ModelName(), pk)
	}
	s.objects[id] = &tracked{obj: obj, key: pk, state: stateNew}
	s.order = append(s.order, id)
	return nil
}

func (s *session) Delete(_ context.Context, obj Object) error {
	if s.closed {
		return ErrTxClosed
	}
	t := s.lookup(obj)
	if t == nil {
		return fmt.Errorf("store: cannot delete untracked %s", obj.ModelName())
	}
	if t.state == stateNew {
		delete(s.objects, identity{model: obj.ModelName(), key: t.key.String()})
		return nil
	}
	t.state = stateDeleted
	return nil
}

func (s *session) Expire(_ context.Context, obj Object) error {
	if s.closed {
		return ErrTxClosed
	}
	t := s.lookup(obj)
	if t == nil {
		return nil
	}
	delete(s.related, identity{model: obj.ModelName(), key: t.key.String()})
	return nil
}

func (s *session) Flush(ctx context.Context) error {
	if s.closed {
		return ErrTxClosed
	}
	for _, id := range s.order {
		t, ok := s.objects[id]
		if !ok {
			continue
		}
		switch t.state {
		case stateDeleted:
			if err := s.btx.Delete(ctx, id.model, t.key); err != nil {
				return fmt.Errorf("store: delete %s %s: %w", id.model, t.key, err)
			}
			delete(s.objects, id)
		default:
			attrs := t.obj.Attrs()
			if t.state == stateClean && reflect.DeepEqual(attrs, t.snapshot) {
				continue
			}
			if err := s.btx.Put(ctx, id.model, t.key, attrs); err != nil {
				return fmt.Errorf("store: write %s %s: %w", id.model, t.key, err)
			}
			t.state = stateClean
			t.snapshot = attrs
		}
	}
	s.compact()
	return nil
}

func (s *session) Related(ctx context.Context, parent Object, relationship string) ([]Object, error) {
	if s.closed {
		return nil, ErrTxClosed
	}
	rel, parentKey, err := s.relationship(parent, relationship)
	if err != nil {
		return nil, err
	}
	parentID := identity{model: parent.ModelName(), key: parentKey.String()}
	if cached, ok := s.related[parentID][relationship]; ok {
		return append([]Object(nil), cached...), nil
	}

	targetKeys, err := s.meta.PrimaryKeys(rel.Target)
	if err != nil {
		return nil, err
	}
	owner := parentKey[0]
	collected := make(map[string]Object)

	err = s.btx.Scan(ctx, rel.Target, func(attrs map[string]any) error {
		fk, ok := ToInt64(attrs[rel.ForeignKey])
		if !ok || fk != owner {
			return nil
		}
		pk, ok := PKOf(NewRecord(rel.Target, attrs), targetKeys)
		if !ok {
			return nil
		}
		id := identity{model: rel.Target, key: pk.String()}
		if _, seen := s.objects[id]; seen {
			return nil
		}
		collected[id.key] = s.track(rel.Target, pk, attrs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", rel.Target, err)
	}
	for id, t := range s.objects {
		if id.model != rel.Target || t.state == stateDeleted {
			continue
		}
		fkRaw, _ := t.obj.Attr(rel.ForeignKey)
		if fk, ok := ToInt64(fkRaw); ok && fk == owner {
			collected[id.key] = t.obj
		}
	}

	items := sortByKey(collected, targetKeys)
	if s.related[parentID] == nil {
		s.related[parentID] = make(map[string][]Object)
	}
	s.related[parentID][relationship] = items
	return append([]Object(nil), items...), nil
}

func (s *session) Append(ctx context.Context, parent Object, relationship string, child Object) error {
	if s.closed {
		return ErrTxClosed
	}
	rel, parentKey, err := s.relationship(parent, relationship)
	if err != nil {
		return err
	}
	if child == nil || child.ModelName() != rel.Target {
		return fmt.Errorf("store: relationship %s.%s holds %s instances", parent.ModelName(), relationship, rel.Target)
	}
	child.SetAttr(rel.ForeignKey, parentKey[0])
	if s.lookup(child) == nil {
		if err := s.Add(ctx, child); err != nil {
			return err
		}
	}
	parentID := identity{model: parent.ModelName(), key: parentKey.String()}
	if cached, ok := s.related[parentID][relationship]; ok {
		s.related[parentID][relationship] = append(cached, child)
	}
	return nil
}

func (s *session) All(ctx context.Context, model string) ([]Object, error) {
	if s.closed {
		return nil, ErrTxClosed
	}
	pkAttrs, err := s.meta.PrimaryKeys(model)
	if err != nil {
		return nil, err
	}
	collected := make(map[string]Object)
	err = s.btx.Scan(ctx, model, func(attrs map[string]any) error {
		pk, ok := PKOf(NewRecord(model, attrs), pkAttrs)
		if !ok {
			return nil
		}
		id := identity{model: model, key: pk.String()}
		if _, seen := s.objects[id]; seen {
			return nil
		}
		collected[id.key] = s.track(model, pk, attrs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", model, err)
	}
	for id, t := range s.objects {
		if id.model == model && t.state != stateDeleted {
			collected[id.key] = t.obj
		}
	}
	return sortByKey(collected, pkAttrs), nil
}

func (s *session) Commit(ctx context.Context) error {
	if s.closed {
		return ErrTxClosed
	}
	if err := s.Flush(ctx); err != nil {
		_ = s.Rollback(ctx)
		return err
	}
	s.closed = true
	if err := s.btx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (s *session) Rollback(_ context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.objects = nil
	s.related = nil
	return s.btx.Rollback()
}

func (s *session) relationship(parent Object, name string) (schema.Relationship, PK, error) {
	if parent == nil {
		return schema.Relationship{}, nil, fmt.Errorf("store: parent object is nil")
	}
	rels, err := s.meta.Relationships(parent.ModelName())
	if err != nil {
		return schema.Relationship{}, nil, err
	}
	var rel schema.Relationship
	found := false
	for _, candidate := range rels {
		if candidate.Name == name {
			rel, found = candidate, true
			break
		}
	}
	if !found {
		return schema.Relationship{}, nil, fmt.Errorf("%w: %s.%s", ErrUnknownRelationship, parent.ModelName(), name)
	}
	if !rel.Collection() || rel.ForeignKey == "" {
		return schema.Relationship{}, nil, fmt.Errorf("store: relationship %s.%s must be hasMany with a foreign key", parent.ModelName(), name)
	}
	pkAttrs, err := s.meta.PrimaryKeys(parent.ModelName())
	if err != nil {
		return schema.Relationship{}, nil, err
	}
	if len(pkAttrs) != 1 {
		return schema.Relationship{}, nil, fmt.Errorf("store: relationship %s.%s requires a single-column key", parent.ModelName(), name)
	}
	pk, ok := PKOf(parent, pkAttrs)
	if !ok {
		return schema.Relationship{}, nil, fmt.Errorf("%w: %s", ErrMissingKey, parent.ModelName())
	}
	return rel, pk, nil
}

func (s *session) track(model string, pk PK, attrs map[string]any) Object {
	rec := NewRecord(model, attrs)
	id := identity{model: model, key: pk.String()}
	s.objects[id] = &tracked{obj: rec, key: pk, state: stateClean, snapshot: rec.Attrs()}
	s.order = append(s.order, id)
	return rec
}

func (s *session) lookup(obj Object) *tracked {
	if obj == nil {
		return nil
	}
	for id, t := range s.objects {
		if id.model == obj.ModelName() && t.obj == obj {
			return t
		}
	}
	return nil
}

func (s *session) compact() {
	order := s.order[:0]
	seen := make(map[identity]struct{}, len(s.order))
	for _, id := range s.order {
		if _, ok := s.objects[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	s.order = order
}

func sortByKey(objects map[string]Object, pkAttrs []string) []Object {
	type keyed struct {
		pk  PK
		obj Object
	}
	items := make([]keyed, 0, len(objects))
	for _, obj := range objects {
		pk, _ := PKOf(obj, pkAttrs)
		items = append(items, keyed{pk: pk, obj: obj})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].pk.Less(items[j].pk) })
	out := make([]Object, len(items))
	for i, item := range items {
		out[i] = item.obj
	}
	return out
}
