package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Model declares the schema facts the admin needs about one model.
type Model struct {
	Name          string
	PrimaryKey    []string
	Relationships []Relationship
}

// Registry is an in-memory Metadata implementation. It is populated once at
// start-up and safe for concurrent reads afterwards.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
}

// Ensure Registry satisfies Metadata.
var _ Metadata = (*Registry)(nil)

// NewRegistry creates an empty registry, optionally seeded with models.
func NewRegistry(models ...Model) (*Registry, error) {
	r := &Registry{models: make(map[string]Model)}
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRegistry panics when registration fails. Useful for fixtures.
func MustNewRegistry(models ...Model) *Registry {
	r, err := NewRegistry(models...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds a model. Duplicate names, empty primary keys and unnamed
// relationships are rejected.
func (r *Registry) Register(m Model) error {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return fmt.Errorf("schema: model name is required")
	}
	if len(m.PrimaryKey) == 0 {
		return fmt.Errorf("schema: model %q has no primary key", name)
	}

	stored := Model{
		Name:       name,
		PrimaryKey: append([]string(nil), m.PrimaryKey...),
	}
	seen := make(map[string]struct{}, len(m.Relationships))
	for _, rel := range m.Relationships {
		rel.Name = strings.TrimSpace(rel.Name)
		rel.Target = strings.TrimSpace(rel.Target)
		if rel.Name == "" || rel.Target == "" {
			return fmt.Errorf("schema: model %q declares a relationship without name or target", name)
		}
		if _, dup := seen[rel.Name]; dup {
			return fmt.Errorf("schema: model %q declares relationship %q twice", name, rel.Name)
		}
		seen[rel.Name] = struct{}{}
		if rel.Kind == "" {
			rel.Kind = RelationshipHasMany
		}
		stored.Relationships = append(stored.Relationships, rel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[name]; exists {
		return fmt.Errorf("schema: model %q already registered", name)
	}
	r.models[name] = stored
	return nil
}

// PrimaryKeys implements Metadata.
func (r *Registry) PrimaryKeys(model string) ([]string, error) {
	m, err := r.lookup(model)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), m.PrimaryKey...), nil
}

// Relationships implements Metadata.
func (r *Registry) Relationships(model string) ([]Relationship, error) {
	m, err := r.lookup(model)
	if err != nil {
		return nil, err
	}
	return append([]Relationship(nil), m.Relationships...), nil
}

// Models returns the registered model names sorted alphabetically.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a model is registered.
func (r *Registry) Has(model string) bool {
	_, err := r.lookup(model)
	return err == nil
}

func (r *Registry) lookup(model string) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[model]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return m, nil
}
