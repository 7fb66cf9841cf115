package schema

import (
	"errors"
	"strings"
)

// ErrUnknownModel is returned when metadata is requested for a model that was
// never registered.
var ErrUnknownModel = errors.New("schema: unknown model")

// RelationshipKind mirrors the relationship vocabulary used by the OpenAPI
// x-relationships extension.
type RelationshipKind string

const (
	RelationshipBelongsTo RelationshipKind = "belongsTo"
	RelationshipHasOne    RelationshipKind = "hasOne"
	RelationshipHasMany   RelationshipKind = "hasMany"
)

// Relationship describes a named attribute on a model that references other
// model instances. For hasMany relationships ForeignKey names the attribute on
// the target model that stores the owner's primary key.
type Relationship struct {
	Name       string           `json:"name" yaml:"name"`
	Target     string           `json:"target" yaml:"target"`
	Kind       RelationshipKind `json:"kind" yaml:"kind"`
	ForeignKey string           `json:"foreignKey,omitempty" yaml:"foreignKey,omitempty"`
	Inverse    string           `json:"inverse,omitempty" yaml:"inverse,omitempty"`
}

// Collection reports whether the relationship holds many target instances.
func (r Relationship) Collection() bool {
	return r.Kind == RelationshipHasMany
}

// Metadata is the schema capability every persistence adapter exposes. The
// form engine depends only on this interface, never on a concrete ORM.
type Metadata interface {
	// PrimaryKeys returns the primary key attribute names of model in their
	// canonical order.
	PrimaryKeys(model string) ([]string, error)
	// Relationships returns every relationship declared on model, in
	// declaration order.
	Relationships(model string) ([]Relationship, error)
}

// NormalizeKind maps loosely written relationship kinds ("has_many",
// "HasMany", "hasmany") onto the canonical constants.
func NormalizeKind(raw string) (RelationshipKind, bool) {
	var builder strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		builder.WriteRune(r)
	}
	switch builder.String() {
	case "belongsto":
		return RelationshipBelongsTo, true
	case "hasone":
		return RelationshipHasOne, true
	case "hasmany":
		return RelationshipHasMany, true
	default:
		return "", false
	}
}
