// Package openapi derives admin models from the components.schemas section of
// an OpenAPI 3 document: primary keys, relationships and form fields.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/schema"
)

// ModelSpec is everything the catalog learned about one schema.
type ModelSpec struct {
	Name          string
	Title         string
	PrimaryKey    []string
	Fields        []form.Field
	Relationships []schema.Relationship
}

// Catalog is a schema.Metadata backed by an OpenAPI document.
type Catalog struct {
	source   string
	models   map[string]ModelSpec
	names    []string
	registry *schema.Registry
}

var _ schema.Metadata = (*Catalog)(nil)

// Load reads src through loader and parses it.
func Load(ctx context.Context, loader *Loader, src Source) (*Catalog, error) {
	if loader == nil {
		loader = NewLoader()
	}
	raw, err := loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, raw, src.String())
}

// Parse builds a catalog from a JSON or YAML document. name is only used in
// error messages.
func Parse(ctx context.Context, raw []byte, name string) (*Catalog, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document is empty")
	}
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", name, err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, fmt.Errorf("openapi: %s declares no components.schemas", name)
	}

	c := &Catalog{source: name, models: make(map[string]ModelSpec)}
	for schemaName, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil || !isObject(ref.Value) {
			continue
		}
		c.models[schemaName] = buildModel(schemaName, ref.Value)
		c.names = append(c.names, schemaName)
	}
	sort.Strings(c.names)
	c.linkForeignKeys()

	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, n := range c.names {
		spec := c.models[n]
		if err := registry.Register(schema.Model{Name: spec.Name, PrimaryKey: spec.PrimaryKey, Relationships: spec.Relationships}); err != nil {
			return nil, fmt.Errorf("openapi: %s: %w", name, err)
		}
	}
	c.registry = registry
	return c, nil
}

// Models lists the object schemas in alphabetical order.
func (c *Catalog) Models() []string { return append([]string(nil), c.names...) }

// Model returns what the catalog knows about name.
func (c *Catalog) Model(name string) (ModelSpec, bool) {
	spec, ok := c.models[name]
	if !ok {
		return ModelSpec{}, false
	}
	spec.PrimaryKey = append([]string(nil), spec.PrimaryKey...)
	spec.Fields = append([]form.Field(nil), spec.Fields...)
	spec.Relationships = append([]schema.Relationship(nil), spec.Relationships...)
	return spec, true
}

// Fields returns the editable fields of model.
func (c *Catalog) Fields(model string) ([]form.Field, error) {
	spec, ok := c.Model(model)
	if !ok {
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownModel, model)
	}
	return spec.Fields, nil
}

// PrimaryKeys implements schema.Metadata.
func (c *Catalog) PrimaryKeys(model string) ([]string, error) {
	return c.registry.PrimaryKeys(model)
}

// Relationships implements schema.Metadata.
func (c *Catalog) Relationships(model string) ([]schema.Relationship, error) {
	return c.registry.Relationships(model)
}

// Registry exposes the derived metadata registry.
func (c *Catalog) Registry() *schema.Registry { return c.registry }

func isObject(s *openapi3.Schema) bool {
	if s.Type == nil || len(s.Type.Slice()) == 0 {
		return len(s.Properties) > 0
	}
	return s.Type.Is(openapi3.TypeObject)
}

func buildModel(name string, s *openapi3.Schema) ModelSpec {
	spec := ModelSpec{Name: name, Title: s.Title}

	spec.PrimaryKey = stringList(s.Extensions[primaryKeyExtensionKey])
	if len(spec.PrimaryKey) == 0 {
		spec.PrimaryKey = []string{"id"}
	}

	required := make(map[string]struct{}, len(s.Required))
	for _, r := range s.Required {
		required[r] = struct{}{}
	}

	for _, propName := range propertyOrder(s) {
		prop := s.Properties[propName]
		if prop == nil {
			continue
		}
		if rel, ok := relationshipFor(name, propName, prop); ok {
			spec.Relationships = append(spec.Relationships, rel)
			continue
		}
		if prop.Value == nil || contains(spec.PrimaryKey, propName) || prop.Value.ReadOnly {
			continue
		}
		_, isRequired := required[propName]
		spec.Fields = append(spec.Fields, fieldFor(propName, prop.Value, isRequired))
	}
	return spec
}

// propertyOrder honours x-field-order and appends the remaining properties
// alphabetically.
func propertyOrder(s *openapi3.Schema) []string {
	seen := make(map[string]struct{}, len(s.Properties))
	var out []string
	for _, name := range stringList(s.Extensions[fieldOrderExtensionKey]) {
		if _, ok := s.Properties[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	var rest []string
	for name := range s.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func relationshipFor(owner, propName string, prop *openapi3.SchemaRef) (schema.Relationship, bool) {
	var ext map[string]string
	if prop.Value != nil {
		ext = normaliseRelationship(prop.Value.Extensions[relationshipExtensionKey])
	}

	rel := schema.Relationship{Name: propName}
	switch {
	case ext != nil:
		kind, ok := schema.NormalizeKind(ext[relTypeAttr])
		if !ok {
			kind = schema.RelationshipHasMany
		}
		rel.Kind = kind
		rel.Target = ext[relTargetAttr]
		rel.ForeignKey = ext[relForeignKeyAttr]
		rel.Inverse = ext[relInverseAttr]
		if rel.Target == "" && prop.Value != nil && prop.Value.Items != nil {
			rel.Target = refName(prop.Value.Items.Ref)
		}
		if rel.Target == "" {
			rel.Target = refName(prop.Ref)
		}
		if n := ext[relNameAttr]; n != "" {
			rel.Name = n
		}
		// A belongsTo declared on a scalar foreign key column names the
		// relationship after the column without its _id suffix.
		if rel.Kind == schema.RelationshipBelongsTo && rel.ForeignKey == "" && prop.Ref == "" && prop.Value != nil && !prop.Value.Type.Is(openapi3.TypeObject) {
			rel.ForeignKey = propName
			if ext[relNameAttr] == "" {
				rel.Name = strings.TrimSuffix(propName, "_id")
			}
		}
	case prop.Value != nil && prop.Value.Type.Is(openapi3.TypeArray) && prop.Value.Items != nil && prop.Value.Items.Ref != "":
		rel.Kind = schema.RelationshipHasMany
		rel.Target = refName(prop.Value.Items.Ref)
	case prop.Ref != "":
		rel.Kind = schema.RelationshipBelongsTo
		rel.Target = refName(prop.Ref)
		rel.ForeignKey = propName + "_id"
	default:
		return schema.Relationship{}, false
	}
	if rel.Target == "" {
		return schema.Relationship{}, false
	}
	return rel, true
}

// linkForeignKeys fills hasMany foreign keys from the matching belongsTo on
// the target, falling back to "{owner}_id".
func (c *Catalog) linkForeignKeys() {
	for _, name := range c.names {
		spec := c.models[name]
		for i, rel := range spec.Relationships {
			if rel.Kind != schema.RelationshipHasMany || rel.ForeignKey != "" {
				continue
			}
			fk := defaultForeignKey(name)
			if target, ok := c.models[rel.Target]; ok {
				for _, back := range target.Relationships {
					if back.Kind == schema.RelationshipBelongsTo && back.Target == name && back.ForeignKey != "" {
						fk = back.ForeignKey
						if spec.Relationships[i].Inverse == "" {
							spec.Relationships[i].Inverse = back.Name
						}
						break
					}
				}
			}
			spec.Relationships[i].ForeignKey = fk
		}
		c.models[name] = spec
	}
}

func fieldFor(name string, s *openapi3.Schema, required bool) form.Field {
	field := form.Field{
		Name:        name,
		Label:       s.Title,
		Kind:        fieldKind(s),
		Default:     s.Default,
		Description: s.Description,
	}

	var rules []string
	if required {
		rules = append(rules, "required")
	}
	switch field.Kind {
	case form.KindString, form.KindText:
		if s.MinLength > 0 {
			rules = append(rules, "min="+strconv.FormatUint(s.MinLength, 10))
		}
		if s.MaxLength != nil {
			rules = append(rules, "max="+strconv.FormatUint(*s.MaxLength, 10))
		}
		switch s.Format {
		case "email":
			rules = append(rules, "email")
		case "uri", "url":
			rules = append(rules, "url")
		}
		if choices := enumChoices(s.Enum); choices != "" {
			rules = append(rules, "oneof="+choices)
		}
	case form.KindInteger, form.KindNumber:
		if s.Min != nil {
			rules = append(rules, "min="+strconv.FormatFloat(*s.Min, 'f', -1, 64))
		}
		if s.Max != nil {
			rules = append(rules, "max="+strconv.FormatFloat(*s.Max, 'f', -1, 64))
		}
	}
	field.Rules = strings.Join(rules, ",")
	return field
}

func fieldKind(s *openapi3.Schema) form.Kind {
	switch {
	case s.Type.Is(openapi3.TypeBoolean):
		return form.KindBoolean
	case s.Type.Is(openapi3.TypeInteger):
		return form.KindInteger
	case s.Type.Is(openapi3.TypeNumber):
		return form.KindNumber
	case s.Format == "date-time":
		return form.KindDateTime
	}
	if widget, _ := s.Extensions[widgetExtensionKey].(string); widget == "textarea" {
		return form.KindText
	}
	return form.KindString
}

// enumChoices renders a oneof parameter. Values containing spaces cannot be
// expressed and disable the rule.
func enumChoices(values []any) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok || s == "" || strings.ContainsAny(s, " ,") {
			return ""
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
