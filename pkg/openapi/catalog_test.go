package openapi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/schema"
)

const pollDocument = `
openapi: 3.0.3
info:
  title: Polls
  version: 1.0.0
paths: {}
components:
  schemas:
    Poll:
      type: object
      title: Poll
      x-field-order: [question, published]
      required: [question]
      properties:
        id:
          type: integer
          readOnly: true
        question:
          type: string
          maxLength: 200
        published:
          type: boolean
        choices:
          type: array
          items:
            $ref: '#/components/schemas/Choice'
    Choice:
      type: object
      required: [text]
      properties:
        id:
          type: integer
        poll_id:
          type: integer
          x-relationships:
            type: belongsTo
            target: Poll
        text:
          type: string
        votes:
          type: integer
          minimum: 0
        kind:
          type: string
          enum: [single, multi]
    Membership:
      type: object
      x-primary-key: [user_id, group_id]
      properties:
        user_id:
          type: integer
        group_id:
          type: integer
        since:
          type: string
          format: date-time
    Status:
      type: string
      enum: [open, closed]
`

func TestParseCatalog(t *testing.T) {
	c, err := Parse(context.Background(), []byte(pollDocument), "inline")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if diff := cmp.Diff([]string{"Choice", "Membership", "Poll"}, c.Models()); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}

	rels, err := c.Relationships("Poll")
	if err != nil {
		t.Fatalf("relationships: %v", err)
	}
	wantRels := []schema.Relationship{
		{Name: "choices", Target: "Choice", Kind: schema.RelationshipHasMany, ForeignKey: "poll_id", Inverse: "poll"},
	}
	if diff := cmp.Diff(wantRels, rels); diff != "" {
		t.Fatalf("relationships mismatch (-want +got):\n%s", diff)
	}

	fields, err := c.Fields("Poll")
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	wantFields := []form.Field{
		{Name: "question", Kind: form.KindString, Rules: "required,max=200"},
		{Name: "published", Kind: form.KindBoolean},
	}
	if diff := cmp.Diff(wantFields, fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	choiceFields, _ := c.Fields("Choice")
	var names []string
	for _, f := range choiceFields {
		names = append(names, f.Name+":"+f.Rules)
	}
	wantNames := []string{"kind:oneof=single multi", "text:required", "votes:min=0"}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Fatalf("choice fields mismatch (-want +got):\n%s", diff)
	}

	pks, _ := c.PrimaryKeys("Membership")
	if diff := cmp.Diff([]string{"user_id", "group_id"}, pks); diff != "" {
		t.Fatalf("primary keys mismatch (-want +got):\n%s", diff)
	}
	since, _ := c.Fields("Membership")
	if len(since) != 1 || since[0].Kind != form.KindDateTime {
		t.Fatalf("membership fields = %+v", since)
	}

	if _, err := c.PrimaryKeys("Status"); !errors.Is(err, schema.ErrUnknownModel) {
		t.Fatalf("non-object schemas must not become models, got %v", err)
	}
}

func TestCatalogDrivesRelationshipResolution(t *testing.T) {
	c, err := Parse(context.Background(), []byte(pollDocument), "inline")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	choiceFields, _ := c.Fields("Choice")
	choice := form.MustNewType("Choice", form.WithFields(choiceFields...))
	name, err := form.ResolveRelationship(c, "Poll", form.NewInline(choice))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if name != "choices" {
		t.Fatalf("relationship = %q", name)
	}
}

func TestLoaderSources(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	if err := os.WriteFile(path, []byte(pollDocument), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, err := ParseSource(path)
	if err != nil {
		t.Fatalf("parse source: %v", err)
	}
	if src.Kind() != SourceKindFile {
		t.Fatalf("kind = %s", src.Kind())
	}
	if _, err := Load(ctx, NewLoader(), src); err != nil {
		t.Fatalf("load file: %v", err)
	}

	files := fstest.MapFS{"specs/api.yaml": {Data: []byte(pollDocument)}}
	if _, err := Load(ctx, NewLoader(WithFileSystem(files)), SourceFromFS("specs/api.yaml")); err != nil {
		t.Fatalf("load fs: %v", err)
	}

	remote, err := ParseSource("https://example.com/api.yaml")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if _, err := NewLoader().Load(ctx, remote); err == nil {
		t.Fatalf("expected http sources to be disabled by default")
	}
}

func TestParseRejectsDocumentsWithoutSchemas(t *testing.T) {
	doc := "openapi: 3.0.3\ninfo: {title: x, version: '1'}\npaths: {}\n"
	if _, err := Parse(context.Background(), []byte(doc), "empty"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNormaliseRelationship(t *testing.T) {
	got := normaliseRelationship(map[string]any{
		"Kind":        "has_many",
		"foreign_key": "owner_id",
		"target":      "Item",
		"ignored":     "x",
		"inverse":     42,
	})
	want := map[string]string{relTypeAttr: "has_many", relForeignKeyAttr: "owner_id", relTargetAttr: "Item"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
