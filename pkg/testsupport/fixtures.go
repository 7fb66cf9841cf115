// Package testsupport holds the Poll/Choice fixtures shared by package tests.
package testsupport

import (
	"testing"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/schema"
	"github.com/goliatone/go-crudform/pkg/store"
	"github.com/goliatone/go-crudform/pkg/store/memory"
)

// Schema returns a registry with Poll hasMany Choice through poll_id.
func Schema() *schema.Registry {
	return schema.MustNewRegistry(PollModel(), ChoiceModel())
}

// PollModel is the parent model.
func PollModel() schema.Model {
	return schema.Model{
		Name:       "Poll",
		PrimaryKey: []string{"id"},
		Relationships: []schema.Relationship{
			{Name: "choices", Target: "Choice", Kind: schema.RelationshipHasMany, ForeignKey: "poll_id", Inverse: "poll"},
		},
	}
}

// ChoiceModel is the inline child model.
func ChoiceModel() schema.Model {
	return schema.Model{
		Name:       "Choice",
		PrimaryKey: []string{"id"},
		Relationships: []schema.Relationship{
			{Name: "poll", Target: "Poll", Kind: schema.RelationshipBelongsTo, ForeignKey: "poll_id", Inverse: "choices"},
		},
	}
}

// ChoiceType is the inline form: a required text and an optional vote count.
func ChoiceType() *form.Type {
	return form.MustNewType("Choice",
		form.WithFields(
			form.Field{Name: "text", Kind: form.KindString, Rules: "required,max=200"},
			form.Field{Name: "votes", Kind: form.KindInteger, Rules: "min=0"},
		),
	)
}

// PollType is the parent form with a Choice inline showing extra blank rows.
func PollType(extra int) *form.Type {
	return form.MustNewType("Poll",
		form.WithFields(
			form.Field{Name: "question", Kind: form.KindString, Rules: "required"},
			form.Field{Name: "published", Kind: form.KindBoolean},
		),
		form.WithInlines(form.NewInline(ChoiceType(), form.WithExtra(extra))),
	)
}

// Seed describes the rows loaded into a memory backend.
type Seed struct {
	Polls   []map[string]any
	Choices []map[string]any
}

// DefaultSeed is one poll with two choices.
func DefaultSeed() Seed {
	return Seed{
		Polls: []map[string]any{
			{"id": int64(1), "question": "Favourite colour?", "published": true},
		},
		Choices: []map[string]any{
			{"id": int64(1), "poll_id": int64(1), "text": "Red", "votes": int64(3)},
			{"id": int64(2), "poll_id": int64(1), "text": "Blue", "votes": int64(5)},
		},
	}
}

// Provider returns a memory backed store loaded with seed.
func Provider(t testing.TB, seed Seed) (*store.DB, *memory.Backend) {
	t.Helper()
	db, backend := memory.Open(Schema())
	load := func(model string, rows []map[string]any) {
		for _, row := range rows {
			id, ok := store.ToInt64(row["id"])
			if !ok {
				t.Fatalf("testsupport: %s row without id: %v", model, row)
			}
			backend.Insert(model, store.PK{id}, row)
		}
	}
	load("Poll", seed.Polls)
	load("Choice", seed.Choices)
	return db, backend
}
