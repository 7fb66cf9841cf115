package form_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/store"
	"github.com/goliatone/go-crudform/pkg/testsupport"
)

func TestPopulateUpdatesAndAppends(t *testing.T) {
	ctx := context.Background()
	db, backend := testsupport.Provider(t, testsupport.DefaultSeed())
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	poll, err := tx.Get(ctx, "Poll", store.PK{1})
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	data := url.Values{
		"question":       {"Favourite color?"},
		"choice_count":   {"2"},
		"add_choice":     {"1"},
		"choice_0_id":    {"1"},
		"choice_0_text":  {"Crimson"},
		"choice_0_votes": {"4"},
		"choice_1_id":    {"2"},
		"choice_1_text":  {"Blue"},
		"choice_1_votes": {"5"},
		"choice_2_text":  {"Green"},
	}
	f, err := form.New(ctx, testsupport.PollType(0),
		form.WithData(data), form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if !f.Validate() {
		t.Fatalf("unexpected errors: %v", f.Errors())
	}
	if err := f.Populate(ctx, poll); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if backend.Len("Choice") != 2 {
		t.Fatalf("populate must not flush")
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	row, _ := backend.Row("Poll", store.PK{1})
	if row["question"] != "Favourite color?" {
		t.Fatalf("question = %v", row["question"])
	}
	if row["published"] != false {
		t.Fatalf("unchecked box should store false, got %v", row["published"])
	}

	got := map[int64]string{}
	for _, id := range []int64{1, 2, 3} {
		r, ok := backend.Row("Choice", store.PK{id})
		if !ok {
			t.Fatalf("choice %d missing", id)
		}
		fk, _ := store.ToInt64(r["poll_id"])
		if fk != 1 {
			t.Fatalf("choice %d poll_id = %v", id, r["poll_id"])
		}
		got[id] = r["text"].(string)
	}
	want := map[int64]string{1: "Crimson", 2: "Blue", 3: "Green"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("choices mismatch (-want +got):\n%s", diff)
	}
}

func TestPopulateNewParent(t *testing.T) {
	ctx := context.Background()
	db, backend := testsupport.Provider(t, testsupport.Seed{})
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	data := url.Values{
		"question":      {"New?"},
		"published":     {"y"},
		"choice_count":  {"2"},
		"choice_0_text": {"Yes"},
		"choice_1_text": {"No"},
	}
	typ := testsupport.PollType(2)
	f, err := form.New(ctx, typ, form.WithData(data), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if !f.Validate() {
		t.Fatalf("unexpected errors: %v", f.Errors())
	}
	poll := typ.New()
	if err := tx.Add(ctx, poll); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.Populate(ctx, poll); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if backend.Len("Poll") != 1 || backend.Len("Choice") != 2 {
		t.Fatalf("rows: polls=%d choices=%d", backend.Len("Poll"), backend.Len("Choice"))
	}
	row, _ := backend.Row("Poll", store.PK{1})
	if row["published"] != true {
		t.Fatalf("published = %v", row["published"])
	}
}

func TestPopulateStaleKey(t *testing.T) {
	ctx := context.Background()
	db, backend := testsupport.Provider(t, testsupport.Seed{})
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	data := url.Values{
		"question":      {"New?"},
		"choice_count":  {"2"},
		"choice_0_text": {"Fresh"},
		"choice_1_id":   {"99"},
		"choice_1_text": {"Stale"},
	}
	typ := testsupport.PollType(0)
	f, err := form.New(ctx, typ, form.WithData(data), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	poll := typ.New()
	if err := tx.Add(ctx, poll); err != nil {
		t.Fatalf("add: %v", err)
	}
	err = f.Populate(ctx, poll)
	if !errors.Is(err, form.ErrChildNotFound) {
		t.Fatalf("expected ErrChildNotFound, got %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if backend.Len("Poll") != 0 || backend.Len("Choice") != 0 {
		t.Fatalf("nothing may be committed after a failed populate")
	}
}

func TestPopulatePersistedRowWithoutKey(t *testing.T) {
	ctx := context.Background()
	db, _ := testsupport.Provider(t, testsupport.DefaultSeed())
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	poll, err := tx.Get(ctx, "Poll", store.PK{1})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data := url.Values{"question": {"Q"}, "choice_count": {"2"}, "choice_0_text": {"a"}, "choice_1_text": {"b"}}
	f, err := form.New(ctx, testsupport.PollType(0),
		form.WithData(data), form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if err := f.Populate(ctx, poll); !errors.Is(err, form.ErrInconsistentEntry) {
		t.Fatalf("expected ErrInconsistentEntry, got %v", err)
	}
}

func TestFieldCoercion(t *testing.T) {
	typ := form.MustNewType("Event",
		form.WithFields(
			form.Field{Name: "starts", Kind: form.KindDateTime},
			form.Field{Name: "price", Kind: form.KindNumber, Rules: "max=100"},
			form.Field{Name: "title", Rules: "max=5"},
		),
	)
	f, err := form.New(context.Background(), typ, form.WithData(url.Values{
		"starts": {"2024-03-01 10:30:00"},
		"price":  {"120.5"},
		"title":  {"too long"},
	}))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if f.Validate() {
		t.Fatalf("expected invalid form")
	}
	want := map[string][]string{
		"price": {"Number must be at most 100."},
		"title": {"Field cannot be longer than 5 characters."},
	}
	if diff := cmp.Diff(want, f.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	starts, _ := f.Field("starts")
	if got, ok := starts.Value.(time.Time); !ok || got.Hour() != 10 {
		t.Fatalf("starts = %#v", starts.Value)
	}
}

func TestNewTypeRejectsUnknownRules(t *testing.T) {
	_, err := form.NewType("Event", form.WithFields(form.Field{Name: "title", Rules: "definitely_not_a_tag"}))
	if err == nil {
		t.Fatalf("expected error for unknown rule")
	}
}

func TestTypesDoNotShareState(t *testing.T) {
	fields := []form.Field{{Name: "a"}}
	first := form.MustNewType("A", form.WithFields(fields...))
	fields[0].Name = "b"
	second := form.MustNewType("B", form.WithFields(fields...))
	if first.FieldNames()[0] != "a" || second.FieldNames()[0] != "b" {
		t.Fatalf("types share field storage: %v %v", first.FieldNames(), second.FieldNames())
	}
	if first.Title() != "A" || first.TitlePlural() != "As" {
		t.Fatalf("titles = %q %q", first.Title(), first.TitlePlural())
	}
}
