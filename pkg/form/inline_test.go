package form_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/schema"
	"github.com/goliatone/go-crudform/pkg/store"
	"github.com/goliatone/go-crudform/pkg/testsupport"
)

func entryNames(set *form.InlineSet) []string {
	var names []string
	for _, entry := range set.Entries {
		for _, bf := range entry.Form.Fields() {
			names = append(names, bf.Name)
		}
	}
	return names
}

func openPoll(t *testing.T, seed testsupport.Seed) (store.Tx, store.Object, func() int) {
	t.Helper()
	ctx := context.Background()
	db, backend := testsupport.Provider(t, seed)
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(ctx) })
	poll, err := tx.Get(ctx, "Poll", store.PK{1})
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	return tx, poll, func() int { return backend.Len("Choice") }
}

func oneChoice() testsupport.Seed {
	seed := testsupport.DefaultSeed()
	seed.Choices = seed.Choices[:1]
	return seed
}

func TestExtraDefaultForNewParent(t *testing.T) {
	f, err := form.New(context.Background(), testsupport.PollType(2), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	sets := f.Inlines()
	if len(sets) != 1 {
		t.Fatalf("expected one inline set, got %d", len(sets))
	}
	set := sets[0]
	if set.Relationship != "choices" {
		t.Fatalf("relationship = %q", set.Relationship)
	}
	if len(set.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(set.Entries))
	}
	for i, entry := range set.Entries {
		if !entry.IsExtra {
			t.Fatalf("entry %d should be extra", i)
		}
		for _, bf := range entry.Form.Fields() {
			if bf.Raw != "" {
				t.Fatalf("entry %d field %s should be empty, got %q", i, bf.Spec.Name, bf.Raw)
			}
		}
	}
	want := []string{"choice_0_text", "choice_0_votes", "choice_1_text", "choice_1_votes"}
	if diff := cmp.Diff(want, entryNames(set)); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
}

func TestEditingShowsNoUnsolicitedExtras(t *testing.T) {
	tx, poll, _ := openPoll(t, testsupport.DefaultSeed())
	f, err := form.New(context.Background(), testsupport.PollType(3),
		form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	set := f.Inlines()[0]
	if len(set.Entries) != 2 {
		t.Fatalf("expected only the 2 persisted rows, got %d", len(set.Entries))
	}
	if got := set.Entries[1].Form.Fields()[0].Raw; got != "Blue" {
		t.Fatalf("second row text = %q", got)
	}
	if set.Existing() != 2 {
		t.Fatalf("existing = %d", set.Existing())
	}
}

func TestAddSignalOnEdit(t *testing.T) {
	tx, poll, _ := openPoll(t, oneChoice())
	data := url.Values{"choice_count": {"1"}, "add_choice": {"1"}}
	f, err := form.New(context.Background(), testsupport.PollType(0),
		form.WithData(data), form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	set := f.Inlines()[0]
	if len(set.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(set.Entries))
	}
	first, second := set.Entries[0], set.Entries[1]
	if first.IsExtra || first.Object == nil {
		t.Fatalf("first entry should be backed by the persisted child")
	}
	if got := first.Form.Fields()[0].Raw; got != "Red" {
		t.Fatalf("first entry text = %q, want Red", got)
	}
	if !second.IsExtra || second.Object != nil {
		t.Fatalf("second entry should be a new row")
	}
	if got := second.Form.Fields()[0].Raw; got != "" {
		t.Fatalf("second entry text = %q, want empty", got)
	}
	want := []string{"choice_0_text", "choice_0_votes", "choice_1_text", "choice_1_votes"}
	if diff := cmp.Diff(want, entryNames(set)); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteOnlyExistingChild(t *testing.T) {
	ctx := context.Background()
	tx, poll, _ := openPoll(t, oneChoice())
	data := url.Values{
		"choice_count":    {"1"},
		"delete_choice_0": {"y"},
		"choice_0_id":     {"1"},
		"choice_0_text":   {"still here"},
	}
	f, err := form.New(ctx, testsupport.PollType(0),
		form.WithData(data), form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	set := f.Inlines()[0]
	if len(set.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(set.Entries))
	}
	if set.Deleted != 1 {
		t.Fatalf("deleted = %d", set.Deleted)
	}
	if _, err := tx.Get(ctx, "Choice", store.PK{1}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted child, got %v", err)
	}
	children, err := tx.Related(ctx, poll, "choices")
	if err != nil {
		t.Fatalf("related: %v", err)
	}
	if len(children) != 0 {
		t.Fatalf("collection still holds %d children after expire", len(children))
	}
}

func TestDeleteRenumbersDensely(t *testing.T) {
	seed := testsupport.DefaultSeed()
	seed.Choices = append(seed.Choices, map[string]any{"id": int64(3), "poll_id": int64(1), "text": "Green"})
	tx, poll, _ := openPoll(t, seed)
	data := url.Values{
		"choice_count":    {"4"},
		"choice_0_id":     {"1"},
		"choice_0_text":   {"Red"},
		"choice_1_id":     {"2"},
		"choice_1_text":   {"Blue"},
		"delete_choice_1": {"y"},
		"choice_2_id":     {"3"},
		"choice_2_text":   {"Green!"},
		"choice_3_text":   {"Yellow"},
		"delete_choice_4": {"y"},
		"choice_4_text":   {"dropped"},
	}
	f, err := form.New(context.Background(), testsupport.PollType(0),
		form.WithData(data), form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	set := f.Inlines()[0]

	type row struct {
		Index, Submitted int
		Extra            bool
		Text             string
	}
	var got []row
	for _, e := range set.Entries {
		got = append(got, row{Index: e.Index, Submitted: e.SubmittedIndex, Extra: e.IsExtra, Text: e.Form.Fields()[0].Raw})
	}
	want := []row{
		{Index: 0, Submitted: 0, Text: "Red"},
		{Index: 1, Submitted: 2, Text: "Green!"},
		{Index: 2, Submitted: 3, Extra: true, Text: "Yellow"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	wantNames := []string{
		"choice_0_text", "choice_0_votes",
		"choice_1_text", "choice_1_votes",
		"choice_2_text", "choice_2_votes",
	}
	if diff := cmp.Diff(wantNames, entryNames(set)); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteWithMismatchedKeyFails(t *testing.T) {
	tx, poll, _ := openPoll(t, testsupport.DefaultSeed())
	data := url.Values{"choice_count": {"2"}, "delete_choice_0": {"y"}, "choice_0_id": {"2"}}
	_, err := form.New(context.Background(), testsupport.PollType(0),
		form.WithData(data), form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if !errors.Is(err, form.ErrInconsistentEntry) {
		t.Fatalf("expected ErrInconsistentEntry, got %v", err)
	}
}

func TestCountControlsExtras(t *testing.T) {
	tx, poll, _ := openPoll(t, testsupport.DefaultSeed())
	cases := []struct {
		name string
		data url.Values
		want int
	}{
		{name: "count below existing", data: url.Values{"choice_count": {"0"}}, want: 2},
		{name: "count above existing", data: url.Values{"choice_count": {"4"}}, want: 4},
		{name: "malformed count is absent", data: url.Values{"choice_count": {"many"}}, want: 2},
		{name: "negative count plus add", data: url.Values{"choice_count": {"0"}, "add_choice": {""}}, want: 2},
		{name: "deleted extra slot", data: url.Values{"choice_count": {"3"}, "delete_choice_2": {"y"}}, want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := form.New(context.Background(), testsupport.PollType(5),
				form.WithData(tc.data), form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
			if err != nil {
				t.Fatalf("new form: %v", err)
			}
			if got := len(f.Inlines()[0].Entries); got != tc.want {
				t.Fatalf("entries = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestMaxRowsClampsSubmittedCount(t *testing.T) {
	data := url.Values{"choice_count": {"100000"}}
	f, err := form.New(context.Background(), testsupport.PollType(0),
		form.WithData(data), form.WithSchema(testsupport.Schema()), form.WithMaxRows(3))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if got := len(f.Inlines()[0].Entries); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}
}

func TestAmbiguousRelationship(t *testing.T) {
	md := schema.MustNewRegistry(
		schema.Model{
			Name:       "Poll",
			PrimaryKey: []string{"id"},
			Relationships: []schema.Relationship{
				{Name: "choices", Target: "Choice", ForeignKey: "poll_id"},
				{Name: "archived_choices", Target: "Choice", ForeignKey: "archived_poll_id"},
			},
		},
		testsupport.ChoiceModel(),
	)
	f, err := form.New(context.Background(), testsupport.PollType(1), form.WithSchema(md))
	if !errors.Is(err, form.ErrAmbiguousRelationship) {
		t.Fatalf("expected ErrAmbiguousRelationship, got %v", err)
	}
	if f != nil && len(f.Inlines()) != 0 {
		t.Fatalf("no entries should be built on resolution failure")
	}
}

func TestResolveRelationship(t *testing.T) {
	md := schema.MustNewRegistry(
		schema.Model{
			Name:       "Poll",
			PrimaryKey: []string{"id"},
			Relationships: []schema.Relationship{
				{Name: "winner", Target: "Choice", Kind: schema.RelationshipHasOne, ForeignKey: "won_poll_id"},
			},
		},
		schema.Model{Name: "Tag", PrimaryKey: []string{"id"}},
		testsupport.ChoiceModel(),
	)
	choice := testsupport.ChoiceType()

	_, err := form.ResolveRelationship(md, "Poll", form.NewInline(choice))
	if !errors.Is(err, form.ErrUnsupportedRelationship) {
		t.Fatalf("expected ErrUnsupportedRelationship, got %v", err)
	}

	_, err = form.ResolveRelationship(md, "Tag", form.NewInline(choice))
	if !errors.Is(err, form.ErrRelationshipNotFound) {
		t.Fatalf("expected ErrRelationshipNotFound, got %v", err)
	}

	name, err := form.ResolveRelationship(md, "Tag", form.NewInline(choice, form.WithRelationshipName("anything")))
	if err != nil || name != "anything" {
		t.Fatalf("explicit override should win, got %q, %v", name, err)
	}
}

func TestValidateAggregatesChildErrors(t *testing.T) {
	data := url.Values{
		"question":       {"Q?"},
		"choice_count":   {"3"},
		"choice_0_text":  {""},
		"choice_1_text":  {"fine"},
		"choice_1_votes": {"lots"},
		"choice_2_text":  {"ok"},
		"choice_2_votes": {"-1"},
	}
	f, err := form.New(context.Background(), testsupport.PollType(0), form.WithData(data), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if f.Validate() {
		t.Fatalf("expected invalid form")
	}
	want := map[string][]string{
		"choice_0_text":  {form.MsgRequired},
		"choice_1_votes": {form.MsgInvalidInteger},
		"choice_2_votes": {"Number must be at least 0."},
	}
	errs := f.Errors()
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	set := f.Inlines()[0]
	for key := range errs {
		ref, ok := form.ParseFieldName(key)
		if !ok || ref.Inline != set.Inline.Name() {
			t.Fatalf("error key %q does not parse back to the inline", key)
		}
		entry := set.Entries[ref.Index]
		if _, ok := entry.Form.Field(ref.Field); !ok {
			t.Fatalf("error key %q addresses unknown field", key)
		}
		if bf, _ := entry.Form.Field(ref.Field); bf.Name != key {
			t.Fatalf("error key %q does not match field name %q", key, bf.Name)
		}
	}
}

func TestValidateParentRequired(t *testing.T) {
	f, err := form.New(context.Background(), testsupport.PollType(0),
		form.WithData(url.Values{"question": {"  "}}), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if f.Validate() {
		t.Fatalf("expected invalid form")
	}
	if diff := cmp.Diff(map[string][]string{"question": {form.MsgRequired}}, f.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestRowAtCountIndexReachesAddedEntry(t *testing.T) {
	tx, poll, _ := openPoll(t, oneChoice())
	data := url.Values{
		"choice_count":  {"1"},
		"add_choice":    {""},
		"choice_0_id":   {"1"},
		"choice_0_text": {"Red"},
		"choice_1_text": {"B"},
	}
	f, err := form.New(context.Background(), testsupport.PollType(0),
		form.WithData(data), form.WithObject(poll), form.WithSession(tx), form.WithSchema(testsupport.Schema()))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	entries := f.Inlines()[0].Entries
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	added := entries[1]
	if !added.IsExtra || added.Index != 1 {
		t.Fatalf("entry 1: extra=%v index=%d", added.IsExtra, added.Index)
	}
	text, ok := added.Form.Field("text")
	if !ok {
		t.Fatalf("entry 1 has no text field")
	}
	if text.Raw != "B" {
		t.Fatalf("entry 1 text = %q, want %q", text.Raw, "B")
	}
}

type keylessChildren struct {
	store.Tx
}

func (keylessChildren) Related(context.Context, store.Object, string) ([]store.Object, error) {
	return []store.Object{store.NewRecord("Choice", map[string]any{"poll_id": int64(1), "text": "ghost"})}, nil
}

func TestDeleteChildWithoutKeyNamesCause(t *testing.T) {
	tx, poll, _ := openPoll(t, oneChoice())
	data := url.Values{"choice_count": {"1"}, "delete_choice_0": {"y"}, "choice_0_id": {"1"}}
	_, err := form.New(context.Background(), testsupport.PollType(0),
		form.WithData(data), form.WithObject(poll), form.WithSession(keylessChildren{tx}), form.WithSchema(testsupport.Schema()))
	if !errors.Is(err, form.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	if errors.Is(err, form.ErrInconsistentEntry) {
		t.Fatalf("missing key must not be reported as an inconsistent entry: %v", err)
	}
}
