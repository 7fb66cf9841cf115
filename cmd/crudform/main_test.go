package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-crudform/pkg/openapi"
	"github.com/goliatone/go-crudform/pkg/store"
	"github.com/goliatone/go-crudform/pkg/store/boltstore"
)

const schemaDoc = `
openapi: 3.0.3
info: {title: Polls, version: 1.0.0}
paths: {}
components:
  schemas:
    Poll:
      type: object
      x-field-order: [question, published]
      required: [question]
      properties:
        id: {type: integer, readOnly: true}
        question: {type: string}
        published: {type: boolean}
        choices:
          type: array
          items: {$ref: '#/components/schemas/Choice'}
    Choice:
      type: object
      required: [text]
      properties:
        id: {type: integer}
        poll_id:
          type: integer
          x-relationships: {type: belongsTo, target: Poll}
        text: {type: string}
        votes: {type: integer}
`

const configDoc = `
models:
  Poll:
    url_path: /polls
    list_display: [question]
    inlines:
      - model: Choice
        extra: 2
        fields: [text, votes]
`

type workspace struct {
	config string
	schema string
	db     string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		config: filepath.Join(dir, "crudform.yaml"),
		schema: filepath.Join(dir, "openapi.yaml"),
		db:     filepath.Join(dir, "admin.db"),
	}
	require.NoError(t, os.WriteFile(ws.config, []byte(configDoc), 0o600))
	require.NoError(t, os.WriteFile(ws.schema, []byte(schemaDoc), 0o600))
	return ws
}

func (ws workspace) seed(t *testing.T, questions ...string) {
	t.Helper()
	ctx := context.Background()
	catalog, err := openapi.Parse(ctx, []byte(schemaDoc), "test")
	require.NoError(t, err)
	db, backend, err := boltstore.Open(ws.db, catalog)
	require.NoError(t, err)
	defer backend.Close()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	for _, q := range questions {
		require.NoError(t, tx.Add(ctx, store.NewRecord("Poll", map[string]any{"question": q})))
	}
	require.NoError(t, tx.Commit(ctx))
}

func (ws workspace) run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	if a == nil {
		a = &app{confirm: func(string) (bool, error) { return true, nil }}
	}
	root := newRootCmdFor(a)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", ws.config, "--schema", ws.schema, "--db", ws.db}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspectPrintsInlineSlots(t *testing.T) {
	ws := newWorkspace(t)
	out, err := ws.run(t, nil, "inspect", "Poll")
	require.NoError(t, err)

	want := []string{
		"question\ttext",
		"published\tcheckbox",
		"choice_count\thidden",
		"add_choice\tbutton",
		"choice_0_id\thidden",
		"choice_0_text\ttext",
		"choice_0_votes\tnumber",
		"delete_choice_0\tbutton",
		"choice_1_id\thidden",
		"choice_1_text\ttext",
		"choice_1_votes\tnumber",
		"delete_choice_1\tbutton",
	}
	require.Equal(t, want, strings.Split(strings.TrimSpace(out), "\n"))
}

func TestListPrintsRows(t *testing.T) {
	ws := newWorkspace(t)
	ws.seed(t, "Tea?", "Coffee?")

	out, err := ws.run(t, nil, "list", "Poll")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, []string{"ID", "QUESTION"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"1", "Tea?"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"2", "Coffee?"}, strings.Fields(lines[2]))
}

func TestDeleteConfirms(t *testing.T) {
	ws := newWorkspace(t)
	ws.seed(t, "Tea?", "Coffee?")

	var asked string
	declined := &app{confirm: func(msg string) (bool, error) {
		asked = msg
		return false, nil
	}}
	out, err := ws.run(t, declined, "delete", "Poll", "1")
	require.NoError(t, err)
	require.Equal(t, "Delete 1 Poll row(s)?", asked)
	require.Contains(t, out, "aborted")

	out, err = ws.run(t, declined, "delete", "--yes", "Poll", "1", "2")
	require.NoError(t, err)
	require.Contains(t, out, "2 Poll deleted")

	out, err = ws.run(t, nil, "list", "Poll")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}

func TestUnknownModel(t *testing.T) {
	ws := newWorkspace(t)
	_, err := ws.run(t, nil, "list", "Ghost")
	require.ErrorContains(t, err, `model "Ghost" is not configured`)
}
