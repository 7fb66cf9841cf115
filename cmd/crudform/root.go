package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform"
	"github.com/goliatone/go-crudform/pkg/config"
	"github.com/goliatone/go-crudform/pkg/openapi"
	"github.com/goliatone/go-crudform/pkg/store"
	"github.com/goliatone/go-crudform/pkg/store/boltstore"
	"github.com/goliatone/go-crudform/pkg/store/memory"
)

// app holds the global flags and the collaborators commands share.
type app struct {
	configPath string
	schemaPath string
	dbPath     string
	verbose    bool

	// confirm asks the user a yes/no question.
	confirm func(message string) (bool, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{confirm: surveyConfirm})
}

func newRootCmdFor(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "crudform",
		Short:         "Admin list and edit pages for the models of an OpenAPI schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "crudform.yaml", "admin configuration file (JSON or YAML)")
	flags.StringVarP(&a.schemaPath, "schema", "s", "openapi.yaml", "OpenAPI document path or URL")
	flags.StringVar(&a.dbPath, "db", "", "bbolt database file; empty keeps data in memory")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug messages")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
		newInspectCmd(a),
	)
	return root
}

// env is what a command works against.
type env struct {
	cfg     *config.Config
	catalog *openapi.Catalog
	db      *store.DB
	logger  *slog.Logger
	close   func() error
}

func (a *app) load(ctx context.Context, stderr io.Writer) (*env, error) {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	src, err := openapi.ParseSource(a.schemaPath)
	if err != nil {
		return nil, err
	}
	loader := openapi.NewLoader()
	if src.Kind() == openapi.SourceKindURL {
		loader = openapi.NewLoader(openapi.WithHTTPFallback(30 * time.Second))
	}
	catalog, err := openapi.Load(ctx, loader, src)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, catalog: catalog, logger: logger, close: func() error { return nil }}
	if a.dbPath == "" {
		logger.Warn("no --db given, data is kept in memory")
		e.db, _ = memory.Open(catalog)
		return e, nil
	}
	db, backend, err := boltstore.Open(a.dbPath, catalog)
	if err != nil {
		return nil, err
	}
	e.db = db
	e.close = backend.Close
	return e, nil
}

func (e *env) admin(opts ...crudform.Option) (*crudform.Admin, error) {
	base := []crudform.Option{crudform.WithLogger(e.logger)}
	return crudform.New(e.cfg, e.catalog, e.db, append(base, opts...)...)
}

func (e *env) typeOf(model string) (config.Model, error) {
	m, ok := e.cfg.Models[model]
	if !ok {
		return config.Model{}, fmt.Errorf("model %q is not configured in %s", model, e.cfg.Source)
	}
	return m, nil
}

func surveyConfirm(message string) (bool, error) {
	var out bool
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &out, survey.WithStdio(os.Stdin, os.Stdout, os.Stderr)); err != nil {
		return false, err
	}
	return out, nil
}
