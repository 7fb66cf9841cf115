package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform"
	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/render"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect MODEL",
		Short: "Print the input names a new form of MODEL renders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := a.load(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()

			model := args[0]
			conf, err := e.typeOf(model)
			if err != nil {
				return err
			}
			typ, err := crudform.BuildType(e.catalog, model, conf)
			if err != nil {
				return err
			}
			f, err := form.New(ctx, typ, form.WithSchema(e.catalog), form.WithLogger(e.logger))
			if err != nil {
				return err
			}
			printInputs(cmd.OutOrStdout(), render.NewFormView(f))
			return nil
		},
	}
}

func printInputs(w io.Writer, view render.FormView) {
	for _, fs := range view.Fieldsets {
		for _, field := range fs.Fields {
			fmt.Fprintf(w, "%s\t%s\n", field.Name, field.Widget)
		}
	}
	for _, inline := range view.Inlines {
		fmt.Fprintf(w, "%s\thidden\n", inline.CountName)
		fmt.Fprintf(w, "%s\tbutton\n", inline.AddName)
		for _, entry := range inline.Entries {
			for _, h := range entry.Hidden {
				fmt.Fprintf(w, "%s\thidden\n", h.Name)
			}
			for _, field := range entry.Fields {
				fmt.Fprintf(w, "%s\t%s\n", field.Name, field.Widget)
			}
			fmt.Fprintf(w, "%s\tbutton\n", entry.DeleteName)
		}
	}
}
