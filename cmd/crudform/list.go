package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform/pkg/store"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list MODEL",
		Short: "Print the stored rows of a model",
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
			pkAttrs, err := e.catalog.PrimaryKeys(model)
			if err != nil {
				return err
			}
			columns := conf.ListDisplay
			if len(columns) == 0 {
				fields, err := e.catalog.Fields(model)
				if err != nil {
					return err
				}
				for _, f := range fields {
					columns = append(columns, f.Name)
				}
			}

			tx, err := e.db.Begin(ctx)
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)
			rows, err := tx.All(ctx, model)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			header := append([]string{strings.Join(pkAttrs, ",")}, columns...)
			fmt.Fprintln(w, strings.ToUpper(strings.Join(header, "\t")))
			for _, obj := range rows {
				pk, _ := store.PKOf(obj, pkAttrs)
				cells := []string{pk.String()}
				for _, col := range columns {
					v, _ := obj.Attr(col)
					if v == nil {
						v = ""
					}
					cells = append(cells, fmt.Sprint(v))
				}
				fmt.Fprintln(w, strings.Join(cells, "\t"))
			}
			return w.Flush()
		},
	}
}
