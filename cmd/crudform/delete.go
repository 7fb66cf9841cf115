package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-crudform/pkg/store"
)

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete MODEL PK...",
		Short: "Delete rows of a model by primary key",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			model, rawKeys := args[0], args[1:]
			keys := make([]store.PK, 0, len(rawKeys))
			for _, raw := range rawKeys {
				pk, err := store.ParsePK(raw)
				if err != nil {
					return err
				}
				keys = append(keys, pk)
			}

			e, err := a.load(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.close()
			if _, err := e.typeOf(model); err != nil {
				return err
			}

			tx, err := e.db.Begin(ctx)
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)

			objects := make([]store.Object, 0, len(keys))
			for _, pk := range keys {
				obj, err := tx.Get(ctx, model, pk)
				if err != nil {
					return err
				}
				objects = append(objects, obj)
			}

			if !yes {
				ok, err := a.confirm(fmt.Sprintf("Delete %d %s row(s)?", len(objects), model))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}
			for _, obj := range objects {
				if err := tx.Delete(ctx, obj); err != nil {
					return err
				}
			}
			if err := tx.Commit(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s deleted\n", len(objects), model)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
