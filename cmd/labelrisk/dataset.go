package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/labelrisk/pkg/labelrisk/dataset"
)

func newDatasetCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage the curated ingredient dataset",
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import dataset rows from a .csv, .xlsx or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := dataset.ReadRows(args[0])
			if err != nil {
				return err
			}
			return g.withRuntime(cmd.Context(), true, func(rt *runtime) error {
				n, err := rt.store.UpsertDatasetRows(cmd.Context(), rows)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows from %s\n", n, args[0])
				return nil
			})
		},
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of dataset rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withRuntime(cmd.Context(), true, func(rt *runtime) error {
				n, err := rt.store.CountDataset(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}

	cmd.AddCommand(importCmd, countCmd)
	return cmd
}
