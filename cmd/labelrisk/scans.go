package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cognicore/labelrisk/pkg/labelrisk/risk"
)

func newScansCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Browse saved scans",
	}

	var (
		userID string
		limit  int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's scans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return eris.New("--limit must be > 0")
			}
			return g.withRuntime(cmd.Context(), true, func(rt *runtime) error {
				scans, err := rt.engine.Scans(cmd.Context(), userID, limit)
				if err != nil {
					return err
				}
				if len(scans) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scans found.")
					return nil
				}
				for _, sc := range scans {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-10s safe=%d risky=%d restricted=%d unknown=%d\n",
						sc.ID, sc.CreatedAt.Local().Format(time.DateTime), sc.OverallRisk,
						sc.SafeCount, sc.RiskyCount, sc.RestrictedCount, sc.UnknownCount)
				}
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&userID, "user", "", "User ID")
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum scans to list")
	_ = listCmd.MarkFlagRequired("user")

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one scan with its ingredients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withRuntime(cmd.Context(), true, func(rt *runtime) error {
				sc, err := rt.engine.Scan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					b, err := json.MarshalIndent(sc, "", "  ")
					if err != nil {
						return eris.Wrap(err, "marshal scan json")
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(b))
					return nil
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scan: %s\nUser: %s\nCreated: %s\nSource: %s\nOverall: %s\n\n",
					sc.ID, sc.UserID, sc.CreatedAt.Local().Format(time.DateTime), sc.Source, risk.ParseStored(sc.OverallRisk))
				for _, ing := range sc.Ingredients {
					fmt.Fprintf(out, "  %-10s %-40s %s\n", risk.ParseStored(ing.Risk), ing.Name, ing.Explanation)
				}
				return nil
			})
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print the scan as JSON")

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}
