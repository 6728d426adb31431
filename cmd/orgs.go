package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOrgsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orgs",
		Short: "List the watched organisations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, org := range a.queries.Orgs() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), org); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
