package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/hubwatch/internal/domain"
)

func newResetCmd(a *app) *cobra.Command {
	var (
		force bool
		org   string
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete persisted watcher state",
		Long:  "Deletes the state file, or with --org just that organisation's known set. The next run re-seeds affected organisations silently, so no old models get re-announced as new.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return errors.New("refusing to delete state without --force")
			}

			if org != "" {
				return resetOrg(cmd, a, domain.OrgKey(org))
			}

			if err := os.Remove(a.cfg.StatePath); err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "no state file to remove")
					return nil
				}
				return fmt.Errorf("remove state file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", a.cfg.StatePath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "actually delete state")
	cmd.Flags().StringVar(&org, "org", "", "reset only this organisation's known set")

	return cmd
}

func resetOrg(cmd *cobra.Command, a *app, org domain.OrgKey) error {
	var known int
	_, err := a.repo.Commit(cmd.Context(), func(current domain.State) (domain.State, bool) {
		st, ok := current.Orgs[org]
		if !ok {
			return current, false
		}
		known = len(st.Models)
		delete(current.Orgs, org)
		return current, true
	})
	if err != nil {
		return fmt.Errorf("reset organisation %s: %w", org, err)
	}

	if known == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "nothing recorded for %s\n", org)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "forgot %d models for %s\n", known, org)
	return nil
}
