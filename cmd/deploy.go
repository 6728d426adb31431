package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeployCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <author/model>",
		Short: "Estimate GPU requirements for serving a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseModelID(args[0])
			if err != nil {
				return err
			}

			estimate, ok, err := a.queries.DeployEstimate(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no parameter metadata published for %s", id)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", id)
			fmt.Fprintf(out, "  parameters: %d (%s)\n", estimate.TotalParams, estimate.Dtype)
			fmt.Fprintf(out, "  weights:    %.1f GiB\n", estimate.WeightGiB)
			fmt.Fprintf(out, "  serving:    %.1f GiB (with inference headroom)\n", estimate.TotalGiB)
			fmt.Fprintf(out, "  H200 GPUs:  %d\n", estimate.H200Count)
			if estimate.FitsL40S {
				fmt.Fprintln(out, "  L40S:       fits on one card")
			} else {
				fmt.Fprintln(out, "  L40S:       does not fit")
			}

			return nil
		},
	}
}
