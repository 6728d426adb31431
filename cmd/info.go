package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <author/model>",
		Short: "Show a model's hub record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseModelID(args[0])
			if err != nil {
				return err
			}

			model, err := a.queries.ModelCard(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, model.ID)
			fmt.Fprintf(out, "  downloads: %d\n", model.Downloads)
			fmt.Fprintf(out, "  likes:     %d\n", model.Likes)
			if model.PipelineTag != "" {
				fmt.Fprintf(out, "  pipeline:  %s\n", model.PipelineTag)
			}
			if model.LibraryName != "" {
				fmt.Fprintf(out, "  library:   %s\n", model.LibraryName)
			}
			if tags := model.UsefulTags(6); len(tags) > 0 {
				fmt.Fprintf(out, "  tags:      %s\n", strings.Join(tags, ", "))
			}
			fmt.Fprintf(out, "  url:       %s\n", model.ID.URL())

			return nil
		},
	}
}
