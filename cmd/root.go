package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hubwatch",
		Short:         "Watch Hugging Face organisations and announce new models",
		Long:          "hubwatch polls Hugging Face organisations for newly published models, announces each one at most once to a Telegram chat, and answers chat commands including a two-model battle round.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newStatusCmd(app),
		newOrgsCmd(app),
		newInfoCmd(app),
		newDeployCmd(app),
		newResetCmd(app),
	)

	return rootCmd
}
