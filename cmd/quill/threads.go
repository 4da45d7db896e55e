package main

import (
	"github.com/aretw0/quill/internal/cli"
	"github.com/spf13/cobra"
)

var threadsCmd = &cobra.Command{
	Use:     "threads",
	Aliases: []string{"thread"},
	Short:   "Manage persisted threads",
	Long:    `List and remove the threads held by the configured checkpoint store.`,
}

var threadsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all threads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd, true, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()
		return app.ListThreads(cmd.Context(), cmd.OutOrStdout())
	},
}

var threadsRmCmd = &cobra.Command{
	Use:   "rm <thread-id>...",
	Short: "Remove one or more threads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd, true, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()
		return app.RemoveThreads(cmd.Context(), args, cmd.OutOrStdout())
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <thread-id>",
	Short: "Print the checkpoints of a thread",
	Long:  `Prints every checkpoint of the thread as JSON. With --diff, prints what each step changed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd, true, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		diff, _ := cmd.Flags().GetBool("diff")
		return app.Inspect(cmd.Context(), args[0], diff, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(threadsCmd)
	threadsCmd.AddCommand(threadsLsCmd)
	threadsCmd.AddCommand(threadsRmCmd)

	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("diff", false, "Show field changes between consecutive checkpoints")
}
