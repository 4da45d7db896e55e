package main

import (
	"strings"

	"github.com/aretw0/quill/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>...",
	Short: "Write an essay on a topic",
	Long: `Starts a new thread on the topic and runs the workflow until the essay is
final. Press Ctrl+C to pause; the thread can be resumed later.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd, false, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		maxRevisions := app.Config.Workflow.MaxRevisions
		if cmd.Flags().Changed("max-revisions") {
			maxRevisions, _ = cmd.Flags().GetInt("max-revisions")
		}
		_, err = app.Run(cmd.Context(), strings.Join(args, " "), maxRevisions, runOptions(cmd))
		return err
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <thread-id>",
	Short: "Resume a paused or failed thread",
	Long:  `Continues the thread from its latest checkpoint. A finished thread prints its final essay.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd, false, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		_, err = app.Resume(cmd.Context(), args[0], runOptions(cmd))
		return err
	},
}

func runOptions(cmd *cobra.Command) cli.RunOptions {
	jsonMode, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noBanner, _ := cmd.Flags().GetBool("no-banner")
	return cli.RunOptions{
		JSON:    jsonMode,
		Verbose: verbose,
		Banner:  !noBanner,
		Out:     cmd.OutOrStdout(),
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Write one NDJSON line per step")
	cmd.Flags().BoolP("verbose", "v", false, "Print the plan and critiques as they are produced")
	cmd.Flags().Bool("no-banner", false, "Skip the banner")
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	addRunFlags(runCmd)
	addRunFlags(resumeCmd)
	runCmd.Flags().IntP("max-revisions", "r", 2, "Reflect-and-redraft rounds after the first draft (below 1 means a single draft)")
}
