package main

import (
	"fmt"

	"github.com/aretw0/quill/internal/cli"
	"github.com/aretw0/quill/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph as Mermaid",
	Long: `Outputs a Mermaid diagram (graph TD) of the essay workflow. With --thread,
the steps the thread has run and the step it will run next are highlighted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd, true, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		var overlay *graph.Overlay
		if threadID, _ := cmd.Flags().GetString("thread"); threadID != "" {
			cps, err := app.Engine.Inspect(cmd.Context(), threadID)
			if err != nil {
				return fmt.Errorf("error loading thread '%s': %w", threadID, err)
			}
			overlay = graph.NewOverlay(cps)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(app.Engine.Graph(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("thread", "", "Highlight the progress of this thread")
}
