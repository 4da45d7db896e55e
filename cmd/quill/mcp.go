package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/quill/internal/cli"
	"github.com/aretw0/quill/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes quill as MCP tools (start_essay, resume_thread, inspect_thread,
list_threads) so agents can commission and resume essays.

Supported transports:
- stdio (default): Standard Input/Output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context(), cmd, false, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, mcp.WithLogger(app.Logger))

		transport, _ := cmd.Flags().GetString("transport")
		switch transport {
		case "stdio":
			app.Logger.Info("Starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr, _ := cmd.Flags().GetString("addr")
			if err := srv.ServeSSE(ctx, addr); err != nil {
				return err
			}
			app.Logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol: stdio or sse")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (sse only)")
}
