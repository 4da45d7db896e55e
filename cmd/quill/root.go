package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/quill/internal/cli"
	"github.com/aretw0/quill/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Quill writes essays through a resumable plan, research, draft and critique loop",
	Long: `Quill plans an essay, researches it, drafts it and revises it against its own
critique. Every step is checkpointed, so an interrupted thread resumes where it stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Config file (default ./quill.yaml when present)")
	flags.String("store", "", "Checkpoint store: memory, file, redis or sql")
	flags.String("store-path", "", "Directory of the file store")
	flags.Bool("debug", false, "Log at debug level to stderr")
	flags.Bool("offline", false, "Use deterministic offline collaborators (no API keys needed)")
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("store") {
		cfg.Store.Driver, _ = cmd.Flags().GetString("store")
	}
	if cmd.Flags().Changed("store-path") {
		cfg.Store.Path, _ = cmd.Flags().GetString("store-path")
	}
	return cfg, cfg.Validate()
}

// openApp wires an engine for cmd. Commands that never call a collaborator
// pass offline so no credentials are required.
func openApp(ctx context.Context, cmd *cobra.Command, offline bool, opts cli.AppOptions) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := cli.CreateLogger(cfg.Log, debug)
	if err != nil {
		return nil, err
	}

	flagOffline, _ := cmd.Flags().GetBool("offline")
	opts.Offline = offline || flagOffline
	return cli.NewApp(ctx, cfg, logger, opts)
}
