package cmd

import (
	"github.com/spf13/cobra"
)

type args struct {
	version    string
	LogLevel   string
	ConfigPath string
	TextFormat bool
}

// InitCommands initializes and returns the root command for the application.
func InitCommands(version string) *cobra.Command {
	args := &args{
		version: version,
	}

	cmd := &cobra.Command{
		Use:   "rlpbot",
		Short: "Rate Limiting Proxy Console Bot",
		Long:  "Rate Limiting Proxy Console Bot is a bot for managing rate-limited API apps on your proxy account.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), args)
		},
	}

	cmd.PersistentFlags().StringVar(&args.ConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&args.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&args.TextFormat, "logtext", false, "log in text format, otherwise JSON")

	return cmd
}
