package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRootCommand builds the command tree. Running without a subcommand
// starts the daemon.
func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "megunolink-mqtt",
		Short:         "MegunoLink command and telemetry link over MQTT",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(configPath), cmd.InOrStdin())
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("config file (default $%s or %s)", configEnvVar, defaultConfigPath))

	root.AddCommand(
		newRunCommand(&configPath),
		newSendCommand(&configPath),
		newVersionCommand(),
	)

	return root
}

// newRunCommand creates the explicit daemon subcommand.
func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the device link until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(*configPath), cmd.InOrStdin())
		},
	}
}

// newVersionCommand creates the version subcommand.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "megunolink-mqtt %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
