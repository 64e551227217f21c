// colorbridge lets a chat room set the colour of a smart light.
//
// Users post "%color <css colour>" in a room the bot has joined; the bridge
// writes the colour to one light on the lighting gateway and, with a camera
// attached, posts a photo of the result back to the room.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configEnvVar names the config file when --config is not given.
const configEnvVar = "COLORBRIDGE_CONFIG"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	runE := func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return run(ctx, resolveConfigPath(configPath))
	}

	root := &cobra.Command{
		Use:           "colorbridge",
		Short:         "Set a smart light's colour from chat",
		Long:          "colorbridge listens for %color commands in chat and applies them to a light on the lighting gateway.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config YAML (default: $"+configEnvVar+", else environment only)")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the bridge (default)",
		Args:  cobra.NoArgs,
		RunE:  runE,
	})
	root.AddCommand(parseCmd())
	root.AddCommand(versionCmd())

	return root
}

// resolveConfigPath returns the --config flag, then $COLORBRIDGE_CONFIG.
// An empty result means defaults plus environment.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(configEnvVar)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "colorbridge %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
