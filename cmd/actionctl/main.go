package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/npratt/actionctl/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var version = "dev"

func newRootCmd(logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "actionctl",
		Short: "Run an upload with progress, retries, and a persisted theme",
		Long: `actionctl runs a simulated file upload through an action controller that
tracks progress, schedules retries after failures, and ignores results from
superseded runs.

Events are written to .actionctl/events.jsonl and can be replayed with
"actionctl events".`,
		SilenceUsage: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .actionctl/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Log file path for TUI mode")
	rootCmd.PersistentFlags().String(FlagPrefsFile, "", "Preferences file path")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "actionctl %s\n", version)
		},
	}

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "View recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if viper.GetBool(FlagFollow) {
				return tailFollow(cmd.Context(), cmd.OutOrStdout(), cfg.Paths.Events)
			}
			return tailLast(cmd.OutOrStdout(), cfg.Paths.Events, viper.GetInt(FlagCount))
		},
	}
	eventsCmd.Flags().Bool(FlagFollow, false, "Follow event stream (like tail -f)")
	eventsCmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	eventsCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newUploadCmd(logger, logLevel))
	rootCmd.AddCommand(newThemeCmd(logger))
	rootCmd.AddCommand(eventsCmd)

	return rootCmd
}

func main() {
	logLevel := &slog.LevelVar{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	viper.SetEnvPrefix("ACTIONCTL")
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer)
	viper.AutomaticEnv()

	if err := newRootCmd(logger, logLevel).ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
