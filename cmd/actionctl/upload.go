package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/npratt/actionctl/internal/action"
	"github.com/npratt/actionctl/internal/config"
	"github.com/npratt/actionctl/internal/events"
	"github.com/npratt/actionctl/internal/prefs"
	"github.com/npratt/actionctl/internal/shutdown"
	"github.com/npratt/actionctl/internal/tui"
	"github.com/npratt/actionctl/internal/upload"
)

// errUploadFailed is returned by headless uploads that end in failure.
var errUploadFailed = errors.New("upload failed")

// closeTimeout bounds flushing the event log and traces on exit.
const closeTimeout = 5 * time.Second

func newUploadCmd(logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [path]",
		Short: "Upload a file",
		Long: `Upload a file with progress reporting and retries.

With a terminal (or --tui) an interactive screen lets you pick the file,
watch progress, retry failures, and toggle the theme. Otherwise the upload
runs once and events are printed as they happen; --auto-retry keeps retrying
until the retry limit is reached.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = args[0]
			}

			// Explicit flag wins, otherwise use the TUI when attached to a terminal.
			tuiEnabled := viper.GetBool(FlagTUI)
			if !cmd.Flags().Changed(FlagTUI) {
				tuiEnabled = term.IsTerminal(int(os.Stdout.Fd()))
			}

			if viper.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
				logger.Debug("verbose logging enabled")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if tuiEnabled {
				return runInteractive(cmd.Context(), cfg, path, logLevel)
			}

			rt, err := newUploadRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, logger)

			return runHeadless(cmd.Context(), rt, path, cfg.Action.AutoRetry, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Bool(FlagTUI, false, "Use the interactive terminal UI")
	cmd.Flags().Int(FlagRetryLimit, action.DefaultRetryLimit, "Retries allowed after the first attempt")
	cmd.Flags().Duration(FlagRetryDelay, action.DefaultDelayBetweenRetries, "Delay before a retry starts")
	cmd.Flags().Bool(FlagAutoReset, false, "Return to idle shortly after a successful upload")
	cmd.Flags().Float64(FlagFailureRate, upload.DefaultFailureRate, "Chance in [0,1] that an upload fails")
	cmd.Flags().Bool(FlagAutoRetry, false, "Retry after each failure until the limit is reached (headless only)")
	cmd.Flags().Bool(FlagTrace, false, "Write run spans to the trace file")

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	return cmd
}

// loadConfig loads layered configuration and applies flags that were set
// explicitly on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applyFlagOverrides(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags into cfg and revalidates.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed(FlagLogFile) {
		cfg.Paths.Log = viper.GetString(FlagLogFile)
	}
	if changed(FlagPrefsFile) {
		cfg.Paths.Prefs = viper.GetString(FlagPrefsFile)
	}
	if changed(FlagRetryLimit) {
		cfg.Action.RetryLimit = viper.GetInt(FlagRetryLimit)
	}
	if changed(FlagRetryDelay) {
		cfg.Action.RetryDelay = viper.GetDuration(FlagRetryDelay)
	}
	if changed(FlagAutoReset) {
		cfg.Action.AutoReset = viper.GetBool(FlagAutoReset)
	}
	if changed(FlagAutoRetry) {
		cfg.Action.AutoRetry = viper.GetBool(FlagAutoRetry)
	}
	if changed(FlagFailureRate) {
		cfg.Upload.FailureRate = viper.GetFloat64(FlagFailureRate)
	}
	if changed(FlagTrace) {
		cfg.Tracing.Enabled = viper.GetBool(FlagTrace)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func closeRuntime(rt *uploadRuntime, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := rt.Close(ctx); err != nil {
		logger.Warn("cleanup failed", "error", err)
	}
}

// selectFile resolves path to a file. An empty or unusable path yields nil,
// which the upload reports as "No file selected".
func selectFile(path string, logger *slog.Logger) *upload.File {
	if path == "" {
		return nil
	}
	file, err := upload.Stat(path)
	if err != nil {
		logger.Warn("cannot use path", "path", path, "error", err)
		return nil
	}
	return file
}

// runHeadless uploads path once, prints events to out, and optionally retries
// each failure. It returns errUploadFailed when the final attempt fails.
func runHeadless(ctx context.Context, rt *uploadRuntime, path string, autoRetry bool, out io.Writer) error {
	file := selectFile(path, rt.logger)
	ch := rt.router.Subscribe()

	var final action.Snapshot[string]
	done := func(ev events.Event) bool {
		switch ev.Type() {
		case events.EventActionSucceeded:
			final = rt.ctrl.Snapshot()
			return true
		case events.EventActionFailed:
			if autoRetry && rt.ctrl.Retry(file) {
				return false
			}
			final = rt.ctrl.Snapshot()
			return true
		default:
			return false
		}
	}

	guard := shutdown.New(shutdown.WithLogger(rt.logger))
	err := guard.Run(ctx,
		func(ctx context.Context) error {
			rt.ctrl.Run(file)
			return tui.PrintEventsStyled(ctx, ch, out, done, colorLine)
		},
		func(context.Context) error {
			rt.ctrl.Close()
			return nil
		},
	)
	if err != nil {
		return err
	}

	switch final.Phase {
	case action.PhaseSucceeded:
		return nil
	case action.PhaseFailed:
		return fmt.Errorf("%w after %d attempt(s): %s", errUploadFailed, final.Attempt+1, final.Error)
	default:
		return fmt.Errorf("%w: interrupted", errUploadFailed)
	}
}

// runInteractive runs the TUI with logging redirected to the log file and
// the theme persisted in the preferences store.
func runInteractive(ctx context.Context, cfg *config.Config, path string, logLevel *slog.LevelVar) error {
	tuiLog := SetupTUILogger(cfg.Paths.Log, logLevel, cfg.LogRotation)
	defer func() { _ = tuiLog.Close() }()
	logger := tuiLog.Logger
	slog.SetDefault(logger)

	rt, err := newUploadRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRuntime(rt, logger)

	store, err := prefs.Open(cfg.Paths.Prefs, rt.router, logger)
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if err := store.Watch(watchCtx, nil); err != nil {
		logger.Warn("preferences will not follow external edits", "error", err)
	}

	app := tui.New(rt.router.SubscribeBuffered(1000), rt.ctrl,
		tui.WithThemeStore(store),
		tui.WithInitialPath(path),
		tui.WithPathDebounce(cfg.TUI.PathDebounce),
		tui.WithDarkDefault(cfg.TUI.DarkDefault),
		tui.WithOnQuit(rt.ctrl.Close),
	)

	logger.Info("actionctl upload starting", "version", version, "path", path)
	return app.Run(ctx)
}
