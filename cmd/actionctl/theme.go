package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/npratt/actionctl/internal/prefs"
)

func themeName(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}

// changeTheme applies arg to the stored theme and reports the result.
// An empty arg only reports the current theme.
func changeTheme(w io.Writer, store *prefs.Store, arg string, darkDefault bool) error {
	var (
		dark bool
		err  error
	)
	switch arg {
	case "":
		dark = store.Bool(prefs.KeyDarkMode, darkDefault)
	case "toggle":
		dark, err = store.Toggle(prefs.KeyDarkMode, darkDefault)
	case "dark", "light":
		dark = arg == "dark"
		err = store.SetBool(prefs.KeyDarkMode, dark)
	default:
		return fmt.Errorf("unknown theme %q (want toggle, dark, or light)", arg)
	}
	if err != nil {
		return fmt.Errorf("save theme: %w", err)
	}

	_, err = fmt.Fprintf(w, "theme: %s\n", themeName(dark))
	return err
}

func newThemeCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle|dark|light]",
		Short:     "Show or change the saved theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle", "dark", "light"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := prefs.Open(cfg.Paths.Prefs, nil, logger)
			if err != nil {
				return fmt.Errorf("open preferences: %w", err)
			}

			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			return changeTheme(cmd.OutOrStdout(), store, arg, cfg.TUI.DarkDefault)
		},
	}
}
