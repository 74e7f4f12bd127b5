package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/steipete/gsheets/internal/config"
	"github.com/steipete/gsheets/internal/errfmt"
	"github.com/steipete/gsheets/internal/outfmt"
	"github.com/steipete/gsheets/internal/ui"
)

type rootFlags struct {
	Color   string
	Account string
	JSON    bool
	Plain   bool
	NoInput bool
	Verbose bool
}

func Execute(args []string) error {
	flags := rootFlags{
		Color:   envOr("GSHEETS_COLOR", "auto"),
		Account: os.Getenv("GSHEETS_ACCOUNT"),
	}
	envMode := outfmt.FromEnv()
	flags.JSON = envMode.JSON
	flags.Plain = envMode.Plain

	cobra.EnablePrefixMatching = false

	if hasExactArg(args, "--version") {
		fmt.Fprintln(os.Stdout, VersionString())
		return nil
	}

	root := &cobra.Command{
		Use:           "gsheets",
		Short:         "Google CLI for signing in and reading/appending Google Sheets rows",
		Long:          rootLong(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Example: strings.TrimSpace(`
  # One-time setup (OAuth)
  gsheets auth credentials ~/Downloads/client_secret.json
  gsheets auth login

  # Student majors from the sample sheet
  gsheets majors

  # Any range, as TSV or JSON
  gsheets get <spreadsheetId> 'Sheet1!A1:C10'
  gsheets --json get <spreadsheetId> 'Sheet1!A1:C10' | jq .

  # Append one row (asks for write access on first use)
  gsheets append Bob Male "2. Sophomore" CA Math

  # Interactive screen
  gsheets tui
`),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logLevel := slog.LevelWarn
			if flags.Verbose {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})))

			mode, err := outfmt.FromFlags(flags.JSON, flags.Plain)
			if err != nil {
				return err
			}
			cmd.SetContext(outfmt.WithMode(cmd.Context(), mode))

			u, err := ui.New(ui.Options{
				Stdout: os.Stdout,
				Stderr: os.Stderr,
				Color: func() string {
					if outfmt.IsJSON(cmd.Context()) || outfmt.IsPlain(cmd.Context()) {
						return "never"
					}
					return flags.Color
				}(),
			})
			if err != nil {
				return err
			}
			cmd.SetContext(ui.WithUI(cmd.Context(), u))
			return nil
		},
	}

	root.SetArgs(args)
	root.PersistentFlags().StringVar(&flags.Color, "color", flags.Color, "Color output: auto|always|never")
	root.PersistentFlags().StringVar(&flags.Account, "account", flags.Account, "Account email (defaults to the last signed-in account)")
	root.PersistentFlags().BoolVar(&flags.JSON, "json", flags.JSON, "Output JSON to stdout (best for scripting)")
	root.PersistentFlags().BoolVar(&flags.Plain, "plain", flags.Plain, "Output stable, parseable text to stdout (TSV; no colors)")
	root.PersistentFlags().BoolVar(&flags.NoInput, "no-input", false, "Never prompt or open a browser; fail instead (useful for CI)")
	root.PersistentFlags().BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")

	root.AddCommand(newAuthCmd(&flags))
	root.AddCommand(newMajorsCmd(&flags))
	root.AddCommand(newGetCmd(&flags))
	root.AddCommand(newAppendCmd(&flags))
	root.AddCommand(newTUICmd(&flags))
	root.AddCommand(newVersionCmd())
	root.AddCommand(newCompletionCmd())

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newUsageError(err)
	})

	err := root.Execute()
	if err == nil {
		return nil
	}
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}

	if ExitCode(err) == 1 && isUsageError(err) {
		err = &ExitError{Code: 2, Err: err}
	}

	if u := ui.FromContext(root.Context()); u != nil {
		u.Err().Error(errfmt.Format(err))
		return err
	}
	_, _ = fmt.Fprintln(os.Stderr, errfmt.Format(err))
	return err
}

func rootLong() string {
	cfgPath := "config.json in the user config dir"
	if p, err := config.ConfigPath(); err == nil {
		cfgPath = p
	}
	return strings.TrimSpace(fmt.Sprintf(`
Sign in with Google, then read or append rows of a spreadsheet.

Config: %s (spreadsheet_id, range, append_range, keyring_backend).
The keyring backend can also be set with GSHEETS_KEYRING_BACKEND
(auto|keychain|secret-service|kwallet|pass|wincred|file).
`, cfgPath))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func hasExactArg(args []string, target string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == target {
			return true
		}
	}
	return false
}

// newUsageError wraps errors in a way main() can map to exit code 2.
func newUsageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pflag.ErrHelp) {
		return err
	}
	return &ExitError{Code: 2, Err: err}
}

func isUsageError(err error) bool {
	var outErr *outfmt.ParseError
	if errors.As(err, &outErr) {
		return true
	}
	var uiErr *ui.ParseError
	if errors.As(err, &uiErr) {
		return true
	}
	msg := strings.TrimSpace(err.Error())
	switch {
	case strings.HasPrefix(msg, "accepts "),
		strings.HasPrefix(msg, "requires "),
		strings.HasPrefix(msg, "unknown command"),
		strings.HasPrefix(msg, "invalid argument"),
		strings.HasPrefix(msg, "unknown flag"),
		strings.HasPrefix(msg, "unknown shorthand flag"):
		return true
	default:
		return false
	}
}
