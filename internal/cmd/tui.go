package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/steipete/gsheets/internal/tui"
)

var (
	stdoutIsTerminal = func() bool {
		return term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
	}
	runTUI = func(cmd *cobra.Command, ctrl tui.Controller, urls <-chan string) error {
		return tui.Run(cmd.Context(), ctrl, urls, tea.WithAltScreen())
	}
)

func newTUICmd(flags *rootFlags) *cobra.Command {
	var doc documentFlags

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive screen",
		Long: `Launch the interactive screen: sign in, see the majors list, append a row
and sign out.

Controls:
  tab/←/→  - Move between buttons
  Enter    - Press the focused button
  r        - Reload the list
  Esc      - Dismiss an alert / cancel input
  q        - Quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if flags.JSON || flags.Plain {
				return newUsageError(errors.New("tui does not support --json/--plain"))
			}
			if !stdoutIsTerminal() {
				return errors.New("tui needs an interactive terminal")
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("tui panic: %v\n%s", r, debug.Stack())
				}
			}()

			d, err := resolveDocument(doc)
			if err != nil {
				return err
			}

			urls := make(chan string, 1)
			consent := consentFor(flags, consentOptions{
				Quiet: true,
				OnURL: func(u string) {
					select {
					case urls <- u:
					default:
					}
				},
			})
			ctrl, mgr, err := newController(flags, d, consent)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			// Restore silently so a returning user starts signed in. A failed
			// read shows up as the alert on the first frame.
			if _, ok := mgr.Restore(cmd.Context()); ok {
				if err := ctrl.ListMajors(cmd.Context()); err != nil {
					slog.Debug("initial read failed", "error", err)
				}
			}
			return runTUI(cmd, ctrl, urls)
		},
	}

	cmd.Flags().StringVar(&doc.SpreadsheetID, "spreadsheet", "", "Spreadsheet ID (default: sample sheet)")
	cmd.Flags().StringVar(&doc.Range, "range", "", "A1 range to read")
	cmd.Flags().StringVar(&doc.AppendRange, "append-range", "", "A1 range to append after")
	return cmd
}
