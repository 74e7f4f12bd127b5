package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/steipete/gsheets/internal/app"
	"github.com/steipete/gsheets/internal/googleauth"
	"github.com/steipete/gsheets/internal/outfmt"
	"github.com/steipete/gsheets/internal/session"
	"github.com/steipete/gsheets/internal/sheetsclient"
	"github.com/steipete/gsheets/internal/ui"
)

// Sign-in from the data commands asks for read access only; append asks for
// write access on first use.
var readServices = []googleauth.Service{googleauth.ServiceSheetsReadonly}

func newController(flags *rootFlags, doc app.Document, consent session.Consent) (*app.Controller, *session.Manager, error) {
	mgr, err := newSessionManager(flags, readServices)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := app.New(app.Options{
		Session:  mgr,
		Sheets:   sheetsFactory,
		Consent:  consent,
		Document: doc,
	})
	if err != nil {
		return nil, nil, err
	}
	return ctrl, mgr, nil
}

func newMajorsCmd(flags *rootFlags) *cobra.Command {
	var doc documentFlags
	var manual bool

	cmd := &cobra.Command{
		Use:   "majors",
		Short: "Sign in (or restore) and print student names and majors",
		Long: strings.TrimSpace(`
Sign in (or restore the stored grant), read the configured range and print
"<name>, <major>" for every row. Prints "No data found." for an empty range.

Defaults to the public sample sheet; override with --spreadsheet/--range or
spreadsheet_id/range in config.json.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := resolveDocument(doc)
			if err != nil {
				return err
			}
			ctrl, _, err := newController(flags, d, consentFor(flags, consentOptions{Manual: manual}))
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.SignIn(cmd.Context()); err != nil {
				return err
			}

			v := ctrl.View()
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"spreadsheetId": d.SpreadsheetID,
					"range":         d.Range,
					"email":         v.Email,
					"text":          v.Text,
				})
			}
			_, err = fmt.Fprintln(os.Stdout, strings.TrimRight(v.Text, "\n"))
			return err
		},
	}

	cmd.Flags().StringVar(&doc.SpreadsheetID, "spreadsheet", "", "Spreadsheet ID (default: sample sheet)")
	cmd.Flags().StringVar(&doc.Range, "range", "", "A1 range to read (default: "+app.DefaultRange+")")
	cmd.Flags().BoolVar(&manual, "manual", false, "Paste the redirect URL instead of using a local callback server")
	return cmd
}

func newGetCmd(flags *rootFlags) *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:   "get <spreadsheetId> <range>",
		Short: "Get values from a range",
		Long:  "Get values from a range of a spreadsheet.\nExample: gsheets get 1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms 'Sheet1!A1:B10'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())
			spreadsheetID := strings.TrimSpace(args[0])
			rangeSpec := strings.TrimSpace(args[1])

			client, err := authorizedClient(cmd.Context(), flags, googleauth.ScopeSpreadsheetsReadonly, consentFor(flags, consentOptions{Manual: manual}))
			if err != nil {
				return err
			}
			rows, err := client.ReadRange(cmd.Context(), spreadsheetID, rangeSpec)
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"spreadsheetId": spreadsheetID,
					"range":         rangeSpec,
					"rows":          rows,
				})
			}
			if len(rows) == 0 {
				u.Err().Println(sheetsclient.NoDataText)
				return nil
			}

			if outfmt.IsPlain(cmd.Context()) {
				for _, row := range rows {
					fmt.Fprintln(os.Stdout, strings.Join(row, "\t"))
				}
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, row := range rows {
				fmt.Fprintln(tw, strings.Join(row, "\t"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "Paste the redirect URL instead of using a local callback server")
	return cmd
}

func newAppendCmd(flags *rootFlags) *cobra.Command {
	var doc documentFlags
	var valuesJSON string
	var manual bool

	cmd := &cobra.Command{
		Use:   "append [values...]",
		Short: "Append one row (values are parsed as if typed into the sheet)",
		Long: strings.TrimSpace(`
Append one row to the configured append range. Values are sent with
valueInputOption=USER_ENTERED, so formulas, dates and numbers are parsed.

Asks for write access (incremental consent) when the stored grant is read-only.`),
		Example: strings.TrimSpace(`
  gsheets append Bob Male "2. Sophomore" CA Math
  gsheets append --values-json '["=1+1","2025-01-31"]' --range 'Sheet1!A:B' --spreadsheet <id>`),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())

			values, err := appendValues(args, valuesJSON)
			if err != nil {
				return newUsageError(err)
			}
			d, err := resolveDocument(doc)
			if err != nil {
				return err
			}

			consent := consentFor(flags, consentOptions{Manual: manual})
			ctrl, mgr, err := newController(flags, d, consent)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if _, err := mgr.SignInOrRestore(cmd.Context(), consent); err != nil {
				return err
			}
			res, err := ctrl.Append(cmd.Context(), values)
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"appended":      true,
					"spreadsheetId": d.SpreadsheetID,
					"updatedRange":  res.UpdatedRange,
					"updatedRows":   res.UpdatedRows,
					"updatedCells":  res.UpdatedCells,
				})
			}
			u.Out().Println(ctrl.View().Text)
			if res.UpdatedRange != "" {
				u.Out().Printf("updated\t%s", res.UpdatedRange)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&doc.SpreadsheetID, "spreadsheet", "", "Spreadsheet ID (default: sample sheet)")
	cmd.Flags().StringVar(&doc.AppendRange, "range", "", "A1 range to append after (default: "+app.DefaultAppendRange+")")
	cmd.Flags().StringVar(&valuesJSON, "values-json", "", `Row as a JSON array, e.g. '["a", 1, true]'`)
	cmd.Flags().BoolVar(&manual, "manual", false, "Paste the redirect URL instead of using a local callback server")
	return cmd
}

// authorizedClient signs in (or restores), makes sure scope is granted and
// returns a sheets client bound to the session's authorizer.
func authorizedClient(ctx context.Context, flags *rootFlags, scope string, consent session.Consent) (app.Sheets, error) {
	mgr, err := newSessionManager(flags, readServices)
	if err != nil {
		return nil, err
	}
	if _, err := mgr.SignInOrRestore(ctx, consent); err != nil {
		return nil, err
	}
	if err := mgr.EnsureScope(ctx, scope, consent); err != nil {
		return nil, err
	}
	ts, err := mgr.Authorizer()
	if err != nil {
		return nil, err
	}
	return sheetsFactory(ctx, ts)
}

// appendValues takes either positional values or a JSON array, not both.
func appendValues(args []string, valuesJSON string) ([]string, error) {
	valuesJSON = strings.TrimSpace(valuesJSON)
	switch {
	case valuesJSON != "" && len(args) > 0:
		return nil, errors.New("use either positional values or --values-json, not both")
	case valuesJSON != "":
		var raw []any
		if err := json.Unmarshal([]byte(valuesJSON), &raw); err != nil {
			return nil, fmt.Errorf("invalid --values-json: %w", err)
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			switch t := v.(type) {
			case nil:
				out = append(out, "")
			case string:
				out = append(out, t)
			default:
				b, err := json.Marshal(t)
				if err != nil {
					return nil, err
				}
				out = append(out, string(b))
			}
		}
		if len(out) == 0 {
			return nil, errors.New("--values-json must contain at least one value")
		}
		return out, nil
	case len(args) == 0:
		return nil, errors.New("requires at least one value (or --values-json)")
	default:
		return args, nil
	}
}
