package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"

	"github.com/steipete/gsheets/internal/config"
	"github.com/steipete/gsheets/internal/googleauth"
	"github.com/steipete/gsheets/internal/outfmt"
	"github.com/steipete/gsheets/internal/secrets"
	"github.com/steipete/gsheets/internal/ui"
)

const refreshCheckTimeout = 15 * time.Second

func newAuthCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Auth and credentials",
	}
	cmd.AddCommand(newAuthCredentialsCmd())
	cmd.AddCommand(newAuthLoginCmd(flags))
	cmd.AddCommand(newAuthLogoutCmd(flags))
	cmd.AddCommand(newAuthStatusCmd(flags))
	cmd.AddCommand(newAuthListCmd())
	cmd.AddCommand(newAuthGrantCmd(flags))
	return cmd
}

func newAuthCredentialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credentials <credentials.json|->",
		Short: "Store OAuth client credentials downloaded from Google Cloud Console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())

			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0]) //nolint:gosec // user-provided path
			}
			if err != nil {
				return fmt.Errorf("read credentials: %w", err)
			}

			creds, err := config.ParseClientCredentials(data)
			if err != nil {
				return err
			}
			path, err := config.WriteClientCredentials(creds)
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"saved": true,
					"path":  path,
				})
			}
			u.Out().Printf("path\t%s", path)
			return nil
		},
	}
}

func newAuthLoginCmd(flags *rootFlags) *cobra.Command {
	var servicesCSV string
	var manual bool
	var forceConsent bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google in the browser and store the grant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())

			services, err := googleauth.ParseServices(servicesCSV)
			if err != nil {
				return newUsageError(err)
			}
			mgr, err := newSessionManager(flags, services)
			if err != nil {
				return err
			}
			user, err := mgr.SignIn(cmd.Context(), consentFor(flags, consentOptions{
				Manual:       manual,
				ForceConsent: forceConsent,
			}))
			if err != nil {
				return err
			}

			names := make([]string, 0, len(services))
			for _, s := range services {
				names = append(names, string(s))
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"stored":   true,
					"email":    user.Email,
					"services": names,
					"scopes":   user.Scopes,
				})
			}
			u.Out().Printf("email\t%s", user.Email)
			u.Out().Printf("services\t%s", strings.Join(names, ","))
			u.Out().Printf("scopes\t%s", strings.Join(user.Scopes, " "))
			return nil
		},
	}

	cmd.Flags().StringVar(&servicesCSV, "services", string(googleauth.ServiceSheets), "Comma-separated services: sheets|sheets-readonly")
	cmd.Flags().BoolVar(&manual, "manual", false, "Paste the redirect URL instead of using a local callback server")
	cmd.Flags().BoolVar(&forceConsent, "force-consent", false, "Always show the consent screen (gets a fresh refresh token)")
	return cmd
}

func newAuthLogoutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Sign out and forget the stored grant",
		Aliases: []string{"signout"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())
			mgr, err := newSessionManager(flags, nil)
			if err != nil {
				return err
			}
			email, err := mgr.Account()
			if err != nil {
				return err
			}
			mgr.SignOut()

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"signed_out": true,
					"email":      email,
				})
			}
			if email == "" {
				u.Err().Println("Not signed in")
				return nil
			}
			u.Out().Printf("signed_out\t%s", email)
			return nil
		},
	}
}

func newAuthStatusCmd(flags *rootFlags) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in account, granted scopes and config paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())

			configPath, _ := config.ConfigPath()
			credsPath, _ := config.CredentialsPath()
			_, credsErr := config.ReadClientCredentials()
			cfg, err := config.ReadConfig()
			if err != nil {
				return err
			}

			mgr, err := newSessionManager(flags, nil)
			if err != nil {
				return err
			}
			email, err := mgr.Account()
			if err != nil {
				return err
			}

			var tok secrets.Token
			signedIn := false
			if email != "" {
				store, storeErr := openSecretsStore()
				if storeErr != nil {
					return storeErr
				}
				tok, err = store.GetToken(email)
				switch {
				case err == nil:
					signedIn = true
				case errors.Is(err, keyring.ErrKeyNotFound):
				default:
					return err
				}
			}

			valid, checkErr := "", ""
			if check && signedIn {
				if err := checkRefreshToken(cmd.Context(), tok.RefreshToken, tok.Scopes, refreshCheckTimeout); err != nil {
					valid, checkErr = "false", err.Error()
				} else {
					valid = "true"
				}
			}

			if outfmt.IsJSON(cmd.Context()) {
				out := map[string]any{
					"signed_in":           signedIn,
					"email":               email,
					"scopes":              tok.Scopes,
					"services":            tok.Services,
					"config_path":         configPath,
					"credentials_path":    credsPath,
					"credentials_present": credsErr == nil,
					"keyring_backend":     firstNonEmpty(os.Getenv("GSHEETS_KEYRING_BACKEND"), cfg.KeyringBackend, "auto"),
				}
				if !tok.CreatedAt.IsZero() {
					out["created_at"] = tok.CreatedAt.Format(time.RFC3339)
				}
				if valid != "" {
					out["valid"] = valid == "true"
					if checkErr != "" {
						out["error"] = checkErr
					}
				}
				return outfmt.WriteJSON(os.Stdout, out)
			}

			if signedIn {
				u.Out().Printf("email\t%s", email)
				u.Out().Printf("scopes\t%s", strings.Join(tok.Scopes, " "))
				if !tok.CreatedAt.IsZero() {
					u.Out().Printf("created\t%s", tok.CreatedAt.Format(time.RFC3339))
				}
				if valid != "" {
					u.Out().Printf("valid\t%s", valid)
				}
				if checkErr != "" {
					u.Out().Printf("error\t%s", checkErr)
				}
			} else {
				u.Err().Println("Not signed in")
			}
			u.Out().Printf("config\t%s", configPath)
			u.Out().Printf("credentials\t%s (present: %t)", credsPath, credsErr == nil)
			u.Out().Printf("keyring\t%s", firstNonEmpty(os.Getenv("GSHEETS_KEYRING_BACKEND"), cfg.KeyringBackend, "auto"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Verify the refresh token by exchanging it for an access token")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := ui.FromContext(cmd.Context())
			store, err := openSecretsStore()
			if err != nil {
				return err
			}
			tokens, err := store.ListTokens()
			if err != nil {
				return err
			}
			def, err := store.GetDefaultAccount()
			if err != nil {
				return err
			}

			type item struct {
				Email     string   `json:"email"`
				Default   bool     `json:"default"`
				Services  []string `json:"services,omitempty"`
				Scopes    []string `json:"scopes,omitempty"`
				CreatedAt string   `json:"created_at,omitempty"`
				Valid     *bool    `json:"valid,omitempty"`
				Error     string   `json:"error,omitempty"`
			}
			items := make([]item, 0, len(tokens))
			for _, t := range tokens {
				it := item{
					Email:    t.Email,
					Default:  t.Email == def,
					Services: t.Services,
					Scopes:   t.Scopes,
				}
				if !t.CreatedAt.IsZero() {
					it.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
				}
				if check {
					ok := true
					if err := checkRefreshToken(cmd.Context(), t.RefreshToken, t.Scopes, refreshCheckTimeout); err != nil {
						ok = false
						it.Error = err.Error()
					}
					it.Valid = &ok
				}
				items = append(items, it)
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"accounts": items})
			}
			if len(items) == 0 {
				u.Err().Println("No tokens stored")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, it := range items {
				marker := ""
				if it.Default {
					marker = "*"
				}
				if check {
					fmt.Fprintf(tw, "%s%s\t%s\t%t\t%s\n", it.Email, marker, strings.Join(it.Services, ","), *it.Valid, it.Error)
					continue
				}
				fmt.Fprintf(tw, "%s%s\t%s\t%s\n", it.Email, marker, strings.Join(it.Services, ","), it.CreatedAt)
			}
			_ = tw.Flush()
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Verify each refresh token")
	return cmd
}

func newAuthGrantCmd(flags *rootFlags) *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:   "grant <scope|service>",
		Short: "Request one more permission for the signed-in account (incremental consent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())
			scope, err := googleauth.ResolveScope(args[0])
			if err != nil {
				return newUsageError(err)
			}

			mgr, err := newSessionManager(flags, []googleauth.Service{googleauth.ServiceSheetsReadonly})
			if err != nil {
				return err
			}
			consent := consentFor(flags, consentOptions{Manual: manual})
			if _, err := mgr.SignInOrRestore(cmd.Context(), consent); err != nil {
				return err
			}
			if err := mgr.EnsureScope(cmd.Context(), scope, consent); err != nil {
				return err
			}

			user, _ := mgr.Current()
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"email":  user.Email,
					"scopes": user.Scopes,
				})
			}
			u.Out().Printf("email\t%s", user.Email)
			u.Out().Printf("scopes\t%s", strings.Join(user.Scopes, " "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "Paste the redirect URL instead of using a local callback server")
	return cmd
}
