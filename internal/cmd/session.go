package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/steipete/gsheets/internal/app"
	"github.com/steipete/gsheets/internal/config"
	"github.com/steipete/gsheets/internal/googleapi"
	"github.com/steipete/gsheets/internal/googleauth"
	"github.com/steipete/gsheets/internal/secrets"
	"github.com/steipete/gsheets/internal/session"
	"github.com/steipete/gsheets/internal/sheetsclient"
)

var (
	openSecretsStore     = secrets.OpenDefault
	ensureKeychainAccess = secrets.EnsureKeychainAccess
	authorizeGoogle      = googleauth.Authorize
	tokenSourceFor       = googleauth.TokenSource
	checkRefreshToken    = googleauth.CheckRefreshToken
	fetchAccountEmail    = func(ctx context.Context, ts oauth2.TokenSource) (string, error) {
		return googleapi.FetchEmail(ctx, ts)
	}
	newSheetsService = googleapi.NewSheets
)

// consentOptions tweaks every consent request a command makes.
type consentOptions struct {
	Manual       bool
	ForceConsent bool
	OnURL        func(string)
	Quiet        bool
}

func newSessionManager(flags *rootFlags, services []googleauth.Service) (*session.Manager, error) {
	store, err := openSecretsStore()
	if err != nil {
		return nil, err
	}
	return session.New(session.Options{
		Store:       store,
		Account:     flags.Account,
		Services:    services,
		TokenSource: tokenSourceFor,
		FetchEmail:  fetchAccountEmail,
	})
}

// consentFor returns the browser consent surface, or nil with --no-input so
// the session fails instead of prompting.
func consentFor(flags *rootFlags, opts consentOptions) session.Consent {
	if flags.NoInput {
		return nil
	}
	return session.ConsentFunc(func(ctx context.Context, req googleauth.AuthorizeOptions) (*oauth2.Token, error) {
		if err := ensureKeychainAccess(); err != nil {
			return nil, fmt.Errorf("keychain access: %w", err)
		}
		req.Manual = opts.Manual
		req.ForceConsent = req.ForceConsent || opts.ForceConsent
		req.OnURL = opts.OnURL
		if opts.Quiet {
			req.Prompt = io.Discard
		} else {
			req.Prompt = os.Stderr
		}
		return authorizeGoogle(ctx, req)
	})
}

func sheetsFactory(ctx context.Context, ts oauth2.TokenSource) (app.Sheets, error) {
	svc, err := newSheetsService(ctx, ts)
	if err != nil {
		return nil, err
	}
	client, err := sheetsclient.New(svc)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type documentFlags struct {
	SpreadsheetID string
	Range         string
	AppendRange   string
}

// resolveDocument layers flags over env over config.json over the built-in sample sheet.
func resolveDocument(f documentFlags) (app.Document, error) {
	cfg, err := config.ReadConfig()
	if err != nil {
		return app.Document{}, err
	}
	doc := app.Document{
		SpreadsheetID: firstNonEmpty(f.SpreadsheetID, os.Getenv("GSHEETS_SPREADSHEET"), cfg.SpreadsheetID),
		Range:         firstNonEmpty(f.Range, os.Getenv("GSHEETS_RANGE"), cfg.Range),
		AppendRange:   firstNonEmpty(f.AppendRange, cfg.AppendRange),
	}
	return doc.WithDefaults(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
