package errfmt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
	ggoogleapi "google.golang.org/api/googleapi"

	"github.com/steipete/gsheets/internal/config"
	"github.com/steipete/gsheets/internal/googleapi"
	"github.com/steipete/gsheets/internal/googleauth"
	"github.com/steipete/gsheets/internal/session"
	"github.com/steipete/gsheets/internal/sheetsclient"
)

func Format(err error) string {
	if err == nil {
		return ""
	}

	var credErr *config.CredentialsMissingError
	if errors.As(err, &credErr) {
		return fmt.Sprintf("OAuth credentials missing. Run: gsheets auth credentials <credentials.json> (expected at %s)", credErr.Path)
	}

	var authErr *googleapi.AuthRequiredError
	if errors.As(err, &authErr) {
		if authErr.Email != "" {
			return fmt.Sprintf("Not signed in as %s. Run: gsheets auth login --account %s", authErr.Email, authErr.Email)
		}
		return "Not signed in. Run: gsheets auth login"
	}

	var scopeErr *session.ScopeDeniedError
	if errors.As(err, &scopeErr) {
		if errors.Is(err, session.ErrInteractionRequired) {
			return fmt.Sprintf("Permission %s is not granted. Run: gsheets auth grant %s", scopeErr.Scope, scopeErr.Scope)
		}
		return scopeErr.Error()
	}

	if errors.Is(err, googleauth.ErrConsentDenied) {
		return "Sign-in cancelled"
	}

	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "Secret not found in keyring (refresh token missing). Run: gsheets auth login"
	}

	if errors.Is(err, os.ErrNotExist) {
		return err.Error()
	}

	var gerr *ggoogleapi.Error
	if errors.As(err, &gerr) {
		reason := ""
		if len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
			reason = gerr.Errors[0].Reason
		}

		if reason != "" {
			return fmt.Sprintf("Google API error (%d %s): %s", gerr.Code, reason, gerr.Message)
		}

		return fmt.Sprintf("Google API error (%d): %s", gerr.Code, gerr.Message)
	}

	var remoteErr *sheetsclient.RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Message
	}

	var authFailed *session.AuthenticationError
	if errors.As(err, &authFailed) {
		return authFailed.Error()
	}

	return formatUsage(err.Error())
}

// formatUsage adds a help hint to flag and argument errors.
func formatUsage(msg string) string {
	if strings.Contains(msg, "Did you mean") || strings.Contains(msg, "did you mean") {
		return msg
	}

	if strings.HasPrefix(msg, "unknown flag") || strings.HasPrefix(msg, "unknown shorthand flag") {
		return msg + "\nRun with --help to see available flags"
	}

	if strings.Contains(msg, "accepts ") || strings.Contains(msg, "requires at least") {
		return msg + "\nRun with --help to see usage"
	}

	return msg
}
