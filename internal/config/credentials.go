package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2/google"
)

// ClientCredentials is the OAuth client registered in Google Cloud Console.
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type CredentialsMissingError struct {
	Path  string
	Cause error
}

func (e *CredentialsMissingError) Error() string {
	return fmt.Sprintf("oauth credentials missing at %s", e.Path)
}

func (e *CredentialsMissingError) Unwrap() error {
	return e.Cause
}

func CredentialsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.json"), nil
}

// ParseClientCredentials accepts the JSON downloaded from Google Cloud Console
// ({"installed": {...}} or {"web": {...}}) as well as the flat form written by
// WriteClientCredentials.
func ParseClientCredentials(data []byte) (ClientCredentials, error) {
	var raw struct {
		Installed json.RawMessage `json:"installed"`
		Web       json.RawMessage `json:"web"`
		ClientCredentials
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ClientCredentials{}, fmt.Errorf("parse credentials: %w", err)
	}

	creds := raw.ClientCredentials
	if raw.Installed != nil || raw.Web != nil {
		cfg, err := google.ConfigFromJSON(data)
		if err != nil {
			return ClientCredentials{}, fmt.Errorf("parse credentials: %w", err)
		}
		creds = ClientCredentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}
	}

	creds.ClientID = strings.TrimSpace(creds.ClientID)
	creds.ClientSecret = strings.TrimSpace(creds.ClientSecret)
	if creds.ClientID == "" {
		return ClientCredentials{}, errors.New("credentials: missing client_id")
	}
	return creds, nil
}

func ReadClientCredentials() (ClientCredentials, error) {
	path, err := CredentialsPath()
	if err != nil {
		return ClientCredentials{}, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the user config dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ClientCredentials{}, &CredentialsMissingError{Path: path, Cause: err}
		}
		return ClientCredentials{}, err
	}
	return ParseClientCredentials(data)
}

func WriteClientCredentials(creds ClientCredentials) (string, error) {
	if _, err := EnsureDir(); err != nil {
		return "", err
	}
	path, err := CredentialsPath()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("write credentials: %w", err)
	}
	return path, nil
}
