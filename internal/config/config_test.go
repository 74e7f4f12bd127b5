package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func setHome(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg-config"))
}

func TestConfigPath(t *testing.T) {
	setHome(t)

	path, pathErr := ConfigPath()
	if pathErr != nil {
		t.Fatalf("ConfigPath: %v", pathErr)
	}

	if base := filepath.Base(path); base != "config.json" {
		t.Fatalf("unexpected config file: %q", base)
	}

	if dirBase := filepath.Base(filepath.Dir(path)); dirBase != AppName {
		t.Fatalf("unexpected config dir: %q", filepath.Dir(path))
	}
}

func TestReadConfig_Missing(t *testing.T) {
	setHome(t)

	cfg, readErr := ReadConfig()
	if readErr != nil {
		t.Fatalf("ReadConfig: %v", readErr)
	}
	if cfg != (File{}) {
		t.Fatalf("expected empty config, got %#v", cfg)
	}
}

func TestWriteReadConfig(t *testing.T) {
	setHome(t)

	want := File{KeyringBackend: "file", SpreadsheetID: "s1", Range: "Sheet1!A2:E"}
	if err := WriteConfig(want); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	got, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected config: %#v", got)
	}
}

func TestReadConfig_Invalid(t *testing.T) {
	setHome(t)

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o700); mkdirErr != nil {
		t.Fatalf("mkdir: %v", mkdirErr)
	}
	if writeErr := os.WriteFile(path, []byte("{nope"), 0o600); writeErr != nil {
		t.Fatalf("write: %v", writeErr)
	}

	if _, err := ReadConfig(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnsureKeyringDir(t *testing.T) {
	setHome(t)

	dir, err := EnsureKeyringDir()
	if err != nil {
		t.Fatalf("EnsureKeyringDir: %v", err)
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("expected dir at %s: %v", dir, err)
	}
}

func TestParseClientCredentials(t *testing.T) {
	for _, in := range []string{
		`{"installed":{"client_id":"id","client_secret":"sec","redirect_uris":["http://localhost"]}}`,
		`{"web":{"client_id":" id ","client_secret":"sec","redirect_uris":["https://example.com/cb"],"auth_uri":"https://accounts.google.com/o/oauth2/auth"}}`,
		`{"client_id":" id ","client_secret":"sec"}`,
	} {
		creds, err := ParseClientCredentials([]byte(in))
		if err != nil {
			t.Fatalf("parse %s: %v", in, err)
		}
		if creds.ClientID != "id" || creds.ClientSecret != "sec" {
			t.Fatalf("unexpected creds for %s: %#v", in, creds)
		}
	}

	for _, in := range []string{
		`{"installed":{}}`,
		`{"installed":{"client_secret":"sec","redirect_uris":["http://localhost"]}}`,
		`{"installed":{"client_id":"id","client_secret":"sec"}}`,
		`{"client_secret":"sec"}`,
		`not json`,
	} {
		if _, err := ParseClientCredentials([]byte(in)); err == nil {
			t.Fatalf("expected error for %s", in)
		}
	}
}

func TestReadClientCredentials_Missing(t *testing.T) {
	setHome(t)

	_, err := ReadClientCredentials()
	var credErr *CredentialsMissingError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected CredentialsMissingError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist")
	}
}

func TestWriteReadClientCredentials(t *testing.T) {
	setHome(t)

	path, err := WriteClientCredentials(ClientCredentials{ClientID: "id", ClientSecret: "sec"})
	if err != nil {
		t.Fatalf("WriteClientCredentials: %v", err)
	}
	if filepath.Base(path) != "credentials.json" {
		t.Fatalf("unexpected path: %q", path)
	}

	creds, err := ReadClientCredentials()
	if err != nil {
		t.Fatalf("ReadClientCredentials: %v", err)
	}
	if creds.ClientID != "id" || creds.ClientSecret != "sec" {
		t.Fatalf("unexpected creds: %#v", creds)
	}
}
