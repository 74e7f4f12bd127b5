package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"

	"github.com/steipete/gsheets/internal/secrets"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	return captureFile(t, &os.Stdout, fn)
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	return captureFile(t, &os.Stderr, fn)
}

func captureFile(t *testing.T, target **os.File, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	orig := *target
	*target = w

	done := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	defer func() {
		*target = orig
	}()
	fn()
	_ = w.Close()
	out := <-done
	_ = r.Close()
	return out
}

func newMemSecretsStore() *secrets.KeyringStore {
	return secrets.NewStore(keyring.NewArrayKeyring(nil))
}

// stubSession swaps the auth dependencies for an in-memory store and fake
// token sources. The returned store is what every command sees.
func stubSession(t *testing.T) *secrets.KeyringStore {
	t.Helper()

	origOpen := openSecretsStore
	origKeychain := ensureKeychainAccess
	origTS := tokenSourceFor
	origEmail := fetchAccountEmail
	t.Cleanup(func() {
		openSecretsStore = origOpen
		ensureKeychainAccess = origKeychain
		tokenSourceFor = origTS
		fetchAccountEmail = origEmail
	})

	// Keep config and credentials lookups inside the test.
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	for _, k := range []string{"GSHEETS_ACCOUNT", "GSHEETS_JSON", "GSHEETS_PLAIN", "GSHEETS_SPREADSHEET", "GSHEETS_RANGE", "GSHEETS_KEYRING_BACKEND"} {
		t.Setenv(k, "")
	}

	store := newMemSecretsStore()
	openSecretsStore = func() (secrets.Store, error) { return store, nil }
	ensureKeychainAccess = func() error { return nil }
	tokenSourceFor = func(_ context.Context, tok *oauth2.Token) (oauth2.TokenSource, error) {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "at-" + tok.RefreshToken}), nil
	}
	fetchAccountEmail = func(context.Context, oauth2.TokenSource) (string, error) {
		return "a@b.com", nil
	}
	return store
}
