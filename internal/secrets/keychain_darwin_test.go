//go:build darwin

package secrets

import (
	"context"
	"io"
	"strings"
	"testing"
)

func stubSecurity(t *testing.T, fn func(args ...string) error) *[]string {
	t.Helper()
	orig := security
	t.Cleanup(func() { security = orig })

	var calls []string
	security = func(_ context.Context, _ io.Reader, args ...string) error {
		calls = append(calls, args[0])
		return fn(args...)
	}
	return &calls
}

func TestLoginKeychainPath(t *testing.T) {
	if path := loginKeychainPath(); !strings.HasSuffix(path, "login.keychain-db") {
		t.Errorf("unexpected keychain path: %s", path)
	}
}

func TestEnsureKeychainAccess_Unlocked(t *testing.T) {
	t.Setenv(keyringBackendEnv, "")
	calls := stubSecurity(t, func(...string) error { return nil })

	if err := EnsureKeychainAccess(); err != nil {
		t.Fatalf("EnsureKeychainAccess: %v", err)
	}
	if len(*calls) != 1 || (*calls)[0] != "show-keychain-info" {
		t.Fatalf("unexpected calls: %v", *calls)
	}
}

func TestEnsureKeychainAccess_OtherBackend(t *testing.T) {
	t.Setenv(keyringBackendEnv, "file")
	calls := stubSecurity(t, func(...string) error { return errKeychainUnlock })

	if err := EnsureKeychainAccess(); err != nil {
		t.Fatalf("EnsureKeychainAccess: %v", err)
	}
	if len(*calls) != 0 {
		t.Fatalf("keychain should not be touched: %v", *calls)
	}
}
