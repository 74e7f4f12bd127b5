//go:build darwin

package cmd

import (
	"testing"

	"github.com/steipete/gsheets/internal/secrets"
)

func TestAuthLogin_ChecksKeychainFirst(t *testing.T) {
	err := secrets.EnsureKeychainAccess()
	if err != nil {
		// A locked keychain is expected in some test environments.
		t.Skipf("Keychain appears to be locked, skipping: %v", err)
	}
}
