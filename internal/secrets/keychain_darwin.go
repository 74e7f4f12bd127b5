//go:build darwin

package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

var errKeychainUnlock = errors.New("unlock keychain: incorrect password or keychain error")

// security runs /usr/bin/security; tests replace it.
var security = func(ctx context.Context, stdin io.Reader, args ...string) error {
	cmd := exec.CommandContext(ctx, "security", args...)
	cmd.Stdin = stdin
	return cmd.Run()
}

func loginKeychainPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Keychains", "login.keychain-db")
}

// EnsureKeychainAccess unlocks the login keychain before a sign-in stores a
// refresh token, prompting for the login password on a terminal. It is a
// no-op when another keyring backend is configured.
func EnsureKeychainAccess() error {
	if b := strings.ToLower(strings.TrimSpace(os.Getenv(keyringBackendEnv))); b != "" && b != "auto" && b != "keychain" {
		return nil
	}
	path := loginKeychainPath()
	if path == "" {
		return nil
	}
	ctx := context.Background()
	if security(ctx, nil, "show-keychain-info", path) == nil {
		return nil
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec // fd fits in int
	if !term.IsTerminal(fd) {
		return errors.New("keychain is locked and there is no terminal to ask for the password\n\n" + unlockHint)
	}
	fmt.Fprint(os.Stderr, "Keychain is locked. Enter your macOS login password to unlock: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	// stdin keeps the password out of the process list.
	if err := security(ctx, strings.NewReader(string(password)+"\n"), "unlock-keychain", path); err != nil {
		return errKeychainUnlock
	}
	return nil
}
