//go:build !darwin

package secrets

// EnsureKeychainAccess is a no-op outside macOS.
func EnsureKeychainAccess() error {
	return nil
}
