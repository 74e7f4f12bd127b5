package googleapi

import "fmt"

// AuthRequiredError means no usable stored grant exists and prompting is not allowed.
type AuthRequiredError struct {
	Service string
	Email   string
	Cause   error
}

func (e *AuthRequiredError) Error() string {
	if e.Email == "" {
		return fmt.Sprintf("auth required for %s", e.Service)
	}
	return fmt.Sprintf("auth required for %s %s", e.Service, e.Email)
}

func (e *AuthRequiredError) Unwrap() error {
	return e.Cause
}
