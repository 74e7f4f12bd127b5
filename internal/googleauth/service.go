package googleauth

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

type Service string

const (
	ServiceSheets         Service = "sheets"
	ServiceSheetsReadonly Service = "sheets-readonly"
)

const (
	ScopeSpreadsheets         = "https://www.googleapis.com/auth/spreadsheets"
	ScopeSpreadsheetsReadonly = "https://www.googleapis.com/auth/spreadsheets.readonly"
	ScopeOpenID               = "openid"
	ScopeUserinfoEmail        = "https://www.googleapis.com/auth/userinfo.email"
)

// IdentityScopes are requested on every sign-in so the account email can be resolved.
var IdentityScopes = []string{ScopeOpenID, ScopeUserinfoEmail}

func ParseService(s string) (Service, error) {
	switch Service(strings.ToLower(strings.TrimSpace(s))) {
	case ServiceSheets, ServiceSheetsReadonly:
		return Service(strings.ToLower(strings.TrimSpace(s))), nil
	default:
		return "", fmt.Errorf("unknown service %q (expected sheets|sheets-readonly)", s)
	}
}

// ParseServices parses a comma separated list, dropping duplicates.
func ParseServices(csv string) ([]Service, error) {
	out := make([]Service, 0)
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		svc, err := ParseService(part)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, svc) {
			out = append(out, svc)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no services given")
	}
	return out, nil
}

func AllServices() []Service {
	return []Service{ServiceSheets, ServiceSheetsReadonly}
}

func Scopes(service Service) ([]string, error) {
	switch service {
	case ServiceSheets:
		return []string{ScopeSpreadsheets}, nil
	case ServiceSheetsReadonly:
		return []string{ScopeSpreadsheetsReadonly}, nil
	default:
		return nil, errors.New("unknown service")
	}
}

// ScopesForServices returns the union of the service scopes plus IdentityScopes.
func ScopesForServices(services []Service) ([]string, error) {
	set := make(map[string]struct{})
	for _, s := range IdentityScopes {
		set[s] = struct{}{}
	}
	for _, svc := range services {
		scopes, err := Scopes(svc)
		if err != nil {
			return nil, err
		}
		for _, s := range scopes {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	// stable ordering (useful for tests + auth URL diffs)
	sort.Strings(out)
	return out, nil
}

// HasScope reports whether granted covers want. Read-write spreadsheets access
// implies read-only access.
func HasScope(granted []string, want string) bool {
	if slices.Contains(granted, want) {
		return true
	}
	return want == ScopeSpreadsheetsReadonly && slices.Contains(granted, ScopeSpreadsheets)
}

// ResolveScope maps a service name ("sheets") to its scope; anything else is
// taken to be a scope string already.
func ResolveScope(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty scope")
	}
	if svc, err := ParseService(s); err == nil {
		scopes, scopeErr := Scopes(svc)
		if scopeErr != nil {
			return "", scopeErr
		}
		return scopes[0], nil
	}
	return s, nil
}

// MergeScopes returns the sorted union of a and b.
func MergeScopes(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
