package googleauth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// GrantedScopes reads the scopes Google reports in the token response. When
// the response carries none, fallback is returned.
func GrantedScopes(tok *oauth2.Token, fallback []string) []string {
	if tok != nil {
		if raw, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(raw) != "" {
			scopes := strings.Fields(raw)
			sort.Strings(scopes)
			return scopes
		}
	}
	return MergeScopes(fallback, nil)
}

// TokenSource returns an auto-refreshing source seeded with tok. A token that
// only carries a refresh token is refreshed on first use.
func TokenSource(ctx context.Context, tok *oauth2.Token) (oauth2.TokenSource, error) {
	if tok == nil || strings.TrimSpace(tok.RefreshToken) == "" {
		return nil, fmt.Errorf("missing refresh token")
	}
	creds, err := readClientCredentials()
	if err != nil {
		return nil, err
	}
	cfg := oauthConfig(creds, nil, "")
	return cfg.TokenSource(ctx, tok), nil
}

// CheckRefreshToken mints one access token to prove the refresh token still works.
func CheckRefreshToken(ctx context.Context, refreshToken string, scopes []string, timeout time.Duration) error {
	if strings.TrimSpace(refreshToken) == "" {
		return fmt.Errorf("missing refresh token")
	}
	creds, err := readClientCredentials()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cfg := oauthConfig(creds, scopes, "")
	if _, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token(); err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	return nil
}
