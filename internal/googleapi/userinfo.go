package googleapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// FetchEmail resolves the signed-in account's email through the userinfo endpoint.
func FetchEmail(ctx context.Context, ts oauth2.TokenSource, extra ...option.ClientOption) (string, error) {
	opts, err := clientOptions(ts)
	if err != nil {
		return "", err
	}

	svc, err := oauth2api.NewService(ctx, append(opts, extra...)...)
	if err != nil {
		return "", fmt.Errorf("create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" {
		return "", errors.New("userinfo response has no email (missing userinfo.email scope?)")
	}
	return email, nil
}
