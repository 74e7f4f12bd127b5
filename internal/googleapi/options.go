package googleapi

import (
	"errors"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// ErrNoAuthorizer is returned when a client is requested without credentials attached.
var ErrNoAuthorizer = errors.New("no authorizer: sign in first")

func clientOptions(ts oauth2.TokenSource) ([]option.ClientOption, error) {
	if ts == nil {
		return nil, ErrNoAuthorizer
	}
	return []option.ClientOption{
		option.WithTokenSource(ts),
		option.WithUserAgent("gsheets"),
	}, nil
}
