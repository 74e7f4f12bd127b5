package googleapi

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"google.golang.org/api/sheets/v4"
)

func NewSheets(ctx context.Context, ts oauth2.TokenSource) (*sheets.Service, error) {
	slog.Debug("creating sheets service")

	opts, err := clientOptions(ts)
	if err != nil {
		return nil, err
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}
