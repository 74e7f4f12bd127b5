package outfmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

type Mode struct {
	JSON  bool
	Plain bool
}

type ParseError struct {
	msg string
}

func (e *ParseError) Error() string {
	return e.msg
}

type ctxKey struct{}

// FromEnv reads GSHEETS_JSON / GSHEETS_PLAIN so scripts can opt in once.
func FromEnv() Mode {
	return Mode{
		JSON:  envBool("GSHEETS_JSON"),
		Plain: envBool("GSHEETS_PLAIN"),
	}
}

func FromFlags(jsonOut, plain bool) (Mode, error) {
	if jsonOut && plain {
		return Mode{}, &ParseError{msg: "invalid output mode (cannot combine --json and --plain)"}
	}
	return Mode{JSON: jsonOut, Plain: plain}, nil
}

func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, ctxKey{}, mode)
}

func FromContext(ctx context.Context) Mode {
	if ctx == nil {
		return Mode{}
	}
	if m, ok := ctx.Value(ctxKey{}).(Mode); ok {
		return m
	}
	return Mode{}
}

func IsJSON(ctx context.Context) bool {
	return FromContext(ctx).JSON
}

func IsPlain(ctx context.Context) bool {
	return FromContext(ctx).Plain
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
