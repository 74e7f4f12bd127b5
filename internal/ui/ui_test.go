package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNew_InvalidColor(t *testing.T) {
	_, err := New(Options{Color: "rainbow"})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestPrinter_NeverColor(t *testing.T) {
	var out, errBuf bytes.Buffer
	u, err := New(Options{Stdout: &out, Stderr: &errBuf, Color: "never"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	u.Out().Printf("id\t%s", "s1")
	u.Out().Print("raw")
	u.Err().Error("boom")
	u.Err().Successf("ok %d", 1)

	if out.String() != "id\ts1\nraw" {
		t.Fatalf("unexpected stdout: %q", out.String())
	}
	if errBuf.String() != "boom\nok 1\n" {
		t.Fatalf("unexpected stderr: %q", errBuf.String())
	}
}

func TestPrinter_AlwaysColor(t *testing.T) {
	var errBuf bytes.Buffer
	u, err := New(Options{Stdout: &bytes.Buffer{}, Stderr: &errBuf, Color: "always"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u.Err().Error("boom")
	if !strings.Contains(errBuf.String(), "\x1b[") {
		t.Fatalf("expected ANSI escape, got %q", errBuf.String())
	}
}

func TestContext(t *testing.T) {
	u, _ := New(Options{Color: "never"})
	if FromContext(WithUI(context.Background(), u)) != u {
		t.Fatalf("expected UI from context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected nil UI")
	}
}
