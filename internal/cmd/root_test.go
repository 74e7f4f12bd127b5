package cmd

import (
	"errors"
	"strings"
	"testing"
)

func TestEnvOr(t *testing.T) {
	t.Setenv("X_TEST", "")
	if got := envOr("X_TEST", "fallback"); got != "fallback" {
		t.Fatalf("unexpected: %q", got)
	}
	t.Setenv("X_TEST", "value")
	if got := envOr("X_TEST", "fallback"); got != "value" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestExecute_Help(t *testing.T) {
	out := captureStdout(t, func() {
		_ = captureStderr(t, func() {
			if err := Execute([]string{"--help"}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})
	if !strings.Contains(out, "Usage:") {
		t.Fatalf("unexpected help output: %q", out)
	}
	if !strings.Contains(out, "config.json") || !strings.Contains(out, "keyring backend") {
		t.Fatalf("expected config info in help output: %q", out)
	}
	for _, sub := range []string{"auth", "majors", "get", "append", "tui"} {
		if !strings.Contains(out, sub) {
			t.Fatalf("expected %q in help output: %q", sub, out)
		}
	}
}

func TestExecute_Version(t *testing.T) {
	out := captureStdout(t, func() {
		if err := Execute([]string{"--version"}); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	})
	if !strings.HasPrefix(out, "gsheets ") {
		t.Fatalf("unexpected version output: %q", out)
	}

	out = captureStdout(t, func() {
		_ = captureStderr(t, func() {
			if err := Execute([]string{"--json", "version"}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})
	if !strings.Contains(out, `"version"`) {
		t.Fatalf("unexpected json version output: %q", out)
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	var err error
	errText := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err = Execute([]string{"no_such_cmd"})
		})
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != 2 {
		t.Fatalf("expected usage exit code, got %d", ExitCode(err))
	}
	if errText == "" {
		t.Fatalf("expected stderr output")
	}
}

func TestExecute_UnknownFlag(t *testing.T) {
	var err error
	errText := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err = Execute([]string{"--definitely-nope"})
		})
	})
	if err == nil || ExitCode(err) != 2 {
		t.Fatalf("expected usage error, got %v", err)
	}
	if errText == "" {
		t.Fatalf("expected stderr output")
	}
}

func TestExecute_JSONAndPlainConflict(t *testing.T) {
	var err error
	_ = captureStderr(t, func() {
		_ = captureStdout(t, func() {
			err = Execute([]string{"--json", "--plain", "version"})
		})
	})
	if ExitCode(err) != 2 {
		t.Fatalf("expected usage exit code, got %v", err)
	}
}

func TestExecute_CompletionBash(t *testing.T) {
	out := captureStdout(t, func() {
		_ = captureStderr(t, func() {
			if err := Execute([]string{"completion", "bash"}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		})
	})
	if !strings.Contains(out, "gsheets") {
		t.Fatalf("unexpected completion output")
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatalf("nil should be 0")
	}
	if ExitCode(errors.New("x")) != 1 {
		t.Fatalf("plain error should be 1")
	}
	wrapped := &ExitError{Code: 2, Err: errors.New("bad flag")}
	if ExitCode(wrapped) != 2 || wrapped.Error() != "bad flag" {
		t.Fatalf("unexpected: %d %q", ExitCode(wrapped), wrapped.Error())
	}
	if (&ExitError{Code: 3}).Error() != "exit status 3" {
		t.Fatalf("unexpected message")
	}
}

func TestHasExactArg(t *testing.T) {
	if !hasExactArg([]string{"auth", "--version"}, "--version") {
		t.Fatalf("expected match")
	}
	if hasExactArg([]string{"append", "--", "--version"}, "--version") {
		t.Fatalf("args after -- are values")
	}
}
