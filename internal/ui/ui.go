package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Color  string // auto|always|never
}

type ParseError struct {
	msg string
}

func (e *ParseError) Error() string {
	return e.msg
}

type UI struct {
	out *Printer
	err *Printer
}

// Printer writes lines to one stream, colouring status messages when allowed.
type Printer struct {
	w      io.Writer
	output *termenv.Output
}

type ctxKey struct{}

func New(opts Options) (*UI, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	color := strings.ToLower(strings.TrimSpace(opts.Color))
	if color == "" {
		color = "auto"
	}
	if color != "auto" && color != "always" && color != "never" {
		return nil, &ParseError{msg: fmt.Sprintf("invalid --color %q (expected auto|always|never)", opts.Color)}
	}

	return &UI{
		out: newPrinter(opts.Stdout, color),
		err: newPrinter(opts.Stderr, color),
	}, nil
}

func newPrinter(w io.Writer, color string) *Printer {
	var output *termenv.Output
	switch {
	case color == "never" || os.Getenv("NO_COLOR") != "" && color == "auto":
		output = termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	case color == "always":
		output = termenv.NewOutput(w, termenv.WithProfile(termenv.ANSI256))
	default:
		output = termenv.NewOutput(w)
	}
	return &Printer{w: w, output: output}
}

func (u *UI) Out() *Printer { return u.out }
func (u *UI) Err() *Printer { return u.err }

func WithUI(ctx context.Context, u *UI) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) *UI {
	if ctx == nil {
		return nil
	}
	u, _ := ctx.Value(ctxKey{}).(*UI)
	return u
}

func (p *Printer) Println(msg string) {
	fmt.Fprintln(p.w, msg)
}

func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintln(p.w, fmt.Sprintf(format, args...))
}

// Print writes text as-is, without adding a newline.
func (p *Printer) Print(text string) {
	fmt.Fprint(p.w, text)
}

func (p *Printer) Successf(format string, args ...any) {
	p.colored("2", fmt.Sprintf(format, args...))
}

func (p *Printer) Warnf(format string, args ...any) {
	p.colored("3", fmt.Sprintf(format, args...))
}

func (p *Printer) Error(msg string) {
	p.colored("1", msg)
}

func (p *Printer) colored(color, msg string) {
	fmt.Fprintln(p.w, p.output.String(msg).Foreground(p.output.Color(color)).String())
}
