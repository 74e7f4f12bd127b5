// Package tui is the interactive screen: a text view, the sign-in, append and
// sign-out buttons, and a modal alert, driven by an app.Controller.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/steipete/gsheets/internal/app"
	"github.com/steipete/gsheets/internal/sheetsclient"
)

// Controller is the part of app.Controller the screen drives.
type Controller interface {
	View() app.View
	SignIn(ctx context.Context) error
	ListMajors(ctx context.Context) error
	Append(ctx context.Context, values []string) (sheetsclient.AppendResult, error)
	SignOut() error
	DismissAlert()
}

type button int

const (
	buttonSignIn button = iota
	buttonAppend
	buttonSignOut
	buttonCount
)

var buttonLabels = [buttonCount]string{"Sign in", "Append", "Sign out"}

// AuthURLMsg carries the consent URL while the browser flow is pending.
type AuthURLMsg struct {
	URL string
}

type actionDoneMsg struct {
	err error
}

type Model struct {
	ctx    context.Context
	ctrl   Controller
	urls   <-chan string
	keys   KeyMap
	styles Styles

	spinner spinner.Model
	input   textinput.Model

	focus   button
	editing bool
	running bool
	authURL string
	width   int
}

var _ tea.Model = (*Model)(nil)

// New builds the screen. urls may be nil; when set, consent URLs received on
// it are shown until the running action finishes.
func New(ctx context.Context, ctrl Controller, urls <-chan string) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	in := textinput.New()
	in.Placeholder = "Name, Gender, Class Level, Home State, Major"
	in.Prompt = "values> "
	in.CharLimit = 512

	m := &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		urls:    urls,
		keys:    DefaultKeyMap(),
		styles:  NewStyles(DefaultTheme()),
		spinner: sp,
		input:   in,
	}
	m.fixFocus()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("gsheets"), waitForURL(m.urls))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-12)
		return m, nil

	case AuthURLMsg:
		m.authURL = msg.URL
		return m, waitForURL(m.urls)

	case actionDoneMsg:
		m.running = false
		m.authURL = ""
		if msg.err != nil {
			slog.Debug("action failed", "error", msg.err)
		}
		m.fixFocus()
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.ctrl.View().Alert != nil {
		if key.Matches(msg, m.keys.Press, m.keys.Cancel) {
			m.ctrl.DismissAlert()
		}
		return m, nil
	}

	if m.editing {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.stopEditing()
			return m, nil
		case msg.Type == tea.KeyEnter:
			values := splitValues(m.input.Value())
			if len(values) == 0 {
				return m, nil
			}
			m.stopEditing()
			return m, m.start(func(ctx context.Context) error {
				_, err := m.ctrl.Append(ctx, values)
				return err
			})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case m.running:
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.moveFocus(1)
	case key.Matches(msg, m.keys.Prev):
		m.moveFocus(-1)
	case key.Matches(msg, m.keys.Refresh):
		if m.ctrl.View().Controls.Append {
			return m, m.start(m.ctrl.ListMajors)
		}
	case key.Matches(msg, m.keys.Press):
		return m, m.press()
	}
	return m, nil
}

func (m *Model) press() tea.Cmd {
	if !m.enabled(m.focus) {
		return nil
	}
	switch m.focus {
	case buttonSignIn:
		return m.start(m.ctrl.SignIn)
	case buttonAppend:
		m.editing = true
		return m.input.Focus()
	case buttonSignOut:
		if err := m.ctrl.SignOut(); err != nil {
			slog.Debug("sign out", "error", err)
		}
		m.fixFocus()
	}
	return nil
}

func (m *Model) start(fn func(context.Context) error) tea.Cmd {
	m.running = true
	ctx := m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return actionDoneMsg{err: fn(ctx)}
	})
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) enabled(b button) bool {
	c := m.ctrl.View().Controls
	switch b {
	case buttonSignIn:
		return c.SignIn
	case buttonAppend:
		return c.Append
	case buttonSignOut:
		return c.SignOut
	}
	return false
}

// moveFocus steps to the next enabled button in dir, wrapping around.
func (m *Model) moveFocus(dir int) {
	n := int(buttonCount)
	for i := 1; i <= n; i++ {
		next := button(((int(m.focus)+dir*i)%n + n) % n)
		if m.enabled(next) {
			m.focus = next
			return
		}
	}
}

func (m *Model) fixFocus() {
	if m.enabled(m.focus) {
		return
	}
	for b := buttonSignIn; b < buttonCount; b++ {
		if m.enabled(b) {
			m.focus = b
			return
		}
	}
}

// Focused returns the label of the focused button.
func (m *Model) Focused() string {
	return buttonLabels[m.focus]
}

func (m *Model) Running() bool { return m.running }

func (m *Model) Editing() bool { return m.editing }

func (m *Model) View() string {
	v := m.ctrl.View()
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Google Sheets"))
	b.WriteString("\n")
	if v.Email != "" {
		b.WriteString(m.styles.Success.Render("Signed in as " + v.Email))
	} else {
		b.WriteString(m.styles.Muted.Render("Not signed in"))
	}
	b.WriteString("\n\n")

	buttons := make([]string, 0, buttonCount)
	for i := buttonSignIn; i < buttonCount; i++ {
		style := m.styles.Button
		switch {
		case !m.enabled(i):
			style = m.styles.ButtonDisabled
		case i == m.focus:
			style = m.styles.ButtonFocused
		}
		buttons = append(buttons, style.Render(buttonLabels[i]))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	b.WriteString("\n")

	if m.running {
		b.WriteString(m.spinner.View() + " Working...\n")
	}
	if m.authURL != "" {
		b.WriteString(m.styles.Muted.Render("Finish signing in with your browser, or open:"))
		b.WriteString("\n" + m.authURL + "\n")
	}
	if m.editing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("comma separated, enter to append, esc to cancel"))
		b.WriteString("\n")
	}

	text := v.Text
	if text == "" {
		text = " "
	}
	textStyle := m.styles.TextView
	if m.width > 4 {
		textStyle = textStyle.Width(m.width - 4)
	}
	b.WriteString(textStyle.Render(strings.TrimRight(text, "\n")))
	b.WriteString("\n")

	if v.Alert != nil {
		body := m.styles.AlertTitle.Render(v.Alert.Title) + "\n\n" + v.Alert.Message + "\n\n" +
			m.styles.Help.Render("enter/esc to dismiss")
		b.WriteString(m.styles.Alert.Render(body))
		b.WriteString("\n")
	}

	b.WriteString(m.helpLine())
	return b.String()
}

func (m *Model) helpLine() string {
	parts := make([]string, 0, 4)
	for _, k := range m.keys.help() {
		h := k.Help()
		parts = append(parts, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	return m.styles.Help.Render(strings.Join(parts, " • "))
}

func waitForURL(urls <-chan string) tea.Cmd {
	if urls == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-urls
		if !ok {
			return nil
		}
		return AuthURLMsg{URL: u}
	}
}

// splitValues splits comma separated input into trimmed cells. Blank input
// yields no values.
func splitValues(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, ctrl Controller, urls <-chan string, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ctx, ctrl, urls), opts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
