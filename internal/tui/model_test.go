package tui

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/steipete/gsheets/internal/app"
	"github.com/steipete/gsheets/internal/sheetsclient"
)

type fakeController struct {
	view      app.View
	signInErr error
	appended  [][]string
	listed    int
	signOuts  int
}

func newSignedOut() *fakeController {
	return &fakeController{view: app.View{Controls: app.Controls{SignIn: true}}}
}

func newSignedIn() *fakeController {
	return &fakeController{view: app.View{
		Controls: app.Controls{Append: true, SignOut: true},
		Email:    "a@b.com",
		Text:     "Name, Major:\nAlice, CS\n",
	}}
}

func (f *fakeController) View() app.View { return f.view }

func (f *fakeController) SignIn(context.Context) error {
	if f.signInErr != nil {
		f.view.Alert = &app.Alert{Title: app.AuthErrorTitle, Message: f.signInErr.Error()}
		return f.signInErr
	}
	f.view.Controls = app.Controls{Append: true, SignOut: true}
	f.view.Email = "a@b.com"
	f.view.Text = "Name, Major:\nAlice, CS\n"
	return nil
}

func (f *fakeController) ListMajors(context.Context) error {
	f.listed++
	return nil
}

func (f *fakeController) Append(_ context.Context, values []string) (sheetsclient.AppendResult, error) {
	f.appended = append(f.appended, values)
	f.view.Text = app.SuccessText
	return sheetsclient.AppendResult{UpdatedRows: 1}, nil
}

func (f *fakeController) SignOut() error {
	f.signOuts++
	f.view = app.View{Controls: app.Controls{SignIn: true}}
	return nil
}

func (f *fakeController) DismissAlert() { f.view.Alert = nil }

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and nested batches. Only action results are fed back into
// the model; spinner ticks would re-arm forever.
func drain(t *testing.T, m *Model, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		out = append(out, msg)
		if done, ok := msg.(actionDoneMsg); ok {
			m.Update(done)
		}
	}
	return out
}

func wantFocus(t *testing.T, m *Model, want string) {
	t.Helper()
	if got := m.Focused(); got != want {
		t.Fatalf("focused %q, want %q", got, want)
	}
}

func wantView(t *testing.T, m *Model, subs ...string) {
	t.Helper()
	view := m.View()
	for _, sub := range subs {
		if !strings.Contains(view, sub) {
			t.Fatalf("view missing %q:\n%s", sub, view)
		}
	}
}

func TestNew_FocusesFirstEnabledButton(t *testing.T) {
	wantFocus(t, New(context.Background(), newSignedOut(), nil), "Sign in")
	wantFocus(t, New(context.Background(), newSignedIn(), nil), "Append")
}

func TestModel_Init(t *testing.T) {
	m := New(context.Background(), newSignedOut(), nil)
	if m.Init() == nil {
		t.Fatalf("expected init cmd")
	}
}

func TestModel_FocusSkipsDisabledButtons(t *testing.T) {
	m := New(context.Background(), newSignedIn(), nil)

	m.Update(keyPress("tab"))
	wantFocus(t, m, "Sign out")

	m.Update(keyPress("tab"))
	wantFocus(t, m, "Append")

	m.Update(keyPress("left"))
	wantFocus(t, m, "Sign out")

	signedOut := New(context.Background(), newSignedOut(), nil)
	signedOut.Update(keyPress("l"))
	wantFocus(t, signedOut, "Sign in")
}

func TestModel_SignInRunsAction(t *testing.T) {
	ctrl := newSignedOut()
	m := New(context.Background(), ctrl, nil)

	_, cmd := m.Update(keyPress("enter"))
	if cmd == nil {
		t.Fatalf("expected action cmd")
	}
	if !m.Running() {
		t.Fatalf("expected running")
	}

	drain(t, m, cmd)
	if m.Running() {
		t.Fatalf("expected action to finish")
	}
	wantFocus(t, m, "Append")
	wantView(t, m, "Signed in as a@b.com", "Alice, CS")
}

func TestModel_SignInFailureShowsAlert(t *testing.T) {
	ctrl := newSignedOut()
	ctrl.signInErr = errors.New("consent denied by user")
	m := New(context.Background(), ctrl, nil)

	_, cmd := m.Update(keyPress("enter"))
	drain(t, m, cmd)
	wantView(t, m, app.AuthErrorTitle, "consent denied by user")

	// Keys other than enter/esc are swallowed by the alert.
	m.Update(keyPress("tab"))
	if ctrl.view.Alert == nil {
		t.Fatalf("alert dismissed by tab")
	}

	m.Update(keyPress("esc"))
	if ctrl.view.Alert != nil {
		t.Fatalf("expected alert dismissed")
	}
	if strings.Contains(m.View(), app.AuthErrorTitle) {
		t.Fatalf("alert still rendered:\n%s", m.View())
	}
}

func TestModel_AppendFlow(t *testing.T) {
	ctrl := newSignedIn()
	m := New(context.Background(), ctrl, nil)

	m.Update(keyPress("enter"))
	if !m.Editing() {
		t.Fatalf("expected input mode")
	}
	wantView(t, m, "values>")

	m.Update(keyPress("Bob, Math"))
	_, cmd := m.Update(keyPress("enter"))
	if cmd == nil {
		t.Fatalf("expected append cmd")
	}
	if m.Editing() {
		t.Fatalf("expected input mode to end")
	}

	drain(t, m, cmd)
	if len(ctrl.appended) != 1 || !reflect.DeepEqual(ctrl.appended[0], []string{"Bob", "Math"}) {
		t.Fatalf("unexpected appends: %#v", ctrl.appended)
	}
	wantView(t, m, app.SuccessText)
}

func TestModel_AppendTypingQDoesNotQuit(t *testing.T) {
	m := New(context.Background(), newSignedIn(), nil)
	m.Update(keyPress("enter"))

	m.Update(keyPress("q"))
	if !m.Editing() || m.input.Value() != "q" {
		t.Fatalf("editing=%v value=%q", m.Editing(), m.input.Value())
	}
}

func TestModel_AppendCancel(t *testing.T) {
	ctrl := newSignedIn()
	m := New(context.Background(), ctrl, nil)

	m.Update(keyPress("enter"))
	m.Update(keyPress("x"))
	m.Update(keyPress("esc"))

	if m.Editing() || len(ctrl.appended) != 0 {
		t.Fatalf("editing=%v appended=%#v", m.Editing(), ctrl.appended)
	}
}

func TestModel_AppendIgnoresBlankInput(t *testing.T) {
	ctrl := newSignedIn()
	m := New(context.Background(), ctrl, nil)

	m.Update(keyPress("enter"))
	_, cmd := m.Update(keyPress("enter"))

	if cmd != nil {
		t.Fatalf("expected no cmd for blank input")
	}
	if !m.Editing() || len(ctrl.appended) != 0 {
		t.Fatalf("editing=%v appended=%#v", m.Editing(), ctrl.appended)
	}
}

func TestModel_SignOutRestoresSignedOutControls(t *testing.T) {
	ctrl := newSignedIn()
	m := New(context.Background(), ctrl, nil)

	m.Update(keyPress("tab"))
	wantFocus(t, m, "Sign out")
	m.Update(keyPress("enter"))

	if ctrl.signOuts != 1 {
		t.Fatalf("signOuts=%d", ctrl.signOuts)
	}
	wantFocus(t, m, "Sign in")
	wantView(t, m, "Not signed in")
}

func TestModel_RefreshOnlyWhenSignedIn(t *testing.T) {
	out := newSignedOut()
	m := New(context.Background(), out, nil)
	if _, cmd := m.Update(keyPress("r")); cmd != nil {
		t.Fatalf("refresh while signed out")
	}

	in := newSignedIn()
	m = New(context.Background(), in, nil)
	_, cmd := m.Update(keyPress("r"))
	drain(t, m, cmd)
	if in.listed != 1 {
		t.Fatalf("listed=%d", in.listed)
	}
}

func TestModel_Quit(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		m := New(context.Background(), newSignedOut(), nil)
		_, cmd := m.Update(keyPress(key))
		if cmd == nil {
			t.Fatalf("%s: expected quit cmd", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected QuitMsg", key)
		}
	}
}

func TestModel_AuthURLShownWhileRunning(t *testing.T) {
	urls := make(chan string, 1)
	m := New(context.Background(), newSignedOut(), urls)

	m.Update(keyPress("enter"))
	_, cmd := m.Update(AuthURLMsg{URL: "https://accounts.google.com/o/oauth2/auth?x=1"})
	if cmd == nil {
		t.Fatalf("expected url wait to re-arm")
	}
	wantView(t, m, "https://accounts.google.com/o/oauth2/auth?x=1")

	m.Update(actionDoneMsg{})
	if strings.Contains(m.View(), "accounts.google.com") {
		t.Fatalf("url still shown:\n%s", m.View())
	}
}

func TestWaitForURL(t *testing.T) {
	if waitForURL(nil) != nil {
		t.Fatalf("expected nil cmd for nil channel")
	}

	urls := make(chan string, 1)
	urls <- "https://example.com/auth"
	if msg := waitForURL(urls)(); msg != (AuthURLMsg{URL: "https://example.com/auth"}) {
		t.Fatalf("unexpected msg: %#v", msg)
	}

	close(urls)
	if msg := waitForURL(urls)(); msg != nil {
		t.Fatalf("expected nil msg after close, got %#v", msg)
	}
}

func TestSplitValues(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"Bob", []string{"Bob"}},
		{"Bob, Male, 2. Sophomore , CA,Math", []string{"Bob", "Male", "2. Sophomore", "CA", "Math"}},
		{"a,,b", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		if got := splitValues(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("splitValues(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestModel_WindowSize(t *testing.T) {
	m := New(context.Background(), newSignedIn(), nil)
	model, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if model != m || cmd != nil {
		t.Fatalf("model=%v cmd=%v", model, cmd)
	}
	wantView(t, m, "Alice, CS")
}
