// Package app holds the screen state shared by the CLI and the terminal UI:
// the text view, the alert, and which controls are enabled.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/steipete/gsheets/internal/googleauth"
	"github.com/steipete/gsheets/internal/session"
	"github.com/steipete/gsheets/internal/sheetsclient"
)

const (
	DefaultSpreadsheetID = "1ihIqjfyrQxWYw8YMFR2Z7aKJuv65Z4lUhxn8Eug2CCE"
	DefaultRange         = "Team Name!A2:E"
	DefaultAppendRange   = "Team Name!A:E"

	LoadingText = "Getting sheet data..."
	SuccessText = "Success"

	AuthErrorTitle = "Authentication Error"
	ErrorTitle     = "Error"
)

// ErrBusy is returned when an action starts while another one is running.
var ErrBusy = errors.New("another action is still running")

type Session interface {
	SignInOrRestore(ctx context.Context, consent session.Consent) (session.User, error)
	EnsureScope(ctx context.Context, scope string, consent session.Consent) error
	SignOut()
	Authorizer() (oauth2.TokenSource, error)
	Subscribe(fn func(session.State)) func()
}

type Sheets interface {
	ReadRange(ctx context.Context, spreadsheetID, rangeSpec string) ([][]string, error)
	AppendRow(ctx context.Context, spreadsheetID, rangeSpec string, values []string) (sheetsclient.AppendResult, error)
}

// SheetsFactory builds a sheets client bound to an authorizer.
type SheetsFactory func(ctx context.Context, ts oauth2.TokenSource) (Sheets, error)

type Document struct {
	SpreadsheetID string
	Range         string
	AppendRange   string
}

// WithDefaults fills empty fields with the sample document.
func (d Document) WithDefaults() Document {
	if strings.TrimSpace(d.SpreadsheetID) == "" {
		d.SpreadsheetID = DefaultSpreadsheetID
	}
	if strings.TrimSpace(d.Range) == "" {
		d.Range = DefaultRange
	}
	if strings.TrimSpace(d.AppendRange) == "" {
		d.AppendRange = DefaultAppendRange
	}
	return d
}

type Controls struct {
	SignIn  bool
	Append  bool
	SignOut bool
}

// ControlsFor derives control enablement from the session state.
func ControlsFor(st session.State) Controls {
	if !st.SignedIn {
		return Controls{SignIn: true}
	}
	return Controls{Append: true, SignOut: true}
}

type Alert struct {
	Title   string
	Message string
}

type View struct {
	Text     string
	Alert    *Alert
	Controls Controls
	Email    string
	Busy     bool
}

type Options struct {
	Session  Session
	Sheets   SheetsFactory
	Consent  session.Consent
	Document Document
}

type Controller struct {
	sess        Session
	sheets      SheetsFactory
	consent     session.Consent
	doc         Document
	unsubscribe func()

	mu   sync.Mutex
	view View
}

func New(opts Options) (*Controller, error) {
	if opts.Session == nil {
		return nil, errors.New("app: missing session")
	}
	if opts.Sheets == nil {
		return nil, errors.New("app: missing sheets factory")
	}
	c := &Controller{
		sess:    opts.Session,
		sheets:  opts.Sheets,
		consent: opts.Consent,
		doc:     opts.Document.WithDefaults(),
	}
	c.unsubscribe = c.sess.Subscribe(c.onSessionChange)
	return c, nil
}

// Close stops following session changes.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Controller) Document() Document {
	return c.doc
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	if v.Alert != nil {
		a := *v.Alert
		v.Alert = &a
	}
	return v
}

func (c *Controller) DismissAlert() {
	c.mu.Lock()
	c.view.Alert = nil
	c.mu.Unlock()
}

// SignIn restores or signs in, then lists the sample data.
func (c *Controller) SignIn(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if _, err := c.sess.SignInOrRestore(ctx, c.consent); err != nil {
		c.alert(AuthErrorTitle, err)
		return err
	}
	return c.listMajors(ctx)
}

func (c *Controller) ListMajors(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	return c.listMajors(ctx)
}

func (c *Controller) listMajors(ctx context.Context) error {
	c.setText(LoadingText)

	client, err := c.client(ctx, googleauth.ScopeSpreadsheetsReadonly)
	if err != nil {
		c.alert(titleFor(err), err)
		return err
	}
	rows, err := client.ReadRange(ctx, c.doc.SpreadsheetID, c.doc.Range)
	if err != nil {
		c.alert(ErrorTitle, err)
		return err
	}

	width := 0
	if r, parseErr := sheetsclient.ParseA1Range(c.doc.Range); parseErr == nil {
		width = r.Width()
	}
	c.setText(sheetsclient.FormatMajors(rows, width))
	return nil
}

// Append writes one row to the append range. The text only changes on success.
func (c *Controller) Append(ctx context.Context, values []string) (sheetsclient.AppendResult, error) {
	if err := c.begin(); err != nil {
		return sheetsclient.AppendResult{}, err
	}
	defer c.end()

	if len(values) == 0 {
		err := errors.New("nothing to append")
		c.alert(ErrorTitle, err)
		return sheetsclient.AppendResult{}, err
	}

	client, err := c.client(ctx, googleauth.ScopeSpreadsheets)
	if err != nil {
		c.alert(titleFor(err), err)
		return sheetsclient.AppendResult{}, err
	}
	res, err := client.AppendRow(ctx, c.doc.SpreadsheetID, c.doc.AppendRange, values)
	if err != nil {
		c.alert(ErrorTitle, err)
		return sheetsclient.AppendResult{}, err
	}
	c.setText(SuccessText)
	return res, nil
}

// SignOut forgets the user and clears the text. It fails with ErrBusy while
// another action runs, so an in-flight sign-in cannot re-populate the user.
func (c *Controller) SignOut() error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.sess.SignOut()
	c.setText("")
	return nil
}

func (c *Controller) client(ctx context.Context, scope string) (Sheets, error) {
	if err := c.sess.EnsureScope(ctx, scope, c.consent); err != nil {
		return nil, err
	}
	ts, err := c.sess.Authorizer()
	if err != nil {
		return nil, err
	}
	return c.sheets(ctx, ts)
}

func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.Busy {
		return ErrBusy
	}
	c.view.Busy = true
	c.view.Alert = nil
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.view.Busy = false
	c.mu.Unlock()
}

func (c *Controller) setText(text string) {
	c.mu.Lock()
	c.view.Text = text
	c.mu.Unlock()
}

func (c *Controller) alert(title string, err error) {
	c.mu.Lock()
	c.view.Alert = &Alert{Title: title, Message: err.Error()}
	c.mu.Unlock()
}

func (c *Controller) onSessionChange(st session.State) {
	c.mu.Lock()
	c.view.Controls = ControlsFor(st)
	c.view.Email = st.User.Email
	c.mu.Unlock()
}

func titleFor(err error) string {
	var authErr *session.AuthenticationError
	if errors.As(err, &authErr) {
		return AuthErrorTitle
	}
	return ErrorTitle
}
