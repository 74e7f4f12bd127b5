// Package session owns the signed-in Google account: it restores stored grants
// silently, runs interactive consent when needed, and hands out the authorizer
// (an oauth2.TokenSource) that API clients attach to outgoing requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"

	"github.com/steipete/gsheets/internal/googleapi"
	"github.com/steipete/gsheets/internal/googleauth"
	"github.com/steipete/gsheets/internal/secrets"
)

// ErrInteractionRequired is the cause reported when consent is needed but no
// consent surface was supplied (for example with --no-input).
var ErrInteractionRequired = errors.New("interactive sign-in required")

// Consent presents the identity provider's consent flow.
type Consent interface {
	Authorize(ctx context.Context, opts googleauth.AuthorizeOptions) (*oauth2.Token, error)
}

type ConsentFunc func(ctx context.Context, opts googleauth.AuthorizeOptions) (*oauth2.Token, error)

func (f ConsentFunc) Authorize(ctx context.Context, opts googleauth.AuthorizeOptions) (*oauth2.Token, error) {
	return f(ctx, opts)
}

type User struct {
	Email  string
	Scopes []string
}

func (u User) HasScope(scope string) bool {
	return googleauth.HasScope(u.Scopes, scope)
}

// State is the observable value: either no user or a user with granted scopes.
type State struct {
	User     User
	SignedIn bool
}

type Options struct {
	Store    secrets.Store
	Account  string
	Services []googleauth.Service

	TokenSource func(ctx context.Context, tok *oauth2.Token) (oauth2.TokenSource, error)
	FetchEmail  func(ctx context.Context, ts oauth2.TokenSource) (string, error)
}

type Manager struct {
	store       secrets.Store
	account     string
	services    []googleauth.Service
	scopes      []string
	tokenSource func(ctx context.Context, tok *oauth2.Token) (oauth2.TokenSource, error)
	fetchEmail  func(ctx context.Context, ts oauth2.TokenSource) (string, error)

	mu         sync.Mutex
	user       *User
	authorizer oauth2.TokenSource
	nextID     int
	observers  map[int]func(State)
}

func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("session: missing secrets store")
	}
	services := opts.Services
	if len(services) == 0 {
		services = []googleauth.Service{googleauth.ServiceSheets}
	}
	scopes, err := googleauth.ScopesForServices(services)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:       opts.Store,
		account:     strings.ToLower(strings.TrimSpace(opts.Account)),
		services:    services,
		scopes:      scopes,
		tokenSource: opts.TokenSource,
		fetchEmail:  opts.FetchEmail,
		observers:   make(map[int]func(State)),
	}
	if m.tokenSource == nil {
		m.tokenSource = googleauth.TokenSource
	}
	if m.fetchEmail == nil {
		m.fetchEmail = func(ctx context.Context, ts oauth2.TokenSource) (string, error) {
			return googleapi.FetchEmail(ctx, ts)
		}
	}
	return m, nil
}

// Scopes returns the scopes requested on sign-in.
func (m *Manager) Scopes() []string {
	return slices.Clone(m.scopes)
}

func (m *Manager) Current() (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked().User, m.user != nil
}

// Subscribe registers fn for state changes. fn is called once right away with
// the current state. The returned func unregisters it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	st := m.stateLocked()
	m.mu.Unlock()

	fn(st)
	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Authorizer returns the credential for the current user.
func (m *Manager) Authorizer() (oauth2.TokenSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.authorizer == nil {
		return nil, &AuthenticationError{Err: ErrNotSignedIn}
	}
	return m.authorizer, nil
}

// Restore silently restores a stored grant that covers the required scopes.
func (m *Manager) Restore(ctx context.Context) (User, bool) {
	if u, ok := m.Current(); ok {
		return u, true
	}
	u, ts, err := m.restore(ctx)
	if err != nil {
		slog.Debug("silent restore unavailable", "error", err)
		return User{}, false
	}
	m.set(&u, ts)
	slog.Debug("restored session", "email", u.Email)
	return u, true
}

func (m *Manager) restore(ctx context.Context) (User, oauth2.TokenSource, error) {
	email, err := m.resolveAccount()
	if err != nil {
		return User{}, nil, err
	}
	if email == "" {
		return User{}, nil, ErrNotSignedIn
	}
	tok, err := m.store.GetToken(email)
	if err != nil {
		return User{}, nil, fmt.Errorf("load token for %s: %w", email, err)
	}
	for _, scope := range m.scopes {
		if slices.Contains(googleauth.IdentityScopes, scope) {
			continue
		}
		if !googleauth.HasScope(tok.Scopes, scope) {
			return User{}, nil, fmt.Errorf("stored grant for %s lacks %s", email, scope)
		}
	}
	ts, err := m.tokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	if err != nil {
		return User{}, nil, err
	}
	return User{Email: email, Scopes: slices.Clone(tok.Scopes)}, ts, nil
}

// SignInOrRestore returns the current user, restoring a stored grant or
// running interactive consent through consent. Failures leave state unset.
func (m *Manager) SignInOrRestore(ctx context.Context, consent Consent) (User, error) {
	if u, ok := m.Restore(ctx); ok {
		return u, nil
	}
	return m.SignIn(ctx, consent)
}

// SignIn always runs interactive consent, replacing any stored grant on success.
func (m *Manager) SignIn(ctx context.Context, consent Consent) (User, error) {
	hint, err := m.resolveAccount()
	if err != nil {
		slog.Debug("resolve account", "error", err)
	}
	if consent == nil {
		return User{}, &AuthenticationError{Err: &googleapi.AuthRequiredError{
			Service: string(googleauth.ServiceSheets),
			Email:   hint,
			Cause:   ErrInteractionRequired,
		}}
	}

	tok, err := consent.Authorize(ctx, googleauth.AuthorizeOptions{
		Services:  m.services,
		Scopes:    m.scopes,
		LoginHint: hint,
	})
	if err != nil {
		return User{}, &AuthenticationError{Err: err}
	}
	if tok == nil || tok.RefreshToken == "" {
		return User{}, &AuthenticationError{Err: errNoRefreshToken}
	}

	ts, err := m.tokenSource(ctx, tok)
	if err != nil {
		return User{}, &AuthenticationError{Err: err}
	}
	email, err := m.fetchEmail(ctx, ts)
	if err != nil {
		return User{}, &AuthenticationError{Err: err}
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if m.account != "" && email != m.account {
		return User{}, &AuthenticationError{Err: fmt.Errorf("signed in as %s, expected %s", email, m.account)}
	}

	scopes := googleauth.GrantedScopes(tok, m.scopes)
	if err := m.store.SetToken(email, secrets.Token{
		Email:        email,
		Services:     serviceNames(m.services),
		Scopes:       scopes,
		RefreshToken: tok.RefreshToken,
	}); err != nil {
		return User{}, &AuthenticationError{Err: fmt.Errorf("store token: %w", err)}
	}
	if err := m.store.SetDefaultAccount(email); err != nil {
		slog.Warn("could not remember default account", "email", email, "error", err)
	}

	u := User{Email: email, Scopes: scopes}
	m.set(&u, ts)
	slog.Debug("signed in", "email", email, "scopes", strings.Join(scopes, " "))
	return u, nil
}

// EnsureScope requests incremental consent for scope when the current user
// has not granted it yet.
func (m *Manager) EnsureScope(ctx context.Context, scope string, consent Consent) error {
	u, ok := m.Current()
	if !ok {
		return &AuthenticationError{Err: ErrNotSignedIn}
	}
	if u.HasScope(scope) {
		return nil
	}
	if consent == nil {
		return &ScopeDeniedError{Scope: scope, Err: ErrInteractionRequired}
	}

	tok, err := consent.Authorize(ctx, googleauth.AuthorizeOptions{
		Scopes:               []string{scope},
		LoginHint:            u.Email,
		IncludeGrantedScopes: true,
	})
	if err != nil {
		return &ScopeDeniedError{Scope: scope, Err: err}
	}
	if tok == nil {
		return &ScopeDeniedError{Scope: scope}
	}

	granted := googleauth.MergeScopes(u.Scopes, googleauth.GrantedScopes(tok, []string{scope}))
	if !googleauth.HasScope(granted, scope) {
		return &ScopeDeniedError{Scope: scope}
	}

	stored, err := m.store.GetToken(u.Email)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("load token for %s: %w", u.Email, err)
	}
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = stored.RefreshToken
	}
	if refresh == "" {
		return &ScopeDeniedError{Scope: scope, Err: errNoRefreshToken}
	}
	seeded := *tok
	seeded.RefreshToken = refresh

	ts, err := m.tokenSource(ctx, &seeded)
	if err != nil {
		return err
	}
	if err := m.store.SetToken(u.Email, secrets.Token{
		Email:        u.Email,
		Services:     stored.Services,
		Scopes:       granted,
		CreatedAt:    stored.CreatedAt,
		RefreshToken: refresh,
	}); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	m.set(&User{Email: u.Email, Scopes: granted}, ts)
	slog.Debug("scope granted", "email", u.Email, "scope", scope)
	return nil
}

// SignOut clears the current user and forgets the stored grant. It never fails;
// keyring errors are logged.
func (m *Manager) SignOut() {
	m.mu.Lock()
	var email string
	if m.user != nil {
		email = m.user.Email
	}
	m.user = nil
	m.authorizer = nil
	m.mu.Unlock()

	if email == "" {
		resolved, err := m.resolveAccount()
		if err != nil {
			slog.Debug("resolve account", "error", err)
		}
		email = resolved
	}
	if email != "" {
		if err := m.store.DeleteToken(email); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			slog.Warn("could not delete stored token", "email", email, "error", err)
		}
	}
	if err := m.store.ClearDefaultAccount(); err != nil {
		slog.Warn("could not clear default account", "error", err)
	}

	m.notify()
}

// Account returns the account the manager acts for without signing in. It is
// empty when nothing is stored and no account was given.
func (m *Manager) Account() (string, error) {
	if u, ok := m.Current(); ok {
		return u.Email, nil
	}
	return m.resolveAccount()
}

// resolveAccount picks the explicit account, then the stored default, then
// the only stored token.
func (m *Manager) resolveAccount() (string, error) {
	if m.account != "" {
		return m.account, nil
	}
	def, err := m.store.GetDefaultAccount()
	if err != nil {
		return "", err
	}
	if def != "" {
		return def, nil
	}
	tokens, err := m.store.ListTokens()
	if err != nil {
		return "", err
	}
	if len(tokens) == 1 {
		return tokens[0].Email, nil
	}
	return "", nil
}

func (m *Manager) set(u *User, ts oauth2.TokenSource) {
	m.mu.Lock()
	m.user = u
	m.authorizer = ts
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.mu.Lock()
	st := m.stateLocked()
	fns := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (m *Manager) stateLocked() State {
	if m.user == nil {
		return State{}
	}
	return State{
		User:     User{Email: m.user.Email, Scopes: slices.Clone(m.user.Scopes)},
		SignedIn: true,
	}
}

func serviceNames(services []googleauth.Service) []string {
	out := make([]string, 0, len(services))
	for _, s := range services {
		out = append(out, string(s))
	}
	return out
}
