package googleauth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/steipete/gsheets/internal/config"
)

const (
	callbackPath       = "/oauth2/callback"
	manualRedirectURL  = "http://localhost" + callbackPath
	defaultAuthTimeout = 3 * time.Minute
)

var (
	// ErrConsentDenied is returned when the user dismisses or declines the consent screen.
	ErrConsentDenied = errors.New("consent denied by user")

	errStateMismatch = errors.New("oauth state mismatch")
	errMissingCode   = errors.New("authorization response has no code")
)

var (
	readClientCredentials = config.ReadClientCredentials
	oauthEndpoint         = google.Endpoint
	openBrowser           = openURL
	listenLoopback        = func() (net.Listener, error) { return net.Listen("tcp", "127.0.0.1:0") }
)

type AuthorizeOptions struct {
	Services []Service
	Scopes   []string

	// LoginHint pre-selects the account on the consent screen.
	LoginHint string
	// IncludeGrantedScopes asks for incremental consent: the new grant covers
	// previously granted scopes too.
	IncludeGrantedScopes bool
	ForceConsent         bool
	Manual               bool
	Timeout              time.Duration

	Prompt io.Writer
	Input  io.Reader
	// OnURL is called with the consent URL before waiting for the callback.
	OnURL func(authURL string)
}

// Authorize runs the interactive consent flow and returns the exchanged token.
func Authorize(ctx context.Context, opts AuthorizeOptions) (*oauth2.Token, error) {
	if len(opts.Scopes) == 0 {
		return nil, errors.New("no scopes requested")
	}
	creds, err := readClientCredentials()
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultAuthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if opts.Prompt == nil {
		opts.Prompt = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	if opts.Manual {
		return authorizeManual(ctx, creds, opts)
	}
	return authorizeLoopback(ctx, creds, opts)
}

func oauthConfig(creds config.ClientCredentials, scopes []string, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauthEndpoint,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}
}

func authCodeOptions(verifier string, opts AuthorizeOptions) []oauth2.AuthCodeOption {
	out := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	}
	if hint := strings.TrimSpace(opts.LoginHint); hint != "" {
		out = append(out, oauth2.SetAuthURLParam("login_hint", hint))
	}
	if opts.IncludeGrantedScopes {
		out = append(out, oauth2.SetAuthURLParam("include_granted_scopes", "true"))
	}
	if opts.ForceConsent {
		out = append(out, oauth2.ApprovalForce)
	}
	return out
}

type callbackResult struct {
	code string
	err  error
}

func authorizeLoopback(ctx context.Context, creds config.ClientCredentials, opts AuthorizeOptions) (*oauth2.Token, error) {
	ln, err := listenLoopback()
	if err != nil {
		return nil, fmt.Errorf("start callback listener: %w", err)
	}

	cfg := oauthConfig(creds, opts.Scopes, fmt.Sprintf("http://%s%s", ln.Addr().String(), callbackPath))
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, authCodeOptions(verifier, opts)...)

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Debug("oauth callback server stopped", "error", serveErr)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if opts.OnURL != nil {
		opts.OnURL(authURL)
	}
	if openErr := openBrowser(ctx, authURL); openErr != nil {
		slog.Debug("open browser failed", "error", openErr)
		fmt.Fprintf(opts.Prompt, "Open this URL in your browser to sign in:\n\n  %s\n\n", authURL)
	} else {
		fmt.Fprintln(opts.Prompt, "Opened the Google consent page in your browser. Waiting for sign-in...")
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for consent: %w", ctx.Err())
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		return exchange(ctx, cfg, res.code, verifier)
	}
}

func callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := parseCallback(r.URL.Query(), state)
		if err != nil {
			http.Error(w, "Sign-in failed: "+err.Error(), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, "<html><body><p>Signed in. You can close this window.</p></body></html>")
		}

		select {
		case results <- callbackResult{code: code, err: err}:
		default:
		}
	}
}

func parseCallback(q url.Values, state string) (string, error) {
	if e := strings.TrimSpace(q.Get("error")); e != "" {
		if e == "access_denied" {
			return "", ErrConsentDenied
		}
		return "", fmt.Errorf("authorization error: %s", e)
	}
	if q.Get("state") != state {
		return "", errStateMismatch
	}
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		return "", errMissingCode
	}
	return code, nil
}

func authorizeManual(ctx context.Context, creds config.ClientCredentials, opts AuthorizeOptions) (*oauth2.Token, error) {
	cfg := oauthConfig(creds, opts.Scopes, manualRedirectURL)
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, authCodeOptions(verifier, opts)...)

	if opts.OnURL != nil {
		opts.OnURL(authURL)
	}
	fmt.Fprintf(opts.Prompt, "Open this URL in your browser and approve access:\n\n  %s\n\n", authURL)
	fmt.Fprint(opts.Prompt, "Then paste the full redirect URL (the page will fail to load): ")

	lines := make(chan string, 1)
	readErrs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(opts.Input).ReadString('\n')
		if err != nil && strings.TrimSpace(line) == "" {
			readErrs <- err
			return
		}
		lines <- line
	}()

	var pasted string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for redirect URL: %w", ctx.Err())
	case err := <-readErrs:
		return nil, fmt.Errorf("read redirect URL: %w", err)
	case pasted = <-lines:
	}

	code, err := codeFromPasted(strings.TrimSpace(pasted), state)
	if err != nil {
		return nil, err
	}
	return exchange(ctx, cfg, code, verifier)
}

// codeFromPasted accepts either the full redirect URL or a bare code.
func codeFromPasted(pasted, state string) (string, error) {
	if pasted == "" {
		return "", errMissingCode
	}
	if !strings.Contains(pasted, "code=") && !strings.Contains(pasted, "error=") {
		return pasted, nil
	}
	u, err := url.Parse(pasted)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	return parseCallback(u.Query(), state)
}

func exchange(ctx context.Context, cfg *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}
