package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/steipete/gsheets/internal/config"
)

type Store interface {
	Keys() ([]string, error)
	SetToken(email string, tok Token) error
	GetToken(email string) (Token, error)
	DeleteToken(email string) error
	ListTokens() ([]Token, error)
	GetDefaultAccount() (string, error)
	SetDefaultAccount(email string) error
	ClearDefaultAccount() error
}

type KeyringStore struct {
	ring keyring.Keyring
}

type Token struct {
	Email        string    `json:"email"`
	Services     []string  `json:"services,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	RefreshToken string    `json:"-"`
}

const (
	defaultAccountKey  = "default_account"
	keyringBackendEnv  = "GSHEETS_KEYRING_BACKEND"
	keyringPasswordEnv = "GSHEETS_KEYRING_PASSWORD"

	// errSecInteractionNotAllowed is macOS Security framework error -25308
	errSecInteractionNotAllowed = "-25308"

	unlockHint = "Unlock it with:\n  security unlock-keychain ~/Library/Keychains/login.keychain-db"
)

var (
	errInvalidKeyringBackend = errors.New("invalid keyring backend")
	errNoKeyringPassword     = errors.New("no TTY for keyring password prompt; set " + keyringPasswordEnv)
)

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func OpenDefault() (Store, error) {
	// On Linux/WSL/containers, OS keychains (secret-service/kwallet) may be unavailable.
	// In that case github.com/99designs/keyring falls back to the "file" backend,
	// which *requires* both a directory and a password prompt function.
	keyringDir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}

	backends, err := allowedBackendsFromEnv()
	if err != nil {
		return nil, err
	}
	if backends == nil {
		cfg, cfgErr := config.ReadConfig()
		if cfgErr != nil {
			return nil, cfgErr
		}
		if backends, err = allowedBackends(cfg.KeyringBackend); err != nil {
			return nil, err
		}
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:      config.AppName,
		AllowedBackends:  backends,
		FileDir:          keyringDir,
		FilePasswordFunc: fileKeyringPasswordFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

func allowedBackendsFromEnv() ([]keyring.BackendType, error) {
	return allowedBackends(os.Getenv(keyringBackendEnv))
}

func allowedBackends(name string) ([]keyring.BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return nil, nil
	case "file":
		return []keyring.BackendType{keyring.FileBackend}, nil
	case "keychain":
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case "secret-service":
		return []keyring.BackendType{keyring.SecretServiceBackend}, nil
	case "kwallet":
		return []keyring.BackendType{keyring.KWalletBackend}, nil
	case "pass":
		return []keyring.BackendType{keyring.PassBackend}, nil
	case "wincred":
		return []keyring.BackendType{keyring.WinCredBackend}, nil
	default:
		return nil, fmt.Errorf("%w %q (expected auto|file|keychain|secret-service|kwallet|pass|wincred)", errInvalidKeyringBackend, name)
	}
}

func fileKeyringPasswordFunc() keyring.PromptFunc {
	return fileKeyringPasswordFuncFrom(os.Getenv(keyringPasswordEnv), term.IsTerminal(int(os.Stdin.Fd()))) //nolint:gosec // fd fits in int
}

func fileKeyringPasswordFuncFrom(password string, isTTY bool) keyring.PromptFunc {
	if password != "" {
		return keyring.FixedStringPrompt(password)
	}
	if isTTY {
		return keyring.TerminalPrompt
	}
	return func(string) (string, error) {
		return "", errNoKeyringPassword
	}
}

func (s *KeyringStore) Keys() ([]string, error) {
	return s.ring.Keys()
}

type storedToken struct {
	RefreshToken string    `json:"refresh_token"`
	Services     []string  `json:"services,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

func (s *KeyringStore) SetToken(email string, tok Token) error {
	email = normalize(email)
	if email == "" {
		return errors.New("missing email")
	}
	if tok.RefreshToken == "" {
		return errors.New("missing refresh token")
	}
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(storedToken{
		RefreshToken: tok.RefreshToken,
		Services:     tok.Services,
		Scopes:       tok.Scopes,
		CreatedAt:    tok.CreatedAt,
	})
	if err != nil {
		return err
	}

	return wrapKeychainError(s.ring.Set(keyring.Item{
		Key:  tokenKey(email),
		Data: payload,
	}))
}

func (s *KeyringStore) GetToken(email string) (Token, error) {
	email = normalize(email)
	if email == "" {
		return Token{}, errors.New("missing email")
	}
	it, err := s.ring.Get(tokenKey(email))
	if err != nil {
		return Token{}, err
	}
	var st storedToken
	if err := json.Unmarshal(it.Data, &st); err != nil {
		return Token{}, err
	}
	return Token{
		Email:        email,
		Services:     st.Services,
		Scopes:       st.Scopes,
		CreatedAt:    st.CreatedAt,
		RefreshToken: st.RefreshToken,
	}, nil
}

func (s *KeyringStore) DeleteToken(email string) error {
	email = normalize(email)
	if email == "" {
		return errors.New("missing email")
	}
	return s.ring.Remove(tokenKey(email))
}

func (s *KeyringStore) ListTokens() ([]Token, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	out := make([]Token, 0)
	for _, k := range keys {
		email, ok := ParseTokenKey(k)
		if !ok {
			continue
		}
		tok, err := s.GetToken(email)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// GetDefaultAccount returns "" without error when no default is stored.
func (s *KeyringStore) GetDefaultAccount() (string, error) {
	it, err := s.ring.Get(defaultAccountKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return normalize(string(it.Data)), nil
}

func (s *KeyringStore) SetDefaultAccount(email string) error {
	email = normalize(email)
	if email == "" {
		return errors.New("missing email")
	}
	return wrapKeychainError(s.ring.Set(keyring.Item{
		Key:  defaultAccountKey,
		Data: []byte(email),
	}))
}

func (s *KeyringStore) ClearDefaultAccount() error {
	err := s.ring.Remove(defaultAccountKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

func ParseTokenKey(k string) (email string, ok bool) {
	const prefix = "token:"
	if !strings.HasPrefix(k, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(k, prefix)
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	return rest, true
}

func tokenKey(email string) string {
	return fmt.Sprintf("token:%s", email)
}

func wrapKeychainError(err error) error {
	if err == nil {
		return nil
	}
	if isKeychainLocked(err) {
		return fmt.Errorf("%w\n\nYour macOS keychain is locked. %s", err, unlockHint)
	}
	return err
}

func isKeychainLocked(err error) bool {
	return err != nil && strings.Contains(err.Error(), errSecInteractionNotAllowed)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

