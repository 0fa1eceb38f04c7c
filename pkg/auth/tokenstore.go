// Package auth implements the token store (Linux keyring-backed) and the
// auth manager that applies credentials to outgoing requests and tracks
// the GitHub rate-limit window from response headers (spec 4.2).
package auth

import (
	"regexp"

	"github.com/flanksource/commons/logger"
	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "my-unicorn"
	keyringUser    = "github-token"
)

// tokenPattern matches GitHub's current token prefixes: ghp_, gho_,
// ghu_, ghs_, ghr_ followed by at least 20 letters, digits or underscores.
var tokenPattern = regexp.MustCompile(`^gh[a-z]_[A-Za-z0-9_]{20,}$`)

// TokenStore wraps the OS Secret Service (D-Bus) keyring via
// zalando/go-keyring, the conventional choice for Linux-first Go CLIs
// needing credential storage without vendoring their own D-Bus client.
type TokenStore struct{}

func NewTokenStore() *TokenStore { return &TokenStore{} }

// Set validates the token format and stores it in the keyring.
func (s *TokenStore) Set(token string) error {
	if !tokenPattern.MatchString(token) {
		return apperrors.New(apperrors.KindAuth, "", "token does not match expected format ^gh[a-z]_[A-Za-z0-9_]{20,}$")
	}
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return apperrors.Wrap(apperrors.KindAuth, "", err)
	}
	return nil
}

// Get returns the stored token, or ("", false) if none is stored or the
// keyring is unavailable. Keyring unavailability is explicitly non-fatal
// per spec 4.2: callers proceed unauthenticated.
func (s *TokenStore) Get() (string, bool) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if err != keyring.ErrNotFound {
			logger.Debugf("keyring unavailable, proceeding unauthenticated: %v", err)
		}
		return "", false
	}
	return token, true
}

// Delete removes the stored token, if any.
func (s *TokenStore) Delete() error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && err != keyring.ErrNotFound {
		return apperrors.Wrap(apperrors.KindAuth, "", err)
	}
	return nil
}
