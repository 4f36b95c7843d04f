package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

const (
	keystoreService = "inspectsync"
	keystoreUser    = "api-token"
)

// ErrNoToken is returned when no bearer token is configured anywhere
var ErrNoToken = errors.New("no api token configured")

// TokenSource supplies the bearer token injected into API requests
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed token, typically from INSPECTSYNC_API_TOKEN
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// KeyringTokenSource reads the operator session token from the system keychain.
// An override, when set, takes priority over the keychain.
type KeyringTokenSource struct {
	Override string
}

func (k KeyringTokenSource) Token() (string, error) {
	if k.Override != "" {
		return k.Override, nil
	}

	token, err := keyring.Get(keystoreService, keystoreUser)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token from keychain: %w", err)
	}
	return token, nil
}

// StoreToken saves the session token in the keychain
func StoreToken(token string) error {
	if token == "" {
		return ErrNoToken
	}
	if err := keyring.Set(keystoreService, keystoreUser, token); err != nil {
		return fmt.Errorf("failed to store token in keychain: %w", err)
	}
	return nil
}

// DeleteToken removes the session token, used on logout
func DeleteToken() error {
	err := keyring.Delete(keystoreService, keystoreUser)
	if errors.Is(err, keyring.ErrNotFound) {
		zap.S().Named("auth").Debug("no token stored in keychain")
		return nil
	}
	return err
}
