// Package storage provides the credential persistence backends: the
// OS-native secret store (keyring) and the encrypted credentials file.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no secret exists for the requested account.
var ErrNotFound = errors.New("secret not found")

// ErrTimeout is returned when a native secret-store call exceeded its
// deadline. Callers treat it as a miss and fall back to the next source.
var ErrTimeout = errors.New("secret store operation timed out")

// ErrUnavailable is returned when the native secret store cannot be used on
// this system.
var ErrUnavailable = errors.New("secret store unavailable")

// AccountSecret pairs a stored account name with its secret payload.
type AccountSecret struct {
	Account string
	Secret  string
}

// SecretStore is the capability interface over platform secret managers
// (macOS Keychain, Windows Credential Manager, Linux Secret Service).
//
// Read paths (Get, FindAll, IsAvailable) degrade on platform errors and
// timeouts: they report a miss rather than failing the resolution. Store and
// Delete surface errors so the caller can fall back to the file store.
type SecretStore interface {
	// IsAvailable reports whether the backing secret manager is usable.
	// The answer is cached for the lifetime of the store.
	IsAvailable(ctx context.Context) bool

	// Store saves a secret under service/account, overwriting any
	// existing value.
	Store(ctx context.Context, service, account, secret string) error

	// Get retrieves the secret for service/account. Returns ErrNotFound
	// for missing entries and ErrTimeout for deadline overruns.
	Get(ctx context.Context, service, account string) (string, error)

	// Delete removes the secret for service/account. The bool reports
	// whether an entry existed.
	Delete(ctx context.Context, service, account string) (bool, error)

	// FindAll lists every account stored under service with its secret.
	// Degrades to an empty list on platform errors.
	FindAll(ctx context.Context, service string) ([]AccountSecret, error)
}
