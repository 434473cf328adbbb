package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"
)

// DefaultKeyringTimeout bounds every native secret-store call so a hung
// platform agent cannot stall resolution.
const DefaultKeyringTimeout = 3 * time.Second

// indexAccount is a reserved account holding the list of stored account
// names. The platform keyrings offer no portable enumeration, so FindAll is
// served from this index.
const indexAccount = "__octocred_index__"

// KeyringStore adapts the OS-native secret manager behind SecretStore.
// go-keyring selects the platform backend (Keychain, Credential Manager,
// Secret Service) at build time; this layer adds timeout bounding, a cached
// availability probe, and account enumeration.
type KeyringStore struct {
	timeout time.Duration
	logger  zerolog.Logger

	availOnce sync.Once
	available bool

	// indexMu serializes read-modify-write cycles on the account index.
	indexMu sync.Mutex
}

var _ SecretStore = (*KeyringStore)(nil)

// KeyringOption configures a KeyringStore.
type KeyringOption func(*KeyringStore)

// WithKeyringTimeout overrides the per-call deadline.
func WithKeyringTimeout(d time.Duration) KeyringOption {
	return func(k *KeyringStore) {
		if d > 0 {
			k.timeout = d
		}
	}
}

// WithKeyringLogger sets the logger for degraded-path warnings.
func WithKeyringLogger(logger zerolog.Logger) KeyringOption {
	return func(k *KeyringStore) {
		k.logger = logger
	}
}

// NewKeyringStore creates a keyring-backed secret store. No platform call is
// made until first use.
func NewKeyringStore(opts ...KeyringOption) *KeyringStore {
	k := &KeyringStore{
		timeout: DefaultKeyringTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// call runs fn with a bounded deadline. A deadline overrun leaves the
// platform call running in its goroutine; its result is discarded.
func (k *KeyringStore) call(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrTimeout
	}
}

// IsAvailable probes the platform secret manager once and caches the answer
// for the lifetime of the store.
func (k *KeyringStore) IsAvailable(ctx context.Context) bool {
	k.availOnce.Do(func() {
		err := k.call(ctx, func() error {
			_, err := keyring.Get("octocred-probe", "probe")
			return err
		})
		switch {
		case err == nil, errors.Is(err, keyring.ErrNotFound):
			k.available = true
		default:
			k.logger.Debug().Err(err).Msg("native secret store unavailable")
			k.available = false
		}
	})
	return k.available
}

// Store saves the secret and records the account in the enumeration index.
func (k *KeyringStore) Store(ctx context.Context, service, account, secret string) error {
	if !k.IsAvailable(ctx) {
		return ErrUnavailable
	}
	err := k.call(ctx, func() error {
		return keyring.Set(service, account, secret)
	})
	if err != nil {
		return fmt.Errorf("failed to store secret for %s: %w", account, err)
	}
	k.updateIndex(ctx, service, func(accounts map[string]bool) {
		accounts[account] = true
	})
	return nil
}

// Get retrieves the secret for service/account.
func (k *KeyringStore) Get(ctx context.Context, service, account string) (string, error) {
	if !k.IsAvailable(ctx) {
		return "", ErrUnavailable
	}
	var secret string
	err := k.call(ctx, func() error {
		s, err := keyring.Get(service, account)
		secret = s
		return err
	})
	switch {
	case err == nil:
		return secret, nil
	case errors.Is(err, keyring.ErrNotFound):
		return "", ErrNotFound
	case errors.Is(err, ErrTimeout):
		k.logger.Warn().Str("account", account).Msg("secret store read timed out")
		return "", ErrTimeout
	default:
		return "", fmt.Errorf("failed to read secret for %s: %w", account, err)
	}
}

// Delete removes the secret and drops the account from the index.
func (k *KeyringStore) Delete(ctx context.Context, service, account string) (bool, error) {
	if !k.IsAvailable(ctx) {
		return false, ErrUnavailable
	}
	err := k.call(ctx, func() error {
		return keyring.Delete(service, account)
	})
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return false, fmt.Errorf("failed to delete secret for %s: %w", account, err)
	}
	k.updateIndex(ctx, service, func(accounts map[string]bool) {
		delete(accounts, account)
	})
	return err == nil, nil
}

// FindAll lists stored accounts with their secrets, served from the index.
// Entries whose secret has gone missing are skipped.
func (k *KeyringStore) FindAll(ctx context.Context, service string) ([]AccountSecret, error) {
	if !k.IsAvailable(ctx) {
		return nil, nil
	}
	accounts := k.readIndex(ctx, service)
	results := make([]AccountSecret, 0, len(accounts))
	for _, account := range accounts {
		secret, err := k.Get(ctx, service, account)
		if err != nil {
			continue
		}
		results = append(results, AccountSecret{Account: account, Secret: secret})
	}
	return results, nil
}

func (k *KeyringStore) readIndex(ctx context.Context, service string) []string {
	var raw string
	err := k.call(ctx, func() error {
		s, err := keyring.Get(service, indexAccount)
		raw = s
		return err
	})
	if err != nil {
		return nil
	}
	var accounts []string
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil
	}
	return accounts
}

func (k *KeyringStore) updateIndex(ctx context.Context, service string, mutate func(map[string]bool)) {
	k.indexMu.Lock()
	defer k.indexMu.Unlock()

	set := make(map[string]bool)
	for _, account := range k.readIndex(ctx, service) {
		set[account] = true
	}
	mutate(set)

	accounts := make([]string, 0, len(set))
	for account := range set {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	data, err := json.Marshal(accounts)
	if err != nil {
		return
	}
	writeErr := k.call(ctx, func() error {
		if len(accounts) == 0 {
			err := keyring.Delete(service, indexAccount)
			if errors.Is(err, keyring.ErrNotFound) {
				return nil
			}
			return err
		}
		return keyring.Set(service, indexAccount, string(data))
	})
	if writeErr != nil {
		k.logger.Warn().Err(writeErr).Msg("failed to update secret store index")
	}
}
