package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/octocode/octocred/pkg/credentials/storage"
	"github.com/octocode/octocred/pkg/secrets"
)

// KeyringService is the native secret-store namespace for this installation.
const KeyringService = "octocred"

// ExpirySkew is the safety margin: a token with less than this much lifetime
// left is treated as expired so it cannot lapse mid-request.
const ExpirySkew = 5 * time.Minute

// FallbackFunc is an external credential lookup (typically the gh CLI),
// invoked only after every internal source has been exhausted. An empty
// token or an error both mean not found.
type FallbackFunc func(ctx context.Context, hostname string) (string, error)

// Resolver produces bearer credentials for hostnames by walking a fixed
// priority chain: environment variables, the native secret store, the
// encrypted file store, OAuth refresh, then an optional external fallback.
// Outcomes are cached with single-flight de-duplication per hostname.
//
// A Resolver is safe for concurrent use.
type Resolver struct {
	secretStore storage.SecretStore
	fileStore   *storage.FileStore
	cache       *resolutionCache
	fallback    FallbackFunc
	logger      zerolog.Logger

	httpClient *http.Client
	clientID   string
	tokenURL   string

	// environ is injectable for tests; defaults to os.Getenv.
	environ func(string) string

	// hostLocks serializes credential mutations per hostname: store,
	// delete, refresh and background migration all hold the hostname's
	// lock, so a stale writer cannot clobber a newer entry. The read
	// path does not take it.
	hostMu    sync.Mutex
	hostLocks map[string]*sync.Mutex

	// migrationWG tracks in-flight lazy migrations so shutdown and tests
	// can wait for them.
	migrationWG sync.WaitGroup
}

// lockHost returns the mutation lock for hostname, creating it on first use.
func (r *Resolver) lockHost(hostname string) *sync.Mutex {
	r.hostMu.Lock()
	defer r.hostMu.Unlock()
	mu, ok := r.hostLocks[hostname]
	if !ok {
		mu = &sync.Mutex{}
		r.hostLocks[hostname] = mu
	}
	return mu
}

// WaitMigrations blocks until every in-flight background migration has
// settled. Useful before process exit.
func (r *Resolver) WaitMigrations() {
	r.migrationWG.Wait()
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSecretStore sets the native secret-store adapter.
func WithSecretStore(store storage.SecretStore) Option {
	return func(r *Resolver) {
		r.secretStore = store
	}
}

// WithFileStore sets the encrypted file store.
func WithFileStore(store *storage.FileStore) Option {
	return func(r *Resolver) {
		r.fileStore = store
	}
}

// WithCacheTTL overrides the resolution cache TTL (default 60s).
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = newResolutionCache(ttl)
	}
}

// WithFallback sets the external credential lookup callback.
func WithFallback(fn FallbackFunc) Option {
	return func(r *Resolver) {
		r.fallback = fn
	}
}

// WithLogger sets the logger. All messages are masked before emission.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithHTTPClient sets the client used for OAuth refresh exchanges.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = client
	}
}

// WithClientID overrides the OAuth client id used for refresh.
func WithClientID(clientID string) Option {
	return func(r *Resolver) {
		if clientID != "" {
			r.clientID = clientID
		}
	}
}

// WithTokenURL overrides the OAuth token endpoint used for refresh.
func WithTokenURL(tokenURL string) Option {
	return func(r *Resolver) {
		if tokenURL != "" {
			r.tokenURL = tokenURL
		}
	}
}

// WithEnviron injects an environment lookup, for tests.
func WithEnviron(environ func(string) string) Option {
	return func(r *Resolver) {
		r.environ = environ
	}
}

// NewResolver creates a resolver. Without options it uses the OS keyring,
// the encrypted file store under ~/.octocode, a 60 second cache, and no
// external fallback.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		cache:      newResolutionCache(DefaultCacheTTL),
		logger:     zerolog.Nop(),
		httpClient: http.DefaultClient,
		clientID:   DefaultClientID,
		tokenURL:   DefaultTokenURL,
		environ:    os.Getenv,
		hostLocks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.secretStore == nil {
		r.secretStore = storage.NewKeyringStore(storage.WithKeyringLogger(r.logger))
	}
	if r.fileStore == nil {
		r.fileStore = storage.NewFileStore(storage.WithFileLogger(r.logger))
	}
	return r
}

// Resolve walks the priority chain for hostname and returns the resolved
// token, or nil when no source yields one. It never returns an error; every
// failure degrades to the next source.
func (r *Resolver) Resolve(ctx context.Context, hostname string) *ResolvedToken {
	hostname = NormalizeHostname(hostname)

	// Environment variables always win, even over a fresh cache entry.
	if resolved := r.resolveEnv(); resolved != nil {
		return resolved
	}

	return r.cache.resolve(ctx, hostname, func(ctx context.Context) *ResolvedToken {
		return r.resolveStored(ctx, hostname)
	})
}

// RequireToken resolves a token or returns an error describing how to
// authenticate. This is the only function in the public surface that fails
// loudly.
func (r *Resolver) RequireToken(ctx context.Context, hostname string) (*ResolvedToken, error) {
	resolved := r.Resolve(ctx, hostname)
	if resolved == nil || resolved.Token == "" {
		msg := fmt.Sprintf("no credentials found for %s: set OCTOCODE_TOKEN, GH_TOKEN or GITHUB_TOKEN, or run \"octocred login --host %s\"", hostname, hostname)
		if resolved != nil && resolved.RefreshError != "" {
			msg += " (token refresh failed: " + resolved.RefreshError + ")"
		}
		return nil, secrets.MaskError(fmt.Errorf("%s", msg))
	}
	return resolved, nil
}

func (r *Resolver) resolveEnv() *ResolvedToken {
	sources := map[string]string{
		"OCTOCODE_TOKEN": SourceEnvOctocode,
		"GH_TOKEN":       SourceEnvGH,
		"GITHUB_TOKEN":   SourceEnvGitHub,
	}
	for _, name := range EnvVarPriority {
		if token := strings.TrimSpace(r.environ(name)); token != "" {
			return &ResolvedToken{Token: token, Source: sources[name]}
		}
	}
	return nil
}

// resolveStored is the cache-miss path: stored lookup, expiry check,
// refresh, external fallback.
func (r *Resolver) resolveStored(ctx context.Context, hostname string) *ResolvedToken {
	creds, source := r.lookupStored(ctx, hostname)

	var refreshError string
	if creds != nil {
		if !creds.Token.ExpiresWithin(ExpirySkew) {
			return &ResolvedToken{
				Token:    creds.Token.Token,
				Source:   source,
				Username: creds.Username,
			}
		}

		// Expired: attempt refresh, fall through on failure. An empty
		// Reason means a concurrent refresh already rotated the token.
		result := r.refreshSerialized(ctx, hostname)
		if result.Refreshed || result.Reason == "" {
			fresh, freshSource := r.lookupStored(ctx, hostname)
			if fresh != nil {
				return &ResolvedToken{
					Token:        fresh.Token.Token,
					Source:       freshSource,
					WasRefreshed: result.Refreshed,
					Username:     fresh.Username,
				}
			}
		}
		refreshError = result.Reason
	}

	if r.fallback != nil {
		token, err := r.fallback(ctx, hostname)
		if err != nil {
			r.logger.Debug().Str("hostname", hostname).Msg(secrets.Maskf("external credential lookup failed: %v", err))
		} else if token = strings.TrimSpace(token); token != "" {
			return &ResolvedToken{Token: token, Source: SourceGHCLI, RefreshError: refreshError}
		}
	}

	if refreshError != "" {
		return &ResolvedToken{RefreshError: refreshError}
	}
	return nil
}

// lookupStored queries the native store first, then the encrypted file.
// A file hit while the native store is available triggers lazy migration.
func (r *Resolver) lookupStored(ctx context.Context, hostname string) (*StoredCredentials, string) {
	nativeAvailable := r.secretStore.IsAvailable(ctx)

	if nativeAvailable {
		if secret, err := r.secretStore.Get(ctx, KeyringService, hostname); err == nil {
			var creds StoredCredentials
			if err := json.Unmarshal([]byte(secret), &creds); err == nil {
				return &creds, SourceKeychain
			}
			r.logger.Warn().Str("hostname", hostname).Msg("malformed keychain entry, falling back to file store")
		}
	}

	if creds := r.fileStore.Get(hostname); creds != nil {
		if nativeAvailable {
			r.migrateToKeyring(ctx, *creds)
		}
		return creds, SourceFile
	}
	return nil, ""
}

// StoreCredentials persists credentials for a hostname, preferring the
// native secret store and falling back to the encrypted file. Expiry is
// backfilled from JWT claims when the token is inspectable and the caller
// supplied none. Invalidates the hostname's cache entry.
func (r *Resolver) StoreCredentials(ctx context.Context, creds StoredCredentials) error {
	creds.Hostname = NormalizeHostname(creds.Hostname)
	if creds.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if creds.Token.Token == "" {
		return fmt.Errorf("token is required")
	}
	if creds.Protocol == "" {
		creds.Protocol = ProtocolHTTPS
	}

	now := time.Now()
	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = now
	}
	creds.UpdatedAt = now

	if creds.Token.ExpiresAt == nil {
		if claims, err := InspectToken(creds.Token.Token); err == nil && !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			creds.Token.ExpiresAt = &exp
			if creds.Username == "" {
				creds.Username = claims.Username
			}
		}
	}

	mu := r.lockHost(creds.Hostname)
	mu.Lock()
	defer mu.Unlock()
	defer r.cache.invalidate(creds.Hostname)

	if r.secretStore.IsAvailable(ctx) {
		data, err := json.Marshal(creds)
		if err != nil {
			return fmt.Errorf("failed to encode credentials: %w", err)
		}
		if err := r.secretStore.Store(ctx, KeyringService, creds.Hostname, string(data)); err == nil {
			// The native store owns the entry now; drop any file copy.
			if _, err := r.fileStore.Delete(creds.Hostname); err != nil {
				r.logger.Warn().Str("hostname", creds.Hostname).Msg(secrets.Maskf("failed to remove file copy: %v", err))
			}
			return nil
		}
		r.logger.Warn().Str("hostname", creds.Hostname).Msg("native secret store rejected write, using encrypted file")
	}

	if err := r.fileStore.Set(creds); err != nil {
		return secrets.MaskError(err)
	}
	return nil
}

// GetCredentials returns the stored credentials for hostname, or nil.
// Unlike Resolve it does not consult environment variables, the cache, or
// the fallback, and performs no refresh.
func (r *Resolver) GetCredentials(ctx context.Context, hostname string) *StoredCredentials {
	creds, _ := r.lookupStored(ctx, NormalizeHostname(hostname))
	return creds
}

// DeleteCredentials removes the stored credentials for hostname from every
// backend. Reports whether anything was deleted.
func (r *Resolver) DeleteCredentials(ctx context.Context, hostname string) (bool, error) {
	hostname = NormalizeHostname(hostname)
	mu := r.lockHost(hostname)
	mu.Lock()
	defer mu.Unlock()
	defer r.cache.invalidate(hostname)

	deleted := false
	if r.secretStore.IsAvailable(ctx) {
		ok, err := r.secretStore.Delete(ctx, KeyringService, hostname)
		if err != nil {
			r.logger.Warn().Str("hostname", hostname).Msg(secrets.Maskf("failed to delete keychain entry: %v", err))
		}
		deleted = deleted || ok
	}

	ok, err := r.fileStore.Delete(hostname)
	if err != nil {
		return deleted, secrets.MaskError(err)
	}
	return deleted || ok, nil
}

// ListHosts returns every hostname with stored credentials, across both
// backends, deduplicated.
func (r *Resolver) ListHosts(ctx context.Context) []string {
	seen := make(map[string]bool)
	var hosts []string

	if r.secretStore.IsAvailable(ctx) {
		entries, _ := r.secretStore.FindAll(ctx, KeyringService)
		for _, entry := range entries {
			if !seen[entry.Account] {
				seen[entry.Account] = true
				hosts = append(hosts, entry.Account)
			}
		}
	}
	for _, hostname := range r.fileStore.Hosts() {
		if !seen[hostname] {
			seen[hostname] = true
			hosts = append(hosts, hostname)
		}
	}
	return hosts
}

// InvalidateCache drops cached resolutions for the given hostnames, or every
// cached resolution when none are given.
func (r *Resolver) InvalidateCache(hostnames ...string) {
	if len(hostnames) == 0 {
		r.cache.invalidateAll()
		return
	}
	for _, hostname := range hostnames {
		r.cache.invalidate(NormalizeHostname(hostname))
	}
}
