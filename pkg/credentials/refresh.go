package credentials

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/oauth2"

	"github.com/octocode/octocred/pkg/secrets"
)

// DefaultClientID is the public OAuth client used for refresh exchanges
// unless the caller overrides it.
const DefaultClientID = "178c6fc778ccc68e1d6a"

// DefaultTokenURL is GitHub's OAuth token endpoint.
const DefaultTokenURL = "https://github.com/login/oauth/access_token"

// RefreshResult describes the outcome of a refresh attempt. Refresh never
// fails with an error: precondition and network failures are reported in
// Reason, already masked.
type RefreshResult struct {
	// Refreshed is true when a rotated token was obtained and persisted.
	Refreshed bool
	// Reason explains why no rotation happened: empty when the stored
	// token was still valid, otherwise "not logged in", "refresh not
	// supported", "refresh token expired", or a masked exchange error.
	Reason string
}

// RefreshCredentials rotates the stored token for hostname via the OAuth
// refresh-token grant. An unexpired token short-circuits without rotating,
// so back-to-back refreshes are idempotent; concurrent refreshes for the
// same hostname are serialized so a single-use refresh token is exchanged
// exactly once.
func (r *Resolver) RefreshCredentials(ctx context.Context, hostname string) RefreshResult {
	return r.refreshSerialized(ctx, NormalizeHostname(hostname))
}

// refreshSerialized checks the refresh preconditions and performs the
// exchange under the hostname's mutation lock. The lookup and expiry check
// happen inside the lock, so a caller that waited behind a completed refresh
// sees the rotated token and short-circuits instead of rotating again.
func (r *Resolver) refreshSerialized(ctx context.Context, hostname string) RefreshResult {
	mu := r.lockHost(hostname)
	mu.Lock()
	defer mu.Unlock()

	creds, source := r.lookupStored(ctx, hostname)
	if creds == nil {
		return RefreshResult{Reason: "not logged in"}
	}
	if !creds.Token.ExpiresWithin(ExpirySkew) {
		// Still valid: nothing to rotate.
		return RefreshResult{}
	}
	return r.refreshLocked(ctx, hostname, creds, source)
}

// refreshLocked performs the exchange and persists the rotated token. Called
// with the hostname's mutation lock held and credentials already known to be
// expired.
func (r *Resolver) refreshLocked(ctx context.Context, hostname string, creds *StoredCredentials, source string) RefreshResult {
	if creds.Token.RefreshToken == "" {
		return RefreshResult{Reason: "refresh not supported"}
	}
	if !creds.Token.CanRefresh() {
		return RefreshResult{Reason: "refresh token expired"}
	}

	token, err := r.exchangeRefreshToken(ctx, creds.Token.RefreshToken)
	if err != nil {
		r.logger.Warn().Str("hostname", hostname).Msg(secrets.Maskf("token refresh failed: %v", err))
		return RefreshResult{Reason: secrets.Mask(err.Error())}
	}

	// Carry scopes forward; the grant does not restate them.
	token.Scopes = creds.Token.Scopes
	if token.RefreshToken == "" {
		// Provider did not rotate the refresh token; keep the old one.
		token.RefreshToken = creds.Token.RefreshToken
		token.RefreshTokenExpiresAt = creds.Token.RefreshTokenExpiresAt
	}

	if err := r.persistRotated(ctx, hostname, creds, source, *token); err != nil {
		r.logger.Warn().Str("hostname", hostname).Msg(secrets.Maskf("failed to persist refreshed token: %v", err))
		return RefreshResult{Reason: secrets.Mask(err.Error())}
	}

	r.cache.invalidate(hostname)
	return RefreshResult{Refreshed: true}
}

// exchangeRefreshToken calls the token endpoint with
// grant_type=refresh_token and maps the response.
func (r *Resolver) exchangeRefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error) {
	conf := &oauth2.Config{
		ClientID: r.clientID,
		Endpoint: oauth2.Endpoint{TokenURL: r.tokenURL},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)

	fresh, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, err
	}

	token := &OAuthToken{
		Token:        fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
	}
	if !fresh.Expiry.IsZero() {
		expiry := fresh.Expiry
		token.ExpiresAt = &expiry
	}
	// GitHub reports the refresh token's own lifetime as an extra field.
	if v, ok := fresh.Extra("refresh_token_expires_in").(float64); ok && v > 0 {
		expiry := time.Now().Add(time.Duration(v) * time.Second)
		token.RefreshTokenExpiresAt = &expiry
	}
	return token, nil
}

// persistRotated writes the rotated token back to whichever backend held the
// credential, falling back to the encrypted file if the keyring rejects it.
func (r *Resolver) persistRotated(ctx context.Context, hostname string, creds *StoredCredentials, source string, token OAuthToken) error {
	now := time.Now()
	updated := *creds
	updated.Token = token
	updated.UpdatedAt = now

	if source == SourceKeychain && r.secretStore.IsAvailable(ctx) {
		data, err := json.Marshal(updated)
		if err == nil {
			if err := r.secretStore.Store(ctx, KeyringService, hostname, string(data)); err == nil {
				return nil
			}
		}
		r.logger.Warn().Str("hostname", hostname).Msg("native secret store rejected rotated token, using encrypted file")
		return r.fileStore.Set(updated)
	}
	if source == SourceFile {
		return r.fileStore.Touch(hostname, token, now)
	}
	return r.fileStore.Set(updated)
}
