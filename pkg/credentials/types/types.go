// Package types contains the credential data model shared between the
// credentials package and its storage backends.
package types

import "time"

// OAuthToken is a bearer token plus its refresh material and expiry
// bookkeeping. A token with a nil ExpiresAt never expires; a token without
// a RefreshToken cannot be auto-refreshed.
type OAuthToken struct {
	Token                 string     `json:"token"`
	Scopes                []string   `json:"scopes,omitempty"`
	RefreshToken          string     `json:"refresh_token,omitempty"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at,omitempty"`
}

// ExpiresWithin reports whether the token expires within d from now.
// Tokens without an expiry never expire.
func (t *OAuthToken) ExpiresWithin(d time.Duration) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(d).After(*t.ExpiresAt)
}

// CanRefresh reports whether the token carries a usable refresh token.
func (t *OAuthToken) CanRefresh() bool {
	if t.RefreshToken == "" {
		return false
	}
	if t.RefreshTokenExpiresAt != nil && time.Now().After(*t.RefreshTokenExpiresAt) {
		return false
	}
	return true
}

// Protocol selects how the credential is used by the caller.
type Protocol string

const (
	ProtocolSSH   Protocol = "ssh"
	ProtocolHTTPS Protocol = "https"
)

// StoredCredentials is the unit of persistence, keyed by normalized hostname.
// Exactly one backend owns a given hostname's entry at a time; transient
// duplication during migration is resolved by deleting the file copy.
type StoredCredentials struct {
	Hostname  string     `json:"hostname"`
	Username  string     `json:"username"`
	Token     OAuthToken `json:"token"`
	Protocol  Protocol   `json:"protocol"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CredentialsStore is the decrypted payload of the encrypted credentials
// file: a versioned map of hostname to credentials.
type CredentialsStore struct {
	Version     int                          `json:"version"`
	Credentials map[string]StoredCredentials `json:"credentials"`
}

// NewCredentialsStore returns an empty version-1 store.
func NewCredentialsStore() *CredentialsStore {
	return &CredentialsStore{
		Version:     1,
		Credentials: make(map[string]StoredCredentials),
	}
}
