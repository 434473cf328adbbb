package credentials

import (
	"strings"

	"github.com/octocode/octocred/pkg/credentials/types"
)

// Aliases into the shared types package so callers only import credentials.
type (
	OAuthToken        = types.OAuthToken
	StoredCredentials = types.StoredCredentials
	CredentialsStore  = types.CredentialsStore
	Protocol          = types.Protocol
)

const (
	ProtocolSSH   = types.ProtocolSSH
	ProtocolHTTPS = types.ProtocolHTTPS
)

// NewCredentialsStore returns an empty version-1 store.
func NewCredentialsStore() *CredentialsStore {
	return types.NewCredentialsStore()
}

// Token sources, in resolution priority order. Environment variables always
// win over stored credentials; the external callback is the last resort.
const (
	SourceEnvOctocode = "env:OCTOCODE_TOKEN"
	SourceEnvGH       = "env:GH_TOKEN"
	SourceEnvGitHub   = "env:GITHUB_TOKEN"
	SourceKeychain    = "keychain"
	SourceFile        = "file"
	SourceGHCLI       = "gh-cli"
)

// EnvVarPriority lists the token environment variables in the order they are
// consulted. The order is part of the public contract and must not change.
var EnvVarPriority = []string{"OCTOCODE_TOKEN", "GH_TOKEN", "GITHUB_TOKEN"}

// ResolvedToken is the outcome of a resolution: the token, where it came
// from, and whether an OAuth refresh produced it. RefreshError carries a
// masked description of a failed refresh attempt when resolution fell
// through to a lower-priority source or to nothing.
type ResolvedToken struct {
	Token        string `json:"token"`
	Source       string `json:"source"`
	WasRefreshed bool   `json:"was_refreshed"`
	Username     string `json:"username,omitempty"`
	RefreshError string `json:"refresh_error,omitempty"`
}

// NormalizeHostname canonicalizes a hostname for use as a credential key:
// lowercase, no scheme, no path or trailing slash, no surrounding space.
func NormalizeHostname(hostname string) string {
	h := strings.TrimSpace(strings.ToLower(hostname))
	for _, scheme := range []string{"https://", "http://", "ssh://"} {
		if strings.HasPrefix(h, scheme) {
			h = h[len(scheme):]
			break
		}
	}
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	return h
}
