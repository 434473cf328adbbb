package credentials

import (
	"testing"
	"time"
)

func TestNormalizeHostname(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "github.com", "github.com"},
		{"uppercase", "GitHub.COM", "github.com"},
		{"https scheme", "https://github.com", "github.com"},
		{"http scheme", "http://github.com", "github.com"},
		{"ssh scheme", "ssh://github.com", "github.com"},
		{"trailing slash", "github.com/", "github.com"},
		{"scheme and path", "https://github.com/owner/repo", "github.com"},
		{"surrounding space", "  github.com  ", "github.com"},
		{"enterprise host", "https://GHE.Corp.Example.com/", "ghe.corp.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeHostname(tt.input); got != tt.want {
				t.Errorf("NormalizeHostname(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOAuthTokenExpiresWithin(t *testing.T) {
	in := func(d time.Duration) *time.Time {
		ts := time.Now().Add(d)
		return &ts
	}

	tests := []struct {
		name  string
		token OAuthToken
		want  bool
	}{
		{"no expiry never expires", OAuthToken{Token: "t"}, false},
		{"expires in 4 minutes is expired", OAuthToken{Token: "t", ExpiresAt: in(4 * time.Minute)}, true},
		{"expires in 6 minutes is not expired", OAuthToken{Token: "t", ExpiresAt: in(6 * time.Minute)}, false},
		{"already expired", OAuthToken{Token: "t", ExpiresAt: in(-time.Minute)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.ExpiresWithin(ExpirySkew); got != tt.want {
				t.Errorf("ExpiresWithin(%v) = %v, want %v", ExpirySkew, got, tt.want)
			}
		})
	}
}

func TestOAuthTokenCanRefresh(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		token OAuthToken
		want  bool
	}{
		{"no refresh token", OAuthToken{Token: "t"}, false},
		{"refresh token without expiry", OAuthToken{Token: "t", RefreshToken: "r"}, true},
		{"refresh token still valid", OAuthToken{Token: "t", RefreshToken: "r", RefreshTokenExpiresAt: &future}, true},
		{"refresh token expired", OAuthToken{Token: "t", RefreshToken: "r", RefreshTokenExpiresAt: &past}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.CanRefresh(); got != tt.want {
				t.Errorf("CanRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}
