package credentials

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the claims derived from inspecting a JWT-shaped token.
type TokenClaims struct {
	Username  string
	ExpiresAt time.Time
	Issuer    string
}

// IsJWT reports whether the token has the three-part JWT shape. GitHub's
// ghp_/gho_/github_pat_ tokens are opaque and carry no inspectable claims.
func IsJWT(token string) bool {
	return strings.HasPrefix(token, "eyJ") && strings.Count(token, ".") == 2
}

// InspectToken parses a JWT-shaped token WITHOUT signature validation so that
// stored tokens for JWT-issuing hosts can have their expiry and username
// backfilled. Returns an error for malformed tokens, never for expired ones.
func InspectToken(token string) (*TokenClaims, error) {
	if !IsJWT(token) {
		return nil, fmt.Errorf("token is not a JWT")
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("failed to extract claims from token")
	}

	info := &TokenClaims{}
	if username, ok := claims["preferred_username"].(string); ok {
		info.Username = username
	} else if username, ok := claims["username"].(string); ok {
		info.Username = username
	} else if sub, ok := claims["sub"].(string); ok {
		info.Username = sub
	}
	if exp, ok := claims["exp"].(float64); ok {
		info.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if iss, ok := claims["iss"].(string); ok {
		info.Issuer = iss
	}

	return info, nil
}
