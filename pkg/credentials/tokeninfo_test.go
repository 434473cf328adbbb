package credentials

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

// makeJWT builds an unsigned JWT with the given claims, for inspection tests.
func makeJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	encode := func(v interface{}) string {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(data)
	}
	header := encode(map[string]string{"alg": "none", "typ": "JWT"})
	return header + "." + encode(claims) + "."
}

func TestIsJWT(t *testing.T) {
	if IsJWT("ghp_0123456789abcdef0123") {
		t.Error("classic PAT misdetected as JWT")
	}
	if !IsJWT(makeJWT(t, map[string]interface{}{"sub": "x"})) {
		t.Error("JWT-shaped token not detected")
	}
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)

	token := makeJWT(t, map[string]interface{}{
		"preferred_username": "octocat",
		"exp":                exp.Unix(),
		"iss":                "https://auth.example.com",
	})

	claims, err := InspectToken(token)
	if err != nil {
		t.Fatalf("InspectToken() error = %v", err)
	}
	if claims.Username != "octocat" {
		t.Errorf("Username = %q, want octocat", claims.Username)
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
	if claims.Issuer != "https://auth.example.com" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestInspectTokenFallsBackToSub(t *testing.T) {
	claims, err := InspectToken(makeJWT(t, map[string]interface{}{"sub": "user-42"}))
	if err != nil {
		t.Fatalf("InspectToken() error = %v", err)
	}
	if claims.Username != "user-42" {
		t.Errorf("Username = %q, want user-42", claims.Username)
	}
}

func TestInspectTokenRejectsOpaqueTokens(t *testing.T) {
	if _, err := InspectToken("ghp_0123456789abcdef0123"); err == nil {
		t.Error("expected error for opaque token")
	}
	if _, err := InspectToken("eyJnot.a.jwt!!!"); err == nil {
		t.Error("expected error for malformed JWT")
	}
}
