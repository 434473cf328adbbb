// Package secrets masks credential material in log lines and error messages.
//
// Every message emitted by the credentials subsystem that could carry a
// token — decryption failures, keyring errors, OAuth exchange errors — is
// passed through Mask before it leaves the process.
package secrets

import (
	"errors"
	"fmt"
	"regexp"
)

// Redacted replaces any detected secret in masked output.
const Redacted = "***REDACTED***"

// valuePatterns match known secret token shapes. Order matters: the more
// specific shapes run before the generic long-run pattern so that a GitHub
// token is redacted as a whole rather than leaving its prefix behind.
var valuePatterns = []*regexp.Regexp{
	// GitHub fine-grained personal access tokens
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`),
	// GitHub classic tokens: ghp_ (PAT), gho_ (OAuth), ghu_/ghs_ (app), ghr_ (refresh)
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{16,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`),
	// Bearer header values
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`),
	// Any long alphanumeric run is treated as a potential secret
	regexp.MustCompile(`[A-Za-z0-9_-]{40,}`),
}

// Mask replaces every recognized secret shape in s with the redaction marker.
func Mask(s string) string {
	for _, p := range valuePatterns {
		s = p.ReplaceAllString(s, Redacted)
	}
	return s
}

// MaskError returns an error whose message has been masked. The original
// error chain is intentionally dropped so wrapped secrets cannot resurface
// through errors.Unwrap.
func MaskError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(Mask(err.Error()))
}

// Maskf formats a message and masks the result.
func Maskf(format string, args ...interface{}) string {
	return Mask(fmt.Sprintf(format, args...))
}
