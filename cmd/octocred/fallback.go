package main

import (
	"context"
	"os/exec"
	"strings"
)

// ghCLIFallback asks the GitHub CLI for a token when no internal source has
// one. A missing gh binary or a failed invocation is simply a miss.
func ghCLIFallback(ctx context.Context, hostname string) (string, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}
	out, err := exec.CommandContext(ctx, "gh", "auth", "token", "--hostname", hostname).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
