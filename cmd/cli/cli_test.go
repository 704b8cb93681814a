package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestPoliciesCommand(t *testing.T) {
	t.Setenv("TASKHUB_RATE_LIMIT_USE_REDIS", "false")

	out := run(t, "ratelimit", "policies")
	assert.Contains(t, out, "rate-limit:auth:login")
	assert.Contains(t, out, "rate-limit:search:query")
}

func TestInspectCommand_InMemory(t *testing.T) {
	t.Setenv("TASKHUB_RATE_LIMIT_USE_REDIS", "false")

	out := run(t, "ratelimit", "inspect", "auth", "login", "1.2.3.4")
	assert.Contains(t, out, "rate-limit:auth:login:1.2.3.4")
	assert.Contains(t, out, "0/5")
}

func TestInspectCommand_UnknownPolicy(t *testing.T) {
	t.Setenv("TASKHUB_RATE_LIMIT_USE_REDIS", "false")

	rootCmd.SetArgs([]string{"ratelimit", "inspect", "auth", "nope", "x"})
	assert.Error(t, rootCmd.ExecuteContext(context.Background()))
}

func TestEmailQuotaCommand(t *testing.T) {
	t.Setenv("TASKHUB_RATE_LIMIT_USE_REDIS", "false")

	out := run(t, "email-quota", "u1")
	assert.Contains(t, out, "allowed:   true")
	assert.Contains(t, out, "remaining: 10")
}
