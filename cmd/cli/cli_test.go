package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/infrastructure/crypto"
	"github.com/turtacn/shieldgate/pkg/logger"
)

const testSigningKey = "cli-test-signing-key-0123456789abcdef"

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestScan(t *testing.T) {
	out, _, err := run(t, "", "scan", "escribime a juan.perez@example.com")
	require.NoError(t, err)

	var verdict map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &verdict))
	assert.Equal(t, true, verdict["is_safe"])
	assert.Equal(t, "escribime a j***@example.com", verdict["sanitized_text"])
	assert.NotContains(t, out, "juan.perez")
}

func TestScan_StrictBlocks(t *testing.T) {
	out, _, err := run(t, "hola\x00mundo", "scan", "--strict")
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Contains(t, out, `"is_safe": false`)

	_, _, err = run(t, "hola\x00mundo", "scan", "-")
	assert.NoError(t, err)
}

func TestRedact(t *testing.T) {
	out, errOut, err := run(t, "escribime a juan.perez@example.com\n", "redact")
	require.NoError(t, err)
	assert.Equal(t, "escribime a j***@example.com\n", out)
	assert.Contains(t, errOut, "redacted:")
}

func TestTokenIssue(t *testing.T) {
	path := writeConfig(t, "jwt:\n  signing_key: "+testSigningKey+"\n")

	out, _, err := run(t, "", "--config", path, "token", "issue",
		"--tenant", "agency-a", "--name", "Agencia A", "--plan", "pro", "--ttl", "10m")
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	manager, err := crypto.NewJWTManager([]byte(testSigningKey), cfg.JWT, logger.NewNoopLogger())
	require.NoError(t, err)
	tc, err := manager.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "agency-a", tc.ID())
	assert.Equal(t, "pro", tc.Plan())
}

func TestTokenIssue_RequiresTenant(t *testing.T) {
	path := writeConfig(t, "jwt:\n  signing_key: "+testSigningKey+"\n")
	_, _, err := run(t, "", "--config", path, "token", "issue")
	assert.Error(t, err)
}

func TestRateLimitReset(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("rate_limit:tenant:agency-a", "0"))
	path := writeConfig(t, "jwt:\n  signing_key: "+testSigningKey+"\n"+
		"redis:\n  enabled: true\n  addresses: [\""+mr.Addr()+"\"]\n")

	out, _, err := run(t, "", "--config", path, "ratelimit", "reset", "--id", "agency-a")
	require.NoError(t, err)
	assert.Contains(t, out, "reset tenant:agency-a")
	assert.False(t, mr.Exists("rate_limit:tenant:agency-a"))

	_, _, err = run(t, "", "--config", path, "ratelimit", "reset", "--scope", "region", "--id", "x")
	assert.Error(t, err)
}
