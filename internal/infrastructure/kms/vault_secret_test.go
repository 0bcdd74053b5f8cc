package kms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/pkg/logger"
)

func newVaultServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		switch r.URL.Path {
		case "/v1/secret/data/shieldgate/jwt":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"data":{"signing_key":"0123456789abcdef0123456789abcdef"},"metadata":{"version":1}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestVaultSecretSource_SigningKey(t *testing.T) {
	ts := newVaultServer(t)
	cfg := config.VaultConfig{Enabled: true, Address: ts.URL, Token: "test-token", MountPath: "secret", SecretPath: "shieldgate/jwt"}

	src, err := NewVaultSecretSource(cfg, logger.NewNoopLogger())
	require.NoError(t, err)

	key, err := SigningKey(context.Background(), src, cfg)
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", string(key))
}

func TestVaultSecretSource_Missing(t *testing.T) {
	ts := newVaultServer(t)
	cfg := config.VaultConfig{Address: ts.URL, Token: "test-token", SecretPath: "shieldgate/jwt"}

	src, err := NewVaultSecretSource(cfg, logger.NewNoopLogger())
	require.NoError(t, err)

	_, err = src.GetSecret(context.Background(), "shieldgate/other", "signing_key")
	assert.Error(t, err)

	_, err = src.GetSecret(context.Background(), "shieldgate/jwt", "absent")
	assert.ErrorContains(t, err, "absent")
}

func TestResolveSigningKey(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{JWT: config.JWTConfig{SigningKey: "from-config-from-config-from-cfg"}}
	key, err := ResolveSigningKey(ctx, cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, "from-config-from-config-from-cfg", string(key))

	ts := newVaultServer(t)
	cfg.Vault = config.VaultConfig{Enabled: true, Address: ts.URL, Token: "test-token", MountPath: "secret", SecretPath: "shieldgate/jwt"}
	key, err = ResolveSigningKey(ctx, cfg, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", string(key))

	cfg.Vault.SecretPath = "missing"
	_, err = ResolveSigningKey(ctx, cfg, logger.NewNoopLogger())
	assert.Error(t, err)
}
