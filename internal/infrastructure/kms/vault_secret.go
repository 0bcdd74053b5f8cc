// Package kms loads service secrets from HashiCorp Vault.
package kms

import (
	"context"
	"fmt"
	"path"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// VaultSecretSource reads string secrets from a KV v2 mount.
type VaultSecretSource struct {
	client *vault.Client
	mount  string
	logger logger.Logger
}

// NewVaultSecretSource creates a new VaultSecretSource from configuration.
func NewVaultSecretSource(cfg config.VaultConfig, log logger.Logger) (*VaultSecretSource, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	mount := cfg.MountPath
	if mount == "" {
		mount = "secret"
	}
	return &VaultSecretSource{
		client: client,
		mount:  mount,
		logger: log.WithComponent("vault"),
	}, nil
}

// GetSecret returns field key of the secret stored at secretPath.
func (v *VaultSecretSource) GetSecret(ctx context.Context, secretPath, key string) (string, error) {
	fullPath := path.Join(v.mount, "data", secretPath)
	secret, err := v.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		v.logger.Error(ctx, "failed to read secret from Vault", err, logger.String("path", fullPath))
		return "", fmt.Errorf("could not read secret from vault: %w", err)
	}
	if secret == nil || secret.Data["data"] == nil {
		return "", fmt.Errorf("secret not found in vault at %s", fullPath)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid secret format in vault")
	}
	value, ok := data[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s not found or not a string in vault secret", key)
	}
	return value, nil
}

// SigningKey loads the HS256 signing key configured by cfg.
func SigningKey(ctx context.Context, src *VaultSecretSource, cfg config.VaultConfig) ([]byte, error) {
	key := cfg.SecretKey
	if key == "" {
		key = "signing_key"
	}
	value, err := src.GetSecret(ctx, cfg.SecretPath, key)
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// ResolveSigningKey returns the token signing key: from Vault when cfg.Vault is enabled,
// otherwise the configured jwt.signing_key.
func ResolveSigningKey(ctx context.Context, cfg *config.Config, log logger.Logger) ([]byte, error) {
	if !cfg.Vault.Enabled {
		return []byte(cfg.JWT.SigningKey), nil
	}
	src, err := NewVaultSecretSource(cfg.Vault, log)
	if err != nil {
		return nil, err
	}
	key, err := SigningKey(ctx, src, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("load signing key from vault: %w", err)
	}
	log.Info(ctx, "Signing key loaded from Vault", logger.String("path", cfg.Vault.SecretPath))
	return key, nil
}
