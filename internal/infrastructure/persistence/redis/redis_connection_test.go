package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/pkg/logger"
)

func TestRedisConnection_Lifecycle(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	rc := NewRedisConnection(config.RedisConfig{Mode: "standalone", Addresses: []string{s.Addr()}, PoolSize: 4}, logger.NewNoopLogger())
	assert.Nil(t, rc.GetClient())
	assert.Error(t, rc.Ping(ctx))

	require.NoError(t, rc.Connect(ctx))
	require.NotNil(t, rc.GetClient())
	assert.NoError(t, rc.Ping(ctx))

	health, err := rc.HealthCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, health["connected"])

	require.NoError(t, rc.Close())
	assert.Nil(t, rc.GetClient())
}

func TestRedisConnection_Errors(t *testing.T) {
	ctx := context.Background()

	rc := NewRedisConnection(config.RedisConfig{}, logger.NewNoopLogger())
	assert.Error(t, rc.Connect(ctx))

	rc = NewRedisConnection(config.RedisConfig{Mode: "sentinel", Addresses: []string{"127.0.0.1:1"}}, logger.NewNoopLogger())
	assert.ErrorContains(t, rc.Connect(ctx), "unsupported")
}
