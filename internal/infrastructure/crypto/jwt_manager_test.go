package crypto

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T, clock *fakeClock) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testKey, config.JWTConfig{Issuer: "shieldgate", AccessTokenTTL: time.Hour}, logger.NewNoopLogger(), WithClock(clock.Now))
	require.NoError(t, err)
	return m
}

func signRaw(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTManager_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	tc, err := models.NewTenantContext("agency-a", "Agencia A", "pro", []string{"sales:read", "assistant:chat"})
	require.NoError(t, err)

	token, err := m.Issue(ctx, tc)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")))

	got, err := m.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "agency-a", got.ID())
	assert.Equal(t, "Agencia A", got.Name())
	assert.Equal(t, "pro", got.Plan())
	assert.Equal(t, []string{"sales:read", "assistant:chat"}, got.Permissions())
}

func TestJWTManager_Verify_Rejections(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)
	ctx := context.Background()
	now := clock.t

	valid := func(tenant string) TenantClaims {
		return TenantClaims{
			TenantID: tenant,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "shieldgate",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}
	noExpiry := valid("agency-a")
	noExpiry.ExpiresAt = nil
	otherIssuer := valid("agency-a")
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong algorithm", signRaw(t, jwt.SigningMethodHS512, testKey, valid("agency-a"))},
		{"bad signature", signRaw(t, jwt.SigningMethodHS256, []byte("another-key-another-key-another!!"), valid("agency-a"))},
		{"missing tenant", signRaw(t, jwt.SigningMethodHS256, testKey, valid(""))},
		{"missing expiry", signRaw(t, jwt.SigningMethodHS256, testKey, noExpiry)},
		{"wrong issuer", signRaw(t, jwt.SigningMethodHS256, testKey, otherIssuer)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := m.Verify(ctx, tt.token)
			assert.Nil(t, tc)
			require.Error(t, err)
			assert.True(t, errors.IsAuthenticationError(err), "got %v", err)
		})
	}
}

func TestJWTManager_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)
	ctx := context.Background()

	tc, err := models.NewTenantContext("agency-a", "", "", nil)
	require.NoError(t, err)
	token, err := m.IssueWithTTL(ctx, tc, time.Minute)
	require.NoError(t, err)

	clock.t = clock.t.Add(59 * time.Second)
	_, err = m.Verify(ctx, token)
	assert.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Second)
	_, err = m.Verify(ctx, token)
	assert.True(t, errors.IsAuthenticationError(err))
}

func TestJWTManager_IssueValidation(t *testing.T) {
	m := newTestManager(t, &fakeClock{t: time.Now()})
	ctx := context.Background()

	_, err := m.Issue(ctx, nil)
	assert.Error(t, err)

	tc, _ := models.NewTenantContext("agency-a", "", "", nil)
	_, err = m.IssueWithTTL(ctx, tc, 48*time.Hour)
	assert.Error(t, err)

	_, err = NewJWTManager([]byte("short"), config.JWTConfig{}, nil)
	assert.Error(t, err)
}
