// Package crypto issues and verifies the HS256 tenant credentials accepted by the service.
package crypto

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// TenantClaims is the claim set carried by tenant access tokens.
// TenantClaims 是租户访问令牌携带的声明集合。
type TenantClaims struct {
	TenantID    string   `json:"tenant_id"`
	TenantName  string   `json:"tenant_name,omitempty"`
	Plan        string   `json:"plan,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies tenant tokens with a single shared HS256 key.
type JWTManager struct {
	key    []byte
	issuer string
	ttl    time.Duration
	skew   time.Duration
	now    func() time.Time
	log    logger.Logger
}

var _ service.TokenVerifier = (*JWTManager)(nil)

// Option configures a JWTManager.
type Option func(*JWTManager)

// WithClock replaces the wall clock used for iat/exp.
func WithClock(now func() time.Time) Option {
	return func(m *JWTManager) { m.now = now }
}

// NewJWTManager creates a new JWTManager. signingKey comes from configuration or Vault and
// must be at least constants.MinSigningKeyLength bytes.
func NewJWTManager(signingKey []byte, cfg config.JWTConfig, log logger.Logger, opts ...Option) (*JWTManager, error) {
	if len(signingKey) < constants.MinSigningKeyLength {
		return nil, stderrors.New("crypto: signing key too short")
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	m := &JWTManager{
		key:    signingKey,
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		skew:   cfg.ClockSkew,
		now:    time.Now,
		log:    log.WithComponent("jwt_manager"),
	}
	if m.issuer == "" {
		m.issuer = constants.TokenIssuer
	}
	if m.ttl <= 0 {
		m.ttl = constants.AccessTokenDefaultTTL
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token for tc with the configured lifetime.
func (m *JWTManager) Issue(ctx context.Context, tc *models.TenantContext) (string, error) {
	return m.IssueWithTTL(ctx, tc, m.ttl)
}

// IssueWithTTL signs a token for tc valid for ttl, capped at constants.AccessTokenMaxTTL.
func (m *JWTManager) IssueWithTTL(ctx context.Context, tc *models.TenantContext, ttl time.Duration) (string, error) {
	if tc == nil {
		return "", errors.ErrInvalidRequest("tenant context is required")
	}
	if ttl <= 0 || ttl > constants.AccessTokenMaxTTL {
		return "", errors.ErrInvalidRequest("token ttl out of range")
	}
	now := m.now()
	claims := TenantClaims{
		TenantID:    tc.ID(),
		TenantName:  tc.Name(),
		Plan:        tc.Plan(),
		Permissions: tc.Permissions(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   tc.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		m.log.Error(ctx, "Failed to sign JWT", err, logger.String("tenant_id", tc.ID()))
		return "", errors.ErrInternal("token signing failed").WithCause(err)
	}
	return signed, nil
}

// Verify parses and validates a token string. Algorithm, signature, issuer and expiry are
// all checked; every failure is an authentication error.
func (m *JWTManager) Verify(ctx context.Context, tokenString string) (*models.TenantContext, error) {
	if tokenString == "" {
		return nil, errors.ErrAuthentication("missing token")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.skew),
		jwt.WithTimeFunc(m.now),
	)
	claims := &TenantClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		reason := "invalid token"
		switch {
		case stderrors.Is(err, jwt.ErrTokenExpired):
			reason = "token expired"
		case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
			reason = "signature invalid"
		case stderrors.Is(err, jwt.ErrTokenUnverifiable):
			reason = "unexpected signing method"
		}
		m.log.Debug(ctx, "JWT verification failed", logger.String("reason", reason))
		return nil, errors.ErrAuthentication(reason).WithCause(err)
	}

	tc, err := models.NewTenantContext(claims.TenantID, claims.TenantName, claims.Plan, claims.Permissions)
	if err != nil {
		return nil, errors.ErrAuthentication("token has no tenant").WithCause(err)
	}
	return tc, nil
}
