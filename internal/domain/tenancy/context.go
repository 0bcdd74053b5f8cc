// Package tenancy carries the validated tenant identity through a request and asserts that
// every tenant-scoped resource returned belongs to it.
//
// The identity is stored twice: the TenantContext itself, used by business logic, and an
// independent validated-tenant marker, used only by ownership checks and by the storage
// layer's transaction variable.
package tenancy

import (
	"context"
	"fmt"

	"github.com/turtacn/shieldgate/internal/domain/models"
)

type ctxKey int

const (
	tenantContextKey ctxKey = iota
	validatedTenantKey
)

// validatedTenant is the marker type. Keeping it distinct from TenantContext means a
// context carrying only one of the two values fails ownership checks.
type validatedTenant struct {
	id string
}

// Bind attaches tc and the validated-tenant marker to ctx. Rebinding a context that is
// already bound to another tenant is refused.
func Bind(ctx context.Context, tc *models.TenantContext) (context.Context, error) {
	if tc == nil || tc.ID() == "" {
		return nil, models.ErrEmptyTenantID
	}
	if existing, ok := ValidatedTenantID(ctx); ok && existing != tc.ID() {
		return nil, fmt.Errorf("context already bound to tenant %q", existing)
	}
	ctx = context.WithValue(ctx, tenantContextKey, tc)
	return context.WithValue(ctx, validatedTenantKey, validatedTenant{id: tc.ID()}), nil
}

// FromContext returns the TenantContext bound to ctx.
func FromContext(ctx context.Context) (*models.TenantContext, bool) {
	tc, ok := ctx.Value(tenantContextKey).(*models.TenantContext)
	return tc, ok && tc != nil
}

// ValidatedTenantID returns the tenant id recorded by the marker.
func ValidatedTenantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(validatedTenantKey).(validatedTenant)
	if !ok || v.id == "" {
		return "", false
	}
	return v.id, true
}

// TenantIDFromContext returns the bound tenant id for logging. It does not replace an
// ownership check.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if tc, ok := FromContext(ctx); ok {
		return tc.ID(), true
	}
	return "", false
}
