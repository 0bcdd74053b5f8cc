package tenancy

import (
	"context"

	"github.com/turtacn/shieldgate/pkg/errors"
)

// Owned is implemented by every tenant-scoped resource.
type Owned interface {
	OwnerTenantID() string
}

// AssertOwner compares the resource owner with the validated tenant. A mismatch, or a context
// that was never bound, is an isolation violation: the storage filter has been bypassed and
// the request must fail rather than silently drop the row.
func AssertOwner(ctx context.Context, ownerTenantID string) error {
	validated, ok := ValidatedTenantID(ctx)
	if !ok {
		return errors.ErrIsolationViolation("", ownerTenantID)
	}
	tc, ok := FromContext(ctx)
	if !ok || tc.ID() != validated {
		return errors.ErrIsolationViolation(validated, ownerTenantID)
	}
	if ownerTenantID != validated {
		return errors.ErrIsolationViolation(validated, ownerTenantID)
	}
	return nil
}

// AssertOwned is AssertOwner for a resource value. A nil resource passes.
func AssertOwned(ctx context.Context, r Owned) error {
	if r == nil {
		return nil
	}
	return AssertOwner(ctx, r.OwnerTenantID())
}

// AssertAll checks every element of a result set and fails on the first foreign row.
func AssertAll[T Owned](ctx context.Context, items []T) error {
	for _, it := range items {
		if err := AssertOwner(ctx, it.OwnerTenantID()); err != nil {
			return err
		}
	}
	return nil
}
