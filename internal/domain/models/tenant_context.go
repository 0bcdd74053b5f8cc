// Package models defines the domain models of the shieldgate request-defense core.
// This file contains the TenantContext, the verified identity bound to a single request.
package models

import (
	"errors"
	"strings"
)

// TenantContext is the identity of the tenant on whose behalf a request runs.
// It is created only by credential verification, is immutable, and lives for one request.
// TenantContext 是请求所属租户的身份。
// 它只能由凭证验证创建，不可变，生命周期为单个请求。
type TenantContext struct {
	// id is the globally unique tenant identifier.
	// id 是全局唯一的租户标识符。
	id string

	// name is the display name of the tenant organization.
	// name 是租户组织的显示名称。
	name string

	// plan is the subscription tier (e.g., starter, pro, enterprise).
	// plan 是订阅级别（例如 starter、pro、enterprise）。
	plan string

	// permissions is the ordered, de-duplicated set of granted permission strings.
	// permissions 是有序且去重的已授予权限集合。
	permissions []string
}

// ErrEmptyTenantID is returned when constructing a context without an identifier.
var ErrEmptyTenantID = errors.New("tenant id is required")

// NewTenantContext builds an immutable TenantContext. Permission order is preserved and
// duplicates are dropped.
func NewTenantContext(id, name, plan string, permissions []string) (*TenantContext, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyTenantID
	}
	seen := make(map[string]struct{}, len(permissions))
	perms := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if _, dup := seen[p]; dup || p == "" {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	return &TenantContext{id: id, name: name, plan: plan, permissions: perms}, nil
}

// ID returns the tenant identifier.
func (t *TenantContext) ID() string { return t.id }

// Name returns the tenant display name.
func (t *TenantContext) Name() string { return t.name }

// Plan returns the subscription tier.
func (t *TenantContext) Plan() string { return t.plan }

// Permissions returns a copy of the granted permissions.
func (t *TenantContext) Permissions() []string {
	out := make([]string, len(t.permissions))
	copy(out, t.permissions)
	return out
}

// HasPermission reports whether perm was granted. The "*" permission grants everything.
func (t *TenantContext) HasPermission(perm string) bool {
	for _, p := range t.permissions {
		if p == perm || p == "*" {
			return true
		}
	}
	return false
}
