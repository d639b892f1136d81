// Package authz decides whether a principal may perform a user-management
// operation on a target account. Decisions are pure: callers audit the
// outcome and enforce it.
package authz

import (
	"context"
	"fmt"

	"github.com/meridian-ops/meridian/internal/audit"
	"github.com/meridian-ops/meridian/internal/shared"
)

// Operation identifies a gated user-management operation.
type Operation string

const (
	OpView              Operation = "view"
	OpViewList          Operation = "view-list"
	OpCreate            Operation = "create"
	OpUpdate            Operation = "update"
	OpUpdatePassword    Operation = "update-password"
	OpViewPermissions   Operation = "view-permissions"
	OpDelete            Operation = "delete"
	OpUpdatePreferences Operation = "update-preferences"
	OpSearch            Operation = "search"
	OpViewAuditLog      Operation = "view-audit-log"
	OpViewSessions      Operation = "view-sessions"
	OpTerminateSessions Operation = "terminate-sessions"
)

// Denial reasons. Stored in audit details alongside the action tag.
const (
	ReasonMissingPermission          = "missing-permission"
	ReasonSelfDeleteForbidden        = "self-delete-forbidden"
	ReasonCrossUserPasswordForbidden = "cross-user-password-forbidden"
)

// PermissionEvaluator reports whether a principal holds at least one of the
// given permissions.
type PermissionEvaluator interface {
	HasAny(ctx context.Context, principalID int64, perms ...string) (bool, error)
}

// Request carries per-operation inputs the gate inspects.
type Request struct {
	// Fields lists the field names an update intends to change.
	Fields []string
	// AdminOverride bypasses current-password verification on password change.
	AdminOverride bool
}

// Decision is the gate outcome. When Allowed is false, DenyAction names the
// audit action to record and Reason the machine-readable cause.
type Decision struct {
	Allowed    bool
	DenyAction string
	Reason     string
}

// Gate evaluates the authorization policy for user-management operations.
type Gate struct {
	perms PermissionEvaluator
}

// NewGate constructs a Gate.
func NewGate(perms PermissionEvaluator) *Gate {
	return &Gate{perms: perms}
}

// Authorize decides whether principalID may perform op against targetID.
//
// Self-actions are permitted without grants for view, view-permissions,
// view-sessions, terminate-sessions, preference updates and updates that
// touch no privileged field. Deleting one's own account is always refused,
// before any permission lookup.
func (g *Gate) Authorize(ctx context.Context, principalID, targetID int64, op Operation, req Request) (Decision, error) {
	self := principalID == targetID

	switch op {
	case OpDelete:
		if self {
			return deny(audit.ActionUnauthorizedUserDeletion, ReasonSelfDeleteForbidden), nil
		}
		return g.require(ctx, principalID, audit.ActionUnauthorizedUserDeletion, shared.PermAdminUsers)

	case OpUpdatePassword:
		if req.AdminOverride {
			return g.require(ctx, principalID, audit.ActionUnauthorizedPasswordAdminOverride, shared.PermAdminUsers)
		}
		if !self {
			return deny(audit.ActionUnauthorizedPasswordChange, ReasonCrossUserPasswordForbidden), nil
		}
		// Self change without override: allowed here, current-password
		// verification happens in the password flow.
		return allow(), nil

	case OpView:
		if self {
			return allow(), nil
		}
		return g.require(ctx, principalID, audit.ActionUnauthorizedUserLookup, shared.PermUsersView, shared.PermAdminUsers)

	case OpViewList:
		return g.require(ctx, principalID, audit.ActionUnauthorizedAccessAttempt, shared.PermUsersView, shared.PermAdminUsers)

	case OpSearch:
		return g.require(ctx, principalID, audit.ActionUnauthorizedUserSearch, shared.PermUsersView, shared.PermAdminUsers)

	case OpCreate:
		return g.require(ctx, principalID, audit.ActionUnauthorizedUserCreation, shared.PermUsersCreate, shared.PermAdminUsers)

	case OpUpdate:
		if self && !touchesPrivilegedFields(req.Fields) {
			return allow(), nil
		}
		return g.require(ctx, principalID, audit.ActionUnauthorizedUserUpdate, shared.PermUsersEdit, shared.PermAdminUsers)

	case OpViewPermissions:
		if self {
			return allow(), nil
		}
		return g.require(ctx, principalID, audit.ActionUnauthorizedPermissionsLookup, shared.PermAdminUsers)

	case OpUpdatePreferences:
		if self {
			return allow(), nil
		}
		return g.require(ctx, principalID, audit.ActionUnauthorizedPreferencesUpdate, shared.PermAdminUsers)

	case OpViewAuditLog:
		return g.require(ctx, principalID, audit.ActionUnauthorizedAuditLogAccess, shared.PermAdminUsers, shared.PermAuditView)

	case OpViewSessions:
		if self {
			return allow(), nil
		}
		return g.require(ctx, principalID, audit.ActionUnauthorizedSessionsLookup, shared.PermAdminUsers)

	case OpTerminateSessions:
		if self {
			return allow(), nil
		}
		return g.require(ctx, principalID, audit.ActionUnauthorizedSessionTermination, shared.PermAdminUsers)
	}

	return Decision{}, fmt.Errorf("authz: unknown operation %q", op)
}

func (g *Gate) require(ctx context.Context, principalID int64, denyAction string, perms ...string) (Decision, error) {
	ok, err := g.perms.HasAny(ctx, principalID, perms...)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return deny(denyAction, ReasonMissingPermission), nil
	}
	return allow(), nil
}

// Fields whose change requires users.edit or admin.users even on self.
func touchesPrivilegedFields(fields []string) bool {
	for _, f := range fields {
		if f == "role" || f == "role_id" || f == "status" {
			return true
		}
	}
	return false
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(action, reason string) Decision {
	return Decision{Allowed: false, DenyAction: action, Reason: reason}
}
