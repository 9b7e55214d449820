package service

import (
	"context"
	"strings"

	"github.com/sellerhub/authcore/internal/auth/domain"
)

// Hook is a pluggable authorization strategy: a pure predicate over the
// principal and the route's required roles. Hooks extend the fixed decision
// order without the engine knowing what they check.
type Hook func(p domain.Principal, required []string) bool

// AuthorizerOptions configure the decision engine. The hierarchy and admin
// role set are fixed for the lifetime of the Authorizer.
type AuthorizerOptions struct {
	Hierarchy  domain.RoleHierarchy
	AdminRoles []string

	// CustomPermissionHook runs after the built-in checks; nil disables it.
	CustomPermissionHook Hook

	// TemporaryRoleHook runs last before denial; nil disables it.
	TemporaryRoleHook Hook

	// Audit receives grant and denial events; nil disables audit logging.
	Audit AuditSink
}

type strategy struct {
	name  string
	allow func(p domain.Principal, roles, required []string) bool
}

// Authorizer decides whether a verified principal may use a route, running
// an ordered strategy list and short-circuiting on the first allow.
type Authorizer struct {
	strategies []strategy
	audit      AuditSink
}

func NewAuthorizer(opts AuthorizerOptions) *Authorizer {
	hierarchy := opts.Hierarchy
	if hierarchy == nil {
		hierarchy = domain.DefaultRoleHierarchy()
	}

	admin := make(map[string]struct{}, len(opts.AdminRoles))
	for _, r := range opts.AdminRoles {
		admin[r] = struct{}{}
	}

	// The order is part of the contract: admin bypass, direct match,
	// hierarchy, then the optional hooks.
	strategies := []strategy{
		{
			name: "admin_bypass",
			allow: func(_ domain.Principal, roles, _ []string) bool {
				for _, r := range roles {
					if _, ok := admin[r]; ok {
						return true
					}
				}
				return false
			},
		},
		{
			name: "direct_match",
			allow: func(_ domain.Principal, roles, required []string) bool {
				held := make(map[string]struct{}, len(roles))
				for _, r := range roles {
					held[r] = struct{}{}
				}
				for _, want := range required {
					if _, ok := held[want]; ok {
						return true
					}
				}
				return false
			},
		},
		{
			name: "hierarchy",
			allow: func(_ domain.Principal, roles, required []string) bool {
				return hierarchy.MaxLevel(roles) >= hierarchy.MinLevel(required)
			},
		},
	}

	if opts.CustomPermissionHook != nil {
		hook := opts.CustomPermissionHook
		strategies = append(strategies, strategy{
			name: "custom_permission",
			allow: func(p domain.Principal, _, required []string) bool {
				return hook(p, required)
			},
		})
	}
	if opts.TemporaryRoleHook != nil {
		hook := opts.TemporaryRoleHook
		strategies = append(strategies, strategy{
			name: "temporary_role",
			allow: func(p domain.Principal, _, required []string) bool {
				return hook(p, required)
			},
		})
	}

	return &Authorizer{strategies: strategies, audit: opts.Audit}
}

// Authorize evaluates the decision chain for the principal against the
// route's required roles. A nil principal is unauthenticated.
func (a *Authorizer) Authorize(ctx context.Context, principal *domain.Principal, required []string) error {
	// A route that declares no required roles is open to anyone,
	// authenticated or not.
	if len(required) == 0 {
		return nil
	}

	if principal == nil || principal.Subject == "" {
		return unauthorized("authentication required")
	}

	roles := principal.Roles()
	if len(roles) == 0 {
		a.logDecision(ctx, principal.Subject, roles, required, "deny", "no roles assigned")
		return forbidden("no roles assigned")
	}

	for _, st := range a.strategies {
		if st.allow(*principal, roles, required) {
			a.logDecision(ctx, principal.Subject, roles, required, "allow", st.name)
			return nil
		}
	}

	a.logDecision(ctx, principal.Subject, roles, required, "deny", "insufficient role")
	return forbidden("required roles: " + strings.Join(required, ", "))
}

// logDecision is best-effort: a panicking or slow-failing sink must never
// change the outcome of the authorization call.
func (a *Authorizer) logDecision(ctx context.Context, subject string, held, required []string, decision, reason string) {
	if a.audit == nil {
		return
	}
	defer func() { _ = recover() }()
	a.audit.Log(newAuditEvent(subject, held, required, routeFromContext(ctx), decision, reason))
}
