package domain

import "time"

// Principal is the authenticated identity derived from a verified token.
// It is never persisted and is immutable once constructed: role data is
// normalized into a private set at the boundary so consumers never branch on
// the shape it arrived in.
type Principal struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
	Audience  []string

	roles []string
}

// NewPrincipal constructs a principal, normalizing roles through
// ResolveRoles. Accepted role shapes: string, []string, []any of strings,
// and map[string]bool / map[string]any flattened to truthy keys.
func NewPrincipal(subject, email string, roles any, issuedAt, expiresAt time.Time, issuer string, audience []string) Principal {
	return Principal{
		Subject:   subject,
		Email:     email,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Issuer:    issuer,
		Audience:  audience,
		roles:     ResolveRoles(roles),
	}
}

// Roles returns a copy of the principal's normalized role set.
func (p Principal) Roles() []string {
	out := make([]string, len(p.roles))
	copy(out, p.roles)
	return out
}

// HasRole reports whether the principal holds the exact role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.roles {
		if r == role {
			return true
		}
	}
	return false
}

// ResolveRoles normalizes the polymorphic role representations found in
// tokens and user records into a flat, deduplicated slice. Unrecognized
// shapes resolve to an empty set.
func ResolveRoles(v any) []string {
	switch roles := v.(type) {
	case nil:
		return nil
	case string:
		if roles == "" {
			return nil
		}
		return []string{roles}
	case []string:
		return dedupe(roles)
	case []any:
		out := make([]string, 0, len(roles))
		for _, r := range roles {
			if s, ok := r.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return dedupe(out)
	case map[string]bool:
		out := make([]string, 0, len(roles))
		for name, held := range roles {
			if held && name != "" {
				out = append(out, name)
			}
		}
		return sortedDedupe(out)
	case map[string]any:
		out := make([]string, 0, len(roles))
		for name, held := range roles {
			if b, ok := held.(bool); ok && b && name != "" {
				out = append(out, name)
			}
		}
		return sortedDedupe(out)
	default:
		return nil
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
