package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RoleHierarchy maps role names to privilege levels. It is loaded once at
// startup and treated as immutable for the process lifetime; levels strictly
// order privilege and unknown roles are implicitly level 0.
type RoleHierarchy map[string]int

// DefaultRoleHierarchy mirrors the platform's standard privilege ladder.
func DefaultRoleHierarchy() RoleHierarchy {
	return RoleHierarchy{
		"guest":     0,
		"user":      1,
		"moderator": 2,
		"admin":     3,
	}
}

// ParseRoleHierarchy parses "guest:0,user:1,moderator:2,admin:3".
func ParseRoleHierarchy(s string) (RoleHierarchy, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultRoleHierarchy(), nil
	}

	h := make(RoleHierarchy)
	for _, pair := range strings.Split(s, ",") {
		name, levelStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("role hierarchy entry %q: want name:level", pair)
		}
		name = strings.TrimSpace(name)
		level, err := strconv.Atoi(strings.TrimSpace(levelStr))
		if err != nil {
			return nil, fmt.Errorf("role hierarchy entry %q: %w", pair, err)
		}
		if name == "" {
			return nil, fmt.Errorf("role hierarchy entry %q: empty role name", pair)
		}
		h[name] = level
	}
	return h, nil
}

// Level returns the privilege level of a role; unknown roles are level 0.
func (h RoleHierarchy) Level(role string) int {
	return h[role]
}

// MaxLevel returns the highest privilege level among the given roles.
func (h RoleHierarchy) MaxLevel(roles []string) int {
	max := 0
	for i, r := range roles {
		if lvl := h.Level(r); i == 0 || lvl > max {
			max = lvl
		}
	}
	return max
}

// MinLevel returns the lowest privilege level among the given roles.
func (h RoleHierarchy) MinLevel(roles []string) int {
	min := 0
	for i, r := range roles {
		if lvl := h.Level(r); i == 0 || lvl < min {
			min = lvl
		}
	}
	return min
}

func sortedDedupe(in []string) []string {
	out := dedupe(in)
	sort.Strings(out)
	return out
}
