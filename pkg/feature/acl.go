package feature

import (
	"maps"
	"slices"
)

// Grantees lists the users and roles holding a permission.
type Grantees struct {
	Users []string `json:"users,omitempty" yaml:"users,omitempty"`
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

func (g Grantees) clone() Grantees {
	return Grantees{Users: slices.Clone(g.Users), Roles: slices.Clone(g.Roles)}
}

// merge returns the union of g and o, keeping first-seen order.
func (g Grantees) merge(o Grantees) Grantees {
	return Grantees{Users: union(g.Users, o.Users), Roles: union(g.Roles, o.Roles)}
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, v := range b {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// AccessControlList maps a permission name to its grantees. The library
// stores it; enforcing it is up to the caller.
type AccessControlList map[string]Grantees

// Clone returns a deep copy.
func (a AccessControlList) Clone() AccessControlList {
	if a == nil {
		return nil
	}
	out := make(AccessControlList, len(a))
	for perm, g := range a {
		out[perm] = g.clone()
	}
	return out
}

// Permissions returns the permission names in sorted order.
func (a AccessControlList) Permissions() []string {
	return slices.Sorted(maps.Keys(a))
}

// IsGranted reports whether user, or any of roles, holds permission.
func (a AccessControlList) IsGranted(permission, user string, roles ...string) bool {
	g, ok := a[permission]
	if !ok {
		return false
	}
	if user != "" && slices.Contains(g.Users, user) {
		return true
	}
	for _, r := range roles {
		if slices.Contains(g.Roles, r) {
			return true
		}
	}
	return false
}
