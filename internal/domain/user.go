package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// Area is an organizational scope. Area-bound roles may only publish and
// grant permissions inside their own area.
type Area string

// Areas.
const (
	AreaIT        Area = "it"
	AreaMarketing Area = "marketing"
	AreaRRHH      Area = "rrhh"
)

// IsValid reports whether the area is one of the known areas.
func (a Area) IsValid() bool {
	return a == AreaIT || a == AreaMarketing || a == AreaRRHH
}

// Role represents the fixed role assigned to a user at registration.
type Role string

// Roles. Superuser bypasses all checks; operator belongs to no area.
const (
	RoleSuperuser       Role = "superuser"
	RoleITAdmin         Role = "it_admin"
	RoleMarketingAdmin  Role = "marketing_admin"
	RoleRRHHAdmin       Role = "rrhh_admin"
	RoleITWorker        Role = "it_worker"
	RoleMarketingWorker Role = "marketing_worker"
	RoleRRHHWorker      Role = "rrhh_worker"
	RoleOperator        Role = "operator"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperuser, RoleITAdmin, RoleMarketingAdmin, RoleRRHHAdmin,
		RoleITWorker, RoleMarketingWorker, RoleRRHHWorker, RoleOperator:
		return true
	}
	return false
}

// Area returns the area a role belongs to. The second return value is false
// for the superuser and operator roles, which are not bound to any area.
func (r Role) Area() (Area, bool) {
	switch r {
	case RoleITAdmin, RoleITWorker:
		return AreaIT, true
	case RoleMarketingAdmin, RoleMarketingWorker:
		return AreaMarketing, true
	case RoleRRHHAdmin, RoleRRHHWorker:
		return AreaRRHH, true
	}
	return "", false
}

// IsAreaAdmin reports whether the role is one of the three area admin roles.
func (r Role) IsAreaAdmin() bool {
	return r == RoleITAdmin || r == RoleMarketingAdmin || r == RoleRRHHAdmin
}

// WorkerRole returns the worker role of the same area as an admin role.
// The second return value is false for non-admin roles.
func (r Role) WorkerRole() (Role, bool) {
	switch r {
	case RoleITAdmin:
		return RoleITWorker, true
	case RoleMarketingAdmin:
		return RoleMarketingWorker, true
	case RoleRRHHAdmin:
		return RoleRRHHWorker, true
	}
	return "", false
}

// Permission is a discrete capability tag held per user, orthogonal to role.
type Permission string

// Permissions.
const (
	PermissionCreatePublication Permission = "create_publication"
	PermissionRegisterUser      Permission = "register_user"
	PermissionAreaAdmin         Permission = "area_admin"
)

// PermissionSet is the set of permission tags a user holds.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from a list of tags, dropping duplicates.
func NewPermissionSet(tags ...Permission) PermissionSet {
	s := make(PermissionSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the tag.
func (s PermissionSet) Has(tag Permission) bool {
	_, ok := s[tag]
	return ok
}

// ContainsAny reports whether the set contains at least one of the tags.
func (s PermissionSet) ContainsAny(tags ...Permission) bool {
	for _, t := range tags {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Toggle adds the tag if absent and removes it if present. Applying it twice
// with the same tag restores the original set.
func (s PermissionSet) Toggle(tag Permission) {
	if s.Has(tag) {
		delete(s, tag)
		return
	}
	s[tag] = struct{}{}
}

// List returns the tags as a sorted slice, for persistence and responses.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// MarshalJSON encodes the set as a JSON array of tags.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes a JSON array of tags into the set.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var tags []Permission
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewPermissionSet(tags...)
	return nil
}

// User represents an employee account.
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Surname      string        `json:"surname"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	ProfilePhoto string        `json:"profile_photo,omitempty"`
	Birthday     *time.Time    `json:"birthday,omitempty"`
	Role         Role          `json:"role"`
	Permissions  PermissionSet `json:"permissions"`
	Active       bool          `json:"active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Area returns the user's area derived from their role.
func (u *User) Area() (Area, bool) {
	return u.Role.Area()
}
