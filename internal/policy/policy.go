// Package policy implements the authorization decision logic. It is a pure
// package: no I/O, no state, every function decides from its arguments alone.
package policy

import (
	"errors"

	"github.com/staffboard/staffboard/internal/domain"
)

// Denial reasons. Handlers map each to a specific 403 message.
var (
	ErrMissingPermission     = errors.New("missing required permission")
	ErrWrongArea             = errors.New("action not allowed outside your area")
	ErrNotOwner              = errors.New("you do not own this resource")
	ErrNotSelf               = errors.New("you can only modify your own account")
	ErrSuperuserOnly         = errors.New("superuser role required")
	ErrMissingAdminFlag      = errors.New("area admin permission required to grant permissions")
	ErrUngrantablePermission = errors.New("permission cannot be granted by an area admin")
	ErrRoleNotRegistrable    = errors.New("you can only register workers of your own area")
)

// grantable is the fixed set of tags an area admin may toggle on workers of
// their area. Superusers are not bound by it.
var grantable = domain.NewPermissionSet(
	domain.PermissionCreatePublication,
	domain.PermissionRegisterUser,
)

// Engine evaluates whether an actor may perform an action. Superuser always
// wins; every other rule is checked in the order documented on each method.
type Engine struct{}

// NewEngine creates a policy engine.
func NewEngine() *Engine {
	return &Engine{}
}

// CanCreatePublication decides whether the actor may publish into the target
// area. Non-superusers need one of {create_publication, area_admin} and a
// role bound to the target area. Roles without an area are always denied.
func (e *Engine) CanCreatePublication(actor *domain.User, area domain.Area) error {
	if actor.Role == domain.RoleSuperuser {
		return nil
	}
	if !actor.Permissions.ContainsAny(domain.PermissionCreatePublication, domain.PermissionAreaAdmin) {
		return ErrMissingPermission
	}
	actorArea, ok := actor.Role.Area()
	if !ok || actorArea != area {
		return ErrWrongArea
	}
	return nil
}

// CanRegisterUser decides whether the actor may register an account with the
// given role. Non-superusers need one of {register_user, area_admin}; an
// area admin may only register the worker role of their own area.
func (e *Engine) CanRegisterUser(actor *domain.User, newRole domain.Role) error {
	if actor.Role == domain.RoleSuperuser {
		return nil
	}
	if !actor.Permissions.ContainsAny(domain.PermissionRegisterUser, domain.PermissionAreaAdmin) {
		return ErrMissingPermission
	}
	if worker, ok := actor.Role.WorkerRole(); ok && newRole != worker {
		return ErrRoleNotRegistrable
	}
	return nil
}

// CanMutateContent decides whether the actor may edit, delete, or reactivate
// a content item. Only the author or the superuser may.
func (e *Engine) CanMutateContent(actor *domain.User, authorID string) error {
	if actor.Role == domain.RoleSuperuser {
		return nil
	}
	if actor.ID != authorID {
		return ErrNotOwner
	}
	return nil
}

// CanEditAccount decides whether the actor may update the target account.
// Self or superuser; area admins get no extra rights here.
func (e *Engine) CanEditAccount(actor *domain.User, targetID string) error {
	if actor.Role == domain.RoleSuperuser {
		return nil
	}
	if actor.ID != targetID {
		return ErrNotSelf
	}
	return nil
}

// CanDeleteAccount decides whether the actor may soft-delete accounts.
func (e *Engine) CanDeleteAccount(actor *domain.User) error {
	if actor.Role != domain.RoleSuperuser {
		return ErrSuperuserOnly
	}
	return nil
}

// CanChangePassword decides whether the actor may change the target account's
// password through the admin endpoint.
func (e *Engine) CanChangePassword(actor *domain.User) error {
	if actor.Role != domain.RoleSuperuser {
		return ErrSuperuserOnly
	}
	return nil
}

// CanIssuePasswordReset decides whether the actor may request a reset mail
// on behalf of a user.
func (e *Engine) CanIssuePasswordReset(actor *domain.User) error {
	if actor.Role != domain.RoleSuperuser {
		return ErrSuperuserOnly
	}
	return nil
}

// CanGrantPermission decides whether the actor may toggle the tag on the
// target user. Superusers may toggle anything. An area admin may toggle only
// when all three hold: the target's role is the worker role of the admin's
// area, the admin holds the area_admin tag, and the tag is grantable.
// Everyone else is denied outright.
func (e *Engine) CanGrantPermission(actor, target *domain.User, tag domain.Permission) error {
	if actor.Role == domain.RoleSuperuser {
		return nil
	}
	worker, ok := actor.Role.WorkerRole()
	if !ok {
		return ErrMissingPermission
	}
	if target.Role != worker {
		return ErrWrongArea
	}
	if !actor.Permissions.Has(domain.PermissionAreaAdmin) {
		return ErrMissingAdminFlag
	}
	if !grantable.Has(tag) {
		return ErrUngrantablePermission
	}
	return nil
}
