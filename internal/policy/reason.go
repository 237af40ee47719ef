package policy

import "errors"

// Reason returns a short stable label for a denial error, for metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingPermission):
		return "missing_permission"
	case errors.Is(err, ErrWrongArea):
		return "wrong_area"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrNotSelf):
		return "not_self"
	case errors.Is(err, ErrSuperuserOnly):
		return "superuser_only"
	case errors.Is(err, ErrMissingAdminFlag):
		return "missing_admin_flag"
	case errors.Is(err, ErrUngrantablePermission):
		return "ungrantable_permission"
	case errors.Is(err, ErrRoleNotRegistrable):
		return "role_not_registrable"
	}
	return "other"
}
