// Package access decides who may do what with jobs and applications.
// All checks are pure, callers load the records and pass them in.
package access

import (
	"fmt"

	"github.com/umputun/jobboard/app/web/enums"
	"github.com/umputun/jobboard/app/web/persistence"
)

// Reason explains a denied decision
type Reason string

// denial reasons
const (
	ReasonNone                 Reason = ""
	ReasonUnauthenticated      Reason = "unauthenticated"
	ReasonRoleMismatch         Reason = "role-mismatch"
	ReasonDuplicateApplication Reason = "duplicate-application"
)

// Decision is the result of an access check
type Decision struct {
	Allowed bool
	Reason  Reason
}

// DeniedError is returned by Decision.Err for denied decisions
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// Err returns nil for allowed decisions and *DeniedError otherwise
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

func allow() Decision { return Decision{Allowed: true} }

func deny(r Reason) Decision { return Decision{Reason: r} }

// requireRole checks identity first and role second
func requireRole(user *persistence.User, role enums.Role) Decision {
	if user == nil {
		return deny(ReasonUnauthenticated)
	}
	if user.Role != role {
		return deny(ReasonRoleMismatch)
	}
	return allow()
}

// CanCreateJob allows employers only
func CanCreateJob(user *persistence.User) Decision {
	return requireRole(user, enums.RoleEmployer)
}

// CanApplyToJob allows a seeker who has not applied to the job yet.
// applied must come from a read made in the same transaction as the following insert.
func CanApplyToJob(user *persistence.User, _ persistence.Job, applied bool) Decision {
	if d := requireRole(user, enums.RoleSeeker); !d.Allowed {
		return d
	}
	if applied {
		return deny(ReasonDuplicateApplication)
	}
	return allow()
}

// CanViewEmployerApplications allows employers only
func CanViewEmployerApplications(user *persistence.User) Decision {
	return requireRole(user, enums.RoleEmployer)
}

// OwnedApplications keeps applications to jobs owned by the user, nil user gets nothing
func OwnedApplications(user *persistence.User, apps []persistence.ApplicationSummary) []persistence.ApplicationSummary {
	res := make([]persistence.ApplicationSummary, 0, len(apps))
	if user == nil {
		return res
	}
	for _, a := range apps {
		if a.EmployerID == user.ID {
			res = append(res, a)
		}
	}
	return res
}
