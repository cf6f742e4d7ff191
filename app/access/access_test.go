package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/jobboard/app/web/enums"
	"github.com/umputun/jobboard/app/web/persistence"
)

var (
	employer = &persistence.User{ID: 1, Email: "boss@example.com", Role: enums.RoleEmployer}
	seeker   = &persistence.User{ID: 2, Email: "seeker@example.com", Role: enums.RoleSeeker}
)

func TestCanCreateJob(t *testing.T) {
	tests := []struct {
		name string
		user *persistence.User
		want Decision
	}{
		{name: "anonymous", user: nil, want: Decision{Reason: ReasonUnauthenticated}},
		{name: "seeker", user: seeker, want: Decision{Reason: ReasonRoleMismatch}},
		{name: "employer", user: employer, want: Decision{Allowed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanCreateJob(tt.user))
		})
	}
}

func TestCanApplyToJob(t *testing.T) {
	job := persistence.Job{ID: 10, Title: "Engineer", EmployerID: employer.ID}
	tests := []struct {
		name    string
		user    *persistence.User
		applied bool
		want    Decision
	}{
		{name: "anonymous", user: nil, want: Decision{Reason: ReasonUnauthenticated}},
		{name: "anonymous applied", user: nil, applied: true, want: Decision{Reason: ReasonUnauthenticated}},
		{name: "employer", user: employer, want: Decision{Reason: ReasonRoleMismatch}},
		{name: "employer applied", user: employer, applied: true, want: Decision{Reason: ReasonRoleMismatch}},
		{name: "seeker first time", user: seeker, want: Decision{Allowed: true}},
		{name: "seeker again", user: seeker, applied: true, want: Decision{Reason: ReasonDuplicateApplication}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanApplyToJob(tt.user, job, tt.applied))
		})
	}
}

func TestCanViewEmployerApplications(t *testing.T) {
	assert.Equal(t, Decision{Reason: ReasonUnauthenticated}, CanViewEmployerApplications(nil))
	assert.Equal(t, Decision{Reason: ReasonRoleMismatch}, CanViewEmployerApplications(seeker))
	assert.Equal(t, Decision{Allowed: true}, CanViewEmployerApplications(employer))
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := CanCreateJob(seeker).Err()
	require.Error(t, err)
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, ReasonRoleMismatch, denied.Reason)
	assert.Equal(t, "access denied: role-mismatch", err.Error())
}

func TestOwnedApplications(t *testing.T) {
	apps := []persistence.ApplicationSummary{
		{Application: persistence.Application{ID: 1}, EmployerID: employer.ID},
		{Application: persistence.Application{ID: 2}, EmployerID: 99},
		{Application: persistence.Application{ID: 3}, EmployerID: employer.ID},
	}

	res := OwnedApplications(employer, apps)
	require.Len(t, res, 2)
	assert.Equal(t, int64(1), res[0].ID)
	assert.Equal(t, int64(3), res[1].ID)

	assert.Empty(t, OwnedApplications(seeker, apps))
	assert.Empty(t, OwnedApplications(nil, apps))
	assert.NotNil(t, OwnedApplications(employer, nil))
}
