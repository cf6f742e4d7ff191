package seed

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/umputun/jobboard/app/service"
	"github.com/umputun/jobboard/app/service/request"
	"github.com/umputun/jobboard/app/web/persistence"
)

func TestLoad(t *testing.T) {
	f, err := Load("testdata/fixtures.yml")
	require.NoError(t, err)
	require.Len(t, f.Users, 2)
	require.Len(t, f.Jobs, 2)
	assert.Equal(t, User{Email: "boss@example.com", Password: "secret", Role: "employer"}, f.Users[0])
	assert.Equal(t, "Berlin", f.Jobs[0].Location)
	assert.Empty(t, f.Jobs[1].Salary)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		file    string
		wantErr string
	}{
		{file: "testdata/no-such-file.yml", wantErr: "can't read seed file"},
		{file: "testdata/bad_role.yml", wantErr: "users.0.role"},
		{file: "testdata/bad_field.yml", wantErr: "nickname"},
		{file: "testdata/long_title.yml", wantErr: "jobs.0.title"},
		{file: "testdata/no_employer.yml", wantErr: "employer seeker@example.com is not an employer"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := Load(tt.file)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", m["$schema"])
	assert.Contains(t, string(data), `"enum":["employer","seeker"]`)
	assert.Contains(t, string(data), `"maxLength":120`)
}

func TestApply(t *testing.T) {
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &service.JobBoard{Store: store, BcryptCost: bcrypt.MinCost, Now: func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}}
	ctx := context.Background()

	f, err := Load("testdata/fixtures.yml")
	require.NoError(t, err)

	res, err := Apply(ctx, svc, f)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersCreated: 2, JobsCreated: 2}, res)

	seeker, err := store.GetUserByEmail(ctx, "seeker@example.com")
	require.NoError(t, err)
	assert.Equal(t, "seeker", seeker.Role.String())

	jobs, err := svc.SearchJobs(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Sales Manager", jobs[0].Title)

	res, err = Apply(ctx, svc, f)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersSkipped: 2, JobsSkipped: 2}, res, "second run is a no-op")
	jobs, err = svc.SearchJobs(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

type failingService struct{}

func (failingService) Register(context.Context, request.Register) (persistence.User, error) {
	return persistence.User{}, errors.New("db down")
}

func (failingService) CreateJob(context.Context, int64, request.CreateJob) (persistence.Job, error) {
	return persistence.Job{}, errors.New("db down")
}

func TestApply_Error(t *testing.T) {
	f := &Fixtures{Users: []User{{Email: "a@example.com", Password: "x", Role: "seeker"}}}
	_, err := Apply(context.Background(), failingService{}, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't register seed user a@example.com")
}
