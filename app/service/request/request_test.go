package request

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Register
		wantErr string
	}{
		{name: "valid", req: Register{Email: " Boss@Example.com ", Password: "secret", Role: "employer"}},
		{name: "valid seeker upper role", req: Register{Email: "s@example.com", Password: "secret", Role: " Seeker"}},
		{name: "no email", req: Register{Password: "secret", Role: "seeker"}, wantErr: "email: is required"},
		{name: "bad email", req: Register{Email: "nope", Password: "secret", Role: "seeker"}, wantErr: "email: must be a valid email"},
		{name: "no password", req: Register{Email: "s@example.com", Role: "seeker"}, wantErr: "password: is required"},
		{name: "long password", req: Register{Email: "s@example.com", Password: strings.Repeat("x", 73), Role: "seeker"},
			wantErr: "password: must be at most 72 bytes"},
		{name: "multibyte password over limit", req: Register{Email: "s@example.com", Password: strings.Repeat("ж", 37), Role: "seeker"},
			wantErr: "password: must be at most 72 bytes"},
		{name: "bad role", req: Register{Email: "s@example.com", Password: "secret", Role: "admin"},
			wantErr: "role: must be one of [employer seeker]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}

	r := Register{Email: " Boss@Example.com ", Password: strings.Repeat("x", 72), Role: "EMPLOYER"}
	require.NoError(t, r.Validate())
	assert.Equal(t, "boss@example.com", r.Email)
	assert.Equal(t, "employer", r.Role)
}

func TestLogin_Validate(t *testing.T) {
	r := Login{Email: " A@B.com", Password: "x"}
	require.NoError(t, r.Validate())
	assert.Equal(t, "a@b.com", r.Email)

	r = Login{Email: "a@b.com"}
	assert.EqualError(t, r.Validate(), "password: is required")
}

func TestCreateJob_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateJob
		wantErr string
	}{
		{name: "valid", req: CreateJob{Title: "Engineer", Description: "build"}},
		{name: "all fields", req: CreateJob{Title: "Engineer", Description: "build", Location: "Berlin", Salary: "100k"}},
		{name: "blank title", req: CreateJob{Title: "   ", Description: "build"}, wantErr: "title: is required"},
		{name: "no description", req: CreateJob{Title: "Engineer"}, wantErr: "description: is required"},
		{name: "long title", req: CreateJob{Title: strings.Repeat("t", 121), Description: "d"},
			wantErr: "title: must be at most 120 characters"},
		{name: "max title", req: CreateJob{Title: strings.Repeat("т", 120), Description: "d"}},
		{name: "long location", req: CreateJob{Title: "t", Description: "d", Location: strings.Repeat("l", 101)},
			wantErr: "location: must be at most 100 characters"},
		{name: "long salary", req: CreateJob{Title: "t", Description: "d", Salary: strings.Repeat("1", 51)},
			wantErr: "salary: must be at most 50 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestApply_Validate(t *testing.T) {
	r := Apply{CoverLetter: "  hire me \n"}
	require.NoError(t, r.Validate())
	assert.Equal(t, "hire me", r.CoverLetter)

	r = Apply{CoverLetter: " \t"}
	assert.EqualError(t, r.Validate(), "cover_letter: is required")
}

func TestCheck_FieldNames(t *testing.T) {
	type payload struct {
		JobID    int64  `json:"job_id" validate:"required"`
		HTTPURL  string `json:"http_url,omitempty" validate:"required"`
		Internal string `json:"-" validate:"required"`
	}
	assert.EqualError(t, check(&payload{HTTPURL: "x", Internal: "x"}), "job_id: is required")
	assert.EqualError(t, check(&payload{JobID: 1, Internal: "x"}), "http_url: is required")
	assert.EqualError(t, check(&payload{JobID: 1, HTTPURL: "x"}), "Internal: is required")
}
