package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/umputun/jobboard/app/web/enums"
)

var (
	// ErrNotFound returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail returned when a user with the same email already exists
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrDuplicateApplication returned when the seeker already applied to the job
	ErrDuplicateApplication = errors.New("duplicate application")
)

// User is a registered identity, either an employer or a seeker
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         enums.Role
	CreatedAt    time.Time
}

// Job is a job posting owned by an employer
type Job struct {
	ID          int64
	Title       string
	Description string
	Location    string // optional, empty if not set
	Salary      string // optional, empty if not set
	EmployerID  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Application is a seeker's submission to a job
type Application struct {
	ID          int64
	CoverLetter string
	CreatedAt   time.Time
	JobID       int64
	SeekerID    int64
}

// ApplicationSummary is an application joined with its job and seeker, as seen by the job owner
type ApplicationSummary struct {
	Application
	JobTitle    string
	EmployerID  int64
	SeekerEmail string
}

// JobFilter defines search constraints, empty fields match everything
type JobFilter struct {
	Keyword  string // case-insensitive substring of the title
	Location string // case-insensitive substring of the location
}

// normalized returns the filter with surrounding whitespace removed
func (f JobFilter) normalized() JobFilter {
	return JobFilter{Keyword: strings.TrimSpace(f.Keyword), Location: strings.TrimSpace(f.Location)}
}

// Repo defines store operations available both on a plain connection and inside a transaction
type Repo interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	CreateJob(ctx context.Context, j Job) (Job, error)
	GetJob(ctx context.Context, id int64) (Job, error)
	SearchJobs(ctx context.Context, f JobFilter) ([]Job, error)
	FindApplication(ctx context.Context, jobID, seekerID int64) (Application, error)
	CreateApplication(ctx context.Context, a Application) (Application, error)
	ListEmployerApplications(ctx context.Context, employerID int64) ([]ApplicationSummary, error)
}

// Store is a Repo with transaction scopes, implemented by SQLiteStore and PostgresStore
type Store interface {
	Repo
	InTx(ctx context.Context, fn func(r Repo) error) error
	Close() error
}

// Open makes a store for the given dsn, postgres:// and postgresql:// urls select PostgreSQL,
// anything else is a SQLite database path
func Open(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		pg, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	sq, err := NewSQLiteStore(dsn)
	if err != nil {
		return nil, err
	}
	return sq, nil
}
