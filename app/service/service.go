// Package service implements job board operations on top of the store, access rules and token issuer
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/crypto/bcrypt"

	"github.com/umputun/jobboard/app/access"
	"github.com/umputun/jobboard/app/notify"
	"github.com/umputun/jobboard/app/service/request"
	"github.com/umputun/jobboard/app/web/enums"
	"github.com/umputun/jobboard/app/web/persistence"
)

//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier
//go:generate moq -out mocks/token_issuer.go -pkg mocks -skip-ensure -fmt goimports . TokenIssuer

// JobBoard provides all user-facing operations. Store and Tokens are required, Notifier is optional.
type JobBoard struct {
	Store      persistence.Store
	Tokens     TokenIssuer
	Notifier   Notifier
	BcryptCost int
	Now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// TokenIssuer makes access tokens for authenticated users
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// Notifier accepts application notices for asynchronous delivery
type Notifier interface {
	Submit(a notify.Application)
}

// ApplicationStatus tells whether the caller applied to the job
type ApplicationStatus struct {
	Applied     bool
	Application *persistence.Application
}

// Register creates a new account
func (s *JobBoard) Register(ctx context.Context, req request.Register) (persistence.User, error) {
	if err := req.Validate(); err != nil {
		return persistence.User{}, newError(enums.ErrorKindValidation, err.Error(), err)
	}
	role, err := enums.ParseRole(req.Role)
	if err != nil {
		return persistence.User{}, newError(enums.ErrorKindValidation, err.Error(), err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost())
	if err != nil {
		return persistence.User{}, internal(err)
	}

	var user persistence.User
	err = s.Store.InTx(ctx, func(r persistence.Repo) error {
		if _, e := r.GetUserByEmail(ctx, req.Email); e == nil {
			return persistence.ErrDuplicateEmail
		} else if !errors.Is(e, persistence.ErrNotFound) {
			return e
		}
		u, e := r.CreateUser(ctx, persistence.User{Email: req.Email, PasswordHash: string(hash), Role: role, CreatedAt: s.now()})
		if e != nil {
			return e
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicateEmail) {
			return persistence.User{}, newError(enums.ErrorKindConflict, "Email already registered", err)
		}
		log.Printf("[WARN] failed to register %s, %v", req.Email, err)
		return persistence.User{}, internal(err)
	}
	log.Printf("[INFO] registered %s user %d", user.Role, user.ID)
	return user, nil
}

// Login checks credentials and returns access token with the user.
// Unknown email and wrong password produce the same error.
func (s *JobBoard) Login(ctx context.Context, req request.Login) (string, persistence.User, error) {
	if err := req.Validate(); err != nil {
		return "", persistence.User{}, newError(enums.ErrorKindValidation, err.Error(), err)
	}
	badCreds := newError(enums.ErrorKindUnauthenticated, "Invalid credentials", nil)

	user, err := s.Store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			log.Printf("[WARN] failed to load user for login, %v", err)
			return "", persistence.User{}, internal(err)
		}
		_ = bcrypt.CompareHashAndPassword(s.timingHash(), []byte(req.Password))
		return "", persistence.User{}, badCreds
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", persistence.User{}, badCreds
	}

	tok, err := s.Tokens.Issue(user.ID)
	if err != nil {
		log.Printf("[WARN] failed to issue token for user %d, %v", user.ID, err)
		return "", persistence.User{}, internal(err)
	}
	log.Printf("[DEBUG] user %d logged in", user.ID)
	return tok, user, nil
}

// Me returns the authenticated user
func (s *JobBoard) Me(ctx context.Context, userID int64) (persistence.User, error) {
	user, err := s.caller(ctx, userID)
	if err != nil {
		return persistence.User{}, err
	}
	return *user, nil
}

// CreateJob posts a new job owned by the calling employer
func (s *JobBoard) CreateJob(ctx context.Context, userID int64, req request.CreateJob) (persistence.Job, error) {
	if err := req.Validate(); err != nil {
		return persistence.Job{}, newError(enums.ErrorKindValidation, err.Error(), err)
	}
	user, err := s.caller(ctx, userID)
	if err != nil {
		return persistence.Job{}, err
	}
	if err = access.CanCreateJob(user).Err(); err != nil {
		return persistence.Job{}, denied(err, "Only employers can create job postings")
	}

	now := s.now()
	job, err := s.Store.CreateJob(ctx, persistence.Job{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Salary:      req.Salary,
		EmployerID:  user.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		log.Printf("[WARN] failed to create job for employer %d, %v", user.ID, err)
		return persistence.Job{}, newError(enums.ErrorKindInternal, "Error creating job", err)
	}
	log.Printf("[INFO] employer %d created job %d", user.ID, job.ID)
	return job, nil
}

// GetJob returns job by id
func (s *JobBoard) GetJob(ctx context.Context, jobID int64) (persistence.Job, error) {
	job, err := s.Store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Job{}, newError(enums.ErrorKindNotFound, "Job not found", err)
		}
		log.Printf("[WARN] failed to get job %d, %v", jobID, err)
		return persistence.Job{}, internal(err)
	}
	return job, nil
}

// SearchJobs lists jobs by optional title keyword and location, most recently updated first
func (s *JobBoard) SearchJobs(ctx context.Context, keyword, location string) ([]persistence.Job, error) {
	jobs, err := s.Store.SearchJobs(ctx, persistence.JobFilter{Keyword: keyword, Location: location})
	if err != nil {
		log.Printf("[WARN] failed to search jobs, %v", err)
		return nil, internal(err)
	}
	return jobs, nil
}

// ApplicationStatus reports whether the caller applied to the job
func (s *JobBoard) ApplicationStatus(ctx context.Context, userID, jobID int64) (ApplicationStatus, error) {
	if _, err := s.caller(ctx, userID); err != nil {
		return ApplicationStatus{}, err
	}
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return ApplicationStatus{}, err
	}
	app, err := s.Store.FindApplication(ctx, jobID, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ApplicationStatus{}, nil
		}
		log.Printf("[WARN] failed to check application of user %d to job %d, %v", userID, jobID, err)
		return ApplicationStatus{}, internal(err)
	}
	return ApplicationStatus{Applied: true, Application: &app}, nil
}

// ApplyToJob submits the caller's application. The existence check and the insert share one
// transaction and the store rejects duplicates by constraint, so at most one application per
// seeker and job is created even for concurrent calls.
func (s *JobBoard) ApplyToJob(ctx context.Context, userID, jobID int64, req request.Apply) (persistence.Application, error) {
	user, err := s.caller(ctx, userID)
	if err != nil {
		return persistence.Application{}, err
	}
	// role goes first, a non-seeker is refused even for a missing job or a bad payload
	if err = access.CanApplyToJob(user, persistence.Job{}, false).Err(); err != nil {
		return persistence.Application{}, denied(err, "Only job seekers can apply to jobs")
	}
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return persistence.Application{}, err
	}
	if err = req.Validate(); err != nil {
		return persistence.Application{}, newError(enums.ErrorKindValidation, err.Error(), err)
	}

	var app persistence.Application
	err = s.Store.InTx(ctx, func(r persistence.Repo) error {
		_, e := r.FindApplication(ctx, job.ID, user.ID)
		if e != nil && !errors.Is(e, persistence.ErrNotFound) {
			return e
		}
		applied := e == nil
		if e = access.CanApplyToJob(user, job, applied).Err(); e != nil {
			return e
		}
		a, e := r.CreateApplication(ctx, persistence.Application{CoverLetter: req.CoverLetter, CreatedAt: s.now(),
			JobID: job.ID, SeekerID: user.ID})
		if e != nil {
			return e
		}
		app = a
		return nil
	})
	if err != nil {
		var de *access.DeniedError
		switch {
		case errors.As(err, &de):
			return persistence.Application{}, denied(err, "Only job seekers can apply to jobs")
		case errors.Is(err, persistence.ErrDuplicateApplication):
			return persistence.Application{}, newError(enums.ErrorKindConflict, "You have already applied to this job", err)
		}
		log.Printf("[WARN] failed to apply user %d to job %d, %v", user.ID, job.ID, err)
		return persistence.Application{}, internal(err)
	}
	log.Printf("[INFO] seeker %d applied to job %d, application %d", user.ID, job.ID, app.ID)
	s.notifyEmployer(ctx, job, user, app)
	return app, nil
}

// ListApplicationsForEmployer returns applications to jobs owned by the calling employer, oldest first
func (s *JobBoard) ListApplicationsForEmployer(ctx context.Context, userID int64) ([]persistence.ApplicationSummary, error) {
	user, err := s.caller(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err = access.CanViewEmployerApplications(user).Err(); err != nil {
		return nil, denied(err, "Only employers can view applications")
	}
	apps, err := s.Store.ListEmployerApplications(ctx, user.ID)
	if err != nil {
		log.Printf("[WARN] failed to list applications for employer %d, %v", user.ID, err)
		return nil, internal(err)
	}
	return access.OwnedApplications(user, apps), nil
}

// caller loads the authenticated user, a missing user means the token refers to nobody
func (s *JobBoard) caller(ctx context.Context, userID int64) (*persistence.User, error) {
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, newError(enums.ErrorKindUnauthenticated, "User not found", err)
		}
		log.Printf("[WARN] failed to load user %d, %v", userID, err)
		return nil, internal(err)
	}
	return &user, nil
}

// notifyEmployer submits a notice about the new application, failures are logged by the notifier
func (s *JobBoard) notifyEmployer(ctx context.Context, job persistence.Job, seeker *persistence.User, app persistence.Application) {
	if s.Notifier == nil {
		return
	}
	employer, err := s.Store.GetUser(ctx, job.EmployerID)
	if err != nil {
		log.Printf("[WARN] can't load employer %d for notification, %v", job.EmployerID, err)
		return
	}
	s.Notifier.Submit(notify.Application{
		ApplicationID: app.ID,
		JobID:         job.ID,
		JobTitle:      job.Title,
		EmployerEmail: employer.Email,
		SeekerEmail:   seeker.Email,
		CoverLetter:   app.CoverLetter,
		CreatedAt:     app.CreatedAt,
	})
}

func (s *JobBoard) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

func (s *JobBoard) bcryptCost() int {
	if s.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

// timingHash is compared against for unknown emails, same cost as real hashes so login takes the same time either way
func (s *JobBoard) timingHash() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), s.bcryptCost())
		if err != nil {
			log.Printf("[WARN] failed to make dummy password hash, %v", err)
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
