package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/jobboard/app/service"
	"github.com/umputun/jobboard/app/web/enums"
	"github.com/umputun/jobboard/app/web/persistence"
)

// UserResponse is a user as seen by clients, never includes the password hash
type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse is the JSON response for /auth/login
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// JobSummary is an entry of the job list
type JobSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	Salary    string    `json:"salary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobDetail is the JSON response for a single job
type JobDetail struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Salary      string    `json:"salary"`
	EmployerID  int64     `json:"employer_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ApplicationResponse is an application of the caller
type ApplicationResponse struct {
	ID          int64     `json:"id"`
	CoverLetter string    `json:"cover_letter"`
	CreatedAt   time.Time `json:"created_at"`
	JobID       int64     `json:"job_id"`
	SeekerID    int64     `json:"seeker_id"`
}

// ApplicationStatusResponse is the JSON response for application status, application is null if not applied
type ApplicationStatusResponse struct {
	Applied     bool                 `json:"applied"`
	Application *ApplicationResponse `json:"application"`
}

// EmployerApplication is an application to one of the employer's jobs
type EmployerApplication struct {
	ID          int64     `json:"id"`
	CoverLetter string    `json:"cover_letter"`
	CreatedAt   time.Time `json:"created_at"`
	JobID       int64     `json:"job_id"`
	JobTitle    string    `json:"job_title"`
	SeekerID    int64     `json:"seeker_id"`
	SeekerEmail string    `json:"seeker_email"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Msg   string `json:"msg"`
	Error string `json:"error"`
}

func toUserResponse(u persistence.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role.String()}
}

func toJobSummary(j persistence.Job) JobSummary {
	return JobSummary{ID: j.ID, Title: j.Title, Location: j.Location, Salary: j.Salary, UpdatedAt: j.UpdatedAt}
}

func toJobDetail(j persistence.Job) JobDetail {
	return JobDetail{
		ID:          j.ID,
		Title:       j.Title,
		Description: j.Description,
		Location:    j.Location,
		Salary:      j.Salary,
		EmployerID:  j.EmployerID,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

func toApplicationResponse(a persistence.Application) ApplicationResponse {
	return ApplicationResponse{ID: a.ID, CoverLetter: a.CoverLetter, CreatedAt: a.CreatedAt, JobID: a.JobID, SeekerID: a.SeekerID}
}

func toEmployerApplication(a persistence.ApplicationSummary) EmployerApplication {
	return EmployerApplication{
		ID:          a.ID,
		CoverLetter: a.CoverLetter,
		CreatedAt:   a.CreatedAt,
		JobID:       a.JobID,
		JobTitle:    a.JobTitle,
		SeekerID:    a.SeekerID,
		SeekerEmail: a.SeekerEmail,
	}
}

// statusOf maps error kind to http status. Duplicates are 400, as clients expect.
func statusOf(kind enums.ErrorKind) int {
	switch kind {
	case enums.ErrorKindUnauthenticated:
		return http.StatusUnauthorized
	case enums.ErrorKindForbidden:
		return http.StatusForbidden
	case enums.ErrorKindNotFound:
		return http.StatusNotFound
	case enums.ErrorKindConflict, enums.ErrorKindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads request body into v, writes validation error and returns false on failure
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("[DEBUG] bad json body for %s, %v", r.URL.Path, err)
		s.writeJSONError(w, enums.ErrorKindValidation, "Invalid JSON body")
		return false
	}
	return true
}

// pathID parses positive integer path value, writes validation error and returns false on failure
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		s.writeJSONError(w, enums.ErrorKindValidation, "Invalid job id")
		return 0, false
	}
	return id, true
}

// writeError writes service error with the status of its kind, internal details are logged, not sent
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := service.KindOf(err)
	msg := "Internal error"
	var se *service.Error
	if errors.As(err, &se) && se.Msg != "" {
		msg = se.Msg
	}
	if kind == enums.ErrorKindInternal {
		log.Printf("[WARN] request failed, %v", err)
	}
	s.writeJSONError(w, kind, msg)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, kind enums.ErrorKind, message string) {
	s.writeJSON(w, statusOf(kind), ErrorResponse{Msg: message, Error: kind.String()})
}
