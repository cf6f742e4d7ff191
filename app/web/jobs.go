package web

import (
	"net/http"

	"github.com/go-pkgz/rest"

	"github.com/umputun/jobboard/app/service/request"
)

// handleCreateJob posts a job for the authenticated employer
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req request.CreateJob
	if !s.decodeJSON(w, r, &req) {
		return
	}
	job, err := s.svc.CreateJob(r.Context(), userID(r), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rest.JSON{"msg": "Job created", "job_id": job.ID})
}

// handleListJobs returns jobs filtered by q (title) and location query params
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := s.svc.SearchJobs(r.Context(), q.Get("q"), q.Get("location"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, toJobSummary(j))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetJob returns a single job
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	job, err := s.svc.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toJobDetail(job))
}
