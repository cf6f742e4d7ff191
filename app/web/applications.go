package web

import (
	"net/http"

	"github.com/go-pkgz/rest"

	"github.com/umputun/jobboard/app/service/request"
)

// handleApplicationStatus tells whether the caller applied to the job
func (s *Server) handleApplicationStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.pathID(w, r, "job_id")
	if !ok {
		return
	}
	st, err := s.svc.ApplicationStatus(r.Context(), userID(r), jobID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := ApplicationStatusResponse{Applied: st.Applied}
	if st.Application != nil {
		app := toApplicationResponse(*st.Application)
		resp.Application = &app
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleApply submits the caller's application to the job
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.pathID(w, r, "job_id")
	if !ok {
		return
	}
	var req request.Apply
	if !s.decodeJSON(w, r, &req) {
		return
	}
	app, err := s.svc.ApplyToJob(r.Context(), userID(r), jobID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rest.JSON{"msg": "Application submitted", "application_id": app.ID})
}

// handleEmployerApplications lists applications to the caller's jobs
func (s *Server) handleEmployerApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.svc.ListApplicationsForEmployer(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := make([]EmployerApplication, 0, len(apps))
	for _, a := range apps {
		resp = append(resp, toEmployerApplication(a))
	}
	s.writeJSON(w, http.StatusOK, resp)
}
