package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
)

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["job_id"])
	outcome, err := s.store.Lookup(r.Context(), id)
	if err != nil {
		logging.WithContext(r.Context(), s.logger).Error("result lookup failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
			logging.String(logging.FieldEventType, "result_lookup_failed"),
		)
		s.writeError(w, http.StatusInternalServerError, "job store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, FromOutcome(outcome))
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.ToLower(strings.TrimSpace(part))
			if trimmed == "" {
				continue
			}
			status, ok := jobs.ParseStatus(trimmed)
			if !ok {
				s.writeError(w, http.StatusBadRequest, "invalid status "+trimmed)
				return
			}
			statuses = append(statuses, status)
		}
	}
	list, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: FromJobs(list)})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.Context(), mux.Vars(r)["job_id"])
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, JobResponse{Job: FromJob(job)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.hooks.Status == nil {
		s.writeJSON(w, http.StatusOK, DaemonStatus{Running: true, PID: os.Getpid()})
		return
	}
	s.writeJSON(w, http.StatusOK, s.hooks.Status(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "job store unavailable: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
