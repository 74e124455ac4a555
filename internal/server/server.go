// Package server is the dashboard service: the ingestion API the automation
// tooling posts to, the read API and live channel the sync engine consumes.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jobdeck/jobdeck/internal/core/domain"
	"github.com/jobdeck/jobdeck/internal/core/logger"
	"github.com/jobdeck/jobdeck/internal/storage"
)

type Server struct {
	router *chi.Mux
	store  *storage.Storage
	hub    *Hub
}

func New(store *storage.Storage, hub *Hub, corsOrigins []string) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  store,
		hub:    hub,
	}
	s.routes(corsOrigins)
	return s
}

func (s *Server) routes(corsOrigins []string) {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Get("/ws", s.handleWS)

	s.router.Route("/api/jobs", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Post("/progress", s.handleProgress)
		r.Post("/complete", s.handleComplete)
		r.Get("/", s.handleListJobs)
		r.Get("/{id}/logs", s.handleJobLogs)
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	logger.Info("dashboard service listening", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

type startPayload struct {
	JobName     string `json:"job_name"`
	Scope       string `json:"scope"`
	TriggeredBy string `json:"triggered_by"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var p startPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rec, err := s.store.CreateJob(r.Context(), p.JobName, p.Scope, p.TriggeredBy)
	if err != nil {
		logger.Error("create job failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	if _, err := s.store.AppendLog(r.Context(), rec.ID, "info", "Job started"); err != nil {
		logger.Warn("initial log write failed", "job_id", rec.ID, "error", err)
	}
	s.hub.Broadcast(domain.Event{Type: domain.EventJobStart, Job: jobPtr(rec.Wire())})
	writeJSON(w, http.StatusOK, map[string]int64{"job_id": rec.ID})
}

type progressPayload struct {
	JobID    int64    `json:"job_id"`
	Progress *float64 `json:"progress"`
	Message  *string  `json:"message"`
	Level    *string  `json:"level"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var p progressPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rec, err := s.store.GetJob(r.Context(), p.JobID)
	if err != nil {
		s.jobError(w, p.JobID, err)
		return
	}
	if p.Progress != nil {
		rec.Progress = *p.Progress
		if err := s.store.UpdateJob(r.Context(), rec); err != nil {
			logger.Error("progress update failed", "job_id", rec.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "update failed")
			return
		}
	}
	s.hub.Broadcast(domain.Event{Type: domain.EventJobProgress, Job: jobPtr(rec.Wire())})

	if p.Message != nil && *p.Message != "" {
		level := ""
		if p.Level != nil {
			level = *p.Level
		}
		logRec, err := s.store.AppendLog(r.Context(), rec.ID, level, *p.Message)
		if err != nil {
			logger.Warn("log write failed", "job_id", rec.ID, "error", err)
		} else {
			entry := logRec.Wire()
			s.hub.Broadcast(domain.Event{Type: domain.EventJobLog, Log: &entry})
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type completePayload struct {
	JobID   int64   `json:"job_id"`
	Status  string  `json:"status"`
	Message *string `json:"message"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var p completePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rec, err := s.store.GetJob(r.Context(), p.JobID)
	if err != nil {
		s.jobError(w, p.JobID, err)
		return
	}
	now := time.Now().UTC()
	rec.Status = p.Status
	rec.Progress = 100
	rec.EndTime = &now
	if err := s.store.UpdateJob(r.Context(), rec); err != nil {
		logger.Error("complete update failed", "job_id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	if p.Message != nil && *p.Message != "" {
		if _, err := s.store.AppendLog(r.Context(), rec.ID, "info", *p.Message); err != nil {
			logger.Warn("log write failed", "job_id", rec.ID, "error", err)
		}
	}
	s.hub.Broadcast(domain.Event{Type: domain.EventJobComplete, Job: jobPtr(rec.Wire())})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// rangeCutoff maps the range parameter to a start-time cutoff; unknown values
// (including "all") mean no cutoff.
func rangeCutoff(rng string, now time.Time) time.Time {
	switch rng {
	case "24h":
		return now.Add(-24 * time.Hour)
	case "7d":
		return now.AddDate(0, 0, -7)
	case "30d":
		return now.AddDate(0, 0, -30)
	}
	return time.Time{}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "24h"
	}
	recs, err := s.store.JobsSince(r.Context(), rangeCutoff(rng, time.Now().UTC()))
	if err != nil {
		logger.Error("list jobs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	jobs := make([]domain.Job, 0, len(recs))
	for _, rec := range recs {
		jobs = append(jobs, rec.Wire())
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Job{"jobs": jobs})
}

func (s *Server) handleJobLogs(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	recs, err := s.store.JobLogs(r.Context(), id, limit, offset)
	if err != nil {
		logger.Error("list logs failed", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	logs := make([]domain.LogEntry, 0, len(recs))
	for _, rec := range recs {
		entry := rec.Wire()
		entry.JobID = 0 // the path already names the job
		logs = append(logs, entry)
	}
	writeJSON(w, http.StatusOK, map[string][]domain.LogEntry{"logs": logs})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	serveWS(s.hub, w, r)
}

func (s *Server) jobError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	logger.Error("job lookup failed", "job_id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "lookup failed")
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func jobPtr(j domain.Job) *domain.Job {
	return &j
}
