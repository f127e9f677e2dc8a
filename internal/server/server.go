// Package server exposes the session boundary over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"aitutor/internal/store"
	"aitutor/internal/types"
)

// TurnProcessor is the engine as the server sees it.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req types.TurnRequest) types.TurnResponse
}

// SessionReader loads session snapshots for inspection.
type SessionReader interface {
	LoadLatest(ctx context.Context, sessionID string) (*types.Session, error)
}

// MasteryReader lists a student's mastery records.
type MasteryReader interface {
	GetMastery(ctx context.Context, studentID, subject string) ([]store.MasteryRecord, error)
	GetWeakTopics(ctx context.Context, studentID string, threshold float64, limit int) ([]string, error)
}

// Server is the HTTP surface.
type Server struct {
	engine   TurnProcessor
	sessions SessionReader
	mastery  MasteryReader
	log      *zap.Logger
}

// New creates the server.
func New(engine TurnProcessor, sessions SessionReader, mastery MasteryReader, log *zap.Logger) *Server {
	return &Server{
		engine:   engine,
		sessions: sessions,
		mastery:  mastery,
		log:      log.Named("http"),
	}
}

// Routes builds the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/students/{id}/mastery", s.handleGetMastery)
	})
	return r
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserInput == "" {
		s.writeError(w, http.StatusBadRequest, "user_input is required")
		return
	}

	resp := s.engine.ProcessTurn(r.Context(), req)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.LoadLatest(r.Context(), id)
	if err != nil {
		s.log.Error("session lookup failed", zap.String("session", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if sess == nil {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetMastery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	subject := r.URL.Query().Get("subject")

	records, err := s.mastery.GetMastery(r.Context(), id, subject)
	if err != nil {
		s.log.Error("mastery lookup failed", zap.String("student", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "mastery lookup failed")
		return
	}

	threshold := 0.5
	if t := r.URL.Query().Get("weak_threshold"); t != "" {
		if parsed, err := strconv.ParseFloat(t, 64); err == nil {
			threshold = parsed
		}
	}
	weak, err := s.mastery.GetWeakTopics(r.Context(), id, threshold, 10)
	if err != nil {
		s.log.Warn("weak-topic lookup failed", zap.String("student", id), zap.Error(err))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"student_id":  id,
		"records":     records,
		"weak_topics": weak,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs each request with its chi request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encoding failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
