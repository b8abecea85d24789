// Package server exposes the player record service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/verte-zerg/tuimeteor/internal/model"
	"github.com/verte-zerg/tuimeteor/internal/records"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// RequestIDHeader correlates client and server logs.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// Backend is the record service the routes call into.
type Backend interface {
	records.Gateway
	records.Admin
	RaiseBestScoreChanged(ctx context.Context, id string, score int) (model.Player, bool, error)
}

// Envelope wraps every JSON response.
type Envelope struct {
	OK      bool            `json:"ok"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Error codes carried in Envelope.Error.
const (
	CodeInvalid       = "invalid_request"
	CodeUnauthorized  = "unauthorized"
	CodeAdminDisabled = "admin_disabled"
	CodeUnavailable   = "db_unavailable"
	CodeNotFound      = "not_found"
)

// PlayerRequest is the body of POST /api/players.
type PlayerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// BestRequest is the body of POST /api/players/{id}/best.
type BestRequest struct {
	Score int `json:"score"`
}

// ClearRequest is the body of the admin clear routes.
type ClearRequest struct {
	Group string `json:"group,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// ClearResponse reports how many players were affected.
type ClearResponse struct {
	Affected int64 `json:"affected"`
}

// Server routes HTTP requests to a Backend.
type Server struct {
	backend Backend
	hub     *Hub
	logger  *log.Logger
	mux     *http.ServeMux
}

// New builds the route table.
func New(backend Backend, logger *log.Logger) *Server {
	s := &Server{
		backend: backend,
		hub:     NewHub(logger),
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("POST /api/players", s.handleUpsert)
	s.mux.HandleFunc("GET /api/players/{id}", s.handleGetPlayer)
	s.mux.HandleFunc("POST /api/players/{id}/best", s.handleRaiseBest)
	s.mux.HandleFunc("GET /api/players/{id}/rounds", s.handleListRounds)
	s.mux.HandleFunc("POST /api/rounds", s.handleRecordRound)
	s.mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("GET /api/groups", s.handleGroups)
	s.mux.HandleFunc("POST /api/admin/clear-group", s.handleClearGroup)
	s.mux.HandleFunc("POST /api/admin/clear-all", s.handleClearAll)
	s.mux.Handle("GET /api/live", s.hub)
	return s
}

// Hub returns the live event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("record service listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down record service")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req PlayerRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.backend.UpsertPlayer(r.Context(), req.ID, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, p)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.backend.GetPlayer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, p)
}

func (s *Server) handleRaiseBest(w http.ResponseWriter, r *http.Request) {
	var req BestRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, changed, err := s.backend.RaiseBestScoreChanged(r.Context(), r.PathValue("id"), req.Score)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if changed {
		s.hub.Broadcast(model.LiveEvent{Type: model.EventBest, PlayerID: p.ID, BestScore: p.BestScore})
	}
	s.ok(w, p)
}

func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	rounds, err := s.backend.ListRounds(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rounds == nil {
		rounds = []model.RoundRecord{}
	}
	s.ok(w, rounds)
}

func (s *Server) handleRecordRound(w http.ResponseWriter, r *http.Request) {
	var req model.RoundRecord
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.backend.RecordRound(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, struct{}{})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	players, err := s.backend.Leaderboard(r.Context(), limit, r.URL.Query().Get("group"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if players == nil {
		players = []model.Player{}
	}
	s.ok(w, players)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.backend.Groups(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if groups == nil {
		groups = []model.GroupSummary{}
	}
	s.ok(w, groups)
}

func (s *Server) handleClearGroup(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if !s.decode(w, r, &req) {
		return
	}
	mode := model.ClearMode(req.Mode)
	n, err := s.backend.ClearGroup(r.Context(), r.Header.Get(AdminTokenHeader), req.Group, mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("group cleared", "group", req.Group, "mode", mode, "affected", n)
	s.hub.Broadcast(model.LiveEvent{Type: model.EventCleared, Group: req.Group, Mode: mode})
	s.ok(w, ClearResponse{Affected: n})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if !s.decode(w, r, &req) {
		return
	}
	mode := model.ClearMode(req.Mode)
	n, err := s.backend.ClearAll(r.Context(), r.Header.Get(AdminTokenHeader), mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("all players cleared", "mode", mode, "affected", n)
	s.hub.Broadcast(model.LiveEvent{Type: model.EventCleared, Mode: mode})
	s.ok(w, ClearResponse{Affected: n})
}

func (s *Server) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.write(w, http.StatusBadRequest, Envelope{Error: CodeInvalid, Message: "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.write(w, http.StatusBadRequest, Envelope{Error: CodeInvalid, Message: "malformed JSON body"})
		return false
	}
	return true
}

func (s *Server) ok(w http.ResponseWriter, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode response", "err", err)
		s.write(w, http.StatusInternalServerError, Envelope{Error: CodeUnavailable})
		return
	}
	s.write(w, http.StatusOK, Envelope{OK: true, Data: raw})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)
	env := Envelope{Error: code}
	if status == http.StatusServiceUnavailable {
		s.logger.Error("backend failure", "path", r.URL.Path, "request_id", r.Header.Get(RequestIDHeader), "err", err)
	} else {
		env.Message = err.Error()
	}
	s.write(w, status, env)
}

func (s *Server) write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Debug("failed to write response", "err", err)
	}
}

// StatusFor maps a records error to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, records.ErrValidation):
		return http.StatusBadRequest, CodeInvalid
	case errors.Is(err, records.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, records.ErrAdminDisabled):
		return http.StatusForbidden, CodeAdminDisabled
	default:
		return http.StatusServiceUnavailable, CodeUnavailable
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(RequestIDHeader) == "" {
			r.Header.Set(RequestIDHeader, uuid.NewString())
		}
		w.Header().Set(RequestIDHeader, r.Header.Get(RequestIDHeader))
		if r.URL.Path == "/api/live" {
			// The websocket upgrade needs the raw writer for hijacking.
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", r.Header.Get(RequestIDHeader),
		)
	})
}
