// Package web exposes the engine, optimization manager, and history
// store over a small JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/optimize"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/prompts"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/reasoning"
	"github.com/lokeshpanthangi/Prompt-pipeing/internal/store"
)

// Server serves the HTTP API. The store is optional; history endpoints
// return 404 when persistence is disabled.
type Server struct {
	engine  *reasoning.Engine
	manager *optimize.Manager
	history *store.Store
}

// NewServer wires the API over the live engine and manager.
func NewServer(engine *reasoning.Engine, manager *optimize.Manager, history *store.Store) *Server {
	return &Server{engine: engine, manager: manager, history: history}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/solve", s.handleSolve)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/runs", s.handleRuns)
		r.Get("/versions", s.handleVersions)
		r.Get("/solves", s.handleSolves)
	})
	return r
}

// ListenAndServe runs the server until ctx is canceled, then shuts it
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("api server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type statusResponse struct {
	Stats         reasoning.SessionStats `json:"stats"`
	Optimization  optimize.Status        `json:"optimization"`
	ActivePrompts map[string]int         `json:"active_prompts"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Stats:        s.engine.Stats(),
		Optimization: s.manager.Status(),
		ActivePrompts: map[string]int{
			prompts.StrategyTreeOfThought:   len(s.engine.Library().ActiveSet(prompts.StrategyTreeOfThought)),
			prompts.StrategySelfConsistency: len(s.engine.Library().ActiveSet(prompts.StrategySelfConsistency)),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

type solveRequest struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	problem := reasoning.Problem{Text: req.Text, Type: reasoning.ProblemType(req.Type)}
	result := s.engine.Solve(r.Context(), problem)
	if s.history != nil {
		if err := s.history.SaveSolve(r.Context(), result); err != nil {
			log.Warn().Err(err).Msg("persist solve")
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	run, err := s.manager.ManualOptimize(r.Context())
	switch {
	case errors.Is(err, optimize.ErrCooldown):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, optimize.ErrRunning):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history != nil {
		runs, err := s.history.Runs(r.Context(), queryLimit(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, runs)
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Runs())
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	strategy := r.URL.Query().Get("strategy")
	if s.history != nil {
		versions, err := s.history.Versions(r.Context(), strategy)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, versions)
		return
	}
	lib := s.engine.Library()
	if strategy != "" {
		writeJSON(w, http.StatusOK, lib.History(strategy))
		return
	}
	all := append(lib.History(prompts.StrategyTreeOfThought),
		lib.History(prompts.StrategySelfConsistency)...)
	writeJSON(w, http.StatusOK, all)
}

func (s *Server) handleSolves(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "persistence is disabled")
		return
	}
	solves, err := s.history.RecentSolves(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, solves)
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 20
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
