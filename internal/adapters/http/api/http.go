// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/matchrisk/internal/adapters/repository"
	"github.com/okian/matchrisk/internal/domain/cohort"
	"github.com/okian/matchrisk/internal/domain/model"
)

// Default handler configuration constants.
const (
	DefaultMaxLimit = 200
	defaultLimit    = 20
)

// RankingQuery selects one ranked metric.
type RankingQuery struct {
	Tier   string
	Role   model.Role
	Metric string
	Limit  int
}

// ProfileView is one entity's persisted statistics with its display name and
// its rank on every board of its tier that lists it.
type ProfileView struct {
	Name   string
	Entity cohort.EntitySnapshot
	// Ranks maps role -> metric -> rank.
	Ranks map[model.Role]map[string]int
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Rankings returns the head of a ranked metric.
	Rankings(ctx context.Context, q RankingQuery) ([]repository.Entry, error)
	// Profile returns the persisted view of one entity in a tier.
	Profile(ctx context.Context, tier, entityID string) (ProfileView, error)
}

// Server wires HTTP routes for the read API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankingsHandler *RankingsHandler
	profileHandler  *ProfileHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = DefaultMaxLimit
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		rankingsHandler: NewRankingsHandler(deps, maxLimit),
		profileHandler:  NewProfileHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("/profiles/", MetricsMiddleware(s.profileHandler.HandleGetProfile, "profiles"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates a domain error into a response.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	writeError(w, status, code, err)
}
